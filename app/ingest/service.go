package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/alert-comb/app/alert"
	"github.com/lysyi3m/alert-comb/app/database"
)

// Service fetches, normalizes, validates and stores alerts for every source.
type Service struct {
	store     AlertStore
	adapters  Adapters
	batchSize int
	guard     Guard
	publisher Publisher
	recorder  Recorder
	filter    FilterFunc

	mu   sync.RWMutex
	last map[alert.Source]SyncResult
}

func NewService(store AlertStore, adapters Adapters, opts Options) *Service {
	s := &Service{
		store:     store,
		adapters:  adapters,
		batchSize: opts.BatchSize,
		guard:     opts.Guard,
		publisher: opts.Publisher,
		recorder:  opts.Recorder,
		filter:    opts.Filter,
		last:      make(map[alert.Source]SyncResult),
	}

	if s.batchSize <= 0 {
		s.batchSize = DefaultBatchSize
	}
	if s.guard == nil {
		s.guard = NewLocalGuard()
	}
	if s.publisher == nil {
		s.publisher = nopPublisher{}
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}

	return s
}

// SyncAllSources syncs the core sources concurrently. It always returns one
// result per core source, in alert.CoreSources order.
func (s *Service) SyncAllSources(ctx context.Context, daysBack int) []SyncResult {
	slog.Info("Sync started", "sources", len(alert.CoreSources), "days_back", daysBack)

	outcomes := Settle(ctx, alert.CoreSources, func(ctx context.Context, src alert.Source) (SyncResult, error) {
		return s.SyncSource(ctx, string(src), daysBack)
	})

	results := make([]SyncResult, len(outcomes))
	var inserted, updated, failed int
	for i, o := range outcomes {
		if o.Err != nil {
			results[i] = s.failedResult(alert.CoreSources[i], daysBack, o.Err)
		} else {
			results[i] = o.Value
		}

		inserted += results[i].AlertsInserted
		updated += results[i].AlertsUpdated
		if !results[i].Success {
			failed++
		}
	}

	slog.Info("Sync of all sources finished", "inserted", inserted, "updated", updated, "failed_sources", failed)

	return results
}

// SyncSource syncs the named source. The error is only for unknown names;
// sync failures are reported in the result.
func (s *Service) SyncSource(ctx context.Context, name string, daysBack int) (SyncResult, error) {
	src, ok := alert.ParseSource(name)
	if !ok {
		return SyncResult{}, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}

	switch src {
	case alert.SourceFDA:
		return s.SyncFDAData(ctx, daysBack), nil
	case alert.SourceFSIS:
		return s.SyncFSISData(ctx, daysBack), nil
	case alert.SourceCDC:
		return s.SyncCDCData(ctx, daysBack), nil
	case alert.SourceEPA:
		return s.SyncEPAData(ctx, daysBack), nil
	case alert.SourceFederalRegister:
		return s.SyncFederalRegisterData(ctx, daysBack), nil
	case alert.SourceRegulationsGov:
		return s.SyncRegulationsGovData(ctx, daysBack), nil
	default:
		return SyncResult{}, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
}

func (s *Service) SyncFDAData(ctx context.Context, daysBack int) SyncResult {
	return runSync(ctx, s, alert.SourceFDA, s.adapters.FDA, alert.FromFDA, daysBack)
}

func (s *Service) SyncFSISData(ctx context.Context, daysBack int) SyncResult {
	return runSync(ctx, s, alert.SourceFSIS, s.adapters.FSIS, alert.FromFSIS, daysBack)
}

func (s *Service) SyncCDCData(ctx context.Context, daysBack int) SyncResult {
	return runSync(ctx, s, alert.SourceCDC, s.adapters.CDC, alert.FromCDC, daysBack)
}

func (s *Service) SyncEPAData(ctx context.Context, daysBack int) SyncResult {
	return runSync(ctx, s, alert.SourceEPA, s.adapters.EPA, alert.FromEPA, daysBack)
}

func (s *Service) SyncFederalRegisterData(ctx context.Context, daysBack int) SyncResult {
	return runSync(ctx, s, alert.SourceFederalRegister, s.adapters.FederalRegister, alert.FromFederalRegister, daysBack)
}

func (s *Service) SyncRegulationsGovData(ctx context.Context, daysBack int) SyncResult {
	return runSync(ctx, s, alert.SourceRegulationsGov, s.adapters.RegulationsGov, alert.FromRegulationsGov, daysBack)
}

func (s *Service) GetSyncStatus(ctx context.Context) (*SyncStatus, error) {
	summary, err := s.store.GetSummary(ctx, time.Now().AddDate(0, 0, -recentDays))
	if err != nil {
		return nil, fmt.Errorf("failed to get sync status: %w", err)
	}

	return &SyncStatus{
		LastSyncTime:   summary.LastSyncTime,
		TotalAlerts:    summary.TotalAlerts,
		AlertsBySource: summary.AlertsBySource,
		RecentAlerts:   summary.RecentAlerts,
	}, nil
}

// LastResults returns the most recent result for each source synced by
// this process.
func (s *Service) LastResults() map[alert.Source]SyncResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[alert.Source]SyncResult, len(s.last))
	for k, v := range s.last {
		results[k] = v
	}
	return results
}

func runSync[T any](ctx context.Context, s *Service, src alert.Source, fetcher EndpointFetcher[T], wrap func(T) alert.Record, daysBack int) (result SyncResult) {
	result = newResult(src, daysBack)
	defer func() {
		result.EndTime = time.Now()
		s.complete(result)
	}()

	var logID string
	defer func() {
		panicked := false
		if r := recover(); r != nil {
			panicked = true
			result.addError("%s: sync panicked: %v", src, r)
			result.Success = false
			result.Status = database.SyncLogFailed
		}

		if logID == "" {
			return
		}

		// The log is closed even when the caller has given up.
		if err := s.store.FinishSyncLog(context.WithoutCancel(ctx), logID, result.Status); err != nil {
			result.addError("%s: failed to finish sync log: %v", src, err)
			if !panicked {
				result.finalize()
			}
		}
	}()

	if fetcher == nil {
		result.addError("%s adapter is not configured", src)
		result.finalize()
		return result
	}

	release, err := s.guard.Acquire(ctx, src)
	if err != nil {
		result.addError("%s: %v", src, err)
		result.finalize()
		return result
	}
	defer release()

	id, err := s.store.StartSyncLog(ctx, src)
	if err != nil {
		result.addError("%s: failed to start sync log: %v", src, err)
		result.finalize()
		return result
	}
	logID = id
	result.Metadata["sync_log_id"] = logID

	endpoints := fetcher.Endpoints()
	outcomes := Settle(ctx, endpoints, func(ctx context.Context, endpoint string) ([]T, error) {
		return fetcher.Fetch(ctx, endpoint, daysBack)
	})

	fetched := make(map[string]int, len(endpoints))
	var records []alert.Record
	for i, o := range outcomes {
		if o.Err != nil {
			result.addError("%s %s fetch failed: %v", src, endpoints[i], o.Err)
			slog.Warn("Fetch failed", "source", src, "endpoint", endpoints[i], "error", o.Err)
			continue
		}

		fetched[endpoints[i]] = len(o.Value)
		for _, r := range o.Value {
			records = append(records, wrap(r))
		}
	}

	result.AlertsFetched = len(records)
	result.Metadata["endpoints"] = fetched

	s.process(ctx, &result, records)
	result.finalize()

	return result
}

// process handles records in fixed-size batches, one record at a time.
func (s *Service) process(ctx context.Context, result *SyncResult, records []alert.Record) {
	for start := 0; start < len(records); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			remaining := len(records) - start
			result.AlertsSkipped += remaining
			result.addError("%s: sync cancelled with %d records unprocessed: %v", result.Source, remaining, err)
			return
		}

		end := min(start+s.batchSize, len(records))
		for _, r := range records[start:end] {
			s.processRecord(ctx, result, r)
		}

		slog.Debug("Batch processed", "source", result.Source, "batch_start", start, "batch_end", end)
	}
}

func (s *Service) processRecord(ctx context.Context, result *SyncResult, r alert.Record) {
	a, err := alert.Normalize(r)
	if err != nil {
		result.AlertsSkipped++
		result.addError("%s: %v", result.Source, err)
		return
	}

	if s.filter != nil {
		if filtered, reason := s.filter(result.Source, a); filtered {
			result.AlertsSkipped++
			slog.Debug("Alert filtered", "source", a.Source, "external_id", a.ExternalID, "reason", reason)
			return
		}
	}

	if err := alert.Validate(a); err != nil {
		result.AlertsSkipped++
		result.addError("%v", err)
		return
	}

	action, err := s.store.UpsertAlert(ctx, a)
	if err != nil {
		result.AlertsSkipped++
		result.addError("%s/%s: upsert failed: %v", a.Source, a.ExternalID, err)
		return
	}

	switch action {
	case database.ActionInserted:
		result.AlertsInserted++
	case database.ActionUpdated:
		result.AlertsUpdated++
	default:
		result.AlertsSkipped++
		return
	}

	if err := s.publisher.Publish(ctx, action, a); err != nil {
		slog.Warn("Failed to publish alert event", "source", a.Source, "external_id", a.ExternalID, "action", action, "error", err)
	}
}

func (s *Service) failedResult(src alert.Source, daysBack int, err error) SyncResult {
	result := newResult(src, daysBack)
	result.addError("%s: %v", src, err)
	result.finalize()
	result.EndTime = time.Now()
	s.complete(result)
	return result
}

func (s *Service) complete(result SyncResult) {
	s.mu.Lock()
	s.last[result.Source] = result
	s.mu.Unlock()

	s.recorder.ObserveSync(result)

	attrs := []any{
		"source", result.Source,
		"status", result.Status,
		"fetched", result.AlertsFetched,
		"inserted", result.AlertsInserted,
		"updated", result.AlertsUpdated,
		"skipped", result.AlertsSkipped,
		"errors", len(result.Errors),
		"duration", result.Duration(),
	}

	if result.Success {
		slog.Info("Sync completed", attrs...)
	} else {
		slog.Error("Sync failed", append(attrs, "first_error", result.Errors[0])...)
	}
}
