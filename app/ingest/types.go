package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lysyi3m/alert-comb/app/alert"
	"github.com/lysyi3m/alert-comb/app/database"
)

const (
	DefaultBatchSize = 50
	recentDays       = 7
)

var (
	ErrSyncInProgress = errors.New("sync already in progress")
	ErrUnknownSource  = errors.New("unknown source")
)

// SyncResult is the outcome of one sync run for one source. It is returned
// and logged; only the sync log row is persisted.
type SyncResult struct {
	Source         alert.Source           `json:"source"`
	Success        bool                   `json:"success"`
	Status         database.SyncLogStatus `json:"status"`
	StartTime      time.Time              `json:"start_time"`
	EndTime        time.Time              `json:"end_time"`
	AlertsFetched  int                    `json:"alerts_fetched"`
	AlertsInserted int                    `json:"alerts_inserted"`
	AlertsUpdated  int                    `json:"alerts_updated"`
	AlertsSkipped  int                    `json:"alerts_skipped"`
	Errors         []string               `json:"errors"`
	Metadata       map[string]any         `json:"metadata,omitempty"`
}

func newResult(src alert.Source, daysBack int) SyncResult {
	return SyncResult{
		Source:    src,
		Status:    database.SyncLogRunning,
		StartTime: time.Now(),
		Errors:    []string{},
		Metadata:  map[string]any{"days_back": daysBack},
	}
}

func (r SyncResult) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

func (r *SyncResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// finalize derives Success and Status from the counters.
func (r *SyncResult) finalize() {
	r.Success = successful(len(r.Errors), r.AlertsInserted, r.AlertsUpdated)
	switch {
	case !r.Success:
		r.Status = database.SyncLogFailed
	case len(r.Errors) > 0:
		r.Status = database.SyncLogPartial
	default:
		r.Status = database.SyncLogCompleted
	}
}

// A run with errors still succeeds if it wrote anything.
func successful(errorCount, inserted, updated int) bool {
	return errorCount == 0 || inserted > 0 || updated > 0
}

type SyncStatus struct {
	LastSyncTime   *time.Time     `json:"last_sync_time"`
	TotalAlerts    int            `json:"total_alerts"`
	AlertsBySource map[string]int `json:"alerts_by_source"`
	RecentAlerts   int            `json:"recent_alerts"`
}

type AlertStore interface {
	StartSyncLog(ctx context.Context, source alert.Source) (string, error)
	FinishSyncLog(ctx context.Context, logID string, status database.SyncLogStatus) error
	UpsertAlert(ctx context.Context, a alert.NormalizedAlert) (database.UpsertAction, error)
	GetSummary(ctx context.Context, recentSince time.Time) (*database.Summary, error)
}

// EndpointFetcher is a source adapter. Each endpoint is fetched
// independently; T is the source-native record type.
type EndpointFetcher[T any] interface {
	Endpoints() []string
	Fetch(ctx context.Context, endpoint string, daysBack int) ([]T, error)
}

type Adapters struct {
	FDA             EndpointFetcher[alert.FDARecord]
	FSIS            EndpointFetcher[alert.FSISRecord]
	CDC             EndpointFetcher[alert.CDCRecord]
	EPA             EndpointFetcher[alert.EPARecord]
	FederalRegister EndpointFetcher[alert.FederalRegisterRecord]
	RegulationsGov  EndpointFetcher[alert.RegulationsGovRecord]
}

// Guard keeps two runs for the same source from overlapping. The returned
// release func must be called once the run is over.
type Guard interface {
	Acquire(ctx context.Context, source alert.Source) (func(), error)
}

type Publisher interface {
	Publish(ctx context.Context, action database.UpsertAction, a alert.NormalizedAlert) error
}

type Recorder interface {
	ObserveSync(result SyncResult)
}

// FilterFunc reports whether a normalized alert should be dropped, and why.
type FilterFunc func(source alert.Source, a alert.NormalizedAlert) (bool, string)

type Options struct {
	BatchSize int
	Guard     Guard
	Publisher Publisher
	Recorder  Recorder
	Filter    FilterFunc
}
