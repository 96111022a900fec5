package ingest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lysyi3m/alert-comb/app/alert"
	"github.com/lysyi3m/alert-comb/app/database"
)

type mockStore struct {
	mu sync.Mutex

	hashes   map[string]string
	logs     []alert.Source
	finished map[string]database.SyncLogStatus

	startErr  error
	finishErr error
	upsertErr error
	action    database.UpsertAction // forced result when set
	summary   *database.Summary
}

func newMockStore() *mockStore {
	return &mockStore{
		hashes:   make(map[string]string),
		finished: make(map[string]database.SyncLogStatus),
	}
}

func (m *mockStore) StartSyncLog(ctx context.Context, source alert.Source) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.startErr != nil {
		return "", m.startErr
	}
	m.logs = append(m.logs, source)
	return fmt.Sprintf("log-%d", len(m.logs)), nil
}

func (m *mockStore) FinishSyncLog(ctx context.Context, logID string, status database.SyncLogStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.finishErr != nil {
		return m.finishErr
	}
	m.finished[logID] = status
	return nil
}

func (m *mockStore) UpsertAlert(ctx context.Context, a alert.NormalizedAlert) (database.UpsertAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.upsertErr != nil {
		return "", m.upsertErr
	}
	if m.action != "" {
		return m.action, nil
	}

	key := string(a.Source) + "/" + a.ExternalID
	hash, ok := m.hashes[key]
	m.hashes[key] = a.Hash
	switch {
	case !ok:
		return database.ActionInserted, nil
	case hash == a.Hash:
		return database.ActionSkipped, nil
	default:
		return database.ActionUpdated, nil
	}
}

func (m *mockStore) GetSummary(ctx context.Context, recentSince time.Time) (*database.Summary, error) {
	if m.summary == nil {
		return nil, fmt.Errorf("summary unavailable")
	}
	return m.summary, nil
}

func (m *mockStore) startedLogs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

type mockFetcher[T any] struct {
	endpoints []string
	records   map[string][]T
	errs      map[string]error
	panicOn   string

	calls    atomic.Int32
	daysBack atomic.Int32
}

func (f *mockFetcher[T]) Endpoints() []string {
	return f.endpoints
}

func (f *mockFetcher[T]) Fetch(ctx context.Context, endpoint string, daysBack int) ([]T, error) {
	f.calls.Add(1)
	f.daysBack.Store(int32(daysBack))

	if endpoint == f.panicOn {
		panic("decoder exploded")
	}
	if err := f.errs[endpoint]; err != nil {
		return nil, err
	}
	return f.records[endpoint], nil
}

func fdaRecords(endpoint string, n int) []alert.FDARecord {
	records := make([]alert.FDARecord, n)
	for i := range records {
		records[i] = alert.FDARecord{
			RecallNumber:       fmt.Sprintf("%s-%03d", endpoint, i),
			ProductDescription: "Product " + endpoint,
			ReasonForRecall:    "Undeclared allergen",
			Classification:     "Class II",
			ReportDate:         "20240301",
		}
	}
	return records
}

type mockPublisher struct {
	mu     sync.Mutex
	events []database.UpsertAction
	err    error
}

func (p *mockPublisher) Publish(ctx context.Context, action database.UpsertAction, a alert.NormalizedAlert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, action)
	return p.err
}

type mockRecorder struct {
	mu      sync.Mutex
	results []SyncResult
}

func (r *mockRecorder) ObserveSync(result SyncResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

// testAdapters returns adapters where every core source succeeds with a
// single valid record.
func testAdapters() Adapters {
	return Adapters{
		FDA: &mockFetcher[alert.FDARecord]{
			endpoints: []string{"food"},
			records:   map[string][]alert.FDARecord{"food": fdaRecords("food", 1)},
		},
		FSIS: &mockFetcher[alert.FSISRecord]{
			endpoints: []string{"recalls"},
			records: map[string][]alert.FSISRecord{"recalls": {{
				GUID:    "fsis-1",
				Title:   "Acme Recalls Chicken",
				PubDate: "Mon, 01 Apr 2024 10:00:00 GMT",
			}}},
		},
		CDC: &mockFetcher[alert.CDCRecord]{
			endpoints: []string{"mmwr"},
			records: map[string][]alert.CDCRecord{"mmwr": {{
				Kind:  alert.CDCAdvisory,
				ID:    "cdc-1",
				Title: "Weekly report",
			}}},
		},
		EPA: &mockFetcher[alert.EPARecord]{
			endpoints: []string{"cases"},
			records: map[string][]alert.EPARecord{"cases": {{
				CaseNumber: "01-2024-1",
				CaseName:   "Acme Chemical",
				FedPenalty: "50000",
				DateFiled:  "03/01/2024",
			}}},
		},
	}
}
