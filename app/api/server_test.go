package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/alert-comb/app/alert"
	"github.com/lysyi3m/alert-comb/app/database"
	"github.com/lysyi3m/alert-comb/app/feed"
	"github.com/lysyi3m/alert-comb/app/ingest"
	"github.com/lysyi3m/alert-comb/app/source"
	"github.com/lysyi3m/alert-comb/app/tasks"
)

const testKey = "secret"

type mockAlerts struct {
	alerts  []database.StoredAlert
	filters []database.AlertFilter
	err     error
	pingErr error
}

func (m *mockAlerts) ListAlerts(ctx context.Context, filter database.AlertFilter) ([]database.StoredAlert, error) {
	m.filters = append(m.filters, filter)
	return m.alerts, m.err
}

func (m *mockAlerts) Ping(ctx context.Context) error {
	return m.pingErr
}

type mockStatus struct {
	err error
}

func (m *mockStatus) GetSyncStatus(ctx context.Context) (*ingest.SyncStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &ingest.SyncStatus{TotalAlerts: 12, AlertsBySource: map[string]int{"FDA": 12}, RecentAlerts: 3}, nil
}

func (m *mockStatus) LastResults() map[alert.Source]ingest.SyncResult {
	return map[alert.Source]ingest.SyncResult{
		alert.SourceFDA: {Source: alert.SourceFDA, Success: true, Status: database.SyncLogCompleted, Errors: []string{}},
	}
}

type mockSyncer struct{}

func (mockSyncer) SyncSource(ctx context.Context, name string, daysBack int) (ingest.SyncResult, error) {
	return ingest.SyncResult{}, nil
}

func (mockSyncer) SyncAllSources(ctx context.Context, daysBack int) []ingest.SyncResult {
	return nil
}

type mockScheduler struct {
	queued []tasks.TaskInterface
	err    error
}

func (m *mockScheduler) Start() {}
func (m *mockScheduler) Stop()  {}

func (m *mockScheduler) EnqueueTask(task tasks.TaskInterface) error {
	if m.err != nil {
		return m.err
	}
	m.queued = append(m.queued, task)
	return nil
}

type mockReporter struct{}

func (mockReporter) Health(ctx context.Context) map[string]any {
	return map[string]any{"status": "healthy"}
}

type testEnv struct {
	router    *gin.Engine
	alerts    *mockAlerts
	scheduler *mockScheduler
	sources   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	sourcesDir := t.TempDir()
	configCache := source.NewConfigCache(sourcesDir)

	env := &testEnv{
		alerts: &mockAlerts{alerts: []database.StoredAlert{{
			ID: "alert-1",
			NormalizedAlert: alert.NormalizedAlert{
				ExternalID:    "F-1",
				Source:        alert.SourceFDA,
				Title:         "Peanut butter recall",
				Severity:      alert.SeverityHigh,
				Category:      "recall",
				DatePublished: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			},
		}}},
		scheduler: &mockScheduler{},
		sources:   sourcesDir,
	}

	handler := NewHandler(env.alerts, &mockStatus{}, mockSyncer{},
		feed.NewGenerator("http://localhost:8080", "test"), configCache, env.scheduler, "test")
	handler.AddHealthReporter("redis", mockReporter{})

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("alert_comb_syncs_total 1\n"))
	})

	env.router = NewServer(handler, testKey, metrics)
	return env
}

func (e *testEnv) do(method, path string, authorized bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authorized {
		req.Header.Set("X-API-Key", testKey)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Expected JSON body, got: %s", w.Body.String())
	}
	return body
}

func TestRootAndHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/", false)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if body := decode(t, w); body["service"] != "Alert Comb" {
		t.Errorf("Unexpected service name: %v", body["service"])
	}

	w = env.do(http.MethodGet, "/health", false)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	if body["loaded_configurations"] != float64(len(alert.AllSources)) {
		t.Errorf("Expected %d configurations, got %v", len(alert.AllSources), body["loaded_configurations"])
	}
	if _, ok := body["redis"]; !ok {
		t.Error("Expected redis health to be reported")
	}

	env.alerts.pingErr = errors.New("database is locked")
	if w := env.do(http.MethodGet, "/health", false); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 when the database is down, got %d", w.Code)
	}
}

func TestStatsAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/stats", false)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	status, ok := body["sync_status"].(map[string]any)
	if !ok || status["total_alerts"] != float64(12) {
		t.Errorf("Unexpected sync status: %v", body["sync_status"])
	}

	w = env.do(http.MethodGet, "/metrics", false)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "alert_comb_syncs_total") {
		t.Errorf("Expected metrics output, got %d %s", w.Code, w.Body.String())
	}
}

func TestGetFeed(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/feeds/fda?severity=High", false)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<title>[High] Peanut butter recall</title>") {
		t.Errorf("Expected alert item in feed, got: %s", w.Body.String())
	}
	if w.Header().Get("X-Feed-Items") != "1" {
		t.Errorf("Expected X-Feed-Items 1, got %s", w.Header().Get("X-Feed-Items"))
	}

	filter := env.alerts.filters[0]
	if filter.Source != alert.SourceFDA || filter.Severity != alert.SeverityHigh {
		t.Errorf("Unexpected filter: %+v", filter)
	}

	if w := env.do(http.MethodGet, "/feeds/all", false); w.Code != http.StatusOK {
		t.Errorf("Expected 200 for all feed, got %d", w.Code)
	}
	if env.alerts.filters[1].Source != "" {
		t.Error("Expected no source filter for all feed")
	}

	if w := env.do(http.MethodGet, "/feeds/usda", false); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown source, got %d", w.Code)
	}

	env.alerts.err = errors.New("no such table")
	if w := env.do(http.MethodGet, "/feeds/fda", false); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 on database error, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(http.MethodGet, "/api/sources", false); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sources", nil)
	req.Header.Set("Authorization", "Bearer "+testKey)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with bearer token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/sources", nil)
	req.Header.Set("X-API-Key", "wrong")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong key, got %d", w.Code)
	}
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	configCache := source.NewConfigCache(t.TempDir())
	handler := NewHandler(&mockAlerts{}, &mockStatus{}, mockSyncer{},
		feed.NewGenerator("", "test"), configCache, &mockScheduler{}, "test")
	router := NewServer(handler, "", nil)

	req := httptest.NewRequest(http.MethodGet, "/api/sources", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 when API is disabled, got %d", w.Code)
	}
}

func TestAPIListSources(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/sources", true)
	body := decode(t, w)
	if body["total"] != float64(len(alert.AllSources)) {
		t.Fatalf("Expected %d sources, got %v", len(alert.AllSources), body["total"])
	}

	sources := body["sources"].([]any)
	first := sources[0].(map[string]any)
	if first["name"] != "cdc" {
		t.Errorf("Expected sources sorted by name, got %v first", first["name"])
	}

	for _, s := range sources {
		info := s.(map[string]any)
		if info["name"] == "fda" {
			if _, ok := info["last_sync"]; !ok {
				t.Error("Expected last sync for fda")
			}
		}
	}
}

func TestAPIListAlerts(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/alerts?source=federal-register&severity=Low&q=peanut&since=2024-01-01T00:00:00Z&limit=10", true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	filter := env.alerts.filters[0]
	if filter.Source != alert.SourceFederalRegister || filter.Severity != alert.SeverityLow || filter.Query != "peanut" || filter.Limit != 10 {
		t.Errorf("Unexpected filter: %+v", filter)
	}
	if filter.Since == nil || filter.Since.Year() != 2024 {
		t.Errorf("Expected since filter, got %v", filter.Since)
	}

	env.do(http.MethodGet, "/api/alerts?days=7", true)
	if since := env.alerts.filters[1].Since; since == nil || time.Since(*since) < 6*24*time.Hour {
		t.Errorf("Expected since 7 days ago, got %v", since)
	}

	alerts := decode(t, w)["alerts"].([]any)
	if alerts[0].(map[string]any)["external_id"] != "F-1" {
		t.Errorf("Unexpected alerts: %v", alerts)
	}

	for _, path := range []string{
		"/api/alerts?source=usda",
		"/api/alerts?since=yesterday",
		"/api/alerts?limit=-1",
		"/api/alerts?days=x",
	} {
		if w := env.do(http.MethodGet, path, true); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestAPISyncSource(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/sources/fda/sync?days=30", true)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if len(env.scheduler.queued) != 1 {
		t.Fatalf("Expected 1 queued task, got %d", len(env.scheduler.queued))
	}
	task := env.scheduler.queued[0].(*tasks.SyncSourceTask)
	if task.GetSourceName() != "fda" || task.DaysBack != 30 {
		t.Errorf("Unexpected task: %s %d", task.GetSourceName(), task.DaysBack)
	}

	// Defaults to the configured window
	env.do(http.MethodPost, "/api/sources/FederalRegister/sync", true)
	if task := env.scheduler.queued[1].(*tasks.SyncSourceTask); task.DaysBack != 7 || task.GetSourceName() != "federal_register" {
		t.Errorf("Unexpected default task: %s %d", task.GetSourceName(), task.DaysBack)
	}

	if w := env.do(http.MethodPost, "/api/sources/usda/sync", true); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown source, got %d", w.Code)
	}
	if w := env.do(http.MethodPost, "/api/sources/fda/sync?days=-1", true); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for negative days, got %d", w.Code)
	}

	env.scheduler.err = errors.New("task queue is full")
	if w := env.do(http.MethodPost, "/api/sources/fda/sync", true); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 when the queue is full, got %d", w.Code)
	}
}

func TestAPISyncAll(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/sync", true)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}
	task := env.scheduler.queued[0].(*tasks.SyncAllTask)
	if task.DaysBack != defaultSyncDays {
		t.Errorf("Expected %d days, got %d", defaultSyncDays, task.DaysBack)
	}
}

func TestAPIReloadSource(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(http.MethodPost, "/api/sources/fsis/reload", true); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 without a config file, got %d", w.Code)
	}

	config := "settings:\n  enabled: false\nfilters:\n  - field: title\n    excludes: [\"test\"]\n"
	if err := os.WriteFile(filepath.Join(env.sources, "fsis.yml"), []byte(config), 0o644); err != nil {
		t.Fatal(err)
	}

	w := env.do(http.MethodPost, "/api/sources/fsis/reload", true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	src := decode(t, w)["source"].(map[string]any)
	if src["enabled"] != false || src["filters"] != float64(1) {
		t.Errorf("Unexpected reloaded source: %v", src)
	}
}
