package database

import (
	"context"
	"database/sql/driver"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/lysyi3m/alert-comb/app/alert"
)

// arrayConverter lets sqlmock accept the []string arguments pgx binds as
// text[].
type arrayConverter struct{}

func (arrayConverter) ConvertValue(v any) (driver.Value, error) {
	if values, ok := v.([]string); ok {
		return "{" + strings.Join(values, ",") + "}", nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func setupPostgresMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(arrayConverter{}))
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() {
		db.Close()
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unmet expectations: %v", err)
		}
	})

	return NewPostgresStoreWithDB(db), mock
}

func TestPostgresStoreSyncLog(t *testing.T) {
	store, mock := setupPostgresMock(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT start_sync_log($1)")).
		WithArgs("FDA").
		WillReturnRows(sqlmock.NewRows([]string{"start_sync_log"}).AddRow("5b0c6c1e-3f55-4a5e-9d1a-1f4b1c2d3e4f"))

	mock.ExpectExec(regexp.QuoteMeta("SELECT finish_sync_log($1, $2)")).
		WithArgs("5b0c6c1e-3f55-4a5e-9d1a-1f4b1c2d3e4f", "completed").
		WillReturnResult(sqlmock.NewResult(0, 1))

	logID, err := store.StartSyncLog(ctx, alert.SourceFDA)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if logID != "5b0c6c1e-3f55-4a5e-9d1a-1f4b1c2d3e4f" {
		t.Errorf("Unexpected log ID '%s'", logID)
	}

	if err := store.FinishSyncLog(ctx, logID, SyncLogCompleted); err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
}

func TestPostgresStoreStartSyncLogError(t *testing.T) {
	store, mock := setupPostgresMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT start_sync_log($1)")).
		WithArgs("EPA").
		WillReturnError(sqlmock.ErrCancelled)

	if _, err := store.StartSyncLog(context.Background(), alert.SourceEPA); err == nil {
		t.Error("Expected error when start_sync_log fails")
	}
}

func TestPostgresStoreUpsertAlert(t *testing.T) {
	published := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	a := alert.NormalizedAlert{
		ExternalID:    "F-1",
		Source:        alert.SourceFDA,
		Title:         "Recall",
		DatePublished: published,
		DateUpdated:   published,
		Jurisdiction:  "US",
		Locations:     []string{"Nationwide"},
		Category:      "recall",
		Severity:      alert.SeverityHigh,
		Hash:          strings.Repeat("a", 64),
	}

	for _, action := range []UpsertAction{ActionInserted, ActionUpdated, ActionSkipped} {
		t.Run(string(action), func(t *testing.T) {
			store, mock := setupPostgresMock(t)

			mock.ExpectQuery(regexp.QuoteMeta("SELECT upsert_alert($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)")).
				WithArgs("F-1", "FDA", "Recall", "", nil,
					published, published, "US", []string{"Nationwide"},
					[]string{}, "recall", "High", nil, a.Hash).
				WillReturnRows(sqlmock.NewRows([]string{"upsert_alert"}).AddRow(`{"action":"` + string(action) + `","id":"1"}`))

			got, err := store.UpsertAlert(context.Background(), a)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if got != action {
				t.Errorf("Expected %s, got %s", action, got)
			}
		})
	}
}

func TestPostgresStoreUpsertAlertBadResponse(t *testing.T) {
	store, mock := setupPostgresMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT upsert_alert(")).
		WillReturnRows(sqlmock.NewRows([]string{"upsert_alert"}).AddRow("not json"))

	_, err := store.UpsertAlert(context.Background(), alert.NormalizedAlert{Source: alert.SourceCDC, ExternalID: "c-1"})
	if err == nil {
		t.Error("Expected error for malformed upsert_alert response")
	}
}

func TestPostgresUpsertFunctionParameterOrder(t *testing.T) {
	sql, err := migrationFS.ReadFile("migrations/postgres/000003_create_sync_functions.up.sql")
	if err != nil {
		t.Fatalf("Failed to read migration: %v", err)
	}

	body := string(sql)
	start := strings.Index(body, "FUNCTION upsert_alert(")
	if start < 0 {
		t.Fatal("Expected upsert_alert definition in migration")
	}
	signature := body[start:]
	signature = signature[:strings.Index(signature, ")")]

	params := strings.Fields(strings.NewReplacer(",", " ", "(", " ").Replace(signature))
	var names []string
	for _, p := range params {
		if strings.HasPrefix(p, "p_") {
			names = append(names, p)
		}
	}

	if len(names) != 14 {
		t.Fatalf("Expected 14 parameters, got %d: %v", len(names), names)
	}
	if names[0] != "p_external_id" || names[1] != "p_source" || names[2] != "p_title" {
		t.Errorf("Expected (p_external_id, p_source, p_title, ...), got %v", names[:3])
	}
	if names[13] != "p_hash" {
		t.Errorf("Expected p_hash last, got %s", names[13])
	}
}

func TestPostgresStoreGetSummary(t *testing.T) {
	store, mock := setupPostgresMock(t)
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	lastSync := time.Date(2024, 3, 8, 6, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT source, total FROM alerts_summary")).
		WillReturnRows(sqlmock.NewRows([]string{"source", "total"}).
			AddRow("FDA", 12).
			AddRow("EPA", 3))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM alerts WHERE date_published >= $1")).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(finished_at) FROM sync_logs")).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(lastSync))

	summary, err := store.GetSummary(context.Background(), since)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if summary.TotalAlerts != 15 {
		t.Errorf("Expected 15 total alerts, got %d", summary.TotalAlerts)
	}
	if summary.AlertsBySource["EPA"] != 3 {
		t.Errorf("Expected 3 EPA alerts, got %d", summary.AlertsBySource["EPA"])
	}
	if summary.RecentAlerts != 4 {
		t.Errorf("Expected 4 recent alerts, got %d", summary.RecentAlerts)
	}
	if summary.LastSyncTime == nil || !summary.LastSyncTime.Equal(lastSync) {
		t.Errorf("Expected last sync %v, got %v", lastSync, summary.LastSyncTime)
	}
}

func TestPostgresStoreListAlerts(t *testing.T) {
	store, mock := setupPostgresMock(t)
	published := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM alerts WHERE source = $1 AND (title ILIKE $2 OR summary ILIKE $2) ORDER BY date_published DESC, external_id LIMIT $3")).
		WithArgs("FSIS", "%chicken%", 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "source", "external_id", "title", "summary", "link_url",
			"date_published", "date_updated", "jurisdiction", "locations",
			"product_types", "category", "severity", "hash", "created_at", "updated_at",
		}).AddRow(
			"1", "FSIS", "fsis-1", "Chicken recall", "", "https://example.com",
			published, published, "US", `["Texas"]`,
			`["Food Safety"]`, "recall", "High", strings.Repeat("a", 64), published, published,
		))

	alerts, err := store.ListAlerts(context.Background(), AlertFilter{Source: alert.SourceFSIS, Query: "chicken", Limit: 10})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Source != alert.SourceFSIS || alerts[0].Locations[0] != "Texas" {
		t.Errorf("Unexpected alert: %+v", alerts[0])
	}
}
