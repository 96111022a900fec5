package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/lysyi3m/alert-comb/app/alert"
)

// PostgresStore delegates sync logs and upserts to the database procedures
// start_sync_log, finish_sync_log and upsert_alert.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/alert_comb?sslmode=disable"
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return NewPostgresStoreWithDB(db), nil
}

func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Migrate() (uint, bool, error) {
	return RunMigrations(s.db, DriverPostgres)
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) StartSyncLog(ctx context.Context, source alert.Source) (string, error) {
	var id string
	if err := s.db.QueryRowContext(ctx, `SELECT start_sync_log($1)`, string(source)).Scan(&id); err != nil {
		return "", fmt.Errorf("failed to start sync log: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) FinishSyncLog(ctx context.Context, logID string, status SyncLogStatus) error {
	if _, err := s.db.ExecContext(ctx, `SELECT finish_sync_log($1, $2)`, logID, string(status)); err != nil {
		return fmt.Errorf("failed to finish sync log: %w", err)
	}
	return nil
}

type upsertResponse struct {
	Action string `json:"action"`
	ID     string `json:"id"`
}

func (s *PostgresStore) UpsertAlert(ctx context.Context, a alert.NormalizedAlert) (UpsertAction, error) {
	raw, err := encodeRaw(a.Raw)
	if err != nil {
		return "", err
	}

	locations := a.Locations
	if locations == nil {
		locations = []string{}
	}
	productTypes := a.ProductTypes
	if productTypes == nil {
		productTypes = []string{}
	}

	var payload []byte
	err = s.db.QueryRowContext(ctx,
		`SELECT upsert_alert($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ExternalID, string(a.Source), a.Title, a.Summary, nullString(a.LinkURL),
		a.DatePublished.UTC(), a.DateUpdated.UTC(), a.Jurisdiction, locations,
		productTypes, a.Category, string(a.Severity), raw, a.Hash,
	).Scan(&payload)
	if err != nil {
		return "", fmt.Errorf("failed to upsert alert %s/%s: %w", a.Source, a.ExternalID, err)
	}

	var resp upsertResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", fmt.Errorf("invalid upsert_alert response '%s': %w", payload, err)
	}

	return UpsertAction(resp.Action), nil
}

func (s *PostgresStore) GetSummary(ctx context.Context, recentSince time.Time) (*Summary, error) {
	summary := &Summary{AlertsBySource: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT source, total FROM alerts_summary`)
	if err != nil {
		return nil, fmt.Errorf("failed to read alerts summary: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var source string
		var total int
		if err := rows.Scan(&source, &total); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		summary.AlertsBySource[source] = total
		summary.TotalAlerts += total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summary rows: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts WHERE date_published >= $1`,
		recentSince.UTC()).Scan(&summary.RecentAlerts)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent alerts: %w", err)
	}

	var lastSync sql.NullTime
	err = s.db.QueryRowContext(ctx,
		`SELECT MAX(finished_at) FROM sync_logs WHERE status IN ('completed', 'partial')`).Scan(&lastSync)
	if err != nil {
		return nil, fmt.Errorf("failed to read last sync time: %w", err)
	}
	if lastSync.Valid {
		t := lastSync.Time.UTC()
		summary.LastSyncTime = &t
	}

	return summary, nil
}

func (s *PostgresStore) ListAlerts(ctx context.Context, filter AlertFilter) ([]StoredAlert, error) {
	tail, args := postgresDialect.listQuery(filter)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, external_id, title, summary, COALESCE(link_url, ''),
		       date_published, date_updated, jurisdiction, to_json(locations)::text,
		       to_json(product_types)::text, category, severity, hash, created_at, updated_at
		FROM alerts`+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []StoredAlert{}
	for rows.Next() {
		var (
			sa                                        StoredAlert
			source, severity, locations, productTypes string
		)

		err := rows.Scan(
			&sa.ID, &source, &sa.ExternalID, &sa.Title, &sa.Summary, &sa.LinkURL,
			&sa.DatePublished, &sa.DateUpdated, &sa.Jurisdiction, &locations,
			&productTypes, &sa.Category, &severity, &sa.Hash, &sa.CreatedAt, &sa.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}

		sa.Source = alert.Source(source)
		sa.Severity = alert.Severity(severity)

		if sa.Locations, err = decodeList(locations); err != nil {
			return nil, err
		}
		if sa.ProductTypes, err = decodeList(productTypes); err != nil {
			return nil, err
		}

		alerts = append(alerts, sa)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rows: %w", err)
	}

	return alerts, nil
}
