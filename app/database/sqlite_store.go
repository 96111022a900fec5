package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/lysyi3m/alert-comb/app/alert"
)

// SQLiteStore keeps alerts in a local SQLite file and applies the upsert
// rules itself.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:alert-comb.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Migrate() (uint, bool, error) {
	return RunMigrations(s.db, DriverSQLite)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) StartSyncLog(ctx context.Context, source alert.Source) (string, error) {
	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_logs (id, source, status, started_at) VALUES (?, ?, ?, ?)`,
		id, string(source), string(SyncLogRunning), formatTime(time.Now()))
	if err != nil {
		return "", fmt.Errorf("failed to start sync log: %w", err)
	}

	return id, nil
}

func (s *SQLiteStore) FinishSyncLog(ctx context.Context, logID string, status SyncLogStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_logs SET status = ?, finished_at = ? WHERE id = ?`,
		string(status), formatTime(time.Now()), logID)
	if err != nil {
		return fmt.Errorf("failed to finish sync log: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish sync log: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("sync log %s not found", logID)
	}

	return nil
}

func (s *SQLiteStore) UpsertAlert(ctx context.Context, a alert.NormalizedAlert) (UpsertAction, error) {
	locations, err := encodeList(a.Locations)
	if err != nil {
		return "", err
	}
	productTypes, err := encodeList(a.ProductTypes)
	if err != nil {
		return "", err
	}
	raw, err := encodeRaw(a.Raw)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id, hash string
	err = tx.QueryRowContext(ctx,
		`SELECT id, hash FROM alerts WHERE source = ? AND external_id = ?`,
		string(a.Source), a.ExternalID).Scan(&id, &hash)

	var action UpsertAction
	switch {
	case errors.Is(err, sql.ErrNoRows):
		action = ActionInserted
		stamp := formatTime(time.Now())
		_, err = tx.ExecContext(ctx, `
			INSERT INTO alerts (
				id, source, external_id, title, summary, link_url,
				date_published, date_updated, jurisdiction, locations,
				product_types, category, severity, raw, hash,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.NewString(), string(a.Source), a.ExternalID, a.Title, a.Summary, nullString(a.LinkURL),
			formatTime(a.DatePublished), formatTime(a.DateUpdated), a.Jurisdiction, locations,
			productTypes, a.Category, string(a.Severity), raw, a.Hash,
			stamp, stamp)
	case err != nil:
		return "", fmt.Errorf("failed to look up alert: %w", err)
	case hash == a.Hash:
		return ActionSkipped, nil
	default:
		action = ActionUpdated
		_, err = tx.ExecContext(ctx, `
			UPDATE alerts SET
				title = ?, summary = ?, link_url = ?,
				date_published = ?, date_updated = ?, jurisdiction = ?,
				locations = ?, product_types = ?, category = ?,
				severity = ?, raw = ?, hash = ?, updated_at = ?
			WHERE id = ?
		`, a.Title, a.Summary, nullString(a.LinkURL),
			formatTime(a.DatePublished), formatTime(a.DateUpdated), a.Jurisdiction,
			locations, productTypes, a.Category,
			string(a.Severity), raw, a.Hash, formatTime(time.Now()),
			id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to write alert %s/%s (%s): %w", a.Source, a.ExternalID, action, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit alert: %w", err)
	}

	return action, nil
}

func (s *SQLiteStore) GetSummary(ctx context.Context, recentSince time.Time) (*Summary, error) {
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
		`SELECT COUNT(*) FROM alerts WHERE date_published >= ?`,
		formatTime(recentSince)).Scan(&summary.RecentAlerts)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent alerts: %w", err)
	}

	var lastSync sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT MAX(finished_at) FROM sync_logs WHERE status IN (?, ?)`,
		string(SyncLogCompleted), string(SyncLogPartial)).Scan(&lastSync)
	if err != nil {
		return nil, fmt.Errorf("failed to read last sync time: %w", err)
	}
	if lastSync.Valid {
		t, err := parseTime(lastSync.String)
		if err != nil {
			return nil, fmt.Errorf("invalid sync log timestamp '%s': %w", lastSync.String, err)
		}
		summary.LastSyncTime = &t
	}

	return summary, nil
}

func (s *SQLiteStore) ListAlerts(ctx context.Context, filter AlertFilter) ([]StoredAlert, error) {
	tail, args := sqliteDialect.listQuery(filter)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, external_id, title, summary, COALESCE(link_url, ''),
		       date_published, date_updated, jurisdiction, locations,
		       product_types, category, severity, hash, created_at, updated_at
		FROM alerts`+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []StoredAlert{}
	for rows.Next() {
		var (
			sa                                       StoredAlert
			source, severity, locations, productType string
			published, updated, created, modified    string
		)

		err := rows.Scan(
			&sa.ID, &source, &sa.ExternalID, &sa.Title, &sa.Summary, &sa.LinkURL,
			&published, &updated, &sa.Jurisdiction, &locations,
			&productType, &sa.Category, &severity, &sa.Hash, &created, &modified,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}

		sa.Source = alert.Source(source)
		sa.Severity = alert.Severity(severity)

		for _, field := range []struct {
			dst *time.Time
			src string
		}{
			{&sa.DatePublished, published},
			{&sa.DateUpdated, updated},
			{&sa.CreatedAt, created},
			{&sa.UpdatedAt, modified},
		} {
			if *field.dst, err = parseTime(field.src); err != nil {
				return nil, fmt.Errorf("invalid timestamp '%s' for alert %s: %w", field.src, sa.ID, err)
			}
		}

		if sa.Locations, err = decodeList(locations); err != nil {
			return nil, err
		}
		if sa.ProductTypes, err = decodeList(productType); err != nil {
			return nil, err
		}

		alerts = append(alerts, sa)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rows: %w", err)
	}

	return alerts, nil
}
