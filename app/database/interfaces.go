package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lysyi3m/alert-comb/app/alert"
)

type Store interface {
	StartSyncLog(ctx context.Context, source alert.Source) (string, error)
	FinishSyncLog(ctx context.Context, logID string, status SyncLogStatus) error

	UpsertAlert(ctx context.Context, a alert.NormalizedAlert) (UpsertAction, error)

	GetSummary(ctx context.Context, recentSince time.Time) (*Summary, error)
	ListAlerts(ctx context.Context, filter AlertFilter) ([]StoredAlert, error)

	Migrate() (uint, bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open returns the store for the named driver.
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case DriverSQLite:
		return NewSQLiteStore(dsn)
	case DriverPostgres:
		return NewPostgresStore(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver '%s'", driver)
	}
}
