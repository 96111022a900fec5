package database

import (
	"time"

	"github.com/lysyi3m/alert-comb/app/alert"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// UpsertAction is what the store did with an alert.
type UpsertAction string

const (
	ActionInserted UpsertAction = "inserted"
	ActionUpdated  UpsertAction = "updated"
	ActionSkipped  UpsertAction = "skipped"
)

type SyncLogStatus string

const (
	SyncLogRunning   SyncLogStatus = "running"
	SyncLogCompleted SyncLogStatus = "completed"
	SyncLogPartial   SyncLogStatus = "partial"
	SyncLogFailed    SyncLogStatus = "failed"
)

type StoredAlert struct {
	alert.NormalizedAlert

	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AlertFilter struct {
	Source   alert.Source
	Severity alert.Severity
	Category string
	Query    string // matched against title and summary
	Since    *time.Time
	Limit    int
}

type Summary struct {
	TotalAlerts    int
	AlertsBySource map[string]int
	RecentAlerts   int
	LastSyncTime   *time.Time // most recent completed or partial sync
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (f AlertFilter) limit() int {
	switch {
	case f.Limit <= 0:
		return defaultListLimit
	case f.Limit > maxListLimit:
		return maxListLimit
	default:
		return f.Limit
	}
}
