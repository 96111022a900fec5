package api

import (
	"context"

	"github.com/lysyi3m/alert-comb/app/alert"
	"github.com/lysyi3m/alert-comb/app/database"
	"github.com/lysyi3m/alert-comb/app/feed"
	"github.com/lysyi3m/alert-comb/app/ingest"
	"github.com/lysyi3m/alert-comb/app/source"
	"github.com/lysyi3m/alert-comb/app/tasks"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, alerts []database.StoredAlert) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

// AlertReader is the read side of the alert store.
type AlertReader interface {
	ListAlerts(ctx context.Context, filter database.AlertFilter) ([]database.StoredAlert, error)
	Ping(ctx context.Context) error
}

type StatusProvider interface {
	GetSyncStatus(ctx context.Context) (*ingest.SyncStatus, error)
	LastResults() map[alert.Source]ingest.SyncResult
}

type ConfigStore interface {
	GetConfigs() map[string]*source.Config
	GetConfig(name string) (*source.Config, error)
	LoadConfig(name string) (*source.Config, error)
	GetConfigCount() int
}

// HealthReporter is an optional dependency reported under /health.
type HealthReporter interface {
	Health(ctx context.Context) map[string]any
}

var (
	_ StatusProvider = (*ingest.Service)(nil)
	_ ConfigStore    = (*source.ConfigCache)(nil)
)

type Handler struct {
	alerts      AlertReader
	status      StatusProvider
	syncer      tasks.Syncer
	generator   GeneratorInterface
	configCache ConfigStore
	scheduler   tasks.TaskSchedulerInterface
	reporters   map[string]HealthReporter
	version     string
}
