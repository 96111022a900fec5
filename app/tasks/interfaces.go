package tasks

import (
	"context"

	"github.com/lysyi3m/alert-comb/app/ingest"
	"github.com/lysyi3m/alert-comb/app/source"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API to run syncs in the background.
// Example usage:
//
//	scheduler := NewScheduler(configCache, service, workerCount, interval)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewSyncSourceTask("fda", 30, service))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// Syncer runs sync jobs. Implemented by *ingest.Service.
type Syncer interface {
	SyncSource(ctx context.Context, name string, daysBack int) (ingest.SyncResult, error)
	SyncAllSources(ctx context.Context, daysBack int) []ingest.SyncResult
}

// ConfigProvider supplies the source configurations the scheduler polls.
// Implemented by *source.ConfigCache.
type ConfigProvider interface {
	GetEnabledConfigs() map[string]*source.Config
}
