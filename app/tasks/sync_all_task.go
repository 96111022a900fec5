package tasks

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/alert-comb/app/database"
)

// SyncAllTask syncs every core source in a single attempt.
type SyncAllTask struct {
	Task
	syncer Syncer
}

func NewSyncAllTask(daysBack int, syncer Syncer) *SyncAllTask {
	return &SyncAllTask{
		Task:   NewTask(TaskTypeSyncAll, "all", daysBack),
		syncer: syncer,
	}
}

func (t *SyncAllTask) Execute(ctx context.Context) error {
	results := t.syncer.SyncAllSources(ctx, t.DaysBack)

	failed := 0
	for _, r := range results {
		if r.Status == database.SyncLogFailed {
			failed++
		}
	}

	slog.Info("Sync all task finished", "sources", len(results), "failed", failed, "duration", t.GetDuration().String())
	return nil
}
