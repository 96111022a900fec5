package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/alert-comb/app/database"
)

type SyncSourceTask struct {
	Task
	syncer Syncer
}

func NewSyncSourceTask(sourceName string, daysBack int, syncer Syncer) *SyncSourceTask {
	return &SyncSourceTask{
		Task:   NewTask(TaskTypeSyncSource, sourceName, daysBack),
		syncer: syncer,
	}
}

// Execute runs one sync. Only a failed run is an error; partial runs
// already stored what they could.
func (t *SyncSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.syncer.SyncSource(ctx, t.SourceName, t.DaysBack)
	if err != nil {
		return err
	}

	if result.Status == database.SyncLogFailed {
		return fmt.Errorf("sync of %s failed: %s", t.SourceName, firstError(result.Errors))
	}

	slog.Debug("Sync task finished",
		"source", t.SourceName,
		"status", string(result.Status),
		"inserted", result.AlertsInserted,
		"updated", result.AlertsUpdated,
		"skipped", result.AlertsSkipped,
		"duration", t.GetDuration().String())

	return nil
}

func firstError(errs []string) string {
	if len(errs) == 0 {
		return "no error reported"
	}
	return errs[0]
}
