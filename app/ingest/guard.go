package ingest

import (
	"context"
	"sync"

	"github.com/lysyi3m/alert-comb/app/alert"
	"github.com/lysyi3m/alert-comb/app/database"
)

// LocalGuard rejects overlapping runs within one process.
type LocalGuard struct {
	mu      sync.Mutex
	running map[alert.Source]bool
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{running: make(map[alert.Source]bool)}
}

func (g *LocalGuard) Acquire(ctx context.Context, source alert.Source) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.running[source] {
		return nil, ErrSyncInProgress
	}
	g.running[source] = true

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.running, source)
			g.mu.Unlock()
		})
	}, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, database.UpsertAction, alert.NormalizedAlert) error {
	return nil
}

type nopRecorder struct{}

func (nopRecorder) ObserveSync(SyncResult) {}
