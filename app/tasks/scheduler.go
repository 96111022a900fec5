package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const queueSize = 300

type Scheduler struct {
	configs     ConfigProvider
	syncer      Syncer
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	mu      sync.Mutex
	nextRun map[string]time.Time
}

func NewScheduler(configs ConfigProvider, syncer Syncer, workerCount int, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		configs:     configs,
		syncer:      syncer,
		interval:    interval,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, queueSize),
		nextRun:     make(map[string]time.Time),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueDueTasks(time.Now())

		for {
			select {
			case <-s.ctx.Done():
				return
			case now := <-ticker.C:
				s.enqueueDueTasks(now)
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

// enqueueDueTasks queues a sync for every enabled source whose refresh
// interval has elapsed.
func (s *Scheduler) enqueueDueTasks(now time.Time) {
	sourceConfigs := s.configs.GetEnabledConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No enabled source configurations found")
		return
	}

	names := make([]string, 0, len(sourceConfigs))
	for name := range sourceConfigs {
		names = append(names, name)
	}
	sort.Strings(names)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		sourceConfig := sourceConfigs[name]

		if next, ok := s.nextRun[name]; ok && next.After(now) {
			slog.Debug("Source not due for refresh yet", "source", name, "next_run_at", next)
			continue
		}

		task := NewSyncSourceTask(name, sourceConfig.Settings.DaysBack, s.syncer)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue SyncSourceTask", "source", name, "error", err)
			continue
		}

		s.nextRun[name] = now.Add(time.Duration(sourceConfig.Settings.RefreshInterval) * time.Second)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := runTask(taskCtx, task)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "attempt", task.GetAttempts(), "error", err)

	if !task.Fail(err) {
		slog.Error("Task abandoned", "type", string(task.GetType()), "id", task.GetID(), "source", task.GetSourceName(), "attempts", task.GetAttempts(), "max_attempts", task.GetMaxAttempts(), "last_error", err)
		return
	}

	delay := retryDelay(task.GetAttempts())
	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSourceName(), "attempt", task.GetAttempts(), "max_attempts", task.GetMaxAttempts(), "delay", delay.String())

	go func() {
		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-time.After(delay):
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "attempt", task.GetAttempts(), "error", retryErr)
			}
		}
	}()
}

// runTask turns a panicking task into a failed attempt so the worker
// survives it.
func runTask(ctx context.Context, task TaskInterface) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.GetID(), r)
		}
	}()

	return task.Execute(ctx)
}

// retryDelay doubles from one second per failed attempt, capped at 30
// seconds.
func retryDelay(attempts int) time.Duration {
	delay := time.Duration(1<<uint(attempts-1)) * time.Second
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return delay
}
