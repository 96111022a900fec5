package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/alert-comb/app/ingest"
)

type TaskType string

const (
	TaskTypeSyncSource TaskType = "sync_source"
	TaskTypeSyncAll    TaskType = "sync_all"
)

// maxAttempts bounds how often each kind of sync runs before the scheduler
// gives up. A full sync runs once; the sources it covers come round again
// on their own refresh interval.
var maxAttempts = map[TaskType]int{
	TaskTypeSyncSource: 4,
	TaskTypeSyncAll:    1,
}

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetSourceName() string
	GetAttempts() int
	GetMaxAttempts() int
	Start()
	Fail(err error) bool
	GetDuration() time.Duration
}

// Task carries the scheduling state shared by sync tasks: the window it
// syncs and the outcome of each attempt.
type Task struct {
	ID         string
	Type       TaskType
	SourceName string
	DaysBack   int
	Attempts   int
	LastError  error
	StartedAt  *time.Time
}

func NewTask(taskType TaskType, sourceName string, daysBack int) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		SourceName: sourceName,
		DaysBack:   daysBack,
	}
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetSourceName() string {
	return t.SourceName
}

func (t *Task) GetAttempts() int {
	return t.Attempts
}

func (t *Task) GetMaxAttempts() int {
	return maxAttempts[t.Type]
}

// Start begins a new attempt.
func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
	t.Attempts++
}

// Fail records the error of the current attempt and reports whether the
// sync should be attempted again.
func (t *Task) Fail(err error) bool {
	t.LastError = err
	if permanent(err) {
		return false
	}
	return t.Attempts < t.GetMaxAttempts()
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

// permanent reports errors another attempt cannot fix: an unknown source
// name, or a scheduler that is shutting down.
func permanent(err error) bool {
	return errors.Is(err, ingest.ErrUnknownSource) || errors.Is(err, context.Canceled)
}
