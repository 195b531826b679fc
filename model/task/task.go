package task

import (
	"sync"
	"time"

	"github.com/viant/simos/internal/clock"
)

// Task represents an admitted unit of work holding one reserved memory range
type Task struct {
	ID         int           `json:"id"`
	Label      string        `json:"label"`
	Size       uint64        `json:"size"`
	Address    uint64        `json:"address"`
	State      State         `json:"state"`
	AdmittedAt time.Time     `json:"admittedAt"`
	StartedAt  *time.Time    `json:"startedAt,omitempty"`
	FinishedAt *time.Time    `json:"finishedAt,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	mux        sync.RWMutex
}

// New creates a ready task owning the range starting at address
func New(id int, label string, size, address uint64) *Task {
	return &Task{
		ID:         id,
		Label:      label,
		Size:       size,
		Address:    address,
		State:      StateReady,
		AdmittedAt: clock.Now(),
	}
}

// Start marks the task as running
func (t *Task) Start() {
	t.mux.Lock()
	defer t.mux.Unlock()
	now := clock.Now()
	t.StartedAt = &now
	t.State = StateRunning
}

// Finish marks the task as finished after running for the given duration
func (t *Task) Finish(duration time.Duration) {
	t.mux.Lock()
	defer t.mux.Unlock()
	now := clock.Now()
	t.FinishedAt = &now
	t.Duration = duration
	t.State = StateFinished
}

// Cancel marks a never dispatched task as cancelled
func (t *Task) Cancel() {
	t.mux.Lock()
	defer t.mux.Unlock()
	now := clock.Now()
	t.FinishedAt = &now
	t.State = StateCancelled
}

// GetState returns the current state
func (t *Task) GetState() State {
	t.mux.RLock()
	defer t.mux.RUnlock()
	return t.State
}

// Snapshot returns a read-only copy for display
func (t *Task) Snapshot() Snapshot {
	t.mux.RLock()
	defer t.mux.RUnlock()
	return Snapshot{
		ID:      t.ID,
		Label:   t.Label,
		Size:    t.Size,
		Address: t.Address,
		State:   t.State,
	}
}

// Clone creates a copy with its own lock so that callers can keep it
// independently of the scheduler.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	t.mux.RLock()
	defer t.mux.RUnlock()
	return &Task{
		ID:         t.ID,
		Label:      t.Label,
		Size:       t.Size,
		Address:    t.Address,
		State:      t.State,
		AdmittedAt: t.AdmittedAt,
		StartedAt:  t.StartedAt,
		FinishedAt: t.FinishedAt,
		Duration:   t.Duration,
	}
}

// Snapshot represents the display view of a task
type Snapshot struct {
	ID      int    `json:"id"`
	Label   string `json:"label"`
	Size    uint64 `json:"size"`
	Address uint64 `json:"address"`
	State   State  `json:"state"`
}
