package progress

import (
	"context"
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the scheduler.
// The fields are signed and therefore can be either positive (increment) or
// negative (decrement).
type Delta struct {
	Admitted  int
	Rejected  int
	Queued    int
	Running   int
	Finished  int
	Cancelled int
	// Heartbeats counts liveness reports of executing tasks
	Heartbeats int
}

// Progress keeps aggregated task counters for one scheduler run.  It is safe
// for concurrent use.
type Progress struct {
	RunID     string
	StartedAt time.Time

	AdmittedTasks  int
	RejectedTasks  int
	QueuedTasks    int
	RunningTasks   int
	FinishedTasks  int
	CancelledTasks int
	Heartbeats     int

	sync.Mutex
	onChange func(Progress)
}

// New creates a tracker for the given run
func New(runID string, onChange func(Progress)) *Progress {
	return &Progress{RunID: runID, StartedAt: time.Now(), onChange: onChange}
}

// Update applies the supplied delta. The onChange callback, if any, is
// invoked with a copy outside the critical section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.Lock()
	p.AdmittedTasks += d.Admitted
	p.RejectedTasks += d.Rejected
	p.QueuedTasks += d.Queued
	p.RunningTasks += d.Running
	p.FinishedTasks += d.Finished
	p.CancelledTasks += d.Cancelled
	p.Heartbeats += d.Heartbeats
	snapshot := p.copy()
	cb := p.onChange
	p.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of the tracker suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return p.copy()
}

func (p *Progress) copy() Progress {
	return Progress{
		RunID:          p.RunID,
		StartedAt:      p.StartedAt,
		AdmittedTasks:  p.AdmittedTasks,
		RejectedTasks:  p.RejectedTasks,
		QueuedTasks:    p.QueuedTasks,
		RunningTasks:   p.RunningTasks,
		FinishedTasks:  p.FinishedTasks,
		CancelledTasks: p.CancelledTasks,
		Heartbeats:     p.Heartbeats,
	}
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithTracker embeds tracker in a derived context
func WithTracker(ctx context.Context, tracker *Progress) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, trackerKey, tracker)
}

// FromContext extracts the Progress tracker from ctx.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// UpdateCtx looks up the tracker in ctx (if any) and applies the delta.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
