package progress

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_Update(t *testing.T) {
	var last Progress
	tracker := New("run-1", func(p Progress) { last = p })
	tracker.Update(Delta{Admitted: 1, Queued: 1})
	tracker.Update(Delta{Queued: -1, Running: 1})
	tracker.Update(Delta{Running: -1, Finished: 1})

	snapshot := tracker.Snapshot()
	assert.Equal(t, "run-1", snapshot.RunID)
	assert.Equal(t, 1, snapshot.AdmittedTasks)
	assert.Equal(t, 0, snapshot.QueuedTasks)
	assert.Equal(t, 0, snapshot.RunningTasks)
	assert.Equal(t, 1, snapshot.FinishedTasks)
	assert.Equal(t, 1, last.FinishedTasks)
}

func TestProgress_Concurrent(t *testing.T) {
	tracker := New("run-2", nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Update(Delta{Admitted: 1})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, tracker.Snapshot().AdmittedTasks)
}

func TestProgress_Context(t *testing.T) {
	var nilTracker *Progress
	nilTracker.Update(Delta{Admitted: 1})
	assert.Equal(t, Progress{}, nilTracker.Snapshot())

	UpdateCtx(context.Background(), Delta{Admitted: 1})

	tracker := New("run-3", nil)
	ctx := WithTracker(context.Background(), tracker)
	UpdateCtx(ctx, Delta{Rejected: 2})
	actual, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, 2, actual.Snapshot().RejectedTasks)
}
