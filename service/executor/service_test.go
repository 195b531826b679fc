package executor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/simos/model/task"
	"github.com/viant/simos/progress"
)

func TestService_Execute(t *testing.T) {
	testCases := []struct {
		name   string
		config Config
	}{
		{name: "fixed", config: Config{MinDuration: 10 * time.Millisecond, MaxDuration: 10 * time.Millisecond}},
		{name: "range", config: Config{MinDuration: 5 * time.Millisecond, MaxDuration: 25 * time.Millisecond}},
		{name: "inverted range", config: Config{MinDuration: 8 * time.Millisecond, MaxDuration: time.Millisecond}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := New(WithConfig(tc.config), WithSeed(1))
			started := time.Now()
			duration, err := srv.Execute(context.Background(), task.New(1, "editor", 10, 0))
			require.NoError(t, err)
			assert.GreaterOrEqual(t, duration, tc.config.MinDuration)
			if tc.config.MaxDuration > tc.config.MinDuration {
				assert.LessOrEqual(t, duration, tc.config.MaxDuration)
			}
			assert.GreaterOrEqual(t, time.Since(started), duration)
		})
	}
}

func TestService_Heartbeat(t *testing.T) {
	var beats int32
	srv := New(
		WithConfig(Config{MinDuration: 50 * time.Millisecond, MaxDuration: 50 * time.Millisecond, Heartbeat: 10 * time.Millisecond}),
		WithListener(func(aTask *task.Task, elapsed time.Duration) {
			assert.Equal(t, 3, aTask.ID)
			atomic.AddInt32(&beats, 1)
		}),
	)
	tracker := progress.New("run", nil)
	ctx := progress.WithTracker(context.Background(), tracker)
	_, err := srv.Execute(ctx, task.New(3, "compiler", 10, 0))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&beats), int32(2))
	assert.EqualValues(t, atomic.LoadInt32(&beats), tracker.Snapshot().Heartbeats)
}

func TestService_IgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	duration, err := Fixed(15*time.Millisecond).Execute(ctx, task.New(2, "shell", 10, 0))
	require.NoError(t, err)
	assert.Equal(t, 15*time.Millisecond, duration)
}
