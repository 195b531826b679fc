package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/simos/service/messaging"
)

type testPayload struct {
	TaskID int
	Label  string
}

func TestQueue(t *testing.T) {
	queue := NewQueue[testPayload](DefaultConfig())
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, queue.Publish(ctx, &testPayload{TaskID: i, Label: fmt.Sprintf("p%d", i)}))
	}
	assert.Equal(t, 3, queue.Size())

	for i := 1; i <= 3; i++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, message.T().TaskID)
		assert.NoError(t, message.Ack())
		assert.Error(t, message.Ack())
	}
	assert.Equal(t, 0, queue.Size())
}

func TestQueue_Full(t *testing.T) {
	config := DefaultConfig()
	config.QueueBuffer = 1
	queue := NewQueue[testPayload](config)
	ctx := context.Background()

	require.NoError(t, queue.Publish(ctx, &testPayload{TaskID: 1}))
	assert.ErrorIs(t, queue.Publish(ctx, &testPayload{TaskID: 2}), messaging.ErrQueueFull)

	config.Blocking = true
	blocking := NewQueue[testPayload](config)
	require.NoError(t, blocking.Publish(ctx, &testPayload{TaskID: 1}))
	timeoutCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, blocking.Publish(timeoutCtx, &testPayload{TaskID: 2}), context.DeadlineExceeded)
}

func TestQueue_Retries(t *testing.T) {
	config := DefaultConfig()
	config.MaxRetries = 1
	config.RetryDelay = 5 * time.Millisecond
	queue := NewQueue[testPayload](config)
	ctx := context.Background()

	require.NoError(t, queue.Publish(ctx, &testPayload{TaskID: 7}))
	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	require.NoError(t, message.Nack(nil))

	timeoutCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	message, err = queue.Consume(timeoutCtx)
	require.NoError(t, err)
	assert.Equal(t, 7, message.T().TaskID)
	require.NoError(t, message.Nack(nil))

	assert.Equal(t, 1, queue.DLQSize())
	assert.Equal(t, 0, queue.Size())
}

func TestQueue_Concurrency(t *testing.T) {
	queue := NewQueue[testPayload](DefaultConfig())
	ctx := context.Background()
	producers, perProducer := 8, 25

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				assert.NoError(t, queue.Publish(ctx, &testPayload{TaskID: id*perProducer + j}))
			}
		}(i)
	}
	wg.Wait()

	seen := map[int]bool{}
	for i := 0; i < producers*perProducer; i++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		seen[message.T().TaskID] = true
	}
	assert.Len(t, seen, producers*perProducer)
}

func TestQueue_ContextCancellation(t *testing.T) {
	config := DefaultConfig()
	config.QueueBuffer = 1
	config.Blocking = true
	queue := NewQueue[testPayload](config)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// a cancelled context does not reject a message that fits
	require.NoError(t, queue.Publish(ctx, &testPayload{TaskID: 1}))
	assert.ErrorIs(t, queue.Publish(ctx, &testPayload{TaskID: 2}), context.Canceled)

	message, err := queue.Consume(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, message.ID())
	assert.Equal(t, 1, message.T().TaskID)

	timeoutCtx, cancelTimeout := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelTimeout()
	_, err = queue.Consume(timeoutCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
