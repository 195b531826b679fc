package event

import (
	"context"
	"time"

	"github.com/viant/simos/service/messaging"
)

type Publisher[T any] struct {
	queue messaging.Queue[Event[T]]
}

func NewPublisher[T any](queue messaging.Queue[Event[T]]) *Publisher[T] {
	return &Publisher[T]{queue: queue}
}

// Publish stamps and enqueues the event; a nil publisher discards it
func (p *Publisher[T]) Publish(ctx context.Context, event *Event[T]) error {
	if p == nil {
		return nil
	}
	event.CreatedAt = time.Now()
	return p.queue.Publish(ctx, event)
}

// Next returns the next unacknowledged message; the caller must Ack or Nack it
func (p *Publisher[T]) Next(ctx context.Context) (messaging.Message[Event[T]], error) {
	return p.queue.Consume(ctx)
}

// Consume returns the next event, acknowledging it
func (p *Publisher[T]) Consume(ctx context.Context) (*Event[T], error) {
	msg, err := p.Next(ctx)
	if err != nil || msg == nil {
		return nil, err
	}
	if err = msg.Ack(); err != nil {
		return nil, err
	}
	return msg.T(), nil
}

// DeadLetters returns the number of events that exhausted their retries,
// 0 when the queue keeps no dead letters
func (p *Publisher[T]) DeadLetters() int {
	if p == nil {
		return 0
	}
	if dlq, ok := p.queue.(messaging.DeadLetters); ok {
		return dlq.DLQSize()
	}
	return 0
}
