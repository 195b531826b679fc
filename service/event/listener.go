package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/viant/simos/service/messaging"
)

// Handler processes one event; an error (or panic) nacks the message so the
// queue can redeliver it or move it to the dead-letter queue
type Handler[T any] func(*Event[T]) error

// Listener drains a publisher on its own goroutine and hands every event to handler
type Listener[T any] struct {
	publisher *Publisher[T]
	handler   Handler[T]
	cancel    context.CancelFunc
	done      chan struct{}
	log       *logrus.Entry
}

func NewListener[T any](publisher *Publisher[T], handler Handler[T]) *Listener[T] {
	return &Listener[T]{
		publisher: publisher,
		handler:   handler,
		log:       logrus.StandardLogger().WithField("type", "event/listener"),
	}
}

// Start begins consuming until Stop is called or ctx is done
func (l *Listener[T]) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	go func() {
		defer close(l.done)
		for {
			msg, err := l.publisher.Next(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				l.log.WithError(err).Warn("failed to consume event")
				continue
			}
			if msg != nil {
				l.deliver(msg)
			}
		}
	}()
}

func (l *Listener[T]) deliver(msg messaging.Message[Event[T]]) {
	if err := l.handle(msg.T()); err != nil {
		l.log.WithError(err).WithField("message", msg.ID()).Warn("event handler failed")
		if err = msg.Nack(err); err != nil {
			l.log.WithError(err).WithField("message", msg.ID()).Warn("failed to nack event")
		}
		return
	}
	if err := msg.Ack(); err != nil {
		l.log.WithError(err).WithField("message", msg.ID()).Warn("failed to ack event")
	}
}

func (l *Listener[T]) handle(event *Event[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panic: %v", r)
		}
	}()
	return l.handler(event)
}

// Stop cancels consumption and waits for the goroutine to exit
func (l *Listener[T]) Stop() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
}
