// Package dispatch fans lifecycle events out to subscribers.
package dispatch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"mobilepro.local/hunt-gateway/internal/events"
	"mobilepro.local/hunt-gateway/internal/subscribers"
)

const (
	defaultAttempts = 3
	defaultBackoff  = 150 * time.Millisecond
)

type Option func(*Dispatcher)

// WithRetry sets how many times a failing subscriber is tried per event and
// the pause between tries.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(d *Dispatcher) {
		if attempts > 0 {
			d.attempts = attempts
		}
		if backoff >= 0 {
			d.backoff = backoff
		}
	}
}

type Dispatcher struct {
	logger      *zap.Logger
	subscribers []subscribers.Subscriber
	attempts    int
	backoff     time.Duration
	inflight    sync.WaitGroup
}

func New(logger *zap.Logger, subs []subscribers.Subscriber, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		logger:      logger,
		subscribers: subs,
		attempts:    defaultAttempts,
		backoff:     defaultBackoff,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Dispatch hands event to every subscriber on its own goroutine and returns
// at once. Delivery outlives ctx so a finished request does not cut a
// webhook short. Ordered subscribers are called inline instead, so events
// from one emitter reach them in the order they were dispatched.
func (d *Dispatcher) Dispatch(ctx context.Context, event events.Envelope) {
	if d == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, sub := range d.subscribers {
		if _, ok := sub.(subscribers.Ordered); ok {
			if err := sub.Handle(ctx, event); err != nil {
				d.logger.Error("ordered subscriber failed",
					zap.String("subscriber", sub.Name()),
					zap.String("event_id", event.EventID),
					zap.String("event_type", string(event.EventType)),
					zap.Error(err),
				)
			}
			continue
		}
		d.inflight.Add(1)
		go func() {
			defer d.inflight.Done()
			d.deliver(ctx, sub, event)
		}()
	}
}

// Drain blocks until every delivery started so far has finished or ctx ends.
// The server calls it on shutdown so submitted transcripts still reach their
// webhooks.
func (d *Dispatcher) Drain(ctx context.Context) error {
	if d == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		d.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) deliver(ctx context.Context, sub subscribers.Subscriber, event events.Envelope) {
	log := d.logger.With(
		zap.String("subscriber", sub.Name()),
		zap.String("event_id", event.EventID),
		zap.String("event_type", string(event.EventType)),
	)
	for attempt := 1; ; attempt++ {
		err := sub.Handle(ctx, event)
		if err == nil {
			return
		}
		if attempt >= d.attempts {
			log.Error("subscriber delivery abandoned", zap.Int("attempts", attempt), zap.Error(err))
			return
		}
		log.Warn("subscriber delivery failed", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(d.backoff)
	}
}
