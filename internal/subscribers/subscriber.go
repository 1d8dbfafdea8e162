// Package subscribers defines the consumer side of lifecycle events.
package subscribers

import (
	"context"

	"mobilepro.local/hunt-gateway/internal/events"
)

type Subscriber interface {
	Name() string
	Handle(context.Context, events.Envelope) error
}

// Ordered marks a subscriber that must see a session's events in emit order.
// The dispatcher calls it on the emitting goroutine, once, with no retry, so
// Handle must not block.
type Ordered interface {
	Subscriber
	Ordered()
}
