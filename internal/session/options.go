package session

import (
	"context"
	"time"

	"mobilepro.local/hunt-gateway/internal/events"
)

const (
	defaultExchangeTimeout = 60 * time.Second
	defaultMaxTokens       = 2048
)

// Options tunes every agent call a session makes.
type Options struct {
	Model           string
	MaxTokens       int
	Temperature     float64
	ExchangeTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
	if o.ExchangeTimeout <= 0 {
		o.ExchangeTimeout = defaultExchangeTimeout
	}
	return o
}

// EventSink receives lifecycle events. dispatch.Dispatcher satisfies it.
type EventSink interface {
	Dispatch(ctx context.Context, event events.Envelope)
}
