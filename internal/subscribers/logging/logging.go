package logging

import (
	"context"

	"go.uber.org/zap"

	"mobilepro.local/hunt-gateway/internal/events"
)

// Subscriber writes every lifecycle event to the structured log.
type Subscriber struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{logger: logger.Named("events")}
}

func (s *Subscriber) Name() string {
	return "logging"
}

func (s *Subscriber) Handle(_ context.Context, event events.Envelope) error {
	s.logger.Info("event",
		zap.String("event_id", event.EventID),
		zap.String("event_type", string(event.EventType)),
		zap.String("session_id", event.SessionID),
		zap.String("actor_id", event.ActorID),
		zap.String("scenario_id", event.ScenarioID),
		zap.ByteString("payload", event.Payload),
	)
	return nil
}
