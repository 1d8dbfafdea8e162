package logging

import (
	"context"
	"encoding/json"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"mobilepro.local/hunt-gateway/internal/events"
)

func TestSubscriberHandle(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := New(zap.New(core))

	event := events.Envelope{
		EventID:   "evt_1",
		EventType: events.TypeGateOpened,
		SessionID: "ses_1",
		Payload:   json.RawMessage(`{"open":true}`),
	}
	if err := s.Handle(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name() != "logging" {
		t.Fatalf("unexpected name: %s", s.Name())
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["event_id"] != "evt_1" {
		t.Fatalf("expected event id field, got %v", fields["event_id"])
	}
	if fields["event_type"] != string(events.TypeGateOpened) {
		t.Fatalf("unexpected event type field: %v", fields["event_type"])
	}
	if entries[0].LoggerName != "events" {
		t.Fatalf("unexpected logger name: %s", entries[0].LoggerName)
	}
}

func TestNewToleratesNilLogger(t *testing.T) {
	s := New(nil)
	if err := s.Handle(context.Background(), events.Envelope{EventID: "evt_2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
