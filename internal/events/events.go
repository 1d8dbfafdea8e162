// Package events defines the lifecycle envelope published by simulation and
// authoring sessions.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"mobilepro.local/hunt-gateway/internal/billing"
	"mobilepro.local/hunt-gateway/internal/ids"
)

const VersionV1 = "v1"

type Type string

const (
	TypeSessionStarted      Type = "session.started"
	TypeSessionDiscarded    Type = "session.discarded"
	TypeExchangeCompleted   Type = "exchange.completed"
	TypeExchangeFailed      Type = "exchange.failed"
	TypeGridChanged         Type = "grid.changed"
	TypeModeSwitched        Type = "mode.switched"
	TypeGateOpened          Type = "gate.opened"
	TypeGateReset           Type = "gate.reset"
	TypeTranscriptSubmitted Type = "transcript.submitted"
	TypeScenarioAuthored    Type = "scenario.authored"
)

var knownTypes = []Type{
	TypeSessionStarted, TypeSessionDiscarded, TypeExchangeCompleted, TypeExchangeFailed,
	TypeGridChanged, TypeModeSwitched, TypeGateOpened, TypeGateReset,
	TypeTranscriptSubmitted, TypeScenarioAuthored,
}

// ParseType accepts one of the published event type names.
func ParseType(name string) (Type, error) {
	for _, t := range knownTypes {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown event type %q", name)
}

type Envelope struct {
	Version    string          `json:"version"`
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	EventType  Type            `json:"event_type"`
	SessionID  string          `json:"session_id"`
	ActorID    string          `json:"actor_id,omitempty"`
	ScenarioID string          `json:"scenario_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

// New builds an envelope with a fresh id and payload encoded as JSON.
func New(eventType Type, sessionID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		Version:    VersionV1,
		EventID:    ids.Prefixed("evt_"),
		OccurredAt: time.Now().UTC(),
		EventType:  eventType,
		SessionID:  sessionID,
		Payload:    raw,
	}, nil
}

func (e Envelope) DecodePayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

type SessionStartedPayload struct {
	ScenarioTitle string `json:"scenario_title"`
	UserName      string `json:"user_name"`
	StoreName     string `json:"store_name"`
}

type SessionDiscardedPayload struct {
	Phase string `json:"phase"`
}

type ExchangeCompletedPayload struct {
	Mode         string `json:"mode"`
	Reply        string `json:"reply,omitempty"`
	ToolCalls    int    `json:"tool_calls"`
	Applied      int    `json:"applied"`
	Model        string `json:"model,omitempty"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
}

type ExchangeFailedPayload struct {
	Mode  string `json:"mode"`
	Error string `json:"error"`
}

type GridChangedPayload struct {
	Source string         `json:"source"`
	Lines  []billing.Line `json:"lines"`
	Totals billing.Totals `json:"totals"`
}

type ModeSwitchedPayload struct {
	Mode         string `json:"mode"`
	Announcement string `json:"announcement"`
}

type GatePayload struct {
	Open bool `json:"open"`
}

type TranscriptSubmittedPayload struct {
	TranscriptID  string  `json:"transcript_id"`
	ScenarioTitle string  `json:"scenario_title"`
	ProposedTotal float64 `json:"proposed_total"`
	BaselineTotal float64 `json:"baseline_total"`
}

type ScenarioAuthoredPayload struct {
	Title     string `json:"title"`
	CreatedBy string `json:"created_by"`
}
