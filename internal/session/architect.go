package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"mobilepro.local/hunt-gateway/internal/events"
	"mobilepro.local/hunt-gateway/internal/ids"
	"mobilepro.local/hunt-gateway/internal/model"
	"mobilepro.local/hunt-gateway/internal/persona"
	"mobilepro.local/hunt-gateway/internal/roster"
	"mobilepro.local/hunt-gateway/internal/scenario"
)

// Architect is a leader's scenario-authoring conversation. When the agent
// replies with a SCENARIO_READY payload the scenario becomes pending until
// the leader saves it.
type Architect struct {
	id     string
	owner  roster.User
	deps   deps
	logger *zap.Logger

	mu       sync.Mutex
	turns    []Turn
	pending  *scenario.Scenario
	inFlight bool
	closed   bool
}

func newArchitect(id string, owner roster.User, d deps) *Architect {
	return &Architect{
		id:     id,
		owner:  owner,
		deps:   d,
		logger: d.logger.With(zap.String("architect_id", id)),
		turns:  []Turn{{Speaker: SpeakerAgent, Text: persona.ArchitectGreeting, Synthesized: true, At: d.now()}},
	}
}

func (a *Architect) ID() string { return a.id }

func (a *Architect) Owner() roster.User { return a.owner }

// ArchitectSnapshot is a read-only view of an authoring conversation.
type ArchitectSnapshot struct {
	ID      string             `json:"id"`
	Turns   []Turn             `json:"turns"`
	Busy    bool               `json:"busy"`
	Pending *scenario.Scenario `json:"pending,omitempty"`
}

func (a *Architect) Snapshot() ArchitectSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Architect) snapshotLocked() ArchitectSnapshot {
	snap := ArchitectSnapshot{ID: a.id, Turns: cloneTurns(a.turns), Busy: a.inFlight}
	if a.pending != nil {
		pending := a.pending.Clone()
		snap.Pending = &pending
	}
	return snap
}

// Send forwards the leader's message and records the reply. A reply that
// carries a valid scenario replaces any pending one.
func (a *Architect) Send(ctx context.Context, text string) (ArchitectSnapshot, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ArchitectSnapshot{}, ErrEmptyMessage
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ArchitectSnapshot{}, ErrSessionClosed
	}
	if a.inFlight {
		a.mu.Unlock()
		return ArchitectSnapshot{}, ErrExchangeInFlight
	}
	a.turns = append(a.turns, Turn{Speaker: SpeakerTrainee, Text: text, At: a.deps.now()})
	req := model.CompletionRequest{
		Model:        a.deps.opts.Model,
		Messages:     history(a.turns),
		MaxTokens:    a.deps.opts.MaxTokens,
		Temperature:  a.deps.opts.Temperature,
		SystemPrompt: persona.ArchitectInstruction,
	}
	a.inFlight = true
	a.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, a.deps.opts.ExchangeTimeout)
	resp, err := a.deps.provider.Complete(callCtx, req)
	cancel()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.inFlight = false
	if err != nil {
		a.logger.Warn("architect exchange failed", zap.Error(err))
		return ArchitectSnapshot{}, fmt.Errorf("%w: %w", ErrAgentFailed, err)
	}
	if strings.TrimSpace(resp.Content) != "" {
		a.turns = append(a.turns, Turn{Speaker: SpeakerAgent, Text: resp.Content, At: a.deps.now()})
	}

	ready, err := scenario.ParseReady(resp.Content)
	switch {
	case err == nil:
		a.pending = &ready
		a.logger.Info("scenario ready", zap.String("title", ready.Title))
	case errors.Is(err, scenario.ErrNoPayload):
	default:
		a.logger.Debug("ignoring invalid scenario payload", zap.Error(err))
	}
	return a.snapshotLocked(), nil
}

// Save persists the pending scenario under a fresh id.
func (a *Architect) Save(ctx context.Context) (scenario.Scenario, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return scenario.Scenario{}, ErrSessionClosed
	}
	if a.pending == nil {
		return scenario.Scenario{}, ErrNothingPending
	}

	s := a.pending.Clone()
	s.ID = ids.Prefixed("custom_")
	s.CreatedBy = a.owner.Name
	s.IsCustom = true
	if a.deps.scenarios != nil {
		if err := a.deps.scenarios.SaveCustomScenario(ctx, s); err != nil {
			return scenario.Scenario{}, fmt.Errorf("persist scenario: %w", err)
		}
	}
	a.pending = nil

	a.logger.Info("scenario saved", zap.String("scenario_id", s.ID))
	if a.deps.events != nil {
		env, err := events.New(events.TypeScenarioAuthored, a.id, events.ScenarioAuthoredPayload{Title: s.Title, CreatedBy: a.owner.Name})
		if err == nil {
			env.ActorID = a.owner.ID
			env.ScenarioID = s.ID
			a.deps.events.Dispatch(ctx, env)
		}
	}
	return s, nil
}

func (a *Architect) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}
