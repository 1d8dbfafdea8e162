// Package session orchestrates discovery sessions (trainee, simulated
// customer, pricing coach) and scenario-authoring sessions.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"mobilepro.local/hunt-gateway/internal/billing"
	"mobilepro.local/hunt-gateway/internal/events"
	"mobilepro.local/hunt-gateway/internal/gate"
	"mobilepro.local/hunt-gateway/internal/grid"
	"mobilepro.local/hunt-gateway/internal/ids"
	"mobilepro.local/hunt-gateway/internal/model"
	"mobilepro.local/hunt-gateway/internal/persona"
	"mobilepro.local/hunt-gateway/internal/roster"
	"mobilepro.local/hunt-gateway/internal/scenario"
)

type Phase string

const (
	PhaseLocked    Phase = "discovery_locked"
	PhaseUnlocked  Phase = "discovery_unlocked"
	PhaseSubmitted Phase = "submitted"
)

const (
	sourceAgent   = "agent"
	sourceTrainee = "trainee"
)

// deps is what a session borrows from its manager.
type deps struct {
	provider  model.Provider
	opts      Options
	sink      TranscriptSink
	scenarios ScenarioSink
	events    EventSink
	logger    *zap.Logger
	now       func() time.Time
}

// Session is one trainee's run through a scenario. All methods are safe for
// concurrent use; the agent call happens outside the lock.
type Session struct {
	id        string
	owner     roster.User
	storeName string
	scenario  scenario.Scenario
	deps      deps
	logger    *zap.Logger

	mu            sync.Mutex
	turns         []Turn
	mode          persona.Machine
	grid          *grid.Grid
	gate          *gate.PhoneGate
	phase         Phase
	chatMinimized bool
	inFlight      bool
	cancel        context.CancelFunc
	critiquing    bool
	critique      string
	submitting    bool
	transcriptID  string
	discarded     bool
}

func newSession(id string, owner roster.User, storeName string, sc scenario.Scenario, d deps) *Session {
	s := &Session{
		id:        id,
		owner:     owner,
		storeName: storeName,
		scenario:  sc.Clone(),
		deps:      d,
		logger:    d.logger.With(zap.String("session_id", id), zap.String("scenario_id", sc.ID)),
		grid:      grid.NewEditable(sc.AccountData),
		gate:      gate.New(sc.PhoneNumber),
		phase:     PhaseLocked,
	}
	s.mode.Reset()
	s.turns = append(s.turns, Turn{Speaker: SpeakerAgent, Text: persona.OpeningRemark, Synthesized: true, At: d.now()})
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) Owner() roster.User { return s.owner }

// ExchangeResult is the outcome of one trainee message.
type ExchangeResult struct {
	Reply       *Turn    `json:"reply,omitempty"`
	ToolCalls   int      `json:"toolCalls"`
	Applied     int      `json:"applied"`
	GridChanged bool     `json:"gridChanged"`
	Snapshot    Snapshot `json:"snapshot"`
}

// Send appends the trainee's message, asks the agent for one reply and
// applies any grid commands it issued. Only one exchange may be in flight.
func (s *Session) Send(ctx context.Context, text string) (ExchangeResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ExchangeResult{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return ExchangeResult{}, err
	}
	if s.inFlight {
		s.mu.Unlock()
		return ExchangeResult{}, ErrExchangeInFlight
	}
	s.turns = append(s.turns, Turn{Speaker: SpeakerTrainee, Text: text, At: s.deps.now()})
	mode := s.mode.Mode()
	req := model.CompletionRequest{
		Model:        s.deps.opts.Model,
		Messages:     history(s.turns),
		Tools:        persona.Tools(mode),
		MaxTokens:    s.deps.opts.MaxTokens,
		Temperature:  s.deps.opts.Temperature,
		SystemPrompt: persona.Instruction(mode, s.scenario.Brief()),
	}
	exCtx, cancel := context.WithTimeout(ctx, s.deps.opts.ExchangeTimeout)
	s.inFlight = true
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Debug("exchange start", zap.String("mode", string(mode)), zap.Int("turns", len(req.Messages)))
	resp, err := s.deps.provider.Complete(exCtx, req)
	cancel()

	s.mu.Lock()
	s.inFlight = false
	s.cancel = nil
	if s.discarded {
		s.mu.Unlock()
		return ExchangeResult{}, ErrSessionClosed
	}
	if err != nil {
		s.emit(ctx, events.TypeExchangeFailed, events.ExchangeFailedPayload{Mode: string(mode), Error: err.Error()})
		s.mu.Unlock()
		s.logger.Warn("exchange failed", zap.String("mode", string(mode)), zap.Error(err))
		return ExchangeResult{}, fmt.Errorf("%w: %w", ErrAgentFailed, err)
	}

	calls := resp.ToolCalls()
	applied := 0
	if mode == persona.Coach {
		applied = s.applyToolCallsLocked(calls)
	} else if len(calls) > 0 {
		s.logger.Debug("ignoring tool calls outside coach mode", zap.Int("tool_calls", len(calls)))
	}

	var reply *Turn
	switch {
	case strings.TrimSpace(resp.Content) != "":
		reply = &Turn{Speaker: SpeakerAgent, Text: resp.Content, At: s.deps.now()}
	case applied > 0:
		reply = &Turn{Speaker: SpeakerAgent, Text: FallbackReply, Synthesized: true, At: s.deps.now()}
	}
	if reply != nil {
		s.turns = append(s.turns, *reply)
	}
	snap := s.snapshotLocked()
	payload := events.ExchangeCompletedPayload{
		Mode:         string(mode),
		ToolCalls:    len(calls),
		Applied:      applied,
		Model:        resp.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
	if reply != nil {
		payload.Reply = reply.Text
	}
	s.emit(ctx, events.TypeExchangeCompleted, payload)
	if applied > 0 {
		s.emitGridChanged(ctx, sourceAgent, snap.Proposed, snap.ProposedTotals)
	}
	s.mu.Unlock()

	s.logger.Info("exchange completed",
		zap.String("mode", string(mode)),
		zap.Int("tool_calls", len(calls)),
		zap.Int("applied", applied),
		zap.String("model", resp.Model),
	)
	return ExchangeResult{
		Reply:       reply,
		ToolCalls:   len(calls),
		Applied:     applied,
		GridChanged: applied > 0,
		Snapshot:    snap,
	}, nil
}

// applyToolCallsLocked runs agent commands in order. Malformed calls are
// skipped. It returns how many calls changed the grid.
func (s *Session) applyToolCallsLocked(calls []model.ContentBlock) int {
	applied := 0
	for _, call := range calls {
		cmd, err := grid.DecodeJSON(call.Name, call.Input)
		if err != nil {
			s.logger.Debug("skipping malformed tool call", zap.String("tool_name", call.Name), zap.Error(err))
			continue
		}
		if s.grid.Apply(cmd) {
			applied++
		} else {
			s.logger.Debug("tool call left grid unchanged", zap.String("tool_name", call.Name), zap.Int("index", cmd.Index))
		}
	}
	return applied
}

// Cancel aborts the in-flight exchange, if any.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inFlight || s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// SwitchMode toggles the persona and announces the new mode in the log.
func (s *Session) SwitchMode(ctx context.Context) (persona.Mode, Turn, error) {
	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return "", Turn{}, err
	}
	mode, announcement := s.mode.Switch()
	turn := Turn{Speaker: SpeakerAgent, Text: announcement, Synthesized: true, At: s.deps.now()}
	s.turns = append(s.turns, turn)
	s.emit(ctx, events.TypeModeSwitched, events.ModeSwitchedPayload{Mode: string(mode), Announcement: announcement})
	s.mu.Unlock()

	s.logger.Info("mode switched", zap.String("mode", string(mode)))
	return mode, turn, nil
}

// VerifyPhone submits a phone number to the account gate. A match unlocks
// the console and minimizes the chat.
func (s *Session) VerifyPhone(ctx context.Context, candidate string) (gate.Result, error) {
	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return gate.Result{}, err
	}
	wasOpen := s.gate.Open()
	res := s.gate.Submit(candidate)
	opened := res.Open && !wasOpen
	if opened {
		s.phase = PhaseUnlocked
		s.chatMinimized = true
		s.emit(ctx, events.TypeGateOpened, events.GatePayload{Open: true})
	}
	s.mu.Unlock()

	if opened {
		s.logger.Info("account gate opened")
	} else if res.Failed {
		s.logger.Debug("phone verification failed")
	}
	return res, nil
}

// Logout closes the account gate. The conversation and grid are kept.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.gate.Reset()
	s.phase = PhaseLocked
	s.emit(ctx, events.TypeGateReset, events.GatePayload{Open: false})
	s.mu.Unlock()
	return nil
}

func (s *Session) SetChatMinimized(minimized bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatMinimized = minimized
}

// Edit applies a trainee-issued grid command. Direct edits need an unlocked
// console and go through the same decoding as agent commands.
func (s *Session) Edit(ctx context.Context, op string, args map[string]any) (bool, error) {
	cmd, err := grid.Decode(op, args)
	if err != nil {
		return false, err
	}
	return s.applyTraineeCommand(ctx, cmd)
}

// AddStarterLine appends the console's template line.
func (s *Session) AddStarterLine(ctx context.Context) (billing.Line, error) {
	s.mu.Lock()
	line := grid.StarterLine(s.grid.Len() + 1)
	s.mu.Unlock()
	if _, err := s.applyTraineeCommand(ctx, grid.Add(grid.PatchFromLine(line))); err != nil {
		return billing.Line{}, err
	}
	return line, nil
}

func (s *Session) applyTraineeCommand(ctx context.Context, cmd grid.Command) (bool, error) {
	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return false, err
	}
	if s.phase != PhaseUnlocked {
		s.mu.Unlock()
		return false, ErrGateClosed
	}
	changed := s.grid.Apply(cmd)
	if changed {
		s.emitGridChanged(ctx, sourceTrainee, s.grid.Lines(), s.grid.Totals())
	}
	s.mu.Unlock()
	return changed, nil
}

// Submit finalizes the session into a transcript. The session is immutable
// afterwards.
func (s *Session) Submit(ctx context.Context, rationale string) (Transcript, error) {
	rationale = strings.TrimSpace(rationale)
	if rationale == "" {
		return Transcript{}, ErrRationaleRequired
	}

	s.mu.Lock()
	if err := s.submittableLocked(); err != nil {
		s.mu.Unlock()
		return Transcript{}, err
	}

	lines := s.grid.Lines()
	t := Transcript{
		ID:            ids.Prefixed("hr_"),
		UserID:        s.owner.ID,
		UserName:      s.owner.Name,
		StoreID:       s.owner.StoreID,
		DistrictID:    s.owner.DistrictID,
		StoreName:     s.storeName,
		ScenarioID:    s.scenario.ID,
		ScenarioTitle: s.scenario.Title,
		Grid:          lines,
		Rationale:     rationale,
		Solution:      solutionText(lines, rationale),
		ProposedTotal: billing.GridTotals(lines).Total,
		BaselineTotal: s.scenario.BaselineTotal(),
		Timestamp:     s.deps.now().UnixMilli(),
	}
	// The grid is frozen while the transcript is written, but readers are not
	// held up by the write.
	s.submitting = true
	s.mu.Unlock()

	var err error
	if s.deps.sink != nil {
		err = s.deps.sink.AppendTranscript(ctx, t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	if err != nil {
		return Transcript{}, fmt.Errorf("persist transcript: %w", err)
	}
	s.phase = PhaseSubmitted
	s.transcriptID = t.ID

	s.logger.Info("transcript submitted", zap.String("transcript_id", t.ID), zap.Float64("proposed_total", t.ProposedTotal))
	s.emit(ctx, events.TypeTranscriptSubmitted, events.TranscriptSubmittedPayload{
		TranscriptID:  t.ID,
		ScenarioTitle: t.ScenarioTitle,
		ProposedTotal: t.ProposedTotal,
		BaselineTotal: t.BaselineTotal,
	})
	return t, nil
}

func (s *Session) submittableLocked() error {
	if err := s.writableLocked(); err != nil {
		return err
	}
	if s.phase != PhaseUnlocked {
		return ErrGateClosed
	}
	if s.inFlight {
		return ErrExchangeInFlight
	}
	if s.grid.Len() == 0 {
		return ErrEmptyGrid
	}
	return nil
}

// discard cancels any in-flight work and closes the session for good.
func (s *Session) discard(ctx context.Context) Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded = true
	if s.cancel != nil {
		s.cancel()
	}
	s.emit(ctx, events.TypeSessionDiscarded, events.SessionDiscardedPayload{Phase: string(s.phase)})
	return s.phase
}

func (s *Session) writableLocked() error {
	if s.discarded || s.phase == PhaseSubmitted {
		return ErrSessionClosed
	}
	if s.submitting {
		return ErrSubmitting
	}
	return nil
}

func (s *Session) emitGridChanged(ctx context.Context, source string, lines []billing.Line, totals billing.Totals) {
	s.emit(ctx, events.TypeGridChanged, events.GridChangedPayload{Source: source, Lines: lines, Totals: totals})
}

// emit is called with s.mu held so ordered subscribers see a session's events
// in the order its state changed.
func (s *Session) emit(ctx context.Context, eventType events.Type, payload any) {
	if s.deps.events == nil {
		return
	}
	env, err := events.New(eventType, s.id, payload)
	if err != nil {
		s.logger.Error("build event", zap.String("event_type", string(eventType)), zap.Error(err))
		return
	}
	env.ActorID = s.owner.ID
	env.ScenarioID = s.scenario.ID
	s.deps.events.Dispatch(ctx, env)
}

// IsClosed reports whether the session was submitted or discarded.
func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writableLocked() != nil
}
