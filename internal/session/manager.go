package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"mobilepro.local/hunt-gateway/internal/events"
	"mobilepro.local/hunt-gateway/internal/ids"
	"mobilepro.local/hunt-gateway/internal/model"
	"mobilepro.local/hunt-gateway/internal/roster"
	"mobilepro.local/hunt-gateway/internal/scenario"
)

// ManagerConfig wires a Manager. Provider is required.
type ManagerConfig struct {
	Provider    model.Provider
	Options     Options
	Transcripts TranscriptSink
	Scenarios   ScenarioSink
	Events      EventSink
	Logger      *zap.Logger
	Now         func() time.Time
}

// Manager owns the live discovery and authoring sessions. A user has at most
// one unsubmitted discovery session and one architect conversation; starting
// another replaces the previous one.
type Manager struct {
	deps deps

	mu          sync.RWMutex
	sessions    map[string]*Session
	byOwner     map[string]string
	architects  map[string]*Architect
	architectOf map[string]string
}

func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Provider == nil {
		return nil, errors.New("session manager requires a provider")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		deps: deps{
			provider:  cfg.Provider,
			opts:      cfg.Options.withDefaults(),
			sink:      cfg.Transcripts,
			scenarios: cfg.Scenarios,
			events:    cfg.Events,
			logger:    logger,
			now:       now,
		},
		sessions:    make(map[string]*Session),
		byOwner:     make(map[string]string),
		architects:  make(map[string]*Architect),
		architectOf: make(map[string]string),
	}, nil
}

// Start opens a discovery session for owner on sc.
func (m *Manager) Start(ctx context.Context, owner roster.User, storeName string, sc scenario.Scenario) (*Session, error) {
	if owner.ID == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrForbidden)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	s := newSession(ids.Prefixed("ses_"), owner, storeName, sc, m.deps)
	s.mu.Lock()
	s.emit(ctx, events.TypeSessionStarted, events.SessionStartedPayload{
		ScenarioTitle: sc.Title,
		UserName:      owner.Name,
		StoreName:     storeName,
	})
	s.mu.Unlock()

	m.mu.Lock()
	previous := m.sessions[m.byOwner[owner.ID]]
	if previous != nil {
		delete(m.sessions, previous.id)
	}
	m.sessions[s.id] = s
	m.byOwner[owner.ID] = s.id
	m.mu.Unlock()

	if previous != nil {
		m.discarded(ctx, previous)
	}
	m.deps.logger.Info("session started",
		zap.String("session_id", s.id),
		zap.String("user_id", owner.ID),
		zap.String("scenario_id", sc.ID),
	)
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Current returns the owner's live discovery session, if any.
func (m *Manager) Current(ownerID string) (*Session, error) {
	m.mu.RLock()
	id := m.byOwner[ownerID]
	m.mu.RUnlock()
	if id == "" {
		return nil, fmt.Errorf("%w: no session for user %s", ErrNotFound, ownerID)
	}
	return m.Get(id)
}

// Discard drops a session. In-flight exchanges are cancelled and their
// results are never applied.
func (m *Manager) Discard(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		if m.byOwner[s.owner.ID] == id {
			delete(m.byOwner, s.owner.ID)
		}
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	m.discarded(ctx, s)
	return nil
}

func (m *Manager) discarded(ctx context.Context, s *Session) {
	phase := s.discard(ctx)
	m.deps.logger.Info("session discarded", zap.String("session_id", s.id), zap.String("phase", string(phase)))
}

// StartArchitect opens a scenario-authoring conversation for a leader.
func (m *Manager) StartArchitect(owner roster.User) (*Architect, error) {
	if !owner.CanAuthorScenarios() {
		return nil, fmt.Errorf("%w: %s cannot author scenarios", ErrForbidden, owner.Role)
	}
	a := newArchitect(ids.Prefixed("arc_"), owner, m.deps)
	m.mu.Lock()
	previous := m.architects[m.architectOf[owner.ID]]
	if previous != nil {
		delete(m.architects, previous.id)
	}
	m.architects[a.id] = a
	m.architectOf[owner.ID] = a.id
	m.mu.Unlock()

	if previous != nil {
		previous.close()
		m.deps.logger.Info("architect replaced", zap.String("architect_id", previous.id), zap.String("user_id", owner.ID))
	}
	return a, nil
}

func (m *Manager) GetArchitect(id string) (*Architect, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.architects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a, nil
}

func (m *Manager) DiscardArchitect(id string) error {
	m.mu.Lock()
	a, ok := m.architects[id]
	if ok {
		delete(m.architects, id)
		if m.architectOf[a.owner.ID] == id {
			delete(m.architectOf, a.owner.ID)
		}
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	a.close()
	return nil
}

// Len reports the number of live discovery sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ArchitectLen reports the number of live architect conversations.
func (m *Manager) ArchitectLen() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.architects)
}
