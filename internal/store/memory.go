package store

import (
	"context"
	"fmt"
	"sync"

	"mobilepro.local/hunt-gateway/internal/billing"
	"mobilepro.local/hunt-gateway/internal/ids"
	"mobilepro.local/hunt-gateway/internal/quiz"
	"mobilepro.local/hunt-gateway/internal/roster"
	"mobilepro.local/hunt-gateway/internal/scenario"
	"mobilepro.local/hunt-gateway/internal/session"
)

// MemoryStore keeps every collection in insertion order. It backs tests and
// throwaway demo runs.
type MemoryStore struct {
	mu          sync.Mutex
	doc         Document
	initialized bool
	closed      bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) lock() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("memory store: %w", ErrClosed)
	}
	return nil
}

func (s *MemoryStore) Districts(context.Context) ([]roster.District, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return append([]roster.District{}, s.doc.Districts...), nil
}

func (s *MemoryStore) Stores(context.Context) ([]roster.Store, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return append([]roster.Store{}, s.doc.Stores...), nil
}

func (s *MemoryStore) Users(context.Context) ([]roster.User, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return append([]roster.User{}, s.doc.Users...), nil
}

func (s *MemoryStore) User(_ context.Context, id string) (roster.User, error) {
	if err := s.lock(); err != nil {
		return roster.User{}, err
	}
	defer s.mu.Unlock()
	for _, u := range s.doc.Users {
		if u.ID == id {
			return u, nil
		}
	}
	return roster.User{}, fmt.Errorf("%w: user %s", ErrNotFound, id)
}

func (s *MemoryStore) SaveUser(_ context.Context, u roster.User) error {
	if err := validateUser(u); err != nil {
		return err
	}
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	for i := range s.doc.Users {
		if s.doc.Users[i].ID == u.ID {
			s.doc.Users[i] = u
			return nil
		}
	}
	s.doc.Users = append(s.doc.Users, u)
	return nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	for i, u := range s.doc.Users {
		if u.ID == id {
			s.doc.Users = append(s.doc.Users[:i], s.doc.Users[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: user %s", ErrNotFound, id)
}

func (s *MemoryStore) Questions(context.Context) ([]quiz.Question, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return cloneQuestions(s.doc.Questions), nil
}

func (s *MemoryStore) SaveQuestion(_ context.Context, q quiz.Question) error {
	if err := validateQuestion(q); err != nil {
		return err
	}
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	q.Options = append([]string(nil), q.Options...)
	for i := range s.doc.Questions {
		if s.doc.Questions[i].ID == q.ID {
			s.doc.Questions[i] = q
			return nil
		}
	}
	s.doc.Questions = append(s.doc.Questions, q)
	return nil
}

func (s *MemoryStore) DeleteQuestion(_ context.Context, id string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	for i, q := range s.doc.Questions {
		if q.ID == id {
			s.doc.Questions = append(s.doc.Questions[:i], s.doc.Questions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: question %s", ErrNotFound, id)
}

func (s *MemoryStore) AppendResult(_ context.Context, r quiz.Result) error {
	if r.ID == "" {
		r.ID = ids.Prefixed("qr_")
	}
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.doc.Results = append(s.doc.Results, r)
	return nil
}

func (s *MemoryStore) Results(context.Context) ([]quiz.Result, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return append([]quiz.Result{}, s.doc.Results...), nil
}

func (s *MemoryStore) AppendTranscript(_ context.Context, t session.Transcript) error {
	if err := requireID("transcript", t.ID); err != nil {
		return err
	}
	t.Grid = billing.CloneLines(t.Grid)
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.doc.HuntResponses = append(s.doc.HuntResponses, t)
	return nil
}

func (s *MemoryStore) Transcripts(context.Context) ([]session.Transcript, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return cloneTranscripts(s.doc.HuntResponses), nil
}

func (s *MemoryStore) SaveCustomScenario(_ context.Context, sc scenario.Scenario) error {
	if err := validateScenario(sc); err != nil {
		return err
	}
	sc = sc.Clone()
	sc.IsCustom = true
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	for i := range s.doc.CustomScenarios {
		if s.doc.CustomScenarios[i].ID == sc.ID {
			s.doc.CustomScenarios[i] = sc
			return nil
		}
	}
	s.doc.CustomScenarios = append(s.doc.CustomScenarios, sc)
	return nil
}

func (s *MemoryStore) ListCustomScenarios(context.Context) ([]scenario.Scenario, error) {
	if err := s.lock(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return cloneScenarios(s.doc.CustomScenarios), nil
}

func (s *MemoryStore) DeleteCustomScenario(_ context.Context, id string) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	for i, sc := range s.doc.CustomScenarios {
		if sc.ID == id {
			s.doc.CustomScenarios = append(s.doc.CustomScenarios[:i], s.doc.CustomScenarios[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: scenario %s", ErrNotFound, id)
}

func (s *MemoryStore) Export(context.Context) (Document, error) {
	if err := s.lock(); err != nil {
		return Document{}, err
	}
	defer s.mu.Unlock()
	return Document{
		Districts:       append([]roster.District{}, s.doc.Districts...),
		Stores:          append([]roster.Store{}, s.doc.Stores...),
		Users:           append([]roster.User{}, s.doc.Users...),
		Questions:       cloneQuestions(s.doc.Questions),
		Results:         append([]quiz.Result{}, s.doc.Results...),
		HuntResponses:   cloneTranscripts(s.doc.HuntResponses),
		CustomScenarios: cloneScenarios(s.doc.CustomScenarios),
	}, nil
}

func (s *MemoryStore) Import(_ context.Context, doc Document) error {
	if err := validateDocument(doc); err != nil {
		return err
	}
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if doc.Districts != nil {
		s.doc.Districts = append([]roster.District{}, doc.Districts...)
	}
	if doc.Stores != nil {
		s.doc.Stores = append([]roster.Store{}, doc.Stores...)
	}
	if doc.Users != nil {
		s.doc.Users = append([]roster.User{}, doc.Users...)
	}
	if doc.Questions != nil {
		s.doc.Questions = cloneQuestions(doc.Questions)
	}
	if doc.Results != nil {
		s.doc.Results = withResultIDs(doc.Results)
	}
	if doc.HuntResponses != nil {
		s.doc.HuntResponses = cloneTranscripts(doc.HuntResponses)
	}
	if doc.CustomScenarios != nil {
		s.doc.CustomScenarios = cloneScenarios(doc.CustomScenarios)
	}
	return nil
}

func (s *MemoryStore) Initialized(context.Context) (bool, error) {
	if err := s.lock(); err != nil {
		return false, err
	}
	defer s.mu.Unlock()
	return s.initialized, nil
}

func (s *MemoryStore) MarkInitialized(context.Context) error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.initialized = true
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func cloneQuestions(in []quiz.Question) []quiz.Question {
	out := make([]quiz.Question, 0, len(in))
	for _, q := range in {
		q.Options = append([]string(nil), q.Options...)
		out = append(out, q)
	}
	return out
}

func cloneTranscripts(in []session.Transcript) []session.Transcript {
	out := make([]session.Transcript, 0, len(in))
	for _, t := range in {
		t.Grid = billing.CloneLines(t.Grid)
		out = append(out, t)
	}
	return out
}

func cloneScenarios(in []scenario.Scenario) []scenario.Scenario {
	out := make([]scenario.Scenario, 0, len(in))
	for _, sc := range in {
		sc = sc.Clone()
		sc.IsCustom = true
		out = append(out, sc)
	}
	return out
}

func withResultIDs(in []quiz.Result) []quiz.Result {
	out := make([]quiz.Result, 0, len(in))
	for _, r := range in {
		if r.ID == "" {
			r.ID = ids.Prefixed("qr_")
		}
		out = append(out, r)
	}
	return out
}

// validateDocument rejects an import before anything is replaced.
func validateDocument(doc Document) error {
	for i, d := range doc.Districts {
		if err := requireID("district", d.ID); err != nil {
			return fmt.Errorf("districts[%d]: %w", i, err)
		}
	}
	for i, st := range doc.Stores {
		if err := requireID("store", st.ID); err != nil {
			return fmt.Errorf("stores[%d]: %w", i, err)
		}
	}
	for i, u := range doc.Users {
		if err := validateUser(u); err != nil {
			return fmt.Errorf("users[%d]: %w", i, err)
		}
	}
	for i, q := range doc.Questions {
		if err := validateQuestion(q); err != nil {
			return fmt.Errorf("questions[%d]: %w", i, err)
		}
	}
	for i, t := range doc.HuntResponses {
		if err := requireID("transcript", t.ID); err != nil {
			return fmt.Errorf("huntResponses[%d]: %w", i, err)
		}
	}
	for i, sc := range doc.CustomScenarios {
		if err := validateScenario(sc); err != nil {
			return fmt.Errorf("customScenarios[%d]: %w", i, err)
		}
	}
	return nil
}
