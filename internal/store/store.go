// Package store persists roster, quiz, scenario and transcript records.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mobilepro.local/hunt-gateway/internal/quiz"
	"mobilepro.local/hunt-gateway/internal/roster"
	"mobilepro.local/hunt-gateway/internal/scenario"
	"mobilepro.local/hunt-gateway/internal/session"
)

var (
	ErrNotFound = errors.New("not found")
	ErrClosed   = errors.New("store is closed")
	ErrInvalid  = errors.New("invalid record")
)

type Store interface {
	Districts(context.Context) ([]roster.District, error)
	Stores(context.Context) ([]roster.Store, error)
	Users(context.Context) ([]roster.User, error)
	User(context.Context, string) (roster.User, error)
	SaveUser(context.Context, roster.User) error
	DeleteUser(context.Context, string) error

	Questions(context.Context) ([]quiz.Question, error)
	SaveQuestion(context.Context, quiz.Question) error
	DeleteQuestion(context.Context, string) error
	AppendResult(context.Context, quiz.Result) error
	Results(context.Context) ([]quiz.Result, error)

	AppendTranscript(context.Context, session.Transcript) error
	Transcripts(context.Context) ([]session.Transcript, error)

	SaveCustomScenario(context.Context, scenario.Scenario) error
	ListCustomScenarios(context.Context) ([]scenario.Scenario, error)
	DeleteCustomScenario(context.Context, string) error

	Export(context.Context) (Document, error)
	Import(context.Context, Document) error
	Initialized(context.Context) (bool, error)
	MarkInitialized(context.Context) error

	Close() error
}

var (
	_ session.TranscriptSink = Store(nil)
	_ session.ScenarioSink   = Store(nil)
	_ scenario.CustomSource  = Store(nil)
)

// Document is the full exported state. On import a nil collection is left
// untouched and a non-nil one, even empty, replaces what is stored.
type Document struct {
	Districts       []roster.District    `json:"districts"`
	Stores          []roster.Store       `json:"stores"`
	Users           []roster.User        `json:"users"`
	Questions       []quiz.Question      `json:"questions"`
	Results         []quiz.Result        `json:"results"`
	HuntResponses   []session.Transcript `json:"huntResponses"`
	CustomScenarios []scenario.Scenario  `json:"customScenarios"`
}

// Directory loads the district and store names used to label records.
func Directory(ctx context.Context, st Store) (*roster.Directory, error) {
	districts, err := st.Districts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load districts: %w", err)
	}
	stores, err := st.Stores(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stores: %w", err)
	}
	return roster.NewDirectory(districts, stores), nil
}

func requireID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s id is required", ErrInvalid, kind)
	}
	return nil
}

func validateUser(u roster.User) error {
	if err := requireID("user", u.ID); err != nil {
		return err
	}
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("%w: user name is required", ErrInvalid)
	}
	if _, err := roster.ParseRole(string(u.Role)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func validateQuestion(q quiz.Question) error {
	if err := requireID("question", q.ID); err != nil {
		return err
	}
	if err := q.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func validateScenario(s scenario.Scenario) error {
	if err := requireID("scenario", s.ID); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// normalize makes every collection non-nil so exports carry every key.
func (d Document) normalize() Document {
	if d.Districts == nil {
		d.Districts = []roster.District{}
	}
	if d.Stores == nil {
		d.Stores = []roster.Store{}
	}
	if d.Users == nil {
		d.Users = []roster.User{}
	}
	if d.Questions == nil {
		d.Questions = []quiz.Question{}
	}
	if d.Results == nil {
		d.Results = []quiz.Result{}
	}
	if d.HuntResponses == nil {
		d.HuntResponses = []session.Transcript{}
	}
	if d.CustomScenarios == nil {
		d.CustomScenarios = []scenario.Scenario{}
	}
	return d
}
