// Package httpapi serves the training console's JSON API and the live session
// stream.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"mobilepro.local/hunt-gateway/internal/grid"
	"mobilepro.local/hunt-gateway/internal/quiz"
	"mobilepro.local/hunt-gateway/internal/roster"
	"mobilepro.local/hunt-gateway/internal/scenario"
	"mobilepro.local/hunt-gateway/internal/session"
	"mobilepro.local/hunt-gateway/internal/store"
	"mobilepro.local/hunt-gateway/internal/subscribers/hub"
)

// UserHeader names the acting user. Browsers cannot set headers on a
// websocket handshake, so the stream also accepts a "user" query parameter.
const UserHeader = "X-Hunt-User"

const (
	maxRequestBytes int64 = 1 << 20
	maxImportBytes  int64 = 32 << 20
)

var (
	errUnauthenticated = errors.New("unknown or missing user")
	errForbidden       = errors.New("not permitted")
	errBadRequest      = errors.New("bad request")
)

type Config struct {
	Addr        string
	Logger      *zap.Logger
	Sessions    *session.Manager
	Store       store.Store
	Catalog     *scenario.Catalog
	Hub         *hub.Hub
	CORSOrigins []string
	Now         func() time.Time
	Rand        *rand.Rand
}

type server struct {
	logger   *zap.Logger
	sessions *session.Manager
	store    store.Store
	catalog  *scenario.Catalog
	hub      *hub.Hub
	origins  []string
	now      func() time.Time
	upgrader websocket.Upgrader

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewServer(cfg Config) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// NewHandler builds the routed, CORS-wrapped API handler.
func NewHandler(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = scenario.NewCatalog(cfg.Store)
	}
	s := &server{
		logger:   logger.Named("http"),
		sessions: cfg.Sessions,
		store:    cfg.Store,
		catalog:  catalog,
		hub:      cfg.Hub,
		origins:  cfg.CORSOrigins,
		now:      now,
		rng:      cfg.Rand,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.isWebSocketOriginAllowed}

	router := mux.NewRouter()
	s.registerRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", UserHeader},
		ExposedHeaders: []string{"Content-Length", "Content-Type"},
	})
	return c.Handler(router)
}

func (s *server) registerRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/districts", s.handleListDistricts).Methods(http.MethodGet)
	v1.HandleFunc("/stores", s.handleListStores).Methods(http.MethodGet)
	v1.HandleFunc("/login/candidates", s.handleLoginCandidates).Methods(http.MethodGet)
	v1.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	v1.HandleFunc("/users", s.handleAddUser).Methods(http.MethodPost)
	v1.HandleFunc("/users/{userId}", s.handleDeleteUser).Methods(http.MethodDelete)

	v1.HandleFunc("/scenarios", s.handleListScenarios).Methods(http.MethodGet)
	v1.HandleFunc("/scenarios/{scenarioId}", s.handleGetScenario).Methods(http.MethodGet)
	v1.HandleFunc("/scenarios/{scenarioId}", s.handleDeleteScenario).Methods(http.MethodDelete)

	v1.HandleFunc("/sessions", s.handleStartSession).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/current", s.handleCurrentSession).Methods(http.MethodGet)
	v1.HandleFunc("/sessions/{sessionId}", s.handleGetSession).Methods(http.MethodGet)
	v1.HandleFunc("/sessions/{sessionId}", s.handleDiscardSession).Methods(http.MethodDelete)
	v1.HandleFunc("/sessions/{sessionId}/messages", s.handleSendMessage).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{sessionId}/cancel", s.handleCancelExchange).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{sessionId}/mode", s.handleSwitchMode).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{sessionId}/verify", s.handleVerifyPhone).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{sessionId}/logout", s.handleLogout).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{sessionId}/chat", s.handleChatMinimized).Methods(http.MethodPut)
	v1.HandleFunc("/sessions/{sessionId}/edits", s.handleEdit).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{sessionId}/lines", s.handleAddStarterLine).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{sessionId}/critique", s.handleCritique).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{sessionId}/submit", s.handleSubmit).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{sessionId}/stream", s.handleStream).Methods(http.MethodGet)

	v1.HandleFunc("/architect", s.handleStartArchitect).Methods(http.MethodPost)
	v1.HandleFunc("/architect/{architectId}", s.handleGetArchitect).Methods(http.MethodGet)
	v1.HandleFunc("/architect/{architectId}", s.handleDiscardArchitect).Methods(http.MethodDelete)
	v1.HandleFunc("/architect/{architectId}/messages", s.handleArchitectMessage).Methods(http.MethodPost)
	v1.HandleFunc("/architect/{architectId}/save", s.handleArchitectSave).Methods(http.MethodPost)

	v1.HandleFunc("/quiz", s.handleDrawQuiz).Methods(http.MethodGet)
	v1.HandleFunc("/quiz/results", s.handleSubmitQuiz).Methods(http.MethodPost)
	v1.HandleFunc("/quiz/results", s.handleListResults).Methods(http.MethodGet)
	v1.HandleFunc("/quiz/questions", s.handleListQuestions).Methods(http.MethodGet)
	v1.HandleFunc("/quiz/questions", s.handleCreateQuestion).Methods(http.MethodPost)
	v1.HandleFunc("/quiz/questions/{questionId}", s.handleUpdateQuestion).Methods(http.MethodPut)
	v1.HandleFunc("/quiz/questions/{questionId}", s.handleDeleteQuestion).Methods(http.MethodDelete)

	v1.HandleFunc("/transcripts", s.handleListTranscripts).Methods(http.MethodGet)

	v1.HandleFunc("/data/export", s.handleExport).Methods(http.MethodGet)
	v1.HandleFunc("/data/import", s.handleImport).Methods(http.MethodPost)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// actor resolves the acting user from the request. It writes the error
// response itself and returns false when there is none.
func (s *server) actor(w http.ResponseWriter, r *http.Request) (roster.User, bool) {
	id := strings.TrimSpace(r.Header.Get(UserHeader))
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get("user"))
	}
	if id == "" {
		s.writeError(w, r, errUnauthenticated)
		return roster.User{}, false
	}
	u, err := s.store.User(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = fmt.Errorf("%w: %s", errUnauthenticated, id)
		}
		s.writeError(w, r, err)
		return roster.User{}, false
	}
	return u, true
}

func (s *server) draw(bank []quiz.Question) []quiz.Question {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return quiz.Draw(s.rng, bank, quiz.DefaultSize)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden), errors.Is(err, session.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, session.ErrNotFound), errors.Is(err, store.ErrNotFound), errors.Is(err, scenario.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrExchangeInFlight),
		errors.Is(err, session.ErrSubmitting),
		errors.Is(err, session.ErrSessionClosed),
		errors.Is(err, session.ErrGateClosed),
		errors.Is(err, session.ErrNothingPending):
		return http.StatusConflict
	case errors.Is(err, session.ErrRationaleRequired),
		errors.Is(err, session.ErrEmptyGrid),
		errors.Is(err, session.ErrEmptyMessage),
		errors.Is(err, errBadRequest),
		errors.Is(err, store.ErrInvalid),
		errors.Is(err, scenario.ErrInvalidScenario),
		errors.Is(err, quiz.ErrUnknownQuestion),
		errors.Is(err, quiz.ErrDuplicateAnswer),
		errors.Is(err, grid.ErrUnknownOp),
		errors.Is(err, grid.ErrInvalidArgs),
		errors.Is(err, grid.ErrInvalidIndex):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrAgentFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeJSON reads one JSON object into dst. Unknown fields and trailing
// content are rejected.
func decodeJSON(r *http.Request, dst any) error {
	return decodeJSONLimit(r, dst, maxRequestBytes)
}

func decodeJSONLimit(r *http.Request, dst any, limit int64) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid json: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: invalid json: trailing content", errBadRequest)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *server) isWebSocketOriginAllowed(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	if slices.Contains(s.origins, "*") || slices.Contains(s.origins, origin) {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Host, r.Host)
}
