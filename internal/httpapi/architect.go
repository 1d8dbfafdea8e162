package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"mobilepro.local/hunt-gateway/internal/roster"
	"mobilepro.local/hunt-gateway/internal/session"
)

func (s *server) ownedArchitect(w http.ResponseWriter, r *http.Request, actor roster.User) (*session.Architect, bool) {
	a, err := s.sessions.GetArchitect(mux.Vars(r)["architectId"])
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	if a.Owner().ID != actor.ID {
		s.writeError(w, r, fmt.Errorf("%w: authoring session belongs to another user", errForbidden))
		return nil, false
	}
	return a, true
}

func (s *server) handleStartArchitect(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	a, err := s.sessions.StartArchitect(actor)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a.Snapshot())
}

func (s *server) handleGetArchitect(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	a, ok := s.ownedArchitect(w, r, actor)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.Snapshot())
}

func (s *server) handleDiscardArchitect(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	a, ok := s.ownedArchitect(w, r, actor)
	if !ok {
		return
	}
	if err := s.sessions.DiscardArchitect(a.ID()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleArchitectMessage(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	a, ok := s.ownedArchitect(w, r, actor)
	if !ok {
		return
	}
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := a.Send(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *server) handleArchitectSave(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	a, ok := s.ownedArchitect(w, r, actor)
	if !ok {
		return
	}
	sc, err := a.Save(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}
