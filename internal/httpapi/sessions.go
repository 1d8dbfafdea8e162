package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"mobilepro.local/hunt-gateway/internal/persona"
	"mobilepro.local/hunt-gateway/internal/roster"
	"mobilepro.local/hunt-gateway/internal/session"
	"mobilepro.local/hunt-gateway/internal/store"
)

type startSessionRequest struct {
	ScenarioID string `json:"scenarioId"`
}

type messageRequest struct {
	Text string `json:"text"`
}

type verifyRequest struct {
	Phone string `json:"phone"`
}

type chatRequest struct {
	Minimized bool `json:"minimized"`
}

type editRequest struct {
	Op   string         `json:"op"`
	Args map[string]any `json:"args"`
}

type submitRequest struct {
	Rationale string `json:"rationale"`
}

type modeResponse struct {
	Mode persona.Mode `json:"mode"`
	Turn session.Turn `json:"turn"`
}

// ownedSession loads the session named in the path and checks that actor is
// driving it.
func (s *server) ownedSession(w http.ResponseWriter, r *http.Request, actor roster.User) (*session.Session, bool) {
	sess, err := s.sessions.Get(mux.Vars(r)["sessionId"])
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	if sess.Owner().ID != actor.ID {
		s.writeError(w, r, fmt.Errorf("%w: session belongs to another user", errForbidden))
		return nil, false
	}
	return sess, true
}

func canWatch(viewer, owner roster.User) bool {
	if viewer.ID == owner.ID {
		return true
	}
	return viewer.CanReviewHunts() && viewer.CanSeeRecord(roster.Scope{
		UserID:     owner.ID,
		StoreID:    owner.StoreID,
		DistrictID: owner.DistrictID,
	})
}

func (s *server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req startSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sc, err := s.catalog.Get(r.Context(), req.ScenarioID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	dir, err := store.Directory(r.Context(), s.store)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.sessions.Start(r.Context(), actor, dir.StoreName(actor.StoreID), sc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *server) handleCurrentSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.Current(actor.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.Get(mux.Vars(r)["sessionId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !canWatch(actor, sess.Owner()) {
		s.writeError(w, r, fmt.Errorf("%w: cannot view this session", errForbidden))
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	sess, ok := s.ownedSession(w, r, actor)
	if !ok {
		return
	}
	if err := s.sessions.Discard(r.Context(), sess.ID()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	sess, ok := s.ownedSession(w, r, actor)
	if !ok {
		return
	}
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := sess.Send(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleCancelExchange(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	sess, ok := s.ownedSession(w, r, actor)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": sess.Cancel()})
}

func (s *server) handleSwitchMode(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	sess, ok := s.ownedSession(w, r, actor)
	if !ok {
		return
	}
	mode, turn, err := sess.SwitchMode(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, modeResponse{Mode: mode, Turn: turn})
}

func (s *server) handleVerifyPhone(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	sess, ok := s.ownedSession(w, r, actor)
	if !ok {
		return
	}
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := sess.VerifyPhone(r.Context(), req.Phone)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	sess, ok := s.ownedSession(w, r, actor)
	if !ok {
		return
	}
	if err := sess.Logout(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *server) handleChatMinimized(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	sess, ok := s.ownedSession(w, r, actor)
	if !ok {
		return
	}
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess.SetChatMinimized(req.Minimized)
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *server) handleEdit(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	sess, ok := s.ownedSession(w, r, actor)
	if !ok {
		return
	}
	var req editRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	changed, err := sess.Edit(r.Context(), req.Op, req.Args)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"changed": changed, "snapshot": sess.Snapshot()})
}

func (s *server) handleAddStarterLine(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	sess, ok := s.ownedSession(w, r, actor)
	if !ok {
		return
	}
	if _, err := sess.AddStarterLine(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *server) handleCritique(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	sess, ok := s.ownedSession(w, r, actor)
	if !ok {
		return
	}
	critique, err := sess.Critique(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"critique": critique})
}

func (s *server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	sess, ok := s.ownedSession(w, r, actor)
	if !ok {
		return
	}
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	transcript, err := sess.Submit(r.Context(), req.Rationale)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, transcript)
}

func (s *server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "streaming is disabled", http.StatusNotFound)
		return
	}
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.Get(mux.Vars(r)["sessionId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !canWatch(actor, sess.Owner()) {
		s.writeError(w, r, fmt.Errorf("%w: cannot watch this session", errForbidden))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(sess.Snapshot()); err != nil {
		return
	}
	if err := s.hub.Stream(r.Context(), conn, sess.ID()); err != nil {
		s.logger.Debug("session stream ended", zap.String("session_id", sess.ID()), zap.Error(err))
	}
}
