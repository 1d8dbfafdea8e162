package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"mobilepro.local/hunt-gateway/internal/ids"
	"mobilepro.local/hunt-gateway/internal/quiz"
	"mobilepro.local/hunt-gateway/internal/roster"
	"mobilepro.local/hunt-gateway/internal/scenario"
	"mobilepro.local/hunt-gateway/internal/session"
	"mobilepro.local/hunt-gateway/internal/store"
)

// scenarioSummary is what the picker shows. The phone number and account
// stay hidden so the trainee still has to discover them.
type scenarioSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedBy   string `json:"createdBy,omitempty"`
	IsCustom    bool   `json:"isCustom,omitempty"`
}

func summarize(sc scenario.Scenario) scenarioSummary {
	return scenarioSummary{
		ID:          sc.ID,
		Title:       sc.Title,
		Description: sc.Description,
		CreatedBy:   sc.CreatedBy,
		IsCustom:    sc.IsCustom,
	}
}

type addUserRequest struct {
	Name    string `json:"name"`
	Role    string `json:"role"`
	StoreID string `json:"storeId"`
}

type quizSubmission struct {
	Answers []quiz.Answer `json:"answers"`
}

type resultResponse struct {
	quiz.Result
	Percent int `json:"percent"`
}

func (s *server) handleListDistricts(w http.ResponseWriter, r *http.Request) {
	districts, err := s.store.Districts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, districts)
}

func (s *server) handleListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := s.store.Stores(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if district := strings.TrimSpace(r.URL.Query().Get("districtId")); district != "" {
		filtered := make([]roster.Store, 0, len(stores))
		for _, st := range stores {
			if st.DistrictID == district {
				filtered = append(filtered, st)
			}
		}
		stores = filtered
	}
	writeJSON(w, http.StatusOK, stores)
}

func (s *server) handleLoginCandidates(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.Users(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, roster.LoginCandidates(users, q.Get("districtId"), q.Get("storeId")))
}

func (s *server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	users, err := s.store.Users(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roster.VisibleUsers(actor, users))
}

func (s *server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if !actor.CanManageRoster() {
		s.writeError(w, r, fmt.Errorf("%w: %s cannot manage the roster", errForbidden, actor.Role))
		return
	}
	var req addUserRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	role, err := roster.ParseRole(req.Role)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	dir, err := store.Directory(r.Context(), s.store)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := dir.PlaceNewUser(actor, req.Name, role, req.StoreID)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	u.ID = ids.Prefixed("u_")
	if err := s.store.SaveUser(r.Context(), u); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	target, err := s.store.User(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !actor.CanManageRoster() || !actor.CanSeeUser(target) || target.ID == actor.ID {
		s.writeError(w, r, fmt.Errorf("%w: cannot remove %s", errForbidden, target.Name))
		return
	}
	if err := s.store.DeleteUser(r.Context(), target.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	all, err := s.catalog.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]scenarioSummary, 0, len(all))
	for _, sc := range all {
		out = append(out, summarize(sc))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetScenario returns the full scenario to authors and the summary to
// everyone else.
func (s *server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	sc, err := s.catalog.Get(r.Context(), mux.Vars(r)["scenarioId"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if actor.CanAuthorScenarios() {
		writeJSON(w, http.StatusOK, sc)
		return
	}
	writeJSON(w, http.StatusOK, summarize(sc))
}

func (s *server) handleDeleteScenario(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if !actor.CanAuthorScenarios() {
		s.writeError(w, r, fmt.Errorf("%w: %s cannot manage scenarios", errForbidden, actor.Role))
		return
	}
	if err := s.store.DeleteCustomScenario(r.Context(), mux.Vars(r)["scenarioId"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleDrawQuiz(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.actor(w, r); !ok {
		return
	}
	bank, err := s.store.Questions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	drawn := s.draw(bank)
	out := make([]quiz.PublicQuestion, 0, len(drawn))
	for _, q := range drawn {
		out = append(out, q.Public())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	var req quizSubmission
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	bank, err := s.store.Questions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	score, total, err := quiz.Score(bank, req.Answers)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	dir, err := store.Directory(r.Context(), s.store)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result := quiz.NewResult(actor, dir, score, total, s.now())
	result.ID = ids.Prefixed("qr_")
	if err := s.store.AppendResult(r.Context(), result); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resultResponse{Result: result, Percent: result.Percent()})
}

func (s *server) handleListResults(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	results, err := s.store.Results(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]quiz.Result, 0, len(results))
	for _, res := range results {
		if actor.CanSeeRecord(res.Scope()) {
			out = append(out, res)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) quizManager(w http.ResponseWriter, r *http.Request) bool {
	actor, ok := s.actor(w, r)
	if !ok {
		return false
	}
	if !actor.CanManageQuiz() {
		s.writeError(w, r, fmt.Errorf("%w: %s cannot manage the quiz", errForbidden, actor.Role))
		return false
	}
	return true
}

func (s *server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	if !s.quizManager(w, r) {
		return
	}
	bank, err := s.store.Questions(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bank)
}

func (s *server) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	if !s.quizManager(w, r) {
		return
	}
	var q quiz.Question
	if err := decodeJSON(r, &q); err != nil {
		s.writeError(w, r, err)
		return
	}
	q.ID = ids.Prefixed("q_")
	if err := s.store.SaveQuestion(r.Context(), q); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (s *server) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	if !s.quizManager(w, r) {
		return
	}
	var q quiz.Question
	if err := decodeJSON(r, &q); err != nil {
		s.writeError(w, r, err)
		return
	}
	q.ID = mux.Vars(r)["questionId"]
	if err := s.store.SaveQuestion(r.Context(), q); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *server) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if !s.quizManager(w, r) {
		return
	}
	if err := s.store.DeleteQuestion(r.Context(), mux.Vars(r)["questionId"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleListTranscripts(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	if !actor.CanReviewHunts() {
		s.writeError(w, r, fmt.Errorf("%w: %s cannot review hunts", errForbidden, actor.Role))
		return
	}
	all, err := s.store.Transcripts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]session.Transcript, 0, len(all))
	for _, t := range all {
		if actor.CanSeeRecord(t.Scope()) {
			out = append(out, t)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) dataManager(w http.ResponseWriter, r *http.Request) bool {
	actor, ok := s.actor(w, r)
	if !ok {
		return false
	}
	if !actor.CanManageData() {
		s.writeError(w, r, fmt.Errorf("%w: %s cannot manage data", errForbidden, actor.Role))
		return false
	}
	return true
}

func (s *server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !s.dataManager(w, r) {
		return
	}
	doc, err := s.store.Export(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="hunt-export.json"`)
	writeJSON(w, http.StatusOK, doc)
}

func (s *server) handleImport(w http.ResponseWriter, r *http.Request) {
	if !s.dataManager(w, r) {
		return
	}
	var doc store.Document
	if err := decodeJSONLimit(r, &doc, maxImportBytes); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.Import(r.Context(), doc); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
