package session

import (
	"mobilepro.local/hunt-gateway/internal/billing"
	"mobilepro.local/hunt-gateway/internal/persona"
)

// Snapshot is a read-only view of a session. Grids are withheld until the
// account gate opens.
type Snapshot struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	ScenarioID     string          `json:"scenarioId"`
	ScenarioTitle  string          `json:"scenarioTitle"`
	Description    string          `json:"description"`
	Phase          Phase           `json:"phase"`
	Mode           persona.Mode    `json:"mode"`
	Turns          []Turn          `json:"turns"`
	Busy           bool            `json:"busy"`
	ChatMinimized  bool            `json:"chatMinimized"`
	GateFailed     bool            `json:"gateFailed"`
	Current        []billing.Line  `json:"current,omitempty"`
	CurrentTotals  *billing.Totals `json:"currentTotals,omitempty"`
	Proposed       []billing.Line  `json:"proposed,omitempty"`
	ProposedTotals billing.Totals  `json:"proposedTotals"`
	BillChange     *float64        `json:"billChange,omitempty"`
	Critique       string          `json:"critique,omitempty"`
	Critiquing     bool            `json:"critiquing"`
	TranscriptID   string          `json:"transcriptId,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:             s.id,
		UserID:         s.owner.ID,
		ScenarioID:     s.scenario.ID,
		ScenarioTitle:  s.scenario.Title,
		Description:    s.scenario.Description,
		Phase:          s.phase,
		Mode:           s.mode.Mode(),
		Turns:          cloneTurns(s.turns),
		Busy:           s.inFlight,
		ChatMinimized:  s.chatMinimized,
		GateFailed:     s.gate.Failed(),
		Proposed:       s.grid.Lines(),
		ProposedTotals: s.grid.Totals(),
		Critique:       s.critique,
		Critiquing:     s.critiquing,
		TranscriptID:   s.transcriptID,
	}
	if s.phase == PhaseLocked {
		// Grids stay hidden until the trainee verifies the account.
		snap.Proposed = nil
		snap.ProposedTotals = billing.Totals{}
		return snap
	}
	current := billing.CloneLines(s.scenario.AccountData)
	currentTotals := billing.GridTotals(current)
	change := billing.BillChange(snap.Proposed, current)
	snap.Current = current
	snap.CurrentTotals = &currentTotals
	snap.BillChange = &change
	return snap
}
