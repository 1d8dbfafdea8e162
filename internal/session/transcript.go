package session

import (
	"context"
	"encoding/json"
	"fmt"

	"mobilepro.local/hunt-gateway/internal/billing"
	"mobilepro.local/hunt-gateway/internal/roster"
	"mobilepro.local/hunt-gateway/internal/scenario"
)

// Transcript is the immutable record of a finished hunt.
type Transcript struct {
	ID            string         `json:"id"`
	UserID        string         `json:"userId"`
	UserName      string         `json:"userName"`
	StoreID       string         `json:"storeId,omitempty"`
	DistrictID    string         `json:"districtId,omitempty"`
	StoreName     string         `json:"storeName"`
	ScenarioID    string         `json:"scenarioId,omitempty"`
	ScenarioTitle string         `json:"scenarioTitle"`
	Grid          []billing.Line `json:"grid,omitempty"`
	Rationale     string         `json:"rationale,omitempty"`
	Solution      string         `json:"solution"`
	ProposedTotal float64        `json:"proposedTotal"`
	BaselineTotal float64        `json:"baselineTotal"`
	Timestamp     int64          `json:"timestamp"`
}

func (t Transcript) Scope() roster.Scope {
	return roster.Scope{UserID: t.UserID, StoreID: t.StoreID, DistrictID: t.DistrictID}
}

// TranscriptSink persists finished hunts.
type TranscriptSink interface {
	AppendTranscript(ctx context.Context, t Transcript) error
}

// ScenarioSink persists leader-authored scenarios.
type ScenarioSink interface {
	SaveCustomScenario(ctx context.Context, s scenario.Scenario) error
}

// solutionText renders the grid and rationale in the legacy single-field form
// reviewers read on the dashboard.
func solutionText(lines []billing.Line, rationale string) string {
	raw, err := json.Marshal(lines)
	if err != nil {
		raw = []byte("[]")
	}
	return fmt.Sprintf("GRID: %s\n\nSTRATEGY: %s", raw, rationale)
}
