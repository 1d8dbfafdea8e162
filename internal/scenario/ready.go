package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"mobilepro.local/hunt-gateway/internal/billing"
)

// ReadyType marks an authoring reply that carries a finished scenario.
const ReadyType = "SCENARIO_READY"

var ErrNoPayload = errors.New("no scenario payload")

var readyPattern = regexp.MustCompile(`\{[\s\S]*"type"\s*:\s*"SCENARIO_READY"[\s\S]*\}`)

type readyPayload struct {
	Type           string         `json:"type"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	PhoneNumber    string         `json:"phoneNumber"`
	AccountData    []billing.Line `json:"accountData"`
	AIInstructions string         `json:"aiInstructions"`
}

// ParseReady extracts a SCENARIO_READY object from free agent text. It returns
// ErrNoPayload when the text has none and ErrInvalidScenario when the payload
// does not describe a playable scenario. ID and authorship are left to the
// caller.
func ParseReady(text string) (Scenario, error) {
	match := readyPattern.FindString(text)
	if match == "" {
		return Scenario{}, ErrNoPayload
	}

	var payload readyPayload
	if err := json.Unmarshal([]byte(match), &payload); err != nil {
		return Scenario{}, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if payload.Type != ReadyType {
		return Scenario{}, fmt.Errorf("%w: unexpected type %q", ErrInvalidScenario, payload.Type)
	}

	s := Scenario{
		Title:          strings.TrimSpace(payload.Title),
		Description:    strings.TrimSpace(payload.Description),
		PhoneNumber:    strings.TrimSpace(payload.PhoneNumber),
		AccountData:    payload.AccountData,
		AIInstructions: strings.TrimSpace(payload.AIInstructions),
		IsCustom:       true,
	}
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}
