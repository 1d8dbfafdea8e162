// Package scenario defines training scenarios, the builtin catalog and the
// parser for agent-authored scenario payloads.
package scenario

import (
	"errors"
	"fmt"
	"strings"

	"mobilepro.local/hunt-gateway/internal/billing"
	"mobilepro.local/hunt-gateway/internal/gate"
	"mobilepro.local/hunt-gateway/internal/persona"
)

var (
	ErrInvalidScenario = errors.New("invalid scenario")
	ErrNotFound        = errors.New("scenario not found")
)

// Scenario is an immutable training case. Sessions work on Clone copies.
type Scenario struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	PhoneNumber    string         `json:"phoneNumber"`
	AccountData    []billing.Line `json:"accountData"`
	AIInstructions string         `json:"aiInstructions,omitempty"`
	CreatedBy      string         `json:"createdBy,omitempty"`
	IsCustom       bool           `json:"isCustom,omitempty"`
}

func (s Scenario) Clone() Scenario {
	s.AccountData = billing.CloneLines(s.AccountData)
	return s
}

// Validate checks the fields every playable scenario needs.
func (s Scenario) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidScenario)
	}
	if strings.TrimSpace(s.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidScenario)
	}
	if gate.Normalize(s.PhoneNumber) == "" {
		return fmt.Errorf("%w: phone number must contain digits", ErrInvalidScenario)
	}
	if len(s.AccountData) == 0 {
		return fmt.Errorf("%w: account data needs at least one line", ErrInvalidScenario)
	}
	for i, line := range s.AccountData {
		if err := line.Validate(); err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrInvalidScenario, i, err)
		}
	}
	return nil
}

// Brief is the persona context derived from the scenario.
func (s Scenario) Brief() persona.Brief {
	return persona.Brief{
		Description: s.Description,
		PhoneNumber: s.PhoneNumber,
		Account:     billing.CloneLines(s.AccountData),
		Notes:       s.AIInstructions,
	}
}

// BaselineTotal is the current monthly bill of the scenario's account.
func (s Scenario) BaselineTotal() float64 {
	return billing.GridTotals(s.AccountData).Total
}
