// Package persona holds the two-state conversation mode machine and the
// per-mode instruction text and tool vocabulary handed to the agent.
package persona

import (
	"encoding/json"
	"fmt"
	"strings"

	"mobilepro.local/hunt-gateway/internal/billing"
	"mobilepro.local/hunt-gateway/internal/grid"
	"mobilepro.local/hunt-gateway/internal/model"
)

type Mode string

const (
	Customer Mode = "customer"
	Coach    Mode = "coach"
)

// OpeningRemark seeds every discovery conversation.
const OpeningRemark = "Hi there! I'm here to talk about my bill. It's getting a bit high..."

func ParseMode(value string) (Mode, error) {
	switch mode := Mode(strings.ToLower(strings.TrimSpace(value))); mode {
	case Customer, Coach:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown conversation mode %q", value)
	}
}

// Toggle returns the other mode. Unknown values fall back to Coach since the
// zero value behaves as Customer.
func (m Mode) Toggle() Mode {
	if m == Coach {
		return Customer
	}
	return Coach
}

// Brief is the scenario context a persona is built around.
type Brief struct {
	Description string
	PhoneNumber string
	Account     []billing.Line
	Notes       string
}

type profile struct {
	instruction  func(Brief) string
	tools        func() []model.ToolDefinition
	announcement string
}

var profiles = map[Mode]profile{
	Customer: {
		instruction:  customerInstruction,
		tools:        func() []model.ToolDefinition { return nil },
		announcement: "Back to talking to the customer. Ask for the phone number if you haven't yet!",
	},
	Coach: {
		instruction:  coachInstruction,
		tools:        grid.ToolDefinitions,
		announcement: "I'm your Pricing Coach. I can modify the table for you. Tell me what plan and lines you want to add, and let me know if we're replacing the existing lines or just adding to them!",
	},
}

func lookup(mode Mode) profile {
	if p, ok := profiles[mode]; ok {
		return p
	}
	return profiles[Customer]
}

// Instruction is the system prompt for mode, built around brief.
func Instruction(mode Mode, brief Brief) string {
	return lookup(mode).instruction(brief)
}

// Tools is the command vocabulary exposed in mode. Customer mode has none.
func Tools(mode Mode) []model.ToolDefinition {
	return lookup(mode).tools()
}

// Announcement is the synthesized turn appended when mode becomes active.
func Announcement(mode Mode) string {
	return lookup(mode).announcement
}

func customerInstruction(b Brief) string {
	var sb strings.Builder
	sb.WriteString("You are a T-Mobile customer visiting a retail store.\n")
	fmt.Fprintf(&sb, "SCENARIO: %s\n", b.Description)
	fmt.Fprintf(&sb, "ACCOUNT: %s\n", accountJSON(b.Account))
	fmt.Fprintf(&sb, "YOUR PHONE: %s\n\n", b.PhoneNumber)
	sb.WriteString("RULES:\n")
	sb.WriteString("1. Act like a casual, slightly stressed customer.\n")
	fmt.Fprintf(&sb, "2. REVEAL YOUR PHONE NUMBER (%s) ONLY IF ASKED. Never volunteer it.\n", b.PhoneNumber)
	sb.WriteString("3. Mention business or family growth if prompted.\n")
	if notes := strings.TrimSpace(b.Notes); notes != "" {
		fmt.Fprintf(&sb, "\nADDITIONAL DIRECTIONS:\n%s\n", notes)
	}
	return sb.String()
}

func coachInstruction(Brief) string {
	return `You are the Pricing Coach. Help the Expert fill out the "Proposed Offer" grid.

GOAL: Guide the Expert through adding 5 lines.

INSTRUCTIONS:
1. Use the provided tools (updateLine, addLine, removeLine, clearGrid) to modify the grid.
2. When the Expert provides details for new lines, ASK: "Should I replace your current plan lines with these new details, or just add them to what's already there?" before making bulk changes.
3. If they say "replace", use clearGrid or removeLine to clean up old lines before adding new ones.
4. If they say "add", just use addLine.
5. Help them verify the math, including the AutoPay column which gives a $5 discount per line when "Yes" is selected.`
}

func accountJSON(lines []billing.Line) string {
	if lines == nil {
		lines = []billing.Line{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

// Machine tracks the active mode for one session. The zero value is in
// Customer mode.
type Machine struct {
	mode Mode
}

func (m *Machine) Mode() Mode {
	if m.mode == "" {
		return Customer
	}
	return m.mode
}

// Switch toggles the mode and returns the new mode with its announcement.
func (m *Machine) Switch() (Mode, string) {
	m.mode = m.Mode().Toggle()
	return m.mode, Announcement(m.mode)
}

func (m *Machine) Reset() {
	m.mode = Customer
}
