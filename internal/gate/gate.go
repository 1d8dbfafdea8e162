// Package gate implements the phone-number verification step that unlocks
// the proposal console.
package gate

import "strings"

// Normalize strips every non-digit character.
func Normalize(phone string) string {
	var sb strings.Builder
	sb.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Matches compares two phone numbers on their digits alone. An empty
// candidate never matches.
func Matches(candidate, expected string) bool {
	c := Normalize(candidate)
	return c != "" && c == Normalize(expected)
}

type Result struct {
	Open   bool `json:"open"`
	Failed bool `json:"failed"`
}

// PhoneGate is closed until a matching number is submitted; it then stays
// open until Reset. Not safe for concurrent use.
type PhoneGate struct {
	expected string
	open     bool
	failed   bool
}

func New(expected string) *PhoneGate {
	return &PhoneGate{expected: expected}
}

// Submit checks candidate against the scenario number. The failure flag
// reflects only the latest attempt. Once open, Submit has no effect.
func (g *PhoneGate) Submit(candidate string) Result {
	if g.open {
		return g.State()
	}
	if Matches(candidate, g.expected) {
		g.open = true
		g.failed = false
	} else {
		g.failed = true
	}
	return g.State()
}

func (g *PhoneGate) Open() bool {
	return g.open
}

func (g *PhoneGate) Failed() bool {
	return g.failed
}

func (g *PhoneGate) State() Result {
	return Result{Open: g.open, Failed: g.failed}
}

// Reset closes the gate ("log out of account").
func (g *PhoneGate) Reset() {
	g.open = false
	g.failed = false
}
