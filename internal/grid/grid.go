// Package grid implements the proposed-offer billing grid and the closed
// command vocabulary through which it is mutated.
package grid

import (
	"encoding/json"
	"fmt"

	"mobilepro.local/hunt-gateway/internal/billing"
)

const (
	defaultMRC     = 35.0
	defaultAutopay = true
)

// Grid is an ordered set of account lines. Indexes address lines.
// Grid is not safe for concurrent use; the session owning it serializes access.
type Grid struct {
	lines    []billing.Line
	minLines int
}

// New returns a grid without a removal floor.
func New(lines []billing.Line) *Grid {
	return &Grid{lines: billing.CloneLines(lines)}
}

// NewEditable returns a trainee-editable grid: removeLine never takes it below
// one line. The input is deep-copied.
func NewEditable(lines []billing.Line) *Grid {
	return &Grid{lines: billing.CloneLines(lines), minLines: 1}
}

func (g *Grid) Len() int {
	return len(g.lines)
}

func (g *Grid) MinLines() int {
	return g.minLines
}

// Lines returns a copy of the current lines.
func (g *Grid) Lines() []billing.Line {
	out := billing.CloneLines(g.lines)
	if out == nil {
		return []billing.Line{}
	}
	return out
}

func (g *Grid) Line(index int) (billing.Line, bool) {
	if index < 0 || index >= len(g.lines) {
		return billing.Line{}, false
	}
	return g.lines[index], true
}

func (g *Grid) Totals() billing.Totals {
	return billing.GridTotals(g.lines)
}

func (g *Grid) Clone() *Grid {
	return &Grid{lines: billing.CloneLines(g.lines), minLines: g.minLines}
}

// UpdateLine merges the supplied fields into the line at index. It reports
// false and leaves the grid untouched when index is out of bounds.
func (g *Grid) UpdateLine(index int, patch Patch) bool {
	if index < 0 || index >= len(g.lines) {
		return false
	}
	updated := patch.applyTo(g.lines[index])
	if updated == g.lines[index] {
		return false
	}
	g.lines[index] = updated
	return true
}

// AddLine appends a line built from patch, with defaults for omitted fields.
func (g *Grid) AddLine(patch Patch) billing.Line {
	line := billing.Line{
		RatePlan: fmt.Sprintf("Line %d", len(g.lines)+1),
		MRC:      billing.Amount(defaultMRC),
		Autopay:  defaultAutopay,
	}
	line = patch.applyTo(line)
	g.lines = append(g.lines, line)
	return line
}

// RemoveLine deletes the line at index unless index is out of range or the
// removal would cross the grid's floor.
func (g *Grid) RemoveLine(index int) bool {
	if index < 0 || index >= len(g.lines) {
		return false
	}
	if len(g.lines)-1 < g.minLines {
		return false
	}
	g.lines = append(g.lines[:index], g.lines[index+1:]...)
	return true
}

// Clear empties the grid regardless of its floor. It is the precursor to a
// full replacement through AddLine.
func (g *Grid) Clear() bool {
	if len(g.lines) == 0 {
		return false
	}
	g.lines = g.lines[:0]
	return true
}

func (g *Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Lines())
}

// StarterLine is the template used by the console's "add line" action.
func StarterLine(n int) billing.Line {
	return billing.Line{
		RatePlan:    fmt.Sprintf("Go5G Plus (Line %d)", n),
		MRC:         billing.Amount(35),
		Features:    18,
		EIP:         35,
		DevicePromo: 35,
		Autopay:     true,
	}
}
