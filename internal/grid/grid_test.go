package grid

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobilepro.local/hunt-gateway/internal/billing"
)

func threeLines() []billing.Line {
	return []billing.Line{
		{RatePlan: "Legacy (L1)", MRC: billing.Amount(100), Features: 9},
		{RatePlan: "Legacy (L2)", MRC: billing.Included(), Features: 9},
		{RatePlan: "Add-on (L3)", MRC: billing.Amount(20), EIP: 25, DevicePromo: 25},
	}
}

func ptr[T any](v T) *T { return &v }

func TestNewEditableCopiesInput(t *testing.T) {
	lines := threeLines()
	g := NewEditable(lines)
	lines[0].RatePlan = "mutated"

	got, ok := g.Line(0)
	require.True(t, ok)
	assert.Equal(t, "Legacy (L1)", got.RatePlan)

	out := g.Lines()
	out[1].Features = 99
	got, _ = g.Line(1)
	assert.Equal(t, 9.0, got.Features)
}

func TestUpdateLineMergesFields(t *testing.T) {
	g := NewEditable(threeLines())
	changed := g.UpdateLine(2, Patch{MRC: ptr(billing.Included()), Autopay: ptr(true)})
	require.True(t, changed)

	want := billing.Line{RatePlan: "Add-on (L3)", MRC: billing.Included(), EIP: 25, DevicePromo: 25, Autopay: true}
	got, _ := g.Line(2)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("line mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateLineOutOfRangeIsNoOp(t *testing.T) {
	g := NewEditable(threeLines())
	before := g.Lines()

	assert.False(t, g.UpdateLine(3, Patch{Discount: ptr(5.0)}))
	assert.False(t, g.UpdateLine(-1, Patch{Discount: ptr(5.0)}))
	if diff := cmp.Diff(before, g.Lines()); diff != "" {
		t.Fatalf("grid changed (-before +after):\n%s", diff)
	}
}

func TestAddLineDefaults(t *testing.T) {
	g := NewEditable(threeLines())
	line := g.AddLine(Patch{})

	assert.Equal(t, 4, g.Len())
	assert.Equal(t, billing.Line{RatePlan: "Line 4", MRC: billing.Amount(35), Autopay: true}, line)
	assert.Equal(t, 30.0, billing.LineTotal(line))
}

func TestRemoveLineRespectsFloor(t *testing.T) {
	g := NewEditable(threeLines())
	require.True(t, g.RemoveLine(0))
	require.True(t, g.RemoveLine(0))
	assert.Equal(t, 1, g.Len())

	assert.False(t, g.RemoveLine(0))
	assert.Equal(t, 1, g.Len())
	assert.False(t, g.RemoveLine(5))

	unbounded := New(threeLines()[:1])
	assert.True(t, unbounded.RemoveLine(0))
	assert.Equal(t, 0, unbounded.Len())
}

func TestClearIgnoresFloor(t *testing.T) {
	g := NewEditable(threeLines())
	require.True(t, g.Clear())
	assert.Equal(t, 0, g.Len())
	assert.Equal(t, billing.Totals{}, g.Totals())
	assert.False(t, g.Clear())
	assert.Equal(t, "[]", mustJSON(t, g))
}

func TestClearThenAddProducesExactlyTheAddedLines(t *testing.T) {
	added := []billing.Line{
		{RatePlan: "Go5G Plus", MRC: billing.Amount(90), Autopay: true},
		{RatePlan: "Go5G Plus (L2)", MRC: billing.Amount(50), EIP: 10, Autopay: true},
		{RatePlan: "Watch", MRC: billing.Amount(10)},
	}
	for k := 0; k <= len(added); k++ {
		g := NewEditable(threeLines())
		g.Apply(Clear())
		for _, l := range added[:k] {
			g.Apply(Add(PatchFromLine(l)))
		}
		want := append([]billing.Line{}, added[:k]...)
		if diff := cmp.Diff(want, g.Lines()); diff != "" {
			t.Fatalf("k=%d (-want +got):\n%s", k, diff)
		}
	}
}

func TestApplyReportsChanges(t *testing.T) {
	g := NewEditable(threeLines())
	assert.True(t, g.Apply(Update(0, Patch{Discount: ptr(10.0)})))
	assert.False(t, g.Apply(Update(0, Patch{Discount: ptr(10.0)})))
	assert.True(t, g.Apply(Add(Patch{})))
	assert.True(t, g.Apply(Remove(3)))
	assert.False(t, g.Apply(Command{Op: "renameLine"}))
}

func TestCloneIsIndependent(t *testing.T) {
	g := NewEditable(threeLines())
	clone := g.Clone()
	clone.Clear()
	assert.Equal(t, 3, g.Len())
	assert.Equal(t, 1, clone.MinLines())
}

func TestStarterLine(t *testing.T) {
	line := StarterLine(4)
	assert.Equal(t, "Go5G Plus (Line 4)", line.RatePlan)
	assert.Equal(t, 48.0, billing.LineTotal(line))
}

func TestToolDefinitionsMatchOps(t *testing.T) {
	defs := ToolDefinitions()
	require.Len(t, defs, 4)
	for _, def := range defs {
		_, err := ParseOp(def.Name)
		require.NoError(t, err, def.Name)
		assert.True(t, json.Valid(def.InputSchema), def.Name)
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}
