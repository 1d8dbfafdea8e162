package grid

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobilepro.local/hunt-gateway/internal/billing"
)

func TestDecodeUnknownOp(t *testing.T) {
	_, err := Decode("dropTable", nil)
	assert.ErrorIs(t, err, ErrUnknownOp)
}

func TestDecodeUpdateLine(t *testing.T) {
	cmd, err := Decode("updateLine", map[string]any{
		"index":    float64(1),
		"mrc":      "Included",
		"discount": "$10",
		"autopay":  "Yes",
	})
	require.NoError(t, err)
	assert.Equal(t, OpUpdateLine, cmd.Op)
	assert.Equal(t, 1, cmd.Index)
	require.NotNil(t, cmd.Patch.MRC)
	assert.True(t, cmd.Patch.MRC.Included)
	assert.Equal(t, 10.0, *cmd.Patch.Discount)
	assert.True(t, *cmd.Patch.Autopay)
	assert.Nil(t, cmd.Patch.Features)
}

func TestDecodeUpdateLineRejectsAnyMalformedField(t *testing.T) {
	cases := []map[string]any{
		{"index": 0, "mrc": "abc"},
		{"index": 0, "discount": -5.0},
		{"index": 0, "autopay": "sometimes"},
		{"index": 0, "ratePlan": 12.0},
		{"index": 0.5},
		{"index": "first"},
		{"mrc": 10.0},
	}
	for _, args := range cases {
		_, err := Decode("updateLine", args)
		assert.Error(t, err, "args %v", args)
	}
}

func TestDecodeUpdateLineMalformedFieldLeavesGridUnchanged(t *testing.T) {
	g := NewEditable(threeLines())
	before := g.Lines()

	cmd, err := Decode("updateLine", map[string]any{"index": 0.0, "mrc": "abc", "features": 3.0})
	if err == nil {
		g.Apply(cmd)
	}
	assert.Equal(t, before, g.Lines())
}

func TestDecodeAddLineFallsBackToDefaults(t *testing.T) {
	cmd, err := Decode("addLine", map[string]any{"ratePlan": "Go5G", "mrc": "abc", "eip": "12.5", "autopay": "maybe"})
	require.NoError(t, err)

	g := NewEditable(nil)
	line := g.AddLine(cmd.Patch)
	assert.Equal(t, billing.Line{RatePlan: "Go5G", MRC: billing.Amount(35), EIP: 12.5, Autopay: true}, line)
}

func TestDecodeRemoveAndClear(t *testing.T) {
	cmd, err := Decode("removeLine", map[string]any{"index": "2"})
	require.NoError(t, err)
	assert.Equal(t, Remove(2), cmd)

	_, err = Decode("removeLine", map[string]any{})
	assert.ErrorIs(t, err, ErrInvalidIndex)

	cmd, err = Decode(" clearGrid ", map[string]any{"ignored": true})
	require.NoError(t, err)
	assert.Equal(t, Clear(), cmd)
}

func TestDecodeJSON(t *testing.T) {
	cmd, err := DecodeJSON("updateLine", json.RawMessage(`{"index":2,"mrc":45,"autopay":"No"}`))
	require.NoError(t, err)
	assert.Equal(t, 2, cmd.Index)
	assert.Equal(t, billing.Amount(45), *cmd.Patch.MRC)
	assert.False(t, *cmd.Patch.Autopay)

	cmd, err = DecodeJSON("clearGrid", nil)
	require.NoError(t, err)
	assert.Equal(t, OpClearGrid, cmd.Op)

	_, err = DecodeJSON("addLine", json.RawMessage(`[1,2]`))
	assert.ErrorIs(t, err, ErrInvalidArgs)
}
