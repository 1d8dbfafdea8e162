package grid

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"mobilepro.local/hunt-gateway/internal/billing"
)

// Op names one of the four grid mutations. The values double as tool names.
type Op string

const (
	OpUpdateLine Op = "updateLine"
	OpAddLine    Op = "addLine"
	OpRemoveLine Op = "removeLine"
	OpClearGrid  Op = "clearGrid"
)

var (
	ErrUnknownOp    = errors.New("unknown grid operation")
	ErrInvalidArgs  = errors.New("invalid grid arguments")
	ErrInvalidIndex = errors.New("invalid line index")
)

func ParseOp(name string) (Op, error) {
	switch op := Op(strings.TrimSpace(name)); op {
	case OpUpdateLine, OpAddLine, OpRemoveLine, OpClearGrid:
		return op, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOp, name)
	}
}

// Patch carries the subset of line fields a command supplies.
type Patch struct {
	RatePlan    *string
	MRC         *billing.MRC
	Discount    *float64
	Features    *float64
	EIP         *float64
	DevicePromo *float64
	Autopay     *bool
}

func (p Patch) applyTo(l billing.Line) billing.Line {
	if p.RatePlan != nil {
		l.RatePlan = *p.RatePlan
	}
	if p.MRC != nil {
		l.MRC = *p.MRC
	}
	if p.Discount != nil {
		l.Discount = *p.Discount
	}
	if p.Features != nil {
		l.Features = *p.Features
	}
	if p.EIP != nil {
		l.EIP = *p.EIP
	}
	if p.DevicePromo != nil {
		l.DevicePromo = *p.DevicePromo
	}
	if p.Autopay != nil {
		l.Autopay = billing.Autopay(*p.Autopay)
	}
	return l
}

// PatchFromLine returns a patch that sets every field of l.
func PatchFromLine(l billing.Line) Patch {
	ratePlan := l.RatePlan
	mrc := l.MRC
	discount, features, eip, promo := l.Discount, l.Features, l.EIP, l.DevicePromo
	autopay := bool(l.Autopay)
	return Patch{
		RatePlan:    &ratePlan,
		MRC:         &mrc,
		Discount:    &discount,
		Features:    &features,
		EIP:         &eip,
		DevicePromo: &promo,
		Autopay:     &autopay,
	}
}

// Command is one validated grid mutation.
type Command struct {
	Op    Op
	Index int
	Patch Patch
}

func Update(index int, patch Patch) Command { return Command{Op: OpUpdateLine, Index: index, Patch: patch} }
func Add(patch Patch) Command               { return Command{Op: OpAddLine, Patch: patch} }
func Remove(index int) Command              { return Command{Op: OpRemoveLine, Index: index} }
func Clear() Command                        { return Command{Op: OpClearGrid} }

// Apply executes cmd and reports whether the grid changed. Invalid commands
// are no-ops.
func (g *Grid) Apply(cmd Command) bool {
	switch cmd.Op {
	case OpUpdateLine:
		return g.UpdateLine(cmd.Index, cmd.Patch)
	case OpAddLine:
		g.AddLine(cmd.Patch)
		return true
	case OpRemoveLine:
		return g.RemoveLine(cmd.Index)
	case OpClearGrid:
		return g.Clear()
	default:
		return false
	}
}

// DecodeJSON decodes raw tool-call arguments and validates them as a command.
func DecodeJSON(name string, raw json.RawMessage) (Command, error) {
	args := map[string]any{}
	if trimmed := strings.TrimSpace(string(raw)); trimmed != "" && trimmed != "null" {
		dec := json.NewDecoder(strings.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&args); err != nil {
			return Command{}, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
		}
	}
	return Decode(name, args)
}

// Decode turns an untrusted operation name and flat argument record into a
// Command. updateLine rejects the whole call on any malformed field; addLine
// drops malformed fields so their defaults apply.
func Decode(name string, args map[string]any) (Command, error) {
	op, err := ParseOp(name)
	if err != nil {
		return Command{}, err
	}

	switch op {
	case OpUpdateLine:
		index, err := decodeIndex(args)
		if err != nil {
			return Command{}, err
		}
		patch, err := decodePatch(args, true)
		if err != nil {
			return Command{}, err
		}
		return Update(index, patch), nil
	case OpAddLine:
		patch, _ := decodePatch(args, false)
		return Add(patch), nil
	case OpRemoveLine:
		index, err := decodeIndex(args)
		if err != nil {
			return Command{}, err
		}
		return Remove(index), nil
	default:
		return Clear(), nil
	}
}

func decodeIndex(args map[string]any) (int, error) {
	raw, ok := args["index"]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%w: index is required", ErrInvalidIndex)
	}
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		return v, nil
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidIndex, v.String())
		}
		f = parsed
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidIndex, v)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidIndex, raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidIndex, f)
	}
	return int(f), nil
}

func decodePatch(args map[string]any, strict bool) (Patch, error) {
	var patch Patch
	var firstErr error
	fail := func(field string, err error) {
		if firstErr == nil {
			firstErr = fmt.Errorf("%w: %s: %v", ErrInvalidArgs, field, err)
		}
	}

	if v, ok := present(args, "ratePlan"); ok {
		if s, isString := v.(string); isString && strings.TrimSpace(s) != "" {
			trimmed := strings.TrimSpace(s)
			patch.RatePlan = &trimmed
		} else {
			fail("ratePlan", fmt.Errorf("must be a non-empty string"))
		}
	}
	if v, ok := present(args, "mrc"); ok {
		if mrc, err := billing.ParseMRC(v); err == nil {
			patch.MRC = &mrc
		} else {
			fail("mrc", err)
		}
	}
	amounts := []struct {
		key string
		dst **float64
	}{
		{"discount", &patch.Discount},
		{"features", &patch.Features},
		{"eip", &patch.EIP},
		{"devicePromo", &patch.DevicePromo},
	}
	for _, a := range amounts {
		v, ok := present(args, a.key)
		if !ok {
			continue
		}
		amount, err := billing.ParseAmount(v)
		if err != nil {
			fail(a.key, err)
			continue
		}
		*a.dst = &amount
	}
	if v, ok := present(args, "autopay"); ok {
		if autopay, err := billing.ParseAutopay(v); err == nil {
			b := bool(autopay)
			patch.Autopay = &b
		} else {
			fail("autopay", err)
		}
	}

	if strict && firstErr != nil {
		return Patch{}, firstErr
	}
	return patch, firstErr
}

func present(args map[string]any, key string) (any, bool) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}
