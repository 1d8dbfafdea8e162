// Package billing holds the account line model and the pricing calculator.
package billing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IncludedToken is the wire form of a plan bundled at no incremental charge.
const IncludedToken = "Included"

// AutopayDiscount is the per-line credit for autopay enrollment.
const AutopayDiscount = 5.0

// MRC is a monthly recurring charge: either a non-negative amount or the
// "Included" sentinel.
type MRC struct {
	Amount   float64
	Included bool
}

func Amount(v float64) MRC {
	return MRC{Amount: v}
}

func Included() MRC {
	return MRC{Included: true}
}

// Effective is the amount that counts toward a line total.
func (m MRC) Effective() float64 {
	if m.Included {
		return 0
	}
	return m.Amount
}

func (m MRC) String() string {
	if m.Included {
		return IncludedToken
	}
	return strconv.FormatFloat(m.Amount, 'f', -1, 64)
}

func (m MRC) MarshalJSON() ([]byte, error) {
	if m.Included {
		return json.Marshal(IncludedToken)
	}
	return json.Marshal(m.Amount)
}

func (m *MRC) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseMRC(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMRC coerces an untrusted value into an MRC. The literal "Included"
// maps to the sentinel; anything else must be a finite non-negative number.
func ParseMRC(v any) (MRC, error) {
	if s, ok := v.(string); ok && strings.TrimSpace(s) == IncludedToken {
		return Included(), nil
	}
	amount, err := ParseAmount(v)
	if err != nil {
		return MRC{}, fmt.Errorf("mrc: %w", err)
	}
	return Amount(amount), nil
}

// ParseAmount coerces an untrusted value into a finite non-negative amount.
func ParseAmount(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n.String())
		}
		f = parsed
	case string:
		trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(n), "$"))
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", n)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	if f < 0 {
		return 0, fmt.Errorf("negative amount %v", f)
	}
	return f, nil
}

// Autopay is the enrollment flag; it travels as "Yes"/"No".
type Autopay bool

func (a Autopay) MarshalJSON() ([]byte, error) {
	if a {
		return []byte(`"Yes"`), nil
	}
	return []byte(`"No"`), nil
}

func (a *Autopay) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseAutopay(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAutopay accepts "Yes"/"No" (any case), "true"/"false" and booleans.
func ParseAutopay(v any) (Autopay, error) {
	switch t := v.(type) {
	case bool:
		return Autopay(t), nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "yes", "y", "true", "on":
			return true, nil
		case "no", "n", "false", "off":
			return false, nil
		}
		return false, fmt.Errorf("autopay: unrecognized value %q", t)
	default:
		return false, fmt.Errorf("autopay: unsupported type %T", v)
	}
}

// Line is one billable account component.
type Line struct {
	RatePlan    string  `json:"ratePlan"`
	MRC         MRC     `json:"mrc"`
	Discount    float64 `json:"discount"`
	Features    float64 `json:"features"`
	EIP         float64 `json:"eip"`
	DevicePromo float64 `json:"devicePromo"`
	Autopay     Autopay `json:"autopay"`
}

// Validate checks the non-negative invariant on every monetary field.
func (l Line) Validate() error {
	if !l.MRC.Included && (l.MRC.Amount < 0 || math.IsNaN(l.MRC.Amount) || math.IsInf(l.MRC.Amount, 0)) {
		return fmt.Errorf("mrc must be a non-negative number or %q", IncludedToken)
	}
	fields := []struct {
		name  string
		value float64
	}{
		{"discount", l.Discount},
		{"features", l.Features},
		{"eip", l.EIP},
		{"devicePromo", l.DevicePromo},
	}
	for _, f := range fields {
		if f.value < 0 || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("%s must be a non-negative number", f.name)
		}
	}
	return nil
}

// CloneLines returns an independent copy of lines. Line holds only values, so
// a slice copy is a deep copy.
func CloneLines(lines []Line) []Line {
	if lines == nil {
		return nil
	}
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}
