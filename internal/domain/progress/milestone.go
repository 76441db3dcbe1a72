package progress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// MilestoneDefinition is one weighted step of a template.
type MilestoneDefinition struct {
	Name                      string          `json:"name" yaml:"name"`
	Weight                    decimal.Decimal `json:"weight" yaml:"weight"`
	Order                     int             `json:"order" yaml:"order"`
	IsPartial                 bool            `json:"is_partial" yaml:"is_partial"`
	RequiresSecondaryApproval bool            `json:"requires_secondary_approval" yaml:"requires_secondary_approval"`
}

// SortDefinitions orders definitions by Order, then name, in place.
func SortDefinitions(defs []MilestoneDefinition) {
	sort.SliceStable(defs, func(i, j int) bool {
		if defs[i].Order != defs[j].Order {
			return defs[i].Order < defs[j].Order
		}
		return defs[i].Name < defs[j].Name
	})
}

type ValueKind uint8

const (
	ValueUnset ValueKind = iota
	ValueBool
	ValueNumber
)

// MilestoneValue is the tagged value stored per milestone name: a boolean for
// discrete milestones or a 0..100 number for partial ones.
type MilestoneValue struct {
	Kind   ValueKind
	Bool   bool
	Number decimal.Decimal
}

func Done(b bool) MilestoneValue { return MilestoneValue{Kind: ValueBool, Bool: b} }

func Percent(v float64) MilestoneValue {
	return MilestoneValue{Kind: ValueNumber, Number: decimal.NewFromFloat(v)}
}

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Fraction returns the completed share (0..1) of a milestone, reading the
// value through the template's is_partial flag. Partial milestones accept
// booleans as 0/100; discrete milestones accept legacy numeric 1/0 encodings.
func (v MilestoneValue) Fraction(partial bool) decimal.Decimal {
	switch v.Kind {
	case ValueBool:
		if v.Bool {
			return one
		}
		return decimal.Zero
	case ValueNumber:
		if !partial {
			if v.Number.IsPositive() {
				return one
			}
			return decimal.Zero
		}
		n := v.Number
		if n.IsNegative() {
			n = decimal.Zero
		}
		if n.GreaterThan(hundred) {
			n = hundred
		}
		return n.Div(hundred)
	default:
		return decimal.Zero
	}
}

// Normalize rewrites the value into the tag implied by the template flag.
func (v MilestoneValue) Normalize(partial bool) MilestoneValue {
	if v.Kind == ValueUnset {
		return v
	}
	f := v.Fraction(partial)
	if partial {
		return MilestoneValue{Kind: ValueNumber, Number: f.Mul(hundred)}
	}
	return Done(f.Equal(one))
}

func (v MilestoneValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueBool:
		return json.Marshal(v.Bool)
	case ValueNumber:
		return []byte(v.Number.String()), nil
	default:
		return []byte("null"), nil
	}
}

func (v *MilestoneValue) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(raw, []byte("null")):
		*v = MilestoneValue{}
		return nil
	case bytes.Equal(raw, []byte("true")):
		*v = Done(true)
		return nil
	case bytes.Equal(raw, []byte("false")):
		*v = Done(false)
		return nil
	}
	s := strings.Trim(string(raw), `"`)
	n, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("milestone value %s: must be boolean or number", string(raw))
	}
	*v = MilestoneValue{Kind: ValueNumber, Number: n}
	return nil
}

// MilestoneState maps milestone name to its current value. Iteration order is
// taken from the template, never from the map.
type MilestoneState map[string]MilestoneValue

// Merge returns a copy of s with changes applied; unset values remove the key.
func (s MilestoneState) Merge(changes MilestoneState) MilestoneState {
	out := make(MilestoneState, len(s)+len(changes))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range changes {
		if v.Kind == ValueUnset {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}

// Equal reports whether both states hold the same values.
func (s MilestoneState) Equal(other MilestoneState) bool {
	if len(s) != len(other) {
		return false
	}
	for k, a := range s {
		b, ok := other[k]
		if !ok || a.Kind != b.Kind || a.Bool != b.Bool || !a.Number.Equal(b.Number) {
			return false
		}
	}
	return true
}
