package earnedvalue

import (
	"github.com/shopspring/decimal"

	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
)

const decimals = 2

// round2 rounds half-up; inputs are never negative so Round's half-away-from-zero matches.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(decimals)
}

// weightedPercent is the unrounded weighted completion (0..100).
// Names missing from the template are ignored; names missing from current contribute 0.
func weightedPercent(t *progress.Template, current progress.MilestoneState) decimal.Decimal {
	total := decimal.Zero
	if t == nil {
		return total
	}
	for _, def := range t.Milestones {
		v, ok := current[def.Name]
		if !ok {
			continue
		}
		total = total.Add(def.Weight.Mul(v.Fraction(def.IsPartial)))
	}
	if total.GreaterThan(TotalWeight) {
		return TotalWeight
	}
	return total
}

// ComputePercentComplete returns the weighted percent complete (0..100) rounded
// half-up to two decimals. A nil template yields 0.
func ComputePercentComplete(t *progress.Template, current progress.MilestoneState) decimal.Decimal {
	return round2(weightedPercent(t, current))
}

// NormalizeState rewrites every value whose name exists in the template into
// the tag its definition expects. Unknown names are kept untouched.
func NormalizeState(t *progress.Template, current progress.MilestoneState) progress.MilestoneState {
	out := make(progress.MilestoneState, len(current))
	for name, v := range current {
		if def, ok := t.Definition(name); ok {
			out[name] = v.Normalize(def.IsPartial)
			continue
		}
		out[name] = v
	}
	return out
}
