package earnedvalue

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
)

// TotalWeight is the exact sum every template must reach.
var TotalWeight = decimal.NewFromInt(100)

// ValidateTemplate rejects templates whose weights do not sum to exactly 100.
// The sum is exact decimal arithmetic, so 33.33+33.33+33.34 passes and
// 33.33+33.33+33.33 fails.
func ValidateTemplate(milestones []progress.MilestoneDefinition) error {
	if len(milestones) == 0 {
		return ErrEmptyTemplate
	}
	seen := make(map[string]struct{}, len(milestones))
	sum := decimal.Zero
	for _, m := range milestones {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return &MilestoneError{Reason: "name is required"}
		}
		if name != m.Name {
			return &MilestoneError{Name: m.Name, Reason: "name has surrounding whitespace"}
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return &MilestoneError{Name: name, Reason: "duplicate milestone name"}
		}
		seen[key] = struct{}{}
		if m.Weight.IsNegative() || m.Weight.GreaterThan(TotalWeight) {
			return &MilestoneError{Name: name, Reason: "weight must be between 0 and 100"}
		}
		sum = sum.Add(m.Weight)
	}
	if !sum.Equal(TotalWeight) {
		return &WeightSumError{Sum: sum}
	}
	return nil
}

// NormalizeDefinitions trims names, assigns missing order values from list
// position and returns the definitions sorted by order.
func NormalizeDefinitions(in []progress.MilestoneDefinition) []progress.MilestoneDefinition {
	out := make([]progress.MilestoneDefinition, len(in))
	assign := true
	for _, m := range in {
		if m.Order != 0 {
			assign = false
			break
		}
	}
	for i, m := range in {
		m.Name = strings.TrimSpace(m.Name)
		if assign {
			m.Order = i + 1
		}
		out[i] = m
	}
	progress.SortDefinitions(out)
	return out
}

// PendingApprovals lists completed milestones whose definition requires a
// secondary sign-off, in template order.
func PendingApprovals(t *progress.Template, current progress.MilestoneState) []string {
	if t == nil {
		return nil
	}
	var out []string
	for _, def := range t.Milestones {
		if !def.RequiresSecondaryApproval {
			continue
		}
		v, ok := current[def.Name]
		if !ok {
			continue
		}
		if v.Fraction(def.IsPartial).Equal(decimal.NewFromInt(1)) {
			out = append(out, def.Name)
		}
	}
	return out
}
