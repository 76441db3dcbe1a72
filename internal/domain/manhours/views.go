package manhours

import "github.com/shopspring/decimal"

// GroupDimension selects the component attribute a rollup is grouped by.
type GroupDimension string

const (
	GroupByArea        GroupDimension = "area"
	GroupBySystem      GroupDimension = "system"
	GroupByTestPackage GroupDimension = "test_package"
)

// UnassignedGroup labels components whose grouping attribute is empty.
const UnassignedGroup = "(unassigned)"

func (d GroupDimension) Valid() bool {
	switch d {
	case GroupByArea, GroupBySystem, GroupByTestPackage:
		return true
	default:
		return false
	}
}

// Rollup is a derived earned-value view over the active budget's allocations.
type Rollup struct {
	Key             string          `json:"key"`
	ComponentCount  int64           `json:"component_count"`
	BudgetedHours   decimal.Decimal `json:"budgeted_hours"`
	EarnedHours     decimal.Decimal `json:"earned_hours"`
	RemainingHours  decimal.Decimal `json:"remaining_hours"`
	PercentComplete decimal.Decimal `json:"percent_complete"`
}

// NewRollup derives remaining and percent complete from the two sums.
func NewRollup(key string, count int64, budgeted, earned decimal.Decimal) Rollup {
	budgeted = budgeted.Round(2)
	earned = earned.Round(2)
	pct := decimal.Zero
	if budgeted.IsPositive() {
		pct = earned.Div(budgeted).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return Rollup{
		Key:             key,
		ComponentCount:  count,
		BudgetedHours:   budgeted,
		EarnedHours:     earned,
		RemainingHours:  budgeted.Sub(earned).Round(2),
		PercentComplete: pct,
	}
}
