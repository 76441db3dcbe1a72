package earnedvalue

import (
	"github.com/shopspring/decimal"

	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
)

// ComputeEarnedHours converts weighted completion into hours of the given
// budget, rounded half-up to two decimals. An invalid (absent), zero or
// negative budget earns 0.
func ComputeEarnedHours(budgeted decimal.NullDecimal, t *progress.Template, current progress.MilestoneState) decimal.Decimal {
	if !budgeted.Valid || !budgeted.Decimal.IsPositive() {
		return decimal.Zero
	}
	earned := round2(budgeted.Decimal.Mul(weightedPercent(t, current)).Div(TotalWeight))
	if earned.GreaterThan(budgeted.Decimal) {
		return budgeted.Decimal
	}
	return earned
}
