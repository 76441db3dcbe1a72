package earnedvalue

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
)

func TestComputeEarnedHoursFieldWeld(t *testing.T) {
	got := ComputeEarnedHours(decimal.NewNullDecimal(decimal.NewFromInt(10)), fieldWeldTemplate(), progress.MilestoneState{
		"Fit-Up":    progress.Done(true),
		"Weld Made": progress.Done(true),
		"Punch":     progress.Done(false),
	})
	if !got.Equal(dec(t, "7.00")) {
		t.Fatalf("earned: want=7.00 got=%s", got)
	}
}

func TestComputeEarnedHoursAbsentOrZeroBudget(t *testing.T) {
	state := progress.MilestoneState{"Fit-Up": progress.Done(true)}
	for name, b := range map[string]decimal.NullDecimal{
		"absent":   {},
		"zero":     decimal.NewNullDecimal(decimal.Zero),
		"negative": decimal.NewNullDecimal(decimal.NewFromInt(-5)),
	} {
		if got := ComputeEarnedHours(b, fieldWeldTemplate(), state); !got.IsZero() {
			t.Fatalf("%s budget: want=0 got=%s", name, got)
		}
	}
}

func TestComputeEarnedHoursIdempotent(t *testing.T) {
	budget := decimal.NewNullDecimal(dec(t, "738.82"))
	state := progress.MilestoneState{
		"Receive":   progress.Done(true),
		"Fabricate": progress.Percent(37.5),
		"Erect":     progress.Percent(12),
	}
	a := ComputeEarnedHours(budget, spoolTemplate(), state)
	b := ComputeEarnedHours(budget, spoolTemplate(), state)
	if a.String() != b.String() {
		t.Fatalf("not idempotent: %s vs %s", a, b)
	}
	if a.Exponent() < -2 {
		t.Fatalf("earned not rounded to cents: %s", a)
	}
}

func TestComputeEarnedHoursNeverExceedsBudget(t *testing.T) {
	budget := decimal.NewNullDecimal(dec(t, "0.03"))
	state := progress.MilestoneState{
		"Receive": progress.Done(true), "Fabricate": progress.Percent(100), "Erect": progress.Percent(100),
		"Connect": progress.Percent(100), "Punch": progress.Done(true),
	}
	got := ComputeEarnedHours(budget, spoolTemplate(), state)
	if got.GreaterThan(budget.Decimal) {
		t.Fatalf("earned %s exceeds budget %s", got, budget.Decimal)
	}
}

func TestComputeEarnedHoursMonotonic(t *testing.T) {
	budget := decimal.NewNullDecimal(decimal.NewFromInt(123))
	prev := decimal.Zero
	for v := 0; v <= 100; v += 10 {
		got := ComputeEarnedHours(budget, spoolTemplate(), progress.MilestoneState{"Connect": progress.Percent(float64(v))})
		if got.LessThan(prev) {
			t.Fatalf("earned decreased at %d: prev=%s got=%s", v, prev, got)
		}
		prev = got
	}
}
