package earnedvalue

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/earnedvalue-backend/internal/domain/manhours"
	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
)

func valve(size string) ComponentInput {
	return ComponentInput{ID: uuid.New(), Category: progress.CategoryValve, IdentityKey: progress.IdentityKey{Size: size}}
}

func TestDistributeProportional(t *testing.T) {
	big, small := valve("4"), valve("2")
	d, err := Distribute(decimal.NewFromInt(1000), []ComponentInput{big, small})
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if len(d.Allocations) != 2 {
		t.Fatalf("allocations: want=2 got=%d", len(d.Allocations))
	}
	byID := map[uuid.UUID]Allocation{}
	for _, a := range d.Allocations {
		byID[a.ComponentID] = a
	}

	wBig, wSmall := 8.0, math.Pow(2, 1.5)
	wantBig := 1000 * wBig / (wBig + wSmall)
	gotBig, _ := byID[big.ID].BudgetedHours.Float64()
	if !almost(gotBig, wantBig, 0.005) {
		t.Fatalf("big share: want~%.2f got=%s", wantBig, byID[big.ID].BudgetedHours)
	}
	if byID[big.ID].BudgetedHours.LessThanOrEqual(byID[small.ID].BudgetedHours) {
		t.Fatalf("larger valve must get more hours")
	}
	if drift := d.Drift(decimal.NewFromInt(1000)).Abs(); drift.GreaterThan(dec(t, "0.02")) {
		t.Fatalf("drift too large: %s", drift)
	}

	tr := byID[big.ID].Trace
	if tr.Size != "4" || tr.ParsedSize == nil || *tr.ParsedSize != 4 || !almost(tr.TotalWeight, wBig+wSmall, 1e-9) {
		t.Fatalf("trace: %+v", tr)
	}
}

func TestDistributeConservationWithinTolerance(t *testing.T) {
	sizes := []string{"1", "1.5", "2", "3", "4", "6", "8", "3/4", "2X1", "NOSIZE", "10", "12", "1-1/4"}
	for _, total := range []string{"1000", "997.37", "1", "12345.67"} {
		var comps []ComponentInput
		for i := 0; i < 7; i++ {
			for _, s := range sizes {
				comps = append(comps, valve(s))
			}
		}
		tot := dec(t, total)
		d, err := Distribute(tot, comps)
		if err != nil {
			t.Fatalf("Distribute(%s): %v", total, err)
		}
		eps := decimal.NewFromFloat(0.01).Mul(decimal.NewFromInt(int64(len(comps))))
		if drift := d.Drift(tot).Abs(); drift.GreaterThan(eps) {
			t.Fatalf("total=%s drift=%s exceeds eps=%s", total, drift, eps)
		}
		for _, a := range d.Allocations {
			if a.BudgetedHours.IsNegative() {
				t.Fatalf("negative share %s", a.BudgetedHours)
			}
			if a.BudgetedHours.Exponent() < -2 {
				t.Fatalf("share not rounded: %s", a.BudgetedHours)
			}
		}
	}
}

func TestDistributeSkipsRetiredAndCollectsWarnings(t *testing.T) {
	retired := valve("4")
	retired.IsRetired = true
	bad := ComponentInput{ID: uuid.New(), Category: progress.CategoryFlange, IdentityKey: progress.IdentityKey{Size: "huge"}}
	plain := ComponentInput{ID: uuid.New(), Category: progress.CategorySupport}

	d, err := Distribute(decimal.NewFromInt(100), []ComponentInput{retired, bad, plain})
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if len(d.Allocations) != 2 {
		t.Fatalf("allocations: want=2 got=%d", len(d.Allocations))
	}
	for _, a := range d.Allocations {
		if a.ComponentID == retired.ID {
			t.Fatalf("retired component allocated")
		}
		if !a.BudgetedHours.Equal(decimal.NewFromInt(50)) {
			t.Fatalf("equal baseline weights should split evenly: %s", a.BudgetedHours)
		}
		if a.Basis != manhours.BasisFixed {
			t.Fatalf("basis: want=fixed got=%s", a.Basis)
		}
	}
	if len(d.Warnings) != 1 || d.Warnings[0].ComponentID != bad.ID {
		t.Fatalf("warnings: want one for %s got=%v", bad.ID, d.Warnings)
	}
}

func TestDistributeErrors(t *testing.T) {
	if _, err := Distribute(decimal.NewFromInt(100), nil); !errors.Is(err, ErrZeroWeight) {
		t.Fatalf("empty set: want ErrZeroWeight got=%v", err)
	}
	onlyRetired := valve("2")
	onlyRetired.IsRetired = true
	if _, err := Distribute(decimal.NewFromInt(100), []ComponentInput{onlyRetired}); !errors.Is(err, ErrZeroWeight) {
		t.Fatalf("only retired: want ErrZeroWeight got=%v", err)
	}
	for _, total := range []int64{0, -10} {
		if _, err := Distribute(decimal.NewFromInt(total), []ComponentInput{valve("2")}); !errors.Is(err, ErrInvalidBudgetTotal) {
			t.Fatalf("total %d: want ErrInvalidBudgetTotal got=%v", total, err)
		}
	}
}

func TestDistributeExtremeSizes(t *testing.T) {
	normal := valve("4")
	huge := valve("1e300")
	d, err := Distribute(decimal.NewFromInt(1000), []ComponentInput{normal, huge})
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if len(d.Warnings) != 1 || d.Warnings[0].ComponentID != huge.ID {
		t.Fatalf("warnings: want one for %s got=%v", huge.ID, d.Warnings)
	}
	for _, a := range d.Allocations {
		want := decimal.RequireFromString("888.89")
		if a.ComponentID == huge.ID {
			want = decimal.RequireFromString("111.11")
		}
		if !a.BudgetedHours.Equal(want) {
			t.Fatalf("allocation %s: want=%s got=%s", a.ComponentID, want, a.BudgetedHours)
		}
	}

	var large []ComponentInput
	for i := 0; i < 6; i++ {
		large = append(large, valve("1e205"))
	}
	if _, err := Distribute(decimal.NewFromInt(1000), large); !errors.Is(err, ErrWeightOverflow) {
		t.Fatalf("summed overflow: want ErrWeightOverflow got=%v", err)
	}
}

func TestDistributeIsOrderIndependent(t *testing.T) {
	var comps []ComponentInput
	for i := 1; i <= 20; i++ {
		comps = append(comps, valve(fmt.Sprintf("%d", i)))
	}
	reversed := make([]ComponentInput, len(comps))
	for i := range comps {
		reversed[len(comps)-1-i] = comps[i]
	}
	a, err := Distribute(decimal.NewFromInt(5000), comps)
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	b, err := Distribute(decimal.NewFromInt(5000), reversed)
	if err != nil {
		t.Fatalf("Distribute reversed: %v", err)
	}
	for i := range a.Allocations {
		if a.Allocations[i].ComponentID != b.Allocations[i].ComponentID ||
			!a.Allocations[i].BudgetedHours.Equal(b.Allocations[i].BudgetedHours) {
			t.Fatalf("allocation %d differs across input order", i)
		}
	}
	if a.TotalWeight != b.TotalWeight {
		t.Fatalf("total weight differs: %v vs %v", a.TotalWeight, b.TotalWeight)
	}
}
