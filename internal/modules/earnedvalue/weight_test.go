package earnedvalue

import (
	"math"
	"testing"

	"github.com/yungbote/earnedvalue-backend/internal/domain/manhours"
	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
)

func almost(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestComputeWeightDimension(t *testing.T) {
	cases := []struct {
		size string
		want float64
	}{
		{"4", 8.0},
		{"1X2", 1.8371},
		{"1x2", 1.8371},
		{"1×2", 1.8371},
		{`2"`, 2.8284},
		{"2IN", 2.8284},
		{"3/4", 0.6495},
		{"1-1/2", 1.8371},
		{"1 1/2", 1.8371},
		{"0.5", 0.3536},
	}
	for _, tc := range cases {
		got := ComputeWeight(progress.CategoryValve, progress.IdentityKey{Size: tc.size})
		if !almost(got.Weight, tc.want, 1e-4) {
			t.Fatalf("weight(%q): want=%.4f got=%.6f", tc.size, tc.want, got.Weight)
		}
		if got.Basis != manhours.BasisDimension {
			t.Fatalf("basis(%q): want=%s got=%s", tc.size, manhours.BasisDimension, got.Basis)
		}
		if got.Warning != "" || got.ParsedSize == nil {
			t.Fatalf("weight(%q): unexpected result %+v", tc.size, got)
		}
	}
}

func TestComputeWeightNoSizeIsBaselineWithoutWarning(t *testing.T) {
	for _, size := range []string{"", "  ", "NOSIZE", "nosize", "N/A", "NA", "-"} {
		got := ComputeWeight(progress.CategorySupport, progress.IdentityKey{Size: size})
		if got.Weight != BaselineWeight || got.Basis != manhours.BasisFixed {
			t.Fatalf("size %q: want baseline fixed got=%+v", size, got)
		}
		if got.Warning != "" {
			t.Fatalf("size %q: unexpected warning %q", size, got.Warning)
		}
	}
}

func TestComputeWeightUnparsableWarns(t *testing.T) {
	for _, size := range []string{"abc", "0", "-4", "1/0", "2XZ", "X"} {
		got := ComputeWeight(progress.CategoryPipe, progress.IdentityKey{Size: size})
		if got.Weight != BaselineWeight || got.Basis != manhours.BasisFixed {
			t.Fatalf("size %q: want baseline got=%+v", size, got)
		}
		if got.Warning == "" {
			t.Fatalf("size %q: expected warning", size)
		}
	}
}

func TestComputeWeightOutOfRangeFallsBack(t *testing.T) {
	cases := []struct {
		category progress.Category
		key      progress.IdentityKey
	}{
		{progress.CategoryValve, progress.IdentityKey{Size: "1e300"}},
		{progress.CategoryValve, progress.IdentityKey{Size: "1e-300"}},
		{progress.CategoryThreadedPipe, progress.IdentityKey{Size: "1e200", Length: floatPtr(1e200)}},
		{progress.CategoryThreadedPipe, progress.IdentityKey{Size: "1e-200", Length: floatPtr(1e-200)}},
	}
	for _, tc := range cases {
		got := ComputeWeight(tc.category, tc.key)
		if got.Weight != BaselineWeight || got.Basis != manhours.BasisFixed {
			t.Fatalf("size %q: want baseline fixed got=%+v", tc.key.Size, got)
		}
		if got.Warning == "" {
			t.Fatalf("size %q: expected warning", tc.key.Size)
		}
	}
}

func TestComputeWeightLinearRun(t *testing.T) {
	got := ComputeWeight(progress.CategoryThreadedPipe, progress.IdentityKey{Size: "2", Length: floatPtr(20)})
	if !almost(got.Weight, 4.0, 1e-9) {
		t.Fatalf("linear weight: want=4 got=%v", got.Weight)
	}
	if got.Basis != manhours.BasisLinearLength || got.Length == nil || *got.Length != 20 {
		t.Fatalf("linear result: %+v", got)
	}

	noLength := ComputeWeight(progress.CategoryThreadedPipe, progress.IdentityKey{Size: "4"})
	if noLength.Basis != manhours.BasisDimension || !almost(noLength.Weight, 8, 1e-9) {
		t.Fatalf("threaded pipe without length should use d^1.5: %+v", noLength)
	}

	notLinear := ComputeWeight(progress.CategoryPipe, progress.IdentityKey{Size: "4", Length: floatPtr(20)})
	if notLinear.Basis != manhours.BasisDimension {
		t.Fatalf("pipe is not a linear category: %+v", notLinear)
	}
}

func TestWeightPolicyOverrides(t *testing.T) {
	p := WeightPolicy{
		LengthFactor:     0.5,
		LinearCategories: []progress.Category{progress.CategoryTubing},
		NoSizeSentinels:  []string{"TBD"},
	}
	got := p.ComputeWeight(progress.CategoryTubing, progress.IdentityKey{Size: "1", Length: floatPtr(10)})
	if !almost(got.Weight, 5, 1e-9) {
		t.Fatalf("tubing weight: want=5 got=%v", got.Weight)
	}
	if tbd := p.ComputeWeight(progress.CategoryValve, progress.IdentityKey{Size: "tbd"}); tbd.Warning != "" || tbd.Weight != 1 {
		t.Fatalf("custom sentinel: %+v", tbd)
	}
}

func TestComputeWeightDeterministic(t *testing.T) {
	key := progress.IdentityKey{Size: "6X4"}
	a := ComputeWeight(progress.CategoryFitting, key)
	b := ComputeWeight(progress.CategoryFitting, key)
	if a.Weight != b.Weight {
		t.Fatalf("non-deterministic weight: %v vs %v", a.Weight, b.Weight)
	}
}
