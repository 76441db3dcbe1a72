package earnedvalue

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/yungbote/earnedvalue-backend/internal/domain/manhours"
	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
)

const (
	// BaselineWeight is applied when a component has no usable size.
	BaselineWeight = 1.0
	// DefaultLengthFactor scales diameter*length for linear runs.
	DefaultLengthFactor = 0.1
	dimensionExponent   = 1.5
)

// WeightPolicy holds the tunable parts of the dimension weight function.
type WeightPolicy struct {
	// LengthFactor scales diameter*length for linear-run categories.
	LengthFactor float64
	// LinearCategories are weighed by run length instead of d^1.5.
	LinearCategories []progress.Category
	// NoSizeSentinels are size strings meaning "no size"; matched case-insensitively.
	NoSizeSentinels []string
}

// DefaultWeightPolicy returns the production defaults.
func DefaultWeightPolicy() WeightPolicy {
	return WeightPolicy{
		LengthFactor:     DefaultLengthFactor,
		LinearCategories: []progress.Category{progress.CategoryThreadedPipe},
		NoSizeSentinels:  []string{"NOSIZE", "NO SIZE", "N/A", "NA", "-", "--"},
	}
}

func (p WeightPolicy) withDefaults() WeightPolicy {
	if p.LengthFactor <= 0 {
		p.LengthFactor = DefaultLengthFactor
	}
	if p.LinearCategories == nil {
		p.LinearCategories = DefaultWeightPolicy().LinearCategories
	}
	if p.NoSizeSentinels == nil {
		p.NoSizeSentinels = DefaultWeightPolicy().NoSizeSentinels
	}
	return p
}

// WeightResult is the outcome of one weight evaluation plus what produced it.
type WeightResult struct {
	Weight     float64
	Basis      manhours.CalculationBasis
	ParsedSize *float64
	Length     *float64
	// Warning is set when the size could not be used and the baseline was applied.
	Warning string
}

// ComputeWeight evaluates the default policy.
func ComputeWeight(category progress.Category, key progress.IdentityKey) WeightResult {
	return DefaultWeightPolicy().ComputeWeight(category, key)
}

// ComputeWeight returns a positive relative work weight for a component.
// It never fails: unusable sizes fall back to the baseline with a warning.
func (p WeightPolicy) ComputeWeight(category progress.Category, key progress.IdentityKey) WeightResult {
	p = p.withDefaults()
	raw := strings.TrimSpace(key.Size)
	if p.isNoSize(raw) {
		return WeightResult{Weight: BaselineWeight, Basis: manhours.BasisFixed}
	}
	d, err := ParseNominalSize(raw)
	if err != nil {
		return WeightResult{
			Weight:  BaselineWeight,
			Basis:   manhours.BasisFixed,
			Warning: err.Error(),
		}
	}
	size := d
	res := WeightResult{
		Weight:     math.Pow(d, dimensionExponent),
		Basis:      manhours.BasisDimension,
		ParsedSize: &size,
	}
	if p.isLinear(category) && key.Length != nil && *key.Length > 0 {
		length := *key.Length
		res = WeightResult{
			Weight:     d * length * p.LengthFactor,
			Basis:      manhours.BasisLinearLength,
			ParsedSize: &size,
			Length:     &length,
		}
	}
	// Extreme sizes can overflow to +Inf or underflow to 0.
	if !usableWeight(res.Weight) {
		return WeightResult{
			Weight:  BaselineWeight,
			Basis:   manhours.BasisFixed,
			Warning: fmt.Sprintf("size %q gives out-of-range weight", raw),
		}
	}
	return res
}

func usableWeight(w float64) bool {
	return w > 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}

func (p WeightPolicy) isNoSize(raw string) bool {
	if raw == "" {
		return true
	}
	for _, s := range p.NoSizeSentinels {
		if strings.EqualFold(raw, s) {
			return true
		}
	}
	return false
}

func (p WeightPolicy) isLinear(c progress.Category) bool {
	for _, lc := range p.LinearCategories {
		if lc == c {
			return true
		}
	}
	return false
}

// ParseNominalSize reads a nominal size: "4", "0.75", "3/4", "1-1/2",
// "1 1/2", an optional trailing inch mark (`"` or IN), or a reducer "AxB"
// whose value is the mean of both ends. The result is always > 0.
func ParseNominalSize(raw string) (float64, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "×", "X")
	if a, b, ok := strings.Cut(s, "X"); ok {
		av, err := parseSingleSize(a)
		if err != nil {
			return 0, fmt.Errorf("unparsable reducer size %q", raw)
		}
		bv, err := parseSingleSize(b)
		if err != nil {
			return 0, fmt.Errorf("unparsable reducer size %q", raw)
		}
		return (av + bv) / 2, nil
	}
	v, err := parseSingleSize(s)
	if err != nil {
		return 0, fmt.Errorf("unparsable size %q", raw)
	}
	return v, nil
}

func parseSingleSize(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, `"`)
	s = strings.TrimSuffix(s, "IN")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	var whole, frac string
	switch {
	case strings.Contains(s, "-") && strings.Contains(s, "/"):
		whole, frac, _ = strings.Cut(s, "-")
	case strings.Contains(s, " ") && strings.Contains(s, "/"):
		whole, frac, _ = strings.Cut(s, " ")
	case strings.Contains(s, "/"):
		frac = s
	default:
		whole = s
	}

	v := 0.0
	if whole = strings.TrimSpace(whole); whole != "" {
		w, err := strconv.ParseFloat(whole, 64)
		if err != nil {
			return 0, err
		}
		v += w
	}
	if frac = strings.TrimSpace(frac); frac != "" {
		n, d, _ := strings.Cut(frac, "/")
		num, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, err
		}
		den, err := strconv.ParseFloat(strings.TrimSpace(d), 64)
		if err != nil {
			return 0, err
		}
		if den == 0 {
			return 0, fmt.Errorf("zero denominator")
		}
		v += num / den
	}
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("size must be positive")
	}
	return v, nil
}
