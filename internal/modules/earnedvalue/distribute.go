package earnedvalue

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/earnedvalue-backend/internal/domain/manhours"
	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
)

// ComponentInput is the slice of a component the distributor reads.
type ComponentInput struct {
	ID          uuid.UUID
	Category    progress.Category
	IdentityKey progress.IdentityKey
	IsRetired   bool
}

// ComponentInputFrom decodes a stored component into distributor input.
func ComponentInputFrom(c *progress.Component) (ComponentInput, error) {
	key, err := c.Identity()
	if err != nil {
		return ComponentInput{}, err
	}
	return ComponentInput{
		ID:          c.ID,
		Category:    progress.Category(c.Category),
		IdentityKey: key,
		IsRetired:   c.IsRetired,
	}, nil
}

// Allocation is one component's share of a budget.
type Allocation struct {
	ComponentID   uuid.UUID
	BudgetedHours decimal.Decimal
	Basis         manhours.CalculationBasis
	Trace         manhours.CalculationTrace
}

// Warning is a non-fatal note about one component, typically a baseline fallback.
type Warning struct {
	ComponentID uuid.UUID `json:"component_id"`
	Message     string    `json:"message"`
}

func (w Warning) String() string { return fmt.Sprintf("%s: %s", w.ComponentID, w.Message) }

// Distribution is the full result of one distribution pass.
type Distribution struct {
	Allocations    []Allocation
	Warnings       []Warning
	TotalWeight    float64
	TotalAllocated decimal.Decimal
}

// Distribute uses the default weight policy.
func Distribute(total decimal.Decimal, components []ComponentInput) (*Distribution, error) {
	return DefaultWeightPolicy().Distribute(total, components)
}

// Distribute splits total across the non-retired components in proportion to
// their weights. Each share is rounded half-up to two decimals independently;
// the rounding residual is left in place, so the sum may drift from total by
// at most one cent per component. Output is ordered by component id.
func (p WeightPolicy) Distribute(total decimal.Decimal, components []ComponentInput) (*Distribution, error) {
	if !total.IsPositive() {
		return nil, ErrInvalidBudgetTotal
	}

	inScope := make([]ComponentInput, 0, len(components))
	for _, c := range components {
		if c.IsRetired {
			continue
		}
		inScope = append(inScope, c)
	}
	sort.Slice(inScope, func(i, j int) bool {
		return bytes.Compare(inScope[i].ID[:], inScope[j].ID[:]) < 0
	})

	results := make([]WeightResult, len(inScope))
	totalWeight := 0.0
	for i, c := range inScope {
		results[i] = p.ComputeWeight(c.Category, c.IdentityKey)
		totalWeight += results[i].Weight
	}
	if totalWeight <= 0 {
		return nil, ErrZeroWeight
	}
	if math.IsInf(totalWeight, 0) {
		return nil, ErrWeightOverflow
	}

	out := &Distribution{
		Allocations:    make([]Allocation, len(inScope)),
		TotalWeight:    totalWeight,
		TotalAllocated: decimal.Zero,
	}
	totalW := decimal.NewFromFloat(totalWeight)
	for i, c := range inScope {
		r := results[i]
		share := round2(total.Mul(decimal.NewFromFloat(r.Weight)).Div(totalW))
		out.Allocations[i] = Allocation{
			ComponentID:   c.ID,
			BudgetedHours: share,
			Basis:         r.Basis,
			Trace: manhours.CalculationTrace{
				Size:        c.IdentityKey.Size,
				ParsedSize:  r.ParsedSize,
				Length:      r.Length,
				Weight:      r.Weight,
				TotalWeight: totalWeight,
				Warning:     r.Warning,
			},
		}
		out.TotalAllocated = out.TotalAllocated.Add(share)
		if r.Warning != "" {
			out.Warnings = append(out.Warnings, Warning{
				ComponentID: c.ID,
				Message:     r.Warning + "; baseline weight applied",
			})
		}
	}
	return out, nil
}

// Drift is the signed difference between what was allocated and the budget total.
func (d *Distribution) Drift(total decimal.Decimal) decimal.Decimal {
	if d == nil {
		return total.Neg()
	}
	return d.TotalAllocated.Sub(total)
}
