package earnedvalue

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrZeroWeight means there is nothing to distribute across.
	ErrZeroWeight = errors.New("total component weight is zero: no in-scope components to distribute across")
	// ErrWeightOverflow means the summed weights are too large to represent.
	ErrWeightOverflow = errors.New("total component weight overflows")
	// ErrInvalidBudgetTotal rejects a non-positive budget.
	ErrInvalidBudgetTotal = errors.New("budget total must be greater than zero")
	// ErrEmptyTemplate rejects a template without milestones.
	ErrEmptyTemplate = errors.New("template must define at least one milestone")
)

// WeightSumError is returned when template weights do not add up to exactly 100.
type WeightSumError struct {
	Sum decimal.Decimal
}

func (e *WeightSumError) Error() string {
	return fmt.Sprintf("milestone weights must sum to exactly 100, got %s", e.Sum.String())
}

// MilestoneError reports a single malformed milestone definition.
type MilestoneError struct {
	Name   string
	Reason string
}

func (e *MilestoneError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("milestone: %s", e.Reason)
	}
	return fmt.Sprintf("milestone %q: %s", e.Name, e.Reason)
}
