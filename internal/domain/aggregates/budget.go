package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/earnedvalue-backend/internal/domain/manhours"
)

var BudgetAggregateContract = Contract{
	Name:             "Manhours.BudgetAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	Locks:            []LockScope{LockProjectBudget, LockComponentRow, LockAllocationRow},
	Notes:            "Owns budget versioning, the single-active-version flip and the bulk allocation write.",
}

// BudgetAggregate owns the version history of a project's manhour budget.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodeRetryable, CodeInvariantViolation, CodeInternal.
type BudgetAggregate interface {
	Aggregate

	// CreateBudget assigns the next version, deactivates the previous active
	// version, distributes the total across current components and writes all
	// allocations. Either everything commits or nothing does.
	CreateBudget(ctx context.Context, in CreateBudgetInput) (CreateBudgetResult, error)

	// OverrideAllocation replaces one allocation of the active version with a
	// manually chosen number of hours and recomputes its earned hours.
	OverrideAllocation(ctx context.Context, in OverrideAllocationInput) (OverrideAllocationResult, error)
}

type CreateBudgetInput struct {
	ProjectID     uuid.UUID
	TotalHours    decimal.Decimal
	Reason        string
	EffectiveDate time.Time
	CreatedBy     string
}

// AllocationWarning is a non-fatal distribution note for one component.
type AllocationWarning struct {
	ComponentID uuid.UUID `json:"component_id"`
	Message     string    `json:"message"`
}

type CreateBudgetResult struct {
	Budget              manhours.ManhourBudget
	PreviousVersion     int
	ComponentsProcessed int
	TotalAllocated      decimal.Decimal
	TotalWeight         float64
	Warnings            []AllocationWarning
}

type OverrideAllocationInput struct {
	ProjectID   uuid.UUID
	ComponentID uuid.UUID
	Hours       decimal.Decimal
	Reason      string
	Actor       string
}

type OverrideAllocationResult struct {
	Allocation    manhours.ComponentManhourAllocation
	PreviousHours decimal.Decimal
}
