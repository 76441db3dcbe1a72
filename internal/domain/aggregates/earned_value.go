package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
)

var EarnedValueAggregateContract = Contract{
	Name:             "Progress.EarnedValueAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	Locks:            []LockScope{LockComponentRow, LockAllocationRow},
	Notes:            "Owns component milestone state, cached percent complete and earned hours under the active budget.",
}

// RecalcStatus tells the caller what the recalculation hook did.
type RecalcStatus string

const (
	RecalcRecalculated RecalcStatus = "recalculated"
	// RecalcNoBudget: the project has no active budget.
	RecalcNoBudget RecalcStatus = "no_budget"
	// RecalcNotAllocated: the component was created after the active budget was distributed.
	RecalcNotAllocated RecalcStatus = "not_allocated"
)

// EarnedValueAggregate keeps earned hours consistent with milestone state.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeRetryable, CodeInvariantViolation, CodeInternal.
type EarnedValueAggregate interface {
	Aggregate

	// UpdateMilestones applies milestone changes, refreshes percent complete and
	// runs the recalculation hook in the same transaction.
	UpdateMilestones(ctx context.Context, in UpdateMilestonesInput) (UpdateMilestonesResult, error)

	// RecalculateComponent re-runs the hook for one component. Idempotent.
	RecalculateComponent(ctx context.Context, in RecalculateComponentInput) (RecalculateComponentResult, error)
}

type UpdateMilestonesInput struct {
	ComponentID uuid.UUID
	Changes     progress.MilestoneState
	// Replace swaps the whole snapshot instead of merging Changes into it.
	Replace bool
	Actor   string
}

type UpdateMilestonesResult struct {
	ComponentID      uuid.UUID                  `json:"component_id"`
	ProjectID        uuid.UUID                  `json:"project_id"`
	Milestones       progress.MilestoneState    `json:"milestones"`
	PercentComplete  decimal.Decimal            `json:"percent_complete"`
	PendingApprovals []string                   `json:"pending_approvals"`
	Changed          bool                       `json:"changed"`
	Recalc           RecalculateComponentResult `json:"recalc"`
}

type RecalculateComponentInput struct {
	ComponentID uuid.UUID
}

type RecalculateComponentResult struct {
	Status          RecalcStatus    `json:"status"`
	ComponentID     uuid.UUID       `json:"component_id"`
	ProjectID       uuid.UUID       `json:"project_id"`
	BudgetID        uuid.UUID       `json:"budget_id"`
	BudgetVersion   int             `json:"budget_version,omitempty"`
	BudgetedHours   decimal.Decimal `json:"budgeted_hours"`
	EarnedHours     decimal.Decimal `json:"earned_hours"`
	PreviousEarned  decimal.Decimal `json:"previous_earned_hours"`
	PercentComplete decimal.Decimal `json:"percent_complete"`
	RecalculatedAt  time.Time       `json:"recalculated_at"`
}
