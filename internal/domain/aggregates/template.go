package aggregates

import (
	"context"

	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
)

var TemplateAggregateContract = Contract{
	Name:             "Progress.TemplateAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	Locks:            []LockScope{LockTemplateCategory},
	Notes:            "Owns append-only milestone template versions per category.",
}

// TemplateAggregate appends validated template versions. Existing versions are never modified.
type TemplateAggregate interface {
	Aggregate

	CreateTemplateVersion(ctx context.Context, in CreateTemplateVersionInput) (CreateTemplateVersionResult, error)
}

type CreateTemplateVersionInput struct {
	Category   progress.Category
	Milestones []progress.MilestoneDefinition
	CreatedBy  string
	// SkipIfUnchanged returns the latest version instead of appending an identical one.
	SkipIfUnchanged bool
}

type CreateTemplateVersionResult struct {
	Template progress.MilestoneTemplate
	Created  bool
}
