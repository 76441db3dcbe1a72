package domain

import (
	"github.com/yungbote/earnedvalue-backend/internal/domain/manhours"
	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
)

type (
	Category            = progress.Category
	MilestoneDefinition = progress.MilestoneDefinition
	MilestoneValue      = progress.MilestoneValue
	MilestoneState      = progress.MilestoneState
	MilestoneTemplate   = progress.MilestoneTemplate
	Template            = progress.Template
	IdentityKey         = progress.IdentityKey
	Component           = progress.Component

	ManhourBudget              = manhours.ManhourBudget
	ComponentManhourAllocation = manhours.ComponentManhourAllocation
	CalculationBasis           = manhours.CalculationBasis
	CalculationTrace           = manhours.CalculationTrace
	GroupDimension             = manhours.GroupDimension
	Rollup                     = manhours.Rollup
)

// Models lists every persisted type, in migration order.
func Models() []any {
	return []any{
		&MilestoneTemplate{},
		&Component{},
		&ManhourBudget{},
		&ComponentManhourAllocation{},
	}
}
