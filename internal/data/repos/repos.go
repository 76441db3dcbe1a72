package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/earnedvalue-backend/internal/data/repos/manhours"
	"github.com/yungbote/earnedvalue-backend/internal/data/repos/progress"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

type MilestoneTemplateRepo = progress.MilestoneTemplateRepo
type ComponentRepo = progress.ComponentRepo

type ManhourBudgetRepo = manhours.ManhourBudgetRepo
type AllocationRepo = manhours.AllocationRepo
type AllocationTotals = manhours.Totals

func NewMilestoneTemplateRepo(db *gorm.DB, baseLog *logger.Logger) MilestoneTemplateRepo {
	return progress.NewMilestoneTemplateRepo(db, baseLog)
}

func NewComponentRepo(db *gorm.DB, baseLog *logger.Logger) ComponentRepo {
	return progress.NewComponentRepo(db, baseLog)
}

func NewManhourBudgetRepo(db *gorm.DB, baseLog *logger.Logger) ManhourBudgetRepo {
	return manhours.NewManhourBudgetRepo(db, baseLog)
}

func NewAllocationRepo(db *gorm.DB, baseLog *logger.Logger) AllocationRepo {
	return manhours.NewAllocationRepo(db, baseLog)
}

// Set bundles every table repo for wiring.
type Set struct {
	Templates   MilestoneTemplateRepo
	Components  ComponentRepo
	Budgets     ManhourBudgetRepo
	Allocations AllocationRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		Templates:   NewMilestoneTemplateRepo(db, baseLog),
		Components:  NewComponentRepo(db, baseLog),
		Budgets:     NewManhourBudgetRepo(db, baseLog),
		Allocations: NewAllocationRepo(db, baseLog),
	}
}
