package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/earnedvalue-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return EnsureManhourIndexes(db)
}

// EnsureManhourIndexes adds the indexes gorm tags cannot express. The partial
// unique index is the storage-level guarantee of one active budget per project.
func EnsureManhourIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_manhour_budget_one_active
		ON manhour_budget(project_id)
		WHERE is_active;
	`).Error; err != nil {
		return fmt.Errorf("create idx_manhour_budget_one_active: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_allocation_project_budget
		ON component_manhour_allocation(project_id, budget_id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_allocation_project_budget: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_component_project_live
		ON component(project_id)
		WHERE NOT is_retired;
	`).Error; err != nil {
		return fmt.Errorf("create idx_component_project_live: %w", err)
	}
	return nil
}
