package manhours

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ManhourBudget is one version of a project's total labor-hour budget.
// Superseded versions stay as immutable history.
type ManhourBudget struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ProjectID uuid.UUID `gorm:"type:uuid;not null;index:idx_manhour_budget_project_version,unique,priority:1" json:"project_id"`
	Version   int       `gorm:"column:version;not null;index:idx_manhour_budget_project_version,unique,priority:2" json:"version"`

	TotalHours     decimal.Decimal `gorm:"column:total_hours;type:numeric(14,2);not null" json:"total_hours"`
	RevisionReason string          `gorm:"column:revision_reason;type:text" json:"revision_reason"`

	// At most one active row per project (partial unique index, see data/db).
	IsActive bool `gorm:"column:is_active;not null;default:false;index" json:"is_active"`

	EffectiveDate time.Time `gorm:"column:effective_date;not null" json:"effective_date"`
	CreatedBy     string    `gorm:"column:created_by" json:"created_by,omitempty"`
	CreatedAt     time.Time `gorm:"not null;index" json:"created_at"`
}

func (ManhourBudget) TableName() string { return "manhour_budget" }
