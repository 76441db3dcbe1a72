package manhours

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CalculationBasis records how an allocation's weight was derived.
type CalculationBasis string

const (
	BasisDimension      CalculationBasis = "dimension"
	BasisLinearLength   CalculationBasis = "linear_length"
	BasisFixed          CalculationBasis = "fixed"
	BasisManualOverride CalculationBasis = "manual_override"
)

// CalculationTrace is the audit payload stored with each allocation: the inputs
// that produced the budgeted hours at distribution time.
type CalculationTrace struct {
	Size        string   `json:"size,omitempty"`
	ParsedSize  *float64 `json:"parsed_size,omitempty"`
	Length      *float64 `json:"length,omitempty"`
	Weight      float64  `json:"weight"`
	TotalWeight float64  `json:"total_weight"`
	Warning     string   `json:"warning,omitempty"`

	Override *OverrideTrace `json:"override,omitempty"`
}

type OverrideTrace struct {
	PreviousHours decimal.Decimal  `json:"previous_hours"`
	PreviousBasis CalculationBasis `json:"previous_basis"`
	Reason        string           `json:"reason"`
	OverriddenBy  string           `json:"overridden_by,omitempty"`
	OverriddenAt  time.Time        `json:"overridden_at"`
}

// ComponentManhourAllocation ties a component to one budget version.
// Rows of superseded versions are never recomputed.
type ComponentManhourAllocation struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	BudgetID    uuid.UUID `gorm:"type:uuid;not null;index:idx_allocation_budget_component,unique,priority:1;index" json:"budget_id"`
	ComponentID uuid.UUID `gorm:"type:uuid;not null;index:idx_allocation_budget_component,unique,priority:2;index" json:"component_id"`
	ProjectID   uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`

	BudgetedHours decimal.Decimal `gorm:"column:budgeted_hours;type:numeric(14,2);not null" json:"budgeted_hours"`
	EarnedHours   decimal.Decimal `gorm:"column:earned_hours;type:numeric(14,2);not null;default:0" json:"earned_hours"`

	CalculationBasis string         `gorm:"column:calculation_basis;not null" json:"calculation_basis"`
	CalculationTrace datatypes.JSON `gorm:"column:calculation_trace;type:jsonb;not null" json:"calculation_trace"`

	LastRecalculatedAt *time.Time `gorm:"column:last_recalculated_at" json:"last_recalculated_at,omitempty"`
	CreatedAt          time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"not null" json:"updated_at"`
}

func (ComponentManhourAllocation) TableName() string { return "component_manhour_allocation" }

func (a *ComponentManhourAllocation) Trace() (CalculationTrace, error) {
	var t CalculationTrace
	if a == nil || len(a.CalculationTrace) == 0 {
		return t, nil
	}
	err := json.Unmarshal(a.CalculationTrace, &t)
	return t, err
}

func (a *ComponentManhourAllocation) SetTrace(t CalculationTrace) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	a.CalculationTrace = datatypes.JSON(raw)
	return nil
}
