package realtime

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SSEEvent string

const (
	SSEEventEarnedValueChanged   SSEEvent = "EarnedValueChanged"
	SSEEventBudgetCreated        SSEEvent = "BudgetCreated"
	SSEEventAllocationOverridden SSEEvent = "AllocationOverridden"
	SSEEventTemplateVersioned    SSEEvent = "TemplateVersioned"
)

// Known reports whether ev is one of the events the engine publishes.
func (ev SSEEvent) Known() bool {
	switch ev {
	case SSEEventEarnedValueChanged, SSEEventBudgetCreated, SSEEventAllocationOverridden, SSEEventTemplateVersioned:
		return true
	}
	return false
}

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// ProjectChannel is the channel every event about a project is published on.
func ProjectChannel(projectID uuid.UUID) string {
	return "project:" + projectID.String()
}

// EarnedValueChanged is the payload of SSEEventEarnedValueChanged.
type EarnedValueChanged struct {
	ComponentID     uuid.UUID       `json:"component_id"`
	ProjectID       uuid.UUID       `json:"project_id"`
	Status          string          `json:"status"`
	BudgetVersion   int             `json:"budget_version,omitempty"`
	PercentComplete decimal.Decimal `json:"percent_complete"`
	BudgetedHours   decimal.Decimal `json:"budgeted_hours"`
	EarnedHours     decimal.Decimal `json:"earned_hours"`
	Source          string          `json:"source,omitempty"`
	At              time.Time       `json:"at"`
}

// BudgetCreated is the payload of SSEEventBudgetCreated.
type BudgetCreated struct {
	BudgetID            uuid.UUID       `json:"budget_id"`
	ProjectID           uuid.UUID       `json:"project_id"`
	Version             int             `json:"version"`
	TotalHours          decimal.Decimal `json:"total_hours"`
	ComponentsProcessed int             `json:"components_processed"`
	Warnings            int             `json:"warnings"`
	Source              string          `json:"source,omitempty"`
}
