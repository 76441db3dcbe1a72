package progress

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// IdentityKey is the structured identity of a component. Size carries the
// nominal size as entered ("4", "1X2", "3/4\""); Length is only meaningful
// for linear-run categories.
type IdentityKey struct {
	DrawingNo     string   `json:"drawing_no,omitempty"`
	CommodityCode string   `json:"commodity_code,omitempty"`
	Tag           string   `json:"tag,omitempty"`
	Size          string   `json:"size,omitempty"`
	Length        *float64 `json:"length,omitempty"`
	Seq           int      `json:"seq,omitempty"`
}

// Component is a physical trackable unit owned by a project.
type Component struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`

	Category    string         `gorm:"column:category;not null;index" json:"category"`
	IdentityKey datatypes.JSON `gorm:"column:identity_key;type:jsonb;not null" json:"identity_key"`

	// Template version in effect for this component.
	TemplateID *uuid.UUID `gorm:"type:uuid;index" json:"template_id,omitempty"`

	// MilestoneState
	CurrentMilestones datatypes.JSON  `gorm:"column:current_milestones;type:jsonb;not null" json:"current_milestones"`
	PercentComplete   decimal.Decimal `gorm:"column:percent_complete;type:numeric(5,2);not null;default:0" json:"percent_complete"`

	// Grouping keys for rollups.
	Area        string `gorm:"column:area;index" json:"area,omitempty"`
	System      string `gorm:"column:system;index" json:"system,omitempty"`
	TestPackage string `gorm:"column:test_package;index" json:"test_package,omitempty"`

	IsRetired bool `gorm:"column:is_retired;not null;default:false;index" json:"is_retired"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Component) TableName() string { return "component" }

func (c *Component) Identity() (IdentityKey, error) {
	var k IdentityKey
	if c == nil || len(c.IdentityKey) == 0 {
		return k, nil
	}
	if err := json.Unmarshal(c.IdentityKey, &k); err != nil {
		return k, fmt.Errorf("decode identity key for component %s: %w", c.ID, err)
	}
	return k, nil
}

func (c *Component) SetIdentity(k IdentityKey) error {
	raw, err := json.Marshal(k)
	if err != nil {
		return err
	}
	c.IdentityKey = datatypes.JSON(raw)
	return nil
}

func (c *Component) Milestones() (MilestoneState, error) {
	out := MilestoneState{}
	if c == nil || len(c.CurrentMilestones) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(c.CurrentMilestones, &out); err != nil {
		return nil, fmt.Errorf("decode milestones for component %s: %w", c.ID, err)
	}
	return out, nil
}

func (c *Component) SetMilestones(s MilestoneState) error {
	if s == nil {
		s = MilestoneState{}
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	c.CurrentMilestones = datatypes.JSON(raw)
	return nil
}
