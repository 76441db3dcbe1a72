package progress

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MilestoneTemplate is one append-only version of a category's milestone list.
// Rows are never updated or deleted once written; a change is a new version.
type MilestoneTemplate struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Category string `gorm:"column:category;not null;index:idx_milestone_template_category_version,unique,priority:1" json:"category"`
	Version  int    `gorm:"column:version;not null;index:idx_milestone_template_category_version,unique,priority:2" json:"version"`

	// []MilestoneDefinition
	Milestones datatypes.JSON `gorm:"column:milestones;type:jsonb;not null" json:"milestones"`

	CreatedBy string    `gorm:"column:created_by" json:"created_by,omitempty"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (MilestoneTemplate) TableName() string { return "milestone_template" }

// Template is the decoded, ordered view of a MilestoneTemplate row.
type Template struct {
	ID         uuid.UUID             `json:"id"`
	Category   Category              `json:"category"`
	Version    int                   `json:"version"`
	Milestones []MilestoneDefinition `json:"milestones"`
	CreatedBy  string                `json:"created_by,omitempty"`
	CreatedAt  time.Time             `json:"created_at"`
}

// Decode parses the stored milestone list and orders it.
func (t *MilestoneTemplate) Decode() (*Template, error) {
	if t == nil {
		return nil, nil
	}
	var defs []MilestoneDefinition
	if len(t.Milestones) > 0 {
		if err := json.Unmarshal(t.Milestones, &defs); err != nil {
			return nil, fmt.Errorf("decode milestone template %s v%d: %w", t.Category, t.Version, err)
		}
	}
	SortDefinitions(defs)
	return &Template{
		ID:         t.ID,
		Category:   Category(t.Category),
		Version:    t.Version,
		Milestones: defs,
		CreatedBy:  t.CreatedBy,
		CreatedAt:  t.CreatedAt,
	}, nil
}

// Definition looks up a milestone by name.
func (t *Template) Definition(name string) (MilestoneDefinition, bool) {
	if t == nil {
		return MilestoneDefinition{}, false
	}
	for _, d := range t.Milestones {
		if d.Name == name {
			return d, true
		}
	}
	return MilestoneDefinition{}, false
}

// SameMilestones reports whether two definition lists are identical in order and content.
func SameMilestones(a, b []MilestoneDefinition) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name ||
			!a[i].Weight.Equal(b[i].Weight) ||
			a[i].Order != b[i].Order ||
			a[i].IsPartial != b[i].IsPartial ||
			a[i].RequiresSecondaryApproval != b[i].RequiresSecondaryApproval {
			return false
		}
	}
	return true
}
