package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/earnedvalue-backend/internal/domain"
	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
)

// FieldWeldMilestones sums to 100; "Test" needs secondary approval.
func FieldWeldMilestones() []progress.MilestoneDefinition {
	return []progress.MilestoneDefinition{
		{Name: "Fit-Up", Weight: decimal.NewFromInt(10), Order: 1},
		{Name: "Weld Made", Weight: decimal.NewFromInt(60), Order: 2},
		{Name: "Punch", Weight: decimal.NewFromInt(10), Order: 3},
		{Name: "Test", Weight: decimal.NewFromInt(15), Order: 4, RequiresSecondaryApproval: true},
		{Name: "Restore", Weight: decimal.NewFromInt(5), Order: 5},
	}
}

// ValveMilestones mixes discrete and partial steps.
func ValveMilestones() []progress.MilestoneDefinition {
	return []progress.MilestoneDefinition{
		{Name: "Receive", Weight: decimal.NewFromInt(10), Order: 1},
		{Name: "Install", Weight: decimal.NewFromInt(60), Order: 2, IsPartial: true},
		{Name: "Punch", Weight: decimal.NewFromInt(10), Order: 3},
		{Name: "Test", Weight: decimal.NewFromInt(15), Order: 4},
		{Name: "Restore", Weight: decimal.NewFromInt(5), Order: 5},
	}
}

func SeedTemplate(tb testing.TB, ctx context.Context, tx *gorm.DB, category progress.Category, version int, defs []progress.MilestoneDefinition) *types.MilestoneTemplate {
	tb.Helper()
	raw, err := json.Marshal(defs)
	if err != nil {
		tb.Fatalf("marshal milestones: %v", err)
	}
	row := &types.MilestoneTemplate{
		ID:         uuid.New(),
		Category:   string(category),
		Version:    version,
		Milestones: datatypes.JSON(raw),
		CreatedBy:  "seed",
		CreatedAt:  time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed template: %v", err)
	}
	return row
}

// ComponentSpec describes a component to seed; zero values get defaults.
type ComponentSpec struct {
	Category    progress.Category
	Size        string
	Length      *float64
	TemplateID  *uuid.UUID
	Milestones  progress.MilestoneState
	Area        string
	System      string
	TestPackage string
	Retired     bool
}

func SeedComponent(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID uuid.UUID, spec ComponentSpec) *types.Component {
	tb.Helper()
	if spec.Category == "" {
		spec.Category = progress.CategoryValve
	}
	now := time.Now().UTC()
	c := &types.Component{
		ID:          uuid.New(),
		ProjectID:   projectID,
		Category:    string(spec.Category),
		TemplateID:  spec.TemplateID,
		Area:        spec.Area,
		System:      spec.System,
		TestPackage: spec.TestPackage,
		IsRetired:   spec.Retired,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := c.SetIdentity(progress.IdentityKey{DrawingNo: "DWG-001", Size: spec.Size, Length: spec.Length}); err != nil {
		tb.Fatalf("identity: %v", err)
	}
	if err := c.SetMilestones(spec.Milestones); err != nil {
		tb.Fatalf("milestones: %v", err)
	}
	if err := tx.WithContext(ctx).Select("*").Create(c).Error; err != nil {
		tb.Fatalf("seed component: %v", err)
	}
	return c
}

func SeedBudget(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID uuid.UUID, version int, total int64, active bool) *types.ManhourBudget {
	tb.Helper()
	now := time.Now().UTC()
	b := &types.ManhourBudget{
		ID:             uuid.New(),
		ProjectID:      projectID,
		Version:        version,
		TotalHours:     decimal.NewFromInt(total),
		RevisionReason: "seed",
		IsActive:       active,
		EffectiveDate:  now,
		CreatedAt:      now,
	}
	if err := tx.WithContext(ctx).Select("*").Create(b).Error; err != nil {
		tb.Fatalf("seed budget: %v", err)
	}
	return b
}

func SeedAllocation(tb testing.TB, ctx context.Context, tx *gorm.DB, b *types.ManhourBudget, componentID uuid.UUID, budgeted string) *types.ComponentManhourAllocation {
	tb.Helper()
	now := time.Now().UTC()
	a := &types.ComponentManhourAllocation{
		ID:               uuid.New(),
		BudgetID:         b.ID,
		ComponentID:      componentID,
		ProjectID:        b.ProjectID,
		BudgetedHours:    decimal.RequireFromString(budgeted),
		EarnedHours:      decimal.Zero,
		CalculationBasis: "dimension",
		CalculationTrace: datatypes.JSON([]byte(`{"weight":1,"total_weight":1}`)),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed allocation: %v", err)
	}
	return a
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrFloat(v float64) *float64 { return &v }
