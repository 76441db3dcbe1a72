package manhours

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/earnedvalue-backend/internal/domain"
	"github.com/yungbote/earnedvalue-backend/internal/domain/manhours"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

const DefaultBatchSize = 500

// Totals is an aggregate over a set of allocation rows.
type Totals struct {
	GroupKey       string          `gorm:"column:group_key"`
	ComponentCount int64           `gorm:"column:component_count"`
	BudgetedHours  decimal.Decimal `gorm:"column:budgeted_hours"`
	EarnedHours    decimal.Decimal `gorm:"column:earned_hours"`
}

type AllocationRepo interface {
	CreateInBatches(dbc dbctx.Context, rows []*types.ComponentManhourAllocation, batchSize int) error
	Get(dbc dbctx.Context, budgetID, componentID uuid.UUID) (*types.ComponentManhourAllocation, error)
	// Lock reads the (budget, component) row with FOR UPDATE where the dialect supports it.
	Lock(dbc dbctx.Context, budgetID, componentID uuid.UUID) (*types.ComponentManhourAllocation, error)
	ListByBudget(dbc dbctx.Context, budgetID uuid.UUID) ([]*types.ComponentManhourAllocation, error)
	ListByComponent(dbc dbctx.Context, componentID uuid.UUID) ([]*types.ComponentManhourAllocation, error)
	CountByBudget(dbc dbctx.Context, budgetID uuid.UUID) (int64, error)
	UpdateEarned(dbc dbctx.Context, id uuid.UUID, earned decimal.Decimal, at time.Time) error
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	SumByBudget(dbc dbctx.Context, budgetID uuid.UUID) (Totals, error)
	SumByGroup(dbc dbctx.Context, budgetID uuid.UUID, dim manhours.GroupDimension) ([]Totals, error)
}

type allocationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAllocationRepo(db *gorm.DB, baseLog *logger.Logger) AllocationRepo {
	return &allocationRepo{
		db:  db,
		log: baseLog.With("repo", "AllocationRepo"),
	}
}

func (r *allocationRepo) CreateInBatches(dbc dbctx.Context, rows []*types.ComponentManhourAllocation, batchSize int) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	now := time.Now().UTC()
	for _, a := range rows {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		if len(a.CalculationTrace) == 0 {
			a.CalculationTrace = []byte("{}")
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		a.UpdatedAt = now
	}
	return t.WithContext(dbc.Ctx).CreateInBatches(rows, batchSize).Error
}

func (r *allocationRepo) Get(dbc dbctx.Context, budgetID, componentID uuid.UUID) (*types.ComponentManhourAllocation, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return r.get(t.WithContext(dbc.Ctx), budgetID, componentID)
}

func (r *allocationRepo) Lock(dbc dbctx.Context, budgetID, componentID uuid.UUID) (*types.ComponentManhourAllocation, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return r.get(t.WithContext(dbc.Ctx).Clauses(clause.Locking{Strength: "UPDATE"}), budgetID, componentID)
}

func (r *allocationRepo) get(q *gorm.DB, budgetID, componentID uuid.UUID) (*types.ComponentManhourAllocation, error) {
	if budgetID == uuid.Nil || componentID == uuid.Nil {
		return nil, nil
	}
	var row types.ComponentManhourAllocation
	if err := q.
		Where("budget_id = ? AND component_id = ?", budgetID, componentID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *allocationRepo) ListByBudget(dbc dbctx.Context, budgetID uuid.UUID) ([]*types.ComponentManhourAllocation, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ComponentManhourAllocation
	if budgetID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("budget_id = ?", budgetID).
		Order("component_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *allocationRepo) ListByComponent(dbc dbctx.Context, componentID uuid.UUID) ([]*types.ComponentManhourAllocation, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ComponentManhourAllocation
	if componentID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("component_id = ?", componentID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *allocationRepo) CountByBudget(dbc dbctx.Context, budgetID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := t.WithContext(dbc.Ctx).
		Model(&types.ComponentManhourAllocation{}).
		Where("budget_id = ?", budgetID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *allocationRepo) UpdateEarned(dbc dbctx.Context, id uuid.UUID, earned decimal.Decimal, at time.Time) error {
	return r.UpdateFields(dbc, id, map[string]any{
		"earned_hours":         earned,
		"last_recalculated_at": at,
	})
}

func (r *allocationRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]any{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.ComponentManhourAllocation{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *allocationRepo) SumByBudget(dbc dbctx.Context, budgetID uuid.UUID) (Totals, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out Totals
	if err := t.WithContext(dbc.Ctx).
		Model(&types.ComponentManhourAllocation{}).
		Select(`'' AS group_key,
			COUNT(*) AS component_count,
			COALESCE(SUM(budgeted_hours), 0) AS budgeted_hours,
			COALESCE(SUM(earned_hours), 0) AS earned_hours`).
		Where("budget_id = ?", budgetID).
		Scan(&out).Error; err != nil {
		return Totals{}, err
	}
	return out, nil
}

var groupColumns = map[manhours.GroupDimension]string{
	manhours.GroupByArea:        "c.area",
	manhours.GroupBySystem:      "c.system",
	manhours.GroupByTestPackage: "c.test_package",
}

// SumByGroup totals a budget's allocations per grouping attribute of the
// component. Empty attributes are folded into manhours.UnassignedGroup.
func (r *allocationRepo) SumByGroup(dbc dbctx.Context, budgetID uuid.UUID, dim manhours.GroupDimension) ([]Totals, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	col, ok := groupColumns[dim]
	if !ok {
		return nil, fmt.Errorf("unsupported group dimension %q", dim)
	}
	keyExpr := fmt.Sprintf("COALESCE(NULLIF(TRIM(%s), ''), '%s')", col, manhours.UnassignedGroup)

	var out []Totals
	if err := t.WithContext(dbc.Ctx).
		Table("component_manhour_allocation AS a").
		Joins("JOIN component AS c ON c.id = a.component_id").
		Select(keyExpr+` AS group_key,
			COUNT(*) AS component_count,
			COALESCE(SUM(a.budgeted_hours), 0) AS budgeted_hours,
			COALESCE(SUM(a.earned_hours), 0) AS earned_hours`).
		Where("a.budget_id = ?", budgetID).
		Group(keyExpr).
		Order("group_key ASC").
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
