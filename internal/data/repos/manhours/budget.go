package manhours

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/earnedvalue-backend/internal/domain"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

type ManhourBudgetRepo interface {
	Create(dbc dbctx.Context, row *types.ManhourBudget) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ManhourBudget, error)
	// GetActive returns nil, nil when the project has no active version.
	GetActive(dbc dbctx.Context, projectID uuid.UUID) (*types.ManhourBudget, error)
	ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*types.ManhourBudget, error)
	MaxVersion(dbc dbctx.Context, projectID uuid.UUID) (int, error)
	DeactivateAll(dbc dbctx.Context, projectID uuid.UUID) (int64, error)
	CountActive(dbc dbctx.Context, projectID uuid.UUID) (int64, error)
}

type manhourBudgetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewManhourBudgetRepo(db *gorm.DB, baseLog *logger.Logger) ManhourBudgetRepo {
	return &manhourBudgetRepo{
		db:  db,
		log: baseLog.With("repo", "ManhourBudgetRepo"),
	}
}

func (r *manhourBudgetRepo) Create(dbc dbctx.Context, row *types.ManhourBudget) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	// Select("*") so IsActive=false is written explicitly rather than left to the column default.
	return t.WithContext(dbc.Ctx).Select("*").Create(row).Error
}

func (r *manhourBudgetRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ManhourBudget, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.ManhourBudget
	if err := t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *manhourBudgetRepo) GetActive(dbc dbctx.Context, projectID uuid.UUID) (*types.ManhourBudget, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if projectID == uuid.Nil {
		return nil, nil
	}
	var rows []types.ManhourBudget
	if err := t.WithContext(dbc.Ctx).
		Where("project_id = ? AND is_active = ?", projectID, true).
		Order("version DESC").
		Limit(2).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return &rows[0], nil
	default:
		r.log.Error("multiple active budgets for project",
			"project_id", projectID,
			"versions", []int{rows[0].Version, rows[1].Version},
		)
		return &rows[0], ErrMultipleActive
	}
}

func (r *manhourBudgetRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*types.ManhourBudget, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ManhourBudget
	if projectID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Order("version DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *manhourBudgetRepo) MaxVersion(dbc dbctx.Context, projectID uuid.UUID) (int, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var max int
	if err := t.WithContext(dbc.Ctx).
		Model(&types.ManhourBudget{}).
		Where("project_id = ?", projectID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	return max, nil
}

func (r *manhourBudgetRepo) DeactivateAll(dbc dbctx.Context, projectID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.ManhourBudget{}).
		Where("project_id = ? AND is_active = ?", projectID, true).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

func (r *manhourBudgetRepo) CountActive(dbc dbctx.Context, projectID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := t.WithContext(dbc.Ctx).
		Model(&types.ManhourBudget{}).
		Where("project_id = ? AND is_active = ?", projectID, true).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
