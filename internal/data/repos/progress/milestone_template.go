package progress

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/earnedvalue-backend/internal/domain"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

// MilestoneTemplateRepo is append-only: there is no update or delete.
type MilestoneTemplateRepo interface {
	Create(dbc dbctx.Context, row *types.MilestoneTemplate) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.MilestoneTemplate, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.MilestoneTemplate, error)
	GetLatest(dbc dbctx.Context, category string) (*types.MilestoneTemplate, error)
	GetByVersion(dbc dbctx.Context, category string, version int) (*types.MilestoneTemplate, error)
	ListVersions(dbc dbctx.Context, category string) ([]*types.MilestoneTemplate, error)
	ListLatest(dbc dbctx.Context) ([]*types.MilestoneTemplate, error)
	MaxVersion(dbc dbctx.Context, category string) (int, error)
}

type milestoneTemplateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMilestoneTemplateRepo(db *gorm.DB, baseLog *logger.Logger) MilestoneTemplateRepo {
	return &milestoneTemplateRepo{
		db:  db,
		log: baseLog.With("repo", "MilestoneTemplateRepo"),
	}
}

func (r *milestoneTemplateRepo) Create(dbc dbctx.Context, row *types.MilestoneTemplate) error {
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
	return t.WithContext(dbc.Ctx).Create(row).Error
}

func (r *milestoneTemplateRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.MilestoneTemplate, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.MilestoneTemplate
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

func (r *milestoneTemplateRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.MilestoneTemplate, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.MilestoneTemplate
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *milestoneTemplateRepo) GetLatest(dbc dbctx.Context, category string) (*types.MilestoneTemplate, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, nil
	}
	var row types.MilestoneTemplate
	if err := t.WithContext(dbc.Ctx).
		Where("category = ?", category).
		Order("version DESC").
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *milestoneTemplateRepo) GetByVersion(dbc dbctx.Context, category string, version int) (*types.MilestoneTemplate, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	category = strings.TrimSpace(category)
	if category == "" || version <= 0 {
		return nil, nil
	}
	var row types.MilestoneTemplate
	if err := t.WithContext(dbc.Ctx).
		Where("category = ? AND version = ?", category, version).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *milestoneTemplateRepo) ListVersions(dbc dbctx.Context, category string) ([]*types.MilestoneTemplate, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.MilestoneTemplate
	if err := t.WithContext(dbc.Ctx).
		Where("category = ?", strings.TrimSpace(category)).
		Order("version DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListLatest returns the newest version of every category, ordered by category.
func (r *milestoneTemplateRepo) ListLatest(dbc dbctx.Context) ([]*types.MilestoneTemplate, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.MilestoneTemplate
	latest := t.WithContext(dbc.Ctx).
		Model(&types.MilestoneTemplate{}).
		Select("category, MAX(version) AS version").
		Group("category")
	if err := t.WithContext(dbc.Ctx).
		Table("milestone_template AS mt").
		Select("mt.*").
		Joins("JOIN (?) AS latest ON latest.category = mt.category AND latest.version = mt.version", latest).
		Order("mt.category ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *milestoneTemplateRepo) MaxVersion(dbc dbctx.Context, category string) (int, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var max int
	if err := t.WithContext(dbc.Ctx).
		Model(&types.MilestoneTemplate{}).
		Where("category = ?", strings.TrimSpace(category)).
		Select("COALESCE(MAX(version), 0)").
		Scan(&max).Error; err != nil {
		return 0, err
	}
	return max, nil
}
