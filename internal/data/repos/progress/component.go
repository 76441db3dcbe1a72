package progress

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/earnedvalue-backend/internal/domain"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

type ComponentRepo interface {
	Create(dbc dbctx.Context, rows []*types.Component) ([]*types.Component, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Component, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Component, error)
	// LockByID reads the row with FOR UPDATE where the dialect supports it.
	LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Component, error)
	ListInScope(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Component, error)
	// ListInScopeForShare is ListInScope holding FOR SHARE row locks until the
	// transaction ends, so milestone writers wait for the reader to commit.
	ListInScopeForShare(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Component, error)
	CountInScope(dbc dbctx.Context, projectID uuid.UUID) (int64, error)
	ListIDsByProject(dbc dbctx.Context, projectID uuid.UUID) ([]uuid.UUID, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
}

type componentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewComponentRepo(db *gorm.DB, baseLog *logger.Logger) ComponentRepo {
	return &componentRepo{
		db:  db,
		log: baseLog.With("repo", "ComponentRepo"),
	}
}

func (r *componentRepo) Create(dbc dbctx.Context, rows []*types.Component) ([]*types.Component, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.Component{}, nil
	}
	now := time.Now().UTC()
	for _, c := range rows {
		if c == nil {
			continue
		}
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		if len(c.IdentityKey) == 0 {
			c.IdentityKey = []byte("{}")
		}
		if len(c.CurrentMilestones) == 0 {
			c.CurrentMilestones = []byte("{}")
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		c.UpdatedAt = now
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *componentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Component, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return r.getByID(t.WithContext(dbc.Ctx), id)
}

func (r *componentRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Component, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return r.getByID(t.WithContext(dbc.Ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *componentRepo) getByID(q *gorm.DB, id uuid.UUID) (*types.Component, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Component
	if err := q.Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *componentRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Component, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Component
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

// ListInScope returns every non-retired component of the project ordered by id.
func (r *componentRepo) ListInScope(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Component, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	return r.listInScope(t.WithContext(dbc.Ctx), projectID)
}

func (r *componentRepo) ListInScopeForShare(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Component, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	// id order keeps lock acquisition consistent across concurrent readers
	return r.listInScope(t.WithContext(dbc.Ctx).Clauses(clause.Locking{Strength: "SHARE"}), projectID)
}

func (r *componentRepo) listInScope(q *gorm.DB, projectID uuid.UUID) ([]*types.Component, error) {
	var out []*types.Component
	if projectID == uuid.Nil {
		return out, nil
	}
	if err := q.
		Where("project_id = ? AND is_retired = ?", projectID, false).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *componentRepo) CountInScope(dbc dbctx.Context, projectID uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := t.WithContext(dbc.Ctx).
		Model(&types.Component{}).
		Where("project_id = ? AND is_retired = ?", projectID, false).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *componentRepo) ListIDsByProject(dbc dbctx.Context, projectID uuid.UUID) ([]uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var ids []uuid.UUID
	if err := t.WithContext(dbc.Ctx).
		Model(&types.Component{}).
		Where("project_id = ?", projectID).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *componentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
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
		Model(&types.Component{}).
		Where("id = ?", id).
		Updates(updates).Error
}
