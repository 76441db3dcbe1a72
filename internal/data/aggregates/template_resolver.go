package aggregates

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/earnedvalue-backend/internal/data/repos"
	types "github.com/yungbote/earnedvalue-backend/internal/domain"
	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
)

// templateResolver finds the template a component is measured against: its
// pinned template_id when set, otherwise the latest version of its category.
// Lookups are memoized for the life of one transaction.
type templateResolver struct {
	repo       repos.MilestoneTemplateRepo
	byID       map[uuid.UUID]*progress.Template
	byCategory map[string]*progress.Template
}

func newTemplateResolver(repo repos.MilestoneTemplateRepo) *templateResolver {
	return &templateResolver{
		repo:       repo,
		byID:       map[uuid.UUID]*progress.Template{},
		byCategory: map[string]*progress.Template{},
	}
}

// Preload fetches every pinned template of comps in one query.
func (r *templateResolver) Preload(dbc dbctx.Context, comps []*types.Component) error {
	var ids []uuid.UUID
	seen := map[uuid.UUID]struct{}{}
	for _, c := range comps {
		if c.TemplateID == nil || *c.TemplateID == uuid.Nil {
			continue
		}
		if _, ok := seen[*c.TemplateID]; ok {
			continue
		}
		if _, ok := r.byID[*c.TemplateID]; ok {
			continue
		}
		seen[*c.TemplateID] = struct{}{}
		ids = append(ids, *c.TemplateID)
	}
	if len(ids) == 0 {
		return nil
	}
	rows, err := r.repo.GetByIDs(dbc, ids)
	if err != nil {
		return err
	}
	for _, row := range rows {
		tpl, err := row.Decode()
		if err != nil {
			return InvariantError(err.Error())
		}
		r.byID[row.ID] = tpl
	}
	return nil
}

// For returns nil, nil when no template exists for the component's category.
func (r *templateResolver) For(dbc dbctx.Context, c *types.Component) (*progress.Template, error) {
	if c.TemplateID != nil && *c.TemplateID != uuid.Nil {
		if tpl, ok := r.byID[*c.TemplateID]; ok {
			return tpl, nil
		}
		row, err := r.repo.GetByID(dbc, *c.TemplateID)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, InvariantError(fmt.Sprintf("component %s references missing template %s", c.ID, *c.TemplateID))
		}
		tpl, err := row.Decode()
		if err != nil {
			return nil, InvariantError(err.Error())
		}
		r.byID[row.ID] = tpl
		return tpl, nil
	}

	if tpl, ok := r.byCategory[c.Category]; ok {
		return tpl, nil
	}
	row, err := r.repo.GetLatest(dbc, c.Category)
	if err != nil {
		return nil, err
	}
	var tpl *progress.Template
	if row != nil {
		if tpl, err = row.Decode(); err != nil {
			return nil, InvariantError(err.Error())
		}
		r.byID[row.ID] = tpl
	}
	r.byCategory[c.Category] = tpl
	return tpl, nil
}
