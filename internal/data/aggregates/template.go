package aggregates

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/earnedvalue-backend/internal/data/repos"
	types "github.com/yungbote/earnedvalue-backend/internal/domain"
	domainagg "github.com/yungbote/earnedvalue-backend/internal/domain/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
	"github.com/yungbote/earnedvalue-backend/internal/modules/earnedvalue"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
)

type TemplateAggregateDeps struct {
	Base BaseDeps

	Templates repos.MilestoneTemplateRepo
}

type templateAggregate struct {
	deps TemplateAggregateDeps
}

func NewTemplateAggregate(deps TemplateAggregateDeps) domainagg.TemplateAggregate {
	deps.Base = deps.Base.withDefaults()
	return &templateAggregate{deps: deps}
}

func (a *templateAggregate) Contract() domainagg.Contract {
	return domainagg.TemplateAggregateContract
}

func (a *templateAggregate) CreateTemplateVersion(ctx context.Context, in domainagg.CreateTemplateVersionInput) (domainagg.CreateTemplateVersionResult, error) {
	const op = "Progress.Template.CreateTemplateVersion"
	var out domainagg.CreateTemplateVersionResult

	if !in.Category.Valid() {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "unknown component category: "+string(in.Category), nil)
	}
	if a.deps.Templates == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "template repo not configured", nil)
	}
	defs := earnedvalue.NormalizeDefinitions(in.Milestones)
	if err := earnedvalue.ValidateTemplate(defs); err != nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
	}
	raw, err := json.Marshal(defs)
	if err != nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "encode milestones", err)
	}

	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := a.deps.Base.Guard.LockCategory(dbc, string(in.Category)); err != nil {
			return err
		}
		latest, err := a.deps.Templates.GetLatest(dbc, string(in.Category))
		if err != nil {
			return err
		}
		next := 1
		if latest != nil {
			next = latest.Version + 1
			if in.SkipIfUnchanged {
				decoded, err := latest.Decode()
				if err != nil {
					return InvariantError(err.Error())
				}
				if progress.SameMilestones(decoded.Milestones, defs) {
					out = domainagg.CreateTemplateVersionResult{Template: *latest, Created: false}
					return nil
				}
			}
		}
		row := &types.MilestoneTemplate{
			ID:         uuid.New(),
			Category:   string(in.Category),
			Version:    next,
			Milestones: datatypes.JSON(raw),
			CreatedBy:  strings.TrimSpace(in.CreatedBy),
			CreatedAt:  time.Now().UTC(),
		}
		if err := a.deps.Templates.Create(dbc, row); err != nil {
			return err
		}
		out = domainagg.CreateTemplateVersionResult{Template: *row, Created: true}
		return nil
	})
	if err != nil {
		return domainagg.CreateTemplateVersionResult{}, err
	}
	if out.Created {
		a.deps.Base.Log.Info("milestone template version created",
			"category", in.Category,
			"version", out.Template.Version,
			"milestones", len(defs),
		)
	}
	return out, nil
}
