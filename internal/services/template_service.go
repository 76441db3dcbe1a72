package services

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/earnedvalue-backend/internal/data/repos"
	domainagg "github.com/yungbote/earnedvalue-backend/internal/domain/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
	"github.com/yungbote/earnedvalue-backend/internal/observability"
	"github.com/yungbote/earnedvalue-backend/internal/platform/ctxutil"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

type TemplateService interface {
	// Get returns the given version of a category's template, or the latest when version is 0.
	Get(dbc dbctx.Context, category progress.Category, version int) (*progress.Template, error)
	ListVersions(dbc dbctx.Context, category progress.Category) ([]*progress.Template, error)
	ListLatest(dbc dbctx.Context) ([]*progress.Template, error)
	CreateVersion(dbc dbctx.Context, category progress.Category, defs []progress.MilestoneDefinition, skipIfUnchanged bool) (domainagg.CreateTemplateVersionResult, error)
	Seed(dbc dbctx.Context, set TemplateSet) (SeedResult, error)
}

type templateService struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.MilestoneTemplateRepo
	agg      domainagg.TemplateAggregate
	notifier ChangeNotifier
}

func NewTemplateService(db *gorm.DB, baseLog *logger.Logger, repo repos.MilestoneTemplateRepo, agg domainagg.TemplateAggregate, notifier ChangeNotifier) TemplateService {
	return &templateService{
		db:       db,
		log:      baseLog.With("service", "TemplateService"),
		repo:     repo,
		agg:      agg,
		notifier: notifier,
	}
}

func (s *templateService) Get(dbc dbctx.Context, category progress.Category, version int) (*progress.Template, error) {
	const op = "Progress.TemplateService.Get"
	if !category.Valid() {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "unknown component category: "+string(category), nil)
	}
	var (
		row *progress.MilestoneTemplate
		err error
	)
	if version > 0 {
		row, err = s.repo.GetByVersion(dbc, string(category), version)
	} else {
		row, err = s.repo.GetLatest(dbc, string(category))
	}
	if err != nil {
		return nil, err
	}
	if row == nil {
		msg := fmt.Sprintf("no milestone template for %s", category)
		if version > 0 {
			msg = fmt.Sprintf("no milestone template %s v%d", category, version)
		}
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, msg, nil)
	}
	return decodeTemplate(op, row)
}

func (s *templateService) ListVersions(dbc dbctx.Context, category progress.Category) ([]*progress.Template, error) {
	const op = "Progress.TemplateService.ListVersions"
	if !category.Valid() {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "unknown component category: "+string(category), nil)
	}
	rows, err := s.repo.ListVersions(dbc, string(category))
	if err != nil {
		return nil, err
	}
	return decodeTemplates(op, rows)
}

func (s *templateService) ListLatest(dbc dbctx.Context) ([]*progress.Template, error) {
	rows, err := s.repo.ListLatest(dbc)
	if err != nil {
		return nil, err
	}
	return decodeTemplates("Progress.TemplateService.ListLatest", rows)
}

func (s *templateService) CreateVersion(dbc dbctx.Context, category progress.Category, defs []progress.MilestoneDefinition, skipIfUnchanged bool) (domainagg.CreateTemplateVersionResult, error) {
	ctx, span := observability.StartSpan(dbc.Ctx, "TemplateService.CreateVersion",
		attribute.String("category", string(category)),
		attribute.Int("milestones", len(defs)),
	)
	res, err := s.agg.CreateTemplateVersion(ctx, domainagg.CreateTemplateVersionInput{
		Category:        category,
		Milestones:      defs,
		CreatedBy:       ctxutil.ActorID(ctx, "system"),
		SkipIfUnchanged: skipIfUnchanged,
	})
	observability.EndSpan(span, err)
	if err != nil {
		return res, err
	}
	if res.Created && s.notifier != nil {
		s.notifier.TemplateVersioned(ctx, res.Template)
	}
	return res, nil
}

func decodeTemplate(op string, row *progress.MilestoneTemplate) (*progress.Template, error) {
	tpl, err := row.Decode()
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInvariantViolation, op, err.Error(), err)
	}
	return tpl, nil
}

func decodeTemplates(op string, rows []*progress.MilestoneTemplate) ([]*progress.Template, error) {
	out := make([]*progress.Template, 0, len(rows))
	for _, row := range rows {
		tpl, err := decodeTemplate(op, row)
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	return out, nil
}

func normalizeCategoryKey(raw string) (progress.Category, error) {
	c, ok := progress.ParseCategory(raw)
	if !ok {
		return "", fmt.Errorf("unknown component category %q", strings.TrimSpace(raw))
	}
	return c, nil
}
