package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yungbote/earnedvalue-backend/internal/data/cache"
	"github.com/yungbote/earnedvalue-backend/internal/data/repos"
	mhrepos "github.com/yungbote/earnedvalue-backend/internal/data/repos/manhours"
	types "github.com/yungbote/earnedvalue-backend/internal/domain"
	domainagg "github.com/yungbote/earnedvalue-backend/internal/domain/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/domain/manhours"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

// ProjectReport is an earned-value view over the active budget.
// Configured is false, and everything else empty, when the project has no budget.
type ProjectReport struct {
	ProjectID     uuid.UUID        `json:"project_id"`
	Configured    bool             `json:"configured"`
	BudgetID      *uuid.UUID       `json:"budget_id,omitempty"`
	BudgetVersion int              `json:"budget_version,omitempty"`
	TotalHours    *decimal.Decimal `json:"total_hours,omitempty"`

	Dimension manhours.GroupDimension `json:"dimension,omitempty"`
	Total     *manhours.Rollup        `json:"total,omitempty"`
	Groups    []manhours.Rollup       `json:"groups,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

type ReportService interface {
	ProjectSummary(dbc dbctx.Context, projectID uuid.UUID) (*ProjectReport, error)
	Breakdown(dbc dbctx.Context, projectID uuid.UUID, dim manhours.GroupDimension) (*ProjectReport, error)
}

type reportService struct {
	db      *gorm.DB
	log     *logger.Logger
	budgets repos.ManhourBudgetRepo
	allocs  repos.AllocationRepo
	cache   cache.ReportCache
}

func NewReportService(db *gorm.DB, baseLog *logger.Logger, budgets repos.ManhourBudgetRepo, allocs repos.AllocationRepo, reportCache cache.ReportCache) ReportService {
	if reportCache == nil {
		reportCache = cache.NewNoop()
	}
	return &reportService{
		db:      db,
		log:     baseLog.With("service", "ReportService"),
		budgets: budgets,
		allocs:  allocs,
		cache:   reportCache,
	}
}

func (s *reportService) ProjectSummary(dbc dbctx.Context, projectID uuid.UUID) (*ProjectReport, error) {
	const op = "Manhours.ReportService.ProjectSummary"
	return s.cached(dbc, op, projectID, "summary", func(b *types.ManhourBudget, out *ProjectReport) error {
		t, err := s.allocs.SumByBudget(dbc, b.ID)
		if err != nil {
			return err
		}
		r := manhours.NewRollup("project", t.ComponentCount, t.BudgetedHours, t.EarnedHours)
		out.Total = &r
		return nil
	})
}

func (s *reportService) Breakdown(dbc dbctx.Context, projectID uuid.UUID, dim manhours.GroupDimension) (*ProjectReport, error) {
	const op = "Manhours.ReportService.Breakdown"
	if !dim.Valid() {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "group dimension must be one of area, system, test_package", nil)
	}
	return s.cached(dbc, op, projectID, "breakdown:"+string(dim), func(b *types.ManhourBudget, out *ProjectReport) error {
		rows, err := s.allocs.SumByGroup(dbc, b.ID, dim)
		if err != nil {
			return err
		}
		out.Dimension = dim
		out.Groups = make([]manhours.Rollup, 0, len(rows))
		var (
			count    int64
			budgeted = decimal.Zero
			earned   = decimal.Zero
		)
		for _, row := range rows {
			out.Groups = append(out.Groups, manhours.NewRollup(row.GroupKey, row.ComponentCount, row.BudgetedHours, row.EarnedHours))
			count += row.ComponentCount
			budgeted = budgeted.Add(row.BudgetedHours)
			earned = earned.Add(row.EarnedHours)
		}
		total := manhours.NewRollup("project", count, budgeted, earned)
		out.Total = &total
		return nil
	})
}

func (s *reportService) cached(
	dbc dbctx.Context,
	op string,
	projectID uuid.UUID,
	view string,
	build func(b *types.ManhourBudget, out *ProjectReport) error,
) (*ProjectReport, error) {
	if projectID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing project_id", nil)
	}

	var hit ProjectReport
	ok, err := s.cache.Get(dbc.Ctx, projectID, view, &hit)
	if err != nil {
		s.log.Warn("report cache read failed", "project_id", projectID, "view", view, "error", err)
	}
	if ok {
		return &hit, nil
	}

	out := &ProjectReport{ProjectID: projectID, GeneratedAt: time.Now().UTC()}
	budget, err := s.budgets.GetActive(dbc, projectID)
	if errors.Is(err, mhrepos.ErrMultipleActive) {
		return nil, domainagg.Wrap(domainagg.CodeInvariantViolation, op, err)
	}
	if err != nil {
		return nil, err
	}
	if budget != nil {
		out.Configured = true
		out.BudgetID = &budget.ID
		out.BudgetVersion = budget.Version
		total := budget.TotalHours
		out.TotalHours = &total
		if err := build(budget, out); err != nil {
			return nil, err
		}
	}

	if err := s.cache.Set(dbc.Ctx, projectID, view, out); err != nil {
		s.log.Warn("report cache write failed", "project_id", projectID, "view", view, "error", err)
	}
	return out, nil
}
