package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/earnedvalue-backend/internal/data/repos"
	mhrepos "github.com/yungbote/earnedvalue-backend/internal/data/repos/manhours"
	types "github.com/yungbote/earnedvalue-backend/internal/domain"
	domainagg "github.com/yungbote/earnedvalue-backend/internal/domain/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/observability"
	"github.com/yungbote/earnedvalue-backend/internal/platform/ctxutil"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

type CreateBudgetRequest struct {
	ProjectID     uuid.UUID
	TotalHours    decimal.Decimal
	Reason        string
	EffectiveDate time.Time
}

// CreateBudgetResponse is the outcome of distributing a new budget version.
type CreateBudgetResponse struct {
	Budget              *types.ManhourBudget          `json:"budget"`
	ComponentsProcessed int                           `json:"components_processed"`
	TotalAllocated      decimal.Decimal               `json:"total_allocated"`
	Warnings            []domainagg.AllocationWarning `json:"warnings"`
}

type OverrideAllocationRequest struct {
	ProjectID   uuid.UUID
	ComponentID uuid.UUID
	Hours       decimal.Decimal
	Reason      string
}

type BudgetService interface {
	CreateBudget(dbc dbctx.Context, in CreateBudgetRequest) (*CreateBudgetResponse, error)
	// GetActiveBudget returns nil, nil when the project has no budget yet.
	GetActiveBudget(dbc dbctx.Context, projectID uuid.UUID) (*types.ManhourBudget, error)
	ListBudgetVersions(dbc dbctx.Context, projectID uuid.UUID) ([]*types.ManhourBudget, error)
	OverrideAllocation(dbc dbctx.Context, in OverrideAllocationRequest) (*types.ComponentManhourAllocation, error)
}

type budgetService struct {
	db       *gorm.DB
	log      *logger.Logger
	budgets  repos.ManhourBudgetRepo
	agg      domainagg.BudgetAggregate
	notifier ChangeNotifier
}

func NewBudgetService(db *gorm.DB, baseLog *logger.Logger, budgets repos.ManhourBudgetRepo, agg domainagg.BudgetAggregate, notifier ChangeNotifier) BudgetService {
	return &budgetService{
		db:       db,
		log:      baseLog.With("service", "BudgetService"),
		budgets:  budgets,
		agg:      agg,
		notifier: notifier,
	}
}

func (s *budgetService) CreateBudget(dbc dbctx.Context, in CreateBudgetRequest) (*CreateBudgetResponse, error) {
	ctx, span := observability.StartSpan(dbc.Ctx, "BudgetService.CreateBudget",
		attribute.String("project_id", in.ProjectID.String()),
		attribute.String("total_hours", in.TotalHours.String()),
	)
	res, err := s.agg.CreateBudget(ctx, domainagg.CreateBudgetInput{
		ProjectID:     in.ProjectID,
		TotalHours:    in.TotalHours,
		Reason:        in.Reason,
		EffectiveDate: in.EffectiveDate,
		CreatedBy:     ctxutil.ActorID(ctx, "system"),
	})
	if err == nil {
		span.SetAttributes(
			attribute.Int("budget.version", res.Budget.Version),
			attribute.Int("components", res.ComponentsProcessed),
			attribute.Int("warnings", len(res.Warnings)),
		)
	}
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	if len(res.Warnings) > 0 {
		msgs := make([]string, 0, len(res.Warnings))
		for _, w := range res.Warnings {
			msgs = append(msgs, w.Message)
		}
		observability.ReportDataQualityWarnings(ctx, s.log, "budget_distribution", msgs, map[string]any{
			"project_id": in.ProjectID.String(),
			"version":    res.Budget.Version,
		})
	}
	if s.notifier != nil {
		s.notifier.BudgetCreated(ctx, res)
	}

	warnings := res.Warnings
	if warnings == nil {
		warnings = []domainagg.AllocationWarning{}
	}
	budget := res.Budget
	return &CreateBudgetResponse{
		Budget:              &budget,
		ComponentsProcessed: res.ComponentsProcessed,
		TotalAllocated:      res.TotalAllocated,
		Warnings:            warnings,
	}, nil
}

func (s *budgetService) GetActiveBudget(dbc dbctx.Context, projectID uuid.UUID) (*types.ManhourBudget, error) {
	const op = "Manhours.BudgetService.GetActiveBudget"
	if projectID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing project_id", nil)
	}
	b, err := s.budgets.GetActive(dbc, projectID)
	if errors.Is(err, mhrepos.ErrMultipleActive) {
		return nil, domainagg.Wrap(domainagg.CodeInvariantViolation, op, err)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *budgetService) ListBudgetVersions(dbc dbctx.Context, projectID uuid.UUID) ([]*types.ManhourBudget, error) {
	const op = "Manhours.BudgetService.ListBudgetVersions"
	if projectID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing project_id", nil)
	}
	return s.budgets.ListByProject(dbc, projectID)
}

func (s *budgetService) OverrideAllocation(dbc dbctx.Context, in OverrideAllocationRequest) (*types.ComponentManhourAllocation, error) {
	ctx, span := observability.StartSpan(dbc.Ctx, "BudgetService.OverrideAllocation",
		attribute.String("project_id", in.ProjectID.String()),
		attribute.String("component_id", in.ComponentID.String()),
	)
	res, err := s.agg.OverrideAllocation(ctx, domainagg.OverrideAllocationInput{
		ProjectID:   in.ProjectID,
		ComponentID: in.ComponentID,
		Hours:       in.Hours,
		Reason:      in.Reason,
		Actor:       ctxutil.ActorID(ctx, "system"),
	})
	observability.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	s.log.Info("allocation overridden",
		"project_id", in.ProjectID,
		"component_id", in.ComponentID,
		"previous_hours", res.PreviousHours.String(),
		"hours", res.Allocation.BudgetedHours.String(),
	)
	if s.notifier != nil {
		s.notifier.AllocationOverridden(ctx, in.ProjectID, res)
	}
	alloc := res.Allocation
	return &alloc, nil
}

