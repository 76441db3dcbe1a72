package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/earnedvalue-backend/internal/data/repos"
	mhrepos "github.com/yungbote/earnedvalue-backend/internal/data/repos/manhours"
	types "github.com/yungbote/earnedvalue-backend/internal/domain"
	domainagg "github.com/yungbote/earnedvalue-backend/internal/domain/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
	"github.com/yungbote/earnedvalue-backend/internal/modules/earnedvalue"
	"github.com/yungbote/earnedvalue-backend/internal/observability"
	"github.com/yungbote/earnedvalue-backend/internal/platform/ctxutil"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
	"github.com/yungbote/earnedvalue-backend/internal/platform/logger"
)

// ComponentProgress is the read view of one component: its milestone state,
// the template it is tracked against and its slice of the active budget.
type ComponentProgress struct {
	Component        *types.Component                  `json:"component"`
	Milestones       progress.MilestoneState           `json:"milestones"`
	Template         *progress.Template                `json:"template,omitempty"`
	PendingApprovals []string                          `json:"pending_approvals"`
	Budget           *types.ManhourBudget              `json:"active_budget,omitempty"`
	Allocation       *types.ComponentManhourAllocation `json:"allocation,omitempty"`
	// Status mirrors the recalculation hook outcomes for a read.
	Status domainagg.RecalcStatus `json:"status"`
}

type ComponentService interface {
	// UpdateMilestones merges changes into the component's current state.
	UpdateMilestones(dbc dbctx.Context, componentID uuid.UUID, changes progress.MilestoneState) (domainagg.UpdateMilestonesResult, error)
	// SyncMilestones replaces the whole state with an upstream snapshot.
	SyncMilestones(dbc dbctx.Context, componentID uuid.UUID, snapshot progress.MilestoneState) (domainagg.UpdateMilestonesResult, error)
	Recalculate(dbc dbctx.Context, componentID uuid.UUID) (domainagg.RecalculateComponentResult, error)
	Progress(dbc dbctx.Context, componentID uuid.UUID) (*ComponentProgress, error)
}

type componentService struct {
	db       *gorm.DB
	log      *logger.Logger
	repos    repos.Set
	agg      domainagg.EarnedValueAggregate
	notifier ChangeNotifier
}

func NewComponentService(db *gorm.DB, baseLog *logger.Logger, set repos.Set, agg domainagg.EarnedValueAggregate, notifier ChangeNotifier) ComponentService {
	return &componentService{
		db:       db,
		log:      baseLog.With("service", "ComponentService"),
		repos:    set,
		agg:      agg,
		notifier: notifier,
	}
}

func (s *componentService) UpdateMilestones(dbc dbctx.Context, componentID uuid.UUID, changes progress.MilestoneState) (domainagg.UpdateMilestonesResult, error) {
	return s.apply(dbc, "ComponentService.UpdateMilestones", componentID, changes, false)
}

func (s *componentService) SyncMilestones(dbc dbctx.Context, componentID uuid.UUID, snapshot progress.MilestoneState) (domainagg.UpdateMilestonesResult, error) {
	if snapshot == nil {
		snapshot = progress.MilestoneState{}
	}
	return s.apply(dbc, "ComponentService.SyncMilestones", componentID, snapshot, true)
}

func (s *componentService) apply(dbc dbctx.Context, name string, componentID uuid.UUID, changes progress.MilestoneState, replace bool) (domainagg.UpdateMilestonesResult, error) {
	ctx, span := observability.StartSpan(dbc.Ctx, name,
		attribute.String("component_id", componentID.String()),
		attribute.Int("changes", len(changes)),
	)
	res, err := s.agg.UpdateMilestones(ctx, domainagg.UpdateMilestonesInput{
		ComponentID: componentID,
		Changes:     changes,
		Replace:     replace,
		Actor:       ctxutil.ActorID(ctx, "system"),
	})
	if err == nil {
		span.SetAttributes(
			attribute.String("recalc.status", string(res.Recalc.Status)),
			attribute.Bool("changed", res.Changed),
		)
	}
	observability.EndSpan(span, err)
	if err != nil {
		return res, err
	}
	if res.Recalc.Status == domainagg.RecalcNotAllocated {
		s.log.Warn("component has no allocation in active budget", append([]any{
			"component_id", componentID,
			"project_id", res.ProjectID,
			"budget_version", res.Recalc.BudgetVersion,
		}, ctxutil.LogFields(ctx)...)...)
	}
	if res.PendingApprovals == nil {
		res.PendingApprovals = []string{}
	}
	if s.notifier != nil && (res.Changed || res.Recalc.Status == domainagg.RecalcRecalculated) {
		s.notifier.EarnedValueChanged(ctx, res.Recalc)
	}
	return res, nil
}

func (s *componentService) Recalculate(dbc dbctx.Context, componentID uuid.UUID) (domainagg.RecalculateComponentResult, error) {
	ctx, span := observability.StartSpan(dbc.Ctx, "ComponentService.Recalculate",
		attribute.String("component_id", componentID.String()),
	)
	res, err := s.agg.RecalculateComponent(ctx, domainagg.RecalculateComponentInput{ComponentID: componentID})
	observability.EndSpan(span, err)
	if err != nil {
		return res, err
	}
	if s.notifier != nil && !res.EarnedHours.Equal(res.PreviousEarned) {
		s.notifier.EarnedValueChanged(ctx, res)
	}
	return res, nil
}

func (s *componentService) Progress(dbc dbctx.Context, componentID uuid.UUID) (*ComponentProgress, error) {
	const op = "Progress.ComponentService.Progress"
	if componentID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "missing component_id", nil)
	}
	comp, err := s.repos.Components.GetByID(dbc, componentID)
	if err != nil {
		return nil, err
	}
	if comp == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("component not found: %s", componentID), nil)
	}
	state, err := comp.Milestones()
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeInvariantViolation, op, err.Error(), err)
	}
	tpl, err := s.templateFor(dbc, op, comp)
	if err != nil {
		return nil, err
	}

	out := &ComponentProgress{
		Component:        comp,
		Milestones:       state,
		Template:         tpl,
		PendingApprovals: earnedvalue.PendingApprovals(tpl, state),
		Status:           domainagg.RecalcNoBudget,
	}
	if out.PendingApprovals == nil {
		out.PendingApprovals = []string{}
	}

	budget, err := s.repos.Budgets.GetActive(dbc, comp.ProjectID)
	if errors.Is(err, mhrepos.ErrMultipleActive) {
		return nil, domainagg.Wrap(domainagg.CodeInvariantViolation, op, err)
	}
	if err != nil {
		return nil, err
	}
	if budget == nil {
		return out, nil
	}
	out.Budget = budget
	alloc, err := s.repos.Allocations.Get(dbc, budget.ID, comp.ID)
	if err != nil {
		return nil, err
	}
	if alloc == nil {
		out.Status = domainagg.RecalcNotAllocated
		return out, nil
	}
	out.Allocation = alloc
	out.Status = domainagg.RecalcRecalculated
	return out, nil
}

// templateFor resolves the pinned template, falling back to the latest
// version of the category for components that were never updated.
func (s *componentService) templateFor(dbc dbctx.Context, op string, comp *types.Component) (*progress.Template, error) {
	var (
		row *progress.MilestoneTemplate
		err error
	)
	if comp.TemplateID != nil && *comp.TemplateID != uuid.Nil {
		row, err = s.repos.Templates.GetByID(dbc, *comp.TemplateID)
	} else {
		row, err = s.repos.Templates.GetLatest(dbc, comp.Category)
	}
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return decodeTemplate(op, row)
}
