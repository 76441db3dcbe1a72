package aggregates

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/yungbote/earnedvalue-backend/internal/data/repos"
	types "github.com/yungbote/earnedvalue-backend/internal/domain"
	domainagg "github.com/yungbote/earnedvalue-backend/internal/domain/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/domain/manhours"
	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
	"github.com/yungbote/earnedvalue-backend/internal/modules/earnedvalue"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
)

const defaultAllocationBatchSize = 500

type BudgetAggregateDeps struct {
	Base BaseDeps

	Budgets     repos.ManhourBudgetRepo
	Allocations repos.AllocationRepo
	Components  repos.ComponentRepo
	Templates   repos.MilestoneTemplateRepo

	Policy    earnedvalue.WeightPolicy
	BatchSize int
	// RequireRevisionReason rejects versions after the first without a reason.
	RequireRevisionReason bool
}

type budgetAggregate struct {
	deps BudgetAggregateDeps
}

func NewBudgetAggregate(deps BudgetAggregateDeps) domainagg.BudgetAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.BatchSize <= 0 {
		deps.BatchSize = defaultAllocationBatchSize
	}
	return &budgetAggregate{deps: deps}
}

func (a *budgetAggregate) Contract() domainagg.Contract {
	return domainagg.BudgetAggregateContract
}

func (a *budgetAggregate) CreateBudget(ctx context.Context, in domainagg.CreateBudgetInput) (domainagg.CreateBudgetResult, error) {
	const op = "Manhours.Budget.CreateBudget"
	var out domainagg.CreateBudgetResult

	if in.ProjectID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing project_id", nil)
	}
	if !in.TotalHours.IsPositive() {
		return out, domainagg.NewError(domainagg.CodeValidation, op, earnedvalue.ErrInvalidBudgetTotal.Error(), earnedvalue.ErrInvalidBudgetTotal)
	}
	if a.deps.Budgets == nil || a.deps.Allocations == nil || a.deps.Components == nil || a.deps.Templates == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "budget aggregate repos not configured", nil)
	}
	reason := strings.TrimSpace(in.Reason)
	total := in.TotalHours.Round(2)
	now := time.Now().UTC()
	effective := in.EffectiveDate.UTC()
	if effective.IsZero() {
		effective = now
	}
	log := a.deps.Base.Log.With("op", op, "project_id", in.ProjectID)

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := a.deps.Base.Guard.LockProject(dbc, in.ProjectID); err != nil {
			return err
		}

		prev, err := a.deps.Budgets.MaxVersion(dbc, in.ProjectID)
		if err != nil {
			return err
		}
		if prev > 0 && reason == "" && a.deps.RequireRevisionReason {
			return ValidationError("revision_reason is required for budget revisions")
		}

		// share locks hold off milestone updates until the new version commits,
		// so its earned hours are computed from current milestones
		comps, err := a.deps.Components.ListInScopeForShare(dbc, in.ProjectID)
		if err != nil {
			return err
		}
		inputs := make([]earnedvalue.ComponentInput, 0, len(comps))
		var warnings []domainagg.AllocationWarning
		for _, c := range comps {
			ci, err := earnedvalue.ComponentInputFrom(c)
			if err != nil {
				// unreadable identity: weigh it at baseline and say so
				ci = earnedvalue.ComponentInput{ID: c.ID, Category: progress.Category(c.Category)}
				warnings = append(warnings, domainagg.AllocationWarning{ComponentID: c.ID, Message: err.Error()})
			}
			inputs = append(inputs, ci)
		}

		dist, err := a.deps.Policy.Distribute(total, inputs)
		if err != nil {
			return err
		}

		if _, err := a.deps.Budgets.DeactivateAll(dbc, in.ProjectID); err != nil {
			return err
		}
		budget := &types.ManhourBudget{
			ID:             uuid.New(),
			ProjectID:      in.ProjectID,
			Version:        prev + 1,
			TotalHours:     total,
			RevisionReason: reason,
			IsActive:       true,
			EffectiveDate:  effective,
			CreatedBy:      strings.TrimSpace(in.CreatedBy),
			CreatedAt:      now,
		}
		if err := a.deps.Budgets.Create(dbc, budget); err != nil {
			return err
		}
		active, err := a.deps.Budgets.CountActive(dbc, in.ProjectID)
		if err != nil {
			return err
		}
		if err := RequireSingleActive(in.ProjectID, active); err != nil {
			return err
		}

		byID := make(map[uuid.UUID]*types.Component, len(comps))
		for _, c := range comps {
			byID[c.ID] = c
		}
		resolver := newTemplateResolver(a.deps.Templates)
		if err := resolver.Preload(dbc, comps); err != nil {
			return err
		}

		rows := make([]*types.ComponentManhourAllocation, 0, len(dist.Allocations))
		for _, alloc := range dist.Allocations {
			c := byID[alloc.ComponentID]
			earned := decimal.Zero
			tpl, err := resolver.For(dbc, c)
			if err != nil {
				return err
			}
			if state, err := c.Milestones(); err == nil {
				earned = earnedvalue.ComputeEarnedHours(decimal.NewNullDecimal(alloc.BudgetedHours), tpl, state)
			} else {
				warnings = append(warnings, domainagg.AllocationWarning{ComponentID: c.ID, Message: err.Error()})
			}
			trace, err := json.Marshal(alloc.Trace)
			if err != nil {
				return err
			}
			recalculated := now
			rows = append(rows, &types.ComponentManhourAllocation{
				ID:                 uuid.New(),
				BudgetID:           budget.ID,
				ComponentID:        c.ID,
				ProjectID:          in.ProjectID,
				BudgetedHours:      alloc.BudgetedHours,
				EarnedHours:        earned,
				CalculationBasis:   string(alloc.Basis),
				CalculationTrace:   datatypes.JSON(trace),
				LastRecalculatedAt: &recalculated,
				CreatedAt:          now,
				UpdatedAt:          now,
			})
		}
		if err := a.deps.Allocations.CreateInBatches(dbc, rows, a.deps.BatchSize); err != nil {
			return err
		}

		for _, w := range dist.Warnings {
			warnings = append(warnings, domainagg.AllocationWarning{ComponentID: w.ComponentID, Message: w.Message})
		}
		out = domainagg.CreateBudgetResult{
			Budget:              *budget,
			PreviousVersion:     prev,
			ComponentsProcessed: len(rows),
			TotalAllocated:      dist.TotalAllocated,
			TotalWeight:         dist.TotalWeight,
			Warnings:            warnings,
		}
		return nil
	})
	if err != nil {
		return domainagg.CreateBudgetResult{}, err
	}

	a.deps.Base.Hooks.ObserveDistribution(out.ComponentsProcessed, len(out.Warnings))
	log.Info("manhour budget created",
		"version", out.Budget.Version,
		"components", out.ComponentsProcessed,
		"total_hours", total.String(),
		"allocated_hours", out.TotalAllocated.String(),
		"warnings", len(out.Warnings),
	)
	return out, nil
}

func (a *budgetAggregate) OverrideAllocation(ctx context.Context, in domainagg.OverrideAllocationInput) (domainagg.OverrideAllocationResult, error) {
	const op = "Manhours.Budget.OverrideAllocation"
	var out domainagg.OverrideAllocationResult

	if in.ProjectID == uuid.Nil || in.ComponentID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing project_id or component_id", nil)
	}
	if in.Hours.IsNegative() {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "hours must be >= 0", nil)
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "override reason is required", nil)
	}
	if a.deps.Budgets == nil || a.deps.Allocations == nil || a.deps.Components == nil || a.deps.Templates == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "budget aggregate repos not configured", nil)
	}
	hours := in.Hours.Round(2)
	now := time.Now().UTC()

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := a.deps.Base.Guard.LockProject(dbc, in.ProjectID); err != nil {
			return err
		}
		budget, err := a.deps.Budgets.GetActive(dbc, in.ProjectID)
		if err != nil {
			return InvariantError(err.Error())
		}
		if budget == nil {
			return domainagg.Detail(domainagg.NewError(domainagg.CodePreconditionFailed, op, "project has no active manhour budget", nil),
				"project_id", in.ProjectID)
		}
		comp, err := a.deps.Components.LockByID(dbc, in.ComponentID)
		if err != nil {
			return err
		}
		if comp == nil {
			return domainagg.Detail(domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("component not found: %s", in.ComponentID), nil),
				"component_id", in.ComponentID)
		}
		if err := RequireSameProject("component", in.ProjectID, comp.ProjectID); err != nil {
			return domainagg.Detail(domainagg.NewError(domainagg.CodeValidation, op, err.Error(), nil),
				"component_id", in.ComponentID, "project_id", comp.ProjectID)
		}
		alloc, err := a.deps.Allocations.Lock(dbc, budget.ID, in.ComponentID)
		if err != nil {
			return err
		}
		if alloc == nil {
			return domainagg.Detail(domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("component %s has no allocation in budget v%d", in.ComponentID, budget.Version), nil),
				"component_id", in.ComponentID, "budget_version", budget.Version)
		}

		trace, err := alloc.Trace()
		if err != nil {
			return InvariantError(err.Error())
		}
		prevHours := alloc.BudgetedHours
		prevBasis := manhours.CalculationBasis(alloc.CalculationBasis)
		if prevBasis == manhours.BasisManualOverride && trace.Override != nil {
			// keep the distributor's basis across repeated overrides
			prevBasis = trace.Override.PreviousBasis
		}
		trace.Override = &manhours.OverrideTrace{
			PreviousHours: prevHours,
			PreviousBasis: prevBasis,
			Reason:        reason,
			OverriddenBy:  strings.TrimSpace(in.Actor),
			OverriddenAt:  now,
		}
		if err := alloc.SetTrace(trace); err != nil {
			return err
		}

		tpl, err := newTemplateResolver(a.deps.Templates).For(dbc, comp)
		if err != nil {
			return err
		}
		state, err := comp.Milestones()
		if err != nil {
			return InvariantError(err.Error())
		}
		earned := earnedvalue.ComputeEarnedHours(decimal.NewNullDecimal(hours), tpl, state)

		if err := a.deps.Allocations.UpdateFields(dbc, alloc.ID, map[string]any{
			"budgeted_hours":       hours,
			"earned_hours":         earned,
			"calculation_basis":    string(manhours.BasisManualOverride),
			"calculation_trace":    alloc.CalculationTrace,
			"last_recalculated_at": now,
		}); err != nil {
			return err
		}

		alloc.BudgetedHours = hours
		alloc.EarnedHours = earned
		alloc.CalculationBasis = string(manhours.BasisManualOverride)
		alloc.LastRecalculatedAt = &now
		alloc.UpdatedAt = now
		out = domainagg.OverrideAllocationResult{Allocation: *alloc, PreviousHours: prevHours}
		return nil
	})
	if err != nil {
		return domainagg.OverrideAllocationResult{}, err
	}
	return out, nil
}
