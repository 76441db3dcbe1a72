package aggregates

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/earnedvalue-backend/internal/data/repos"
	mhrepos "github.com/yungbote/earnedvalue-backend/internal/data/repos/manhours"
	types "github.com/yungbote/earnedvalue-backend/internal/domain"
	domainagg "github.com/yungbote/earnedvalue-backend/internal/domain/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
	"github.com/yungbote/earnedvalue-backend/internal/modules/earnedvalue"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
)

type EarnedValueAggregateDeps struct {
	Base BaseDeps

	Components  repos.ComponentRepo
	Templates   repos.MilestoneTemplateRepo
	Budgets     repos.ManhourBudgetRepo
	Allocations repos.AllocationRepo
}

type earnedValueAggregate struct {
	deps EarnedValueAggregateDeps
}

func NewEarnedValueAggregate(deps EarnedValueAggregateDeps) domainagg.EarnedValueAggregate {
	deps.Base = deps.Base.withDefaults()
	return &earnedValueAggregate{deps: deps}
}

func (a *earnedValueAggregate) Contract() domainagg.Contract {
	return domainagg.EarnedValueAggregateContract
}

func (a *earnedValueAggregate) configured() bool {
	return a.deps.Components != nil && a.deps.Templates != nil && a.deps.Budgets != nil && a.deps.Allocations != nil
}

func (a *earnedValueAggregate) UpdateMilestones(ctx context.Context, in domainagg.UpdateMilestonesInput) (domainagg.UpdateMilestonesResult, error) {
	const op = "Progress.EarnedValue.UpdateMilestones"
	var out domainagg.UpdateMilestonesResult

	if in.ComponentID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing component_id", nil)
	}
	if len(in.Changes) == 0 && !in.Replace {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "no milestone changes", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "earned value aggregate repos not configured", nil)
	}
	now := time.Now().UTC()

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		comp, err := a.deps.Components.LockByID(dbc, in.ComponentID)
		if err != nil {
			return err
		}
		if comp == nil {
			return domainagg.Detail(domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("component not found: %s", in.ComponentID), nil),
				"component_id", in.ComponentID)
		}
		tpl, err := newTemplateResolver(a.deps.Templates).For(dbc, comp)
		if err != nil {
			return err
		}
		if err := validateMilestoneChanges(tpl, in.Changes, !in.Replace); err != nil {
			return err
		}
		current, err := comp.Milestones()
		if err != nil {
			return InvariantError(err.Error())
		}

		next := current.Merge(in.Changes)
		if in.Replace {
			next = progress.MilestoneState{}.Merge(in.Changes)
		}
		if tpl != nil {
			next = earnedvalue.NormalizeState(tpl, next)
		}
		pct := earnedvalue.ComputePercentComplete(tpl, next)
		changed := !next.Equal(current) || !pct.Equal(comp.PercentComplete)

		if changed {
			if err := comp.SetMilestones(next); err != nil {
				return err
			}
			updates := map[string]any{
				"current_milestones": comp.CurrentMilestones,
				"percent_complete":   pct,
				"updated_at":         now,
			}
			if comp.TemplateID == nil && tpl != nil {
				updates["template_id"] = tpl.ID
			}
			if err := a.deps.Components.UpdateFields(dbc, comp.ID, updates); err != nil {
				return err
			}
		}

		recalc, err := a.recalculate(dbc, comp, tpl, next, pct, now)
		if err != nil {
			return err
		}
		out = domainagg.UpdateMilestonesResult{
			ComponentID:      comp.ID,
			ProjectID:        comp.ProjectID,
			Milestones:       next,
			PercentComplete:  pct,
			PendingApprovals: earnedvalue.PendingApprovals(tpl, next),
			Changed:          changed,
			Recalc:           recalc,
		}
		return nil
	})
	if err != nil {
		return domainagg.UpdateMilestonesResult{}, err
	}
	a.deps.Base.Hooks.ObserveRecalc(string(out.Recalc.Status))
	return out, nil
}

func (a *earnedValueAggregate) RecalculateComponent(ctx context.Context, in domainagg.RecalculateComponentInput) (domainagg.RecalculateComponentResult, error) {
	const op = "Progress.EarnedValue.RecalculateComponent"
	var out domainagg.RecalculateComponentResult

	if in.ComponentID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing component_id", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "earned value aggregate repos not configured", nil)
	}
	now := time.Now().UTC()

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		comp, err := a.deps.Components.LockByID(dbc, in.ComponentID)
		if err != nil {
			return err
		}
		if comp == nil {
			return domainagg.Detail(domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("component not found: %s", in.ComponentID), nil),
				"component_id", in.ComponentID)
		}
		tpl, err := newTemplateResolver(a.deps.Templates).For(dbc, comp)
		if err != nil {
			return err
		}
		state, err := comp.Milestones()
		if err != nil {
			return InvariantError(err.Error())
		}
		pct := earnedvalue.ComputePercentComplete(tpl, state)
		if !pct.Equal(comp.PercentComplete) {
			if err := a.deps.Components.UpdateFields(dbc, comp.ID, map[string]any{"percent_complete": pct}); err != nil {
				return err
			}
		}
		out, err = a.recalculate(dbc, comp, tpl, state, pct, now)
		return err
	})
	if err != nil {
		return domainagg.RecalculateComponentResult{}, err
	}
	a.deps.Base.Hooks.ObserveRecalc(string(out.Status))
	return out, nil
}

// recalculate is the reactive hook body. It must run inside the caller's
// transaction with the component row already locked; the active budget is
// read fresh every time.
func (a *earnedValueAggregate) recalculate(
	dbc dbctx.Context,
	comp *types.Component,
	tpl *progress.Template,
	state progress.MilestoneState,
	pct decimal.Decimal,
	now time.Time,
) (domainagg.RecalculateComponentResult, error) {
	out := domainagg.RecalculateComponentResult{
		ComponentID:     comp.ID,
		ProjectID:       comp.ProjectID,
		PercentComplete: pct,
		BudgetedHours:   decimal.Zero,
		EarnedHours:     decimal.Zero,
		PreviousEarned:  decimal.Zero,
	}

	budget, err := a.deps.Budgets.GetActive(dbc, comp.ProjectID)
	if errors.Is(err, mhrepos.ErrMultipleActive) {
		return out, InvariantError(err.Error())
	}
	if err != nil {
		return out, err
	}
	if budget == nil {
		out.Status = domainagg.RecalcNoBudget
		return out, nil
	}
	out.BudgetID = budget.ID
	out.BudgetVersion = budget.Version

	alloc, err := a.deps.Allocations.Lock(dbc, budget.ID, comp.ID)
	if err != nil {
		return out, err
	}
	if alloc == nil {
		out.Status = domainagg.RecalcNotAllocated
		return out, nil
	}
	if err := RequireSameProject("allocation "+alloc.ID.String(), comp.ProjectID, alloc.ProjectID); err != nil {
		return out, err
	}

	earned := earnedvalue.ComputeEarnedHours(decimal.NewNullDecimal(alloc.BudgetedHours), tpl, state)
	if err := a.deps.Allocations.UpdateEarned(dbc, alloc.ID, earned, now); err != nil {
		return out, err
	}
	out.Status = domainagg.RecalcRecalculated
	out.BudgetedHours = alloc.BudgetedHours
	out.EarnedHours = earned
	out.PreviousEarned = alloc.EarnedHours
	out.RecalculatedAt = now
	return out, nil
}

// validateMilestoneChanges rejects out-of-range partial values and, when
// strict, names the template does not define.
func validateMilestoneChanges(tpl *progress.Template, changes progress.MilestoneState, strict bool) error {
	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	sort.Strings(names)

	var unknown []string
	for _, name := range names {
		v := changes[name]
		if strings.TrimSpace(name) == "" {
			return ValidationError("milestone name is required")
		}
		if v.Kind == progress.ValueNumber && (v.Number.IsNegative() || v.Number.GreaterThan(earnedvalue.TotalWeight)) {
			return ValidationError(fmt.Sprintf("milestone %q: value must be between 0 and 100", name))
		}
		if tpl == nil {
			continue
		}
		def, ok := tpl.Definition(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		if !def.IsPartial && v.Kind == progress.ValueNumber && !v.Number.IsZero() && !v.Number.Equal(decimal.NewFromInt(1)) && !v.Number.Equal(earnedvalue.TotalWeight) {
			return ValidationError(fmt.Sprintf("milestone %q is discrete: use true/false", name))
		}
	}
	if strict && len(unknown) > 0 {
		msg := fmt.Sprintf("unknown milestones for %s template v%d: %s", tpl.Category, tpl.Version, strings.Join(unknown, ", "))
		return domainagg.Detail(domainagg.NewError(domainagg.CodeValidation, "Progress.EarnedValue.UpdateMilestones", msg, ErrValidation),
			"unknown_milestones", unknown, "template_version", tpl.Version)
	}
	return nil
}
