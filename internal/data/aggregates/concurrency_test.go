package aggregates_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/earnedvalue-backend/internal/data/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/data/repos"
	repotest "github.com/yungbote/earnedvalue-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/earnedvalue-backend/internal/domain/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
	"github.com/yungbote/earnedvalue-backend/internal/modules/earnedvalue"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
)

func TestCreateBudget_ConcurrentVersionsKeepOneActive(t *testing.T) {
	db := repotest.PostgresDB(t)
	log := repotest.Logger(t)
	ctx := context.Background()
	set := repos.NewSet(db, log)
	agg := aggregates.NewBudgetAggregate(aggregates.BudgetAggregateDeps{
		Base:        aggregates.BaseDeps{DB: db, Log: log},
		Budgets:     set.Budgets,
		Allocations: set.Allocations,
		Components:  set.Components,
		Templates:   set.Templates,
		Policy:      earnedvalue.DefaultWeightPolicy(),
	})

	project := uuid.New()
	for i := 0; i < 3; i++ {
		repotest.SeedComponent(t, ctx, db, project, repotest.ComponentSpec{Size: "2"})
	}

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = agg.CreateBudget(ctx, domainagg.CreateBudgetInput{
				ProjectID:  project,
				TotalHours: decimal.NewFromInt(int64(100 * (i + 1))),
				Reason:     "race",
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case domainagg.Temporary(err):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok == 0 {
		t.Fatalf("at least one writer must succeed")
	}

	dbc := dbctx.Context{Ctx: ctx}
	active, err := set.Budgets.CountActive(dbc, project)
	if err != nil {
		t.Fatalf("CountActive: %v", err)
	}
	if active != 1 {
		t.Fatalf("active budgets: want=1 got=%d", active)
	}
	history, err := set.Budgets.ListByProject(dbc, project)
	if err != nil {
		t.Fatalf("ListByProject: %v", err)
	}
	if len(history) != ok || history[0].Version != ok {
		t.Fatalf("versions: want %d contiguous got len=%d newest=%d", ok, len(history), history[0].Version)
	}
}

func TestCreateBudget_RacingMilestoneUpdatesLandOnNewVersion(t *testing.T) {
	db := repotest.PostgresDB(t)
	log := repotest.Logger(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	set := repos.NewSet(db, log)
	base := aggregates.BaseDeps{DB: db, Log: log}
	budgets := aggregates.NewBudgetAggregate(aggregates.BudgetAggregateDeps{
		Base:        base,
		Budgets:     set.Budgets,
		Allocations: set.Allocations,
		Components:  set.Components,
		Templates:   set.Templates,
		Policy:      earnedvalue.DefaultWeightPolicy(),
	})
	earned := aggregates.NewEarnedValueAggregate(aggregates.EarnedValueAggregateDeps{
		Base:        base,
		Components:  set.Components,
		Templates:   set.Templates,
		Budgets:     set.Budgets,
		Allocations: set.Allocations,
	})

	// the postgres database is shared across runs, so take the next free version
	maxVersion, err := set.Templates.MaxVersion(dbc, string(progress.CategoryFieldWeld))
	if err != nil {
		t.Fatalf("MaxVersion: %v", err)
	}
	tplRow := repotest.SeedTemplate(t, ctx, db, progress.CategoryFieldWeld, maxVersion+1, repotest.FieldWeldMilestones())
	tpl, err := tplRow.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	project := uuid.New()
	var comps []uuid.UUID
	for i := 0; i < 6; i++ {
		c := repotest.SeedComponent(t, ctx, db, project, repotest.ComponentSpec{
			Category:   progress.CategoryFieldWeld,
			Size:       "2",
			TemplateID: &tplRow.ID,
		})
		comps = append(comps, c.ID)
	}
	if _, err := budgets.CreateBudget(ctx, domainagg.CreateBudgetInput{ProjectID: project, TotalHours: decimal.NewFromInt(600), Reason: "baseline"}); err != nil {
		t.Fatalf("CreateBudget v1: %v", err)
	}

	var wg sync.WaitGroup
	var createErr error
	updateErrs := make([]error, len(comps))
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, createErr = budgets.CreateBudget(ctx, domainagg.CreateBudgetInput{ProjectID: project, TotalHours: decimal.NewFromInt(900), Reason: "revision"})
	}()
	for i, id := range comps {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, updateErrs[i] = earned.UpdateMilestones(ctx, domainagg.UpdateMilestonesInput{
				ComponentID: id,
				Changes: progress.MilestoneState{
					"Fit-Up":    progress.Done(true),
					"Weld Made": progress.Done(true),
				},
			})
		}(i, id)
	}
	wg.Wait()
	if createErr != nil {
		t.Fatalf("CreateBudget v2: %v", createErr)
	}
	for i, err := range updateErrs {
		if err != nil {
			t.Fatalf("UpdateMilestones %d: %v", i, err)
		}
	}

	active, err := set.Budgets.GetActive(dbc, project)
	if err != nil || active == nil || active.Version != 2 {
		t.Fatalf("active budget: want v2 got=%+v err=%v", active, err)
	}
	for _, id := range comps {
		c, err := set.Components.GetByID(dbc, id)
		if err != nil || c == nil {
			t.Fatalf("GetByID %s: %v", id, err)
		}
		state, err := c.Milestones()
		if err != nil {
			t.Fatalf("Milestones %s: %v", id, err)
		}
		alloc, err := set.Allocations.Get(dbc, active.ID, id)
		if err != nil || alloc == nil {
			t.Fatalf("allocation %s: %v", id, err)
		}
		want := earnedvalue.ComputeEarnedHours(decimal.NewNullDecimal(alloc.BudgetedHours), tpl, state)
		if !alloc.EarnedHours.Equal(want) {
			t.Fatalf("earned %s: want=%s got=%s", id, want, alloc.EarnedHours)
		}
	}
}
