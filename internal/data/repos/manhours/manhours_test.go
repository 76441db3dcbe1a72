package manhours

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yungbote/earnedvalue-backend/internal/data/repos/testutil"
	types "github.com/yungbote/earnedvalue-backend/internal/domain"
	"github.com/yungbote/earnedvalue-backend/internal/domain/manhours"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
)

func TestManhourBudgetRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewManhourBudgetRepo(db, testutil.Logger(t))
	project := uuid.New()

	active, err := repo.GetActive(dbc, project)
	if err != nil || active != nil {
		t.Fatalf("GetActive none: want=nil got=%+v err=%v", active, err)
	}
	if v, err := repo.MaxVersion(dbc, project); err != nil || v != 0 {
		t.Fatalf("MaxVersion none: want=0 got=%d err=%v", v, err)
	}

	v1 := &types.ManhourBudget{
		ProjectID:     project,
		Version:       1,
		TotalHours:    decimal.NewFromInt(1000),
		IsActive:      true,
		EffectiveDate: time.Now().UTC(),
		CreatedAt:     time.Now().UTC(),
	}
	if err := repo.Create(dbc, v1); err != nil {
		t.Fatalf("Create v1: %v", err)
	}

	n, err := repo.DeactivateAll(dbc, project)
	if err != nil || n != 1 {
		t.Fatalf("DeactivateAll: want=1 got=%d err=%v", n, err)
	}
	v2 := &types.ManhourBudget{
		ProjectID:     project,
		Version:       2,
		TotalHours:    decimal.NewFromInt(1200),
		IsActive:      true,
		EffectiveDate: time.Now().UTC(),
		CreatedAt:     time.Now().UTC(),
	}
	if err := repo.Create(dbc, v2); err != nil {
		t.Fatalf("Create v2: %v", err)
	}

	active, err = repo.GetActive(dbc, project)
	if err != nil || active == nil || active.ID != v2.ID {
		t.Fatalf("GetActive: want=%s got=%+v err=%v", v2.ID, active, err)
	}
	if !active.TotalHours.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("TotalHours: want=1200 got=%s", active.TotalHours)
	}
	if c, err := repo.CountActive(dbc, project); err != nil || c != 1 {
		t.Fatalf("CountActive: want=1 got=%d err=%v", c, err)
	}
	if v, err := repo.MaxVersion(dbc, project); err != nil || v != 2 {
		t.Fatalf("MaxVersion: want=2 got=%d err=%v", v, err)
	}

	list, err := repo.ListByProject(dbc, project)
	if err != nil || len(list) != 2 || list[0].Version != 2 || list[1].IsActive {
		t.Fatalf("ListByProject: unexpected %+v err=%v", list, err)
	}
}

func TestManhourBudgetRepoReportsMultipleActive(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	if err := tx.Exec("DROP INDEX IF EXISTS idx_manhour_budget_one_active").Error; err != nil {
		t.Fatalf("drop index: %v", err)
	}
	project := uuid.New()
	testutil.SeedBudget(t, ctx, tx, project, 1, 100, true)
	testutil.SeedBudget(t, ctx, tx, project, 2, 100, true)

	repo := NewManhourBudgetRepo(db, testutil.Logger(t))
	got, err := repo.GetActive(dbctx.Context{Ctx: ctx, Tx: tx}, project)
	if !errors.Is(err, ErrMultipleActive) {
		t.Fatalf("GetActive: want ErrMultipleActive got=%v", err)
	}
	if got == nil || got.Version != 2 {
		t.Fatalf("GetActive: want newest row returned alongside error, got=%+v", got)
	}
}

func TestAllocationRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewAllocationRepo(db, testutil.Logger(t))
	project := uuid.New()
	budget := testutil.SeedBudget(t, ctx, tx, project, 1, 100, true)

	a1 := testutil.SeedComponent(t, ctx, tx, project, testutil.ComponentSpec{Area: "North", System: "CW"})
	a2 := testutil.SeedComponent(t, ctx, tx, project, testutil.ComponentSpec{Area: "North"})
	a3 := testutil.SeedComponent(t, ctx, tx, project, testutil.ComponentSpec{Area: "  "})

	rows := []*types.ComponentManhourAllocation{
		{BudgetID: budget.ID, ComponentID: a1.ID, ProjectID: project, BudgetedHours: decimal.RequireFromString("50.25"), CalculationBasis: "dimension"},
		{BudgetID: budget.ID, ComponentID: a2.ID, ProjectID: project, BudgetedHours: decimal.RequireFromString("29.75"), CalculationBasis: "dimension"},
		{BudgetID: budget.ID, ComponentID: a3.ID, ProjectID: project, BudgetedHours: decimal.RequireFromString("20"), CalculationBasis: "fixed"},
	}
	if err := repo.CreateInBatches(dbc, rows, 2); err != nil {
		t.Fatalf("CreateInBatches: %v", err)
	}
	if n, err := repo.CountByBudget(dbc, budget.ID); err != nil || n != 3 {
		t.Fatalf("CountByBudget: want=3 got=%d err=%v", n, err)
	}

	got, err := repo.Get(dbc, budget.ID, a1.ID)
	if err != nil || got == nil || !got.BudgetedHours.Equal(decimal.RequireFromString("50.25")) {
		t.Fatalf("Get: got=%+v err=%v", got, err)
	}
	if miss, err := repo.Get(dbc, budget.ID, uuid.New()); err != nil || miss != nil {
		t.Fatalf("Get missing: want=nil got=%+v err=%v", miss, err)
	}

	at := time.Now().UTC()
	if err := repo.UpdateEarned(dbc, got.ID, decimal.RequireFromString("10.5"), at); err != nil {
		t.Fatalf("UpdateEarned: %v", err)
	}
	locked, err := repo.Lock(dbc, budget.ID, a1.ID)
	if err != nil || locked == nil {
		t.Fatalf("Lock: got=%+v err=%v", locked, err)
	}
	if !locked.EarnedHours.Equal(decimal.RequireFromString("10.5")) || locked.LastRecalculatedAt == nil {
		t.Fatalf("UpdateEarned not persisted: %+v", locked)
	}

	totals, err := repo.SumByBudget(dbc, budget.ID)
	if err != nil {
		t.Fatalf("SumByBudget: %v", err)
	}
	if totals.ComponentCount != 3 || !totals.BudgetedHours.Equal(decimal.NewFromInt(100)) || !totals.EarnedHours.Equal(decimal.RequireFromString("10.5")) {
		t.Fatalf("SumByBudget: unexpected %+v", totals)
	}

	byArea, err := repo.SumByGroup(dbc, budget.ID, manhours.GroupByArea)
	if err != nil {
		t.Fatalf("SumByGroup: %v", err)
	}
	if len(byArea) != 2 {
		t.Fatalf("SumByGroup area: want=2 groups got=%+v", byArea)
	}
	want := map[string]string{"North": "80", manhours.UnassignedGroup: "20"}
	for _, g := range byArea {
		w, ok := want[g.GroupKey]
		if !ok {
			t.Fatalf("SumByGroup: unexpected group %q", g.GroupKey)
		}
		if !g.BudgetedHours.Equal(decimal.RequireFromString(w)) {
			t.Fatalf("SumByGroup %s: want=%s got=%s", g.GroupKey, w, g.BudgetedHours)
		}
	}

	bySystem, err := repo.SumByGroup(dbc, budget.ID, manhours.GroupBySystem)
	if err != nil || len(bySystem) != 2 {
		t.Fatalf("SumByGroup system: got=%+v err=%v", bySystem, err)
	}
	if _, err := repo.SumByGroup(dbc, budget.ID, manhours.GroupDimension("drawing")); err == nil {
		t.Fatalf("SumByGroup: expected error for unsupported dimension")
	}

	byComponent, err := repo.ListByComponent(dbc, a1.ID)
	if err != nil || len(byComponent) != 1 {
		t.Fatalf("ListByComponent: got=%d err=%v", len(byComponent), err)
	}
}
