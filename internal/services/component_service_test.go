package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	repotest "github.com/yungbote/earnedvalue-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/earnedvalue-backend/internal/domain/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
	"github.com/yungbote/earnedvalue-backend/internal/platform/ctxutil"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
	"github.com/yungbote/earnedvalue-backend/internal/realtime"
)

func TestComponentService_UpdateMilestonesNotifies(t *testing.T) {
	h := newServiceHarness(t)
	project := uuid.New()
	repotest.SeedTemplate(t, h.ctx, h.db, progress.CategoryFieldWeld, 1, repotest.FieldWeldMilestones())
	c := repotest.SeedComponent(t, h.ctx, h.db, project, repotest.ComponentSpec{Category: progress.CategoryFieldWeld, Size: "2"})
	if _, err := h.budgets.CreateBudget(h.dbc(), CreateBudgetRequest{ProjectID: project, TotalHours: decimal.NewFromInt(10)}); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	before := h.cache.invalidations(project)

	res, err := h.components.UpdateMilestones(h.dbc(), c.ID, progress.MilestoneState{
		"Fit-Up":    progress.Done(true),
		"Weld Made": progress.Done(true),
	})
	if err != nil {
		t.Fatalf("UpdateMilestones: %v", err)
	}
	wantDec(t, "percent", "70", res.PercentComplete)
	wantDec(t, "earned", "7", res.Recalc.EarnedHours)
	if res.PendingApprovals == nil || len(res.PendingApprovals) != 0 {
		t.Fatalf("pending approvals: want empty got=%v", res.PendingApprovals)
	}
	if h.cache.invalidations(project) != before+1 {
		t.Fatalf("cache invalidations: want=%d got=%d", before+1, h.cache.invalidations(project))
	}
	evs := h.log.events()
	if evs[len(evs)-1] != realtime.SSEEventEarnedValueChanged {
		t.Fatalf("last event: want=%s got=%s", realtime.SSEEventEarnedValueChanged, evs[len(evs)-1])
	}

	// same state again: nothing to announce beyond the idempotent recalc
	again, err := h.components.UpdateMilestones(h.dbc(), c.ID, progress.MilestoneState{"Fit-Up": progress.Done(true)})
	if err != nil {
		t.Fatalf("UpdateMilestones again: %v", err)
	}
	if again.Changed {
		t.Fatalf("re-applied state must not be Changed")
	}
	wantDec(t, "earned again", "7", again.Recalc.EarnedHours)
}

func TestComponentService_SyncMilestonesReplaces(t *testing.T) {
	h := newServiceHarness(t)
	project := uuid.New()
	repotest.SeedTemplate(t, h.ctx, h.db, progress.CategoryFieldWeld, 1, repotest.FieldWeldMilestones())
	c := repotest.SeedComponent(t, h.ctx, h.db, project, repotest.ComponentSpec{
		Category:   progress.CategoryFieldWeld,
		Size:       "2",
		Milestones: progress.MilestoneState{"Fit-Up": progress.Done(true), "Weld Made": progress.Done(true)},
	})

	res, err := h.components.SyncMilestones(h.dbc(), c.ID, progress.MilestoneState{"Punch": progress.Done(true)})
	if err != nil {
		t.Fatalf("SyncMilestones: %v", err)
	}
	wantDec(t, "percent", "10", res.PercentComplete)
	if _, ok := res.Milestones["Weld Made"]; ok {
		t.Fatalf("replace must drop milestones missing from the snapshot: %v", res.Milestones)
	}
	if res.Recalc.Status != domainagg.RecalcNoBudget {
		t.Fatalf("status: want=%s got=%s", domainagg.RecalcNoBudget, res.Recalc.Status)
	}
}

func TestComponentService_Recalculate(t *testing.T) {
	h := newServiceHarness(t)
	project := uuid.New()
	repotest.SeedTemplate(t, h.ctx, h.db, progress.CategoryFieldWeld, 1, repotest.FieldWeldMilestones())
	c := repotest.SeedComponent(t, h.ctx, h.db, project, repotest.ComponentSpec{
		Category:   progress.CategoryFieldWeld,
		Size:       "2",
		Milestones: progress.MilestoneState{"Fit-Up": progress.Done(true)},
	})
	if _, err := h.budgets.CreateBudget(h.dbc(), CreateBudgetRequest{ProjectID: project, TotalHours: decimal.NewFromInt(20)}); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	n := len(h.log.events())

	res, err := h.components.Recalculate(h.dbc(), c.ID)
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	wantDec(t, "earned", "2", res.EarnedHours)
	if len(h.log.events()) != n {
		t.Fatalf("unchanged earned hours must not publish: events=%v", h.log.events())
	}

	if _, err := h.components.Recalculate(h.dbc(), uuid.New()); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unknown component: want not_found got=%v", err)
	}
}

func TestComponentService_Progress(t *testing.T) {
	h := newServiceHarness(t)
	project := uuid.New()
	tpl := repotest.SeedTemplate(t, h.ctx, h.db, progress.CategoryFieldWeld, 1, repotest.FieldWeldMilestones())
	c := repotest.SeedComponent(t, h.ctx, h.db, project, repotest.ComponentSpec{
		Category:   progress.CategoryFieldWeld,
		Size:       "2",
		Milestones: progress.MilestoneState{"Test": progress.Done(true)},
	})

	view, err := h.components.Progress(h.dbc(), c.ID)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if view.Status != domainagg.RecalcNoBudget || view.Budget != nil || view.Allocation != nil {
		t.Fatalf("no budget: unexpected %+v", view)
	}
	if view.Template == nil || view.Template.ID != tpl.ID {
		t.Fatalf("template: want latest %s got %+v", tpl.ID, view.Template)
	}
	if len(view.PendingApprovals) != 1 || view.PendingApprovals[0] != "Test" {
		t.Fatalf("pending approvals: want=[Test] got=%v", view.PendingApprovals)
	}

	if _, err := h.budgets.CreateBudget(h.dbc(), CreateBudgetRequest{ProjectID: project, TotalHours: decimal.NewFromInt(10)}); err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	view, err = h.components.Progress(h.dbc(), c.ID)
	if err != nil {
		t.Fatalf("Progress: %v", err)
	}
	if view.Status != domainagg.RecalcRecalculated || view.Allocation == nil {
		t.Fatalf("with budget: unexpected %+v", view)
	}
	wantDec(t, "budgeted", "10", view.Allocation.BudgetedHours)
	wantDec(t, "earned", "1.5", view.Allocation.EarnedHours)

	late := repotest.SeedComponent(t, h.ctx, h.db, project, repotest.ComponentSpec{Category: progress.CategoryFieldWeld, Size: "2"})
	view, err = h.components.Progress(h.dbc(), late.ID)
	if err != nil {
		t.Fatalf("Progress late: %v", err)
	}
	if view.Status != domainagg.RecalcNotAllocated {
		t.Fatalf("late component: want=%s got=%s", domainagg.RecalcNotAllocated, view.Status)
	}

	if _, err := h.components.Progress(h.dbc(), uuid.New()); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unknown component: want not_found got=%v", err)
	}
}

func TestComponentService_EventCarriesSource(t *testing.T) {
	h := newServiceHarness(t)
	project := uuid.New()
	repotest.SeedTemplate(t, h.ctx, h.db, progress.CategoryFieldWeld, 1, repotest.FieldWeldMilestones())
	c := repotest.SeedComponent(t, h.ctx, h.db, project, repotest.ComponentSpec{Category: progress.CategoryFieldWeld, Size: "2"})

	ctx := ctxutil.WithRequest(h.ctx, &ctxutil.RequestData{RequestID: "evt-1", Source: ctxutil.SourceMQ})
	if _, err := h.components.UpdateMilestones(dbctx.Context{Ctx: ctx}, c.ID, progress.MilestoneState{"Fit-Up": progress.Done(true)}); err != nil {
		t.Fatalf("UpdateMilestones: %v", err)
	}
	msg := h.log.last()
	payload, ok := msg.Data.(realtime.EarnedValueChanged)
	if !ok {
		t.Fatalf("payload: want EarnedValueChanged got=%T", msg.Data)
	}
	if payload.Source != string(ctxutil.SourceMQ) {
		t.Fatalf("source: want=%s got=%q", ctxutil.SourceMQ, payload.Source)
	}
	if msg.Channel != realtime.ProjectChannel(project) {
		t.Fatalf("channel: want=%s got=%s", realtime.ProjectChannel(project), msg.Channel)
	}
}
