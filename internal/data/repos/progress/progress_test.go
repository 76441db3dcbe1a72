package progress

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/earnedvalue-backend/internal/data/repos/testutil"
	types "github.com/yungbote/earnedvalue-backend/internal/domain"
	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
)

func TestMilestoneTemplateRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewMilestoneTemplateRepo(db, testutil.Logger(t))

	if got, err := repo.GetLatest(dbc, string(progress.CategoryFieldWeld)); err != nil || got != nil {
		t.Fatalf("GetLatest empty: want=nil got=%v err=%v", got, err)
	}
	if n, err := repo.MaxVersion(dbc, string(progress.CategoryFieldWeld)); err != nil || n != 0 {
		t.Fatalf("MaxVersion empty: want=0 got=%d err=%v", n, err)
	}

	v1 := testutil.SeedTemplate(t, ctx, tx, progress.CategoryFieldWeld, 1, testutil.FieldWeldMilestones())
	v2 := testutil.SeedTemplate(t, ctx, tx, progress.CategoryFieldWeld, 2, testutil.FieldWeldMilestones())
	valve := testutil.SeedTemplate(t, ctx, tx, progress.CategoryValve, 1, testutil.ValveMilestones())

	latest, err := repo.GetLatest(dbc, string(progress.CategoryFieldWeld))
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if latest == nil || latest.ID != v2.ID {
		t.Fatalf("GetLatest: want=%s got=%+v", v2.ID, latest)
	}

	byVersion, err := repo.GetByVersion(dbc, string(progress.CategoryFieldWeld), 1)
	if err != nil || byVersion == nil || byVersion.ID != v1.ID {
		t.Fatalf("GetByVersion: want=%s got=%+v err=%v", v1.ID, byVersion, err)
	}

	decoded, err := byVersion.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded.Milestones) != 5 || decoded.Milestones[0].Name != "Fit-Up" {
		t.Fatalf("Decode: unexpected milestones %+v", decoded.Milestones)
	}

	versions, err := repo.ListVersions(dbc, string(progress.CategoryFieldWeld))
	if err != nil || len(versions) != 2 || versions[0].Version != 2 {
		t.Fatalf("ListVersions: got=%d err=%v", len(versions), err)
	}

	all, err := repo.ListLatest(dbc)
	if err != nil {
		t.Fatalf("ListLatest: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListLatest: want=2 got=%d", len(all))
	}
	if all[0].Category != string(progress.CategoryFieldWeld) || all[0].Version != 2 || all[1].ID != valve.ID {
		t.Fatalf("ListLatest: unexpected %+v / %+v", all[0], all[1])
	}

	if n, err := repo.MaxVersion(dbc, string(progress.CategoryFieldWeld)); err != nil || n != 2 {
		t.Fatalf("MaxVersion: want=2 got=%d err=%v", n, err)
	}

	dup := &types.MilestoneTemplate{Category: string(progress.CategoryFieldWeld), Version: 2, Milestones: []byte("[]")}
	if err := repo.Create(dbctx.Context{Ctx: ctx, Tx: tx.SavePoint("dup")}, dup); err == nil {
		t.Fatalf("Create duplicate version: expected unique violation")
	}
	tx.RollbackTo("dup")

	got, err := repo.GetByIDs(dbc, []uuid.UUID{v1.ID, valve.ID})
	if err != nil || len(got) != 2 {
		t.Fatalf("GetByIDs: want=2 got=%d err=%v", len(got), err)
	}
}

func TestComponentRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewComponentRepo(db, testutil.Logger(t))
	project := uuid.New()
	other := uuid.New()

	live := testutil.SeedComponent(t, ctx, tx, project, testutil.ComponentSpec{Size: "4", Area: "A1"})
	retired := testutil.SeedComponent(t, ctx, tx, project, testutil.ComponentSpec{Size: "2", Retired: true})
	testutil.SeedComponent(t, ctx, tx, other, testutil.ComponentSpec{Size: "1"})

	created, err := repo.Create(dbc, []*types.Component{{ProjectID: project, Category: string(progress.CategoryFieldWeld)}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 || created[0].ID == uuid.Nil {
		t.Fatalf("Create: expected id assigned, got %+v", created)
	}
	ms, err := created[0].Milestones()
	if err != nil || len(ms) != 0 {
		t.Fatalf("Create: default milestones want empty got=%v err=%v", ms, err)
	}

	inScope, err := repo.ListInScope(dbc, project)
	if err != nil {
		t.Fatalf("ListInScope: %v", err)
	}
	if len(inScope) != 2 {
		t.Fatalf("ListInScope: want=2 got=%d", len(inScope))
	}
	for _, c := range inScope {
		if c.ID == retired.ID {
			t.Fatalf("ListInScope: retired component returned")
		}
	}
	shared, err := repo.ListInScopeForShare(dbc, project)
	if err != nil {
		t.Fatalf("ListInScopeForShare: %v", err)
	}
	if len(shared) != len(inScope) {
		t.Fatalf("ListInScopeForShare: want=%d got=%d", len(inScope), len(shared))
	}
	for i := range shared {
		if shared[i].ID != inScope[i].ID {
			t.Fatalf("ListInScopeForShare: order differs at %d", i)
		}
	}
	if n, err := repo.CountInScope(dbc, project); err != nil || n != 2 {
		t.Fatalf("CountInScope: want=2 got=%d err=%v", n, err)
	}

	ids, err := repo.ListIDsByProject(dbc, project)
	if err != nil || len(ids) != 3 {
		t.Fatalf("ListIDsByProject: want=3 got=%d err=%v", len(ids), err)
	}

	locked, err := repo.LockByID(dbc, live.ID)
	if err != nil || locked == nil || locked.ID != live.ID {
		t.Fatalf("LockByID: got=%+v err=%v", locked, err)
	}
	key, err := locked.Identity()
	if err != nil || key.Size != "4" {
		t.Fatalf("Identity: want size=4 got=%+v err=%v", key, err)
	}

	if err := repo.UpdateFields(dbc, live.ID, map[string]any{"area": "B2"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	reloaded, err := repo.GetByID(dbc, live.ID)
	if err != nil || reloaded.Area != "B2" {
		t.Fatalf("GetByID after update: got=%+v err=%v", reloaded, err)
	}

	missing, err := repo.GetByID(dbc, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("GetByID missing: want=nil got=%+v err=%v", missing, err)
	}
}
