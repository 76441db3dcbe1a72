package aggregates_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	repotest "github.com/yungbote/earnedvalue-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/earnedvalue-backend/internal/domain/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
)

func TestCreateTemplateVersion_AppendsVersions(t *testing.T) {
	h := newHarness(t)

	first, err := h.templates.CreateTemplateVersion(h.ctx, domainagg.CreateTemplateVersionInput{
		Category:   progress.CategoryFieldWeld,
		Milestones: repotest.FieldWeldMilestones(),
		CreatedBy:  "admin",
	})
	if err != nil {
		t.Fatalf("CreateTemplateVersion v1: %v", err)
	}
	if !first.Created || first.Template.Version != 1 {
		t.Fatalf("v1: unexpected %+v", first)
	}

	same, err := h.templates.CreateTemplateVersion(h.ctx, domainagg.CreateTemplateVersionInput{
		Category:        progress.CategoryFieldWeld,
		Milestones:      repotest.FieldWeldMilestones(),
		SkipIfUnchanged: true,
	})
	if err != nil {
		t.Fatalf("CreateTemplateVersion unchanged: %v", err)
	}
	if same.Created || same.Template.ID != first.Template.ID {
		t.Fatalf("unchanged milestones must reuse v1, got %+v", same)
	}

	changed := repotest.FieldWeldMilestones()
	changed[0].Weight = decimal.NewFromInt(5)
	changed[4].Weight = decimal.NewFromInt(10)
	second, err := h.templates.CreateTemplateVersion(h.ctx, domainagg.CreateTemplateVersionInput{
		Category:        progress.CategoryFieldWeld,
		Milestones:      changed,
		SkipIfUnchanged: true,
	})
	if err != nil {
		t.Fatalf("CreateTemplateVersion v2: %v", err)
	}
	if !second.Created || second.Template.Version != 2 {
		t.Fatalf("v2: unexpected %+v", second)
	}

	versions, err := h.repos.Templates.ListVersions(h.dbc(), string(progress.CategoryFieldWeld))
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("versions: want=2 got=%d", len(versions))
	}
	v1, err := h.repos.Templates.GetByVersion(h.dbc(), string(progress.CategoryFieldWeld), 1)
	if err != nil || v1 == nil {
		t.Fatalf("GetByVersion 1: %v", err)
	}
	decoded, err := v1.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !decoded.Milestones[0].Weight.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("v1 must stay untouched, Fit-Up weight=%s", decoded.Milestones[0].Weight)
	}
}

func TestCreateTemplateVersion_Rejects(t *testing.T) {
	h := newHarness(t)

	short := repotest.FieldWeldMilestones()[:4]
	dup := repotest.FieldWeldMilestones()
	dup[1].Name = "fit-up"

	cases := []struct {
		name string
		in   domainagg.CreateTemplateVersionInput
	}{
		{"unknown category", domainagg.CreateTemplateVersionInput{Category: "crane", Milestones: repotest.FieldWeldMilestones()}},
		{"empty", domainagg.CreateTemplateVersionInput{Category: progress.CategoryValve}},
		{"sum below 100", domainagg.CreateTemplateVersionInput{Category: progress.CategoryValve, Milestones: short}},
		{"duplicate name", domainagg.CreateTemplateVersionInput{Category: progress.CategoryValve, Milestones: dup}},
	}
	for _, tc := range cases {
		if _, err := h.templates.CreateTemplateVersion(h.ctx, tc.in); !domainagg.IsCode(err, domainagg.CodeValidation) {
			t.Fatalf("%s: want validation got=%v", tc.name, err)
		}
	}
	latest, err := h.repos.Templates.GetLatest(h.dbc(), string(progress.CategoryValve))
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if latest != nil {
		t.Fatalf("rejected templates must not be stored")
	}
}

func TestTemplatePinning_SurvivesNewVersion(t *testing.T) {
	h := newHarness(t)
	if _, err := h.templates.CreateTemplateVersion(h.ctx, domainagg.CreateTemplateVersionInput{
		Category:   progress.CategoryFieldWeld,
		Milestones: repotest.FieldWeldMilestones(),
	}); err != nil {
		t.Fatalf("CreateTemplateVersion v1: %v", err)
	}
	c := repotest.SeedComponent(t, h.ctx, h.db, uuid.New(), repotest.ComponentSpec{Category: progress.CategoryFieldWeld, Size: "1"})
	if _, err := h.earned.UpdateMilestones(h.ctx, domainagg.UpdateMilestonesInput{
		ComponentID: c.ID,
		Changes:     progress.MilestoneState{"Fit-Up": progress.Done(true)},
	}); err != nil {
		t.Fatalf("UpdateMilestones: %v", err)
	}

	heavier := repotest.FieldWeldMilestones()
	heavier[0].Weight = decimal.NewFromInt(50)
	heavier[1].Weight = decimal.NewFromInt(20)
	if _, err := h.templates.CreateTemplateVersion(h.ctx, domainagg.CreateTemplateVersionInput{
		Category:   progress.CategoryFieldWeld,
		Milestones: heavier,
	}); err != nil {
		t.Fatalf("CreateTemplateVersion v2: %v", err)
	}

	res, err := h.earned.RecalculateComponent(h.ctx, domainagg.RecalculateComponentInput{ComponentID: c.ID})
	if err != nil {
		t.Fatalf("RecalculateComponent: %v", err)
	}
	wantDec(t, "percent under pinned v1", "10", res.PercentComplete)
}
