package aggregates_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yungbote/earnedvalue-backend/internal/data/aggregates"
	aggtest "github.com/yungbote/earnedvalue-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/earnedvalue-backend/internal/data/repos"
	repotest "github.com/yungbote/earnedvalue-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/earnedvalue-backend/internal/domain/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/modules/earnedvalue"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
)

// harness wires the three aggregates over one private SQLite database.
// Seeding goes straight through db: the database holds a single connection,
// so no outer transaction may be open while an aggregate runs.
type harness struct {
	ctx   context.Context
	db    *gorm.DB
	repos repos.Set
	hooks *aggtest.HooksRecorder

	budgets   domainagg.BudgetAggregate
	earned    domainagg.EarnedValueAggregate
	templates domainagg.TemplateAggregate
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, nil)
}

func newHarnessWith(t *testing.T, runner aggregates.TxRunner) *harness {
	t.Helper()
	db := repotest.DB(t)
	log := repotest.Logger(t)
	set := repos.NewSet(db, log)
	hooks := &aggtest.HooksRecorder{}
	base := aggregates.BaseDeps{DB: db, Log: log, Runner: runner, Hooks: hooks}

	return &harness{
		ctx:   context.Background(),
		db:    db,
		repos: set,
		hooks: hooks,
		budgets: aggregates.NewBudgetAggregate(aggregates.BudgetAggregateDeps{
			Base:        base,
			Budgets:     set.Budgets,
			Allocations: set.Allocations,
			Components:  set.Components,
			Templates:   set.Templates,
			Policy:      earnedvalue.DefaultWeightPolicy(),
			BatchSize:   2,
		}),
		earned: aggregates.NewEarnedValueAggregate(aggregates.EarnedValueAggregateDeps{
			Base:        base,
			Components:  set.Components,
			Templates:   set.Templates,
			Budgets:     set.Budgets,
			Allocations: set.Allocations,
		}),
		templates: aggregates.NewTemplateAggregate(aggregates.TemplateAggregateDeps{
			Base:      base,
			Templates: set.Templates,
		}),
	}
}

func (h *harness) dbc() dbctx.Context {
	return dbctx.Context{Ctx: h.ctx}
}

func (h *harness) createBudget(t *testing.T, projectID uuid.UUID, total int64, reason string) domainagg.CreateBudgetResult {
	t.Helper()
	res, err := h.budgets.CreateBudget(h.ctx, domainagg.CreateBudgetInput{
		ProjectID:  projectID,
		TotalHours: decimal.NewFromInt(total),
		Reason:     reason,
		CreatedBy:  "pm@example.com",
	})
	if err != nil {
		t.Fatalf("CreateBudget: %v", err)
	}
	return res
}

func wantDec(t *testing.T, label string, want string, got decimal.Decimal) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s: want=%s got=%s", label, want, got.String())
	}
}

// newStrictBudgets returns a budget aggregate over h's database that requires
// a revision reason for every version after the first.
func newStrictBudgets(h *harness) domainagg.BudgetAggregate {
	return aggregates.NewBudgetAggregate(aggregates.BudgetAggregateDeps{
		Base:                  aggregates.BaseDeps{DB: h.db, Hooks: h.hooks},
		Budgets:               h.repos.Budgets,
		Allocations:           h.repos.Allocations,
		Components:            h.repos.Components,
		Templates:             h.repos.Templates,
		Policy:                earnedvalue.DefaultWeightPolicy(),
		RequireRevisionReason: true,
	})
}
