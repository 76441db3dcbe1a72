package aggregates

import (
	"testing"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/earnedvalue-backend/internal/domain/aggregates"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
)

func TestProjectLockKeyStable(t *testing.T) {
	id := uuid.MustParse("6f1d1c2e-8d2c-4c44-9f57-0d1e9a8b7c6d")
	if ProjectLockKey(id) != ProjectLockKey(id) {
		t.Fatalf("lock key not stable")
	}
	if ProjectLockKey(id) == ProjectLockKey(uuid.New()) {
		t.Fatalf("distinct projects should not share a lock key")
	}
}

func TestRequireSingleActive(t *testing.T) {
	if err := RequireSingleActive(uuid.New(), 1); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	for _, n := range []int64{0, 2} {
		err := MapError("op", RequireSingleActive(uuid.New(), n))
		if !domainagg.IsCode(err, domainagg.CodeInvariantViolation) {
			t.Fatalf("active=%d: expected invariant violation, got %v", n, err)
		}
	}
}

func TestRequireSameProject(t *testing.T) {
	p := uuid.New()
	if err := RequireSameProject("allocation", p, p); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := RequireSameProject("allocation", p, uuid.New()); err == nil {
		t.Fatalf("expected invariant error")
	}
}

func TestLockProjectRequiresProject(t *testing.T) {
	g := NewProjectGuard(nil)
	if err := g.LockProject(dbctx.Background(), uuid.Nil); err == nil {
		t.Fatalf("expected validation error for nil project")
	}
}

func TestCategoryLockKeyDistinct(t *testing.T) {
	if CategoryLockKey("valve") != CategoryLockKey("valve") {
		t.Fatalf("category lock key not stable")
	}
	if CategoryLockKey("valve") == CategoryLockKey("field_weld") {
		t.Fatalf("distinct categories should not share a lock key")
	}
	if err := NewProjectGuard(nil).LockCategory(dbctx.Background(), ""); err == nil {
		t.Fatalf("expected validation error for empty category")
	}
}

func TestContractsDeclareLocks(t *testing.T) {
	cases := []struct {
		c    domainagg.Contract
		want []domainagg.LockScope
	}{
		{domainagg.BudgetAggregateContract, []domainagg.LockScope{domainagg.LockProjectBudget, domainagg.LockComponentRow, domainagg.LockAllocationRow}},
		{domainagg.EarnedValueAggregateContract, []domainagg.LockScope{domainagg.LockComponentRow, domainagg.LockAllocationRow}},
		{domainagg.TemplateAggregateContract, []domainagg.LockScope{domainagg.LockTemplateCategory}},
	}
	for _, tc := range cases {
		if !tc.c.RequiresAggregateOwnedTx() {
			t.Fatalf("%s: writes must own their transaction", tc.c.Name)
		}
		for _, l := range tc.want {
			if !tc.c.Holds(l) {
				t.Fatalf("%s: missing lock %s (has %s)", tc.c.Name, l, tc.c.LockSummary())
			}
		}
	}
	if domainagg.EarnedValueAggregateContract.Holds(domainagg.LockProjectBudget) {
		t.Fatalf("milestone updates must not take the project budget lock")
	}
}
