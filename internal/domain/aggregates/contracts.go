package aggregates

import "strings"

// WriteTxOwnership defines who owns write transaction boundaries.
type WriteTxOwnership string

const (
	// WriteTxOwnedByAggregate: write methods open and commit their own transaction.
	WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"
	// WriteTxJoinsCaller: the method runs inside a transaction the caller opened.
	WriteTxJoinsCaller WriteTxOwnership = "caller_owned"
)

// LockScope names a lock an aggregate takes inside its write transaction.
type LockScope string

const (
	// LockProjectBudget serializes budget versioning per project
	// (pg_advisory_xact_lock; the single-active partial index backs it up).
	LockProjectBudget LockScope = "project_budget_advisory"
	// LockComponentRow is SELECT ... FOR UPDATE on one component.
	LockComponentRow LockScope = "component_row"
	// LockAllocationRow is SELECT ... FOR UPDATE on one allocation of the active budget.
	LockAllocationRow LockScope = "allocation_row"
	// LockTemplateCategory serializes version assignment for one category.
	LockTemplateCategory LockScope = "template_category"
)

// Contract describes what an aggregate owns and which locks its writes hold.
type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	Locks            []LockScope
	Notes            string
}

// Aggregate is the common marker for all aggregate contracts.
type Aggregate interface {
	Contract() Contract
}

func (c Contract) RequiresAggregateOwnedTx() bool {
	return c.WriteTxOwnership == WriteTxOwnedByAggregate
}

// Holds reports whether writes of this aggregate take the given lock.
func (c Contract) Holds(l LockScope) bool {
	for _, have := range c.Locks {
		if have == l {
			return true
		}
	}
	return false
}

// LockSummary is the comma separated lock list, for logs.
func (c Contract) LockSummary() string {
	parts := make([]string, len(c.Locks))
	for i, l := range c.Locks {
		parts[i] = string(l)
	}
	return strings.Join(parts, ",")
}
