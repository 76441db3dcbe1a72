// Package aggregates defines the write boundaries of the earned value domain.
//
// Each contract names an atomic unit of work (budget versioning, milestone
// recalculation, template versioning) without committing to a storage engine.
package aggregates
