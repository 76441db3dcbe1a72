// Package aggregates contains infrastructure implementations of domain aggregate contracts.
//
// Implementations compose table-level repos from internal/data/repos, own the
// transaction boundary of every write, and call the pure calculators in
// internal/modules/earnedvalue from inside that boundary.
package aggregates
