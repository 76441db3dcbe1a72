// Package earnedvalue is the pure calculation core: template validation,
// weighted percent complete, dimension weights, proportional manhour
// distribution and earned hours. Nothing here touches storage; every
// function is deterministic for identical inputs.
//
// All percentage and hour arithmetic is fixed-decimal (shopspring/decimal)
// and rounds half-up to two places. Dimension weights are float64 because
// they come from a fractional power; their summation order is fixed by
// component id so redistribution is reproducible.
package earnedvalue
