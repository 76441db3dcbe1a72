// Package progress holds the milestone-tracking model: categories, templates,
// components and their tagged milestone values.
package progress

import "github.com/shopspring/decimal"

func init() {
	// Hours and percentages render as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}
