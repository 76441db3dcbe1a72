package progress

import "strings"

// Category is the fixed component classification used to pick templates and weight rules.
type Category string

const (
	CategorySpool        Category = "spool"
	CategoryFieldWeld    Category = "field_weld"
	CategoryValve        Category = "valve"
	CategorySupport      Category = "support"
	CategoryPipe         Category = "pipe"
	CategoryFitting      Category = "fitting"
	CategoryFlange       Category = "flange"
	CategoryInstrument   Category = "instrument"
	CategoryGasket       Category = "gasket"
	CategoryThreadedPipe Category = "threaded_pipe"
	CategoryTubing       Category = "tubing"
	CategoryHose         Category = "hose"
	CategoryMisc         Category = "misc"
)

var allCategories = []Category{
	CategorySpool,
	CategoryFieldWeld,
	CategoryValve,
	CategorySupport,
	CategoryPipe,
	CategoryFitting,
	CategoryFlange,
	CategoryInstrument,
	CategoryGasket,
	CategoryThreadedPipe,
	CategoryTubing,
	CategoryHose,
	CategoryMisc,
}

// Categories returns every known category in a stable order.
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

func (c Category) Valid() bool {
	for _, k := range allCategories {
		if k == c {
			return true
		}
	}
	return false
}

// ParseCategory accepts "Field Weld", "field-weld" and "FIELD_WELD" alike.
func ParseCategory(raw string) (Category, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	c := Category(s)
	return c, c.Valid()
}
