package earnedvalue

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
)

func dec(t testing.TB, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func def(name string, weight int64, partial bool) progress.MilestoneDefinition {
	return progress.MilestoneDefinition{Name: name, Weight: decimal.NewFromInt(weight), IsPartial: partial}
}

func spoolTemplate() *progress.Template {
	defs := NormalizeDefinitions([]progress.MilestoneDefinition{
		def("Receive", 5, false),
		def("Fabricate", 16, true),
		def("Erect", 40, true),
		def("Connect", 30, true),
		def("Punch", 9, false),
	})
	return &progress.Template{Category: progress.CategorySpool, Version: 1, Milestones: defs}
}

func fieldWeldTemplate() *progress.Template {
	defs := NormalizeDefinitions([]progress.MilestoneDefinition{
		def("Fit-Up", 10, false),
		def("Weld Made", 60, false),
		def("Punch", 10, false),
		def("Test", 15, false),
		def("Restore", 5, false),
	})
	defs[3].RequiresSecondaryApproval = true
	return &progress.Template{Category: progress.CategoryFieldWeld, Version: 1, Milestones: defs}
}

func floatPtr(v float64) *float64 { return &v }
