package handlers

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
)

// toDefinitions keeps request order as milestone order.
func toDefinitions(in []milestoneDefinitionRequest) ([]progress.MilestoneDefinition, error) {
	out := make([]progress.MilestoneDefinition, 0, len(in))
	for i, m := range in {
		w, err := decimal.NewFromString(strings.TrimSpace(m.Weight))
		if err != nil {
			return nil, fmt.Errorf("milestone %q: weight %q is not a decimal", m.Name, m.Weight)
		}
		out = append(out, progress.MilestoneDefinition{
			Name:                      strings.TrimSpace(m.Name),
			Weight:                    w,
			Order:                     i + 1,
			IsPartial:                 m.IsPartial,
			RequiresSecondaryApproval: m.RequiresSecondaryApproval,
		})
	}
	return out, nil
}
