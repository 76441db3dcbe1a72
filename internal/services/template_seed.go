package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/earnedvalue-backend/internal/domain/progress"
	"github.com/yungbote/earnedvalue-backend/internal/platform/dbctx"
)

// TemplateSet is the default milestone list per category, as read from a seed file.
type TemplateSet map[progress.Category][]progress.MilestoneDefinition

type seedFile struct {
	Templates map[string][]seedMilestone `yaml:"templates"`
}

type seedMilestone struct {
	Name                      string `yaml:"name"`
	Weight                    string `yaml:"weight"`
	Partial                   bool   `yaml:"partial"`
	RequiresSecondaryApproval bool   `yaml:"requires_secondary_approval"`
}

// LoadTemplateSet reads a YAML seed file. Milestone order follows the file.
func LoadTemplateSet(path string) (TemplateSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open template seed: %w", err)
	}
	defer f.Close()
	return ParseTemplateSet(f)
}

func ParseTemplateSet(r io.Reader) (TemplateSet, error) {
	var file seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode template seed: %w", err)
	}
	out := TemplateSet{}
	for rawCategory, milestones := range file.Templates {
		category, err := normalizeCategoryKey(rawCategory)
		if err != nil {
			return nil, err
		}
		defs := make([]progress.MilestoneDefinition, 0, len(milestones))
		for i, m := range milestones {
			w, err := decimal.NewFromString(strings.TrimSpace(m.Weight))
			if err != nil {
				return nil, fmt.Errorf("template %s milestone %q: weight %q: %w", category, m.Name, m.Weight, err)
			}
			defs = append(defs, progress.MilestoneDefinition{
				Name:                      strings.TrimSpace(m.Name),
				Weight:                    w,
				Order:                     i + 1,
				IsPartial:                 m.Partial,
				RequiresSecondaryApproval: m.RequiresSecondaryApproval,
			})
		}
		out[category] = defs
	}
	return out, nil
}

// SeedResult reports, per category, the template version in effect after seeding.
type SeedResult struct {
	Created   []SeedEntry `json:"created"`
	Unchanged []SeedEntry `json:"unchanged"`
}

type SeedEntry struct {
	Category progress.Category `json:"category"`
	Version  int               `json:"version"`
}

// Seed appends a new version for every category whose list differs from the
// latest stored one. Running it twice with the same set creates nothing.
func (s *templateService) Seed(dbc dbctx.Context, set TemplateSet) (SeedResult, error) {
	var out SeedResult
	categories := make([]string, 0, len(set))
	for c := range set {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)

	for _, raw := range categories {
		category := progress.Category(raw)
		res, err := s.CreateVersion(dbc, category, set[category], true)
		if err != nil {
			return out, fmt.Errorf("seed %s template: %w", category, err)
		}
		entry := SeedEntry{Category: category, Version: res.Template.Version}
		if res.Created {
			out.Created = append(out.Created, entry)
		} else {
			out.Unchanged = append(out.Unchanged, entry)
		}
	}
	s.log.Info("milestone templates seeded", "created", len(out.Created), "unchanged", len(out.Unchanged))
	return out, nil
}
