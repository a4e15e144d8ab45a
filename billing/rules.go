/*
Package billing applies Statement-of-Work caps to reported hours.

PURPOSE:
  Some clients only pay for a bounded number of hours per employee, per
  day, per category. Hours beyond that are still tracked, as extra hours,
  but never invoiced. This package owns the rule table, the cap function
  and the billing rollups built on top of it.

KEY CONCEPTS:
  - RuleBook: immutable per-project caps and project-name aliases
  - Outcome: billable/extra split of one daily total
  - DailyCategoryTotal: hours summed per (employee, date, project, category)

THE CAP IS DAILY:
  Caps apply to the summed daily total of one employee in one category,
  never to individual rows. Two 3h ETL rows on the same day are one 6h
  total: 4h billable, 2h extra. Capping rows first would bill all 6h.

INVARIANT:
  billable + extra == round(actual, 2), both >= 0.

EXAMPLE (lyell, etl capped at 4h):
  Compute(6, "lyell", etl)         -> billable 4, extra 2
  Compute(3, "lyell", etl)         -> billable 3, extra 0
  Compute(10, "lyell", development) -> billable 10, extra 0
  Compute(10, "dataplatr", etl)    -> billable 10, extra 0

SEE ALSO:
  - group.go: Daily grouping
  - summary.go: Project billing summary
  - factory/rules.go: Loading a RuleBook from YAML
*/
package billing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/warp/report-engine/generic"
	"github.com/warp/report-engine/parsing"
)

// =============================================================================
// RULES
// =============================================================================

// ProjectRules are the caps for one project. A category absent from Caps
// is uncapped.
type ProjectRules struct {
	Name    string
	Aliases []string
	Caps    map[generic.Category]generic.Hours
}

// RuleBook is the immutable rule table. Projects not in the book have no caps.
type RuleBook struct {
	projects []ProjectRules
	byName   map[string]int
}

// LyellDailyCap is the standard daily cap for Lyell ETL and reporting work.
var LyellDailyCap = generic.NewHours(4)

// DefaultRuleBook returns the standard table: lyell caps etl and reporting
// at 4h/day/employee; dataplatr has no caps.
func DefaultRuleBook() *RuleBook {
	rb, err := NewRuleBook(
		ProjectRules{
			Name:    "lyell",
			Aliases: []string{"lyell"},
			Caps: map[generic.Category]generic.Hours{
				generic.CategoryETL:       LyellDailyCap,
				generic.CategoryReporting: LyellDailyCap,
			},
		},
		ProjectRules{
			Name:    "dataplatr",
			Aliases: []string{"dataplatr", "datapltr", "data platr"},
		},
	)
	if err != nil {
		panic(err)
	}
	return rb
}

// NewRuleBook validates and freezes a set of project rules. Caps are
// rounded to 2 decimals so that the billable/extra split stays exact.
func NewRuleBook(projects ...ProjectRules) (*RuleBook, error) {
	rb := &RuleBook{byName: make(map[string]int, len(projects))}
	for _, p := range projects {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			return nil, fmt.Errorf("project rules: empty project name")
		}
		if _, dup := rb.byName[name]; dup {
			return nil, fmt.Errorf("project rules: duplicate project %q", name)
		}

		frozen := ProjectRules{
			Name:    name,
			Aliases: append([]string(nil), p.Aliases...),
			Caps:    make(map[generic.Category]generic.Hours, len(p.Caps)),
		}
		for cat, limit := range p.Caps {
			if _, err := generic.ParseCategory(string(cat)); err != nil {
				return nil, fmt.Errorf("project %q: %w", name, err)
			}
			if limit.IsNegative() {
				return nil, fmt.Errorf("project %q: negative cap for %s", name, cat)
			}
			frozen.Caps[cat] = limit.Round2()
		}

		rb.byName[name] = len(rb.projects)
		rb.projects = append(rb.projects, frozen)
	}
	return rb, nil
}

// =============================================================================
// OUTCOME - Billable/extra split
// =============================================================================

// Outcome is the billing split of one daily total.
type Outcome struct {
	Actual   generic.Hours  `json:"actual_hours"`
	Billable generic.Hours  `json:"billed_hours"`
	Extra    generic.Hours  `json:"extra_hours"`
	Cap      *generic.Hours `json:"max_allowed"`
}

// HasExtra returns true if any hours exceeded the cap.
func (o Outcome) HasExtra() bool { return o.Extra.IsPositive() }

// ApplyCap splits actual hours against an optional cap.
func ApplyCap(actual generic.Hours, limit *generic.Hours) Outcome {
	if actual.IsNegative() {
		actual = generic.ZeroHours
	}
	out := Outcome{Actual: actual.Round2(), Cap: limit}
	if limit == nil {
		out.Billable = actual.Round2()
		out.Extra = generic.ZeroHours
		return out
	}
	out.Billable = actual.Min(*limit).Round2()
	out.Extra = actual.Sub(*limit).Max(generic.ZeroHours).Round2()
	return out
}

// =============================================================================
// LOOKUPS
// =============================================================================

// Cap returns the daily cap for a category within a project.
func (rb *RuleBook) Cap(project string, category generic.Category) (generic.Hours, bool) {
	p, ok := rb.project(project)
	if !ok {
		return generic.Hours{}, false
	}
	limit, ok := p.Caps[category]
	return limit, ok
}

// Compute applies the project's rule for a category to a daily total.
func (rb *RuleBook) Compute(actual generic.Hours, project string, category generic.Category) Outcome {
	if limit, ok := rb.Cap(project, category); ok {
		return ApplyCap(actual, &limit)
	}
	return ApplyCap(actual, nil)
}

// IsCapped returns true if the project has at least one capped category.
func (rb *RuleBook) IsCapped(project string) bool {
	p, ok := rb.project(project)
	return ok && len(p.Caps) > 0
}

// ProjectType is "CAPPED" or "NO_CAPS".
func (rb *RuleBook) ProjectType(project string) string {
	if rb.IsCapped(project) {
		return ProjectTypeCapped
	}
	return ProjectTypeNoCaps
}

const (
	ProjectTypeCapped = "CAPPED"
	ProjectTypeNoCaps = "NO_CAPS"
)

// Describe returns a human-readable rule per category, in category order.
// Uncapped projects get a single "all_categories" entry.
func (rb *RuleBook) Describe(project string) map[string]string {
	if !rb.IsCapped(project) {
		return map[string]string{"all_categories": "No caps - bill all actual hours"}
	}
	out := make(map[string]string, len(generic.Categories))
	for _, cat := range generic.Categories {
		if limit, ok := rb.Cap(project, cat); ok {
			out[string(cat)] = fmt.Sprintf("Max %s hours/day (SOW Cap)", limit)
		} else {
			out[string(cat)] = "No cap (bill all hours)"
		}
	}
	return out
}

// NormalizeProject maps a raw project cell onto a canonical project name.
func (rb *RuleBook) NormalizeProject(raw string) string {
	return parsing.NormalizeProject(raw, rb.aliases())
}

// Projects returns the configured project names, sorted.
func (rb *RuleBook) Projects() []string {
	names := make([]string, 0, len(rb.projects))
	for _, p := range rb.projects {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

func (rb *RuleBook) aliases() []parsing.ProjectAlias {
	out := make([]parsing.ProjectAlias, 0, len(rb.projects))
	for _, p := range rb.projects {
		out = append(out, parsing.ProjectAlias{Canonical: p.Name, Variants: p.Aliases})
	}
	return out
}

func (rb *RuleBook) project(name string) (ProjectRules, bool) {
	idx, ok := rb.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return ProjectRules{}, false
	}
	return rb.projects[idx], true
}
