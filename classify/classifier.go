/*
Package classify maps free-text task descriptions to work categories.

PURPOSE:
  Billing caps are per category, but submitters never pick a category.
  The Classifier infers one from the task text using a fixed keyword
  table, then bracket notation like "[ETL]", then falls back to "other".

MATCHING ORDER (first match wins):
  1. Keyword rules, category by category in table order
  2. Hints: the first "[...]" tag, then the leading letters of each word
  3. CategoryOther

MULTI-TASK EXPANSION:
  A cell such as

    [ETL] nightly load (3h)
    Sprint planning (1h)

  is two tasks. Expand splits it into one WorkEntry per line before any
  aggregation, so hours are attributed to the right category.

SEE ALSO:
  - billing/rules.go: Caps keyed by the same categories
*/
package classify

import (
	"regexp"
	"strings"

	"github.com/warp/report-engine/generic"
	"github.com/warp/report-engine/parsing"
)

// =============================================================================
// TABLE - Immutable classification configuration
// =============================================================================

// Rule lists the case-insensitive patterns that select a category.
type Rule struct {
	Category generic.Category
	Patterns []string
}

// Hint maps substrings of a bracket tag (or word prefixes) to a category.
type Hint struct {
	Category generic.Category
	Tokens   []string
}

// Table is the classification configuration. Order is significant.
type Table struct {
	Rules []Rule
	Hints []Hint
}

// DefaultTable returns the standard keyword table.
func DefaultTable() Table {
	return Table{
		Rules: []Rule{
			{generic.CategoryETL, []string{`\[etl\]`, `etl`, `data pipeline`, `data processing`, `elf work`}},
			{generic.CategoryReporting, []string{`report`, `dashboard`, `analytics`, `visualization`, `reporting`}},
			{generic.CategoryDevelopment, []string{`development`, `dev`, `coding`, `programming`, `\[development\]`}},
			{generic.CategoryTesting, []string{`testing`, `qa`, `quality assurance`, `\[testing\]`, `\[qa\]`}},
			{generic.CategoryArchitect, []string{`architect`, `design`, `planning`, `strategy`, `architecture`}},
			{generic.CategoryOther, nil},
		},
		Hints: []Hint{
			{generic.CategoryETL, []string{"etl"}},
			{generic.CategoryDevelopment, []string{"dev", "development"}},
			{generic.CategoryTesting, []string{"test", "qa"}},
			{generic.CategoryReporting, []string{"report"}},
			{generic.CategoryArchitect, []string{"architect"}},
		},
	}
}

// =============================================================================
// CLASSIFIER
// =============================================================================

type compiledRule struct {
	category generic.Category
	patterns []*regexp.Regexp
}

// Classifier is a compiled Table. Safe for concurrent use.
type Classifier struct {
	rules []compiledRule
	hints []Hint
}

var (
	bracketTag = regexp.MustCompile(`\[([^\]]+)\]`)
	wordSplit  = regexp.MustCompile(`[A-Za-z]+`)
)

// NewClassifier compiles a table. Patterns are matched case-insensitively.
func NewClassifier(table Table) (*Classifier, error) {
	c := &Classifier{hints: table.Hints}
	for _, r := range table.Rules {
		cr := compiledRule{category: r.Category}
		for _, p := range r.Patterns {
			re, err := regexp.Compile(`(?i)` + p)
			if err != nil {
				return nil, err
			}
			cr.patterns = append(cr.patterns, re)
		}
		c.rules = append(c.rules, cr)
	}
	return c, nil
}

// Default returns a classifier over DefaultTable.
func Default() *Classifier {
	c, err := NewClassifier(DefaultTable())
	if err != nil {
		panic(err)
	}
	return c
}

// Classify returns the category of a task description. Any text,
// including empty, resolves to some category.
func (c *Classifier) Classify(text string) generic.Category {
	for _, r := range c.rules {
		for _, re := range r.patterns {
			if re.MatchString(text) {
				return r.category
			}
		}
	}

	lower := strings.ToLower(text)
	if m := bracketTag.FindStringSubmatch(lower); m != nil {
		if cat, ok := c.hintFor(func(tok string) bool { return strings.Contains(m[1], tok) }); ok {
			return cat
		}
	}

	words := wordSplit.FindAllString(lower, -1)
	if cat, ok := c.hintFor(func(tok string) bool {
		for _, w := range words {
			if strings.HasPrefix(w, tok) {
				return true
			}
		}
		return false
	}); ok {
		return cat
	}

	return generic.CategoryOther
}

func (c *Classifier) hintFor(match func(token string) bool) (generic.Category, bool) {
	for _, h := range c.hints {
		for _, tok := range h.Tokens {
			if match(tok) {
				return h.Category, true
			}
		}
	}
	return "", false
}

// =============================================================================
// EXPANSION
// =============================================================================

// Expand splits a report into classified work entries.
//
// Single-line text yields one entry with the report's hours. Multi-line
// text yields one entry per non-empty line; a line annotated like "(2h)"
// takes its annotated hours, other lines take an equal share of the
// report's total. Shares are kept at full precision; rounding happens
// after daily grouping.
func (c *Classifier) Expand(r generic.Report) []generic.WorkEntry {
	base := generic.WorkEntry{
		ReportID: r.ID,
		Email:    r.Email,
		Employee: r.Employee,
		Date:     r.Date,
		Project:  r.Project,
	}

	lines := parsing.SplitLines(r.Tasks)
	if !strings.Contains(r.Tasks, "\n") || len(lines) == 0 {
		e := base
		e.Text = r.Tasks
		e.Hours = r.Hours
		e.Category = c.Classify(r.Tasks)
		return []generic.WorkEntry{e}
	}

	share := r.Hours.DivInt(len(lines))
	entries := make([]generic.WorkEntry, 0, len(lines))
	for _, line := range lines {
		e := base
		e.Text = line
		e.Category = c.Classify(line)
		if h, ok := parsing.ParseLineAnnotation(line); ok {
			e.Hours = h
		} else {
			e.Hours = share
		}
		entries = append(entries, e)
	}
	return entries
}

// ExpandAll expands every report in order.
func (c *Classifier) ExpandAll(reports []generic.Report) []generic.WorkEntry {
	var out []generic.WorkEntry
	for _, r := range reports {
		out = append(out, c.Expand(r)...)
	}
	return out
}
