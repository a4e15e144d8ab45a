package billing

import (
	"sort"

	"github.com/warp/report-engine/generic"
)

// =============================================================================
// DAILY CATEGORY TOTAL - The unit caps are applied to
// =============================================================================

// GroupKey identifies one daily category total.
type GroupKey struct {
	Employee string
	Date     generic.Day
	Project  string
	Category generic.Category
}

// DailyCategoryTotal is the summed hours of one employee, on one day, in
// one project category, with the billing outcome for that sum.
type DailyCategoryTotal struct {
	GroupKey
	Actual  generic.Hours // unrounded sum
	Outcome Outcome
	Entries int
	Tasks   []string
}

// GroupDaily sums entries per (employee, date, project, category) and
// applies the rule book to each sum. Entries with no positive hours carry
// nothing to bill and are skipped.
//
// Output is ordered by date, then employee, then category priority.
func GroupDaily(entries []generic.WorkEntry, rb *RuleBook) []DailyCategoryTotal {
	index := make(map[GroupKey]int)
	var totals []DailyCategoryTotal

	for _, e := range entries {
		if !e.Hours.IsPositive() {
			continue
		}
		k := GroupKey{Employee: e.Employee, Date: e.Date, Project: e.Project, Category: e.Category}
		i, ok := index[k]
		if !ok {
			i = len(totals)
			index[k] = i
			totals = append(totals, DailyCategoryTotal{GroupKey: k, Actual: generic.ZeroHours})
		}
		totals[i].Actual = totals[i].Actual.Add(e.Hours)
		totals[i].Entries++
		if e.Text != "" {
			totals[i].Tasks = append(totals[i].Tasks, e.Text)
		}
	}

	for i := range totals {
		totals[i].Outcome = rb.Compute(totals[i].Actual, totals[i].Project, totals[i].Category)
	}

	sort.SliceStable(totals, func(i, j int) bool {
		a, b := totals[i], totals[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Employee != b.Employee {
			return a.Employee < b.Employee
		}
		if a.Project != b.Project {
			return a.Project < b.Project
		}
		return a.Category.Rank() < b.Category.Rank()
	})
	return totals
}

// =============================================================================
// FILTERS
// =============================================================================

// Filter selects daily totals.
type Filter struct {
	Project  string // empty matches every project
	Employee string // empty matches every employee
	Range    generic.DateRange
}

// Select returns the totals matching f, preserving order.
func Select(totals []DailyCategoryTotal, f Filter) []DailyCategoryTotal {
	var out []DailyCategoryTotal
	for _, t := range totals {
		if f.Project != "" && t.Project != f.Project {
			continue
		}
		if f.Employee != "" && t.Employee != f.Employee {
			continue
		}
		if !f.Range.Contains(t.Date) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// =============================================================================
// ROLLUP HELPERS
// =============================================================================

// Totals is an actual/billable/extra triple.
type Totals struct {
	Actual   generic.Hours `json:"actual_hours"`
	Billable generic.Hours `json:"billed_hours"`
	Extra    generic.Hours `json:"extra_hours"`
}

// Add accumulates an outcome.
func (t Totals) Add(o Outcome) Totals {
	return Totals{
		Actual:   t.Actual.Add(o.Actual),
		Billable: t.Billable.Add(o.Billable),
		Extra:    t.Extra.Add(o.Extra),
	}
}

// Efficiency returns billable/actual as a percentage.
func (t Totals) Efficiency() float64 { return generic.PercentOf(t.Billable, t.Actual) }

// ExtraPercent returns extra/actual as a percentage.
func (t Totals) ExtraPercent() float64 { return generic.PercentOf(t.Extra, t.Actual) }

// Compliant returns true if no hours exceeded a cap.
func (t Totals) Compliant() bool { return !t.Extra.IsPositive() }

// Sum rolls up a list of daily totals.
func Sum(totals []DailyCategoryTotal) Totals {
	var t Totals
	for _, d := range totals {
		t = t.Add(d.Outcome)
	}
	return t
}

// Bounds returns the first and last date present. ok is false for an empty list.
func Bounds(totals []DailyCategoryTotal) (first, last generic.Day, ok bool) {
	for i, t := range totals {
		if i == 0 || t.Date.Before(first) {
			first = t.Date
		}
		if i == 0 || t.Date.After(last) {
			last = t.Date
		}
	}
	return first, last, len(totals) > 0
}
