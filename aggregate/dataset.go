/*
Package aggregate rolls classified, capped hours up into employee, category,
project and team summaries.

PURPOSE:
  A Dataset is one immutable snapshot of a load: the roster directory, the
  decoded reports, their classified entries, the capped daily totals and
  the working-day set. Every report in this package is a pure function of
  a Dataset, so concurrent readers never need locks.

KEY CONCEPTS:
  Reports:     one per work-report row, used for discipline and volume metrics
  Entries:     reports split per sub-task and classified
  Daily:       entries summed per (employee, date, project, category), capped
  WorkingDays: every date on which anyone submitted

RANKING TIES:
  Rankings use stable sorts. Team rankings start from roster order; project
  rankings (contributors, violations, overtime) start from email order.
  Ties keep that order.

SEE ALSO:
  - employee.go: Detailed per-employee metrics
  - team.go: Team overview
  - performance.go: Per-project employee performance
  - analytics/engine.go: Builds and publishes Datasets
*/
package aggregate

import (
	"sort"
	"time"

	"github.com/warp/report-engine/billing"
	"github.com/warp/report-engine/generic"
	"github.com/warp/report-engine/identity"
	"github.com/warp/report-engine/submission"
)

// =============================================================================
// DATASET
// =============================================================================

// Dataset is an immutable, fully derived snapshot. Build one with New and
// never mutate it afterwards.
type Dataset struct {
	Directory   *identity.Directory
	Rules       *billing.RuleBook
	Reports     []generic.Report
	Entries     []generic.WorkEntry
	Daily       []billing.DailyCategoryTotal
	WorkingDays submission.WorkingDays

	// Now anchors the "recent days" windows.
	Now time.Time

	submitted  map[string]map[generic.Day]bool
	byEmployee map[string][]int
}

// New derives a Dataset from enriched reports and their entries.
func New(dir *identity.Directory, rb *billing.RuleBook, reports []generic.Report, entries []generic.WorkEntry, now time.Time) *Dataset {
	if dir == nil {
		dir = identity.Empty()
	}
	if rb == nil {
		rb = billing.DefaultRuleBook()
	}

	d := &Dataset{
		Directory:  dir,
		Rules:      rb,
		Reports:    reports,
		Entries:    entries,
		Daily:      billing.GroupDaily(entries, rb),
		Now:        now,
		submitted:  make(map[string]map[generic.Day]bool),
		byEmployee: make(map[string][]int),
	}

	dates := make([]generic.Day, 0, len(reports))
	for i, r := range reports {
		dates = append(dates, r.Date)
		if d.submitted[r.Employee] == nil {
			d.submitted[r.Employee] = make(map[generic.Day]bool)
		}
		d.submitted[r.Employee][r.Date] = true
		d.byEmployee[r.Employee] = append(d.byEmployee[r.Employee], i)
	}
	d.WorkingDays = submission.NewWorkingDays(dates)
	return d
}

// Empty returns a dataset with no employees and no reports.
func Empty(rb *billing.RuleBook, now time.Time) *Dataset {
	return New(identity.Empty(), rb, nil, nil, now)
}

// IsEmpty returns true if no employee or no working day exists.
func (d *Dataset) IsEmpty() bool {
	return d.Directory.Len() == 0 || d.WorkingDays.Len() == 0
}

// Period returns the first and last working day. The zero Period is
// returned when there is no data.
func (d *Dataset) Period() generic.Period {
	first, last, ok := d.WorkingDays.Bounds()
	if !ok {
		return generic.Period{}
	}
	return generic.Period{Start: first, End: last}
}

// Submission returns the discipline metrics of one primary email.
func (d *Dataset) Submission(primary string) submission.Metrics {
	return submission.Compute(d.submitted[primary], d.WorkingDays)
}

// reportsOf returns the reports of one primary email, in load order.
func (d *Dataset) reportsOf(primary string) []generic.Report {
	idx := d.byEmployee[primary]
	out := make([]generic.Report, len(idx))
	for i, j := range idx {
		out[i] = d.Reports[j]
	}
	return out
}

// reportsIn returns the reports of a project inside r. An empty project
// matches every project.
func (d *Dataset) reportsIn(project string, r generic.DateRange) []generic.Report {
	var out []generic.Report
	for _, rep := range d.Reports {
		if project != "" && rep.Project != project {
			continue
		}
		if !r.Contains(rep.Date) {
			continue
		}
		out = append(out, rep)
	}
	return out
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// employeesOf returns the distinct employees of reports, sorted by email.
func employeesOf(reports []generic.Report) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range reports {
		if !seen[r.Employee] {
			seen[r.Employee] = true
			out = append(out, r.Employee)
		}
	}
	sort.Strings(out)
	return out
}

// distinctDays counts the distinct report dates.
func distinctDays(reports []generic.Report) int {
	seen := make(map[generic.Day]bool, len(reports))
	for _, r := range reports {
		seen[r.Date] = true
	}
	return len(seen)
}

// taskTotal sums report task counts.
func taskTotal(reports []generic.Report) int {
	n := 0
	for _, r := range reports {
		n += r.TaskCount
	}
	return n
}

// hoursTotal sums report hours.
func hoursTotal(reports []generic.Report) generic.Hours {
	total := generic.ZeroHours
	for _, r := range reports {
		total = total.Add(r.Hours)
	}
	return total
}

// perDay divides a quantity by a day count, rounded to 2 decimals.
func perDay(total generic.Hours, days int) float64 {
	if days == 0 {
		return 0
	}
	return total.DivInt(days).Round2().Float()
}

// countPerDay divides a count by a day count, rounded to 2 decimals.
func countPerDay(n, days int) float64 {
	if days == 0 {
		return 0
	}
	return generic.Round2(float64(n) / float64(days))
}

// uniqueTasks returns distinct non-empty task texts in first-seen order,
// at most limit of them (0 means no limit).
func uniqueTasks(tasks []string, limit int) []string {
	seen := make(map[string]bool, len(tasks))
	out := []string{}
	for _, t := range tasks {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, t)
	}
	return out
}

// period reports the requested bounds back, filled from data when open.
func period(r generic.DateRange, totals []billing.DailyCategoryTotal) billing.AnalysisPeriod {
	p := billing.AnalysisPeriod{Start: r.Start, End: r.End}
	if first, last, ok := billing.Bounds(totals); ok {
		if p.Start == nil {
			p.Start = &first
		}
		if p.End == nil {
			p.End = &last
		}
	}
	return p
}
