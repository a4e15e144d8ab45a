package billing

import (
	"fmt"
	"sort"

	"github.com/warp/report-engine/generic"
)

// =============================================================================
// SUMMARY TYPES
// =============================================================================

const (
	StatusAnalyzed = "ANALYZED"
	StatusNoData   = "NO_DATA"

	ComplianceOK        = "COMPLIANT"
	ComplianceViolation = "VIOLATION"
)

// AnalysisPeriod reports the window a summary covers. Bounds are nil when
// the caller left them open and there was no data to infer them from.
type AnalysisPeriod struct {
	Start *generic.Day `json:"start_date"`
	End   *generic.Day `json:"end_date"`
}

// CategoryDay is one category on one day, summed over employees.
type CategoryDay struct {
	Totals
	Cap       *generic.Hours `json:"max_allowed"`
	Employees int            `json:"employees"`
}

// DayRecord is one day of a project's billing.
type DayRecord struct {
	Date        generic.Day                        `json:"date"`
	Categories  map[generic.Category]CategoryDay   `json:"categories"`
	Totals      Totals                             `json:"totals"`
	HasExtra    bool                               `json:"has_extra_hours"`
	ExtraDetail map[generic.Category]generic.Hours `json:"extra_hours_detail"`
}

// CategoryTotal is one category over the whole period.
type CategoryTotal struct {
	Category generic.Category `json:"category"`
	Totals
	DaysWorked int `json:"days_worked"`
}

// SummaryTotals are the period totals of a project.
type SummaryTotals struct {
	Totals
	DaysWithExtra int `json:"days_with_extra_hours"`
}

// DayViolation is a day on which at least one cap was exceeded.
type DayViolation struct {
	Date            generic.Day                        `json:"date"`
	TotalExtra      generic.Hours                      `json:"total_extra_hours"`
	TotalActual     generic.Hours                      `json:"total_actual_hours"`
	TotalBilled     generic.Hours                      `json:"total_billed_hours"`
	CategoryDetails map[generic.Category]generic.Hours `json:"category_details"`
	Employees       []string                           `json:"employees"`
}

// Summary is the billing report for one project.
type Summary struct {
	Project     string            `json:"project"`
	ProjectType string            `json:"project_type"`
	Status      string            `json:"status"`
	Message     string            `json:"message,omitempty"`
	Period      AnalysisPeriod    `json:"analysis_period"`
	TotalDays   int               `json:"total_days"`
	Days        []DayRecord       `json:"daily_summary"`
	Totals      SummaryTotals     `json:"totals"`
	Categories  []CategoryTotal   `json:"category_breakdown"`
	Violations  []DayViolation    `json:"sow_violations"`
	Rules       map[string]string `json:"sow_rules_applied"`
}

// =============================================================================
// BUILD
// =============================================================================

// BuildSummary assembles the billing summary of one project from daily
// totals. Totals of other projects and dates outside r are ignored.
func BuildSummary(all []DailyCategoryTotal, rb *RuleBook, project string, r generic.DateRange) Summary {
	totals := Select(all, Filter{Project: project, Range: r})

	s := Summary{
		Project:     project,
		ProjectType: rb.ProjectType(project),
		Status:      StatusAnalyzed,
		Period:      AnalysisPeriod{Start: r.Start, End: r.End},
		Days:        []DayRecord{},
		Categories:  []CategoryTotal{},
		Violations:  []DayViolation{},
		Rules:       rb.Describe(project),
	}

	first, last, ok := Bounds(totals)
	if !ok {
		s.Status = StatusNoData
		s.Message = fmt.Sprintf("No billing data found for %s", project)
		return s
	}
	if s.Period.Start == nil {
		s.Period.Start = &first
	}
	if s.Period.End == nil {
		s.Period.End = &last
	}

	s.Days = dayRecords(totals)
	s.TotalDays = len(s.Days)
	s.Categories = categoryTotals(totals, s.Days)

	s.Totals.Totals = Sum(totals)
	for _, d := range s.Days {
		if d.HasExtra {
			s.Totals.DaysWithExtra++
		}
	}

	s.Violations = dayViolations(totals, s.Days)
	return s
}

func dayRecords(totals []DailyCategoryTotal) []DayRecord {
	var days []DayRecord
	index := make(map[generic.Day]int)

	for _, t := range totals {
		i, ok := index[t.Date]
		if !ok {
			i = len(days)
			index[t.Date] = i
			days = append(days, DayRecord{
				Date:        t.Date,
				Categories:  make(map[generic.Category]CategoryDay),
				ExtraDetail: make(map[generic.Category]generic.Hours),
			})
		}
		d := &days[i]

		cd := d.Categories[t.Category]
		cd.Totals = cd.Totals.Add(t.Outcome)
		cd.Cap = t.Outcome.Cap
		cd.Employees++
		d.Categories[t.Category] = cd

		d.Totals = d.Totals.Add(t.Outcome)
		if t.Outcome.HasExtra() {
			d.HasExtra = true
			d.ExtraDetail[t.Category] = d.ExtraDetail[t.Category].Add(t.Outcome.Extra)
		}
	}

	sort.SliceStable(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days
}

func categoryTotals(totals []DailyCategoryTotal, days []DayRecord) []CategoryTotal {
	byCat := make(map[generic.Category]*CategoryTotal)
	for _, t := range totals {
		ct, ok := byCat[t.Category]
		if !ok {
			ct = &CategoryTotal{Category: t.Category}
			byCat[t.Category] = ct
		}
		ct.Totals = ct.Totals.Add(t.Outcome)
	}
	for _, d := range days {
		for cat := range d.Categories {
			byCat[cat].DaysWorked++
		}
	}

	out := make([]CategoryTotal, 0, len(byCat))
	for _, cat := range generic.Categories {
		if ct, ok := byCat[cat]; ok {
			out = append(out, *ct)
		}
	}
	return out
}

// dayViolations lists days with extra hours, most recent first.
func dayViolations(totals []DailyCategoryTotal, days []DayRecord) []DayViolation {
	employees := make(map[generic.Day][]string)
	for _, t := range totals {
		if t.Outcome.HasExtra() {
			employees[t.Date] = appendUnique(employees[t.Date], t.Employee)
		}
	}

	out := []DayViolation{}
	for _, d := range days {
		if !d.HasExtra {
			continue
		}
		out = append(out, DayViolation{
			Date:            d.Date,
			TotalExtra:      d.Totals.Extra,
			TotalActual:     d.Totals.Actual,
			TotalBilled:     d.Totals.Billable,
			CategoryDetails: d.ExtraDetail,
			Employees:       employees[d.Date],
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// =============================================================================
// DAILY REPORT
// =============================================================================

// DailyReport is the billing of one project on one date.
type DailyReport struct {
	Project     string                             `json:"project"`
	Date        generic.Day                        `json:"date"`
	Status      string                             `json:"status"`
	Message     string                             `json:"message,omitempty"`
	ProjectType string                             `json:"project_type"`
	Totals      Totals                             `json:"totals"`
	HasExtra    bool                               `json:"has_extra_hours"`
	Categories  map[generic.Category]CategoryDay   `json:"categories,omitempty"`
	ExtraDetail map[generic.Category]generic.Hours `json:"extra_hours_detail,omitempty"`
	Compliance  string                             `json:"sow_compliance,omitempty"`
}

// BuildDailyReport summarises a single date.
func BuildDailyReport(all []DailyCategoryTotal, rb *RuleBook, project string, day generic.Day) DailyReport {
	s := BuildSummary(all, rb, project, generic.SingleDay(day))
	r := DailyReport{
		Project:     project,
		Date:        day,
		ProjectType: s.ProjectType,
	}
	if len(s.Days) == 0 {
		r.Status = StatusNoData
		r.Message = fmt.Sprintf("No work recorded for %s on %s", project, day)
		return r
	}

	d := s.Days[0]
	r.Status = StatusAnalyzed
	r.Totals = d.Totals
	r.HasExtra = d.HasExtra
	r.Categories = d.Categories
	r.ExtraDetail = d.ExtraDetail
	r.Compliance = ComplianceOK
	if d.HasExtra {
		r.Compliance = ComplianceViolation
	}
	return r
}

// =============================================================================
// ALL PROJECTS
// =============================================================================

// ProjectOverview is one line of the all-projects summary.
type ProjectOverview struct {
	Project     string `json:"project"`
	ProjectType string `json:"project_type"`
	TotalDays   int    `json:"total_days"`
	Totals
	Violations int `json:"sow_violations"`
}

// BuildAllProjects summarises every non-empty project present in the totals,
// ordered by name.
func BuildAllProjects(all []DailyCategoryTotal, rb *RuleBook) []ProjectOverview {
	seen := make(map[string]bool)
	var projects []string
	for _, t := range all {
		if t.Project == "" || seen[t.Project] {
			continue
		}
		seen[t.Project] = true
		projects = append(projects, t.Project)
	}
	sort.Strings(projects)

	out := make([]ProjectOverview, 0, len(projects))
	for _, p := range projects {
		s := BuildSummary(all, rb, p, generic.AllTime)
		out = append(out, ProjectOverview{
			Project:     p,
			ProjectType: s.ProjectType,
			TotalDays:   s.TotalDays,
			Totals:      s.Totals.Totals,
			Violations:  len(s.Violations),
		})
	}
	return out
}
