package aggregate

import (
	"sort"

	"github.com/warp/report-engine/billing"
	"github.com/warp/report-engine/generic"
	"github.com/warp/report-engine/submission"
)

// =============================================================================
// PROJECT PERFORMANCE - Per-employee rollup within one project
// =============================================================================

// CategoryHours is one category's billing split for an employee.
type CategoryHours struct {
	Category generic.Category `json:"category"`
	billing.Totals
}

// DayHours is one day of an employee's hours.
type DayHours struct {
	Date      generic.Day   `json:"date"`
	Hours     generic.Hours `json:"hours"`
	DayOfWeek string        `json:"day_of_week"`
}

// GeneralMetrics is the project-independent discipline of an employee.
type GeneralMetrics struct {
	Status         submission.Status `json:"status"`
	SubmissionRate float64           `json:"submission_rate"`
	AvgDailyHours  float64           `json:"avg_daily_hours"`
}

// EmployeePerformance is one employee's work on one project.
type EmployeePerformance struct {
	Name    string                 `json:"employee_name"`
	Email   string                 `json:"employee_email"`
	Project string                 `json:"project"`
	Period  billing.AnalysisPeriod `json:"analysis_period"`

	billing.Totals
	TotalDays      int     `json:"total_days"`
	AvgHoursPerDay float64 `json:"avg_hours_per_day"`
	TotalTasks     int     `json:"total_tasks"`
	AvgTasksPerDay float64 `json:"avg_tasks_per_day"`

	Categories []CategoryHours `json:"category_breakdown"`
	Daily      []DayHours      `json:"daily_breakdown"`
	FirstDate  *generic.Day    `json:"first_date_in_range"`
	LastDate   *generic.Day    `json:"last_date_in_range"`

	ContributionPercentage float64         `json:"contribution_percentage"`
	ExtraHoursPercentage   float64         `json:"extra_hours_percentage"`
	BillingEfficiency      float64         `json:"billing_efficiency"`
	Compliant              bool            `json:"sow_compliant"`
	General                *GeneralMetrics `json:"general_metrics,omitempty"`
}

// ProjectPerformance returns every employee who worked on project inside
// r, most hours first. Ties keep email order.
//
// Hours and their billable/extra split come from the capped daily totals,
// so Actual always equals Billable plus Extra. Days and tasks come from
// the reports.
func (d *Dataset) ProjectPerformance(project string, r generic.DateRange) []EmployeePerformance {
	reports := d.reportsIn(project, r)
	totals := billing.Select(d.Daily, billing.Filter{Project: project, Range: r})
	p := period(r, totals)

	byEmp := make(map[string][]generic.Report)
	for _, rep := range reports {
		byEmp[rep.Employee] = append(byEmp[rep.Employee], rep)
	}
	totalsByEmp := make(map[string][]billing.DailyCategoryTotal)
	for _, t := range totals {
		totalsByEmp[t.Employee] = append(totalsByEmp[t.Employee], t)
	}

	out := []EmployeePerformance{}
	grand := generic.ZeroHours
	for _, email := range employeesOf(reports) {
		perf := d.employeePerformance(email, project, p, byEmp[email], totalsByEmp[email])
		grand = grand.Add(perf.Actual)
		out = append(out, perf)
	}
	for i := range out {
		out[i].ContributionPercentage = generic.PercentOf(out[i].Actual, grand)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Actual.GreaterThan(out[j].Actual) })
	return out
}

func (d *Dataset) employeePerformance(email, project string, p billing.AnalysisPeriod, reports []generic.Report, totals []billing.DailyCategoryTotal) EmployeePerformance {
	perf := EmployeePerformance{
		Name:       d.Directory.NameOf(email),
		Email:      email,
		Project:    project,
		Period:     p,
		Categories: categoryHours(totals),
		Daily:      dailyHours(totals),
		Totals:     roundTotals(billing.Sum(totals)),
	}
	perf.TotalDays = distinctDays(reports)
	perf.AvgHoursPerDay = perDay(perf.Actual, perf.TotalDays)
	perf.TotalTasks = taskTotal(reports)
	perf.AvgTasksPerDay = countPerDay(perf.TotalTasks, perf.TotalDays)

	if len(perf.Daily) > 0 {
		first, last := perf.Daily[0].Date, perf.Daily[len(perf.Daily)-1].Date
		perf.FirstDate, perf.LastDate = &first, &last
	}

	perf.ExtraHoursPercentage = generic.PercentOf(perf.Extra, perf.Actual)
	perf.BillingEfficiency = generic.PercentOf(perf.Billable, perf.Actual)
	perf.Compliant = !perf.Extra.IsPositive()

	if m, ok := d.EmployeeMetrics(email); ok {
		perf.General = &GeneralMetrics{Status: m.Status, SubmissionRate: m.SubmissionRate, AvgDailyHours: m.AvgDailyHours}
	}
	return perf
}

// categoryHours sums daily totals per category, in category order.
func categoryHours(totals []billing.DailyCategoryTotal) []CategoryHours {
	sums := make(map[generic.Category]billing.Totals)
	for _, t := range totals {
		sums[t.Category] = sums[t.Category].Add(t.Outcome)
	}
	out := []CategoryHours{}
	for _, cat := range generic.Categories {
		if s, ok := sums[cat]; ok {
			out = append(out, CategoryHours{Category: cat, Totals: roundTotals(s)})
		}
	}
	return out
}

// dailyHours sums daily totals per date, ascending.
func dailyHours(totals []billing.DailyCategoryTotal) []DayHours {
	sums := make(map[generic.Day]generic.Hours)
	for _, t := range totals {
		if _, ok := sums[t.Date]; !ok {
			sums[t.Date] = generic.ZeroHours
		}
		sums[t.Date] = sums[t.Date].Add(t.Actual)
	}
	out := make([]DayHours, 0, len(sums))
	for day, h := range sums {
		out = append(out, DayHours{Date: day, Hours: h.Round2(), DayOfWeek: day.WeekdayName()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func roundTotals(t billing.Totals) billing.Totals {
	return billing.Totals{Actual: t.Actual.Round2(), Billable: t.Billable.Round2(), Extra: t.Extra.Round2()}
}

// =============================================================================
// TOP CONTRIBUTORS
// =============================================================================

// ContributorSummary aggregates a top-N list against the whole project.
type ContributorSummary struct {
	TotalEmployees  int           `json:"total_employees"`
	TotalHours      generic.Hours `json:"total_hours"`
	TotalExtraHours generic.Hours `json:"total_extra_hours"`
	TopHours        generic.Hours `json:"top_contributors_hours"`
	TopExtraHours   generic.Hours `json:"top_contributors_extra_hours"`
	TopPercentage   float64       `json:"top_percentage"`
	AvgHoursTop     float64       `json:"avg_hours_top"`
	AvgHoursAll     float64       `json:"avg_hours_all"`
}

// TopContributors is the top-N ranking of a project by hours.
type TopContributors struct {
	Project      string                 `json:"project"`
	Status       string                 `json:"status"`
	Period       billing.AnalysisPeriod `json:"analysis_period"`
	N            int                    `json:"top_n"`
	Contributors []EmployeePerformance  `json:"top_contributors"`
	Summary      ContributorSummary     `json:"summary"`
}

// TopContributors returns the n employees with the most hours on project.
// n <= 0 returns every contributor.
func (d *Dataset) TopContributors(project string, n int, r generic.DateRange) TopContributors {
	all := d.ProjectPerformance(project, r)
	out := TopContributors{
		Project:      project,
		Status:       billing.StatusAnalyzed,
		Period:       period(r, billing.Select(d.Daily, billing.Filter{Project: project, Range: r})),
		N:            n,
		Contributors: all,
	}
	if len(all) == 0 {
		out.Status = billing.StatusNoData
		out.Summary.TotalHours = generic.ZeroHours
		out.Summary.TotalExtraHours = generic.ZeroHours
		out.Summary.TopHours = generic.ZeroHours
		out.Summary.TopExtraHours = generic.ZeroHours
		return out
	}
	if n > 0 && n < len(all) {
		out.Contributors = all[:n]
	}

	var total, top billing.Totals
	for _, p := range all {
		total = addTotals(total, p.Totals)
	}
	for _, p := range out.Contributors {
		top = addTotals(top, p.Totals)
	}
	out.Summary = ContributorSummary{
		TotalEmployees:  len(all),
		TotalHours:      total.Actual.Round2(),
		TotalExtraHours: total.Extra.Round2(),
		TopHours:        top.Actual.Round2(),
		TopExtraHours:   top.Extra.Round2(),
		TopPercentage:   generic.PercentOf(top.Actual, total.Actual),
		AvgHoursTop:     perDay(top.Actual, len(out.Contributors)),
		AvgHoursAll:     perDay(total.Actual, len(all)),
	}
	return out
}

func addTotals(a, b billing.Totals) billing.Totals {
	return billing.Totals{
		Actual:   a.Actual.Add(b.Actual),
		Billable: a.Billable.Add(b.Billable),
		Extra:    a.Extra.Add(b.Extra),
	}
}
