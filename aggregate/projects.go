package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/warp/report-engine/billing"
	"github.com/warp/report-engine/generic"
)

// =============================================================================
// BILLING - Snapshot wrappers over the billing builders
// =============================================================================

// BillingSummary builds the billing summary of project inside r.
func (d *Dataset) BillingSummary(project string, r generic.DateRange) billing.Summary {
	return billing.BuildSummary(d.Daily, d.Rules, project, r)
}

// DailyBilling builds the billing report of project on one date.
func (d *Dataset) DailyBilling(project string, day generic.Day) billing.DailyReport {
	return billing.BuildDailyReport(d.Daily, d.Rules, project, day)
}

// AllProjects summarises every project present.
func (d *Dataset) AllProjects() []billing.ProjectOverview {
	return billing.BuildAllProjects(d.Daily, d.Rules)
}

// =============================================================================
// PROJECT DAY - What happened on one project on one date
// =============================================================================

const dayTaskLimit = 10

// EmployeeDay is one employee's work on a project date.
type EmployeeDay struct {
	Name       string          `json:"employee_name"`
	Email      string          `json:"employee_email"`
	Totals     billing.Totals  `json:"totals"`
	TaskCount  int             `json:"task_count"`
	Tasks      []string        `json:"tasks"`
	Categories []CategoryHours `json:"category_breakdown"`
	Compliant  bool            `json:"sow_compliant"`
}

// ProjectDay is the work of every employee on a project date.
type ProjectDay struct {
	Project       string                             `json:"project"`
	Date          generic.Day                        `json:"date"`
	DayOfWeek     string                             `json:"day_of_week"`
	Status        string                             `json:"status"`
	Message       string                             `json:"message,omitempty"`
	Totals        billing.Totals                     `json:"totals"`
	EmployeeCount int                                `json:"employee_count"`
	Employees     []EmployeeDay                      `json:"employees"`
	Categories    map[generic.Category]generic.Hours `json:"category_summary"`
	HasViolations bool                               `json:"has_sow_violations"`
}

// ProjectDay reports the work on project on one date, most hours first.
func (d *Dataset) ProjectDay(project string, day generic.Day) ProjectDay {
	r := generic.SingleDay(day)
	reports := d.reportsIn(project, r)
	totals := billing.Select(d.Daily, billing.Filter{Project: project, Range: r})

	out := ProjectDay{
		Project:    project,
		Date:       day,
		DayOfWeek:  day.WeekdayName(),
		Status:     billing.StatusAnalyzed,
		Employees:  []EmployeeDay{},
		Categories: map[generic.Category]generic.Hours{},
	}
	if len(reports) == 0 {
		out.Status = billing.StatusNoData
		out.Message = fmt.Sprintf("No work recorded for %s on %s", project, day)
		return out
	}

	byEmp := make(map[string][]billing.DailyCategoryTotal)
	for _, t := range totals {
		byEmp[t.Employee] = append(byEmp[t.Employee], t)
		if _, ok := out.Categories[t.Category]; !ok {
			out.Categories[t.Category] = generic.ZeroHours
		}
		out.Categories[t.Category] = out.Categories[t.Category].Add(t.Actual)
	}
	for c, h := range out.Categories {
		out.Categories[c] = h.Round2()
	}
	repByEmp := make(map[string][]generic.Report)
	for _, rep := range reports {
		repByEmp[rep.Employee] = append(repByEmp[rep.Employee], rep)
	}

	var sum billing.Totals
	for _, email := range employeesOf(reports) {
		reps := repByEmp[email]
		billed := billing.Sum(byEmp[email])
		var tasks []string
		for _, rep := range reps {
			if rep.Tasks != "" {
				tasks = append(tasks, rep.Tasks)
			}
		}
		ed := EmployeeDay{
			Name:       d.Directory.NameOf(email),
			Email:      email,
			Totals:     roundTotals(billed),
			TaskCount:  len(tasks),
			Tasks:      tasks,
			Categories: categoryHours(byEmp[email]),
			Compliant:  !billed.Extra.IsPositive(),
		}
		if len(ed.Tasks) > dayTaskLimit {
			ed.Tasks = ed.Tasks[:dayTaskLimit]
		}
		if !ed.Compliant {
			out.HasViolations = true
		}
		sum = addTotals(sum, ed.Totals)
		out.Employees = append(out.Employees, ed)
	}
	sort.SliceStable(out.Employees, func(i, j int) bool {
		return out.Employees[i].Totals.Actual.GreaterThan(out.Employees[j].Totals.Actual)
	})

	out.Totals = roundTotals(sum)
	out.EmployeeCount = len(out.Employees)
	return out
}

// =============================================================================
// MULTI-PROJECT EMPLOYEES
// =============================================================================

// MultiProjectEmployee is an employee with more than one project.
type MultiProjectEmployee struct {
	Name           string                   `json:"employee_name"`
	Email          string                   `json:"email"`
	Projects       []string                 `json:"projects"`
	ProjectCount   int                      `json:"project_count"`
	ProjectHours   map[string]generic.Hours `json:"project_hours"`
	TotalHours     generic.Hours            `json:"total_hours"`
	PrimaryProject string                   `json:"primary_project"`
}

// FocusProjectEmployee highlights a multi-project employee on the focus project.
type FocusProjectEmployee struct {
	Name            string        `json:"employee_name"`
	Email           string        `json:"email"`
	FocusHours      generic.Hours `json:"focus_hours"`
	OtherProjects   []string      `json:"other_projects"`
	OtherHours      generic.Hours `json:"other_hours"`
	FocusPercentage float64       `json:"focus_percentage"`
}

// MultiProjectSummary totals a multi-project report.
type MultiProjectSummary struct {
	TotalMultiProject int     `json:"total_multi_project"`
	TotalFocus        int     `json:"total_focus_multi"`
	AvgProjects       float64 `json:"avg_projects_per_multi"`
	MostProjects      string  `json:"most_projects,omitempty"`
	HighestFocusHours string  `json:"highest_focus_multi,omitempty"`
}

// MultiProjectReport lists employees who split time across projects.
type MultiProjectReport struct {
	Status    string                 `json:"status"`
	Focus     string                 `json:"focus_project"`
	Period    billing.AnalysisPeriod `json:"analysis_period"`
	Employees []MultiProjectEmployee `json:"multi_project_employees"`
	OnFocus   []FocusProjectEmployee `json:"focus_multi_project_employees"`
	Summary   MultiProjectSummary    `json:"summary"`
}

// MultiProject lists employees with more than one non-empty project inside
// r, most projects first, and the subset who also work on focus.
func (d *Dataset) MultiProject(focus string, r generic.DateRange) MultiProjectReport {
	reports := d.reportsIn("", r)
	out := MultiProjectReport{
		Status:    billing.StatusAnalyzed,
		Focus:     focus,
		Period:    period(r, billing.Select(d.Daily, billing.Filter{Range: r})),
		Employees: []MultiProjectEmployee{},
		OnFocus:   []FocusProjectEmployee{},
	}
	if len(reports) == 0 {
		out.Status = billing.StatusNoData
		return out
	}

	byEmp := make(map[string][]generic.Report)
	for _, rep := range reports {
		byEmp[rep.Employee] = append(byEmp[rep.Employee], rep)
	}

	for _, email := range employeesOf(reports) {
		reps := byEmp[email]
		hours := make(map[string]generic.Hours)
		var projects []string
		for _, rep := range reps {
			if rep.Project == "" {
				continue
			}
			if _, ok := hours[rep.Project]; !ok {
				projects = append(projects, rep.Project)
				hours[rep.Project] = generic.ZeroHours
			}
			hours[rep.Project] = hours[rep.Project].Add(rep.Hours)
		}
		if len(projects) < 2 {
			continue
		}

		dist := make(map[string]ProjectShare, len(hours))
		for p, h := range hours {
			hours[p] = h.Round2()
			dist[p] = ProjectShare{Hours: h}
		}
		out.Employees = append(out.Employees, MultiProjectEmployee{
			Name:           d.Directory.NameOf(email),
			Email:          email,
			Projects:       projects,
			ProjectCount:   len(projects),
			ProjectHours:   hours,
			TotalHours:     hoursTotal(reps).Round2(),
			PrimaryProject: primaryProject(dist),
		})
	}
	sort.SliceStable(out.Employees, func(i, j int) bool {
		return out.Employees[i].ProjectCount > out.Employees[j].ProjectCount
	})

	projectSum := 0
	for _, e := range out.Employees {
		projectSum += e.ProjectCount
		focusHours, ok := e.ProjectHours[focus]
		if !ok {
			continue
		}
		fe := FocusProjectEmployee{
			Name:            e.Name,
			Email:           e.Email,
			FocusHours:      focusHours,
			OtherProjects:   []string{},
			OtherHours:      generic.ZeroHours,
			FocusPercentage: generic.PercentOf(focusHours, e.TotalHours),
		}
		for _, p := range e.Projects {
			if p != focus {
				fe.OtherProjects = append(fe.OtherProjects, p)
				fe.OtherHours = fe.OtherHours.Add(e.ProjectHours[p])
			}
		}
		out.OnFocus = append(out.OnFocus, fe)
	}
	sort.SliceStable(out.OnFocus, func(i, j int) bool {
		return out.OnFocus[i].FocusHours.GreaterThan(out.OnFocus[j].FocusHours)
	})

	out.Summary.TotalMultiProject = len(out.Employees)
	out.Summary.TotalFocus = len(out.OnFocus)
	if len(out.Employees) > 0 {
		out.Summary.AvgProjects = generic.Round1(float64(projectSum) / float64(len(out.Employees)))
		out.Summary.MostProjects = out.Employees[0].Name
	}
	if len(out.OnFocus) > 0 {
		out.Summary.HighestFocusHours = out.OnFocus[0].Name
	}
	return out
}

// =============================================================================
// COMPARISON
// =============================================================================

// MetricDifference is employee1 minus employee2 for one metric.
type MetricDifference struct {
	Difference           float64 `json:"difference"`
	PercentageDifference float64 `json:"percentage_difference"`
}

// CategoryComparison compares two employees in one category.
type CategoryComparison struct {
	Category    generic.Category `json:"category"`
	Hours1      generic.Hours    `json:"employee1_hours"`
	Hours2      generic.Hours    `json:"employee2_hours"`
	Extra1      generic.Hours    `json:"employee1_extra_hours"`
	Extra2      generic.Hours    `json:"employee2_extra_hours"`
	Difference  generic.Hours    `json:"difference"`
	Percentage1 float64          `json:"employee1_percentage"`
	Percentage2 float64          `json:"employee2_percentage"`
}

// ComparisonSummary totals a comparison.
type ComparisonSummary struct {
	HigherContributor   string        `json:"higher_contributor"`
	HourDifference      generic.Hours `json:"hour_difference"`
	TotalHoursBoth      generic.Hours `json:"total_hours_both"`
	TotalExtraHoursBoth generic.Hours `json:"total_extra_hours_both"`
	CombinedPercentage  float64       `json:"combined_percentage"`
}

// Comparison compares two employees on one project.
type Comparison struct {
	Project     string                      `json:"project"`
	Period      billing.AnalysisPeriod      `json:"analysis_period"`
	Employee1   EmployeePerformance         `json:"employee1"`
	Employee2   EmployeePerformance         `json:"employee2"`
	Differences map[string]MetricDifference `json:"differences"`
	Categories  []CategoryComparison        `json:"category_comparison"`
	Summary     ComparisonSummary           `json:"summary"`
}

// Compare compares two employees, found by partial name, on project
// inside r. An unknown name is ErrEmployeeNotFound.
func (d *Dataset) Compare(project, name1, name2 string, r generic.DateRange) (*Comparison, error) {
	e1, ok := d.Directory.FindByName(name1)
	if !ok {
		return nil, fmt.Errorf("%w: %q", generic.ErrEmployeeNotFound, name1)
	}
	e2, ok := d.Directory.FindByName(name2)
	if !ok {
		return nil, fmt.Errorf("%w: %q", generic.ErrEmployeeNotFound, name2)
	}

	reports := d.reportsIn(project, r)
	totals := billing.Select(d.Daily, billing.Filter{Project: project, Range: r})
	p := period(r, totals)

	perfOf := func(email string) EmployeePerformance {
		var reps []generic.Report
		for _, rep := range reports {
			if rep.Employee == email {
				reps = append(reps, rep)
			}
		}
		return d.employeePerformance(email, project, p, reps, billing.Select(totals, billing.Filter{Employee: email}))
	}

	c := &Comparison{
		Project:     project,
		Period:      p,
		Employee1:   perfOf(e1.PrimaryEmail),
		Employee2:   perfOf(e2.PrimaryEmail),
		Differences: map[string]MetricDifference{},
		Categories:  []CategoryComparison{},
	}
	a, b := c.Employee1, c.Employee2

	c.Differences["total_hours"] = difference(a.Actual.Float(), b.Actual.Float())
	c.Differences["total_extra_hours"] = difference(a.Extra.Float(), b.Extra.Float())
	c.Differences["total_days"] = difference(float64(a.TotalDays), float64(b.TotalDays))
	c.Differences["avg_hours_per_day"] = difference(a.AvgHoursPerDay, b.AvgHoursPerDay)
	c.Differences["task_count"] = difference(float64(a.TotalTasks), float64(b.TotalTasks))

	cats1, cats2 := categoryIndex(a.Categories), categoryIndex(b.Categories)
	for _, cat := range generic.Categories {
		h1, ok1 := cats1[cat]
		h2, ok2 := cats2[cat]
		if !ok1 && !ok2 {
			continue
		}
		c.Categories = append(c.Categories, CategoryComparison{
			Category:    cat,
			Hours1:      h1.Actual.Round2(),
			Hours2:      h2.Actual.Round2(),
			Extra1:      h1.Extra.Round2(),
			Extra2:      h2.Extra.Round2(),
			Difference:  h1.Actual.Sub(h2.Actual).Round2(),
			Percentage1: generic.PercentOf(h1.Actual, a.Actual),
			Percentage2: generic.PercentOf(h2.Actual, b.Actual),
		})
	}
	sort.SliceStable(c.Categories, func(i, j int) bool {
		return c.Categories[i].Difference.Value.Abs().GreaterThan(c.Categories[j].Difference.Value.Abs())
	})

	higher, diff := a.Name, a.Actual.Sub(b.Actual)
	if !a.Actual.GreaterThan(b.Actual) {
		higher, diff = b.Name, b.Actual.Sub(a.Actual)
	}
	both := a.Actual.Add(b.Actual)
	c.Summary = ComparisonSummary{
		HigherContributor:   higher,
		HourDifference:      diff.Round2(),
		TotalHoursBoth:      both.Round2(),
		TotalExtraHoursBoth: a.Extra.Add(b.Extra).Round2(),
		CombinedPercentage:  generic.PercentOf(both, billing.Sum(totals).Actual),
	}
	return c, nil
}

func difference(a, b float64) MetricDifference {
	md := MetricDifference{Difference: generic.Round2(a - b)}
	if b > 0 {
		md.PercentageDifference = generic.Round1((a - b) / b * 100)
	}
	return md
}

func categoryIndex(cats []CategoryHours) map[generic.Category]billing.Totals {
	out := make(map[generic.Category]billing.Totals, len(cats))
	for _, c := range cats {
		out[c.Category] = c.Totals
	}
	return out
}

// =============================================================================
// MONTHLY
// =============================================================================

const monthlyDayEmployees = 5

// DayActivity is the project activity of one date.
type DayActivity struct {
	Date          generic.Day   `json:"date"`
	TotalHours    generic.Hours `json:"total_hours"`
	EmployeeCount int           `json:"employee_count"`
	Employees     []string      `json:"employees"`
}

// MonthlyReport is a project's calendar-month performance.
type MonthlyReport struct {
	Project         string                `json:"project"`
	Year            int                   `json:"year"`
	Month           int                   `json:"month"`
	MonthName       string                `json:"month_name"`
	Period          generic.Period        `json:"date_range"`
	TotalEmployees  int                   `json:"total_employees"`
	Totals          billing.Totals        `json:"totals"`
	Performance     []EmployeePerformance `json:"employee_performance"`
	DailyActivity   []DayActivity         `json:"daily_activity"`
	TopContributors []EmployeePerformance `json:"top_contributors"`
}

// Monthly reports project performance over one calendar month.
func (d *Dataset) Monthly(project string, year int, month time.Month) MonthlyReport {
	r := generic.Month(year, month)
	perf := d.ProjectPerformance(project, r)

	out := MonthlyReport{
		Project:         project,
		Year:            year,
		Month:           int(month),
		MonthName:       month.String(),
		Period:          generic.Period{Start: *r.Start, End: *r.End},
		TotalEmployees:  len(perf),
		Performance:     perf,
		DailyActivity:   []DayActivity{},
		TopContributors: perf,
	}
	if len(perf) > RankingSize {
		out.TopContributors = perf[:RankingSize]
	}
	for _, p := range perf {
		out.Totals = addTotals(out.Totals, p.Totals)
	}
	out.Totals = roundTotals(out.Totals)

	reports := d.reportsIn(project, r)
	dayHours := make(map[generic.Day]generic.Hours)
	for _, t := range billing.Select(d.Daily, billing.Filter{Project: project, Range: r}) {
		if _, ok := dayHours[t.Date]; !ok {
			dayHours[t.Date] = generic.ZeroHours
		}
		dayHours[t.Date] = dayHours[t.Date].Add(t.Actual)
	}
	byDay := make(map[generic.Day][]generic.Report)
	var days []generic.Day
	for _, rep := range reports {
		if _, ok := byDay[rep.Date]; !ok {
			days = append(days, rep.Date)
		}
		byDay[rep.Date] = append(byDay[rep.Date], rep)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	for _, day := range days {
		reps := byDay[day]
		emails := employeesOf(reps)
		names := make([]string, 0, len(emails))
		for _, e := range emails {
			if len(names) == monthlyDayEmployees {
				break
			}
			names = append(names, d.Directory.NameOf(e))
		}
		out.DailyActivity = append(out.DailyActivity, DayActivity{
			Date:          day,
			TotalHours:    dayHours[day].Round2(),
			EmployeeCount: len(emails),
			Employees:     names,
		})
	}
	return out
}
