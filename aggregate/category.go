package aggregate

import (
	"fmt"
	"sort"

	"github.com/warp/report-engine/billing"
	"github.com/warp/report-engine/generic"
)

// =============================================================================
// CATEGORY PERFORMANCE - One category across employees
// =============================================================================

const (
	categorySampleTasks  = 5
	breakdownSampleTasks = 3
)

// CategoryContributor is one employee's work in one category.
type CategoryContributor struct {
	Name  string `json:"employee_name"`
	Email string `json:"employee_email"`
	billing.Totals
	TotalDays      int            `json:"total_days"`
	AvgHoursPerDay float64        `json:"avg_hours_per_day"`
	TaskCount      int            `json:"task_count"`
	SampleTasks    []string       `json:"sample_tasks"`
	HasExtra       bool           `json:"has_extra_hours"`
	Cap            *generic.Hours `json:"category_cap"`
}

// CategoryPerformance is one category of one project.
type CategoryPerformance struct {
	Project            string                             `json:"project"`
	Category           generic.Category                   `json:"category"`
	Status             string                             `json:"status"`
	Message            string                             `json:"message,omitempty"`
	Period             billing.AnalysisPeriod             `json:"analysis_period"`
	Totals             billing.Totals                     `json:"totals"`
	EmployeeCount      int                                `json:"employee_count"`
	CategoryPercentage float64                            `json:"category_percentage"`
	Employees          []CategoryContributor              `json:"employees"`
	TopContributor     *CategoryContributor               `json:"top_contributor,omitempty"`
	Comparison         map[generic.Category]generic.Hours `json:"category_comparison"`
	Cap                *generic.Hours                     `json:"category_cap"`
}

// CategoryPerformance reports who worked in one category of a project,
// most hours first.
func (d *Dataset) CategoryPerformance(project string, category generic.Category, r generic.DateRange) CategoryPerformance {
	projectTotals := billing.Select(d.Daily, billing.Filter{Project: project, Range: r})
	out := CategoryPerformance{
		Project:    project,
		Category:   category,
		Status:     billing.StatusAnalyzed,
		Period:     period(r, projectTotals),
		Employees:  []CategoryContributor{},
		Comparison: map[generic.Category]generic.Hours{},
		Cap:        d.capOf(project, category),
	}

	projectActual := generic.ZeroHours
	for _, t := range projectTotals {
		if _, ok := out.Comparison[t.Category]; !ok {
			out.Comparison[t.Category] = generic.ZeroHours
		}
		out.Comparison[t.Category] = out.Comparison[t.Category].Add(t.Actual)
		projectActual = projectActual.Add(t.Actual)
	}
	for c, h := range out.Comparison {
		out.Comparison[c] = h.Round2()
	}

	byEmp := make(map[string][]billing.DailyCategoryTotal)
	var emails []string
	for _, t := range projectTotals {
		if t.Category != category {
			continue
		}
		if _, ok := byEmp[t.Employee]; !ok {
			emails = append(emails, t.Employee)
		}
		byEmp[t.Employee] = append(byEmp[t.Employee], t)
	}
	if len(emails) == 0 {
		out.Status = billing.StatusNoData
		out.Message = fmt.Sprintf("No %s work found for %s in the specified date range", category, project)
		return out
	}
	sort.Strings(emails)

	var sum billing.Totals
	catActual := generic.ZeroHours
	for _, email := range emails {
		totals := byEmp[email]
		t := billing.Sum(totals)
		var tasks []string
		for _, dt := range totals {
			tasks = append(tasks, dt.Tasks...)
			catActual = catActual.Add(dt.Actual)
		}
		unique := uniqueTasks(tasks, 0)
		samples := unique
		if len(samples) > categorySampleTasks {
			samples = samples[:categorySampleTasks]
		}

		c := CategoryContributor{
			Name:           d.Directory.NameOf(email),
			Email:          email,
			Totals:         roundTotals(t),
			TotalDays:      len(totals),
			AvgHoursPerDay: perDay(t.Actual, len(totals)),
			TaskCount:      len(unique),
			SampleTasks:    samples,
			HasExtra:       t.Extra.IsPositive(),
			Cap:            out.Cap,
		}
		sum = addTotals(sum, t)
		out.Employees = append(out.Employees, c)
	}
	sort.SliceStable(out.Employees, func(i, j int) bool {
		return out.Employees[i].Actual.GreaterThan(out.Employees[j].Actual)
	})

	out.Totals = roundTotals(sum)
	out.EmployeeCount = len(out.Employees)
	out.CategoryPercentage = generic.PercentOf(catActual, projectActual)
	top := out.Employees[0]
	out.TopContributor = &top
	return out
}

func (d *Dataset) capOf(project string, category generic.Category) *generic.Hours {
	if limit, ok := d.Rules.Cap(project, category); ok {
		return &limit
	}
	return nil
}

// =============================================================================
// EMPLOYEE CATEGORY BREAKDOWN - One employee across categories
// =============================================================================

// CategoryDayPattern is one day of one category for an employee.
type CategoryDayPattern struct {
	Date generic.Day `json:"date"`
	billing.Outcome
}

// EmployeeCategory is one category of an employee's project work.
type EmployeeCategory struct {
	Category generic.Category `json:"category"`
	billing.Totals
	TotalDays      int                  `json:"total_days"`
	AvgHoursPerDay float64              `json:"avg_hours_per_day"`
	TaskCount      int                  `json:"task_count"`
	SampleTasks    []string             `json:"sample_tasks"`
	DailyPattern   []CategoryDayPattern `json:"daily_pattern"`
	Percentage     float64              `json:"percentage"`
	Cap            *generic.Hours       `json:"category_cap"`
}

// EmployeeCategoryBreakdown is an employee's project work split by category.
type EmployeeCategoryBreakdown struct {
	Name              string                 `json:"employee_name"`
	Email             string                 `json:"employee_email"`
	Project           string                 `json:"project"`
	Status            string                 `json:"status"`
	Message           string                 `json:"message,omitempty"`
	Period            billing.AnalysisPeriod `json:"analysis_period"`
	Totals            billing.Totals         `json:"totals"`
	TotalDays         int                    `json:"total_days"`
	Categories        []EmployeeCategory     `json:"category_breakdown"`
	PrimaryCategory   generic.Category       `json:"primary_category,omitempty"`
	CategoryDiversity int                    `json:"category_diversity"`
}

// EmployeeCategoryBreakdown splits one employee's project work by category,
// most hours first. The employee is found by partial name match; an
// unknown name is ErrEmployeeNotFound.
func (d *Dataset) EmployeeCategoryBreakdown(project, name string, r generic.DateRange) (*EmployeeCategoryBreakdown, error) {
	emp, ok := d.Directory.FindByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", generic.ErrEmployeeNotFound, name)
	}

	totals := billing.Select(d.Daily, billing.Filter{Project: project, Employee: emp.PrimaryEmail, Range: r})
	out := &EmployeeCategoryBreakdown{
		Name:       emp.Name,
		Email:      emp.PrimaryEmail,
		Project:    project,
		Status:     billing.StatusAnalyzed,
		Period:     period(r, totals),
		Categories: []EmployeeCategory{},
	}
	if len(totals) == 0 {
		out.Status = billing.StatusNoData
		out.Message = fmt.Sprintf("No %s work found for %s in the specified date range", project, emp.Name)
		return out, nil
	}

	byCat := make(map[generic.Category][]billing.DailyCategoryTotal)
	days := make(map[generic.Day]bool)
	for _, t := range totals {
		byCat[t.Category] = append(byCat[t.Category], t)
		days[t.Date] = true
	}

	var sum billing.Totals
	actual := generic.ZeroHours
	for _, cat := range generic.Categories {
		list, ok := byCat[cat]
		if !ok {
			continue
		}
		t := billing.Sum(list)
		var tasks []string
		pattern := make([]CategoryDayPattern, 0, len(list))
		for _, dt := range list {
			tasks = append(tasks, dt.Tasks...)
			pattern = append(pattern, CategoryDayPattern{Date: dt.Date, Outcome: dt.Outcome})
			actual = actual.Add(dt.Actual)
		}
		unique := uniqueTasks(tasks, 0)
		samples := unique
		if len(samples) > breakdownSampleTasks {
			samples = samples[:breakdownSampleTasks]
		}
		out.Categories = append(out.Categories, EmployeeCategory{
			Category:       cat,
			Totals:         roundTotals(t),
			TotalDays:      len(list),
			AvgHoursPerDay: perDay(t.Actual, len(list)),
			TaskCount:      len(unique),
			SampleTasks:    samples,
			DailyPattern:   pattern,
			Cap:            d.capOf(project, cat),
		})
		sum = addTotals(sum, t)
	}
	for i := range out.Categories {
		out.Categories[i].Percentage = generic.PercentOf(out.Categories[i].Actual, actual)
	}
	sort.SliceStable(out.Categories, func(i, j int) bool {
		return out.Categories[i].Actual.GreaterThan(out.Categories[j].Actual)
	})

	out.Totals = roundTotals(sum)
	out.TotalDays = len(days)
	out.PrimaryCategory = out.Categories[0].Category
	out.CategoryDiversity = len(out.Categories)
	return out, nil
}
