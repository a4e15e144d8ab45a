package aggregate

import (
	"sort"

	"github.com/warp/report-engine/billing"
	"github.com/warp/report-engine/generic"
)

// =============================================================================
// COMPLIANCE - Cap violations grouped for review
// =============================================================================

const sampleViolations = 3

// EmployeeViolations groups one employee's violations.
type EmployeeViolations struct {
	Name            string              `json:"employee_name"`
	Email           string              `json:"employee_email"`
	ViolationCount  int                 `json:"violation_count"`
	TotalExtraHours generic.Hours       `json:"total_extra_hours"`
	Samples         []billing.Violation `json:"sample_violations"`
}

// DayCompliance counts the violations of one day.
type DayCompliance struct {
	ViolationCount  int           `json:"violation_count"`
	TotalExtraHours generic.Hours `json:"total_extra_hours"`
}

// ComplianceSummary totals a compliance report.
type ComplianceSummary struct {
	TotalViolations         int                `json:"total_violations"`
	EmployeesWithViolations int                `json:"employees_with_violations"`
	TotalExtraHours         generic.Hours      `json:"total_extra_hours"`
	AffectedCategories      []generic.Category `json:"affected_categories"`
	MostViolatingDay        *generic.Day       `json:"most_violating_day"`
}

// ComplianceReport lists every cap violation of a project.
type ComplianceReport struct {
	Project    string                        `json:"project"`
	Status     string                        `json:"status"`
	Period     billing.AnalysisPeriod        `json:"analysis_period"`
	Violations []billing.Violation           `json:"violations"`
	ByEmployee []EmployeeViolations          `json:"employee_violations"`
	ByDay      map[generic.Day]DayCompliance `json:"daily_compliance"`
	Summary    ComplianceSummary             `json:"summary"`
}

// ComplianceViolations returns every (employee, day, category) of project
// inside r whose summed hours exceeded the category cap.
func (d *Dataset) ComplianceViolations(project string, r generic.DateRange) []billing.Violation {
	return billing.Violations(billing.Select(d.Daily, billing.Filter{Project: project, Range: r}))
}

// ComplianceReport groups the violations of project inside r per employee
// and per day. Employees are ordered by violation count, ties in email
// order. The most violating day is the earliest day with the highest count.
func (d *Dataset) ComplianceReport(project string, r generic.DateRange) ComplianceReport {
	totals := billing.Select(d.Daily, billing.Filter{Project: project, Range: r})
	violations := billing.Violations(totals)

	out := ComplianceReport{
		Project:    project,
		Status:     billing.StatusAnalyzed,
		Period:     period(r, totals),
		Violations: violations,
		ByEmployee: []EmployeeViolations{},
		ByDay:      map[generic.Day]DayCompliance{},
		Summary: ComplianceSummary{
			TotalExtraHours:    generic.ZeroHours,
			AffectedCategories: []generic.Category{},
		},
	}
	if len(totals) == 0 {
		out.Status = billing.StatusNoData
		return out
	}

	byEmp := make(map[string]*EmployeeViolations)
	var emails []string
	var days []generic.Day
	cats := make(map[generic.Category]bool)

	for _, v := range violations {
		ev, ok := byEmp[v.Employee]
		if !ok {
			ev = &EmployeeViolations{
				Name:            d.Directory.NameOf(v.Employee),
				Email:           v.Employee,
				TotalExtraHours: generic.ZeroHours,
				Samples:         []billing.Violation{},
			}
			byEmp[v.Employee] = ev
			emails = append(emails, v.Employee)
		}
		ev.ViolationCount++
		ev.TotalExtraHours = ev.TotalExtraHours.Add(v.Extra)
		if len(ev.Samples) < sampleViolations {
			ev.Samples = append(ev.Samples, v)
		}

		dc, seen := out.ByDay[v.Date]
		if !seen {
			dc.TotalExtraHours = generic.ZeroHours
			days = append(days, v.Date)
		}
		dc.ViolationCount++
		dc.TotalExtraHours = dc.TotalExtraHours.Add(v.Extra)
		out.ByDay[v.Date] = dc

		cats[v.Category] = true
		out.Summary.TotalExtraHours = out.Summary.TotalExtraHours.Add(v.Extra)
	}

	sort.Strings(emails)
	for _, e := range emails {
		out.ByEmployee = append(out.ByEmployee, *byEmp[e])
	}
	sort.SliceStable(out.ByEmployee, func(i, j int) bool {
		return out.ByEmployee[i].ViolationCount > out.ByEmployee[j].ViolationCount
	})

	for _, c := range generic.Categories {
		if cats[c] {
			out.Summary.AffectedCategories = append(out.Summary.AffectedCategories, c)
		}
	}

	for _, day := range days {
		if out.Summary.MostViolatingDay == nil || out.ByDay[day].ViolationCount > out.ByDay[*out.Summary.MostViolatingDay].ViolationCount {
			dd := day
			out.Summary.MostViolatingDay = &dd
		}
	}

	out.Summary.TotalViolations = len(violations)
	out.Summary.EmployeesWithViolations = len(emails)
	out.Summary.TotalExtraHours = out.Summary.TotalExtraHours.Round2()
	return out
}
