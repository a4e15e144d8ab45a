package aggregate

import (
	"fmt"
	"sort"

	"github.com/warp/report-engine/billing"
	"github.com/warp/report-engine/generic"
)

// =============================================================================
// OVERTIME - Long days, independent of SOW caps
// =============================================================================

// DefaultOvertimeThreshold is the daily hours above which a day is overtime.
const DefaultOvertimeThreshold = 8

const (
	overtimeSampleTasks     = 3
	overtimeSampleInstances = 2
)

// OvertimeInstance is one employee-day above the threshold.
type OvertimeInstance struct {
	Date          generic.Day   `json:"date"`
	DayOfWeek     string        `json:"day_of_week"`
	Name          string        `json:"employee_name"`
	Email         string        `json:"employee_email"`
	TotalHours    generic.Hours `json:"total_hours"`
	Threshold     generic.Hours `json:"threshold"`
	OvertimeHours generic.Hours `json:"overtime_hours"`
	Tasks         []string      `json:"tasks"`
}

// EmployeeOvertime groups one employee's overtime days.
type EmployeeOvertime struct {
	Name           string             `json:"employee_name"`
	Email          string             `json:"employee_email"`
	InstanceCount  int                `json:"instance_count"`
	OvertimeHours  generic.Hours      `json:"total_overtime_hours"`
	AvgPerInstance float64            `json:"avg_overtime_per_instance"`
	Samples        []OvertimeInstance `json:"sample_instances"`
}

// OvertimeSummary totals an overtime report.
type OvertimeSummary struct {
	TotalInstances        int           `json:"total_instances"`
	EmployeesWithOvertime int           `json:"employees_with_overtime"`
	TotalOvertimeHours    generic.Hours `json:"total_overtime_hours"`
	AvgPerInstance        float64       `json:"avg_overtime_per_instance"`
	MostOvertimeEmployee  string        `json:"most_overtime_employee,omitempty"`
}

// OvertimeReport lists employee-days of a project above a threshold.
type OvertimeReport struct {
	Project    string                 `json:"project"`
	Status     string                 `json:"status"`
	Threshold  generic.Hours          `json:"hour_threshold"`
	Period     billing.AnalysisPeriod `json:"analysis_period"`
	Instances  []OvertimeInstance     `json:"overtime_instances"`
	ByEmployee []EmployeeOvertime     `json:"employee_overtime"`
	Summary    OvertimeSummary        `json:"summary"`
	Note       string                 `json:"note"`
}

// Overtime reports employee-days of project inside r whose summed report
// hours exceed threshold. This is separate from SOW extra hours.
func (d *Dataset) Overtime(project string, threshold generic.Hours, r generic.DateRange) OvertimeReport {
	reports := d.reportsIn(project, r)
	out := OvertimeReport{
		Project:    project,
		Status:     billing.StatusAnalyzed,
		Threshold:  threshold,
		Period:     period(r, billing.Select(d.Daily, billing.Filter{Project: project, Range: r})),
		Instances:  []OvertimeInstance{},
		ByEmployee: []EmployeeOvertime{},
		Summary:    OvertimeSummary{TotalOvertimeHours: generic.ZeroHours},
		Note:       fmt.Sprintf("Overtime is more than %sh in a day, separate from SOW extra hours", threshold),
	}
	if len(reports) == 0 {
		out.Status = billing.StatusNoData
		return out
	}

	type dayKey struct {
		date  generic.Day
		email string
	}
	sums := make(map[dayKey]generic.Hours)
	tasks := make(map[dayKey][]string)
	var keys []dayKey
	for _, rep := range reports {
		k := dayKey{rep.Date, rep.Employee}
		if _, ok := sums[k]; !ok {
			keys = append(keys, k)
			sums[k] = generic.ZeroHours
		}
		sums[k] = sums[k].Add(rep.Hours)
		tasks[k] = append(tasks[k], rep.Tasks)
	}
	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].date.Equal(keys[j].date) {
			return keys[i].date.Before(keys[j].date)
		}
		return keys[i].email < keys[j].email
	})

	byEmp := make(map[string]*EmployeeOvertime)
	var emails []string
	for _, k := range keys {
		total := sums[k]
		if !total.GreaterThan(threshold) {
			continue
		}
		inst := OvertimeInstance{
			Date:          k.date,
			DayOfWeek:     k.date.WeekdayName(),
			Name:          d.Directory.NameOf(k.email),
			Email:         k.email,
			TotalHours:    total.Round2(),
			Threshold:     threshold,
			OvertimeHours: total.Sub(threshold).Round2(),
			Tasks:         uniqueTasks(tasks[k], overtimeSampleTasks),
		}
		out.Instances = append(out.Instances, inst)
		out.Summary.TotalOvertimeHours = out.Summary.TotalOvertimeHours.Add(inst.OvertimeHours)

		eo, ok := byEmp[k.email]
		if !ok {
			eo = &EmployeeOvertime{Name: inst.Name, Email: k.email, OvertimeHours: generic.ZeroHours, Samples: []OvertimeInstance{}}
			byEmp[k.email] = eo
			emails = append(emails, k.email)
		}
		eo.InstanceCount++
		eo.OvertimeHours = eo.OvertimeHours.Add(inst.OvertimeHours)
		if len(eo.Samples) < overtimeSampleInstances {
			eo.Samples = append(eo.Samples, inst)
		}
	}

	sort.Strings(emails)
	for _, e := range emails {
		eo := byEmp[e]
		eo.AvgPerInstance = perDay(eo.OvertimeHours, eo.InstanceCount)
		out.ByEmployee = append(out.ByEmployee, *eo)
	}
	sort.SliceStable(out.ByEmployee, func(i, j int) bool {
		return out.ByEmployee[i].InstanceCount > out.ByEmployee[j].InstanceCount
	})

	out.Summary.TotalInstances = len(out.Instances)
	out.Summary.EmployeesWithOvertime = len(out.ByEmployee)
	out.Summary.AvgPerInstance = perDay(out.Summary.TotalOvertimeHours, len(out.Instances))
	if len(out.ByEmployee) > 0 {
		out.Summary.MostOvertimeEmployee = out.ByEmployee[0].Name
	}
	return out
}
