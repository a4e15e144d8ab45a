package aggregate

import (
	"sort"

	"github.com/warp/report-engine/generic"
	"github.com/warp/report-engine/submission"
)

// =============================================================================
// TEAM METRICS
// =============================================================================

const (
	// RankingSize is the length of the top and bottom performer lists.
	RankingSize = 5
	// HighPerformerTasks is the average tasks/day a high performer exceeds.
	HighPerformerTasks = 3
	// GapThreshold is the max gap at which an employee counts as having gaps.
	GapThreshold = 2
)

// Performer is one ranked employee.
type Performer struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	SubmissionRate float64 `json:"submission_rate"`
	AvgTasksPerDay float64 `json:"avg_tasks_per_day"`
	MaxGap         int     `json:"max_gap"`
}

// TeamMetrics is the team-wide overview.
type TeamMetrics struct {
	TotalEmployees   int                       `json:"total_employees"`
	TotalWorkingDays int                       `json:"total_working_days"`
	DateRange        generic.Period            `json:"date_range"`
	StatusBreakdown  map[submission.Status]int `json:"status_breakdown"`

	ConsistentReporters int `json:"consistent_reporters"`
	PartialReporters    int `json:"partial_reporters"`
	FrequentDefaulters  int `json:"frequent_defaulters"`
	HighPerformers      int `json:"high_performers"`
	EmployeesWithGaps   int `json:"employees_with_gaps"`

	AvgSubmissionRate       float64 `json:"avg_submission_rate"`
	AvgDailyHours           float64 `json:"avg_daily_hours"`
	AvgTasksPerDay          float64 `json:"avg_tasks_per_day"`
	UnderutilizedPercentage float64 `json:"underutilized_percentage"`
	OverloadedPercentage    float64 `json:"overloaded_percentage"`

	TopPerformers    []Performer `json:"top_performers"`
	BottomPerformers []Performer `json:"bottom_performers"`
}

// AllEmployeeMetrics returns the profile of every roster employee, in
// roster order.
func (d *Dataset) AllEmployeeMetrics() []EmployeeMetrics {
	out := make([]EmployeeMetrics, 0, d.Directory.Len())
	for _, e := range d.Directory.Employees() {
		if m, ok := d.EmployeeMetrics(e.PrimaryEmail); ok {
			out = append(out, *m)
		}
	}
	return out
}

// TeamMetrics returns the team overview. ok is false when there are no
// employees.
//
// Averages are means of the per-employee rounded values. Rankings are by
// submission rate with ties in roster order.
func (d *Dataset) TeamMetrics() (*TeamMetrics, bool) {
	all := d.AllEmployeeMetrics()
	if len(all) == 0 {
		return nil, false
	}

	t := &TeamMetrics{
		TotalEmployees:   len(all),
		TotalWorkingDays: d.WorkingDays.Len(),
		DateRange:        d.Period(),
		StatusBreakdown:  make(map[submission.Status]int),
	}

	var rateSum, hoursSum, tasksSum float64
	var under, over, reports int
	for _, m := range all {
		t.StatusBreakdown[m.Status]++
		switch {
		case m.Status.Consistent():
			t.ConsistentReporters++
		case m.Status.Partial():
			t.PartialReporters++
		case m.Status.Defaulter():
			t.FrequentDefaulters++
		}
		if m.AvgTasksPerDay > HighPerformerTasks {
			t.HighPerformers++
		}
		if m.MaxGap >= GapThreshold {
			t.EmployeesWithGaps++
		}
		rateSum += m.SubmissionRate
		hoursSum += m.AvgDailyHours
		tasksSum += m.AvgTasksPerDay
		under += m.UnderutilizedDays
		over += m.OverloadedDays
		reports += m.TotalReports
	}

	n := float64(len(all))
	t.AvgSubmissionRate = generic.Round1(rateSum / n)
	t.AvgDailyHours = generic.Round2(hoursSum / n)
	t.AvgTasksPerDay = generic.Round2(tasksSum / n)
	t.UnderutilizedPercentage = generic.PercentCount(under, reports)
	t.OverloadedPercentage = generic.PercentCount(over, reports)

	t.TopPerformers = rank(all, func(a, b EmployeeMetrics) bool { return a.SubmissionRate > b.SubmissionRate })
	t.BottomPerformers = rank(all, func(a, b EmployeeMetrics) bool { return a.SubmissionRate < b.SubmissionRate })
	return t, true
}

// HighPerformerList returns employees averaging more than threshold tasks
// per day, most tasks first.
func (d *Dataset) HighPerformerList(threshold float64) []EmployeeMetrics {
	out := []EmployeeMetrics{}
	for _, m := range d.AllEmployeeMetrics() {
		if m.AvgTasksPerDay > threshold {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AvgTasksPerDay > out[j].AvgTasksPerDay })
	return out
}

func rank(all []EmployeeMetrics, less func(a, b EmployeeMetrics) bool) []Performer {
	sorted := append([]EmployeeMetrics(nil), all...)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	if len(sorted) > RankingSize {
		sorted = sorted[:RankingSize]
	}
	out := make([]Performer, len(sorted))
	for i, m := range sorted {
		out[i] = Performer{
			Name:           m.Name,
			Email:          m.Email,
			SubmissionRate: m.SubmissionRate,
			AvgTasksPerDay: m.AvgTasksPerDay,
			MaxGap:         m.MaxGap,
		}
	}
	return out
}
