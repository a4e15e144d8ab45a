package aggregate

import (
	"regexp"
	"sort"

	"github.com/warp/report-engine/generic"
	"github.com/warp/report-engine/submission"
)

// =============================================================================
// EMPLOYEE METRICS - Discipline plus productivity for one person
// =============================================================================

const (
	// UnderutilizedHours flags a report below a full day.
	UnderutilizedHours = 8
	// OverloadedHours flags a report above a long day.
	OverloadedHours = 10
)

// ProjectShare is one project's part of an employee's hours.
type ProjectShare struct {
	Hours      generic.Hours `json:"hours"`
	Percentage float64       `json:"percentage"`
	Days       int           `json:"days"`
}

// TagCount counts one bracket tag such as "[ETL]".
type TagCount struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// EmployeeMetrics is the detailed profile of one employee.
type EmployeeMetrics struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	submission.Metrics

	AvgDailyHours     float64 `json:"avg_daily_hours"`
	AvgTasksPerDay    float64 `json:"avg_tasks_per_day"`
	CompletionRatio   float64 `json:"completion_ratio"`
	TaskDiversity     float64 `json:"task_diversity"`
	Recent7Days       int     `json:"recent_7_days_submissions"`
	Recent30Days      int     `json:"recent_30_days_submissions"`
	UnderutilizedDays int     `json:"underutilized_days"`
	OverloadedDays    int     `json:"overloaded_days"`
	TotalReports      int     `json:"total_reports"`

	DateRange           generic.Period          `json:"date_range"`
	ProjectDistribution map[string]ProjectShare `json:"project_distribution"`
	TaskCategories      map[string]TagCount     `json:"task_categories"`
	PrimaryProject      string                  `json:"primary_project,omitempty"`
	TotalHours          generic.Hours           `json:"total_hours"`
}

var tagPattern = regexp.MustCompile(`\[([^\]]+)\]`)

// EmployeeMetrics returns the profile of the employee owning any alias.
// ok is false when no roster row claims the address; a known employee
// with no reports gets a zero-activity profile.
func (d *Dataset) EmployeeMetrics(email string) (*EmployeeMetrics, bool) {
	emp, ok := d.Directory.Employee(email)
	if !ok {
		return nil, false
	}
	primary := emp.PrimaryEmail
	reports := d.reportsOf(primary)

	m := &EmployeeMetrics{
		Name:                emp.Name,
		Email:               primary,
		Metrics:             d.Submission(primary),
		TotalReports:        len(reports),
		DateRange:           d.Period(),
		ProjectDistribution: map[string]ProjectShare{},
		TaskCategories:      map[string]TagCount{},
		TotalHours:          hoursTotal(reports).Round2(),
	}
	if len(reports) == 0 {
		return m, true
	}

	total := hoursTotal(reports)
	tasks := taskTotal(reports)
	days := distinctDays(reports)

	m.AvgDailyHours = total.DivInt(len(reports)).Round2().Float()
	m.AvgTasksPerDay = countPerDay(tasks, days)
	m.CompletionRatio = countPerDay(tasks, len(reports))

	texts := make(map[string]bool)
	for _, r := range reports {
		texts[r.Tasks] = true
	}
	m.TaskDiversity = countPerDay(len(texts), len(reports))

	m.Recent7Days = d.recentDays(reports, 7)
	m.Recent30Days = d.recentDays(reports, 30)

	under := generic.NewHours(UnderutilizedHours)
	over := generic.NewHours(OverloadedHours)
	for _, r := range reports {
		if r.Hours.LessThan(under) {
			m.UnderutilizedDays++
		}
		if r.Hours.GreaterThan(over) {
			m.OverloadedDays++
		}
	}

	m.ProjectDistribution = projectDistribution(reports, total)
	m.PrimaryProject = primaryProject(m.ProjectDistribution)
	m.TaskCategories = tagCounts(reports)
	return m, true
}

// CompareMetrics returns the profiles of several employees, skipping
// unknown addresses.
func (d *Dataset) CompareMetrics(emails []string) []EmployeeMetrics {
	out := []EmployeeMetrics{}
	for _, e := range emails {
		if m, ok := d.EmployeeMetrics(e); ok {
			out = append(out, *m)
		}
	}
	return out
}

// recentDays counts distinct report dates within the last window days,
// today included.
func (d *Dataset) recentDays(reports []generic.Report, window int) int {
	since := generic.DayOf(d.Now).AddDays(-(window - 1))
	seen := make(map[generic.Day]bool)
	for _, r := range reports {
		if r.Date.AfterOrEqual(since) {
			seen[r.Date] = true
		}
	}
	return len(seen)
}

func projectDistribution(reports []generic.Report, total generic.Hours) map[string]ProjectShare {
	hours := make(map[string]generic.Hours)
	days := make(map[string]map[generic.Day]bool)
	for _, r := range reports {
		if r.Project == "" {
			continue
		}
		if days[r.Project] == nil {
			days[r.Project] = make(map[generic.Day]bool)
			hours[r.Project] = generic.ZeroHours
		}
		hours[r.Project] = hours[r.Project].Add(r.Hours)
		days[r.Project][r.Date] = true
	}

	out := make(map[string]ProjectShare, len(hours))
	for p, h := range hours {
		out[p] = ProjectShare{
			Hours:      h.Round2(),
			Percentage: generic.PercentOf(h, total),
			Days:       len(days[p]),
		}
	}
	return out
}

// primaryProject is the project with the most hours; ties go to the
// alphabetically first name.
func primaryProject(dist map[string]ProjectShare) string {
	names := make([]string, 0, len(dist))
	for p := range dist {
		names = append(names, p)
	}
	sort.Strings(names)

	best := ""
	for _, p := range names {
		if best == "" || dist[p].Hours.GreaterThan(dist[best].Hours) {
			best = p
		}
	}
	return best
}

func tagCounts(reports []generic.Report) map[string]TagCount {
	counts := make(map[string]int)
	total := 0
	for _, r := range reports {
		for _, m := range tagPattern.FindAllStringSubmatch(r.Tasks, -1) {
			counts[m[1]]++
			total++
		}
	}
	out := make(map[string]TagCount, len(counts))
	for tag, n := range counts {
		out[tag] = TagCount{Count: n, Percentage: generic.PercentCount(n, total)}
	}
	return out
}
