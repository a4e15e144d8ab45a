package analytics

import (
	"fmt"
	"time"

	"github.com/warp/report-engine/aggregate"
	"github.com/warp/report-engine/billing"
	"github.com/warp/report-engine/generic"
)

// =============================================================================
// QUERIES
// =============================================================================
//
// Each query loads the published snapshot once. Project names go through
// the rule book's normaliser, so "LYELL - Phase 2" and "lyell" are the same
// project. Date ranges with the end before the start are rejected with
// ErrInvalidDateRange.

func (e *Engine) project(name string) string {
	return e.rules.NormalizeProject(name)
}

// GetEmployeeMetrics returns the profile of the employee owning any alias
// of email, or ErrEmployeeNotFound.
func (e *Engine) GetEmployeeMetrics(email string) (*aggregate.EmployeeMetrics, error) {
	m, ok := e.Snapshot().EmployeeMetrics(email)
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrEmployeeNotFound, email)
	}
	return m, nil
}

// GetAllEmployeeMetrics returns every roster employee's profile.
func (e *Engine) GetAllEmployeeMetrics() []aggregate.EmployeeMetrics {
	return e.Snapshot().AllEmployeeMetrics()
}

// CompareEmployeeMetrics returns the profiles of the known emails.
func (e *Engine) CompareEmployeeMetrics(emails []string) []aggregate.EmployeeMetrics {
	return e.Snapshot().CompareMetrics(emails)
}

// GetTeamMetrics returns the team overview; ok is false with no employees.
func (e *Engine) GetTeamMetrics() (*aggregate.TeamMetrics, bool) {
	return e.Snapshot().TeamMetrics()
}

// GetHighPerformers returns employees above threshold tasks per day.
func (e *Engine) GetHighPerformers(threshold float64) []aggregate.EmployeeMetrics {
	return e.Snapshot().HighPerformerList(threshold)
}

// ListEmployees returns the roster in order.
func (e *Engine) ListEmployees() []generic.Employee {
	return e.Snapshot().Directory.Employees()
}

// FindEmployee finds an employee by partial name.
func (e *Engine) FindEmployee(name string) (generic.Employee, error) {
	emp, ok := e.Snapshot().Directory.FindByName(name)
	if !ok {
		return generic.Employee{}, fmt.Errorf("%w: %q", generic.ErrEmployeeNotFound, name)
	}
	return emp, nil
}

// GetBillingSummary returns the capped billing breakdown of a project.
func (e *Engine) GetBillingSummary(project string, r generic.DateRange) (billing.Summary, error) {
	if err := r.Validate(); err != nil {
		return billing.Summary{}, err
	}
	return e.Snapshot().BillingSummary(e.project(project), r), nil
}

// GetDailyBilling returns the billing of a project on one date.
func (e *Engine) GetDailyBilling(project string, day generic.Day) billing.DailyReport {
	return e.Snapshot().DailyBilling(e.project(project), day)
}

// GetAllProjects summarises every project seen.
func (e *Engine) GetAllProjects() []billing.ProjectOverview {
	return e.Snapshot().AllProjects()
}

// GetComplianceViolations returns every capped category-day with extra hours.
func (e *Engine) GetComplianceViolations(project string, r generic.DateRange) ([]billing.Violation, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return e.Snapshot().ComplianceViolations(e.project(project), r), nil
}

// GetComplianceReport groups violations per employee and per day.
func (e *Engine) GetComplianceReport(project string, r generic.DateRange) (aggregate.ComplianceReport, error) {
	if err := r.Validate(); err != nil {
		return aggregate.ComplianceReport{}, err
	}
	return e.Snapshot().ComplianceReport(e.project(project), r), nil
}

// GetTopContributors returns the n employees with the most project hours.
func (e *Engine) GetTopContributors(project string, n int, r generic.DateRange) (aggregate.TopContributors, error) {
	if err := r.Validate(); err != nil {
		return aggregate.TopContributors{}, err
	}
	return e.Snapshot().TopContributors(e.project(project), n, r), nil
}

// GetProjectPerformance returns every employee's work on a project.
func (e *Engine) GetProjectPerformance(project string, r generic.DateRange) ([]aggregate.EmployeePerformance, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return e.Snapshot().ProjectPerformance(e.project(project), r), nil
}

// GetCategoryPerformance reports one category of a project. An unknown
// category name is ErrUnknownCategory.
func (e *Engine) GetCategoryPerformance(project, category string, r generic.DateRange) (aggregate.CategoryPerformance, error) {
	cat, err := generic.ParseCategory(category)
	if err != nil {
		return aggregate.CategoryPerformance{}, err
	}
	if err := r.Validate(); err != nil {
		return aggregate.CategoryPerformance{}, err
	}
	return e.Snapshot().CategoryPerformance(e.project(project), cat, r), nil
}

// GetEmployeeCategoryBreakdown splits one employee's project work by category.
func (e *Engine) GetEmployeeCategoryBreakdown(project, name string, r generic.DateRange) (*aggregate.EmployeeCategoryBreakdown, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return e.Snapshot().EmployeeCategoryBreakdown(e.project(project), name, r)
}

// GetOvertime reports employee-days above threshold hours. A non-positive
// threshold uses the default.
func (e *Engine) GetOvertime(project string, threshold float64, r generic.DateRange) (aggregate.OvertimeReport, error) {
	if err := r.Validate(); err != nil {
		return aggregate.OvertimeReport{}, err
	}
	if threshold <= 0 {
		threshold = aggregate.DefaultOvertimeThreshold
	}
	return e.Snapshot().Overtime(e.project(project), generic.NewHours(threshold), r), nil
}

// GetMultiProject lists employees spread over several projects.
func (e *Engine) GetMultiProject(focus string, r generic.DateRange) (aggregate.MultiProjectReport, error) {
	if err := r.Validate(); err != nil {
		return aggregate.MultiProjectReport{}, err
	}
	return e.Snapshot().MultiProject(e.project(focus), r), nil
}

// CompareEmployees compares two employees, by partial name, on a project.
func (e *Engine) CompareEmployees(project, name1, name2 string, r generic.DateRange) (*aggregate.Comparison, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return e.Snapshot().Compare(e.project(project), name1, name2, r)
}

// GetMonthly reports a project over one calendar month.
func (e *Engine) GetMonthly(project string, year, month int) (aggregate.MonthlyReport, error) {
	if month < 1 || month > 12 {
		return aggregate.MonthlyReport{}, fmt.Errorf("%w: month %d", generic.ErrInvalidDateRange, month)
	}
	return e.Snapshot().Monthly(e.project(project), year, time.Month(month)), nil
}

// GetProjectDay reports the work on a project on one date.
func (e *Engine) GetProjectDay(project string, day generic.Day) aggregate.ProjectDay {
	return e.Snapshot().ProjectDay(e.project(project), day)
}
