package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/report-engine/billing"
	"github.com/warp/report-engine/generic"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

func h(v float64) generic.Hours { return generic.NewHours(v) }

func day(n int) generic.Day { return generic.NewDay(2024, time.March, n) }

func entry(emp string, d generic.Day, project string, cat generic.Category, hours float64) generic.WorkEntry {
	return generic.WorkEntry{
		Email:    emp,
		Employee: emp,
		Date:     d,
		Project:  project,
		Category: cat,
		Hours:    h(hours),
		Text:     string(cat) + " work",
	}
}

// =============================================================================
// CAP FUNCTION
// =============================================================================

func TestCompute_LyellCapExamples(t *testing.T) {
	rb := billing.DefaultRuleBook()

	tests := []struct {
		actual   float64
		project  string
		category generic.Category
		billable string
		extra    string
	}{
		{6.0, "lyell", generic.CategoryETL, "4", "2"},
		{3.0, "lyell", generic.CategoryETL, "3", "0"},
		{10.0, "lyell", generic.CategoryDevelopment, "10", "0"},
		{10.0, "dataplatr", generic.CategoryETL, "10", "0"},
		{5.5, "lyell", generic.CategoryReporting, "4", "1.5"},
		{9.0, "acme", generic.CategoryReporting, "9", "0"},
	}
	for _, tt := range tests {
		got := rb.Compute(h(tt.actual), tt.project, tt.category)
		assert.Equal(t, tt.billable, got.Billable.String(), "%v %s %s", tt.actual, tt.project, tt.category)
		assert.Equal(t, tt.extra, got.Extra.String(), "%v %s %s", tt.actual, tt.project, tt.category)
	}
}

func TestCompute_HourCapInvariant(t *testing.T) {
	// GIVEN: A sweep of awkward quantities across every project/category pair
	rb := billing.DefaultRuleBook()
	quantities := []string{"0", "0.004", "0.005", "1.333", "3.995", "3.999", "4", "4.001", "4.005", "7.777", "12.5", "24"}

	for _, q := range quantities {
		for _, project := range []string{"lyell", "dataplatr", "other"} {
			for _, cat := range generic.Categories {
				actual := generic.MustParseHours(q)

				// WHEN: Computing the billing split
				o := rb.Compute(actual, project, cat)

				// THEN: billable + extra == round(actual, 2), both non-negative
				assert.True(t, o.Billable.Add(o.Extra).Equal(actual.Round2()),
					"%s %s %s: %s + %s != %s", q, project, cat, o.Billable, o.Extra, actual.Round2())
				assert.False(t, o.Billable.IsNegative())
				assert.False(t, o.Extra.IsNegative())
				assert.False(t, o.Billable.GreaterThan(actual.Round2()))
			}
		}
	}
}

func TestCompute_NegativeActualClampsToZero(t *testing.T) {
	o := billing.DefaultRuleBook().Compute(h(-2), "lyell", generic.CategoryETL)
	assert.True(t, o.Billable.IsZero())
	assert.True(t, o.Extra.IsZero())
}

func TestNewRuleBook_Validation(t *testing.T) {
	_, err := billing.NewRuleBook(billing.ProjectRules{Name: ""})
	assert.Error(t, err)

	_, err = billing.NewRuleBook(billing.ProjectRules{Name: "a"}, billing.ProjectRules{Name: "A"})
	assert.Error(t, err)

	_, err = billing.NewRuleBook(billing.ProjectRules{
		Name: "a",
		Caps: map[generic.Category]generic.Hours{"cooking": h(1)},
	})
	assert.ErrorIs(t, err, generic.ErrUnknownCategory)
}

func TestRuleBook_NormalizeAndDescribe(t *testing.T) {
	rb := billing.DefaultRuleBook()

	assert.Equal(t, "lyell", rb.NormalizeProject("Lyell Immuno"))
	assert.Equal(t, "dataplatr", rb.NormalizeProject("DataPltr"))
	assert.Equal(t, "misc", rb.NormalizeProject(" Misc "))

	assert.Equal(t, "Max 4 hours/day (SOW Cap)", rb.Describe("lyell")["etl"])
	assert.Equal(t, "No cap (bill all hours)", rb.Describe("lyell")["testing"])
	assert.Contains(t, rb.Describe("dataplatr"), "all_categories")
	assert.Equal(t, billing.ProjectTypeCapped, rb.ProjectType("lyell"))
	assert.Equal(t, billing.ProjectTypeNoCaps, rb.ProjectType("dataplatr"))
	assert.Equal(t, []string{"dataplatr", "lyell"}, rb.Projects())
}

// =============================================================================
// DAILY GROUPING
// =============================================================================

func TestGroupDaily_SumsBeforeCapping(t *testing.T) {
	// GIVEN: Two 3h ETL rows for the same employee on the same day
	entries := []generic.WorkEntry{
		entry("a@x.com", day(4), "lyell", generic.CategoryETL, 3),
		entry("a@x.com", day(4), "lyell", generic.CategoryETL, 3),
	}

	// WHEN: Grouping
	totals := billing.GroupDaily(entries, billing.DefaultRuleBook())

	// THEN: One 6h total, 2h extra (per-row capping would report 0 extra)
	require.Len(t, totals, 1)
	assert.Equal(t, "6", totals[0].Actual.String())
	assert.Equal(t, "4", totals[0].Outcome.Billable.String())
	assert.Equal(t, "2", totals[0].Outcome.Extra.String())
	assert.Equal(t, 2, totals[0].Entries)
}

func TestGroupDaily_CapsArePerEmployee(t *testing.T) {
	// GIVEN: Two employees each logging 3h ETL on the same day
	entries := []generic.WorkEntry{
		entry("a@x.com", day(4), "lyell", generic.CategoryETL, 3),
		entry("b@x.com", day(4), "lyell", generic.CategoryETL, 3),
	}

	totals := billing.GroupDaily(entries, billing.DefaultRuleBook())

	// THEN: Neither exceeds their own cap
	require.Len(t, totals, 2)
	assert.Empty(t, billing.Violations(totals))
}

func TestGroupDaily_SkipsZeroHourEntriesAndOrders(t *testing.T) {
	entries := []generic.WorkEntry{
		entry("b@x.com", day(5), "lyell", generic.CategoryOther, 1),
		entry("a@x.com", day(5), "lyell", generic.CategoryTesting, 2),
		entry("a@x.com", day(5), "lyell", generic.CategoryETL, 1),
		entry("a@x.com", day(4), "lyell", generic.CategoryETL, 0),
		entry("c@x.com", day(3), "lyell", generic.CategoryETL, 1),
	}

	totals := billing.GroupDaily(entries, billing.DefaultRuleBook())

	require.Len(t, totals, 4)
	assert.Equal(t, "c@x.com", totals[0].Employee)
	assert.Equal(t, generic.CategoryETL, totals[1].Category)
	assert.Equal(t, generic.CategoryTesting, totals[2].Category)
	assert.Equal(t, "b@x.com", totals[3].Employee)
}

// =============================================================================
// SUMMARY
// =============================================================================

func lyellWeek() []billing.DailyCategoryTotal {
	var entries []generic.WorkEntry
	for d := 4; d <= 8; d++ {
		entries = append(entries, entry("a@x.com", day(d), "lyell", generic.CategoryETL, 5))
	}
	entries = append(entries,
		entry("b@x.com", day(4), "lyell", generic.CategoryDevelopment, 8),
		entry("c@x.com", day(6), "dataplatr", generic.CategoryETL, 9),
	)
	return billing.GroupDaily(entries, billing.DefaultRuleBook())
}

func TestBuildSummary_LyellWeek(t *testing.T) {
	s := billing.BuildSummary(lyellWeek(), billing.DefaultRuleBook(), "lyell", generic.AllTime)

	assert.Equal(t, billing.StatusAnalyzed, s.Status)
	assert.Equal(t, billing.ProjectTypeCapped, s.ProjectType)
	assert.Equal(t, 5, s.TotalDays)
	assert.Equal(t, "2024-03-04", s.Period.Start.String())
	assert.Equal(t, "2024-03-08", s.Period.End.String())

	// 25h etl (20 billable, 5 extra) + 8h development
	assert.Equal(t, "33", s.Totals.Actual.String())
	assert.Equal(t, "28", s.Totals.Billable.String())
	assert.Equal(t, "5", s.Totals.Extra.String())
	assert.Equal(t, 5, s.Totals.DaysWithExtra)

	require.Len(t, s.Categories, 2)
	assert.Equal(t, generic.CategoryETL, s.Categories[0].Category)
	assert.Equal(t, 5, s.Categories[0].DaysWorked)

	require.Len(t, s.Violations, 5)
	assert.Equal(t, "2024-03-08", s.Violations[0].Date.String(), "most recent first")
	assert.Equal(t, []string{"a@x.com"}, s.Violations[0].Employees)

	first := s.Days[0]
	assert.Equal(t, "5", first.Categories[generic.CategoryETL].Actual.String())
	assert.Equal(t, "1", first.Categories[generic.CategoryETL].Extra.String())
	assert.Equal(t, "8", first.Categories[generic.CategoryDevelopment].Billable.String())
	assert.Nil(t, first.Categories[generic.CategoryDevelopment].Cap)
}

func TestBuildSummary_DateRangeAndNoData(t *testing.T) {
	rb := billing.DefaultRuleBook()

	s := billing.BuildSummary(lyellWeek(), rb, "lyell", generic.Between(day(5), day(6)))
	assert.Equal(t, 2, s.TotalDays)
	assert.Equal(t, "2", s.Totals.Extra.String())

	empty := billing.BuildSummary(lyellWeek(), rb, "lyell", generic.SingleDay(day(20)))
	assert.Equal(t, billing.StatusNoData, empty.Status)
	assert.Empty(t, empty.Days)
	assert.NotNil(t, empty.Violations)
	assert.Equal(t, "2024-03-20", empty.Period.Start.String())

	none := billing.BuildSummary(nil, rb, "ghost", generic.AllTime)
	assert.Equal(t, billing.StatusNoData, none.Status)
	assert.Nil(t, none.Period.Start)
	assert.Equal(t, billing.ProjectTypeNoCaps, none.ProjectType)
}

func TestBuildSummary_UncappedProjectHasNoViolations(t *testing.T) {
	s := billing.BuildSummary(lyellWeek(), billing.DefaultRuleBook(), "dataplatr", generic.AllTime)
	assert.Equal(t, "9", s.Totals.Billable.String())
	assert.Empty(t, s.Violations)
}

func TestBuildDailyReport(t *testing.T) {
	rb := billing.DefaultRuleBook()

	r := billing.BuildDailyReport(lyellWeek(), rb, "lyell", day(4))
	assert.Equal(t, billing.StatusAnalyzed, r.Status)
	assert.Equal(t, billing.ComplianceViolation, r.Compliance)
	assert.Equal(t, "13", r.Totals.Actual.String())
	assert.Equal(t, "1", r.ExtraDetail[generic.CategoryETL].String())

	missing := billing.BuildDailyReport(lyellWeek(), rb, "lyell", day(1))
	assert.Equal(t, billing.StatusNoData, missing.Status)
}

func TestBuildAllProjects(t *testing.T) {
	all := billing.BuildAllProjects(lyellWeek(), billing.DefaultRuleBook())

	require.Len(t, all, 2)
	assert.Equal(t, "dataplatr", all[0].Project)
	assert.Equal(t, "lyell", all[1].Project)
	assert.Equal(t, 5, all[1].Violations)
}

func TestViolations_FlatList(t *testing.T) {
	v := billing.Violations(lyellWeek())

	require.Len(t, v, 5)
	assert.Equal(t, "2024-03-04", v[0].Date.String())
	assert.Equal(t, "1", v[0].Extra.String())
	assert.Equal(t, "4", v[0].Cap.String())
}
