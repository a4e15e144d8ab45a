package analytics_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/report-engine/analytics"
	"github.com/warp/report-engine/generic"
	"github.com/warp/report-engine/generic/store"
	"github.com/warp/report-engine/submission"
)

// =============================================================================
// HELPERS
// =============================================================================

var (
	start = generic.NewDay(2024, time.March, 4)
	clock = func() time.Time { return time.Date(2024, time.March, 8, 18, 0, 0, 0, time.UTC) }
)

func roster() []generic.RosterRow {
	return []generic.RosterRow{
		{NameEmail: "Asha Rao <asha@warp.io>, asha.rao@gmail.com", Mobile: "555-0100"},
		{NameEmail: "Ben Ode <ben@warp.io>"},
		{NameEmail: "Chen Li <chen@warp.io>"},
	}
}

// week has Asha on lyell ETL for 5h every day, Ben on reporting on three
// days and Chen on one.
func week() []generic.WorkReportRow {
	var rows []generic.WorkReportRow
	for i := 0; i < 5; i++ {
		rows = append(rows, generic.WorkReportRow{
			Email: "asha@warp.io", Date: start.AddDays(i).String(),
			Project: "Lyell", Tasks: "[ETL] loaded daily pipeline", TimeSpent: "5 hrs",
		})
	}
	for i := 0; i < 3; i++ {
		rows = append(rows, generic.WorkReportRow{
			Email: "ben@warp.io", Date: start.AddDays(i).String(),
			Project: "lyell", Tasks: "dashboard refresh", TimeSpent: "3",
		})
	}
	rows = append(rows, generic.WorkReportRow{
		Email: "chen@warp.io", Date: start.String(), Project: "Dataplatr", Tasks: "misc", TimeSpent: "8",
	})
	return rows
}

func newEngine(t *testing.T) (*analytics.Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	mem.SetRoster(roster())
	mem.SetWorkReports(week())
	eng := analytics.New(analytics.Options{
		Roster:      mem,
		WorkReports: mem,
		Log:         mem,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:         clock,
	})
	return eng, mem
}

func reload(t *testing.T, eng *analytics.Engine) *analytics.LoadReport {
	t.Helper()
	rep, err := eng.Reload(context.Background())
	require.NoError(t, err)
	return rep
}

// =============================================================================
// END TO END
// =============================================================================

func TestEngine_EndToEndWeekOnLyell(t *testing.T) {
	// GIVEN: 3 employees and a 5 day feed; Asha logs 5h of ETL on lyell daily
	eng, _ := newEngine(t)

	// WHEN: Loading
	rep := reload(t, eng)

	// THEN: The load is complete
	assert.Equal(t, generic.LoadSucceeded, rep.Run.Status)
	assert.Equal(t, 3, rep.Run.Employees)
	assert.Equal(t, 9, rep.Run.Reports)
	assert.Equal(t, 5, rep.Run.WorkingDays)
	assert.NotEmpty(t, rep.Run.ID)

	// AND: Asha submitted every day
	m, err := eng.GetEmployeeMetrics("asha@warp.io")
	require.NoError(t, err)
	assert.Equal(t, 5, m.DaysSubmitted)
	assert.Equal(t, 100.0, m.SubmissionRate)
	assert.Equal(t, submission.StatusExcellent, m.Status)

	// AND: Each day bills 4h with 1h extra
	summary, err := eng.GetBillingSummary("lyell", generic.AllTime)
	require.NoError(t, err)
	require.Len(t, summary.Days, 5)
	for _, day := range summary.Days {
		etl := day.Categories[generic.CategoryETL]
		assert.Equal(t, 4.0, etl.Billable.Float(), day.Date.String())
		assert.Equal(t, 1.0, etl.Extra.Float(), day.Date.String())
	}

	perf, err := eng.GetProjectPerformance("lyell", generic.AllTime)
	require.NoError(t, err)
	require.NotEmpty(t, perf)
	assert.Equal(t, "asha@warp.io", perf[0].Email)
	assert.Equal(t, 20.0, perf[0].Billable.Float())
	assert.Equal(t, 5.0, perf[0].Extra.Float())
}

func TestEngine_QueriesResolveAliasesAndProjectNames(t *testing.T) {
	eng, _ := newEngine(t)
	reload(t, eng)

	m, err := eng.GetEmployeeMetrics(" Asha.Rao@Gmail.com ")
	require.NoError(t, err)
	assert.Equal(t, "asha@warp.io", m.Email)

	v, err := eng.GetComplianceViolations("LYELL - Phase 2", generic.AllTime)
	require.NoError(t, err)
	assert.Len(t, v, 5)

	top, err := eng.GetTopContributors("Lyell", 1, generic.AllTime)
	require.NoError(t, err)
	require.Len(t, top.Contributors, 1)
	assert.Equal(t, "Asha Rao", top.Contributors[0].Name)
}

func TestEngine_LookupMisses(t *testing.T) {
	eng, _ := newEngine(t)
	reload(t, eng)

	_, err := eng.GetEmployeeMetrics("ghost@warp.io")
	assert.ErrorIs(t, err, generic.ErrEmployeeNotFound)
	assert.True(t, generic.IsNotFound(err))

	_, err = eng.FindEmployee("nobody")
	assert.ErrorIs(t, err, generic.ErrEmployeeNotFound)

	emp, err := eng.FindEmployee("chen")
	require.NoError(t, err)
	assert.Equal(t, "chen@warp.io", emp.PrimaryEmail)
}

func TestEngine_RejectsBadInput(t *testing.T) {
	eng, _ := newEngine(t)
	reload(t, eng)

	inverted := generic.Between(start.AddDays(3), start)

	_, err := eng.GetBillingSummary("lyell", inverted)
	assert.ErrorIs(t, err, generic.ErrInvalidDateRange)
	_, err = eng.GetTopContributors("lyell", 3, inverted)
	assert.ErrorIs(t, err, generic.ErrInvalidDateRange)
	_, err = eng.GetCategoryPerformance("lyell", "cooking", generic.AllTime)
	assert.ErrorIs(t, err, generic.ErrUnknownCategory)
	_, err = eng.GetMonthly("lyell", 2024, 13)
	assert.ErrorIs(t, err, generic.ErrInvalidDateRange)
}

func TestEngine_BeforeFirstLoadIsEmpty(t *testing.T) {
	eng, _ := newEngine(t)

	assert.True(t, eng.Snapshot().IsEmpty())
	assert.Nil(t, eng.LastLoad())
	_, ok := eng.GetTeamMetrics()
	assert.False(t, ok)
}

// =============================================================================
// FAILURE HANDLING
// =============================================================================

func TestEngine_WorkReportFeedDownDegradesToEmpty(t *testing.T) {
	// GIVEN: The work-report export is unreachable
	eng, mem := newEngine(t)
	mem.FailWorkReports(&generic.FeedError{Feed: "work_report", Err: errors.New("connection refused")})

	// WHEN: Reloading
	rep, err := eng.Reload(context.Background())

	// THEN: The load succeeds degraded with the roster but no reports
	require.NoError(t, err)
	assert.Equal(t, generic.LoadDegraded, rep.Run.Status)
	assert.Len(t, rep.FeedErrors, 1)
	assert.Contains(t, rep.Run.Error, "connection refused")
	assert.Equal(t, 3, rep.Run.Employees)
	assert.Equal(t, 0, rep.Run.Reports)

	m, err := eng.GetEmployeeMetrics("asha@warp.io")
	require.NoError(t, err)
	assert.Equal(t, 0, m.TotalWorkingDays)
	assert.Equal(t, 0.0, m.SubmissionRate)
	assert.Equal(t, submission.StatusNonReporter, m.Status)
}

func TestEngine_RosterFeedDownDegradesToEmpty(t *testing.T) {
	eng, mem := newEngine(t)
	mem.FailRoster(&generic.FeedError{Feed: "roster", Err: errors.New("timeout")})

	rep := reload(t, eng)

	assert.Equal(t, generic.LoadDegraded, rep.Run.Status)
	assert.Equal(t, 0, rep.Run.Employees)
	// Reports still load; their submitters are simply unknown.
	assert.Equal(t, 9, rep.Run.Reports)
	_, ok := eng.GetTeamMetrics()
	assert.False(t, ok)
}

func TestEngine_MissingColumnIsCountedNotReturned(t *testing.T) {
	eng, mem := newEngine(t)
	mem.FailWorkReports(&generic.DataQualityError{
		Source: "work_report", Reason: generic.ErrMissingColumn, Value: "Select the date",
	})

	rep := reload(t, eng)

	assert.Equal(t, generic.LoadSucceeded, rep.Run.Status)
	assert.Equal(t, 1, rep.Reports.Dropped[generic.ErrMissingColumn.Error()])
	assert.Equal(t, 0, rep.Run.Reports)
}

func TestEngine_RosterSchemaErrorKeepsPreviousSnapshot(t *testing.T) {
	// GIVEN: A successful load
	eng, mem := newEngine(t)
	reload(t, eng)
	before := eng.Snapshot()

	// WHEN: The roster turns structurally unusable
	mem.FailRoster(fmt.Errorf("%w: header has 2 columns, want 4", generic.ErrRosterSchema))
	rep, err := eng.Reload(context.Background())

	// THEN: The error is returned and the old snapshot stays
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrRosterSchema)
	assert.Equal(t, generic.LoadFailed, rep.Run.Status)
	assert.Same(t, before, eng.Snapshot())

	// AND: Both runs are in the load log, newest first
	runs, err := eng.Loads(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, generic.LoadFailed, runs[0].Status)
	assert.Equal(t, generic.LoadSucceeded, runs[1].Status)
}

func TestEngine_BadRowsAreDroppedAndCounted(t *testing.T) {
	eng, mem := newEngine(t)
	mem.AppendWorkReports(
		generic.WorkReportRow{Email: "", Date: start.String(), TimeSpent: "2"},
		generic.WorkReportRow{Email: "ben@warp.io", Date: "someday", TimeSpent: "2"},
	)

	rep := reload(t, eng)

	assert.Equal(t, 9, rep.Run.Reports)
	assert.Equal(t, 2, rep.Run.ReportsDropped)
	assert.Equal(t, 1, rep.Run.DroppedByReason[generic.ErrNoEmail.Error()])
	assert.Equal(t, 1, rep.Run.DroppedByReason[generic.ErrBadDate.Error()])
}

// =============================================================================
// RELOAD ATOMICITY
// =============================================================================

func TestEngine_ConcurrentReadsSeeWholeSnapshots(t *testing.T) {
	// GIVEN: Two alternating feeds, small and large, whose employee and
	// report counts are tied together
	eng, mem := newEngine(t)
	small := func() {
		mem.SetRoster(roster()[:1])
		mem.SetWorkReports(week()[:5])
	}
	large := func() {
		mem.SetRoster(roster())
		mem.SetWorkReports(week())
	}
	consistent := func(employees, reports int) bool {
		return (employees == 1 && reports == 5) || (employees == 3 && reports == 9)
	}
	reload(t, eng)

	// WHEN: Reloading over and over while readers query
	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				ds := eng.Snapshot()
				// THEN: Every snapshot is one feed or the other, never a mix
				if !consistent(ds.Directory.Len(), len(ds.Reports)) {
					t.Errorf("mixed snapshot: %d employees, %d reports", ds.Directory.Len(), len(ds.Reports))
					return
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		if i%2 == 0 {
			small()
		} else {
			large()
		}
		_, err := eng.Reload(context.Background())
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
}

func TestEngine_OldSnapshotSurvivesReload(t *testing.T) {
	eng, mem := newEngine(t)
	reload(t, eng)
	old := eng.Snapshot()

	mem.SetWorkReports(nil)
	reload(t, eng)

	assert.Len(t, old.Reports, 9)
	assert.Empty(t, eng.Snapshot().Reports)
}
