package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/report-engine/generic"
	"github.com/warp/report-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_EmptyFeedsAreNotErrors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	roster, err := store.FetchRoster(ctx)
	require.NoError(t, err)
	assert.Empty(t, roster)

	reports, err := store.FetchWorkReports(ctx)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestStore_ReplaceRosterKeepsUploadOrder(t *testing.T) {
	// GIVEN: An initial import
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.ReplaceRoster(ctx, []generic.RosterRow{{NameEmail: "Old <old@x.com>"}}))

	// WHEN: Importing a new roster
	rows := []generic.RosterRow{
		{NameEmail: "Zed <z@x.com>", Mobile: "1"},
		{NameEmail: "Amy <a@x.com>", EmergencyName: "Kim", EmergencyNumber: "2"},
	}
	require.NoError(t, store.ReplaceRoster(ctx, rows))

	// THEN: Only the new rows come back, in upload order
	got, err := store.FetchRoster(ctx)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestStore_WorkReportsReplaceAndAppend(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := generic.WorkReportRow{
		Timestamp: "2024-03-04 09:00:00", Email: "a@x.com", SubmitterName: "Amy",
		Date: "04/03/2024", Project: "Lyell", Tasks: "[ETL] load", TimeSpent: "5 hrs",
	}
	second := generic.WorkReportRow{Email: "b@x.com", Date: "2024-03-05", TimeSpent: "3"}

	require.NoError(t, store.ReplaceWorkReports(ctx, []generic.WorkReportRow{first}))
	require.NoError(t, store.AppendWorkReports(ctx, []generic.WorkReportRow{second}))

	got, err := store.FetchWorkReports(ctx)
	require.NoError(t, err)
	assert.Equal(t, []generic.WorkReportRow{first, second}, got)

	roster, reports, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, roster)
	assert.Equal(t, 2, reports)

	require.NoError(t, store.ReplaceWorkReports(ctx, nil))
	got, err = store.FetchWorkReports(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_LoadLogNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC)

	older := generic.LoadRun{
		ID: "run-1", StartedAt: base, FinishedAt: base.Add(time.Second),
		Status: generic.LoadSucceeded, Employees: 3, Reports: 9, Entries: 9, WorkingDays: 5,
	}
	newer := generic.LoadRun{
		ID: "run-2", StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour + time.Second),
		Status: generic.LoadDegraded, ReportsDropped: 2,
		DroppedByReason: map[string]int{generic.ErrBadDate.Error(): 2},
		Error:           "work_report feed unavailable: timeout",
	}
	require.NoError(t, store.RecordLoad(ctx, older))
	require.NoError(t, store.RecordLoad(ctx, newer))

	runs, err := store.ListLoads(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, generic.LoadDegraded, runs[0].Status)
	assert.Equal(t, 2, runs[0].DroppedByReason[generic.ErrBadDate.Error()])
	assert.Equal(t, newer.Error, runs[0].Error)
	assert.True(t, runs[0].StartedAt.Equal(newer.StartedAt))

	assert.Equal(t, "run-1", runs[1].ID)
	assert.Equal(t, 9, runs[1].Reports)
	assert.Nil(t, runs[1].DroppedByReason)
	assert.Empty(t, runs[1].Error)

	limited, err := store.ListLoads(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "run-2", limited[0].ID)
}

func TestStore_DuplicateRunIDRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	run := generic.LoadRun{ID: "same", StartedAt: time.Now(), FinishedAt: time.Now(), Status: generic.LoadSucceeded}

	require.NoError(t, store.RecordLoad(ctx, run))
	assert.Error(t, store.RecordLoad(ctx, run))
}

func TestStore_Reset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.ReplaceRoster(ctx, []generic.RosterRow{{NameEmail: "a@x.com"}}))
	require.NoError(t, store.RecordLoad(ctx, generic.LoadRun{ID: "r", Status: generic.LoadSucceeded}))

	require.NoError(t, store.Reset(ctx))

	roster, reports, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, roster)
	assert.Zero(t, reports)
	runs, err := store.ListLoads(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
