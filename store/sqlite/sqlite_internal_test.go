package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/report-engine/generic"
)

func TestListLoads_CorruptTimestampIsAnError(t *testing.T) {
	// GIVEN: A recorded run whose started_at was overwritten with garbage
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	at := time.Date(2024, time.March, 8, 18, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordLoad(ctx, generic.LoadRun{
		ID: "run-1", StartedAt: at, FinishedAt: at, Status: generic.LoadSucceeded,
	}))
	_, err = s.db.ExecContext(ctx, `UPDATE load_runs SET started_at = 'not a time' WHERE id = 'run-1'`)
	require.NoError(t, err)

	// WHEN: Listing the load log
	runs, err := s.ListLoads(ctx, 0)

	// THEN: The bad row fails the listing instead of reading as the zero time
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run-1")
	assert.Nil(t, runs)
}
