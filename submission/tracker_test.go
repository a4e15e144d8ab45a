package submission_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warp/report-engine/generic"
	"github.com/warp/report-engine/submission"
)

func days(n int) []generic.Day {
	start := generic.NewDay(2024, time.April, 1)
	out := make([]generic.Day, n)
	for i := range out {
		out[i] = start.AddDays(i)
	}
	return out
}

func set(ds ...generic.Day) map[generic.Day]bool {
	m := make(map[generic.Day]bool, len(ds))
	for _, d := range ds {
		m[d] = true
	}
	return m
}

// =============================================================================
// COMPUTE
// =============================================================================

func TestCompute_EighteenOfTwentyIsExcellent(t *testing.T) {
	// GIVEN: 20 working days, employee misses the last two
	all := days(20)
	wd := submission.NewWorkingDays(all)

	// WHEN: Computing metrics
	m := submission.Compute(set(all[:18]...), wd)

	// THEN: 90% and Excellent
	assert.Equal(t, 18, m.DaysSubmitted)
	assert.Equal(t, 2, m.DaysMissed)
	assert.Equal(t, 90.0, m.SubmissionRate)
	assert.Equal(t, 2, m.MaxGap)
	assert.Equal(t, submission.StatusExcellent, m.Status)
}

func TestCompute_NoWorkingDays(t *testing.T) {
	m := submission.Compute(nil, submission.NewWorkingDays(nil))

	assert.Equal(t, 0.0, m.SubmissionRate)
	assert.Equal(t, 0, m.MaxGap)
	assert.Equal(t, submission.StatusNonReporter, m.Status)
}

func TestCompute_IgnoresDatesOutsideWorkingDays(t *testing.T) {
	all := days(4)
	wd := submission.NewWorkingDays(all)
	extra := generic.NewDay(2030, time.January, 1)

	m := submission.Compute(set(all[0], extra), wd)

	assert.Equal(t, 1, m.DaysSubmitted)
	assert.Equal(t, 25.0, m.SubmissionRate)
}

func TestCompute_RateRoundsToOneDecimal(t *testing.T) {
	all := days(3)
	m := submission.Compute(set(all[0]), submission.NewWorkingDays(all))
	assert.Equal(t, 33.3, m.SubmissionRate)
}

func TestCompute_GapCountsOnlyWorkingDays(t *testing.T) {
	// GIVEN: Working days Mon, Tue, Thu (nobody worked Wed)
	mon := generic.NewDay(2024, time.April, 1)
	wd := submission.NewWorkingDays([]generic.Day{mon, mon.AddDays(1), mon.AddDays(3)})

	// WHEN: Employee only submitted on Mon
	m := submission.Compute(set(mon), wd)

	// THEN: Tue and Thu are not consecutive calendar dates
	assert.Equal(t, 1, m.MaxGap)
}

// =============================================================================
// MAX GAP
// =============================================================================

func TestMaxGap(t *testing.T) {
	d := days(10)
	assert.Equal(t, 0, submission.MaxGap(nil))
	assert.Equal(t, 1, submission.MaxGap([]generic.Day{d[3]}))
	assert.Equal(t, 3, submission.MaxGap([]generic.Day{d[7], d[1], d[2], d[3], d[5]}))
	assert.Equal(t, 2, submission.MaxGap([]generic.Day{d[0], d[1], d[1]}))
}

// =============================================================================
// STATUS LADDER
// =============================================================================

func TestClassify_Ladder(t *testing.T) {
	tests := []struct {
		name      string
		submitted int
		rate      float64
		gap       int
		want      submission.Status
	}{
		{"zero submissions beats everything", 0, 100, 0, submission.StatusNonReporter},
		{"excellent ignores gap", 5, 90, 10, submission.StatusExcellent},
		{"good needs short gap", 5, 75, 2, submission.StatusGood},
		{"good rate with long gap falls through", 5, 75, 3, submission.StatusInconsistent},
		{"inconsistent by rate", 5, 55, 9, submission.StatusInconsistent},
		{"poor by rate", 5, 35, 9, submission.StatusPoor},
		{"poor by gap", 5, 10, 4, submission.StatusPoor},
		{"very poor", 5, 10, 5, submission.StatusVeryPoor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, submission.Classify(tt.submitted, tt.rate, tt.gap))
		})
	}
}

func TestClassify_LowRateShortGapOutranksHigherRateLongGap(t *testing.T) {
	// Rules 4 and 5 use OR: the ladder is not monotonic in the rate.
	low := submission.Classify(3, 20, 1)
	higher := submission.Classify(3, 45, 6)

	assert.Equal(t, submission.StatusInconsistent, low)
	assert.Equal(t, submission.StatusPoor, higher)
}

func TestStatus_Groups(t *testing.T) {
	assert.True(t, submission.StatusGood.Consistent())
	assert.True(t, submission.StatusInconsistent.Partial())
	assert.True(t, submission.StatusNonReporter.Defaulter())
	assert.False(t, submission.StatusExcellent.Defaulter())
}

func TestWorkingDays_WithinAndBounds(t *testing.T) {
	all := days(10)
	wd := submission.NewWorkingDays(append(all, all[0]))
	assert.Equal(t, 10, wd.Len())

	sub := wd.Within(generic.Between(all[2], all[4]))
	assert.Equal(t, 3, sub.Len())
	first, last, ok := sub.Bounds()
	assert.True(t, ok)
	assert.True(t, first.Equal(all[2]))
	assert.True(t, last.Equal(all[4]))
}
