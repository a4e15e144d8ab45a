package generic_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/report-engine/generic"
)

// =============================================================================
// HOURS
// =============================================================================

func TestHours_DecimalArithmeticIsExact(t *testing.T) {
	// GIVEN: Quantities that drift under float arithmetic
	a := generic.NewHours(0.1)
	b := generic.NewHours(0.2)

	// WHEN: Adding them
	sum := a.Add(b)

	// THEN: The sum is exactly 0.3
	assert.True(t, sum.Equal(generic.NewHours(0.3)), "got %s", sum)
}

func TestHours_RoundsHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "2.13", generic.MustParseHours("2.125").Round2().String())
	assert.Equal(t, 3.3, generic.Round1(3.25))
}

func TestHours_MarshalJSONAsNumber(t *testing.T) {
	b, err := json.Marshal(struct {
		H generic.Hours `json:"h"`
	}{H: generic.NewHours(1.666)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"h": 1.67}`, string(b))
}

func TestHours_MinMax(t *testing.T) {
	four := generic.NewHours(4)
	five := generic.NewHours(5)
	assert.True(t, five.Min(four).Equal(four))
	assert.True(t, four.Max(five).Equal(five))
}

func TestPercent_EmptyDenominatorIsZero(t *testing.T) {
	assert.Equal(t, 0.0, generic.PercentCount(3, 0))
	assert.Equal(t, 0.0, generic.PercentOf(generic.NewHours(1), generic.ZeroHours))
	assert.Equal(t, 33.3, generic.PercentCount(1, 3))
}

// =============================================================================
// DAYS AND RANGES
// =============================================================================

func TestDay_ComparableAsMapKey(t *testing.T) {
	// GIVEN: The same date built two ways
	a := generic.NewDay(2024, time.March, 5)
	b := generic.DayOf(time.Date(2024, time.March, 5, 17, 30, 0, 0, time.UTC))

	// THEN: Both collapse onto one map key
	m := map[generic.Day]int{a: 1}
	m[b]++
	assert.Len(t, m, 1)
	assert.Equal(t, 2, m[a])
}

func TestDay_JSONRoundTrip(t *testing.T) {
	d := generic.NewDay(2024, time.February, 29)
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-02-29"`, string(b))

	var back generic.Day
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Equal(d))
}

func TestDay_JSONMapKey(t *testing.T) {
	m := map[generic.Day]int{generic.NewDay(2024, time.March, 4): 2}
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"2024-03-04":2}`, string(b))

	var back map[generic.Day]int
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, 2, back[generic.NewDay(2024, time.March, 4)])
}

func TestDateRange_OpenBoundsContainEverything(t *testing.T) {
	d := generic.NewDay(1999, time.January, 1)
	assert.True(t, generic.AllTime.Contains(d))

	start := generic.NewDay(2024, time.January, 10)
	r := generic.DateRange{Start: &start}
	assert.False(t, r.Contains(d))
	assert.True(t, r.Contains(start))
}

func TestDateRange_ValidateRejectsInvertedRange(t *testing.T) {
	r := generic.Between(generic.NewDay(2024, 2, 1), generic.NewDay(2024, 1, 1))
	assert.ErrorIs(t, r.Validate(), generic.ErrInvalidDateRange)
}

func TestMonth_CoversWholeMonth(t *testing.T) {
	r := generic.Month(2024, time.February)
	assert.Equal(t, "2024-02-29", r.End.String())
	assert.Len(t, generic.Period{Start: *r.Start, End: *r.End}.Days(), 29)
}

// =============================================================================
// ERRORS
// =============================================================================

func TestErrors_StructuredErrorsUnwrap(t *testing.T) {
	dq := &generic.DataQualityError{Source: "roster", Row: 3, Reason: generic.ErrNoEmail}
	assert.True(t, errors.Is(dq, generic.ErrNoEmail))
	assert.True(t, generic.IsDataQuality(dq))

	fe := &generic.FeedError{Feed: "roster", Err: errors.New("timeout")}
	assert.True(t, errors.Is(fe, generic.ErrFeedUnavailable))
	assert.Contains(t, fe.Error(), "timeout")
}

func TestParseCategory(t *testing.T) {
	c, err := generic.ParseCategory(" ETL ")
	require.NoError(t, err)
	assert.Equal(t, generic.CategoryETL, c)

	_, err = generic.ParseCategory("cooking")
	assert.ErrorIs(t, err, generic.ErrUnknownCategory)
	assert.True(t, generic.IsNotFound(err))
}
