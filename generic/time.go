package generic

import (
	"time"
)

// =============================================================================
// DAY - Calendar date used as aggregation key
// =============================================================================

// Day is a calendar date at UTC midnight. It is comparable and safe to use
// as a map key as long as it is built through the constructors below.
type Day struct {
	time.Time
}

// Constructors
func NewDay(year int, month time.Month, day int) Day {
	return Day{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates t to its calendar date (in t's own location).
func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

func Today() Day { return DayOf(time.Now()) }

// Comparison
func (d Day) Before(o Day) bool        { return d.Time.Before(o.Time) }
func (d Day) After(o Day) bool         { return d.Time.After(o.Time) }
func (d Day) Equal(o Day) bool         { return d.Time.Equal(o.Time) }
func (d Day) BeforeOrEqual(o Day) bool { return !d.After(o) }
func (d Day) AfterOrEqual(o Day) bool  { return !d.Before(o) }

// Arithmetic
func (d Day) AddDays(n int) Day { return DayOf(d.Time.AddDate(0, 0, n)) }

// Properties
func (d Day) IsZero() bool        { return d.Time.IsZero() }
func (d Day) WeekdayName() string { return d.Time.Weekday().String() }
func (d Day) String() string      { return d.Time.Format("2006-01-02") }

func (d Day) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Day) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"2006-01-02"`, string(b))
	if err != nil {
		return err
	}
	*d = DayOf(t)
	return nil
}

// MarshalText keys JSON maps by YYYY-MM-DD.
func (d Day) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Day) UnmarshalText(b []byte) error {
	day, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = day
	return nil
}

// ParseDay parses the canonical YYYY-MM-DD form.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, err
	}
	return DayOf(t), nil
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(from, to Day) int { return int(to.Time.Sub(from.Time).Hours() / 24) }

func StartOfMonth(year int, month time.Month) Day { return NewDay(year, month, 1) }
func EndOfMonth(year int, month time.Month) Day {
	return DayOf(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
}

// MinDay and MaxDay return the earliest and latest of a non-empty list.
func MinDay(days []Day) Day {
	var m Day
	for i, d := range days {
		if i == 0 || d.Before(m) {
			m = d
		}
	}
	return m
}

func MaxDay(days []Day) Day {
	var m Day
	for i, d := range days {
		if i == 0 || d.After(m) {
			m = d
		}
	}
	return m
}
