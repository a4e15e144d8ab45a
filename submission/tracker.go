/*
Package submission measures reporting discipline.

PURPOSE:
  Everyone is expected to file a work report on every working day. A
  working day is any date on which at least one employee filed something;
  it is derived from the data, not from a calendar. This package counts
  submitted and missed working days per employee, finds the longest run of
  consecutive misses, and buckets the result into a status.

STATUS LADDER (first match wins):
  1. days_submitted == 0              -> Non-Reporter
  2. rate >= 90                       -> Excellent
  3. rate >= 70 AND max_gap < 3       -> Good
  4. rate >= 50 OR  max_gap < 4       -> Inconsistent
  5. rate >= 30 OR  max_gap < 5       -> Poor
  6. otherwise                        -> Very Poor

  Rules 4 and 5 use OR, so a low rate with short gaps can land above a
  higher rate with long gaps. This is the agreed behaviour.

SEE ALSO:
  - aggregate/team.go: Status counts across the team
*/
package submission

import (
	"sort"

	"github.com/warp/report-engine/generic"
)

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusNonReporter  Status = "Non-Reporter"
	StatusExcellent    Status = "Excellent"
	StatusGood         Status = "Good"
	StatusInconsistent Status = "Inconsistent"
	StatusPoor         Status = "Poor"
	StatusVeryPoor     Status = "Very Poor"
)

// Statuses lists every status from best to worst.
var Statuses = []Status{
	StatusExcellent,
	StatusGood,
	StatusInconsistent,
	StatusPoor,
	StatusVeryPoor,
	StatusNonReporter,
}

// Consistent returns true for Excellent and Good.
func (s Status) Consistent() bool { return s == StatusExcellent || s == StatusGood }

// Partial returns true for Inconsistent.
func (s Status) Partial() bool { return s == StatusInconsistent }

// Defaulter returns true for Poor, Very Poor and Non-Reporter.
func (s Status) Defaulter() bool {
	return s == StatusPoor || s == StatusVeryPoor || s == StatusNonReporter
}

// Classify applies the status ladder. rate is a percentage.
func Classify(daysSubmitted int, rate float64, maxGap int) Status {
	switch {
	case daysSubmitted == 0:
		return StatusNonReporter
	case rate >= 90:
		return StatusExcellent
	case rate >= 70 && maxGap < 3:
		return StatusGood
	case rate >= 50 || maxGap < 4:
		return StatusInconsistent
	case rate >= 30 || maxGap < 5:
		return StatusPoor
	default:
		return StatusVeryPoor
	}
}

// =============================================================================
// WORKING DAYS
// =============================================================================

// WorkingDays is the sorted set of dates on which anyone submitted.
type WorkingDays struct {
	days []generic.Day
	set  map[generic.Day]bool
}

// NewWorkingDays builds the set from every date present. Duplicates collapse.
func NewWorkingDays(dates []generic.Day) WorkingDays {
	wd := WorkingDays{set: make(map[generic.Day]bool, len(dates))}
	for _, d := range dates {
		if !wd.set[d] {
			wd.set[d] = true
			wd.days = append(wd.days, d)
		}
	}
	sort.Slice(wd.days, func(i, j int) bool { return wd.days[i].Before(wd.days[j]) })
	return wd
}

func (wd WorkingDays) Len() int                    { return len(wd.days) }
func (wd WorkingDays) Contains(d generic.Day) bool { return wd.set[d] }

// Days returns the working days in ascending order.
func (wd WorkingDays) Days() []generic.Day { return append([]generic.Day(nil), wd.days...) }

// Bounds returns the first and last working day.
func (wd WorkingDays) Bounds() (first, last generic.Day, ok bool) {
	if len(wd.days) == 0 {
		return generic.Day{}, generic.Day{}, false
	}
	return wd.days[0], wd.days[len(wd.days)-1], true
}

// Within returns the working days inside r.
func (wd WorkingDays) Within(r generic.DateRange) WorkingDays {
	var in []generic.Day
	for _, d := range wd.days {
		if r.Contains(d) {
			in = append(in, d)
		}
	}
	return NewWorkingDays(in)
}

// =============================================================================
// METRICS
// =============================================================================

// Metrics describe one employee's reporting discipline.
type Metrics struct {
	DaysSubmitted    int           `json:"days_submitted"`
	DaysMissed       int           `json:"days_missed"`
	TotalWorkingDays int           `json:"total_working_days"`
	SubmissionRate   float64       `json:"submission_rate"`
	MaxGap           int           `json:"max_gap"`
	Status           Status        `json:"status"`
	MissedDates      []generic.Day `json:"missed_dates,omitempty"`
}

// Compute measures submitted dates against the working days. Submitted
// dates outside the working-day set are ignored.
//
// The reported rate is rounded to 1 decimal; the ladder sees the exact rate.
func Compute(submitted map[generic.Day]bool, wd WorkingDays) Metrics {
	m := Metrics{TotalWorkingDays: wd.Len()}

	var missed []generic.Day
	for _, d := range wd.days {
		if submitted[d] {
			m.DaysSubmitted++
		} else {
			missed = append(missed, d)
		}
	}
	m.DaysMissed = m.TotalWorkingDays - m.DaysSubmitted
	m.MissedDates = missed
	m.MaxGap = MaxGap(missed)

	rate := 0.0
	if m.TotalWorkingDays > 0 {
		rate = float64(m.DaysSubmitted*100) / float64(m.TotalWorkingDays)
	}
	m.SubmissionRate = generic.Round1(rate)
	m.Status = Classify(m.DaysSubmitted, rate, m.MaxGap)
	return m
}

// MaxGap returns the longest run of consecutive calendar dates in missed.
// Any single missed date is a run of 1; no missed dates is 0.
func MaxGap(missed []generic.Day) int {
	if len(missed) == 0 {
		return 0
	}
	sorted := append([]generic.Day(nil), missed...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	longest, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].AddDays(1).Equal(sorted[i]) {
			run++
		} else if !sorted[i-1].Equal(sorted[i]) {
			run = 1
		}
		longest = max(longest, run)
	}
	return longest
}
