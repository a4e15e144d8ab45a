package generic

import "time"

// =============================================================================
// DATE RANGE - Optional inclusive bounds for every query
// =============================================================================

// DateRange bounds a query to [Start, End]. A nil bound is open, so the
// zero value means "all available history".
type DateRange struct {
	Start *Day
	End   *Day
}

// AllTime is the unbounded range.
var AllTime = DateRange{}

// Between builds a closed range.
func Between(start, end Day) DateRange {
	return DateRange{Start: &start, End: &end}
}

// SingleDay builds a one-day range.
func SingleDay(d Day) DateRange { return Between(d, d) }

// Month builds the range covering a calendar month.
func Month(year int, month time.Month) DateRange {
	return Between(StartOfMonth(year, month), EndOfMonth(year, month))
}

// Contains returns true if d is within the range.
func (r DateRange) Contains(d Day) bool {
	if r.Start != nil && d.Before(*r.Start) {
		return false
	}
	if r.End != nil && d.After(*r.End) {
		return false
	}
	return true
}

// IsOpen reports whether neither bound is set.
func (r DateRange) IsOpen() bool { return r.Start == nil && r.End == nil }

// Validate rejects ranges whose end falls before their start.
func (r DateRange) Validate() error {
	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		return ErrInvalidDateRange
	}
	return nil
}

// Resolve fills open bounds from the observed data bounds. Bounds already
// set are kept as they are.
func (r DateRange) Resolve(first, last Day) Period {
	p := Period{Start: first, End: last}
	if r.Start != nil {
		p.Start = *r.Start
	}
	if r.End != nil {
		p.End = *r.End
	}
	return p
}

// String returns a string representation of the range.
func (r DateRange) String() string {
	s, e := "*", "*"
	if r.Start != nil {
		s = r.Start.String()
	}
	if r.End != nil {
		e = r.End.String()
	}
	return "[" + s + ", " + e + "]"
}

// =============================================================================
// PERIOD - Resolved analysis window reported back to callers
// =============================================================================

// Period is a resolved, closed analysis window. Zero days mean "no data".
type Period struct {
	Start Day `json:"start_date"`
	End   Day `json:"end_date"`
}

// Days returns all calendar days in the period.
func (p Period) Days() []Day {
	var days []Day
	if p.Start.IsZero() || p.End.IsZero() {
		return days
	}
	for d := p.Start; d.BeforeOrEqual(p.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}
