/*
Package generic provides the domain-agnostic primitives of the report engine.

PURPOSE:
  Every other package (parsing, classify, billing, submission, aggregate)
  speaks in the same few types: a calendar Day, an optional DateRange, an
  Hours quantity and the record types produced by ingestion. Keeping them
  here lets the heuristics and the rule engine stay independent of each
  other.

KEY CONCEPTS IN THIS FILE (types.go):
  - Hours: a non-negative quantity of work, decimal-backed
  - Percent: ratio helpers that define 0 for an empty denominator
  - Round2 / Round1: the only rounding rules used in reports

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so that 4.0 + 2.0 is 6.0, not 5.999...
  2. Rounding is explicit: sums stay exact, outputs round at the edge
  3. No NaN: every ratio with an empty denominator is 0

USAGE:
  worked := generic.NewHours(6)
  cap := generic.NewHours(4)
  extra := worked.Sub(cap).Max(generic.ZeroHours).Round2()

SEE ALSO:
  - time.go: Day, the calendar date used as aggregation key
  - period.go: DateRange filters
  - records.go: Employee, Report, WorkEntry
  - errors.go: Error taxonomy
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// HOURS - Quantity of reported work
// =============================================================================

// Hours is a quantity of work time. The zero value is 0 hours.
type Hours struct {
	Value decimal.Decimal
}

// ZeroHours is 0 hours.
var ZeroHours = Hours{Value: decimal.Zero}

func NewHours(value float64) Hours            { return Hours{Value: decimal.NewFromFloat(value)} }
func HoursFromDecimal(d decimal.Decimal) Hours { return Hours{Value: d} }

// MustParseHours parses a decimal string, returning 0 on malformed input.
func MustParseHours(s string) Hours {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroHours
	}
	return Hours{Value: d}
}

func (h Hours) Add(o Hours) Hours                { return Hours{Value: h.Value.Add(o.Value)} }
func (h Hours) Sub(o Hours) Hours                { return Hours{Value: h.Value.Sub(o.Value)} }
func (h Hours) DivInt(n int) Hours               { return Hours{Value: h.Value.Div(decimal.NewFromInt(int64(n)))} }
func (h Hours) Equal(o Hours) bool               { return h.Value.Equal(o.Value) }
func (h Hours) GreaterThan(o Hours) bool         { return h.Value.GreaterThan(o.Value) }
func (h Hours) LessThan(o Hours) bool            { return h.Value.LessThan(o.Value) }
func (h Hours) IsZero() bool                     { return h.Value.IsZero() }
func (h Hours) IsPositive() bool                 { return h.Value.IsPositive() }
func (h Hours) IsNegative() bool                 { return h.Value.IsNegative() }
func (h Hours) Round2() Hours                    { return Hours{Value: h.Value.Round(2)} }
func (h Hours) Float() float64                   { return h.Value.InexactFloat64() }
func (h Hours) String() string                   { return h.Value.Round(2).String() }

func (h Hours) Min(o Hours) Hours {
	if h.LessThan(o) {
		return h
	}
	return o
}

func (h Hours) Max(o Hours) Hours {
	if h.GreaterThan(o) {
		return h
	}
	return o
}

// MarshalJSON renders the value as a JSON number rounded to 2 decimals.
func (h Hours) MarshalJSON() ([]byte, error) {
	return []byte(h.Value.Round(2).String()), nil
}

// UnmarshalJSON accepts a JSON number or numeric string.
func (h *Hours) UnmarshalJSON(b []byte) error {
	d := decimal.Decimal{}
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	h.Value = d
	return nil
}

// SumHours adds up a list of quantities.
func SumHours(hs ...Hours) Hours {
	total := ZeroHours
	for _, h := range hs {
		total = total.Add(h)
	}
	return total
}

// =============================================================================
// RATIOS
// =============================================================================

// PercentOf returns part/whole*100 rounded to one decimal, 0 when whole is 0.
func PercentOf(part, whole Hours) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Value.Div(whole.Value).Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64()
}

// PercentCount is PercentOf for counts.
func PercentCount(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(part)).
		Div(decimal.NewFromInt(int64(whole))).
		Mul(decimal.NewFromInt(100)).
		Round(1).InexactFloat64()
}

// Ratio returns num/den rounded to places, 0 when den is 0.
func Ratio(num, den decimal.Decimal, places int32) float64 {
	if den.IsZero() {
		return 0
	}
	return num.Div(den).Round(places).InexactFloat64()
}

// Round1 rounds a float to one decimal, half away from zero.
func Round1(f float64) float64 { return decimal.NewFromFloat(f).Round(1).InexactFloat64() }

// Round2 rounds a float to two decimals, half away from zero.
func Round2(f float64) float64 { return decimal.NewFromFloat(f).Round(2).InexactFloat64() }
