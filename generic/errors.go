/*
errors.go - Centralized error types for the report engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Data quality - a bad row; counted and dropped, never returned from a load
  2. Lookup - employee or category not found; explicit "not found" results
  3. Feed - upstream source unavailable; degrades to an empty feed
  4. Structural - roster schema unusable; the only load failure returned

USAGE:
  if errors.Is(err, generic.ErrEmployeeNotFound) {
      // 404, distinct from a known employee with zero data
  }

  var dq *generic.DataQualityError
  if errors.As(err, &dq) {
      stats.Dropped[dq.Reason.Error()]++
  }

SEE ALSO:
  - feed/ingest.go: Produces DataQualityError per dropped row
  - analytics/engine.go: Applies the propagation policy
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmployeeNotFound is returned when no roster employee owns an email or name.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrUnknownCategory is returned when a category name is not one of the fixed set.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrEmptyDataset marks a load that produced no employees or no working days.
	// It is informational: every rate over an empty dataset is 0.
	ErrEmptyDataset = errors.New("empty dataset")

	// ErrFeedUnavailable is returned by sources when fetching fails.
	ErrFeedUnavailable = errors.New("feed unavailable")

	// ErrRosterSchema is returned when the roster cannot be interpreted at all.
	ErrRosterSchema = errors.New("malformed roster schema")

	// ErrInvalidDateRange is returned when an end date falls before a start date.
	ErrInvalidDateRange = errors.New("invalid date range: end before start")

	// ErrDuplicateAlias marks an email already claimed by another roster row.
	ErrDuplicateAlias = errors.New("email alias already claimed")

	// Row-level data quality reasons.
	ErrNoEmail       = errors.New("no extractable email")
	ErrBadDate       = errors.New("unparseable date")
	ErrMissingColumn = errors.New("missing required column")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DataQualityError describes a dropped input row.
type DataQualityError struct {
	Source string // "roster" or "work_report"
	Row    int    // 1-based data row number
	Reason error  // one of the row-level sentinels
	Value  string // offending raw value, when useful
}

func (e *DataQualityError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s row %d: %v (%q)", e.Source, e.Row, e.Reason, e.Value)
	}
	return fmt.Sprintf("%s row %d: %v", e.Source, e.Row, e.Reason)
}

func (e *DataQualityError) Unwrap() error { return e.Reason }

// FeedError wraps an upstream fetch failure.
type FeedError struct {
	Feed string
	Err  error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("%s feed unavailable: %v", e.Feed, e.Err)
}

func (e *FeedError) Unwrap() []error { return []error{ErrFeedUnavailable, e.Err} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a failed lookup.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) || errors.Is(err, ErrUnknownCategory)
}

// IsDataQuality returns true if the error describes a droppable row.
func IsDataQuality(err error) bool {
	var dq *DataQualityError
	return errors.As(err, &dq)
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDateRange) || errors.Is(err, ErrUnknownCategory)
}
