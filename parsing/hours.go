/*
Package parsing holds the free-text heuristics applied to work-report cells.

PURPOSE:
  Work reports are typed by hand into a form. Time spent, task lists and
  dates arrive in whatever notation the submitter chose. Every function in
  this package is pure and state-free so the heuristics can be regression
  tested in isolation from aggregation and billing.

KEY CONCEPTS:
  ParseHours:       "2 hrs 30 mins" -> 2.5
  CountTasks:       numbered lists, or one per line with comma clauses
  ParseDate:        the five accepted form layouts plus timestamp fallbacks
  NormalizeProject: "LYELL - Phase 2" -> "lyell"

SEE ALSO:
  - feed/ingest.go: Applies these to every raw row
  - classify/: Category heuristics
*/
package parsing

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/report-engine/generic"
)

// =============================================================================
// HOURS
// =============================================================================

var (
	hourPattern   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:hr|hour|h|hrs)`)
	minutePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:min|minute|m|mins)`)
	barePattern   = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	sixty         = decimal.NewFromInt(60)
)

// ParseHours extracts a quantity of hours from a time-spent cell.
//
// Every unit-marked number is summed, minutes converted to hours. With no
// unit marker the first bare number is taken as hours. No number at all
// yields 0. The result is rounded to 2 decimals and never negative.
func ParseHours(text string) generic.Hours {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return generic.ZeroHours
	}

	total := decimal.Zero
	for _, m := range hourPattern.FindAllStringSubmatch(text, -1) {
		total = total.Add(decimal.RequireFromString(m[1]))
	}
	for _, m := range minutePattern.FindAllStringSubmatch(text, -1) {
		total = total.Add(decimal.RequireFromString(m[1]).Div(sixty))
	}

	if total.IsZero() {
		if n := barePattern.FindString(text); n != "" {
			total = decimal.RequireFromString(n)
		}
	}

	return generic.HoursFromDecimal(total).Round2()
}

// lineAnnotation matches a per-line hour annotation such as "(2h)" or "(30 mins)".
var lineAnnotation = regexp.MustCompile(`\((\d+(?:\.\d+)?)\s*(?:hrs?|hours?|h|mins?|minutes?|m)\)`)

// ParseLineAnnotation returns the hours annotated on a single sub-task line.
// The quantity is read as minutes when the line mentions "min".
func ParseLineAnnotation(line string) (generic.Hours, bool) {
	lower := strings.ToLower(line)
	m := lineAnnotation.FindStringSubmatch(lower)
	if m == nil {
		return generic.ZeroHours, false
	}
	v := decimal.RequireFromString(m[1])
	if strings.Contains(lower, "min") {
		v = v.Div(sixty)
	}
	return generic.HoursFromDecimal(v), true
}
