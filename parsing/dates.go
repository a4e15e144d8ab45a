package parsing

import (
	"fmt"
	"strings"
	"time"

	"github.com/warp/report-engine/generic"
)

// dateLayouts are tried in order; the first that parses wins. Day-first is
// tried before month-first, so "03/04/2024" is 3 April.
var dateLayouts = []string{
	"2/1/2006", // DD/MM/YYYY
	"1/2/2006", // MM/DD/YYYY
	"2006-1-2", // YYYY-MM-DD
	"2-1-2006", // DD-MM-YYYY
	"1-2-2006", // MM-DD-YYYY
}

// timestampLayouts are the fallbacks for cells holding a full timestamp.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"1/2/2006 15:04:05",
	"2/1/2006 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
}

// ParseDate parses a work-report date cell. Future dates are accepted.
func ParseDate(s string) (generic.Day, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return generic.Day{}, fmt.Errorf("%w: empty", generic.ErrBadDate)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return generic.DayOf(t), nil
		}
	}
	if t, ok := ParseTimestamp(s); ok {
		return generic.DayOf(t), nil
	}
	return generic.Day{}, fmt.Errorf("%w: %q", generic.ErrBadDate, s)
}

// ParseTimestamp parses a form submission timestamp.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
