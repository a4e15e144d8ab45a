package parsing

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var numberedLine = regexp.MustCompile(`^\d+\.`)

// longLine is the rune length above which a comma-separated line counts
// one task per clause.
const longLine = 20

// CountTasks estimates how many tasks a tasks-completed cell describes.
//
// A numbered list counts its numbered lines. Otherwise each non-empty line
// not starting with "-" or ":" counts 1, or commas+1 when it is longer than
// 20 characters and contains commas. Non-empty text counts at least 1.
func CountTasks(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}

	lines := strings.Split(text, "\n")

	numbered := 0
	for _, line := range lines {
		if numberedLine.MatchString(strings.TrimSpace(line)) {
			numbered++
		}
	}
	if numbered > 0 {
		return numbered
	}

	count := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-") || strings.HasPrefix(line, ":") {
			continue
		}
		commas := strings.Count(line, ",")
		if commas > 0 && utf8.RuneCountInString(line) > longLine {
			count += commas + 1
		} else {
			count++
		}
	}
	return max(1, count)
}

// SplitLines returns the trimmed non-empty lines of a multi-line cell.
func SplitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
