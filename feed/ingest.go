package feed

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/warp/report-engine/generic"
	"github.com/warp/report-engine/parsing"
)

// =============================================================================
// INGEST - Raw rows to reports
// =============================================================================

// Resolver maps raw submitter addresses to canonical primary emails.
type Resolver interface {
	PrimaryOf(email string) string
}

// ProjectNormalizer maps a raw project cell onto a canonical project name.
type ProjectNormalizer interface {
	NormalizeProject(raw string) string
}

// maxIssues bounds how many individual row errors are retained per load.
const maxIssues = 100

// Stats reports what Ingest kept and dropped.
type Stats struct {
	RowsRead int            `json:"rows_read"`
	RowsKept int            `json:"rows_kept"`
	Dropped  map[string]int `json:"dropped"`
	Issues   []error        `json:"-"`
}

// DroppedTotal returns the number of dropped rows.
func (s Stats) DroppedTotal() int { return s.RowsRead - s.RowsKept }

func (s *Stats) drop(err *generic.DataQualityError) {
	if s.Dropped == nil {
		s.Dropped = make(map[string]int)
	}
	s.Dropped[err.Reason.Error()]++
	if len(s.Issues) < maxIssues {
		s.Issues = append(s.Issues, err)
	}
}

// Ingest decodes raw work-report rows into reports. Each report carries
// its resolved employee, parsed date, normalised project, parsed hours and
// task count. Rows without an email or with an unparseable date are
// dropped and counted; they never fail the load.
func Ingest(rows []generic.WorkReportRow, resolver Resolver, projects ProjectNormalizer, logger *slog.Logger) ([]generic.Report, Stats) {
	if logger == nil {
		logger = slog.Default()
	}
	stats := Stats{RowsRead: len(rows)}
	reports := make([]generic.Report, 0, len(rows))

	for i, row := range rows {
		rowNum := i + 1

		email := strings.ToLower(strings.TrimSpace(row.Email))
		if email == "" || email == "nan" {
			dq := &generic.DataQualityError{Source: "work_report", Row: rowNum, Reason: generic.ErrNoEmail}
			stats.drop(dq)
			logger.Debug("dropping work report row", "row", rowNum, "reason", dq.Reason.Error())
			continue
		}

		date, err := parsing.ParseDate(row.Date)
		if err != nil {
			dq := &generic.DataQualityError{Source: "work_report", Row: rowNum, Reason: generic.ErrBadDate, Value: row.Date}
			stats.drop(dq)
			logger.Debug("dropping work report row", "row", rowNum, "reason", dq.Reason.Error(), "value", row.Date)
			continue
		}

		submitted, ok := parsing.ParseTimestamp(row.Timestamp)
		if !ok {
			submitted = date.Time
		}

		reports = append(reports, generic.Report{
			ID:          rowNum,
			Email:       email,
			Employee:    resolver.PrimaryOf(email),
			Name:        strings.TrimSpace(row.SubmitterName),
			SubmittedAt: submitted.UTC(),
			Date:        date,
			Project:     projects.NormalizeProject(row.Project),
			Tasks:       strings.TrimSpace(row.Tasks),
			Hours:       parsing.ParseHours(row.TimeSpent),
			TaskCount:   parsing.CountTasks(row.Tasks),
		})
	}

	stats.RowsKept = len(reports)
	return reports, stats
}

// MergeDrop folds an upstream data-quality error (such as a missing
// required column) into stats.
func (s *Stats) MergeDrop(err error) bool {
	var dq *generic.DataQualityError
	if !errors.As(err, &dq) {
		return false
	}
	s.drop(dq)
	return true
}

// WorkingDates returns the report dates, one per report.
func WorkingDates(reports []generic.Report) []generic.Day {
	out := make([]generic.Day, len(reports))
	for i, r := range reports {
		out[i] = r.Date
	}
	return out
}
