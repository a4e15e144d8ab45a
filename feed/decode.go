/*
Package feed turns tabular exports into raw rows and raw rows into reports.

PURPOSE:
  The roster and the work-report log live in spreadsheets. This package
  reads them (CSV over HTTP or from disk, XLSX workbooks), maps sheet
  columns onto row fields, and applies the row-level data-quality rules
  that turn raw rows into generic.Report values.

DATA QUALITY:
  Bad rows are dropped and counted, never fatal:
    - no email address        -> ErrNoEmail
    - unparseable date        -> ErrBadDate
    - missing required column -> ErrMissingColumn (every row dropped)
  Only a roster whose header cannot hold the four roster columns is a
  structural failure (ErrRosterSchema).

COLUMNS:
  Roster (positional): name/email text, mobile, emergency number, emergency name
  Work reports (by header): Timestamp, Email Address, Enter your name,
  Select the date, Project, Tasks Completed, Time Spent

SEE ALSO:
  - ingest.go: Row -> Report
  - csv.go, xlsx.go: Sources
*/
package feed

import (
	"fmt"
	"strings"

	"github.com/warp/report-engine/generic"
)

// =============================================================================
// COLUMNS
// =============================================================================

// rosterColumns is the number of positional roster columns.
const rosterColumns = 4

// Work-report header names.
const (
	ColTimestamp = "Timestamp"
	ColEmail     = "Email Address"
	ColName      = "Enter your name"
	ColDate      = "Select the date"
	ColProject   = "Project"
	ColTasks     = "Tasks Completed"
	ColTimeSpent = "Time Spent"
)

// WorkReportHeader is the canonical header, in export order.
var WorkReportHeader = []string{ColTimestamp, ColEmail, ColName, ColDate, ColProject, ColTasks, ColTimeSpent}

// RosterHeader is the header written for roster exports.
var RosterHeader = []string{"Name & Email", "Mobile Number", "Emergency Contact Number", "Emergency Contact Name"}

var requiredWorkColumns = []string{ColEmail, ColDate}

// =============================================================================
// DECODE
// =============================================================================

// DecodeRoster maps records (header first) onto roster rows by position.
// An empty sheet is an empty roster; a header narrower than four columns
// is a schema error.
func DecodeRoster(records [][]string) ([]generic.RosterRow, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if len(records[0]) < rosterColumns {
		return nil, fmt.Errorf("%w: header has %d columns, want %d", generic.ErrRosterSchema, len(records[0]), rosterColumns)
	}

	rows := make([]generic.RosterRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		rows = append(rows, generic.RosterRow{
			NameEmail:       cell(rec, 0),
			Mobile:          cell(rec, 1),
			EmergencyNumber: cell(rec, 2),
			EmergencyName:   cell(rec, 3),
		})
	}
	return rows, nil
}

// DecodeWorkReports maps records (header first) onto work-report rows by
// header name. Optional columns that are absent decode as empty strings.
// A missing required column drops every row and is reported as a
// DataQualityError.
func DecodeWorkReports(records [][]string) ([]generic.WorkReportRow, error) {
	if len(records) == 0 {
		return nil, nil
	}

	idx := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		idx[normalizeHeader(h)] = i
	}
	for _, col := range requiredWorkColumns {
		if _, ok := idx[normalizeHeader(col)]; !ok {
			return nil, &generic.DataQualityError{
				Source: "work_report", Row: 0, Reason: generic.ErrMissingColumn, Value: col,
			}
		}
	}

	get := func(rec []string, col string) string {
		i, ok := idx[normalizeHeader(col)]
		if !ok {
			return ""
		}
		return cell(rec, i)
	}

	rows := make([]generic.WorkReportRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		rows = append(rows, generic.WorkReportRow{
			Timestamp:     get(rec, ColTimestamp),
			Email:         get(rec, ColEmail),
			SubmitterName: get(rec, ColName),
			Date:          get(rec, ColDate),
			Project:       get(rec, ColProject),
			Tasks:         get(rec, ColTasks),
			TimeSpent:     get(rec, ColTimeSpent),
		})
	}
	return rows, nil
}

// EncodeWorkReports is the inverse of DecodeWorkReports.
func EncodeWorkReports(rows []generic.WorkReportRow) [][]string {
	out := [][]string{WorkReportHeader}
	for _, r := range rows {
		out = append(out, []string{r.Timestamp, r.Email, r.SubmitterName, r.Date, r.Project, r.Tasks, r.TimeSpent})
	}
	return out
}

// EncodeRoster is the inverse of DecodeRoster.
func EncodeRoster(rows []generic.RosterRow) [][]string {
	out := [][]string{RosterHeader}
	for _, r := range rows {
		out = append(out, []string{r.NameEmail, r.Mobile, r.EmergencyNumber, r.EmergencyName})
	}
	return out
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

func cell(rec []string, i int) string {
	if i < len(rec) {
		return rec[i]
	}
	return ""
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
