/*
store.go - Interfaces between the engine and its raw data sources

PURPOSE:
  Defines what the engine needs from the outside world: two tabular feeds
  (the roster and the work-report log) and a place to record load runs.
  Different implementations fetch from CSV exports, XLSX workbooks,
  SQLite imports or memory.

KEY INTERFACES:
  RosterSource:      Yields raw roster rows
  WorkReportSource:  Yields raw work-report rows
  LoadLog:           Append-only history of reloads

RAW ROWS:
  Rows are strings exactly as the upstream sheet holds them. All parsing
  (emails, dates, hours) happens in feed/ingest.go so that every source
  shares the same data-quality rules.

IMPLEMENTATIONS:
  - feed/csv.go: Published CSV exports (HTTP or file)
  - feed/xlsx.go: Excel workbooks
  - store/sqlite/sqlite.go: Rows imported through the API, plus the load log
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - analytics/engine.go: Consumes sources on reload
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// RAW ROWS
// =============================================================================

// RosterRow is one raw roster row. NameEmail holds a free-form
// "Name <email>" cell, possibly with several addresses.
type RosterRow struct {
	NameEmail       string `json:"name_email"`
	Mobile          string `json:"mobile"`
	EmergencyNumber string `json:"emergency_number"`
	EmergencyName   string `json:"emergency_name"`
}

// WorkReportRow is one raw work-report row.
type WorkReportRow struct {
	Timestamp     string `json:"timestamp"`
	Email         string `json:"email"`
	SubmitterName string `json:"submitter_name"`
	Date          string `json:"date"`
	Project       string `json:"project"`
	Tasks         string `json:"tasks"`
	TimeSpent     string `json:"time_spent"`
}

// =============================================================================
// SOURCES
// =============================================================================

// RosterSource fetches the employee roster.
type RosterSource interface {
	FetchRoster(ctx context.Context) ([]RosterRow, error)
}

// WorkReportSource fetches the work-report log.
type WorkReportSource interface {
	FetchWorkReports(ctx context.Context) ([]WorkReportRow, error)
}

// =============================================================================
// LOAD LOG - Append-only history of reloads
// =============================================================================

// LoadStatus is the outcome of a reload.
type LoadStatus string

const (
	LoadSucceeded LoadStatus = "succeeded"
	LoadDegraded  LoadStatus = "degraded" // a feed was unavailable; empty feed used
	LoadFailed    LoadStatus = "failed"   // snapshot not replaced
)

// LoadRun records one reload attempt.
type LoadRun struct {
	ID              string         `json:"id"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
	Status          LoadStatus     `json:"status"`
	Employees       int            `json:"employees"`
	Reports         int            `json:"reports"`
	Entries         int            `json:"entries"`
	WorkingDays     int            `json:"working_days"`
	RosterDropped   int            `json:"roster_dropped"`
	ReportsDropped  int            `json:"reports_dropped"`
	DroppedByReason map[string]int `json:"dropped_by_reason,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// LoadLog persists load runs. Append-only.
type LoadLog interface {
	RecordLoad(ctx context.Context, run LoadRun) error
	ListLoads(ctx context.Context, limit int) ([]LoadRun, error)
}
