/*
Package sqlite provides a SQLite-backed import store and load-run log.

PURPOSE:
  Roster and work-report files uploaded through the API are persisted
  here as raw rows, so the engine can be reloaded from them like from any
  other feed. Every reload is recorded in an append-only load log.

INTERFACES IMPLEMENTED:
  generic.RosterSource:     Imported roster rows
  generic.WorkReportSource: Imported work-report rows
  generic.LoadLog:          Reload history

KEY TABLES:
  roster_rows:       Raw roster rows, replaced wholesale on import
  work_report_rows:  Raw work-report rows, replaced or appended on import
  load_runs:         One row per reload attempt, never updated

IMPORT SEMANTICS:
  A replace is one transaction: a failed import leaves the previous rows
  in place. Rows keep their upload order through an autoincrement key.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/reports.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  eng := analytics.New(analytics.Options{Roster: store, WorkReports: store, Log: store})

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/report-engine/generic"
)

// Store implements the source and load-log interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Imported roster
	CREATE TABLE IF NOT EXISTS roster_rows (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		name_email TEXT NOT NULL,
		mobile TEXT NOT NULL DEFAULT '',
		emergency_number TEXT NOT NULL DEFAULT '',
		emergency_name TEXT NOT NULL DEFAULT '',
		imported_at TEXT NOT NULL
	);

	-- Imported work reports
	CREATE TABLE IF NOT EXISTS work_report_rows (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		submitted_at TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		submitter_name TEXT NOT NULL DEFAULT '',
		report_date TEXT NOT NULL DEFAULT '',
		project TEXT NOT NULL DEFAULT '',
		tasks TEXT NOT NULL DEFAULT '',
		time_spent TEXT NOT NULL DEFAULT '',
		imported_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_work_report_rows_email
		ON work_report_rows(email);

	-- Load runs (append-only)
	CREATE TABLE IF NOT EXISTS load_runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		status TEXT NOT NULL,
		employees INTEGER NOT NULL DEFAULT 0,
		reports INTEGER NOT NULL DEFAULT 0,
		entries INTEGER NOT NULL DEFAULT 0,
		working_days INTEGER NOT NULL DEFAULT 0,
		roster_dropped INTEGER NOT NULL DEFAULT 0,
		reports_dropped INTEGER NOT NULL DEFAULT 0,
		dropped_json TEXT,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_load_runs_started
		ON load_runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// ROSTER (generic.RosterSource interface)
// =============================================================================

// ReplaceRoster swaps the imported roster for rows atomically.
func (s *Store) ReplaceRoster(ctx context.Context, rows []generic.RosterRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM roster_rows"); err != nil {
		return fmt.Errorf("failed to clear roster: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO roster_rows (name_email, mobile, emergency_number, emergency_name, imported_at)
			VALUES (?, ?, ?, ?, ?)
		`, r.NameEmail, r.Mobile, r.EmergencyNumber, r.EmergencyName, now); err != nil {
			return fmt.Errorf("failed to insert roster row: %w", err)
		}
	}

	return tx.Commit()
}

// FetchRoster returns the imported roster in upload order.
func (s *Store) FetchRoster(ctx context.Context) ([]generic.RosterRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT name_email, mobile, emergency_number, emergency_name
		FROM roster_rows ORDER BY seq
	`)
	if err != nil {
		return nil, &generic.FeedError{Feed: "roster", Err: err}
	}
	defer rows.Close()

	result := []generic.RosterRow{}
	for rows.Next() {
		var r generic.RosterRow
		if err := rows.Scan(&r.NameEmail, &r.Mobile, &r.EmergencyNumber, &r.EmergencyName); err != nil {
			return nil, &generic.FeedError{Feed: "roster", Err: err}
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &generic.FeedError{Feed: "roster", Err: err}
	}
	return result, nil
}

// =============================================================================
// WORK REPORTS (generic.WorkReportSource interface)
// =============================================================================

// ReplaceWorkReports swaps the imported work reports for rows atomically.
func (s *Store) ReplaceWorkReports(ctx context.Context, rows []generic.WorkReportRow) error {
	return s.writeWorkReports(ctx, rows, true)
}

// AppendWorkReports adds rows after the imported work reports.
func (s *Store) AppendWorkReports(ctx context.Context, rows []generic.WorkReportRow) error {
	return s.writeWorkReports(ctx, rows, false)
}

func (s *Store) writeWorkReports(ctx context.Context, rows []generic.WorkReportRow, replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if replace {
		if _, err := tx.ExecContext(ctx, "DELETE FROM work_report_rows"); err != nil {
			return fmt.Errorf("failed to clear work reports: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range rows {
		if err := insertWorkReport(ctx, tx, r, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertWorkReport(ctx context.Context, db execer, r generic.WorkReportRow, importedAt string) error {
	query := `
		INSERT INTO work_report_rows
		(submitted_at, email, submitter_name, report_date, project, tasks, time_spent, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		r.Timestamp, r.Email, r.SubmitterName, r.Date, r.Project, r.Tasks, r.TimeSpent, importedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert work report row: %w", err)
	}
	return nil
}

// FetchWorkReports returns the imported work reports in upload order.
func (s *Store) FetchWorkReports(ctx context.Context) ([]generic.WorkReportRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT submitted_at, email, submitter_name, report_date, project, tasks, time_spent
		FROM work_report_rows ORDER BY seq
	`)
	if err != nil {
		return nil, &generic.FeedError{Feed: "work_report", Err: err}
	}
	defer rows.Close()

	result := []generic.WorkReportRow{}
	for rows.Next() {
		var r generic.WorkReportRow
		if err := rows.Scan(&r.Timestamp, &r.Email, &r.SubmitterName, &r.Date, &r.Project, &r.Tasks, &r.TimeSpent); err != nil {
			return nil, &generic.FeedError{Feed: "work_report", Err: err}
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &generic.FeedError{Feed: "work_report", Err: err}
	}
	return result, nil
}

// =============================================================================
// LOAD LOG (generic.LoadLog interface)
// =============================================================================

// RecordLoad appends a load run.
func (s *Store) RecordLoad(ctx context.Context, run generic.LoadRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dropped sql.NullString
	if len(run.DroppedByReason) > 0 {
		b, err := json.Marshal(run.DroppedByReason)
		if err != nil {
			return fmt.Errorf("failed to encode drop counts: %w", err)
		}
		dropped = sql.NullString{String: string(b), Valid: true}
	}

	query := `
		INSERT INTO load_runs (id, started_at, finished_at, status, employees, reports, entries,
			working_days, roster_dropped, reports_dropped, dropped_json, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Status,
		run.Employees, run.Reports, run.Entries, run.WorkingDays,
		run.RosterDropped, run.ReportsDropped,
		dropped,
		nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to record load run: %w", err)
	}
	return nil
}

// ListLoads returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) ListLoads(ctx context.Context, limit int) ([]generic.LoadRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, started_at, finished_at, status, employees, reports, entries,
			working_days, roster_dropped, reports_dropped, dropped_json, error
		FROM load_runs
		ORDER BY started_at DESC, rowid DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []generic.LoadRun{}
	for rows.Next() {
		var r generic.LoadRun
		var startedAt, finishedAt string
		var dropped, errText sql.NullString
		if err := rows.Scan(
			&r.ID, &startedAt, &finishedAt, &r.Status,
			&r.Employees, &r.Reports, &r.Entries, &r.WorkingDays,
			&r.RosterDropped, &r.ReportsDropped, &dropped, &errText,
		); err != nil {
			return nil, err
		}

		if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("failed to parse started_at of run %s: %w", r.ID, err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("failed to parse finished_at of run %s: %w", r.ID, err)
		}
		r.Error = errText.String
		if dropped.Valid {
			if err := json.Unmarshal([]byte(dropped.String), &r.DroppedByReason); err != nil {
				return nil, fmt.Errorf("failed to decode drop counts: %w", err)
			}
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Counts returns the number of imported roster and work-report rows.
func (s *Store) Counts(ctx context.Context) (roster, workReports int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM roster_rows").Scan(&roster); err != nil {
		return 0, 0, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM work_report_rows").Scan(&workReports); err != nil {
		return 0, 0, err
	}
	return roster, workReports, nil
}

// Reset clears all imported rows and the load log (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"roster_rows", "work_report_rows", "load_runs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
