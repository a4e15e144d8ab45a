/*
Package analytics is the facade the HTTP layer talks to.

PURPOSE:
  The Engine owns the raw sources, the rule tables and the published
  Dataset. A reload fetches both feeds, decodes, classifies and caps
  everything into a brand new Dataset, then publishes it with a single
  atomic pointer swap. Queries load the pointer once, so every answer is
  computed from exactly one snapshot even while a reload is running.

ERROR PROPAGATION:
  Bad rows:          counted in the LoadReport, never returned
  Missing column:    every work-report row dropped, counted, never returned
  Feed unavailable:  that feed is treated as empty, load is "degraded"
  Roster schema:     load fails, previous snapshot stays published

USAGE:
  eng := analytics.New(analytics.Options{Roster: r, WorkReports: w})
  if _, err := eng.Reload(ctx); err != nil { ... }
  m, err := eng.GetEmployeeMetrics("alice@example.com")

SEE ALSO:
  - aggregate/: The reports computed from a Dataset
  - api/scheduler.go: Periodic reloads
*/
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/warp/report-engine/aggregate"
	"github.com/warp/report-engine/billing"
	"github.com/warp/report-engine/classify"
	"github.com/warp/report-engine/feed"
	"github.com/warp/report-engine/generic"
	"github.com/warp/report-engine/identity"
)

// =============================================================================
// ENGINE
// =============================================================================

// Options configures an Engine. Nil sources are empty feeds; nil rules and
// classifier fall back to the standard tables.
type Options struct {
	Roster      generic.RosterSource
	WorkReports generic.WorkReportSource
	Log         generic.LoadLog
	Rules       *billing.RuleBook
	Classifier  *classify.Classifier
	Logger      *slog.Logger
	Now         func() time.Time
}

// Engine loads feeds into immutable snapshots and answers queries on them.
type Engine struct {
	roster      generic.RosterSource
	workReports generic.WorkReportSource
	loadLog     generic.LoadLog
	rules       *billing.RuleBook
	classifier  *classify.Classifier
	logger      *slog.Logger
	now         func() time.Time

	reloadMu sync.Mutex // one reload at a time
	current  atomic.Pointer[aggregate.Dataset]
	last     atomic.Pointer[LoadReport]
}

// New creates an engine publishing an empty dataset. Call Reload to load.
func New(opts Options) *Engine {
	e := &Engine{
		roster:      opts.Roster,
		workReports: opts.WorkReports,
		loadLog:     opts.Log,
		rules:       opts.Rules,
		classifier:  opts.Classifier,
		logger:      opts.Logger,
		now:         opts.Now,
	}
	if e.rules == nil {
		e.rules = billing.DefaultRuleBook()
	}
	if e.classifier == nil {
		e.classifier = classify.Default()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.current.Store(aggregate.Empty(e.rules, e.now()))
	return e
}

// Snapshot returns the currently published dataset. It never returns nil.
func (e *Engine) Snapshot() *aggregate.Dataset {
	return e.current.Load()
}

// Rules returns the rule book in use.
func (e *Engine) Rules() *billing.RuleBook { return e.rules }

// LastLoad returns the report of the most recent reload, or nil.
func (e *Engine) LastLoad() *LoadReport { return e.last.Load() }

// Loads returns recorded load runs, newest first.
func (e *Engine) Loads(ctx context.Context, limit int) ([]generic.LoadRun, error) {
	if e.loadLog == nil {
		return []generic.LoadRun{}, nil
	}
	return e.loadLog.ListLoads(ctx, limit)
}

// =============================================================================
// RELOAD
// =============================================================================

// LoadReport describes one reload.
type LoadReport struct {
	Run        generic.LoadRun     `json:"run"`
	Roster     identity.BuildStats `json:"-"`
	Reports    feed.Stats          `json:"work_reports"`
	FeedErrors []string            `json:"feed_errors,omitempty"`
}

// Reload fetches both feeds and publishes a new snapshot. Only a roster
// schema error is returned; the previous snapshot then stays published.
func (e *Engine) Reload(ctx context.Context) (*LoadReport, error) {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	rep := &LoadReport{Run: generic.LoadRun{
		ID:        uuid.NewString(),
		StartedAt: e.now().UTC(),
		Status:    generic.LoadSucceeded,
	}}

	rosterRows, err := e.fetchRoster(ctx)
	switch {
	case errors.Is(err, generic.ErrRosterSchema):
		rep.Run.Status = generic.LoadFailed
		rep.Run.Error = err.Error()
		e.finish(ctx, rep)
		e.logger.Error("reload failed, keeping previous snapshot", "load_id", rep.Run.ID, "error", err)
		return rep, fmt.Errorf("reload: %w", err)
	case err != nil:
		e.degrade(rep, "roster", err)
		rosterRows = nil
	}
	dir, rosterStats := identity.Build(rosterRows)
	rep.Roster = rosterStats

	workRows, err := e.fetchWorkReports(ctx)
	var missing error
	switch {
	case generic.IsDataQuality(err):
		missing = err
		e.logger.Warn("work report feed unusable, dropping all rows", "load_id", rep.Run.ID, "error", err)
		workRows = nil
	case err != nil:
		e.degrade(rep, "work_report", err)
		workRows = nil
	}

	reports, stats := feed.Ingest(workRows, dir, e.rules, e.logger)
	if missing != nil {
		stats.MergeDrop(missing)
	}
	rep.Reports = stats

	entries := e.classifier.ExpandAll(reports)
	ds := aggregate.New(dir, e.rules, reports, entries, e.now())
	e.current.Store(ds)

	rep.Run.Employees = dir.Len()
	rep.Run.Reports = len(reports)
	rep.Run.Entries = len(entries)
	rep.Run.WorkingDays = ds.WorkingDays.Len()
	rep.Run.RosterDropped = rosterStats.Dropped()
	rep.Run.ReportsDropped = stats.DroppedTotal()
	rep.Run.DroppedByReason = stats.Dropped
	e.finish(ctx, rep)

	if ds.IsEmpty() {
		e.logger.Warn("reload produced an empty dataset", "load_id", rep.Run.ID, "error", generic.ErrEmptyDataset)
	}
	e.logger.Info("reload complete",
		"load_id", rep.Run.ID,
		"status", rep.Run.Status,
		"employees", rep.Run.Employees,
		"reports", rep.Run.Reports,
		"working_days", rep.Run.WorkingDays,
		"roster_dropped", rep.Run.RosterDropped,
		"reports_dropped", rep.Run.ReportsDropped,
		"dropped_by_reason", stats.Dropped,
	)
	return rep, nil
}

func (e *Engine) fetchRoster(ctx context.Context) ([]generic.RosterRow, error) {
	if e.roster == nil {
		return nil, nil
	}
	return e.roster.FetchRoster(ctx)
}

func (e *Engine) fetchWorkReports(ctx context.Context) ([]generic.WorkReportRow, error) {
	if e.workReports == nil {
		return nil, nil
	}
	return e.workReports.FetchWorkReports(ctx)
}

func (e *Engine) degrade(rep *LoadReport, feedName string, err error) {
	rep.Run.Status = generic.LoadDegraded
	rep.FeedErrors = append(rep.FeedErrors, err.Error())
	if rep.Run.Error == "" {
		rep.Run.Error = err.Error()
	}
	e.logger.Warn("feed unavailable, using empty feed", "load_id", rep.Run.ID, "feed", feedName, "error", err)
}

// finish stamps the run, records it and publishes the report. A failure
// to record is logged; it does not fail the reload.
func (e *Engine) finish(ctx context.Context, rep *LoadReport) {
	rep.Run.FinishedAt = e.now().UTC()
	if e.loadLog != nil {
		if err := e.loadLog.RecordLoad(ctx, rep.Run); err != nil {
			e.logger.Warn("failed to record load run", "load_id", rep.Run.ID, "error", err)
		}
	}
	e.last.Store(rep)
}
