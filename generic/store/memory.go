// Package store provides in-memory source and load-log implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/report-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds roster and work-report rows in memory and records load runs.
// It satisfies RosterSource, WorkReportSource and LoadLog.
type Memory struct {
	mu          sync.RWMutex
	roster      []generic.RosterRow
	workReports []generic.WorkReportRow
	loads       []generic.LoadRun

	// Failure injection for tests.
	rosterErr error
	reportErr error
}

func NewMemory() *Memory {
	return &Memory{}
}

// SetRoster replaces the roster rows.
func (m *Memory) SetRoster(rows []generic.RosterRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roster = append([]generic.RosterRow(nil), rows...)
}

// SetWorkReports replaces the work-report rows.
func (m *Memory) SetWorkReports(rows []generic.WorkReportRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workReports = append([]generic.WorkReportRow(nil), rows...)
}

// AppendWorkReports adds rows to the end of the work-report log.
func (m *Memory) AppendWorkReports(rows ...generic.WorkReportRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workReports = append(m.workReports, rows...)
}

// FailRoster makes the next roster fetches return err (nil clears it).
func (m *Memory) FailRoster(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rosterErr = err
}

// FailWorkReports makes the next work-report fetches return err (nil clears it).
func (m *Memory) FailWorkReports(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reportErr = err
}

func (m *Memory) FetchRoster(_ context.Context) ([]generic.RosterRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.rosterErr != nil {
		return nil, m.rosterErr
	}
	result := make([]generic.RosterRow, len(m.roster))
	copy(result, m.roster)
	return result, nil
}

func (m *Memory) FetchWorkReports(_ context.Context) ([]generic.WorkReportRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.reportErr != nil {
		return nil, m.reportErr
	}
	result := make([]generic.WorkReportRow, len(m.workReports))
	copy(result, m.workReports)
	return result, nil
}

// =============================================================================
// LOAD LOG
// =============================================================================

// RecordLoad appends a run. Append-only.
func (m *Memory) RecordLoad(_ context.Context, run generic.LoadRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Keep ordered by StartedAt so ListLoads can return newest first.
	i := sort.Search(len(m.loads), func(i int) bool {
		return m.loads[i].StartedAt.After(run.StartedAt)
	})
	m.loads = append(m.loads, generic.LoadRun{})
	copy(m.loads[i+1:], m.loads[i:])
	m.loads[i] = run
	return nil
}

// ListLoads returns up to limit runs, newest first. limit <= 0 returns all.
func (m *Memory) ListLoads(_ context.Context, limit int) ([]generic.LoadRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.LoadRun
	for i := len(m.loads) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		result = append(result, m.loads[i])
	}
	return result, nil
}
