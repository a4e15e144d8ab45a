/*
scheduler.go - Periodic feed reload scheduler

PURPOSE:
  Re-fetches the roster and work-report feeds on an interval so the
  published snapshot follows the upstream sheets without a restart.

DESIGN:
  - Runs a background goroutine with a configurable interval
  - The first reload is the caller's; the scheduler only reloads on ticks
  - Stop cancels an in-flight reload and waits for the goroutine
  - Failed reloads are logged; the previous snapshot stays published

USAGE:
  scheduler := NewReloadScheduler(engine, 15*time.Minute, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Reload endpoint (manual reload)
  - analytics/engine.go: Reload
*/
package api

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warp/report-engine/analytics"
)

// Reloader publishes a fresh snapshot.
type Reloader interface {
	Reload(ctx context.Context) (*analytics.LoadReport, error)
}

// ReloadScheduler reloads the feeds on a fixed interval.
type ReloadScheduler struct {
	Engine   Reloader
	Interval time.Duration
	Logger   *slog.Logger

	ticker *time.Ticker
	stop   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	runs   atomic.Int64
}

// NewReloadScheduler creates a new scheduler.
func NewReloadScheduler(engine Reloader, interval time.Duration, logger *slog.Logger) *ReloadScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReloadScheduler{
		Engine:   engine,
		Interval: interval,
		Logger:   logger,
	}
}

// Start begins the scheduler. A non-positive interval leaves it disabled.
func (rs *ReloadScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.Interval <= 0 {
		rs.Logger.Info("reload scheduler disabled")
		return
	}
	if rs.ticker != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rs.ticker = time.NewTicker(rs.Interval)
	rs.stop = make(chan struct{})
	rs.cancel = cancel
	rs.wg.Add(1)

	go rs.run(ctx, rs.ticker, rs.stop)

	rs.Logger.Info("reload scheduler started", "interval", rs.Interval.String())
}

// Stop stops the scheduler.
func (rs *ReloadScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker == nil {
		return
	}
	rs.ticker.Stop()
	rs.cancel()
	close(rs.stop)
	rs.wg.Wait()
	rs.ticker = nil
	rs.Logger.Info("reload scheduler stopped")
}

func (rs *ReloadScheduler) run(ctx context.Context, ticker *time.Ticker, stop <-chan struct{}) {
	defer rs.wg.Done()

	for {
		select {
		case <-ticker.C:
			rs.RunNow(ctx)
		case <-stop:
			return
		}
	}
}

// RunNow reloads immediately (for testing/admin).
func (rs *ReloadScheduler) RunNow(ctx context.Context) {
	rep, err := rs.Engine.Reload(ctx)
	rs.runs.Add(1)
	if err != nil {
		rs.Logger.Error("scheduled reload failed", "error", err)
		return
	}
	rs.Logger.Debug("scheduled reload done", "load_id", rep.Run.ID, "status", rep.Run.Status)
}

// Runs returns how many reloads the scheduler has attempted.
func (rs *ReloadScheduler) Runs() int { return int(rs.runs.Load()) }
