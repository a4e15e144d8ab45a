/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the report engine server. Handles configuration,
  dependency injection, the initial load and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment)
  2. Initialize the JSON logger and the SQLite store
  3. Pick feed sources: CSV/XLSX locations when configured, else the
     rows imported into SQLite
  4. Load the billing rulebook (RULES_FILE, or the built-in one)
  5. Run the first reload, then start the reload scheduler
  6. Start the HTTP server with graceful shutdown

ENVIRONMENT:
  APP_PORT, APP_ENV, LOG_LEVEL, DB_PATH, CORS_ORIGINS, ROSTER_CSV,
  WORK_REPORT_CSV, WORK_REPORT_XLSX, WORK_REPORT_SHEET, RULES_FILE,
  FEED_TIMEOUT, RELOAD_INTERVAL. See config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the reload scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

SEE ALSO:
  - api/server.go: Router configuration
  - analytics/engine.go: Load and snapshot publication
  - store/sqlite/sqlite.go: Import store
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog/v3"
	"github.com/warp/report-engine/analytics"
	"github.com/warp/report-engine/api"
	"github.com/warp/report-engine/billing"
	"github.com/warp/report-engine/classify"
	"github.com/warp/report-engine/config"
	"github.com/warp/report-engine/factory"
	"github.com/warp/report-engine/feed"
	"github.com/warp/report-engine/generic"
	"github.com/warp/report-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := config.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logFormat := httplog.SchemaECS.Concise(!cfg.IsProduction())
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "report-engine"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	rules, classifier, err := loadRules(cfg.Feeds.RulesFile)
	if err != nil {
		return err
	}

	roster, workReports, imports := pickSources(cfg, store)
	engine := analytics.New(analytics.Options{
		Roster:      roster,
		WorkReports: workReports,
		Log:         store,
		Rules:       rules,
		Classifier:  classifier,
		Logger:      logger,
	})

	// First load; a failed one leaves the empty snapshot published
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 2*cfg.Feeds.Timeout)
	if _, err := engine.Reload(loadCtx); err != nil {
		logger.Error("Initial load failed", "error", err)
	}
	cancelLoad()

	scheduler := api.NewReloadScheduler(engine, cfg.Reload.Interval, logger)
	scheduler.Start()
	defer scheduler.Stop()

	var importStore api.ImportStore
	if imports {
		importStore = store
	}
	handler := api.NewHandler(engine, importStore, logger)
	router := api.NewRouter(handler, api.RouterOptions{CORSOrigins: cfg.App.CORSOrigins, Logger: logger})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "addr", server.Addr, "imports", imports)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-quit:
	}

	logger.Info("Shutting down server")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// loadRules returns the rulebook and classifier from path, or the built-in
// ones when path is empty.
func loadRules(path string) (*billing.RuleBook, *classify.Classifier, error) {
	if path == "" {
		return billing.DefaultRuleBook(), classify.Default(), nil
	}
	doc, err := factory.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load rules: %w", err)
	}
	rb, err := doc.RuleBook()
	if err != nil {
		return nil, nil, fmt.Errorf("load rules: %w", err)
	}
	cl, err := doc.Classifier()
	if err != nil {
		return nil, nil, fmt.Errorf("load rules: %w", err)
	}
	return rb, cl, nil
}

// pickSources prefers configured feed locations over the import store.
// Uploads are only accepted when both feeds read from the store.
func pickSources(cfg *config.Config, store *sqlite.Store) (generic.RosterSource, generic.WorkReportSource, bool) {
	client := &http.Client{Timeout: cfg.Feeds.Timeout}

	var roster generic.RosterSource = store
	if cfg.Feeds.RosterCSV != "" {
		roster = &feed.CSVRoster{Location: cfg.Feeds.RosterCSV, Client: client}
	}

	var workReports generic.WorkReportSource = store
	switch {
	case cfg.Feeds.WorkReportCSV != "":
		workReports = &feed.CSVWorkReports{Location: cfg.Feeds.WorkReportCSV, Client: client}
	case cfg.Feeds.WorkReportXLSX != "":
		workReports = &feed.XLSXWorkReports{Path: cfg.Feeds.WorkReportXLSX, Sheet: cfg.Feeds.WorkReportSheet}
	}

	imports := cfg.Feeds.RosterCSV == "" && cfg.Feeds.WorkReportCSV == "" && cfg.Feeds.WorkReportXLSX == ""
	return roster, workReports, imports
}
