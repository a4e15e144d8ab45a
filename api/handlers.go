/*
handlers.go - HTTP API handlers for the report engine

PURPOSE:
  Exposes the analytics engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine. All reads go through the
  engine's published snapshot; no handler mutates it.

ENDPOINTS:
  Employees:
    GET    /api/employees                      Roster in order
    GET    /api/employees/search?name=         Find by partial name
    GET    /api/employees/metrics              Every employee's profile
    GET    /api/employees/compare?emails=a,b   Profiles side by side
    GET    /api/employees/multi-project        Employees on several projects
    GET    /api/employees/{email}/metrics      One profile, by any alias

  Team:
    GET    /api/team/metrics                   Team overview
    GET    /api/team/high-performers           Above a tasks/day threshold

  Projects:
    GET    /api/projects                       Every project seen
    GET    /api/projects/{project}/billing     Capped billing summary
    GET    /api/projects/{project}/violations  Days with extra hours
    ...                                        (see server.go)

  Loads and imports:
    POST   /api/loads/reload                   Reload both feeds
    POST   /api/imports/roster                 Upload a roster (CSV/XLSX)
    POST   /api/imports/work-reports           Upload work reports

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid dates, ranges, categories or uploads
  - 404: Unknown employee
  - 409: Imports disabled (feeds configured externally)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/warp/report-engine/aggregate"
	"github.com/warp/report-engine/analytics"
	"github.com/warp/report-engine/feed"
	"github.com/warp/report-engine/generic"
)

// maxUploadBytes bounds a multipart upload held in memory.
const maxUploadBytes = 10 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// ImportStore persists uploaded rows. The engine reads them back through
// its feed sources.
type ImportStore interface {
	ReplaceRoster(ctx context.Context, rows []generic.RosterRow) error
	ReplaceWorkReports(ctx context.Context, rows []generic.WorkReportRow) error
	AppendWorkReports(ctx context.Context, rows []generic.WorkReportRow) error
	Counts(ctx context.Context) (roster, workReports int, err error)
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *analytics.Engine
	// Imports is nil when the feeds are external; uploads are then refused.
	Imports ImportStore
	Logger  *slog.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler.
func NewHandler(engine *analytics.Engine, imports ImportStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Engine: engine, Imports: imports, Logger: logger}
}

// =============================================================================
// STATUS
// =============================================================================

// GetStatus summarises the published snapshot.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ds := h.Engine.Snapshot()
	resp := StatusDTO{
		Status:      "ready",
		Employees:   ds.Directory.Len(),
		Reports:     len(ds.Reports),
		Entries:     len(ds.Entries),
		WorkingDays: ds.WorkingDays.Len(),
		Projects:    h.Engine.Rules().Projects(),
		LastLoad:    h.Engine.LastLoad(),
	}
	if ds.IsEmpty() {
		resp.Status = "empty"
	} else {
		p := ds.Period()
		resp.Period = &p
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns the roster in order.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(h.Engine.ListEmployees()))
}

// FindEmployee finds an employee by partial name.
func (h *Handler) FindEmployee(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}
	emp, err := h.Engine.FindEmployee(name)
	if err != nil {
		writeEngineError(w, "Failed to find employee", err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

// GetAllEmployeeMetrics returns every employee's profile.
func (h *Handler) GetAllEmployeeMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(h.Engine.GetAllEmployeeMetrics()))
}

// CompareEmployeeMetrics returns the profiles of a comma-separated email list.
func (h *Handler) CompareEmployeeMetrics(w http.ResponseWriter, r *http.Request) {
	emails := splitList(r.URL.Query().Get("emails"))
	if len(emails) == 0 {
		writeError(w, http.StatusBadRequest, "emails is required", nil)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(h.Engine.CompareEmployeeMetrics(emails)))
}

// GetEmployeeMetrics returns one employee's profile.
func (h *Handler) GetEmployeeMetrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.Engine.GetEmployeeMetrics(pathParam(r, "email"))
	if err != nil {
		writeEngineError(w, "Failed to get employee metrics", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// GetMultiProject lists employees working on several projects.
func (h *Handler) GetMultiProject(w http.ResponseWriter, r *http.Request) {
	dr, ok := dateRange(w, r)
	if !ok {
		return
	}
	report, err := h.Engine.GetMultiProject(r.URL.Query().Get("focus"), dr)
	if err != nil {
		writeEngineError(w, "Failed to get multi-project employees", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// =============================================================================
// TEAM HANDLERS
// =============================================================================

// GetTeamMetrics returns the team overview.
func (h *Handler) GetTeamMetrics(w http.ResponseWriter, r *http.Request) {
	team, ok := h.Engine.GetTeamMetrics()
	if !ok {
		writeError(w, http.StatusNotFound, "No employees loaded", generic.ErrEmptyDataset)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// GetHighPerformers returns employees above ?threshold tasks per day.
func (h *Handler) GetHighPerformers(w http.ResponseWriter, r *http.Request) {
	threshold, err := queryFloat(r, "threshold", aggregate.HighPerformerTasks)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid threshold", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(h.Engine.GetHighPerformers(threshold)))
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

// ListProjects summarises every project seen.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, nonNil(h.Engine.GetAllProjects()))
}

// GetProjectRules describes a project's billing rules.
func (h *Handler) GetProjectRules(w http.ResponseWriter, r *http.Request) {
	rb := h.Engine.Rules()
	project := rb.NormalizeProject(pathParam(r, "project"))
	writeJSON(w, http.StatusOK, ProjectRulesDTO{
		Project:     project,
		ProjectType: rb.ProjectType(project),
		Rules:       rb.Describe(project),
	})
}

// GetBillingSummary returns the capped billing breakdown of a project.
func (h *Handler) GetBillingSummary(w http.ResponseWriter, r *http.Request) {
	dr, ok := dateRange(w, r)
	if !ok {
		return
	}
	summary, err := h.Engine.GetBillingSummary(pathParam(r, "project"), dr)
	if err != nil {
		writeEngineError(w, "Failed to build billing summary", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetDailyBilling returns the billing of a project on one date.
func (h *Handler) GetDailyBilling(w http.ResponseWriter, r *http.Request) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Engine.GetDailyBilling(pathParam(r, "project"), day))
}

// GetComplianceViolations returns every capped category-day with extra hours.
func (h *Handler) GetComplianceViolations(w http.ResponseWriter, r *http.Request) {
	dr, ok := dateRange(w, r)
	if !ok {
		return
	}
	violations, err := h.Engine.GetComplianceViolations(pathParam(r, "project"), dr)
	if err != nil {
		writeEngineError(w, "Failed to list violations", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(violations))
}

// GetComplianceReport groups violations per employee and per day.
func (h *Handler) GetComplianceReport(w http.ResponseWriter, r *http.Request) {
	dr, ok := dateRange(w, r)
	if !ok {
		return
	}
	report, err := h.Engine.GetComplianceReport(pathParam(r, "project"), dr)
	if err != nil {
		writeEngineError(w, "Failed to build compliance report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetTopContributors returns the ?n employees (default 5) with the most hours.
func (h *Handler) GetTopContributors(w http.ResponseWriter, r *http.Request) {
	dr, ok := dateRange(w, r)
	if !ok {
		return
	}
	n, err := queryInt(r, "n", 5)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid n", err)
		return
	}
	top, err := h.Engine.GetTopContributors(pathParam(r, "project"), n, dr)
	if err != nil {
		writeEngineError(w, "Failed to rank contributors", err)
		return
	}
	writeJSON(w, http.StatusOK, top)
}

// GetProjectPerformance returns every employee's work on a project.
func (h *Handler) GetProjectPerformance(w http.ResponseWriter, r *http.Request) {
	dr, ok := dateRange(w, r)
	if !ok {
		return
	}
	perf, err := h.Engine.GetProjectPerformance(pathParam(r, "project"), dr)
	if err != nil {
		writeEngineError(w, "Failed to get project performance", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(perf))
}

// GetCategoryPerformance reports one category of a project.
func (h *Handler) GetCategoryPerformance(w http.ResponseWriter, r *http.Request) {
	dr, ok := dateRange(w, r)
	if !ok {
		return
	}
	perf, err := h.Engine.GetCategoryPerformance(pathParam(r, "project"), pathParam(r, "category"), dr)
	if err != nil {
		writeEngineError(w, "Failed to get category performance", err)
		return
	}
	writeJSON(w, http.StatusOK, perf)
}

// GetEmployeeCategoryBreakdown splits one employee's project work by category.
func (h *Handler) GetEmployeeCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	dr, ok := dateRange(w, r)
	if !ok {
		return
	}
	breakdown, err := h.Engine.GetEmployeeCategoryBreakdown(pathParam(r, "project"), pathParam(r, "name"), dr)
	if err != nil {
		writeEngineError(w, "Failed to get category breakdown", err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

// GetOvertime reports employee-days above ?threshold hours (default 8).
func (h *Handler) GetOvertime(w http.ResponseWriter, r *http.Request) {
	dr, ok := dateRange(w, r)
	if !ok {
		return
	}
	threshold, err := queryFloat(r, "threshold", aggregate.DefaultOvertimeThreshold)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid threshold", err)
		return
	}
	report, err := h.Engine.GetOvertime(pathParam(r, "project"), threshold, dr)
	if err != nil {
		writeEngineError(w, "Failed to build overtime report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// CompareEmployees compares ?employee1 and ?employee2 on a project.
func (h *Handler) CompareEmployees(w http.ResponseWriter, r *http.Request) {
	dr, ok := dateRange(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	name1, name2 := strings.TrimSpace(q.Get("employee1")), strings.TrimSpace(q.Get("employee2"))
	if name1 == "" || name2 == "" {
		writeError(w, http.StatusBadRequest, "employee1 and employee2 are required", nil)
		return
	}
	cmp, err := h.Engine.CompareEmployees(pathParam(r, "project"), name1, name2, dr)
	if err != nil {
		writeEngineError(w, "Failed to compare employees", err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

// GetMonthly reports a project over one calendar month.
func (h *Handler) GetMonthly(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid month", err)
		return
	}
	report, err := h.Engine.GetMonthly(pathParam(r, "project"), year, month)
	if err != nil {
		writeEngineError(w, "Failed to build monthly report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetProjectDay reports the work on a project on one date.
func (h *Handler) GetProjectDay(w http.ResponseWriter, r *http.Request) {
	day, ok := pathDay(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Engine.GetProjectDay(pathParam(r, "project"), day))
}

// =============================================================================
// LOAD HANDLERS
// =============================================================================

// Reload fetches both feeds and publishes a new snapshot.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Engine.Reload(r.Context())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Reload failed, previous snapshot kept", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// GetLastLoad returns the report of the most recent load, or null.
func (h *Handler) GetLastLoad(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Engine.LastLoad())
}

// ListLoads returns recorded load runs, newest first.
func (h *Handler) ListLoads(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit", err)
		return
	}
	runs, err := h.Engine.Loads(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list loads", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(runs))
}

// =============================================================================
// IMPORT HANDLERS
// =============================================================================

var (
	errImportsDisabled = errors.New("imports disabled: feeds are configured externally")
	errUnsupportedFile = errors.New("unsupported file type, want .csv or .xlsx")
)

// GetImportCounts reports the rows held by the import store.
func (h *Handler) GetImportCounts(w http.ResponseWriter, r *http.Request) {
	if h.Imports == nil {
		writeError(w, http.StatusConflict, "Imports disabled", errImportsDisabled)
		return
	}
	roster, reports, err := h.Imports.Counts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count imports", err)
		return
	}
	writeJSON(w, http.StatusOK, ImportCountsDTO{RosterRows: roster, WorkReportRows: reports})
}

// ImportRoster replaces the imported roster with an uploaded file, then
// reloads.
func (h *Handler) ImportRoster(w http.ResponseWriter, r *http.Request) {
	if h.Imports == nil {
		writeError(w, http.StatusConflict, "Imports disabled", errImportsDisabled)
		return
	}
	records, name, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload", err)
		return
	}
	rows, err := feed.DecodeRoster(records)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid roster", err)
		return
	}

	ctx := r.Context()
	if err := h.Imports.ReplaceRoster(ctx, rows); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store roster", err)
		return
	}
	h.Logger.Info("roster imported", "file", name, "rows", len(rows))
	h.respondImport(w, r, ImportResponse{Kind: "roster", File: name, Mode: "replace", Rows: len(rows)})
}

// ImportWorkReports stores an uploaded work-report file, then reloads.
// ?mode=append adds to the imported rows; the default replaces them.
func (h *Handler) ImportWorkReports(w http.ResponseWriter, r *http.Request) {
	if h.Imports == nil {
		writeError(w, http.StatusConflict, "Imports disabled", errImportsDisabled)
		return
	}
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "replace"
	}
	if mode != "replace" && mode != "append" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid mode %q", mode), nil)
		return
	}
	records, name, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload", err)
		return
	}
	rows, err := feed.DecodeWorkReports(records)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid work reports", err)
		return
	}

	ctx := r.Context()
	if mode == "append" {
		err = h.Imports.AppendWorkReports(ctx, rows)
	} else {
		err = h.Imports.ReplaceWorkReports(ctx, rows)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store work reports", err)
		return
	}
	h.Logger.Info("work reports imported", "file", name, "rows", len(rows), "mode", mode)
	h.respondImport(w, r, ImportResponse{Kind: "work_reports", File: name, Mode: mode, Rows: len(rows)})
}

func (h *Handler) respondImport(w http.ResponseWriter, r *http.Request, resp ImportResponse) {
	rep, err := h.Engine.Reload(r.Context())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "Imported, but reload failed", err)
		return
	}
	resp.Load = rep
	writeJSON(w, http.StatusCreated, resp)
}

// readUpload reads the "file" part of a multipart form as records. The
// optional "sheet" field selects an XLSX sheet.
func readUpload(r *http.Request) ([][]string, string, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, "", fmt.Errorf("parse multipart form: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("file is required: %w", err)
	}
	defer file.Close()

	var records [][]string
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".csv":
		records, err = feed.ReadCSV(file)
	case ".xlsx":
		records, err = feed.ReadXLSX(file, r.FormValue("sheet"))
	default:
		return nil, header.Filename, errUnsupportedFile
	}
	if err != nil {
		return nil, header.Filename, err
	}
	return records, header.Filename, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine errors onto HTTP status codes.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

// dateRange reads the optional start_date and end_date query parameters.
// It writes the 400 itself and returns false on a malformed date.
func dateRange(w http.ResponseWriter, r *http.Request) (generic.DateRange, bool) {
	var dr generic.DateRange
	q := r.URL.Query()
	for _, p := range []struct {
		key string
		dst **generic.Day
	}{{"start_date", &dr.Start}, {"end_date", &dr.End}} {
		s := q.Get(p.key)
		if s == "" {
			continue
		}
		day, err := generic.ParseDay(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s, want YYYY-MM-DD", p.key), err)
			return dr, false
		}
		*p.dst = &day
	}
	return dr, true
}

func pathDay(w http.ResponseWriter, r *http.Request) (generic.Day, bool) {
	day, err := generic.ParseDay(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date, want YYYY-MM-DD", err)
		return generic.Day{}, false
	}
	return day, true
}

// pathParam returns an unescaped URL parameter; names carry spaces.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return fallback, nil
	}
	return strconv.Atoi(s)
}

func queryFloat(r *http.Request, key string, fallback float64) (float64, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(s, 64)
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
