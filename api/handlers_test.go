/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Query routes over a seeded snapshot
- Status code mapping of engine errors
- CSV/XLSX imports into the SQLite store
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/report-engine/aggregate"
	"github.com/warp/report-engine/analytics"
	"github.com/warp/report-engine/billing"
	"github.com/warp/report-engine/feed"
	"github.com/warp/report-engine/generic"
	"github.com/warp/report-engine/store/sqlite"
)

// =============================================================================
// HELPERS
// =============================================================================

var (
	monday = generic.NewDay(2024, time.March, 4)
	clock  = func() time.Time { return time.Date(2024, time.March, 8, 18, 0, 0, 0, time.UTC) }
)

type testAPI struct {
	router http.Handler
	engine *analytics.Engine
	store  *sqlite.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := analytics.New(analytics.Options{
		Roster:      store,
		WorkReports: store,
		Log:         store,
		Logger:      logger,
		Now:         clock,
	})
	h := NewHandler(eng, store, logger)
	return &testAPI{router: NewRouter(h, RouterOptions{}), engine: eng, store: store}
}

func testRoster() []generic.RosterRow {
	return []generic.RosterRow{
		{NameEmail: "Asha Rao <asha@warp.io>, asha.rao@gmail.com"},
		{NameEmail: "Ben Ode <ben@warp.io>"},
		{NameEmail: "Chen Li <chen@warp.io>"},
	}
}

func testWeek() []generic.WorkReportRow {
	var rows []generic.WorkReportRow
	for i := 0; i < 5; i++ {
		rows = append(rows, generic.WorkReportRow{
			Email: "asha@warp.io", Date: monday.AddDays(i).String(),
			Project: "Lyell", Tasks: "[ETL] loaded daily pipeline", TimeSpent: "5 hrs",
		})
	}
	for i := 0; i < 3; i++ {
		rows = append(rows, generic.WorkReportRow{
			Email: "ben@warp.io", Date: monday.AddDays(i).String(),
			Project: "lyell", Tasks: "dashboard refresh", TimeSpent: "3",
		})
	}
	return append(rows, generic.WorkReportRow{
		Email: "chen@warp.io", Date: monday.String(), Project: "Dataplatr", Tasks: "misc", TimeSpent: "8",
	})
}

// seed imports the fixture and publishes it.
func (a *testAPI) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, a.store.ReplaceRoster(ctx, testRoster()))
	require.NoError(t, a.store.ReplaceWorkReports(ctx, testWeek()))
	_, err := a.engine.Reload(ctx)
	require.NoError(t, err)
}

func (a *testAPI) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) get(t *testing.T, path string) *httptest.ResponseRecorder {
	return a.do(t, http.MethodGet, path, nil, "")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// upload builds a multipart body with one "file" part.
func upload(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func csvBytes(t *testing.T, records [][]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, feed.WriteCSV(&buf, records))
	return buf.Bytes()
}

// =============================================================================
// STATUS & EMPLOYEES
// =============================================================================

func TestStatus_EmptyThenLoaded(t *testing.T) {
	api := newTestAPI(t)

	rec := api.get(t, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[StatusDTO](t, rec)
	assert.Equal(t, "empty", status.Status)
	assert.Nil(t, status.Period)

	api.seed(t)

	status = decode[StatusDTO](t, api.get(t, "/api/status"))
	assert.Equal(t, "ready", status.Status)
	assert.Equal(t, 3, status.Employees)
	assert.Equal(t, 9, status.Reports)
	assert.Equal(t, 5, status.WorkingDays)
	require.NotNil(t, status.Period)
	assert.Equal(t, monday, status.Period.Start)
	require.NotNil(t, status.LastLoad)
	assert.Equal(t, generic.LoadSucceeded, status.LastLoad.Run.Status)
}

func TestEmployees_ListFindAndMetrics(t *testing.T) {
	// GIVEN: A seeded snapshot
	api := newTestAPI(t)
	api.seed(t)

	// THEN: The roster lists in order
	list := decode[[]generic.Employee](t, api.get(t, "/api/employees"))
	require.Len(t, list, 3)
	assert.Equal(t, "asha@warp.io", list[0].PrimaryEmail)

	// AND: Partial names find employees
	rec := api.get(t, "/api/employees/search?name=ben")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ben@warp.io", decode[generic.Employee](t, rec).PrimaryEmail)

	// AND: Metrics resolve any alias to the owner
	rec = api.get(t, "/api/employees/asha.rao@gmail.com/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	m := decode[aggregate.EmployeeMetrics](t, rec)
	assert.Equal(t, "asha@warp.io", m.Email)
	assert.Equal(t, 5, m.DaysSubmitted)
	assert.Equal(t, 100.0, m.SubmissionRate)

	// AND: Comparing keeps only known emails
	cmp := decode[[]aggregate.EmployeeMetrics](t, api.get(t, "/api/employees/compare?emails=ben@warp.io,%20nobody@x.com"))
	require.Len(t, cmp, 1)
	assert.Equal(t, "ben@warp.io", cmp[0].Email)
}

func TestEmployees_Errors(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t)

	tests := []struct {
		name string
		path string
		code int
	}{
		{"unknown email", "/api/employees/zed@warp.io/metrics", http.StatusNotFound},
		{"unknown name", "/api/employees/search?name=zed", http.StatusNotFound},
		{"missing name", "/api/employees/search", http.StatusBadRequest},
		{"missing emails", "/api/employees/compare", http.StatusBadRequest},
		{"bad threshold", "/api/team/high-performers?threshold=lots", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.get(t, tt.path)
			assert.Equal(t, tt.code, rec.Code)
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestTeamMetrics(t *testing.T) {
	api := newTestAPI(t)

	rec := api.get(t, "/api/team/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	api.seed(t)
	rec = api.get(t, "/api/team/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	team := decode[aggregate.TeamMetrics](t, rec)
	assert.Equal(t, 3, team.TotalEmployees)
}

// =============================================================================
// PROJECTS
// =============================================================================

func TestBillingSummary_CapsLyellETL(t *testing.T) {
	// GIVEN: Asha logs 5h of lyell ETL each day against a 4h cap
	api := newTestAPI(t)
	api.seed(t)

	// WHEN: Asking for the summary with a differently written project name
	rec := api.get(t, "/api/projects/LYELL/billing")

	// THEN: Every day carries 1h of extra ETL
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[billing.Summary](t, rec)
	assert.Equal(t, "lyell", summary.Project)
	assert.Equal(t, billing.ProjectTypeCapped, summary.ProjectType)
	require.Len(t, summary.Days, 5)
	for _, day := range summary.Days {
		etl := day.Categories[generic.CategoryETL]
		assert.Equal(t, 4.0, etl.Billable.Float(), day.Date.String())
		assert.Equal(t, 1.0, etl.Extra.Float(), day.Date.String())
	}
	assert.Equal(t, 5.0, summary.Totals.Extra.Float())
	assert.Equal(t, 5, summary.Totals.DaysWithExtra)

	// AND: A date range narrows the days
	summary = decode[billing.Summary](t, api.get(t, "/api/projects/lyell/billing?start_date=2024-03-05&end_date=2024-03-06"))
	assert.Len(t, summary.Days, 2)
}

func TestProjectRoutes_RejectBadInput(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t)

	tests := []struct {
		name string
		path string
		code int
	}{
		{"malformed start", "/api/projects/lyell/billing?start_date=03/05/2024", http.StatusBadRequest},
		{"end before start", "/api/projects/lyell/violations?start_date=2024-03-06&end_date=2024-03-05", http.StatusBadRequest},
		{"unknown category", "/api/projects/lyell/categories/astrology", http.StatusBadRequest},
		{"malformed day", "/api/projects/lyell/days/yesterday", http.StatusBadRequest},
		{"month out of range", "/api/projects/lyell/monthly/2024/13", http.StatusBadRequest},
		{"year not a number", "/api/projects/lyell/monthly/next/3", http.StatusBadRequest},
		{"bad n", "/api/projects/lyell/top-contributors?n=few", http.StatusBadRequest},
		{"bad overtime threshold", "/api/projects/lyell/overtime?threshold=x", http.StatusBadRequest},
		{"compare needs both names", "/api/projects/lyell/compare?employee1=asha", http.StatusBadRequest},
		{"compare unknown name", "/api/projects/lyell/compare?employee1=asha&employee2=zed", http.StatusNotFound},
		{"breakdown unknown name", "/api/projects/lyell/employees/zed/categories", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, api.get(t, tt.path).Code)
		})
	}
}

func TestProjectRoutes_Succeed(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t)

	paths := []string{
		"/api/projects",
		"/api/projects/lyell/rules",
		"/api/projects/lyell/billing/2024-03-04",
		"/api/projects/lyell/compliance",
		"/api/projects/lyell/performance",
		"/api/projects/lyell/categories/etl",
		"/api/projects/lyell/employees/Asha%20Rao/categories",
		"/api/projects/lyell/overtime?threshold=4",
		"/api/projects/lyell/compare?employee1=asha&employee2=ben",
		"/api/projects/lyell/monthly/2024/3",
		"/api/projects/lyell/days/2024-03-05",
		"/api/employees/multi-project?focus=lyell",
		"/api/team/high-performers",
	}
	for _, p := range paths {
		rec := api.get(t, p)
		assert.Equal(t, http.StatusOK, rec.Code, p)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"), p)
	}
}

func TestViolationsAndTopContributors(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t)

	violations := decode[[]billing.Violation](t, api.get(t, "/api/projects/lyell/violations"))
	assert.Len(t, violations, 5)

	top := decode[aggregate.TopContributors](t, api.get(t, "/api/projects/lyell/top-contributors?n=1"))
	require.Len(t, top.Contributors, 1)
	assert.Equal(t, "asha@warp.io", top.Contributors[0].Email)

	rules := decode[ProjectRulesDTO](t, api.get(t, "/api/projects/Lyell/rules"))
	assert.Equal(t, "lyell", rules.Project)
	assert.Equal(t, billing.ProjectTypeCapped, rules.ProjectType)
	assert.Contains(t, rules.Rules, string(generic.CategoryETL))
}

func TestEmptyListsEncodeAsArrays(t *testing.T) {
	api := newTestAPI(t)

	for _, p := range []string{"/api/employees", "/api/projects", "/api/employees/metrics", "/api/loads"} {
		rec := api.get(t, p)
		require.Equal(t, http.StatusOK, rec.Code, p)
		assert.Equal(t, "[]", string(bytes.TrimSpace(rec.Body.Bytes())), p)
	}
}

// =============================================================================
// LOADS
// =============================================================================

func TestReloadAndLoadHistory(t *testing.T) {
	api := newTestAPI(t)
	api.seed(t)

	rec := api.do(t, http.MethodPost, "/api/loads/reload", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rep := decode[analytics.LoadReport](t, rec)
	assert.Equal(t, 9, rep.Run.Reports)

	runs := decode[[]generic.LoadRun](t, api.get(t, "/api/loads"))
	require.Len(t, runs, 2)
	assert.Equal(t, rep.Run.ID, runs[0].ID)

	limited := decode[[]generic.LoadRun](t, api.get(t, "/api/loads?limit=1"))
	assert.Len(t, limited, 1)

	last := decode[analytics.LoadReport](t, api.get(t, "/api/loads/last"))
	assert.Equal(t, rep.Run.ID, last.Run.ID)
}

func TestReload_RosterSchemaErrorKeepsSnapshot(t *testing.T) {
	// GIVEN: A published snapshot, then a narrow roster upload
	api := newTestAPI(t)
	api.seed(t)
	body, ct := upload(t, "roster.csv", csvBytes(t, [][]string{{"Name & Email"}, {"a@x.com"}}), nil)

	// WHEN: Importing it
	rec := api.do(t, http.MethodPost, "/api/imports/roster", body, ct)

	// THEN: The upload is refused and the old roster still answers
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decode[[]generic.Employee](t, api.get(t, "/api/employees")), 3)
}

// =============================================================================
// IMPORTS
// =============================================================================

func TestImport_CSVRosterAndWorkReports(t *testing.T) {
	api := newTestAPI(t)

	// GIVEN: A roster upload
	body, ct := upload(t, "roster.csv", csvBytes(t, feed.EncodeRoster(testRoster())), nil)
	rec := api.do(t, http.MethodPost, "/api/imports/roster", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[ImportResponse](t, rec)
	assert.Equal(t, "roster", resp.Kind)
	assert.Equal(t, 3, resp.Rows)
	require.NotNil(t, resp.Load)
	assert.Equal(t, 3, resp.Load.Run.Employees)

	// WHEN: Uploading the work reports, then appending one more day
	body, ct = upload(t, "reports.csv", csvBytes(t, feed.EncodeWorkReports(testWeek())), nil)
	rec = api.do(t, http.MethodPost, "/api/imports/work-reports", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	extra := []generic.WorkReportRow{{Email: "chen@warp.io", Date: "2024-03-05", Project: "Dataplatr", Tasks: "misc", TimeSpent: "2"}}
	body, ct = upload(t, "more.csv", csvBytes(t, feed.EncodeWorkReports(extra)), nil)
	rec = api.do(t, http.MethodPost, "/api/imports/work-reports?mode=append", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// THEN: The store and the snapshot hold every row
	resp = decode[ImportResponse](t, rec)
	assert.Equal(t, "append", resp.Mode)
	assert.Equal(t, 10, resp.Load.Run.Reports)

	counts := decode[ImportCountsDTO](t, api.get(t, "/api/imports"))
	assert.Equal(t, ImportCountsDTO{RosterRows: 3, WorkReportRows: 10}, counts)
}

func TestImport_XLSXWorkReports(t *testing.T) {
	api := newTestAPI(t)
	require.NoError(t, api.store.ReplaceRoster(context.Background(), testRoster()))

	var buf bytes.Buffer
	require.NoError(t, feed.WriteXLSX(&buf, "Responses", feed.EncodeWorkReports(testWeek())))
	body, ct := upload(t, "reports.xlsx", buf.Bytes(), map[string]string{"sheet": "Responses"})

	rec := api.do(t, http.MethodPost, "/api/imports/work-reports", body, ct)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[ImportResponse](t, rec)
	assert.Equal(t, 9, resp.Rows)
	assert.Equal(t, 9, resp.Load.Run.Reports)
}

func TestImport_RejectsBadUploads(t *testing.T) {
	api := newTestAPI(t)

	t.Run("unsupported extension", func(t *testing.T) {
		body, ct := upload(t, "reports.json", []byte("{}"), nil)
		assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPost, "/api/imports/work-reports", body, ct).Code)
	})

	t.Run("missing required column", func(t *testing.T) {
		body, ct := upload(t, "reports.csv", csvBytes(t, [][]string{{"Timestamp", "Project"}, {"x", "lyell"}}), nil)
		assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPost, "/api/imports/work-reports", body, ct).Code)
	})

	t.Run("unknown mode", func(t *testing.T) {
		body, ct := upload(t, "reports.csv", csvBytes(t, feed.EncodeWorkReports(nil)), nil)
		assert.Equal(t, http.StatusBadRequest, api.do(t, http.MethodPost, "/api/imports/work-reports?mode=merge", body, ct).Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		rec := api.do(t, http.MethodPost, "/api/imports/roster", bytes.NewBufferString("a,b"), "text/csv")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestImport_DisabledWithoutStore(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := analytics.New(analytics.Options{Logger: logger, Now: clock})
	router := NewRouter(NewHandler(eng, nil, logger), RouterOptions{})

	for _, p := range []string{"/api/imports/roster", "/api/imports/work-reports", "/api/scenarios/load", "/api/scenarios/reset"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, p, nil))
		assert.Equal(t, http.StatusConflict, rec.Code, p)
	}
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestRouter_CORSPreflight(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/status", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RequestLogging(t *testing.T) {
	// GIVEN: A router logging to a buffer
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	eng := analytics.New(analytics.Options{Logger: logger, Now: clock})
	router := NewRouter(NewHandler(eng, nil, logger), RouterOptions{Logger: logger})

	// WHEN: Serving a request
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	// THEN: The request is logged
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, logs.String(), "/api/status")
}
