/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built datasets that populate the import store with
	realistic roster and work-report rows. Each scenario demonstrates a
	specific feature of the analytics.

AVAILABLE SCENARIOS:

	sow-week:       Lyell ETL over the 4h/day SOW cap, one silent employee
	multi-project:  Employees split across Lyell and Dataplatr, alias emails
	data-quality:   Malformed rows that ingestion drops and counts
	overtime:       Long days above the 8h overtime and 10h overload marks

HOW SCENARIOS WORK:
 1. Reset the import store (clear all rows and the load log)
 2. Write the roster rows
 3. Write the work-report rows, dated in the week before today
 4. Reload the engine so queries see the new snapshot

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "sow-week"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create a builder: func xxxScenario(week []generic.Day) scenarioData
 3. Register it in 'scenarioBuilders'

NOTE:

	Scenarios reset the import store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Import handlers share the store
  - feed/decode.go: Row column layout
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/report-engine/generic"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "sow-week",
		Name:        "SOW Cap Week",
		Description: "Lyell ETL at 5h/day against the 4h/day cap; one employee never reports",
		Category:    "billing",
	},
	{
		ID:          "multi-project",
		Name:        "Multi-Project Team",
		Description: "Employees split across Lyell and Dataplatr, reporting from alias emails",
		Category:    "projects",
	},
	{
		ID:          "data-quality",
		Name:        "Data Quality",
		Description: "Rows without email or with bad dates dropped and counted; off-roster submitters kept",
		Category:    "ingestion",
	},
	{
		ID:          "overtime",
		Name:        "Overtime",
		Description: "Long days above the 8h overtime threshold and the 10h overload mark",
		Category:    "workload",
	},
}

type scenarioData struct {
	roster  []generic.RosterRow
	reports []generic.WorkReportRow
}

var scenarioBuilders = map[string]func(week []generic.Day) scenarioData{
	"sow-week":      sowWeekScenario,
	"multi-project": multiProjectScenario,
	"data-quality":  dataQualityScenario,
	"overtime":      overtimeScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current, Description: "Currently loaded scenario"})
}

// LoadScenario replaces the imported rows with a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if h.Imports == nil {
		writeError(w, http.StatusConflict, "Imports disabled", errImportsDisabled)
		return
	}
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	build, ok := scenarioBuilders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	h.mu.Lock()
	defer h.mu.Unlock()

	// Reset first
	if err := h.Imports.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset import store", err)
		return
	}
	h.currentScenario = ""

	data := build(scenarioWeek(time.Now()))
	if err := h.Imports.ReplaceRoster(ctx, data.roster); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	if err := h.Imports.ReplaceWorkReports(ctx, data.reports); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	rep, err := h.Engine.Reload(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	h.Logger.Info("scenario loaded", "scenario", req.ScenarioID, "reports", rep.Run.Reports)
	writeJSON(w, http.StatusOK, LoadScenarioResponse{Status: "loaded", Scenario: req.ScenarioID, Load: rep})
}

// ResetImports clears the import store and reloads an empty snapshot.
func (h *Handler) ResetImports(w http.ResponseWriter, r *http.Request) {
	if h.Imports == nil {
		writeError(w, http.StatusConflict, "Imports disabled", errImportsDisabled)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Imports.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset import store", err)
		return
	}
	h.currentScenario = ""
	if _, err := h.Engine.Reload(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reload", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// scenarioWeek returns Monday to Friday of the week before now.
func scenarioWeek(now time.Time) []generic.Day {
	today := generic.DayOf(now)
	offset := (int(today.Time.Weekday()) + 6) % 7
	monday := today.AddDays(-offset - 7)
	week := make([]generic.Day, 5)
	for i := range week {
		week[i] = monday.AddDays(i)
	}
	return week
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

func report(email, name string, day generic.Day, project, tasks, spent string) generic.WorkReportRow {
	return generic.WorkReportRow{
		Timestamp:     day.Time.Add(18 * time.Hour).Format("2006-01-02 15:04:05"),
		Email:         email,
		SubmitterName: name,
		Date:          day.String(),
		Project:       project,
		Tasks:         tasks,
		TimeSpent:     spent,
	}
}

func sowWeekScenario(week []generic.Day) scenarioData {
	data := scenarioData{roster: []generic.RosterRow{
		{NameEmail: "Asha Rao <asha@warp.dev>", Mobile: "+1 555 0101"},
		{NameEmail: "Ben Ode <ben@warp.dev>", Mobile: "+1 555 0102"},
		{NameEmail: "Chen Li <chen@warp.dev>", Mobile: "+1 555 0103"},
	}}
	for _, d := range week {
		data.reports = append(data.reports, report("asha@warp.dev", "Asha Rao", d, "Lyell", "[ETL] nightly pipeline load", "5 hrs"))
	}
	for _, d := range week[:3] {
		data.reports = append(data.reports, report("ben@warp.dev", "Ben Ode", d, "Lyell", "Built weekly dashboard report", "3"))
	}
	return data
}

func multiProjectScenario(week []generic.Day) scenarioData {
	data := scenarioData{roster: []generic.RosterRow{
		{NameEmail: "Dana Park <dana@warp.dev>, dana.park@gmail.com"},
		{NameEmail: "Eli Moss <eli@warp.dev>"},
		{NameEmail: "Fay Chou <fay@warp.dev>"},
	}}
	for i, d := range week {
		data.reports = append(data.reports,
			report("dana.park@gmail.com", "Dana", d, "LYELL - Phase 2", "[ETL] backfill orders\n[Reporting] refresh KPIs", "6 hours"),
			report("dana@warp.dev", "Dana Park", d, "Data Platr", "api development", "2h"),
			report("eli@warp.dev", "Eli Moss", d, "Dataplatr", "testing ingestion service", "7.5"),
		)
		if i%2 == 0 {
			data.reports = append(data.reports, report("fay@warp.dev", "Fay Chou", d, "Internal", "team sync and planning", "4"))
		}
	}
	return data
}

func dataQualityScenario(week []generic.Day) scenarioData {
	data := scenarioData{roster: []generic.RosterRow{
		{NameEmail: "Gus Hale <gus@warp.dev>"},
		{NameEmail: "Ivy Tran <ivy@warp.dev>"},
		{NameEmail: "no email on this row"},
	}}
	data.reports = []generic.WorkReportRow{
		report("gus@warp.dev", "Gus Hale", week[0], "Lyell", "[ETL] load", "4"),
		report("GUS@WARP.DEV ", "Gus Hale", week[1], "Lyell", "[ETL] load", "4 hrs"),
		report("ivy@warp.dev", "Ivy Tran", week[0], "Dataplatr", "design review", "two hours"),
		report("stranger@elsewhere.com", "Stranger", week[0], "Lyell", "unknown work", "3"),
		report("", "Nobody", week[2], "Lyell", "no email", "3"),
		{Email: "ivy@warp.dev", SubmitterName: "Ivy Tran", Date: "sometime", Project: "Dataplatr", Tasks: "review", TimeSpent: "3"},
	}
	return data
}

func overtimeScenario(week []generic.Day) scenarioData {
	data := scenarioData{roster: []generic.RosterRow{
		{NameEmail: "Kai Ross <kai@warp.dev>"},
		{NameEmail: "Lea Vos <lea@warp.dev>"},
	}}
	spent := []string{"9", "11 hrs", "8", "12", "6"}
	for i, d := range week {
		data.reports = append(data.reports,
			report("kai@warp.dev", "Kai Ross", d, "Lyell", "[ETL] migration cutover\n[Reporting] exec deck", spent[i]),
			report("lea@warp.dev", "Lea Vos", d, "Dataplatr", "dev work on scheduler", "7"),
		)
	}
	return data
}
