/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures the API owns. Analytics results already
  carry their own JSON shape and are written as they are; the types here
  cover the wrapper-only payloads.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

SEE ALSO:
  - handlers.go: Uses these types
  - analytics/engine.go: LoadReport
*/
package api

import (
	"github.com/warp/report-engine/analytics"
	"github.com/warp/report-engine/generic"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// StatusDTO summarises the published snapshot.
type StatusDTO struct {
	Status      string                `json:"status"`
	Employees   int                   `json:"employees"`
	Reports     int                   `json:"reports"`
	Entries     int                   `json:"entries"`
	WorkingDays int                   `json:"working_days"`
	Period      *generic.Period       `json:"period,omitempty"`
	Projects    []string              `json:"projects"`
	LastLoad    *analytics.LoadReport `json:"last_load,omitempty"`
}

// ProjectRulesDTO describes the billing rules of one project.
type ProjectRulesDTO struct {
	Project     string            `json:"project"`
	ProjectType string            `json:"project_type"`
	Rules       map[string]string `json:"rules"`
}

// ImportResponse reports an accepted upload and the reload it triggered.
type ImportResponse struct {
	Kind string                `json:"kind"`
	File string                `json:"file"`
	Mode string                `json:"mode"`
	Rows int                   `json:"rows"`
	Load *analytics.LoadReport `json:"load,omitempty"`
}

// ImportCountsDTO reports the rows held by the import store.
type ImportCountsDTO struct {
	RosterRows     int `json:"roster_rows"`
	WorkReportRows int `json:"work_report_rows"`
}

// =============================================================================
// SCENARIO TYPES
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// LoadScenarioResponse reports a loaded scenario.
type LoadScenarioResponse struct {
	Status   string                `json:"status"`
	Scenario string                `json:"scenario"`
	Load     *analytics.LoadReport `json:"load,omitempty"`
}
