/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Structured request logging (httplog, ECS schema)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the dashboard

ROUTE GROUPS:
  /api/status             Snapshot summary and last load
  /api/employees/*        Roster and employee metrics
  /api/team/*             Team overview
  /api/projects/*         Billing, compliance and performance per project
  /api/loads/*            Reload trigger and load history
  /api/imports/*          CSV/XLSX uploads into the import store
  /api/scenarios/*        Demo datasets

Every query accepts optional start_date and end_date (YYYY-MM-DD).

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	// CORSOrigins lists allowed origins; empty allows localhost dev servers.
	CORSOrigins []string
	// Logger receives request logs; nil disables request logging.
	Logger *slog.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	if opts.Logger != nil {
		r.Use(httplog.RequestLogger(opts.Logger, &httplog.Options{
			Level:  slog.LevelDebug,
			Schema: httplog.SchemaECS,
		}))
	}
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.GetStatus)

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Get("/search", h.FindEmployee)
			r.Get("/metrics", h.GetAllEmployeeMetrics)
			r.Get("/compare", h.CompareEmployeeMetrics)
			r.Get("/multi-project", h.GetMultiProject)
			r.Get("/{email}/metrics", h.GetEmployeeMetrics)
		})

		// Team routes
		r.Route("/team", func(r chi.Router) {
			r.Get("/metrics", h.GetTeamMetrics)
			r.Get("/high-performers", h.GetHighPerformers)
		})

		// Project routes
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Route("/{project}", func(r chi.Router) {
				r.Get("/rules", h.GetProjectRules)
				r.Get("/billing", h.GetBillingSummary)
				r.Get("/billing/{date}", h.GetDailyBilling)
				r.Get("/violations", h.GetComplianceViolations)
				r.Get("/compliance", h.GetComplianceReport)
				r.Get("/top-contributors", h.GetTopContributors)
				r.Get("/performance", h.GetProjectPerformance)
				r.Get("/categories/{category}", h.GetCategoryPerformance)
				r.Get("/employees/{name}/categories", h.GetEmployeeCategoryBreakdown)
				r.Get("/overtime", h.GetOvertime)
				r.Get("/compare", h.CompareEmployees)
				r.Get("/monthly/{year}/{month}", h.GetMonthly)
				r.Get("/days/{date}", h.GetProjectDay)
			})
		})

		// Load routes
		r.Route("/loads", func(r chi.Router) {
			r.Get("/", h.ListLoads)
			r.Get("/last", h.GetLastLoad)
			r.Post("/reload", h.Reload)
		})

		// Import routes
		r.Route("/imports", func(r chi.Router) {
			r.Get("/", h.GetImportCounts)
			r.Post("/roster", h.ImportRoster)
			r.Post("/work-reports", h.ImportWorkReports)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetImports)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Report Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Report Engine API</h1>
<ul>
<li><a href="/api/status">/api/status</a> - Snapshot status</li>
<li><a href="/api/employees">/api/employees</a> - Roster</li>
<li><a href="/api/team/metrics">/api/team/metrics</a> - Team overview</li>
<li><a href="/api/projects">/api/projects</a> - Projects</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo scenarios</li>
</ul>
</body>
</html>`))
	})

	return r
}
