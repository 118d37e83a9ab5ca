/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RequestLogger: httplog structured request logging (ECS schema)
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. CORS:          Cross-origin requests for the HR frontend
  5. Heartbeat:     GET /ping liveness probe
  6. instrument:    Prometheus request counters and latency

ROUTE GROUPS:
  /api/identity/*      Identity number validation
  /api/vacation/*      Vacation years and annual allocation
  /api/leaves/*        Leave validation and storage
  /api/sick-leaves/*   Sick spell classification and reports
  /api/parental/*      Parental report
  /api/overtime/*      Overtime lifecycle
  /api/payroll/*       Tax computation
  /api/employees/*     Employee records and per-employee views
  /api/allocations     Confirmed allocations from the HR system
  /api/scenarios/*     Demo data
  /metrics             Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware. The facade is meant to run behind the HR
  system's gateway.

SEE ALSO:
  - handlers.go: Handler implementations
  - metrics.go: Prometheus collectors
  - cmd/server/main.go: Server startup
*/
package api

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warp/entitlement-engine/generic"
)

// NewLogger builds the JSON logger shared by request logging and the
// services. Attributes follow the ECS schema.
func NewLogger(w io.Writer, env, level string) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	logFormat := httplog.SchemaECS.Concise(env != "production")
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "entitlement-engine"),
		slog.String("env", env),
	)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(httplog.RequestLogger(h.Logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(instrument)

	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/identity/validate", h.ValidateIdentity)

		// Vacation routes
		r.Route("/vacation", func(r chi.Router) {
			r.Get("/year", h.GetVacationYear)
			r.Post("/allocations/annual", h.AllocateAnnualVacation)
		})

		// Leave routes
		r.Route("/leaves", func(r chi.Router) {
			r.Post("/", h.CreateLeave)
			r.Post("/validate", h.ValidateLeave)
		})

		r.Route("/sick-leaves", func(r chi.Router) {
			r.Post("/classify", h.ClassifySickLeave)
			r.Post("/report", h.GetSickReport)
		})

		r.Get("/parental/report", h.GetParentalReport)

		// Overtime routes
		r.Route("/overtime", func(r chi.Router) {
			r.Post("/", h.CreateOvertime)
			r.Get("/{id}", h.GetOvertime)
			r.Post("/{id}/submit", h.TransitionOvertime(generic.OvertimeSubmitted))
			r.Post("/{id}/approve", h.TransitionOvertime(generic.OvertimeApproved))
			r.Post("/{id}/reject", h.TransitionOvertime(generic.OvertimeRejected))
			r.Post("/{id}/pay", h.TransitionOvertime(generic.OvertimePaid))
		})

		r.Post("/payroll/tax", h.ComputeTax)

		// Employee routes
		r.Route("/employees/{id}", func(r chi.Router) {
			r.Get("/", h.GetEmployee)
			r.Put("/", h.PutEmployee)
			r.Get("/vacation/balance", h.GetVacationBalance)
			r.Get("/vacation/earned", h.GetEarnedVacation)
			r.Get("/sick-leave/statistics", h.GetSickStatistics)
			r.Get("/parental/statistics", h.GetParentalStatistics)
			r.Get("/overtime/statistics", h.GetOvertimeStatistics)
		})

		// Reference records
		r.Post("/allocations", h.CreateAllocation)
		r.Post("/contracts", h.CreateContract)
		r.Post("/children", h.CreateChild)
		r.Post("/municipalities", h.CreateMunicipality)

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
		})

		r.Get("/audit", h.ListAudit)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
