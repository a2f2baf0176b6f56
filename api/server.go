/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. CORS:            Cross-origin requests for the frontend
  2. RequestLogger:   Structured request logging (httplog over slog, ECS)
  3. CleanPath:       Normalized URL paths
  4. Recoverer:       Panic recovery (500 instead of crash)
  5. Heartbeat:       Liveness probe on /

ROUTE GROUPS:
  /api/employees/*   Employee, salary, accrual and payment operations
  /api/reports/*     Provision reporting
  /metrics           Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware. The X-Actor header is trusted as-is;
  put the service behind an authenticating proxy before exposing it.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewLogger builds the service-wide structured logger in ECS shape.
func NewLogger(service, env string) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(false)
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", service),
		slog.String("env", env),
	)
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, logger *slog.Logger, gatherer prometheus.Gatherer) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))
	r.Use(middleware.CleanPath)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/"))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetEmployee)
				r.Delete("/", h.DeleteEmployee)
				r.Get("/balances", h.GetBalances)
				r.Get("/movements/{concept}", h.GetMovements)

				r.Route("/salary", func(r chi.Router) {
					r.Get("/", h.GetSalaryHistory)
					r.Post("/", h.UpdateSalary)
					r.Delete("/{periodID}", h.DeleteSalaryPeriod)
				})

				r.Post("/accruals", h.GenerateAccruals)

				r.Route("/payments", func(r chi.Router) {
					r.Get("/", h.ListPayments)
					r.Post("/", h.SubmitPayment)
					r.Get("/{paymentID}", h.GetPayment)
					r.Delete("/{paymentID}", h.DeletePayment)
					r.Get("/{paymentID}/receipt", h.PaymentReceipt)
				})
			})
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/provisions", h.ProvisionsReport)
		})
	})

	if gatherer != nil {
		r.Method("GET", "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}
