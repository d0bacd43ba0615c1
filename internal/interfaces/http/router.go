package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SumFormula-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SumFormula-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/SumFormula-Intelligence/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree.
type RouterConfig struct {
	FormulaHandler *handlers.FormulaHandler
	HealthHandler  *handlers.HealthHandler

	Logger           logging.Logger
	LoggingConfig    *middleware.LoggingConfig
	Metrics          *prometheus.FormulaMetrics
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string

	// RateLimit throttles /api/v1 when set; probes and metrics are exempt.
	RateLimit *middleware.RateLimitConfig
}

// NewRouter constructs the complete HTTP route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.Logger != nil {
		lc := middleware.DefaultLoggingConfig()
		if cfg.LoggingConfig != nil {
			lc = *cfg.LoggingConfig
		}
		r.Use(middleware.RequestLogging(cfg.Logger, lc))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}

	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsCollector.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.RateLimit != nil {
			api.Use(middleware.RateLimit(*cfg.RateLimit))
		}
		registerFormulaRoutes(api, cfg.FormulaHandler)
	})

	return r
}

// registerFormulaRoutes mounts the prediction endpoints under /formulas and
// the rule listing under /rules.
func registerFormulaRoutes(r chi.Router, h *handlers.FormulaHandler) {
	if h == nil {
		return
	}
	r.Route("/formulas", func(fr chi.Router) {
		fr.Post("/predict", h.Predict)
		fr.Post("/predict/batch", h.PredictBatch)
		fr.Post("/check", h.Check)
	})
	r.Get("/rules", h.Rules)
}

//Personal.AI order the ending
