package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

// RouterConfig carries the settings NewRouter needs besides its collaborators.
type RouterConfig struct {
	Token              string
	FreePlanLimit      int
	RateLimitPerMinute int
	CORSOrigins        []string
	// Gatherer backs /metrics. Nil means the default registry.
	Gatherer prometheus.Gatherer
}

// NewRouter builds and returns the Chi router with all routes configured.
// Health, metrics and the catalog are public; planning is open to anonymous
// callers up to the free limit; stored plans require bearer auth.
func NewRouter(handlers *Handlers, cfg RouterConfig, db dbPinger, redisClient redisPinger, usage UsageCounter, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	rate := cfg.RateLimitPerMinute
	if rate <= 0 {
		rate = 60
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httprate.LimitByIP(rate, time.Minute))

	r.Get("/api/v1/health", HealthHandlerFunc(db, redisClient, log))
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Get("/api/v1/destinations", handlers.ListDestinations)
	r.Get("/api/v1/destinations/{city}/pois", handlers.GetPOIs)

	r.Group(func(r chi.Router) {
		r.Use(UsageGate(cfg.Token, usage, cfg.FreePlanLimit, log))
		r.Post("/api/v1/recommendations", handlers.Recommend)
		r.Post("/api/v1/plans", handlers.CreatePlan)
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(cfg.Token))
		r.Get("/api/v1/plans", handlers.ListPlans)
		r.Get("/api/v1/plans/{id}", handlers.GetPlan)
		r.Get("/api/v1/plans/{id}/export.md", handlers.ExportMarkdown)
		r.Get("/api/v1/plans/{id}/export.json", handlers.ExportJSON)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Location", "Content-Disposition"},
	})

	return c.Handler(r)
}
