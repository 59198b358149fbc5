package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Themis/internal/hermes"
	"github.com/MikeSquared-Agency/Themis/internal/store"
)

// Options carries the handler knobs pulled from the engine config section.
type Options struct {
	MaxPopulationSize int
	ChainTimeout      time.Duration
	AdminToken        string
}

func NewRouter(s store.Store, h hermes.Client, opts Options, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(120))

	populations := NewPopulationsHandler(s, h, opts.MaxPopulationSize, logger)
	chains := NewChainsHandler(s, h, opts.ChainTimeout, logger)
	admin := NewAdminHandler(s)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/populations", populations.Create)
		r.Get("/populations", populations.List)
		r.Get("/populations/{id}", populations.Get)
		r.Delete("/populations/{id}", populations.Delete)

		r.Get("/populations/{id}/allocations/{budget}", chains.Allocation)
		r.Post("/populations/{id}/chain", chains.Compute)
		r.Get("/populations/{id}/chain", chains.Get)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(opts.AdminToken))
			r.Get("/stats", admin.Stats)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
