package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	Logger *slog.Logger
	// Если nil, колбэки не ограничиваются
	Limiter  *TokenRateLimiter
	Gatherer prometheus.Gatherer
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(logger))

	r.Get("/health", h.HealthCheck)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Post("/deals", h.CreateDeal)

	r.Group(func(r chi.Router) {
		if opts.Limiter != nil {
			r.Use(opts.Limiter.Middleware)
		}
		r.Post("/aggregators/callback", h.Callback)
		r.Post("/aggregators/callback/batch", h.CallbackBatch)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Put("/aggregators/priorities", h.UpdatePriorities)
		r.Post("/aggregators/priorities/recalculate", h.RecalculatePriorities)
		r.Get("/aggregators/sla", h.SLAReport)
		r.Put("/aggregator-merchants/{id}/fee-ranges", h.ReplaceFeeRanges)
		r.Post("/deals/{id}/override", h.OverrideDeal)
	})

	return r
}
