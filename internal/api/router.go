package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prophive/push-dispatcher/internal/metrics"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(dispatcher Dispatcher, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// The webhook source may be a browser-hosted admin tool
	r.Use(corsMiddleware)

	webhooks := NewWebhookHandler(dispatcher, logger)

	r.Route("/v1/webhooks", func(r chi.Router) {
		r.Post("/activity-events", webhooks.ActivityEvents)
		r.Post("/payments", webhooks.Payments)
		r.Post("/messages", webhooks.Messages)
	})

	r.Get("/api/v1/health", HealthHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return r
}

// corsMiddleware adds permissive CORS headers and short-circuits preflight.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
