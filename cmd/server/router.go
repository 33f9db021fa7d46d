package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"altid/internal/platform/metrics"
	"altid/internal/platform/middleware"
	verificationHandler "altid/internal/verification/handler"
	"altid/pkg/platform/httputil"
)

func newRouter(
	h *verificationHandler.Handler,
	log *slog.Logger,
	m *metrics.Metrics,
	requestTimeout time.Duration,
	health func(context.Context) error,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Latency(m))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := health(req.Context()); err != nil {
			log.WarnContext(req.Context(), "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		h.Register(r)
	})
	return r
}
