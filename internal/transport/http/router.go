// Package httptransport assembles the public HTTP surface: module handlers
// mounted under /api behind the shared middleware chain, plus health and
// metrics endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cabshare/internal/platform/metrics"
	"cabshare/internal/platform/middleware"
)

// Registrar is what every module handler exposes to the router.
type Registrar interface {
	Register(r chi.Router)
}

// Config selects router behavior that differs per deployment.
type Config struct {
	RequestTimeout time.Duration
}

// NewRouter mounts the module handlers. Streaming handlers skip the timeout
// chain: an event stream must outlive any request deadline.
func NewRouter(
	logger *slog.Logger,
	m *metrics.Metrics,
	cfg Config,
	api []Registrar,
	streaming []Registrar,
	health http.HandlerFunc) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Recovery(logger))
	root.Use(middleware.RequestID)
	root.Use(middleware.RequestTime)
	root.Use(middleware.Logger(logger))
	root.Use(middleware.Latency(m))

	root.Get("/healthz", health)
	root.Method(http.MethodGet, "/metrics", promhttp.Handler())

	root.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
			r.Use(middleware.ContentTypeJSON)
			for _, h := range api {
				h.Register(r)
			}
		})
		r.Group(func(r chi.Router) {
			for _, h := range streaming {
				h.Register(r)
			}
		})
	})
	return root
}
