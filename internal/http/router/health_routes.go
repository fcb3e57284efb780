package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/siteconnect/internal/http/controllers/health"
)

// RegisterHealthRoutes monta /healthz, /readyz y /metrics.
func RegisterHealthRoutes(r chi.Router, d Deps) {
	c := health.NewController(d.Store, 0)
	r.Get("/healthz", c.Healthz)
	r.Get("/readyz", c.Readyz)
	if d.Metrics != nil {
		r.Method("GET", "/metrics", d.Metrics)
	}
}
