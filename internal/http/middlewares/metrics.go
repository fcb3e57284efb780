package middlewares

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/siteconnect/internal/metrics"
)

// WithMetrics registra contador, latencia e inflight por método y ruta.
// La ruta es el patrón de chi cuando existe, para no explotar cardinalidad.
func WithMetrics() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			inflight := metrics.HTTPInflight.WithLabelValues(r.Method, normalizePath(r.URL.Path))
			inflight.Inc()
			defer inflight.Dec()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			path := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				path = rctx.RoutePattern()
			}
			if path == "" {
				path = normalizePath(r.URL.Path)
			}
			metrics.ObserveHTTP(r.Method, path, rec.status, time.Since(start))
		})
	}
}

// normalizePath reemplaza segmentos numéricos por ":id" y corta en 4 niveles.
func normalizePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) > 4 {
		parts = append(parts[:4], "*")
	}
	for i, s := range parts {
		if s != "" && strings.Trim(s, "0123456789") == "" {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}
