// Package router arma el árbol de rutas sobre chi.
package router

import (
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/siteconnect/internal/dispatch"
	"github.com/dropDatabas3/siteconnect/internal/gateway"
	"github.com/dropDatabas3/siteconnect/internal/handshake"
	"github.com/dropDatabas3/siteconnect/internal/http/controllers/health"
	httperrors "github.com/dropDatabas3/siteconnect/internal/http/errors"
	mw "github.com/dropDatabas3/siteconnect/internal/http/middlewares"
	"github.com/dropDatabas3/siteconnect/internal/rate"
)

// DefaultRESTBase es el prefijo de la API local cuando no se configura otro.
const DefaultRESTBase = "/wp-json"

// Deps son las dependencias del router.
type Deps struct {
	Handshake     *handshake.Service
	Dispatcher    *dispatch.Dispatcher
	Authenticator *gateway.Authenticator
	Store         health.Pinger

	// RegistrationLimiter limita verify_registration por IP; nil no limita.
	RegistrationLimiter rate.Limiter
	AdminAPIKey         string
	// RESTBase es el path bajo el que vive el namespace local.
	RESTBase           string
	CORSAllowedOrigins []string
	// TrustedProxies habilita X-Forwarded-For solo para estos peers.
	TrustedProxies []*net.IPNet
	// Metrics sirve /metrics; nil no lo monta.
	Metrics http.Handler
}

// New crea el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithClientIP(d.TrustedProxies),
		mw.WithLogging(),
		mw.WithMetrics(),
		mw.WithSecurityHeaders(),
		mw.WithCORS(d.CORSAllowedOrigins),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	RegisterHealthRoutes(r, d)
	RegisterConnectRoutes(r, d)
	RegisterAdminRoutes(r, d)
	return r
}

// restBase normaliza el prefijo: "/wp-json/" -> "/wp-json", "" -> DefaultRESTBase.
func restBase(base string) string {
	base = strings.Trim(strings.TrimSpace(base), "/")
	if base == "" {
		return DefaultRESTBase
	}
	return "/" + base
}
