package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/siteconnect/internal/handshake"
	"github.com/dropDatabas3/siteconnect/internal/http/controllers/connect"
	httperrors "github.com/dropDatabas3/siteconnect/internal/http/errors"
	mw "github.com/dropDatabas3/siteconnect/internal/http/middlewares"
)

// RegisterConnectRoutes monta el namespace local. Qué rutas responden
// depende del estado de conexión, evaluado en cada request.
func RegisterConnectRoutes(r chi.Router, d Deps) {
	c := connect.NewController(d.Handshake, d.Dispatcher)
	ns := restBase(d.RESTBase) + "/" + strings.Trim(d.Handshake.LocalAPINamespace(), "/")

	r.Route(ns, func(r chi.Router) {
		r.Use(mw.WithNoStore())

		// Sin conectar: registro y página de conexión.
		r.Group(func(r chi.Router) {
			r.Use(whenActive(d.Handshake, false))
			r.With(mw.WithRateLimit(mw.RateLimitConfig{
				Limiter: d.RegistrationLimiter,
				KeyFunc: mw.ClientIP,
			})).Group(func(r chi.Router) {
				r.Post("/verify_registration", c.VerifyRegistration)
				r.Put("/verify_registration", c.VerifyRegistration)
				r.Patch("/verify_registration", c.VerifyRegistration)
			})
			r.Get("/connection_page", c.ConnectionPage)
		})

		// Conectado: acciones remotas detrás del gateway.
		r.Group(func(r chi.Router) {
			r.Use(whenActive(d.Handshake, true), mw.RequireRemoteAuth(d.Authenticator))
			r.HandleFunc("/do_action", c.DoAction)
		})
	})
}

// whenActive deja pasar solo si IsActive coincide con want; si no, la ruta no existe.
func whenActive(hs *handshake.Service, want bool) mw.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			active, err := hs.IsActive(r.Context())
			if err != nil {
				httperrors.WriteError(w, err)
				return
			}
			if active != want {
				httperrors.WriteError(w, httperrors.ErrNotFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
