package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/siteconnect/internal/http/controllers/admin"
	mw "github.com/dropDatabas3/siteconnect/internal/http/middlewares"
)

// RegisterAdminRoutes monta /admin detrás de X-Admin-API-Key.
func RegisterAdminRoutes(r chi.Router, d Deps) {
	c := admin.NewController(d.Handshake)

	r.Route("/admin", func(r chi.Router) {
		r.Use(mw.RequireAdminKey(d.AdminAPIKey), mw.WithNoStore())
		r.Get("/", c.Redirect)
		r.Get("/status", c.Status)
		r.Get("/connect_url", c.ConnectURL)
		r.Post("/disconnect", c.Disconnect)
	})
}
