package middlewares

import (
	"net/http"

	"github.com/dropDatabas3/siteconnect/internal/domain"
	"github.com/dropDatabas3/siteconnect/internal/gateway"
	"github.com/dropDatabas3/siteconnect/internal/http/errors"
	"github.com/dropDatabas3/siteconnect/internal/metrics"
	"github.com/dropDatabas3/siteconnect/internal/observability/logger"
)

// RequireRemoteAuth verifica el header X_AUTH antes de llegar al handler.
// Cualquier falla corta el request; los handlers nunca ven requests sin verificar.
func RequireRemoteAuth(auth *gateway.Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload, err := auth.Authenticate(r)
			if err != nil {
				log := logger.From(r.Context()).With(logger.Layer("middleware"), logger.Op("RequireRemoteAuth"))
				if domain.IsAuthFailure(err) {
					kind := domain.Kind(err)
					metrics.RecordAuthFailure(kind)
					log.Warn("remote request rejected", logger.Kind(kind), logger.ClientIP(clientIP(r)))
				} else {
					log.Error("remote auth failed", logger.Err(err))
				}
				errors.WriteError(w, err)
				return
			}

			ctx := WithRemotePayload(r.Context(), payload)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
