// Package health contiene el controller para health checks.
package health

import (
	"context"
	"net/http"
	"time"

	httperrors "github.com/dropDatabas3/siteconnect/internal/http/errors"
	"github.com/dropDatabas3/siteconnect/internal/http/helpers"
	"github.com/dropDatabas3/siteconnect/internal/observability/logger"
)

// Pinger es lo mínimo que necesita Readyz del store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Response es el cuerpo de /healthz y /readyz.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Controller maneja las rutas de health check.
type Controller struct {
	store   Pinger
	timeout time.Duration
}

// NewController crea el controller. timeout acota el ping al store.
func NewController(store Pinger, timeout time.Duration) *Controller {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Controller{store: store, timeout: timeout}
}

// Healthz maneja GET /healthz (liveness).
func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, Response{Status: "ok"})
}

// Readyz maneja GET /readyz: 503 si el store no responde.
func (c *Controller) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		logger.From(ctx).Warn("readiness check failed",
			logger.Layer("controller"),
			logger.Op("Health.Readyz"),
			logger.Err(err),
		)
		w.Header().Set("Retry-After", "5")
		helpers.WriteJSON(w, httperrors.ErrServiceUnavailable.HTTPStatus, Response{
			Status: "unavailable",
			Checks: map[string]string{"store": "down"},
		})
		return
	}
	helpers.WriteJSON(w, http.StatusOK, Response{
		Status: "ready",
		Checks: map[string]string{"store": "ok"},
	})
}
