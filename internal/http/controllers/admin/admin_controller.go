// Package admin expone la superficie de colaboración para la UI de
// administración: estado, desconexión y la redirección al connect URL.
package admin

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dropDatabas3/siteconnect/internal/handshake"
	httperrors "github.com/dropDatabas3/siteconnect/internal/http/errors"
	"github.com/dropDatabas3/siteconnect/internal/http/helpers"
	"github.com/dropDatabas3/siteconnect/internal/observability/logger"
)

// Headers con la identidad del usuario local que opera la UI.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
	HeaderUserLogin = "X-User-Login"
)

// StatusResponse es la respuesta de GET /admin/status.
type StatusResponse struct {
	Active     bool  `json:"active"`
	Registered bool  `json:"registered"`
	SiteID     int64 `json:"site_id"`
}

// ConnectURLResponse es la respuesta de GET /admin/connect_url.
type ConnectURLResponse struct {
	URL string `json:"url"`
}

// Controller maneja /admin.
type Controller struct {
	handshake *handshake.Service
}

// NewController crea el controller.
func NewController(hs *handshake.Service) *Controller {
	return &Controller{handshake: hs}
}

// Redirect maneja GET /admin/?action={prefix}_redirect_to_activation_url.
// Responde 302 al connect URL; cualquier otra action es 404.
func (c *Controller) Redirect(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("action") != c.handshake.RedirectAction() {
		httperrors.WriteError(w, httperrors.ErrNotFound)
		return
	}

	target, err := c.connectURL(r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// ConnectURL maneja GET /admin/connect_url.
func (c *Controller) ConnectURL(w http.ResponseWriter, r *http.Request) {
	target, err := c.connectURL(r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, ConnectURLResponse{URL: target})
}

// Status maneja GET /admin/status.
func (c *Controller) Status(w http.ResponseWriter, r *http.Request) {
	st, err := c.handshake.Status(r.Context())
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, StatusResponse{
		Active:     st.Active,
		Registered: st.Registered,
		SiteID:     st.SiteID,
	})
}

// Disconnect maneja POST /admin/disconnect.
func (c *Controller) Disconnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := c.handshake.Disconnect(ctx); err != nil {
		logger.From(ctx).Error("disconnect failed", logger.Op("Admin.Disconnect"), logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, true)
}

func (c *Controller) connectURL(r *http.Request) (string, error) {
	ctx := r.Context()
	user := userFromHeaders(r)
	target, err := c.handshake.BuildConnectURL(ctx, user, r.URL.Query().Get("redirect"))
	if err != nil {
		logger.From(ctx).Warn("connect url failed",
			logger.Op("Admin.ConnectURL"),
			logger.Email(user.Email),
			logger.Err(err),
		)
		return "", err
	}
	return target, nil
}

// userFromHeaders arma el usuario local desde los headers de identidad.
func userFromHeaders(r *http.Request) handshake.User {
	id, _ := strconv.ParseInt(strings.TrimSpace(r.Header.Get(HeaderUserID)), 10, 64)
	return handshake.User{
		ID:    id,
		Email: strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
		Login: strings.TrimSpace(r.Header.Get(HeaderUserLogin)),
	}
}
