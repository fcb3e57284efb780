// Package connect contiene los endpoints que consume el servicio remoto:
// verify_registration y connection_page antes de conectar, do_action después.
package connect

import (
	"net/http"

	"github.com/dropDatabas3/siteconnect/internal/dispatch"
	"github.com/dropDatabas3/siteconnect/internal/handshake"
	httperrors "github.com/dropDatabas3/siteconnect/internal/http/errors"
	"github.com/dropDatabas3/siteconnect/internal/http/helpers"
	mw "github.com/dropDatabas3/siteconnect/internal/http/middlewares"
	"github.com/dropDatabas3/siteconnect/internal/observability/logger"
)

// Controller maneja los endpoints del namespace local.
type Controller struct {
	handshake  *handshake.Service
	dispatcher *dispatch.Dispatcher
}

// NewController crea el controller.
func NewController(hs *handshake.Service, d *dispatch.Dispatcher) *Controller {
	return &Controller{handshake: hs, dispatcher: d}
}

// VerifyRegistration maneja POST|PUT|PATCH /{ns}/verify_registration.
// Acepta JSON o form con activation_secret, blog_id y access_token.
func (c *Controller) VerifyRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("Connect.VerifyRegistration"))

	params, err := helpers.ReadParams(w, r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	err = c.handshake.HandleRegistration(ctx, handshake.Registration{
		ActivationSecret: params.String("activation_secret"),
		SiteID:           params.String("blog_id"),
		AccessToken:      params.String("access_token"),
	})
	if err != nil {
		log.Warn("registration rejected", logger.Err(err), logger.ClientIP(mw.ClientIP(r)))
		httperrors.WriteError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, true)
}

// ConnectionPage maneja GET /{ns}/connection_page. Devuelve la URL como string JSON.
func (c *Controller) ConnectionPage(w http.ResponseWriter, r *http.Request) {
	u, err := c.handshake.ConnectionPageURL(r.Context())
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, u)
}

// DoAction maneja /{ns}/do_action. Solo se monta detrás de RequireRemoteAuth.
func (c *Controller) DoAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := helpers.ReadParams(w, r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	payload, ok := mw.GetRemotePayload(ctx)
	if !ok {
		// sin payload el gateway no corrió; nunca despachar
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	result, err := c.dispatcher.Do(ctx, params.String("action"), &dispatch.Request{
		Params:   params,
		RemoteIP: mw.ClientIP(r),
		SiteID:   payload.BlogID,
	})
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, result)
}
