package gateway

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dropDatabas3/siteconnect/internal/domain"
	"github.com/dropDatabas3/siteconnect/internal/jwt"
)

// Authenticator verifica los requests entrantes del servicio remoto.
type Authenticator struct {
	creds Credentials
}

// NewAuthenticator crea el verificador.
func NewAuthenticator(creds Credentials) *Authenticator {
	return &Authenticator{creds: creds}
}

// Authenticate valida "Authorization: X_AUTH <token>" contra el access token local.
//
// Orden de chequeos: header ausente (ErrMissingAuthHeader), token sin 3
// segmentos o payload no JSON (ErrInvalidAuthHeader), sin access token local
// (ErrMissingToken), firma inválida (ErrUnauthorized). Devuelve el payload
// verificado. Los errores nunca incluyen el token.
func (a *Authenticator) Authenticate(r *http.Request) (Payload, error) {
	token := tokenFromHeaders(r.Header.Values("Authorization"))
	if token == "" {
		return Payload{}, domain.ErrMissingAuthHeader
	}

	if _, err := jwt.PeekPayload(token); err != nil {
		return Payload{}, domain.ErrInvalidAuthHeader
	}

	key, ok, err := a.creds.AccessToken(r.Context())
	if err != nil {
		return Payload{}, fmt.Errorf("gateway: read access token: %w", err)
	}
	if !ok {
		return Payload{}, domain.ErrMissingToken
	}

	raw, err := jwt.Decode(token, []byte(key))
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return payloadOf(raw), nil
}

// tokenFromHeaders toma el primer valor con esquema X_AUTH (sin importar
// mayúsculas ni espacios alrededor).
func tokenFromHeaders(values []string) string {
	for _, h := range values {
		h = strings.TrimSpace(h)
		if len(h) <= len(AuthScheme) || !strings.EqualFold(h[:len(AuthScheme)], AuthScheme) {
			continue
		}
		rest := h[len(AuthScheme):]
		if rest[0] != ' ' && rest[0] != '\t' {
			continue
		}
		if tok := strings.TrimSpace(rest); tok != "" {
			return tok
		}
	}
	return ""
}
