// Package gateway autentica el tráfico entre este sitio y el servicio remoto.
//
// Saliente: Client firma cada llamada con un token HS256 cuyo payload es
// {blog_id}, usando el access token como clave, y lo envía en
// "Authorization: X_AUTH <token>".
//
// Entrante: Authenticator valida ese mismo header antes de que cualquier
// handler con efectos se ejecute. No hay sesión: cada request se verifica sola.
//
// El payload no lleva timestamp ni nonce: un token capturado sigue siendo
// válido mientras no cambie el access token.
package gateway

import (
	"context"
	"encoding/json"

	"github.com/dropDatabas3/siteconnect/internal/jwt"
)

// AuthScheme es el prefijo del header Authorization.
const AuthScheme = "X_AUTH"

// Credentials entrega el material de firma. secrets.SecretStore lo implementa.
type Credentials interface {
	AccessToken(ctx context.Context) (string, bool, error)
	SiteID(ctx context.Context) (int64, bool, error)
}

// Payload es el contenido de los tokens que firma este sitio.
type Payload struct {
	BlogID int64 `json:"blog_id"`
}

// SignToken firma {blog_id: siteID} con accessToken.
func SignToken(siteID int64, accessToken string) (string, error) {
	return jwt.Encode(Payload{BlogID: siteID}, []byte(accessToken))
}

// StaticCredentials son credenciales fijas (CLI, tests).
type StaticCredentials struct {
	Token string
	Site  int64
}

func (s StaticCredentials) AccessToken(context.Context) (string, bool, error) {
	return s.Token, s.Token != "", nil
}

func (s StaticCredentials) SiteID(context.Context) (int64, bool, error) {
	return s.Site, s.Site != 0, nil
}

// payloadOf decodifica un payload ya verificado.
func payloadOf(raw json.RawMessage) Payload {
	var p Payload
	_ = json.Unmarshal(raw, &p)
	return p
}
