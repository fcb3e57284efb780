// Package domain define los tipos y errores compartidos por el núcleo de
// conexión sitio-a-sitio (handshake, gateway, dispatcher, validación).
package domain

import "errors"

var (
	// ErrMissingToken indica que no hay access token local para firmar o verificar.
	ErrMissingToken = errors.New("missing token")

	// ErrMissingAuthHeader indica que el request no trae Authorization: X_AUTH <token>.
	ErrMissingAuthHeader = errors.New("missing authorization header")

	// ErrInvalidAuthHeader indica un token que no tiene 3 segmentos o cuyo payload no es JSON.
	ErrInvalidAuthHeader = errors.New("invalid authorization header")

	// ErrUnauthorized indica que la firma del token no verifica con la clave local.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidRegistrationState indica que falta alguno de los datos de registro.
	ErrInvalidRegistrationState = errors.New("invalid registration data")

	// ErrInvalidSecret indica que el activation secret no coincide con el vigente.
	ErrInvalidSecret = errors.New("invalid secret")

	// ErrMissingAction indica que el nombre de acción está vacío tras sanitizarlo.
	ErrMissingAction = errors.New("missing action")

	// ErrEmptyDomain indica que el dominio a chequear está vacío.
	ErrEmptyDomain = errors.New("empty domain")

	// ErrForbiddenDomain indica un dominio explícitamente local (localhost, 127.0.0.1, ...).
	ErrForbiddenDomain = errors.New("forbidden domain")

	// ErrInvalidTLD indica un dominio con TLD reservado (.test, .local).
	ErrInvalidTLD = errors.New("invalid top level domain")

	// ErrRemoteTransport envuelve fallas HTTP en llamadas salientes.
	ErrRemoteTransport = errors.New("remote transport error")
)

// kinds mapea cada sentinel a un código estable (usado en respuestas y métricas).
var kinds = []struct {
	err  error
	code string
}{
	{ErrMissingToken, "missing_token"},
	{ErrMissingAuthHeader, "missing_auth_header"},
	{ErrInvalidAuthHeader, "invalid_auth_header"},
	{ErrUnauthorized, "unauthorized"},
	{ErrInvalidRegistrationState, "registration_state_invalid"},
	{ErrInvalidSecret, "invalid_secret"},
	{ErrMissingAction, "missing_action"},
	{ErrEmptyDomain, "fail_domain_empty"},
	{ErrForbiddenDomain, "fail_domain_forbidden"},
	{ErrInvalidTLD, "fail_domain_tld"},
	{ErrRemoteTransport, "remote_transport_error"},
}

// Kind devuelve el código estable del error, o "internal" si no es un error de dominio.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return "internal"
}

// IsAuthFailure indica si el error proviene de la verificación de un request entrante.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrMissingAuthHeader) ||
		errors.Is(err, ErrInvalidAuthHeader) ||
		errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrUnauthorized)
}
