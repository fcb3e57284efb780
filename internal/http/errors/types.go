package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/dropDatabas3/siteconnect/internal/domain"
)

// AppError define la estructura estándar para errores HTTP.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"` // No se serializa, usado para el header
	Err        error  `json:"-"` // Causa, solo para logs
}

// Error implementa la interfaz error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap permite acceder al error original
func (e *AppError) Unwrap() error {
	return e.Err
}

// New crea un nuevo AppError
func New(status int, code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}
}

// WithDetail devuelve una COPIA con detalle agregado.
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause devuelve una COPIA con la causa.
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// FromError convierte cualquier error en AppError. Los errores de dominio
// tienen su código estable; el resto es 500 conservando la causa.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	for _, m := range domainErrors {
		if stderrors.Is(err, m.sentinel) {
			return m.app.WithCause(err)
		}
	}
	return ErrInternalServerError.WithCause(err)
}

// =================================================================================
// ERRORES DE DOMINIO
// =================================================================================

// Los códigos son los de domain.Kind. Ningún mensaje incluye material de tokens.
var (
	ErrMissingToken = &AppError{
		Code:       "missing_token",
		Message:    "Missing blog token.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrMissingAuthHeader = &AppError{
		Code:       "missing_auth_header",
		Message:    "Missing Authorization Header.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidAuthHeader = &AppError{
		Code:       "invalid_auth_header",
		Message:    "Invalid Authorization Header.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrUnauthorized = &AppError{
		Code:       "unauthorized",
		Message:    "You are not authorized to do that.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidRegistrationState = &AppError{
		Code:       "registration_state_invalid",
		Message:    "Invalid Registration Data",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidSecret = &AppError{
		Code:       "invalid_secret",
		Message:    "Invalid Secret",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrMissingAction = &AppError{
		Code:       "missing_action",
		Message:    "Specify an action",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrEmptyDomain = &AppError{
		Code:       "fail_domain_empty",
		Message:    "Domain is empty.",
		HTTPStatus: http.StatusUnprocessableEntity,
	}

	ErrForbiddenDomain = &AppError{
		Code:       "fail_domain_forbidden",
		Message:    "Domain is a local host and cannot be reached by the remote service.",
		HTTPStatus: http.StatusUnprocessableEntity,
	}

	ErrInvalidTLD = &AppError{
		Code:       "fail_domain_tld",
		Message:    "Domain uses a reserved top level domain.",
		HTTPStatus: http.StatusUnprocessableEntity,
	}

	ErrRemoteTransport = &AppError{
		Code:       "remote_transport_error",
		Message:    "The remote service could not be reached.",
		HTTPStatus: http.StatusBadGateway,
	}
)

var domainErrors = []struct {
	sentinel error
	app      *AppError
}{
	{domain.ErrMissingToken, ErrMissingToken},
	{domain.ErrMissingAuthHeader, ErrMissingAuthHeader},
	{domain.ErrInvalidAuthHeader, ErrInvalidAuthHeader},
	{domain.ErrUnauthorized, ErrUnauthorized},
	{domain.ErrInvalidRegistrationState, ErrInvalidRegistrationState},
	{domain.ErrInvalidSecret, ErrInvalidSecret},
	{domain.ErrMissingAction, ErrMissingAction},
	{domain.ErrEmptyDomain, ErrEmptyDomain},
	{domain.ErrForbiddenDomain, ErrForbiddenDomain},
	{domain.ErrInvalidTLD, ErrInvalidTLD},
	{domain.ErrRemoteTransport, ErrRemoteTransport},
}

// =================================================================================
// ERRORES GENÉRICOS
// =================================================================================

var (
	ErrBadRequest = &AppError{
		Code:       "bad_request",
		Message:    "La solicitud contiene sintaxis inválida o parámetros faltantes.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidJSON = &AppError{
		Code:       "invalid_json",
		Message:    "El cuerpo de la solicitud no es un JSON válido.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrBodyTooLarge = &AppError{
		Code:       "body_too_large",
		Message:    "El cuerpo de la solicitud excede el tamaño máximo permitido.",
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}

	ErrAdminKeyRequired = &AppError{
		Code:       "admin_key_required",
		Message:    "Se requiere X-Admin-API-Key válida.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrNotFound = &AppError{
		Code:       "rest_no_route",
		Message:    "No route was found matching the URL and request method.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrMethodNotAllowed = &AppError{
		Code:       "method_not_allowed",
		Message:    "Método HTTP no soportado para este recurso.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "rate_limit_exceeded",
		Message:    "Has excedido el límite de solicitudes. Intenta más tarde.",
		HTTPStatus: http.StatusTooManyRequests,
	}

	ErrInternalServerError = &AppError{
		Code:       "internal_error",
		Message:    "Ocurrió un error inesperado en el servidor.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "service_unavailable",
		Message:    "El servicio no está disponible temporalmente.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)
