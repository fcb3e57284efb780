package middlewares

import (
	"context"

	"github.com/dropDatabas3/siteconnect/internal/gateway"
)

// =================================================================================
// CONTEXT KEYS
// =================================================================================

type ctxKey string

const (
	ctxRequestIDKey ctxKey = "request_id"
	ctxClientIPKey  ctxKey = "client_ip"
	// ctxRemoteKey guarda el payload verificado del token X_AUTH
	ctxRemoteKey ctxKey = "remote_payload"
)

func setRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, requestID)
}

func setClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxClientIPKey, ip)
}

// WithRemotePayload inyecta el payload verificado en el contexto.
func WithRemotePayload(ctx context.Context, p gateway.Payload) context.Context {
	return context.WithValue(ctx, ctxRemoteKey, p)
}

// =================================================================================
// CONTEXT GETTERS
// =================================================================================

// GetRequestID obtiene el request ID ("" si no hay).
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxRequestIDKey).(string); ok {
		return v
	}
	return ""
}

func getClientIP(ctx context.Context) string {
	v, _ := ctx.Value(ctxClientIPKey).(string)
	return v
}

// GetRemotePayload obtiene el payload del servicio remoto autenticado.
// ok es false si el request no pasó por RequireRemoteAuth.
func GetRemotePayload(ctx context.Context) (gateway.Payload, bool) {
	p, ok := ctx.Value(ctxRemoteKey).(gateway.Payload)
	return p, ok
}
