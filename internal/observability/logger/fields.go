package logger

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// HTTP
// =================================================================================

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }
func URL(v string) zap.Field       { return zap.String("url", v) }

// DurationMs crea un campo para la duración en milisegundos.
func DurationMs(d time.Duration) zap.Field { return zap.Int64("duration_ms", d.Milliseconds()) }

// =================================================================================
// CONEXIÓN
// =================================================================================

// SiteID es el id remoto del sitio (blog_id).
func SiteID(v int64) zap.Field { return zap.Int64("site_id", v) }

// Action es el nombre (ya sanitizado) de una acción remota.
func Action(v string) zap.Field { return zap.String("action", v) }

// Kind es el código estable de un error de dominio.
func Kind(v string) zap.Field { return zap.String("kind", v) }

// Domain es el host evaluado por el chequeo de dominio.
func Domain(v string) zap.Field { return zap.String("domain", v) }

// Secret registra solo un fingerprint corto del secreto, nunca su valor.
func Secret(key, secret string) zap.Field {
	if secret == "" {
		return zap.String(key+"_fp", "")
	}
	sum := sha256.Sum256([]byte(secret))
	return zap.String(key+"_fp", base64.RawURLEncoding.EncodeToString(sum[:])[:8])
}

// Email registra el email enmascarado: "j…@e…com".
func Email(v string) zap.Field { return zap.String("email", maskEmail(v)) }

func maskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	at := strings.IndexByte(s, '@')
	if at <= 0 {
		if len(s) <= 3 {
			return strings.Repeat("*", len(s))
		}
		return s[:1] + "…" + s[len(s)-1:]
	}
	user, host := s[:at], s[at+1:]
	if len(user) > 1 {
		user = user[:1] + "…"
	}
	if dot := strings.LastIndexByte(host, '.'); dot > 1 {
		host = host[:1] + "…" + host[dot+1:]
	}
	return user + "@" + host
}

// =================================================================================
// SISTEMA
// =================================================================================

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Err(err error) zap.Field      { return zap.Error(err) }

func String(key, v string) zap.Field  { return zap.String(key, v) }
func Int(key string, v int) zap.Field { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
