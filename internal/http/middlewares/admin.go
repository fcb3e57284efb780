package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dropDatabas3/siteconnect/internal/http/errors"
)

// AdminKeyHeader es el header que autentica la superficie de administración.
const AdminKeyHeader = "X-Admin-API-Key"

// RequireAdminKey exige X-Admin-API-Key igual a key. Con key vacía rechaza todo.
func RequireAdminKey(key string) Middleware {
	want := []byte(strings.TrimSpace(key))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(strings.TrimSpace(r.Header.Get(AdminKeyHeader)))
			if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
				errors.WriteError(w, errors.ErrAdminKeyRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
