package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dropDatabas3/siteconnect/internal/domain"
)

// Hosts que nunca son alcanzables desde el servicio remoto.
var forbiddenDomains = map[string]struct{}{
	"localhost":             {},
	"localhost.localdomain": {},
	"127.0.0.1":             {},
}

// TLDs reservados para uso local (RFC 2606 / mDNS).
var reservedTLDRe = regexp.MustCompile(`(?i)\.(test|local)$`)

// IsUsableDomain rechaza hosts no enrutables antes de iniciar una conexión.
//
// El dominio vacío falla siempre. Con skip=true se omite el resto del chequeo,
// para operadores que saben que su host es alcanzable aunque no lo parezca.
func IsUsableDomain(host string, skip bool) error {
	if host == "" {
		return fmt.Errorf("%w: domain is empty", domain.ErrEmptyDomain)
	}
	if skip {
		return nil
	}
	if _, ok := forbiddenDomains[host]; ok {
		return fmt.Errorf("%w: %q", domain.ErrForbiddenDomain, host)
	}
	if reservedTLDRe.MatchString(host) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidTLD, host)
	}
	return nil
}

// HostOf extrae el host (sin puerto) de una URL absoluta o de un host suelto.
func HostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "://"); i >= 0 {
		raw = raw[i+3:]
	}
	if i := strings.IndexAny(raw, "/?#"); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.LastIndex(raw, "@"); i >= 0 {
		raw = raw[i+1:]
	}
	if strings.HasPrefix(raw, "[") {
		if j := strings.Index(raw, "]"); j > 0 {
			return raw[1:j]
		}
	}
	if i := strings.LastIndex(raw, ":"); i >= 0 && strings.Count(raw, ":") == 1 {
		raw = raw[:i]
	}
	return strings.ToLower(raw)
}
