package validation

import (
	"net/url"
	"strings"
)

// SafeRedirect devuelve target solo si apunta a uno de los hosts permitidos.
// Paths relativos se resuelven contra fallback. Cualquier otra cosa
// (otro host, esquema no http(s), "//host", backslashes) colapsa a fallback.
func SafeRedirect(target, fallback string, allowedHosts ...string) string {
	target = strings.TrimSpace(target)
	if target == "" || strings.ContainsAny(target, "\\\r\n\t") {
		return fallback
	}
	if strings.HasPrefix(target, "//") {
		return fallback
	}

	u, err := url.Parse(target)
	if err != nil {
		return fallback
	}
	if !u.IsAbs() {
		if u.Host != "" {
			return fallback
		}
		base, err := url.Parse(fallback)
		if err != nil || !base.IsAbs() {
			return fallback
		}
		return base.ResolveReference(u).String()
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fallback
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range allowedHosts {
		if h != "" && host == strings.ToLower(h) {
			return u.String()
		}
	}
	return fallback
}
