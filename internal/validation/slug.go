package validation

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	slugUnsafeRe = regexp.MustCompile(`[^a-z0-9_\-]+`)
	slugDashesRe = regexp.MustCompile(`-+`)
	keyUnsafeRe  = regexp.MustCompile(`[^a-z0-9_\-]`)
)

// SanitizeTitle convierte un nombre de acción en slug: minúsculas, espacios
// y puntos a guiones, sin acentos ni caracteres fuera de [a-z0-9_-].
func SanitizeTitle(s string) string {
	s = stripAccents(strings.ToLower(strings.TrimSpace(s)))
	s = strings.NewReplacer(" ", "-", ".", "-", "\t", "-", "/", "-").Replace(s)
	s = slugUnsafeRe.ReplaceAllString(s, "")
	s = slugDashesRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SanitizeKey deja solo [a-z0-9_-] en minúsculas. Usado para claves de licencia.
func SanitizeKey(s string) string {
	return keyUnsafeRe.ReplaceAllString(strings.ToLower(s), "")
}

func stripAccents(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
