package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeRedirect(t *testing.T) {
	const admin = "https://example.com/wp-admin/"
	hosts := []string{"example.com", "www.example.com"}

	cases := map[string]string{
		"":                                       admin,
		"https://example.com/wp-admin/x.php?a=1": "https://example.com/wp-admin/x.php?a=1",
		"http://WWW.example.com/":                "http://WWW.example.com/",
		"https://evil.com/wp-admin/":             admin,
		"//evil.com/x":                           admin,
		"javascript:alert(1)":                    admin,
		"https:\\\\evil.com":                     admin,
		"admin.php?page=connect":                 "https://example.com/wp-admin/admin.php?page=connect",
		"/other":                                 "https://example.com/other",
	}
	for in, want := range cases {
		assert.Equal(t, want, SafeRedirect(in, admin, hosts...), in)
	}
}
