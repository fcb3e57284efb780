package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/siteconnect/internal/gateway"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseParams(t *testing.T) {
	v, err := parseParams([]string{"action=update_options", "a=1", "a=2", "empty="})
	require.NoError(t, err)
	assert.Equal(t, "update_options", v.Get("action"))
	assert.Equal(t, []string{"1", "2"}, v["a"])
	assert.Equal(t, "", v.Get("empty"))

	_, err = parseParams([]string{"nokey"})
	assert.Error(t, err)
	_, err = parseParams([]string{"=v"})
	assert.Error(t, err)
}

func TestTokenSignVerify(t *testing.T) {
	tok, err := run(t, "token", "sign", "--key", "k1", "--payload", `{"blog_id":5}`)
	require.NoError(t, err)
	tok = strings.TrimSpace(tok)

	want, err := gateway.SignToken(5, "k1")
	require.NoError(t, err)
	assert.Equal(t, want, tok)

	out, err := run(t, "token", "verify", "--key", "k1", tok)
	require.NoError(t, err)
	assert.JSONEq(t, `{"blog_id":5}`, out)

	_, err = run(t, "token", "verify", "--key", "other", tok)
	assert.Error(t, err)
}

func TestCheckDomain(t *testing.T) {
	out, err := run(t, "check-domain", "https://shop.example.com/wp-admin")
	require.NoError(t, err)
	assert.Equal(t, "shop.example.com: ok\n", out)

	_, err = run(t, "check-domain", "localhost")
	assert.ErrorContains(t, err, "fail_domain_forbidden")

	_, err = run(t, "check-domain", "site.local", "--force")
	assert.NoError(t, err)
}

func TestCall_SignsRequest(t *testing.T) {
	var gotAuth, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = io.WriteString(w, `true`)
	}))
	defer srv.Close()

	out, err := run(t, "call", srv.URL, "--key", "tok", "--blog-id", "9", "--param", "action=ping")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	want, err := gateway.SignToken(9, "tok")
	require.NoError(t, err)
	assert.Equal(t, "X_AUTH "+want, gotAuth)
	assert.Equal(t, "action=ping", gotBody)
}

func TestStatus_RequiresKey(t *testing.T) {
	t.Setenv("SITECONNECT_ADMIN_KEY", "")
	_, err := run(t, "status")
	assert.ErrorContains(t, err, "falta API key")
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Admin-API-Key") != "k" || r.URL.Path != "/admin/status" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"active":true,"registered":true,"site_id":3}`)
	}))
	defer srv.Close()

	out, err := run(t, "status", "--admin-api-url", srv.URL, "--admin-api-key", "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"active":true,"registered":true,"site_id":3}`, out)
}

func TestConnectURL_EscapesRedirect(t *testing.T) {
	const redirect = "https://example.com/wp-admin/admin.php?page=x&tab=y z"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/connect_url" || r.URL.Query().Get("redirect") != redirect || r.Header.Get("X-User-ID") != "7" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, `{"url":"https://remote.example.net/connect?x=1"}`)
	}))
	defer srv.Close()

	out, err := run(t, "connect-url", "--admin-api-url", srv.URL, "--admin-api-key", "k",
		"--out", "text", "--user-id", "7", "--redirect", redirect)
	require.NoError(t, err)
	assert.Equal(t, "https://remote.example.net/connect?x=1", strings.TrimSpace(out))
}
