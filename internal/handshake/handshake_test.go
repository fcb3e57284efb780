package handshake

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/siteconnect/internal/domain"
	"github.com/dropDatabas3/siteconnect/internal/gateway"
	"github.com/dropDatabas3/siteconnect/internal/jwt"
	"github.com/dropDatabas3/siteconnect/internal/secrets"
	"github.com/dropDatabas3/siteconnect/internal/site"
	"github.com/dropDatabas3/siteconnect/internal/store"
)

const prefix = "ayecode_connect"

type fixture struct {
	kv      *store.MemoryStore
	secrets *secrets.SecretStore
	svc     *Service
	auth    *gateway.Authenticator
}

func testSite() site.Static {
	first := time.Date(2018, 3, 4, 5, 6, 7, 0, time.UTC)
	return site.Static{
		Name:               "Mi Blog",
		SiteURL:            "https://example.com",
		HomeURL:            "https://www.example.com",
		AdminURL:           "https://example.com/wp-admin/",
		IconURL:            "https://example.com/icon.png",
		Locale:             "es_AR",
		AdminsRegisteredAt: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
		FirstContentAt:     &first,
	}
}

func newFixture(t *testing.T, apiURL string, mutate func(*Config, *site.Static)) *fixture {
	t.Helper()
	kv := store.NewMemory()
	sec := secrets.New(kv, secrets.Options{Prefix: prefix})
	cfg := Config{
		ConnectionURL:     "https://remote.example.net/connect?ref=plugin",
		APIURL:            apiURL,
		APINamespace:      "/wp_service_provider/v1",
		LocalAPINamespace: "ayecode_connect/v1",
		Prefix:            prefix,
		SingleUseSecret:   true,
	}
	st := testSite()
	if mutate != nil {
		mutate(&cfg, &st)
	}
	client := gateway.NewClient(sec, gateway.Options{Timeout: 2 * time.Second})
	return &fixture{
		kv:      kv,
		secrets: sec,
		svc:     New(cfg, sec, st, client),
		auth:    gateway.NewAuthenticator(sec),
	}
}

func TestBuildConnectURL(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "https://remote.example.net/wp-json", nil)

	raw, err := f.svc.BuildConnectURL(ctx, User{ID: 7, Email: "admin@example.com", Login: "admin"}, "https://example.com/wp-admin/admin.php?page=x")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "remote.example.net", u.Host)
	assert.Equal(t, "/connect", u.Path)

	q := u.Query()
	assert.Equal(t, "plugin", q.Get("ref"))
	assert.Equal(t, "https://example.com/wp-admin/admin.php?page=x", q.Get("redirect_uri"))
	assert.Equal(t, "7", q.Get("remote_user_id"))
	assert.Equal(t, "admin@example.com", q.Get("user_email"))
	assert.Equal(t, "admin", q.Get("user_login"))
	assert.Len(t, q.Get("secret_key"), SecretKeyLength)
	assert.Equal(t, "Mi Blog", q.Get("blogname"))
	assert.Equal(t, "https://example.com", q.Get("site_url"))
	assert.Equal(t, "https://www.example.com", q.Get("home_url"))
	assert.Equal(t, "https://example.com/wp-json/ayecode_connect/v1/do_action", q.Get("api_url"))
	assert.Equal(t, "https://example.com/icon.png", q.Get("site_icon"))
	assert.Equal(t, "es_AR", q.Get("site_lang"))
	assert.Equal(t, "2018-03-04 05:06:07", q.Get("site_created"))

	stored, ok, err := f.secrets.CurrentActivationSecret(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stored, q.Get("activation_secret"))

	// la misma ventana reutiliza el activation secret pero no el secret_key
	raw2, err := f.svc.BuildConnectURL(ctx, User{ID: 7}, "")
	require.NoError(t, err)
	u2, _ := url.Parse(raw2)
	assert.Equal(t, stored, u2.Query().Get("activation_secret"))
	assert.NotEqual(t, q.Get("secret_key"), u2.Query().Get("secret_key"))
	assert.Equal(t, "https://example.com/wp-admin/", u2.Query().Get("redirect_uri"))
}

func TestBuildConnectURL_ForeignRedirectCollapses(t *testing.T) {
	f := newFixture(t, "https://remote.example.net/wp-json", nil)
	raw, err := f.svc.BuildConnectURL(context.Background(), User{ID: 1}, "https://evil.example.org/steal")
	require.NoError(t, err)
	u, _ := url.Parse(raw)
	assert.Equal(t, "https://example.com/wp-admin/", u.Query().Get("redirect_uri"))
}

func TestBuildConnectURL_DomainCheck(t *testing.T) {
	local := func(_ *Config, s *site.Static) { s.SiteURL = "http://localhost:8080" }
	f := newFixture(t, "https://remote.example.net/", local)
	_, err := f.svc.BuildConnectURL(context.Background(), User{ID: 1}, "")
	assert.ErrorIs(t, err, domain.ErrForbiddenDomain)

	// sin URL que generar no hay activation secret
	_, ok, _ := f.secrets.CurrentActivationSecret(context.Background())
	assert.False(t, ok)

	forced := newFixture(t, "https://remote.example.net/", func(c *Config, s *site.Static) {
		local(c, s)
		c.SkipDomainCheck = true
	})
	_, err = forced.svc.BuildConnectURL(context.Background(), User{ID: 1}, "")
	assert.NoError(t, err)
}

func TestHandleRegistration_InvalidState(t *testing.T) {
	f := newFixture(t, "https://remote.example.net/", nil)
	ctx := context.Background()
	secret, err := f.secrets.ActivationSecret(ctx)
	require.NoError(t, err)

	for _, reg := range []Registration{
		{ActivationSecret: secret, SiteID: "", AccessToken: "tok"},
		{ActivationSecret: "", SiteID: "42", AccessToken: "tok"},
		{ActivationSecret: secret, SiteID: "42", AccessToken: ""},
		{ActivationSecret: secret, SiteID: "abc", AccessToken: "tok"},
		{ActivationSecret: secret, SiteID: "-3", AccessToken: "tok"},
	} {
		err := f.svc.HandleRegistration(ctx, reg)
		assert.ErrorIs(t, err, domain.ErrInvalidRegistrationState, "%+v", reg)
	}
	active, _ := f.secrets.IsActive(ctx)
	assert.False(t, active)
}

func TestHandleRegistration_InvalidSecret(t *testing.T) {
	f := newFixture(t, "https://remote.example.net/", nil)
	ctx := context.Background()
	require.NoError(t, f.kv.Set(ctx, prefix+"_activation_secret", "ABC123", time.Hour))

	err := f.svc.HandleRegistration(ctx, Registration{ActivationSecret: "WRONG", SiteID: "42", AccessToken: "tok-abc"})
	assert.ErrorIs(t, err, domain.ErrInvalidSecret)

	require.NoError(t, f.svc.HandleRegistration(ctx, Registration{ActivationSecret: "ABC123", SiteID: "42", AccessToken: "tok-abc"}))
	registered, _ := f.secrets.IsRegistered(ctx)
	assert.True(t, registered)
}

func TestHandleRegistration_NoCurrentSecret(t *testing.T) {
	f := newFixture(t, "https://remote.example.net/", nil)
	err := f.svc.HandleRegistration(context.Background(), Registration{ActivationSecret: "ABC123", SiteID: "42", AccessToken: "t"})
	assert.ErrorIs(t, err, domain.ErrInvalidSecret)
}

func TestHandleRegistration_SingleUse(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, "https://remote.example.net/", nil)
	secret, _ := f.secrets.ActivationSecret(ctx)
	require.NoError(t, f.svc.HandleRegistration(ctx, Registration{ActivationSecret: secret, SiteID: "42", AccessToken: "tok"}))
	err := f.svc.HandleRegistration(ctx, Registration{ActivationSecret: secret, SiteID: "43", AccessToken: "tok2"})
	assert.ErrorIs(t, err, domain.ErrInvalidSecret, "el secret ya fue consumido")

	reusable := newFixture(t, "https://remote.example.net/", func(c *Config, _ *site.Static) { c.SingleUseSecret = false })
	secret, _ = reusable.secrets.ActivationSecret(ctx)
	require.NoError(t, reusable.svc.HandleRegistration(ctx, Registration{ActivationSecret: secret, SiteID: "42", AccessToken: "tok"}))
	require.NoError(t, reusable.svc.HandleRegistration(ctx, Registration{ActivationSecret: secret, SiteID: "43", AccessToken: "tok2"}))
	id, _, _ := reusable.secrets.SiteID(ctx)
	assert.Equal(t, int64(43), id)
}

func TestDisconnect_NoSiteIsNoop(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL+"/wp-json/", nil)
	require.NoError(t, f.svc.Disconnect(context.Background()))
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestDisconnect_ClearsEvenWhenRemoteFails(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL+"/wp-json/", nil)
	require.NoError(t, f.secrets.PersistRegistration(ctx, 42, "tok-abc", false))
	require.NoError(t, f.svc.Disconnect(ctx))

	active, _ := f.secrets.IsActive(ctx)
	assert.False(t, active)

	// remoto inalcanzable
	down := newFixture(t, "http://127.0.0.1:1/wp-json/", nil)
	require.NoError(t, down.secrets.PersistRegistration(ctx, 42, "tok-abc", false))
	require.NoError(t, down.svc.Disconnect(ctx))
	_, ok, _ := down.secrets.AccessToken(ctx)
	assert.False(t, ok)
}

func TestConnectionPageURLAndAPIURL(t *testing.T) {
	f := newFixture(t, "https://remote.example.net/wp-json", nil)
	page, err := f.svc.ConnectionPageURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/wp-admin/?action=ayecode_connect_redirect_to_activation_url", page)

	assert.Equal(t, "https://remote.example.net/wp-json/wp_service_provider/v1/sites/42", f.svc.APIURL("/sites/42"))
	assert.Equal(t, "https://remote.example.net/wp-json/wp_service_provider/v1/licences", f.svc.APIURL("licences"))

	created, err := f.svc.AssumedSiteCreationDate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2018-03-04 05:06:07", created)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "https://remote.example.net/", nil)

	st, err := f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, Status{}, st)

	require.NoError(t, f.secrets.PersistRegistration(ctx, 9, "t", false))
	st, err = f.svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, Status{Active: true, Registered: true, SiteID: 9}, st)
}

// siteIDReadFails deja pasar las primeras ok lecturas de blog_id y falla las siguientes.
type siteIDReadFails struct {
	*store.MemoryStore
	ok    int32
	reads int32
}

var errStoreDown = errors.New("store down")

func (s *siteIDReadFails) Get(ctx context.Context, key string) (string, error) {
	if strings.HasSuffix(key, "_blog_id") && atomic.AddInt32(&s.reads, 1) > s.ok {
		return "", errStoreDown
	}
	return s.MemoryStore.Get(ctx, key)
}

func TestStatus_SurfacesSiteIDReadError(t *testing.T) {
	ctx := context.Background()
	kv := &siteIDReadFails{MemoryStore: store.NewMemory(), ok: 1}
	sec := secrets.New(kv, secrets.Options{Prefix: prefix})
	require.NoError(t, sec.PersistRegistration(ctx, 9, "t", false))

	svc := New(Config{Prefix: prefix}, sec, testSite(), gateway.NewClient(sec, gateway.Options{}))
	_, err := svc.Status(ctx)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestHandleRegistration_RawSecretAndToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "https://remote.example.net/", nil)
	require.NoError(t, f.kv.Set(ctx, prefix+"_activation_secret", "ABC123", time.Hour))

	err := f.svc.HandleRegistration(ctx, Registration{ActivationSecret: " ABC123 ", SiteID: "42", AccessToken: "tok"})
	assert.ErrorIs(t, err, domain.ErrInvalidSecret, "el secret debe coincidir exacto")

	err = f.svc.HandleRegistration(ctx, Registration{ActivationSecret: "ABC123", SiteID: "42", AccessToken: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidRegistrationState)

	require.NoError(t, f.svc.HandleRegistration(ctx, Registration{ActivationSecret: "ABC123", SiteID: "42", AccessToken: " tok abc\n"}))
	tok, ok, err := f.secrets.AccessToken(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, " tok abc\n", tok)
}

// Escenario completo: registro, llamada autenticada, desconexión y rechazo.
func TestEndToEnd_RegisterAuthenticateDisconnect(t *testing.T) {
	ctx := context.Background()

	var deletePath, deleteAuth string
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deletePath = r.URL.Path
			deleteAuth = r.Header.Get("Authorization")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer remote.Close()

	f := newFixture(t, remote.URL+"/wp-json/", nil)

	s, err := f.secrets.ActivationSecret(ctx)
	require.NoError(t, err)
	require.NoError(t, f.svc.HandleRegistration(ctx, Registration{ActivationSecret: s, SiteID: "42", AccessToken: "tok-abc"}))

	registered, err := f.svc.IsRegistered(ctx)
	require.NoError(t, err)
	assert.True(t, registered)

	token, err := jwt.Encode(map[string]any{"blog_id": 42}, []byte("tok-abc"))
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/ayecode_connect/v1/do_action", nil)
	req.Header.Set("Authorization", "X_AUTH "+token)

	p, err := f.auth.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.BlogID)

	require.NoError(t, f.svc.Disconnect(ctx))
	assert.Equal(t, "/wp-json/wp_service_provider/v1/sites/42", deletePath)
	require.True(t, strings.HasPrefix(deleteAuth, "X_AUTH "))
	_, err = jwt.Decode(strings.TrimPrefix(deleteAuth, "X_AUTH "), []byte("tok-abc"))
	assert.NoError(t, err, "el DELETE se firma con el token previo al borrado")

	active, _ := f.svc.IsActive(ctx)
	assert.False(t, active)
	_, ok, _ := f.secrets.AccessToken(ctx)
	assert.False(t, ok)

	_, err = f.auth.Authenticate(req)
	assert.ErrorIs(t, err, domain.ErrMissingToken)
}
