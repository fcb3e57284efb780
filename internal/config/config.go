package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Parámetros del cliente de conexión. Reemplazan al array de opciones
	// libre: solo se aceptan estas keys.
	Client struct {
		// URL base del servicio remoto (requerida).
		RemoteURL string `yaml:"remote_url"`
		// Página de conexión; default {remote_url}/connect.
		ConnectionURL string `yaml:"connection_url"`
		// Raíz de la API remota; default {remote_url}/wp-json/. Siempre termina en "/".
		APIURL string `yaml:"api_url"`
		// Namespace remoto, sin "/" inicial.
		APINamespace string `yaml:"api_namespace"`
		// Namespace de los endpoints locales.
		LocalAPINamespace string `yaml:"local_api_namespace"`
		// Prefijo de las keys persistidas ([a-z0-9_]+).
		Prefix     string `yaml:"prefix"`
		TextDomain string `yaml:"textdomain"`
	} `yaml:"client"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
		// IPs o CIDRs de proxies cuyo X-Forwarded-For se acepta. Vacío: se usa el peer directo.
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"server"`

	Storage struct {
		// memory | redis | postgres
		Driver string `yaml:"driver"`
		Redis  struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Postgres struct {
			DSN string `yaml:"dsn"`
		} `yaml:"postgres"`
		// base64 de 32 bytes; si está, los valores se cifran en reposo
		MasterKey string `yaml:"master_key"`
	} `yaml:"storage"`

	Handshake struct {
		ActivationTTL   time.Duration `yaml:"activation_ttl"`
		SingleUseSecret *bool         `yaml:"single_use_secret"`
		SkipDomainCheck bool          `yaml:"skip_domain_check"`
	} `yaml:"handshake"`

	Gateway struct {
		Timeout     time.Duration `yaml:"timeout"`
		Redirection int           `yaml:"redirection"`
		TLSVerify   *bool         `yaml:"tls_verify"`
	} `yaml:"gateway"`

	// Metadata del sitio local que viaja en la URL de conexión.
	Site struct {
		Name     string `yaml:"name"`
		SiteURL  string `yaml:"site_url"`
		HomeURL  string `yaml:"home_url"`
		AdminURL string `yaml:"admin_url"`
		RestURL  string `yaml:"rest_url"`
		IconURL  string `yaml:"icon_url"`
		Locale   string `yaml:"locale"`
		// "2006-01-02 15:04:05" o RFC3339
		AdminsRegisteredAt string `yaml:"admins_registered_at"`
		FirstContentAt     string `yaml:"first_content_at"`
	} `yaml:"site"`

	RemoteActions struct {
		AllowedIPs          []string `yaml:"allowed_ips"`
		OptionAllowlist     []string `yaml:"option_allowlist"`
		ValidLicenceDomains []string `yaml:"valid_licence_domains"`
	} `yaml:"remote_actions"`

	Rate struct {
		Enabled      bool `yaml:"enabled"`
		Registration struct {
			Limit  int           `yaml:"limit"`
			Window time.Duration `yaml:"window"`
		} `yaml:"registration"`
	} `yaml:"rate"`

	Log struct {
		// dev | prod
		Env   string `yaml:"env"`
		Level string `yaml:"level"`
	} `yaml:"log"`

	Admin struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"admin"`
}

// Load lee el YAML (si path no es vacío), aplica defaults y overrides por env,
// y valida.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	c.applyEnvOverrides()
	c.setDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// setDefaults: sane defaults.
func (c *Config) setDefaults() {
	remote := strings.TrimRight(strings.TrimSpace(c.Client.RemoteURL), "/")
	if c.Client.ConnectionURL == "" && remote != "" {
		c.Client.ConnectionURL = remote + "/connect"
	}
	if c.Client.APIURL == "" && remote != "" {
		c.Client.APIURL = remote + "/wp-json/"
	}
	if c.Client.APIURL != "" {
		c.Client.APIURL = strings.TrimRight(c.Client.APIURL, "/") + "/"
	}
	if c.Client.APINamespace == "" {
		c.Client.APINamespace = "wp_service_provider/v1"
	}
	c.Client.APINamespace = strings.TrimLeft(c.Client.APINamespace, "/")
	if c.Client.LocalAPINamespace == "" {
		c.Client.LocalAPINamespace = "wp_service_client/v1"
	}
	c.Client.LocalAPINamespace = strings.Trim(c.Client.LocalAPINamespace, "/")
	if c.Client.Prefix == "" {
		c.Client.Prefix = "wp_service_client"
	}
	if c.Client.TextDomain == "" {
		c.Client.TextDomain = "wp-service-client"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Redis.Prefix == "" {
		c.Storage.Redis.Prefix = "siteconnect"
	}

	if c.Handshake.ActivationTTL <= 0 {
		c.Handshake.ActivationTTL = 3 * time.Hour
	}
	if c.Handshake.SingleUseSecret == nil {
		c.Handshake.SingleUseSecret = boolPtr(true)
	}

	if c.Gateway.Timeout <= 0 {
		c.Gateway.Timeout = 10 * time.Second
	}
	if c.Gateway.Redirection < 0 {
		c.Gateway.Redirection = 0
	}
	if c.Gateway.TLSVerify == nil {
		c.Gateway.TLSVerify = boolPtr(true)
	}

	if c.Site.HomeURL == "" {
		c.Site.HomeURL = c.Site.SiteURL
	}
	if c.Site.AdminURL == "" && c.Site.SiteURL != "" {
		c.Site.AdminURL = strings.TrimRight(c.Site.SiteURL, "/") + "/wp-admin/"
	}
	if c.Site.RestURL == "" && c.Site.SiteURL != "" {
		c.Site.RestURL = strings.TrimRight(c.Site.SiteURL, "/") + "/wp-json/"
	}
	if c.Site.Locale == "" {
		c.Site.Locale = "en_US"
	}

	if c.Rate.Registration.Limit == 0 {
		c.Rate.Registration.Limit = 10
	}
	if c.Rate.Registration.Window <= 0 {
		c.Rate.Registration.Window = time.Minute
	}

	if c.Log.Env == "" {
		c.Log.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// CLIENT
	if v, ok := getEnvStr("CLIENT_REMOTE_URL"); ok {
		c.Client.RemoteURL = v
	}
	if v, ok := getEnvStr("CLIENT_CONNECTION_URL"); ok {
		c.Client.ConnectionURL = v
	}
	if v, ok := getEnvStr("CLIENT_API_URL"); ok {
		c.Client.APIURL = v
	}
	if v, ok := getEnvStr("CLIENT_API_NAMESPACE"); ok {
		c.Client.APINamespace = v
	}
	if v, ok := getEnvStr("CLIENT_LOCAL_API_NAMESPACE"); ok {
		c.Client.LocalAPINamespace = v
	}
	if v, ok := getEnvStr("CLIENT_PREFIX"); ok {
		c.Client.Prefix = v
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("SERVER_CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvCSV("SERVER_TRUSTED_PROXIES"); ok {
		c.Server.TrustedProxies = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Storage.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Storage.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Storage.Redis.DB = v
	}
	if v, ok := getEnvStr("PG_DSN"); ok {
		c.Storage.Postgres.DSN = v
	}
	if v, ok := getEnvStr("STORAGE_MASTER_KEY"); ok {
		c.Storage.MasterKey = v
	}

	// HANDSHAKE / GATEWAY
	if v, ok := getEnvDur("HANDSHAKE_ACTIVATION_TTL"); ok {
		c.Handshake.ActivationTTL = v
	}
	if v, ok := getEnvBool("HANDSHAKE_SINGLE_USE_SECRET"); ok {
		c.Handshake.SingleUseSecret = boolPtr(v)
	}
	if v, ok := getEnvBool("HANDSHAKE_SKIP_DOMAIN_CHECK"); ok {
		c.Handshake.SkipDomainCheck = v
	}
	if v, ok := getEnvDur("GATEWAY_TIMEOUT"); ok {
		c.Gateway.Timeout = v
	}
	if v, ok := getEnvBool("GATEWAY_TLS_VERIFY"); ok {
		c.Gateway.TLSVerify = boolPtr(v)
	}

	// SITE
	if v, ok := getEnvStr("SITE_NAME"); ok {
		c.Site.Name = v
	}
	if v, ok := getEnvStr("SITE_URL"); ok {
		c.Site.SiteURL = v
	}
	if v, ok := getEnvStr("SITE_ADMIN_URL"); ok {
		c.Site.AdminURL = v
	}

	// REMOTE ACTIONS
	if v, ok := getEnvCSV("REMOTE_ACTIONS_ALLOWED_IPS"); ok {
		c.RemoteActions.AllowedIPs = v
	}
	if v, ok := getEnvCSV("REMOTE_ACTIONS_OPTION_ALLOWLIST"); ok {
		c.RemoteActions.OptionAllowlist = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}

	// LOG / ADMIN
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.Log.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := getEnvStr("ADMIN_API_KEY"); ok {
		c.Admin.APIKey = v
	}
}

var prefixRe = regexp.MustCompile(`^[a-z0-9_]+$`)

// Opciones que update_options nunca puede escribir.
var reservedOptions = []string{"activation_secret", "blog_token", "blog_id", "licences", "installed_licences"}

// Validate devuelve todos los problemas encontrados juntos.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Client.RemoteURL) == "" {
		errs = append(errs, errors.New("client.remote_url is required"))
	}
	for name, v := range map[string]string{
		"client.remote_url":     c.Client.RemoteURL,
		"client.connection_url": c.Client.ConnectionURL,
		"client.api_url":        c.Client.APIURL,
		"site.site_url":         c.Site.SiteURL,
		"site.admin_url":        c.Site.AdminURL,
	} {
		if v == "" {
			continue
		}
		if u, err := url.Parse(v); err != nil || !u.IsAbs() || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute URL", name))
		}
	}
	if !prefixRe.MatchString(c.Client.Prefix) {
		errs = append(errs, fmt.Errorf("client.prefix %q must match [a-z0-9_]+", c.Client.Prefix))
	}
	if c.Site.SiteURL == "" {
		errs = append(errs, errors.New("site.site_url is required"))
	}

	switch c.Storage.Driver {
	case "memory":
	case "redis":
		if c.Storage.Redis.Addr == "" {
			errs = append(errs, errors.New("storage.redis.addr is required for the redis driver"))
		}
	case "postgres", "pg":
		if c.Storage.Postgres.DSN == "" {
			errs = append(errs, errors.New("storage.postgres.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not supported", c.Storage.Driver))
	}

	if _, err := ParseSiteTime(c.Site.AdminsRegisteredAt); err != nil {
		errs = append(errs, fmt.Errorf("site.admins_registered_at: %w", err))
	}
	if _, err := ParseSiteTime(c.Site.FirstContentAt); err != nil {
		errs = append(errs, fmt.Errorf("site.first_content_at: %w", err))
	}

	for _, p := range c.Server.TrustedProxies {
		if !validIPOrCIDR(p) {
			errs = append(errs, fmt.Errorf("server.trusted_proxies: %q is not an IP or CIDR", p))
		}
	}
	for _, o := range c.RemoteActions.OptionAllowlist {
		if slices.Contains(reservedOptions, o) {
			errs = append(errs, fmt.Errorf("remote_actions.option_allowlist cannot include reserved option %q", o))
		}
	}
	if c.Rate.Registration.Limit < 0 {
		errs = append(errs, errors.New("rate.registration.limit must be >= 0"))
	}
	switch c.Log.Env {
	case "", "dev", "development", "prod", "production":
	default:
		errs = append(errs, fmt.Errorf("log.env %q must be dev or prod", c.Log.Env))
	}

	return errors.Join(errs...)
}

// ParseSiteTime acepta "2006-01-02 15:04:05" (UTC) o RFC3339. Vacío es el tiempo cero.
func ParseSiteTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// SingleUseSecret devuelve el valor efectivo (default true).
func (c *Config) SingleUseSecret() bool {
	return c.Handshake.SingleUseSecret == nil || *c.Handshake.SingleUseSecret
}

// TLSVerify devuelve el valor efectivo (default true).
func (c *Config) TLSVerify() bool {
	return c.Gateway.TLSVerify == nil || *c.Gateway.TLSVerify
}

func boolPtr(b bool) *bool { return &b }

func validIPOrCIDR(s string) bool {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		_, _, err := net.ParseCIDR(s)
		return err == nil
	}
	return net.ParseIP(s) != nil
}
