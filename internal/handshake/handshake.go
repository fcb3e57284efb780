// Package handshake establece la confianza entre este sitio y el servicio remoto.
//
// Saliente: BuildConnectURL arma la URL de conexión con la metadata del sitio
// y un activation secret fresco. Entrante: HandleRegistration canjea ese
// secret por access token + site id. Disconnect avisa al remoto y borra
// todo el estado local.
package handshake

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dropDatabas3/siteconnect/internal/domain"
	"github.com/dropDatabas3/siteconnect/internal/gateway"
	"github.com/dropDatabas3/siteconnect/internal/metrics"
	"github.com/dropDatabas3/siteconnect/internal/observability/logger"
	"github.com/dropDatabas3/siteconnect/internal/secrets"
	tokens "github.com/dropDatabas3/siteconnect/internal/security/token"
	"github.com/dropDatabas3/siteconnect/internal/site"
	"github.com/dropDatabas3/siteconnect/internal/validation"
)

// SecretKeyLength es el largo del secret_key de un solo uso que viaja en la URL.
const SecretKeyLength = 40

// Config son los parámetros del cliente relevantes al handshake.
type Config struct {
	// ConnectionURL es la página de conexión del remoto.
	ConnectionURL string
	// APIURL es la raíz de la API remota (con "/" final).
	APIURL string
	// APINamespace es el namespace de la API remota (sin "/" inicial).
	APINamespace string
	// LocalAPINamespace es el namespace de los endpoints locales.
	LocalAPINamespace string
	Prefix            string

	// SingleUseSecret borra el activation secret tras un registro exitoso.
	SingleUseSecret bool
	// SkipDomainCheck omite el chequeo de dominio usable.
	SkipDomainCheck bool
}

// Remote es la parte del gateway que usa el handshake.
type Remote interface {
	RemoteRequest(ctx context.Context, args gateway.Args) (*gateway.Response, error)
}

// User es el usuario local que inicia la conexión.
type User struct {
	ID    int64
	Email string
	Login string
}

// Registration son los datos que envía el remoto al registrar el sitio.
type Registration struct {
	ActivationSecret string
	// SiteID llega como texto; debe ser un entero positivo.
	SiteID      string
	AccessToken string
}

// Service implementa el handshake.
type Service struct {
	cfg     Config
	secrets *secrets.SecretStore
	site    site.Provider
	remote  Remote
}

// New crea el servicio.
func New(cfg Config, s *secrets.SecretStore, sp site.Provider, remote Remote) *Service {
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/") + "/"
	cfg.APINamespace = strings.TrimLeft(cfg.APINamespace, "/")
	if cfg.Prefix == "" {
		cfg.Prefix = s.Prefix()
	}
	return &Service{cfg: cfg, secrets: s, site: sp, remote: remote}
}

// ====================================================================================
// Saliente
// ====================================================================================

// BuildConnectURL arma la URL de conexión. No hace llamadas de red.
//
// redirect se valida contra los hosts del propio sitio; si no pertenece,
// se usa la URL de administración.
func (s *Service) BuildConnectURL(ctx context.Context, user User, redirect string) (string, error) {
	info, err := s.site.SiteInfo(ctx)
	if err != nil {
		return "", fmt.Errorf("handshake: site info: %w", err)
	}

	host := validation.HostOf(info.SiteURL)
	if err := validation.IsUsableDomain(host, s.cfg.SkipDomainCheck); err != nil {
		logger.From(ctx).Warn("connect url rejected",
			logger.Component("handshake"), logger.Domain(host), logger.Kind(domain.Kind(err)))
		return "", err
	}

	adminPage := info.AdminURL
	target := adminPage
	if redirect != "" {
		target = validation.SafeRedirect(redirect, adminPage,
			host, validation.HostOf(info.HomeURL), validation.HostOf(info.AdminURL))
	}

	activation, err := s.secrets.ActivationSecret(ctx)
	if err != nil {
		return "", err
	}
	secretKey, err := tokens.GeneratePassword(SecretKeyLength, tokens.PasswordOptions{Special: true, ExtraSpecial: true})
	if err != nil {
		return "", fmt.Errorf("handshake: secret key: %w", err)
	}

	base, err := url.Parse(s.cfg.ConnectionURL)
	if err != nil {
		return "", fmt.Errorf("handshake: connection url: %w", err)
	}
	q := base.Query()
	q.Set("redirect_uri", target)
	q.Set("remote_user_id", strconv.FormatInt(user.ID, 10))
	q.Set("user_email", user.Email)
	q.Set("user_login", user.Login)
	q.Set("activation_secret", activation)
	q.Set("secret_key", secretKey)
	q.Set("blogname", info.Name)
	q.Set("site_url", info.SiteURL)
	q.Set("home_url", info.HomeURL)
	q.Set("api_url", info.RestEndpoint(s.cfg.LocalAPINamespace, "do_action"))
	q.Set("site_icon", info.IconURL)
	q.Set("site_lang", info.Locale)
	q.Set("site_created", s.assumedCreationDate(info))
	base.RawQuery = q.Encode()

	logger.From(ctx).Info("connect url built",
		logger.Component("handshake"),
		logger.Int("remote_user_id", int(user.ID)),
		logger.Email(user.Email),
		logger.Secret("activation_secret", activation),
	)
	return base.String(), nil
}

// AssumedSiteCreationDate devuelve la fecha estimada de creación del sitio
// en formato "2006-01-02 15:04:05".
func (s *Service) AssumedSiteCreationDate(ctx context.Context) (string, error) {
	info, err := s.site.SiteInfo(ctx)
	if err != nil {
		return "", fmt.Errorf("handshake: site info: %w", err)
	}
	return s.assumedCreationDate(info), nil
}

func (s *Service) assumedCreationDate(info site.Info) string {
	t := info.AssumedCreationDate()
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(site.DateLayout)
}

// RedirectAction es el valor de ?action= que dispara la redirección al connect URL.
func (s *Service) RedirectAction() string {
	return s.cfg.Prefix + "_redirect_to_activation_url"
}

// ConnectionPageURL devuelve la URL local que redirige a la página de conexión.
func (s *Service) ConnectionPageURL(ctx context.Context) (string, error) {
	info, err := s.site.SiteInfo(ctx)
	if err != nil {
		return "", fmt.Errorf("handshake: site info: %w", err)
	}
	u, err := url.Parse(info.AdminURL)
	if err != nil {
		return "", fmt.Errorf("handshake: admin url: %w", err)
	}
	q := u.Query()
	q.Set("action", s.RedirectAction())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// APIURL devuelve la URL absoluta de un endpoint de la API remota.
func (s *Service) APIURL(relative string) string {
	base := strings.TrimRight(s.cfg.APIURL+s.cfg.APINamespace, "/") + "/"
	return base + strings.TrimLeft(relative, "/")
}

// ====================================================================================
// Entrante
// ====================================================================================

// HandleRegistration valida el registro enviado por el remoto y, si el
// activation secret coincide con el vigente, persiste site id + access token.
func (s *Service) HandleRegistration(ctx context.Context, reg Registration) (err error) {
	log := logger.From(ctx).With(logger.Component("handshake"), logger.Op("register"))
	defer func() {
		result := "ok"
		if err != nil {
			result = domain.Kind(err)
		}
		metrics.RecordRegistration(result)
	}()

	// secret y token se comparan y guardan tal cual llegan: el token es la
	// clave HMAC que usa el remoto.
	secret := reg.ActivationSecret
	token := reg.AccessToken
	rawID := strings.TrimSpace(reg.SiteID)
	if strings.TrimSpace(secret) == "" || strings.TrimSpace(token) == "" || rawID == "" {
		return domain.ErrInvalidRegistrationState
	}
	siteID, perr := strconv.ParseInt(rawID, 10, 64)
	if perr != nil || siteID <= 0 {
		return fmt.Errorf("%w: site id must be a positive integer", domain.ErrInvalidRegistrationState)
	}

	current, ok, err := s.secrets.CurrentActivationSecret(ctx)
	if err != nil {
		return err
	}
	if !ok || subtle.ConstantTimeCompare([]byte(current), []byte(secret)) != 1 {
		log.Warn("registration with invalid activation secret", logger.Secret("activation_secret", secret))
		return domain.ErrInvalidSecret
	}

	if err := s.secrets.PersistRegistration(ctx, siteID, token, s.cfg.SingleUseSecret); err != nil {
		return err
	}
	log.Info("site registered", logger.SiteID(siteID), logger.Secret("access_token", token))
	return nil
}

// ====================================================================================
// Desconexión
// ====================================================================================

// Disconnect avisa al remoto (DELETE {api}/sites/{id}) y borra el estado local.
// Sin site id es un no-op. El resultado de la llamada remota no afecta el
// borrado local.
func (s *Service) Disconnect(ctx context.Context) error {
	siteID, ok, err := s.secrets.SiteID(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	log := logger.From(ctx).With(logger.Component("handshake"), logger.Op("disconnect"), logger.SiteID(siteID))

	if s.remote != nil {
		resp, rerr := s.remote.RemoteRequest(ctx, gateway.Args{
			URL:    s.APIURL(fmt.Sprintf("/sites/%d", siteID)),
			SiteID: siteID,
			Method: http.MethodDelete,
		})
		switch {
		case rerr != nil:
			log.Warn("remote disconnect failed", logger.Kind(domain.Kind(rerr)), logger.Err(rerr))
		default:
			log.Debug("remote disconnect answered", logger.Status(resp.StatusCode))
		}
	}

	if err := s.secrets.ClearAll(ctx); err != nil {
		return err
	}
	log.Info("site disconnected")
	return nil
}

// ====================================================================================
// Estado (superficie para la capa de administración)
// ====================================================================================

// Status resume el estado de la conexión.
type Status struct {
	Active     bool  `json:"active"`
	Registered bool  `json:"registered"`
	SiteID     int64 `json:"site_id,omitempty"`
}

// Status lee el estado actual.
func (s *Service) Status(ctx context.Context) (Status, error) {
	active, err := s.secrets.IsActive(ctx)
	if err != nil {
		return Status{}, err
	}
	registered, err := s.secrets.IsRegistered(ctx)
	if err != nil {
		return Status{}, err
	}
	st := Status{Active: active, Registered: registered}
	if registered {
		if st.SiteID, _, err = s.secrets.SiteID(ctx); err != nil {
			return Status{}, err
		}
	}
	return st, nil
}

// IsActive indica si hay access token.
func (s *Service) IsActive(ctx context.Context) (bool, error) { return s.secrets.IsActive(ctx) }

// IsRegistered indica si hay access token y site id.
func (s *Service) IsRegistered(ctx context.Context) (bool, error) {
	return s.secrets.IsRegistered(ctx)
}

// LocalAPINamespace devuelve el namespace de los endpoints locales.
func (s *Service) LocalAPINamespace() string { return s.cfg.LocalAPINamespace }
