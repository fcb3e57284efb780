// Package secrets es el estado persistente de la conexión con el sitio remoto:
// activation secret (temporal), access token y site id.
//
// Un sitio está "activo" cuando tiene access token y "registrado" cuando
// además tiene site id. Todo vive en un store.Store inyectado; no hay
// estado global.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/siteconnect/internal/observability/logger"
	tokens "github.com/dropDatabas3/siteconnect/internal/security/token"
	"github.com/dropDatabas3/siteconnect/internal/store"
)

const (
	// DefaultActivationTTL es la vida del activation secret.
	DefaultActivationTTL = 3 * time.Hour

	// ActivationSecretLength es el largo del activation secret ([a-zA-Z0-9]).
	ActivationSecretLength = 24
)

// ErrInvalidSiteID indica un site id persistido que no es numérico.
var ErrInvalidSiteID = errors.New("secrets: stored site id is not numeric")

// Options configura el SecretStore.
type Options struct {
	// Prefix aísla las keys de este cliente (ej: "wp_service_client").
	Prefix string
	// ActivationTTL, default DefaultActivationTTL.
	ActivationTTL time.Duration
}

// SecretStore administra los secretos de la conexión sobre un store.Store.
type SecretStore struct {
	kv     store.Store
	prefix string
	ttl    time.Duration

	// sf evita generar dos activation secrets distintos ante requests concurrentes
	sf singleflight.Group

	generate func() (string, error)
}

// New crea el SecretStore.
func New(kv store.Store, opts Options) *SecretStore {
	ttl := opts.ActivationTTL
	if ttl <= 0 {
		ttl = DefaultActivationTTL
	}
	prefix := strings.TrimSpace(opts.Prefix)
	if prefix == "" {
		prefix = "wp_service_client"
	}
	return &SecretStore{
		kv:     kv,
		prefix: prefix,
		ttl:    ttl,
		generate: func() (string, error) {
			return tokens.GeneratePassword(ActivationSecretLength, tokens.PasswordOptions{})
		},
	}
}

// Prefix devuelve el prefijo de keys.
func (s *SecretStore) Prefix() string { return s.prefix }

// Key devuelve la key completa para un nombre de opción.
func (s *SecretStore) Key(name string) string { return s.prefix + "_" + name }

func (s *SecretStore) activationKey() string { return s.Key("activation_secret") }
func (s *SecretStore) tokenKey() string      { return s.Key("blog_token") }
func (s *SecretStore) siteIDKey() string     { return s.Key("blog_id") }

// ActivationSecret devuelve el activation secret vigente o genera uno nuevo
// con TTL de 3 horas. Es idempotente dentro de la ventana de TTL.
func (s *SecretStore) ActivationSecret(ctx context.Context) (string, error) {
	v, err := s.kv.Get(ctx, s.activationKey())
	if err == nil && v != "" {
		return v, nil
	}
	if err != nil && !store.IsNotFound(err) {
		return "", fmt.Errorf("secrets: read activation secret: %w", err)
	}

	out, err, _ := s.sf.Do(s.activationKey(), func() (any, error) {
		// el resultado se comparte: no debe depender de la cancelación del primer caller
		ctx := context.WithoutCancel(ctx)
		secret, err := s.generate()
		if err != nil {
			return "", err
		}
		created, err := s.kv.SetNX(ctx, s.activationKey(), secret, s.ttl)
		if err != nil {
			return "", fmt.Errorf("secrets: write activation secret: %w", err)
		}
		if created {
			logger.From(ctx).Debug("activation secret generated",
				logger.Component("secrets"),
				logger.Secret("activation_secret", secret),
			)
			return secret, nil
		}
		// otra instancia ganó la carrera: usamos el suyo
		return s.kv.Get(ctx, s.activationKey())
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// CurrentActivationSecret devuelve el activation secret vigente sin generar uno nuevo.
func (s *SecretStore) CurrentActivationSecret(ctx context.Context) (string, bool, error) {
	return s.get(ctx, s.activationKey())
}

// AccessToken devuelve el access token, si existe.
func (s *SecretStore) AccessToken(ctx context.Context) (string, bool, error) {
	return s.get(ctx, s.tokenKey())
}

// SiteID devuelve el id remoto del sitio, si existe.
func (s *SecretStore) SiteID(ctx context.Context) (int64, bool, error) {
	v, ok, err := s.get(ctx, s.siteIDKey())
	if err != nil || !ok {
		return 0, false, err
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, ErrInvalidSiteID
	}
	if id == 0 {
		return 0, false, nil
	}
	return id, true, nil
}

// IsActive es true si hay access token.
func (s *SecretStore) IsActive(ctx context.Context) (bool, error) {
	_, ok, err := s.AccessToken(ctx)
	return ok, err
}

// IsRegistered es true si hay access token y site id.
func (s *SecretStore) IsRegistered(ctx context.Context) (bool, error) {
	_, hasToken, err := s.AccessToken(ctx)
	if err != nil || !hasToken {
		return false, err
	}
	_, hasID, err := s.SiteID(ctx)
	return hasID, err
}

// PersistRegistration guarda site id y access token en una única escritura
// atómica. Con consumeSecret también elimina el activation secret.
func (s *SecretStore) PersistRegistration(ctx context.Context, siteID int64, accessToken string, consumeSecret bool) error {
	if siteID <= 0 || accessToken == "" {
		return errors.New("secrets: site id and access token are required")
	}
	if err := s.kv.SetMulti(ctx, map[string]string{
		s.siteIDKey(): strconv.FormatInt(siteID, 10),
		s.tokenKey():  accessToken,
	}); err != nil {
		return fmt.Errorf("secrets: persist registration: %w", err)
	}
	if consumeSecret {
		return s.ConsumeActivationSecret(ctx)
	}
	return nil
}

// ConsumeActivationSecret invalida el activation secret actual. El próximo
// ActivationSecret genera uno nuevo.
func (s *SecretStore) ConsumeActivationSecret(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.activationKey()); err != nil {
		return fmt.Errorf("secrets: consume activation secret: %w", err)
	}
	return nil
}

// ClearAll elimina activation secret, access token y site id en una sola operación.
func (s *SecretStore) ClearAll(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.activationKey(), s.tokenKey(), s.siteIDKey()); err != nil {
		return fmt.Errorf("secrets: clear: %w", err)
	}
	return nil
}

// Option lee una opción arbitraria (sin prefijo en name; se agrega acá).
func (s *SecretStore) Option(ctx context.Context, name string) (string, bool, error) {
	return s.get(ctx, s.Key(name))
}

// SetOption guarda una opción arbitraria sin expiración.
func (s *SecretStore) SetOption(ctx context.Context, name, value string) error {
	return s.kv.Set(ctx, s.Key(name), value, 0)
}

// DeleteOption elimina una opción arbitraria.
func (s *SecretStore) DeleteOption(ctx context.Context, name string) error {
	return s.kv.Delete(ctx, s.Key(name))
}

// Ping verifica el store subyacente.
func (s *SecretStore) Ping(ctx context.Context) error { return s.kv.Ping(ctx) }

func (s *SecretStore) get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.kv.Get(ctx, key)
	if store.IsNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("secrets: read %s: %w", key, err)
	}
	if v == "" {
		return "", false, nil
	}
	return v, true, nil
}
