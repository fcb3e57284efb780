package store

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrSealed indica un valor cifrado corrupto o cifrado con otra clave.
var ErrSealed = errors.New("store: cannot open sealed value")

// SealedStore cifra cada valor con XChaCha20-Poly1305 antes de delegar en inner.
// La key se usa como dato asociado: un valor copiado bajo otra key no abre.
type SealedStore struct {
	inner Store
	aead  cipher.AEAD
}

// NewSealed envuelve inner. key debe tener 32 bytes.
func NewSealed(inner Store, key []byte) (*SealedStore, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("store: sealed key: %w", err)
	}
	return &SealedStore{inner: inner, aead: aead}, nil
}

// ParseMasterKey decodifica una clave base64 (std o url) de 32 bytes.
func ParseMasterKey(b64 string) ([]byte, error) {
	b64 = strings.TrimSpace(b64)
	if b64 == "" {
		return nil, nil
	}
	k, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		if k, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(b64, "=")); err != nil {
			return nil, fmt.Errorf("store: decode master key: %w", err)
		}
	}
	if len(k) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("store: master key must decode to %d bytes, got %d", chacha20poly1305.KeySize, len(k))
	}
	return k, nil
}

func (s *SealedStore) seal(key, value string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return base64.RawStdEncoding.EncodeToString(out), nil
}

func (s *SealedStore) open(key, sealed string) (string, error) {
	raw, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil || len(raw) < s.aead.NonceSize() {
		return "", ErrSealed
	}
	nonce, ct := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	pt, err := s.aead.Open(nil, nonce, ct, []byte(key))
	if err != nil {
		return "", ErrSealed
	}
	return string(pt), nil
}

func (s *SealedStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.inner.Get(ctx, key)
	if err != nil {
		return "", err
	}
	return s.open(key, v)
}

func (s *SealedStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	v, err := s.seal(key, value)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, v, ttl)
}

func (s *SealedStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	v, err := s.seal(key, value)
	if err != nil {
		return false, err
	}
	return s.inner.SetNX(ctx, key, v, ttl)
}

func (s *SealedStore) SetMulti(ctx context.Context, values map[string]string) error {
	sealed := make(map[string]string, len(values))
	for k, v := range values {
		sv, err := s.seal(k, v)
		if err != nil {
			return err
		}
		sealed[k] = sv
	}
	return s.inner.SetMulti(ctx, sealed)
}

func (s *SealedStore) Delete(ctx context.Context, keys ...string) error {
	return s.inner.Delete(ctx, keys...)
}

func (s *SealedStore) Ping(ctx context.Context) error { return s.inner.Ping(ctx) }

func (s *SealedStore) Close() error { return s.inner.Close() }
