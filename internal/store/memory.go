package store

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore implementa Store en memoria sobre go-cache.
// Útil para desarrollo, testing y despliegues de una sola instancia.
type MemoryStore struct {
	// mu serializa las escrituras multi-key frente a las lecturas;
	// go-cache ya es thread-safe por key.
	mu sync.RWMutex
	c  *gocache.Cache
}

// NewMemory crea un store en memoria. Las entradas expiradas se purgan cada minuto.
func NewMemory() *MemoryStore {
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, time.Minute)}
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.c.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (m *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Set(key, value, expiration(ttl))
	return nil
}

func (m *MemoryStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Add falla si la key existe y no expiró
	if err := m.c.Add(key, value, expiration(ttl)); err != nil {
		return false, nil
	}
	return true, nil
}

func (m *MemoryStore) SetMulti(ctx context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.c.Set(k, v, gocache.NoExpiration)
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		m.c.Delete(k)
	}
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c.Flush()
	return nil
}
