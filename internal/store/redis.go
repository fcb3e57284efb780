package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configura el backend Redis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // Prefijo para todas las keys
}

// RedisStore implementa Store usando Redis.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis crea el store y verifica la conexión.
func NewRedis(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	addr := opts.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("store: redis ping failed: %w", err)
	}
	return NewRedisFromClient(rdb, opts.Prefix), nil
}

// NewRedisFromClient envuelve un cliente existente (compartido con el rate limiter).
func NewRedisFromClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Client expone el cliente subyacente.
func (s *RedisStore) Client() *redis.Client { return s.client }

func (s *RedisStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key(key), value, ttl).Err()
}

func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.key(key), value, ttl).Result()
}

// SetMulti usa MULTI/EXEC para que ningún lector vea un estado parcial.
func (s *RedisStore) SetMulti(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for k, v := range values {
			p.Set(ctx, s.key(k), v, 0)
		}
		return nil
	})
	return err
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	return s.client.Del(ctx, full...).Err()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// RedisClientOf devuelve el cliente Redis detrás de s, también si está sellado.
func RedisClientOf(s Store) (*redis.Client, bool) {
	switch v := s.(type) {
	case *RedisStore:
		return v.client, true
	case *SealedStore:
		return RedisClientOf(v.inner)
	}
	return nil, false
}
