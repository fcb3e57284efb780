package store

import (
	"context"
	"encoding/base64"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreSuite ejercita el contrato de Store; lo comparten todos los backends.
func runStoreSuite(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	prefix := "suite_" + strings.ReplaceAll(t.Name(), "/", "_") + "_"
	k := func(n string) string { return prefix + n }
	t.Cleanup(func() { _ = s.Delete(ctx, k("a"), k("b"), k("nx"), k("ttl")) })

	_, err := s.Get(ctx, k("a"))
	assert.True(t, IsNotFound(err))

	require.NoError(t, s.Set(ctx, k("a"), "1", 0))
	v, err := s.Get(ctx, k("a"))
	require.NoError(t, err)
	assert.Equal(t, "1", v)

	ok, err := s.SetNX(ctx, k("nx"), "first", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.SetNX(ctx, k("nx"), "second", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)
	v, _ = s.Get(ctx, k("nx"))
	assert.Equal(t, "first", v)

	require.NoError(t, s.SetMulti(ctx, map[string]string{k("a"): "x", k("b"): "y"}))
	va, _ := s.Get(ctx, k("a"))
	vb, _ := s.Get(ctx, k("b"))
	assert.Equal(t, "x", va)
	assert.Equal(t, "y", vb)

	require.NoError(t, s.Delete(ctx, k("a"), k("b")))
	_, err = s.Get(ctx, k("a"))
	assert.True(t, IsNotFound(err))
	_, err = s.Get(ctx, k("b"))
	assert.True(t, IsNotFound(err))

	// expiración: la key deja de existir y SetNX puede volver a escribir
	require.NoError(t, s.Set(ctx, k("ttl"), "v", 1*time.Second))
	time.Sleep(1100 * time.Millisecond)
	_, err = s.Get(ctx, k("ttl"))
	assert.True(t, IsNotFound(err))
	ok, err = s.SetNX(ctx, k("ttl"), "again", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Ping(ctx))
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, NewMemory())
}

func TestMemoryStore_MultiWritesAreNotTorn(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.SetMulti(ctx, map[string]string{"id": "0", "tok": "0"}))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 200; i++ {
			v := strings.Repeat("x", i)
			_ = s.SetMulti(ctx, map[string]string{"id": v, "tok": v})
		}
		close(stop)
	}()

	for {
		select {
		case <-stop:
			wg.Wait()
			return
		default:
		}
		s.mu.RLock()
		a, _ := s.c.Get("id")
		b, _ := s.c.Get("tok")
		s.mu.RUnlock()
		require.Equal(t, a, b)
	}
}

func TestSealedStore(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	inner := NewMemory()
	s, err := NewSealed(inner, key)
	require.NoError(t, err)
	runStoreSuite(t, s)

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "tok", "tok-abc", 0))

	raw, err := inner.Get(ctx, "tok")
	require.NoError(t, err)
	assert.NotContains(t, raw, "tok-abc")

	// un valor copiado bajo otra key no abre
	require.NoError(t, inner.Set(ctx, "other", raw, 0))
	_, err = s.Get(ctx, "other")
	assert.ErrorIs(t, err, ErrSealed)
}

func TestNewSealed_BadKey(t *testing.T) {
	_, err := NewSealed(NewMemory(), []byte("short"))
	assert.Error(t, err)
}

func TestParseMasterKey(t *testing.T) {
	k, err := ParseMasterKey("")
	require.NoError(t, err)
	assert.Nil(t, k)

	raw := make([]byte, 32)
	k, err = ParseMasterKey(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Len(t, k, 32)

	_, err = ParseMasterKey(base64.StdEncoding.EncodeToString(raw[:16]))
	assert.Error(t, err)
}

func TestNew_Drivers(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, Config{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	cfg := Config{Driver: ""}
	cfg.MasterKey = make([]byte, 32)
	s, err = New(ctx, cfg)
	require.NoError(t, err)
	assert.IsType(t, &SealedStore{}, s)

	_, err = New(ctx, Config{Driver: "mongo"})
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestRedisClientOf(t *testing.T) {
	_, ok := RedisClientOf(NewMemory())
	assert.False(t, ok)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	rs := NewRedisFromClient(client, "x")

	got, ok := RedisClientOf(rs)
	require.True(t, ok)
	assert.Same(t, client, got)

	sealed, err := NewSealed(rs, make([]byte, 32))
	require.NoError(t, err)
	got, ok = RedisClientOf(sealed)
	require.True(t, ok)
	assert.Same(t, client, got)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("SITECONNECT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SITECONNECT_TEST_REDIS_ADDR no seteada")
	}
	s, err := NewRedis(context.Background(), RedisOptions{Addr: addr, Prefix: "siteconnect_test"})
	require.NoError(t, err)
	defer s.Close()
	runStoreSuite(t, s)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("SITECONNECT_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("SITECONNECT_TEST_PG_DSN no seteada")
	}
	ctx := context.Background()
	s, err := NewPostgres(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.EnsureSchema(ctx))
	runStoreSuite(t, s)
}
