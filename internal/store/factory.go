package store

import (
	"context"
	"fmt"
	"strings"
)

// Config configuración para crear un Store.
type Config struct {
	Driver string // "memory" | "redis" | "postgres"

	Redis struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}

	Postgres struct {
		DSN string
	}

	// MasterKey (32 bytes) habilita el cifrado en reposo de todos los valores.
	MasterKey []byte
}

// New crea el Store según la configuración.
func New(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "memory", "":
		s = NewMemory()
	case "redis":
		s, err = NewRedis(ctx, RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	case "postgres", "pg":
		var pg *PostgresStore
		pg, err = NewPostgres(ctx, cfg.Postgres.DSN)
		if err == nil {
			if err = pg.EnsureSchema(ctx); err != nil {
				pg.Close()
			}
		}
		s = pg
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if len(cfg.MasterKey) > 0 {
		sealed, err := NewSealed(s, cfg.MasterKey)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		return sealed, nil
	}
	return s, nil
}
