package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	migrations "github.com/dropDatabas3/siteconnect/migrations/postgres"
)

// PostgresStore implementa Store sobre una tabla de opciones
// (name, value, expires_at). Las expiraciones se evalúan al leer.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgres abre el pool y verifica la conexión.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("store: postgres dsn is empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: postgres connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: postgres ping failed: %w", err)
	}
	return &PostgresStore{pool: pool, now: time.Now}, nil
}

// EnsureSchema crea la tabla de opciones si no existe.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl, err := migrations.FS.ReadFile(migrations.OptionsSchema)
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, string(ddl)); err != nil {
		return fmt.Errorf("store: ensure schema: %w", err)
	}
	return nil
}

const (
	qGet = `SELECT value FROM siteconnect_options
		WHERE name = $1 AND (expires_at IS NULL OR expires_at > $2)`

	qUpsert = `INSERT INTO siteconnect_options (name, value, expires_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = now()`

	// solo pisa filas expiradas
	qInsertNX = `INSERT INTO siteconnect_options (name, value, expires_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = now()
		WHERE siteconnect_options.expires_at IS NOT NULL AND siteconnect_options.expires_at <= $4`

	qDelete = `DELETE FROM siteconnect_options WHERE name = ANY($1)`
)

func (s *PostgresStore) expiresAt(ttl time.Duration) *time.Time {
	if ttl <= 0 {
		return nil
	}
	t := s.now().Add(ttl).UTC()
	return &t
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.pool.QueryRow(ctx, qGet, key, s.now().UTC()).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := s.pool.Exec(ctx, qUpsert, key, value, s.expiresAt(ttl))
	return err
}

func (s *PostgresStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	tag, err := s.pool.Exec(ctx, qInsertNX, key, value, s.expiresAt(ttl), s.now().UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) SetMulti(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for k, v := range values {
			if _, err := tx.Exec(ctx, qUpsert, k, v, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *PostgresStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, qDelete, keys)
	return err
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
