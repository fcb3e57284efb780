// Package store provee el almacenamiento clave/valor persistente donde vive el
// estado de la conexión (activation secret, access token, site id, opciones).
//
// Soporta:
//   - memory (in-process, para desarrollo/testing)
//   - redis (compartido entre réplicas)
//   - postgres (tabla de opciones, transaccional)
//
// Cualquier backend puede envolverse con NewSealed para cifrar los valores en reposo.
package store

import (
	"context"
	"errors"
	"time"
)

// Store define las operaciones sobre el almacenamiento.
//
// Lecturas concurrentes son seguras; las escrituras multi-key (SetMulti,
// Delete con varias keys) son atómicas: un lector nunca observa un estado parcial.
type Store interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe o expiró.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor. Si ttl es 0, no expira.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX guarda el valor solo si la key no existe (o expiró).
	// Retorna true si escribió.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// SetMulti guarda varias keys sin expiración en una sola operación atómica.
	SetMulti(ctx context.Context, values map[string]string) error

	// Delete elimina una o más keys en una sola operación atómica.
	Delete(ctx context.Context, keys ...string) error

	// Ping verifica el backend.
	Ping(ctx context.Context) error

	// Close libera recursos.
	Close() error
}

// Errores del store.
var (
	ErrNotFound      = errors.New("store: key not found")
	ErrUnknownDriver = errors.New("store: unknown driver")
)

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
