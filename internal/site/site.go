// Package site describe el sitio local que se conecta al servicio remoto:
// nombre, URLs públicas, icono, locale y la fecha estimada de creación.
package site

import (
	"context"
	"strings"
	"time"
)

// DateLayout es el formato en que viaja site_created.
const DateLayout = "2006-01-02 15:04:05"

// Info es la metadata descriptiva del sitio.
type Info struct {
	Name     string
	SiteURL  string
	HomeURL  string
	AdminURL string
	// RestURL es la raíz de la API local (ej: https://example.com/wp-json/).
	RestURL string
	IconURL string
	Locale  string

	// AdminsRegisteredAt es el alta del administrador más antiguo.
	AdminsRegisteredAt time.Time
	// FirstContentAt es la publicación del contenido más antiguo; nil si no hay contenido.
	FirstContentAt *time.Time
}

// Provider entrega la metadata del sitio. El host puede implementarlo contra
// su propia base; Static alcanza cuando todo viene de configuración.
type Provider interface {
	SiteInfo(ctx context.Context) (Info, error)
}

// Static es un Provider de valores fijos.
type Static Info

func (s Static) SiteInfo(context.Context) (Info, error) { return Info(s), nil }

// AssumedCreationDate devuelve la menor entre el alta del primer admin y el
// primer contenido. Sin contenido cuenta solo el alta.
func (i Info) AssumedCreationDate() time.Time {
	if i.FirstContentAt == nil || i.FirstContentAt.IsZero() {
		return i.AdminsRegisteredAt
	}
	if i.AdminsRegisteredAt.IsZero() || i.FirstContentAt.Before(i.AdminsRegisteredAt) {
		return *i.FirstContentAt
	}
	return i.AdminsRegisteredAt
}

// RestEndpoint arma la URL de un endpoint de la API local.
func (i Info) RestEndpoint(namespace, route string) string {
	base := i.RestURL
	if base == "" {
		base = strings.TrimRight(i.SiteURL, "/") + "/wp-json/"
	}
	return strings.TrimRight(base, "/") + "/" + strings.Trim(namespace, "/") + "/" + strings.TrimLeft(route, "/")
}
