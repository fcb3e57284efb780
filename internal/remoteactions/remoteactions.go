// Package remoteactions contiene las acciones remotas incluidas por defecto:
// update_licences y update_options. Se registran en un dispatch.Dispatcher y
// solo corren detrás del gateway.
package remoteactions

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"slices"

	"github.com/dropDatabas3/siteconnect/internal/dispatch"
	"github.com/dropDatabas3/siteconnect/internal/observability/logger"
	"github.com/dropDatabas3/siteconnect/internal/secrets"
)

// Nombres de las acciones.
const (
	ActionUpdateLicences = "update_licences"
	ActionUpdateOptions  = "update_options"
)

// Opciones donde se guardan las licencias (sin prefijo).
const (
	OptionLicences          = "licences"
	OptionInstalledLicences = "installed_licences"
)

// ReservedOptions no pueden tocarse desde update_options.
var ReservedOptions = []string{
	"activation_secret",
	"blog_token",
	"blog_id",
	OptionLicences,
	OptionInstalledLicences,
}

// DefaultLicenceDomains son los dominios de licencia aceptados si no se configuran otros.
var DefaultLicenceDomains = []string{
	"ayecode.io",
	"wpgeodirectory.com",
	"wpinvoicing.com",
	"userswp.io",
}

// Options configura las acciones.
type Options struct {
	// AllowedIPs restringe el origen de las acciones; vacío acepta cualquiera.
	AllowedIPs []string
	// OptionAllowlist son las opciones que update_options puede escribir.
	OptionAllowlist []string
	// ValidLicenceDomains filtra las licencias agrupadas por dominio.
	ValidLicenceDomains []string
}

// Result es la respuesta de las acciones.
type Result struct {
	Success bool `json:"success"`
}

// Actions implementa las acciones sobre el SecretStore.
type Actions struct {
	secrets *secrets.SecretStore
	opts    Options
}

// New crea las acciones.
func New(s *secrets.SecretStore, opts Options) *Actions {
	if len(opts.ValidLicenceDomains) == 0 {
		opts.ValidLicenceDomains = DefaultLicenceDomains
	}
	return &Actions{secrets: s, opts: opts}
}

// Register agrega las acciones al dispatcher.
func (a *Actions) Register(d *dispatch.Dispatcher) {
	d.On(ActionUpdateLicences, a.UpdateLicences)
	d.On(ActionUpdateOptions, a.UpdateOptions)
}

// validOrigin aplica la allow-list de IPs de origen.
func (a *Actions) validOrigin(ctx context.Context, req *dispatch.Request) bool {
	if len(a.opts.AllowedIPs) == 0 {
		return true
	}
	ip := net.ParseIP(req.RemoteIP)
	if ip != nil {
		for _, allowed := range a.opts.AllowedIPs {
			if _, cidr, err := net.ParseCIDR(allowed); err == nil && cidr.Contains(ip) {
				return true
			}
			if aip := net.ParseIP(allowed); aip != nil && aip.Equal(ip) {
				return true
			}
		}
	}
	logger.From(ctx).Warn("remote action from unexpected origin",
		logger.Component("remoteactions"), logger.Action(req.Action), logger.ClientIP(req.RemoteIP))
	return false
}

func (a *Actions) setJSON(ctx context.Context, name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("remoteactions: encode %s: %w", name, err)
	}
	return a.secrets.SetOption(ctx, name, string(b))
}

func isReserved(name string) bool { return slices.Contains(ReservedOptions, name) }
