package remoteactions

import (
	"context"
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/dropDatabas3/siteconnect/internal/dispatch"
	"github.com/dropDatabas3/siteconnect/internal/observability/logger"
	"github.com/dropDatabas3/siteconnect/internal/validation"
)

var licenceStatuses = []string{"active", "inactive", "expired", "disabled"}

// Licence es una licencia ya saneada. Los campos ausentes en la entrada se omiten.
type Licence struct {
	Key        string  `json:"key"`
	Status     *string `json:"status,omitempty"`
	DownloadID *int64  `json:"download_id,omitempty"`
	PriceID    *int64  `json:"price_id,omitempty"`
	PaymentID  *int64  `json:"payment_id,omitempty"`
	Expires    *int64  `json:"expires,omitempty"`
	Parent     *int64  `json:"parent,omitempty"`
	UserID     *int64  `json:"user_id,omitempty"`
}

// UpdateLicences guarda las licencias enviadas por el remoto.
//
// Params: site_id (debe coincidir con el guardado), installed (licencias por
// plugin) y all (licencias por dominio y producto).
func (a *Actions) UpdateLicences(ctx context.Context, _ any, req *dispatch.Request) (any, error) {
	if !a.validOrigin(ctx, req) {
		return Result{Success: false}, nil
	}
	log := logger.From(ctx).With(logger.Component("remoteactions"), logger.Action(ActionUpdateLicences))

	storedID, ok, err := a.secrets.SiteID(ctx)
	if err != nil {
		return nil, err
	}
	if siteID := absint(req.Params["site_id"]); !ok || siteID != storedID {
		log.Warn("licence update for another site", logger.SiteID(siteID))
		return Result{Success: false}, nil
	}

	if req.Params.Has("installed") {
		var raw map[string]any
		if err := req.Params.Decode("installed", &raw); err == nil {
			if installed := sanitizeLicences(raw); len(installed) > 0 {
				if err := a.setJSON(ctx, OptionInstalledLicences, installed); err != nil {
					return nil, err
				}
			}
		}
	}

	if req.Params.Has("all") {
		all := map[string]map[string]Licence{}
		var raw map[string]any
		if err := req.Params.Decode("all", &raw); err == nil {
			all = a.sanitizeDomainLicences(raw)
		}
		// "all" presente pero vacío limpia las licencias guardadas
		if err := a.setJSON(ctx, OptionLicences, all); err != nil {
			return nil, err
		}
		log.Info("licences updated", logger.Int("domains", len(all)))
	}

	return Result{Success: true}, nil
}

// sanitizeLicences sanea licencias indexadas por slug de plugin.
func sanitizeLicences(raw map[string]any) map[string]Licence {
	out := make(map[string]Licence, len(raw))
	for plugin, v := range raw {
		if l, ok := sanitizeLicence(v); ok {
			out[strings.TrimSpace(plugin)] = l
		}
	}
	return out
}

// sanitizeDomainLicences sanea licencias agrupadas por dominio, descartando
// dominios fuera de la lista permitida. Las keys de producto son enteros.
func (a *Actions) sanitizeDomainLicences(raw map[string]any) map[string]map[string]Licence {
	out := map[string]map[string]Licence{}
	for dom, v := range raw {
		if !slices.Contains(a.opts.ValidLicenceDomains, dom) {
			continue
		}
		products, ok := v.(map[string]any)
		if !ok || len(products) == 0 {
			continue
		}
		for product, lv := range products {
			l, ok := sanitizeLicence(lv)
			if !ok {
				continue
			}
			if out[dom] == nil {
				out[dom] = map[string]Licence{}
			}
			out[dom][strconv.FormatInt(absint(product), 10)] = l
		}
	}
	return out
}

func sanitizeLicence(v any) (Licence, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return Licence{}, false
	}
	key, _ := m["license_key"].(string)
	if key == "" {
		return Licence{}, false
	}
	l := Licence{Key: validation.SanitizeKey(key)}
	if s, ok := m["status"]; ok {
		status, _ := s.(string)
		if !slices.Contains(licenceStatuses, status) {
			status = ""
		}
		l.Status = &status
	}
	for field, dst := range map[string]**int64{
		"download_id": &l.DownloadID,
		"price_id":    &l.PriceID,
		"payment_id":  &l.PaymentID,
		"expiration":  &l.Expires,
		"parent":      &l.Parent,
		"user_id":     &l.UserID,
	} {
		if raw, ok := m[field]; ok {
			n := absint(raw)
			*dst = &n
		}
	}
	return l, true
}

// absint convierte a entero no negativo; lo no numérico vale 0.
func absint(v any) int64 {
	var n int64
	switch x := v.(type) {
	case float64:
		n = int64(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			n = i
		} else if f, err := x.Float64(); err == nil {
			n = int64(f)
		}
	case string:
		s := strings.TrimSpace(x)
		end := 0
		for end < len(s) && (s[end] >= '0' && s[end] <= '9' || end == 0 && (s[0] == '-' || s[0] == '+')) {
			end++
		}
		n, _ = strconv.ParseInt(s[:end], 10, 64)
	case int:
		n = int64(x)
	case int64:
		n = x
	case bool:
		if x {
			n = 1
		}
	}
	if n < 0 {
		if n == math.MinInt64 {
			return math.MaxInt64
		}
		n = -n
	}
	return n
}
