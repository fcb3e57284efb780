package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/siteconnect/internal/domain"
	"github.com/dropDatabas3/siteconnect/internal/metrics"
	"github.com/dropDatabas3/siteconnect/internal/observability/logger"
	"github.com/dropDatabas3/siteconnect/internal/validation"
)

// Dispatcher ejecuta la cadena de una acción.
type Dispatcher struct {
	prefix   string
	registry *Registry
}

// New crea el dispatcher para el prefijo dado.
func New(prefix string, registry *Registry) *Dispatcher {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Dispatcher{prefix: prefix, registry: registry}
}

// Registry expone el registry para agregar handlers.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Key devuelve la key de la cadena para action (ya sanitizada).
func (d *Dispatcher) Key(action string) string {
	return d.prefix + "_remote_action_" + action
}

// On registra h para action.
func (d *Dispatcher) On(action string, h Handler) {
	d.registry.Add(d.Key(validation.SanitizeTitle(action)), h)
}

// Do sanitiza action y corre su cadena empezando con true. Una acción sin
// handlers devuelve true tal cual. Un error de handler corta la cadena.
func (d *Dispatcher) Do(ctx context.Context, action string, req *Request) (any, error) {
	slug := validation.SanitizeTitle(action)
	if slug == "" {
		return nil, domain.ErrMissingAction
	}
	if req == nil {
		req = &Request{}
	}
	req.Action = slug
	if req.Params == nil {
		req.Params = Params{}
	}

	log := logger.From(ctx).With(logger.Component("dispatch"), logger.Action(slug))
	start := time.Now()

	handlers := d.registry.Handlers(d.Key(slug))
	var result any = true
	for i, h := range handlers {
		next, err := h(ctx, result, req)
		if err != nil {
			metrics.RecordRemoteAction(slug, "error")
			log.Warn("remote action failed", logger.Int("handler", i), logger.Err(err))
			return nil, fmt.Errorf("dispatch %s: %w", slug, err)
		}
		result = next
	}

	outcome := "ok"
	if len(handlers) == 0 {
		outcome = "unhandled"
	}
	metrics.RecordRemoteAction(slug, outcome)
	log.Info("remote action dispatched",
		logger.Int("handlers", len(handlers)),
		logger.DurationMs(time.Since(start)),
	)
	return result, nil
}
