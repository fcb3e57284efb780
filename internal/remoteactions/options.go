package remoteactions

import (
	"context"
	"encoding/json"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/dropDatabas3/siteconnect/internal/dispatch"
	"github.com/dropDatabas3/siteconnect/internal/observability/logger"
)

// UpdateOptions aplica, en este orden, los params update (reemplaza), merge
// (merge superficial de objetos) y delete. Solo toca opciones de la
// allow-list; el resto se ignora.
func (a *Actions) UpdateOptions(ctx context.Context, _ any, req *dispatch.Request) (any, error) {
	if !a.validOrigin(ctx, req) {
		return Result{Success: false}, nil
	}
	log := logger.From(ctx).With(logger.Component("remoteactions"), logger.Action(ActionUpdateOptions))

	for _, key := range a.sortedAllowed(req.Params, "update", log) {
		if err := a.secrets.SetOption(ctx, key.name, string(key.value)); err != nil {
			return nil, err
		}
	}

	for _, key := range a.sortedAllowed(req.Params, "merge", log) {
		merged, err := a.merge(ctx, key.name, key.value)
		if err != nil {
			return nil, err
		}
		if err := a.secrets.SetOption(ctx, key.name, string(merged)); err != nil {
			return nil, err
		}
	}

	for _, key := range a.sortedAllowed(req.Params, "delete", log) {
		if err := a.secrets.DeleteOption(ctx, key.name); err != nil {
			return nil, err
		}
	}

	return Result{Success: true}, nil
}

type optionValue struct {
	name  string
	value json.RawMessage
}

// sortedAllowed decodifica el param como objeto JSON y devuelve las opciones
// permitidas en orden alfabético.
func (a *Actions) sortedAllowed(p dispatch.Params, param string, log *zap.Logger) []optionValue {
	if !p.Has(param) {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := p.Decode(param, &raw); err != nil {
		log.Warn("ignoring malformed option set", logger.String("param", param), logger.Err(err))
		return nil
	}
	out := make([]optionValue, 0, len(raw))
	for _, name := range slices.Sorted(maps.Keys(raw)) {
		if !a.optionAllowed(name) {
			log.Warn("option not in allow-list", logger.String("option", name), logger.String("param", param))
			continue
		}
		out = append(out, optionValue{name: name, value: raw[name]})
	}
	return out
}

func (a *Actions) optionAllowed(name string) bool {
	return name != "" && !isReserved(name) && slices.Contains(a.opts.OptionAllowlist, name)
}

// merge combina un objeto JSON con el valor guardado. Si alguno de los dos no
// es objeto, gana el nuevo.
func (a *Actions) merge(ctx context.Context, name string, incoming json.RawMessage) (json.RawMessage, error) {
	current, ok, err := a.secrets.Option(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return incoming, nil
	}
	var cur, next map[string]json.RawMessage
	if json.Unmarshal([]byte(current), &cur) != nil || len(cur) == 0 {
		return incoming, nil
	}
	if json.Unmarshal(incoming, &next) != nil {
		return incoming, nil
	}
	maps.Copy(cur, next)
	return json.Marshal(cur)
}
