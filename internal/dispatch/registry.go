// Package dispatch mapea acciones remotas a handlers registrados.
//
// Cada acción tiene una cadena ordenada de handlers bajo la key
// "{prefix}_remote_action_{action}". El resultado se pasa de uno a otro y el
// valor final es la respuesta. Nada de esto autentica: el llamador debe haber
// pasado por gateway.Authenticator antes.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

// Request es el contexto de una acción ya autenticada.
type Request struct {
	Action string
	Params Params
	// RemoteIP es la IP de origen del request (sin puerto).
	RemoteIP string
	// SiteID es el blog_id del token verificado.
	SiteID int64
}

// Handler recibe el resultado acumulado y devuelve el nuevo.
type Handler func(ctx context.Context, result any, req *Request) (any, error)

// Registry guarda las cadenas de handlers en orden de registro.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewRegistry crea un registry vacío.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string][]Handler)}
}

// Add agrega h al final de la cadena de key.
func (r *Registry) Add(key string, h Handler) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[key] = append(r.handlers[key], h)
}

// Handlers devuelve una copia de la cadena de key.
func (r *Registry) Handlers(key string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hs := r.handlers[key]
	out := make([]Handler, len(hs))
	copy(out, hs)
	return out
}

// Keys devuelve cuántos handlers tiene cada key registrada.
func (r *Registry) Keys() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int, len(r.handlers))
	for k, hs := range r.handlers {
		out[k] = len(hs)
	}
	return out
}

// ====================================================================================
// Params
// ====================================================================================

// Params son los parámetros libres del request (query, form o JSON).
type Params map[string]any

// Has indica si el parámetro está presente.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String devuelve el parámetro como string; números y bools se formatean.
func (p Params) String(key string) string {
	switch v := p[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int64 devuelve el parámetro como entero; 0 si no es numérico.
func (p Params) Int64(key string) int64 {
	n, _ := strconv.ParseInt(p.String(key), 10, 64)
	return n
}

// Decode decodifica el parámetro en v. Acepta valores ya estructurados
// (JSON body) o strings con JSON (form/query).
func (p Params) Decode(key string, v any) error {
	raw, ok := p[key]
	if !ok || raw == nil {
		return fmt.Errorf("dispatch: param %q missing", key)
	}
	var data []byte
	if s, isStr := raw.(string); isStr {
		data = []byte(s)
	} else {
		b, err := json.Marshal(raw)
		if err != nil {
			return err
		}
		data = b
	}
	return json.Unmarshal(data, v)
}
