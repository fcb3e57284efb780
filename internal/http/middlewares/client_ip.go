package middlewares

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ParseTrustedProxies convierte IPs o CIDRs en rangos. Una IP suelta es /32 (o /128).
func ParseTrustedProxies(list []string) ([]*net.IPNet, error) {
	out := make([]*net.IPNet, 0, len(list))
	for _, raw := range list {
		s := strings.TrimSpace(raw)
		if s == "" {
			continue
		}
		if !strings.Contains(s, "/") {
			ip := net.ParseIP(s)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", raw)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, cidr, err := net.ParseCIDR(s)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", raw, err)
		}
		out = append(out, cidr)
	}
	return out, nil
}

// WithClientIP resuelve la IP del cliente una vez por request.
// X-Forwarded-For solo se lee si el peer directo está en trusted; se recorre
// de derecha a izquierda y gana el primer salto que no sea un proxy confiable.
func WithClientIP(trusted []*net.IPNet) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolveClientIP(r, trusted)
			next.ServeHTTP(w, r.WithContext(setClientIP(r.Context(), ip)))
		})
	}
}

func resolveClientIP(r *http.Request, trusted []*net.IPNet) string {
	peer := remoteHost(r)
	if !inNets(peer, trusted) {
		return peer
	}
	xf := r.Header.Values("X-Forwarded-For")
	if len(xf) == 0 {
		return peer
	}
	hops := strings.Split(strings.Join(xf, ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if net.ParseIP(hop) == nil {
			// salto ilegible: no se puede seguir confiando en lo que hay a la izquierda
			return peer
		}
		if !inNets(hop, trusted) {
			return hop
		}
		peer = hop
	}
	return peer
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

func inNets(s string, nets []*net.IPNet) bool {
	ip := net.ParseIP(s)
	if ip == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP devuelve la IP resuelta por WithClientIP o, sin ese middleware,
// el host de RemoteAddr. Nunca lee headers del cliente directamente.
func clientIP(r *http.Request) string {
	if ip := getClientIP(r.Context()); ip != "" {
		return ip
	}
	return remoteHost(r)
}

// ClientIP es clientIP para controllers (origen de acciones remotas).
func ClientIP(r *http.Request) string { return clientIP(r) }
