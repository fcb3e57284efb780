package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Métricas del servicio. Viven en un paquete aparte para que gateway,
// handshake y http puedan registrar sin ciclos de import.

var (
	RegistrationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "siteconnect_registrations_total",
		Help: "Intentos de registro recibidos por resultado",
	}, []string{"result"}) // result: ok | <error kind>

	AuthFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "siteconnect_auth_failures_total",
		Help: "Requests entrantes rechazadas por el gateway",
	}, []string{"kind"})

	RemoteRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "siteconnect_remote_requests_total",
		Help: "Llamadas salientes firmadas por método y resultado",
	}, []string{"method", "result"}) // result: 2xx|3xx|4xx|5xx|missing_token|transport_error

	RemoteActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "siteconnect_remote_actions_total",
		Help: "Acciones remotas despachadas",
	}, []string{"action", "result"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests en vuelo por método y ruta",
	}, []string{"method", "path"})
)

// Register registra todas las métricas en el registry dado (o el default si es nil).
// Los duplicados se ignoran, así que puede llamarse más de una vez.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		RegistrationsTotal,
		AuthFailuresTotal,
		RemoteRequestsTotal,
		RemoteActionsTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
		HTTPInflight,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// RecordRegistration cuenta un intento de registro.
func RecordRegistration(result string) {
	RegistrationsTotal.WithLabelValues(result).Inc()
}

// RecordAuthFailure cuenta un rechazo del gateway entrante.
func RecordAuthFailure(kind string) {
	AuthFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordRemoteRequest cuenta una llamada saliente. Con status > 0 el resultado
// es la clase HTTP (2xx, 4xx...); si no, se usa fallback.
func RecordRemoteRequest(method string, status int, fallback string) {
	result := fallback
	if status > 0 {
		result = strconv.Itoa(status/100) + "xx"
	}
	RemoteRequestsTotal.WithLabelValues(method, result).Inc()
}

// RecordRemoteAction cuenta una acción despachada.
func RecordRemoteAction(action, result string) {
	RemoteActionsTotal.WithLabelValues(action, result).Inc()
}

// ObserveHTTP registra un request HTTP terminado.
func ObserveHTTP(method, path string, status int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}
