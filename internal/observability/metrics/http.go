package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routes get their own path label; everything else is "other".
var routes = []string{"/healthz", "/metrics", "/api/graph_patterns", "/api/predict"}

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	m := &HTTPServerMetrics{
		registry: prometheus.NewRegistry(),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests processed.",
			},
			[]string{"service", "path", "method", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"service", "path", "method"},
		),
		requestInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   namespace,
				Subsystem:   "http",
				Name:        "in_flight_requests",
				Help:        "Number of in-flight HTTP requests.",
				ConstLabels: prometheus.Labels{"service": service},
			},
		),
	}
	m.registry.MustRegister(m.requestTotal, m.requestDuration, m.requestInFlight)
	return m
}

// Registry lets other collectors share the /metrics endpoint.
func (m *HTTPServerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware instruments next once per known route so the path label stays
// bounded.
func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	byPath := make(map[string]http.Handler, len(routes)+1)
	for _, path := range append(routes, "other") {
		labels := prometheus.Labels{"service": service, "path": path}
		byPath[path] = promhttp.InstrumentHandlerDuration(
			m.requestDuration.MustCurryWith(labels),
			promhttp.InstrumentHandlerCounter(m.requestTotal.MustCurryWith(labels), next),
		)
	}

	return promhttp.InstrumentHandlerInFlight(m.requestInFlight, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		byPath[normalizePath(r.URL.Path)].ServeHTTP(w, r)
	}))
}

func normalizePath(path string) string {
	for _, route := range routes {
		if path == route {
			return path
		}
	}
	return "other"
}
