package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gpp"

// PredictionMetrics tracks predictions, processed entities and the outcome
// of every SPARQL pattern query.
type PredictionMetrics struct {
	service  string
	registry *prometheus.Registry

	predictTotal     *prometheus.CounterVec
	predictDuration  *prometheus.HistogramVec
	predictEntities  *prometheus.HistogramVec
	processedTotal   *prometheus.CounterVec
	sparqlQueryTotal *prometheus.CounterVec
	sparqlQueryTime  *prometheus.HistogramVec
	retriesTotal     *prometheus.CounterVec
	breakerState     *prometheus.GaugeVec
}

// NewPredictionMetrics registers into registry, or into a fresh one when nil.
func NewPredictionMetrics(service string, registry *prometheus.Registry) *PredictionMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	predictTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "predict",
			Name:      "calls_total",
			Help:      "Total prediction calls by dispatch mode and status.",
		},
		[]string{"service", "mode", "status"},
	)
	predictDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "predict",
			Name:      "duration_seconds",
			Help:      "Prediction call duration in seconds by dispatch mode.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"service", "mode"},
	)
	predictEntities := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "predict",
			Name:      "entities",
			Help:      "Entities per prediction call.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"service", "mode"},
	)
	processedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "processed_entities_total",
			Help:      "Total entities with an emitted record.",
		},
		[]string{"service"},
	)
	sparqlQueryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sparql",
			Name:      "pattern_queries_total",
			Help:      "Total pattern queries by outcome.",
		},
		[]string{"service", "status"},
	)
	sparqlQueryTime := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sparql",
			Name:      "pattern_query_duration_seconds",
			Help:      "Pattern query duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)

	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "retries_total",
			Help:      "Total retried endpoint calls by operation.",
		},
		[]string{"service", "operation"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state by operation: 0 closed, 1 half-open, 2 open.",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(
		predictTotal, predictDuration, predictEntities, processedTotal,
		sparqlQueryTotal, sparqlQueryTime, retriesTotal, breakerState,
	)

	return &PredictionMetrics{
		service:          service,
		registry:         registry,
		predictTotal:     predictTotal,
		predictDuration:  predictDuration,
		predictEntities:  predictEntities,
		processedTotal:   processedTotal,
		sparqlQueryTotal: sparqlQueryTotal,
		sparqlQueryTime:  sparqlQueryTime,
		retriesTotal:     retriesTotal,
		breakerState:     breakerState,
	}
}

func (m *PredictionMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PredictionMetrics) ObservePrediction(mode string, entities int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.predictTotal.WithLabelValues(m.service, mode, status).Inc()
	m.predictDuration.WithLabelValues(m.service, mode).Observe(duration.Seconds())
	m.predictEntities.WithLabelValues(m.service, mode).Observe(float64(entities))
}

func (m *PredictionMetrics) ObserveProcessed(entities int) {
	if entities <= 0 {
		return
	}
	m.processedTotal.WithLabelValues(m.service).Add(float64(entities))
}

func (m *PredictionMetrics) ObserveQuery(status string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.sparqlQueryTotal.WithLabelValues(m.service, status).Inc()
	m.sparqlQueryTime.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *PredictionMetrics) ObserveRetry(operation string) {
	m.retriesTotal.WithLabelValues(m.service, operation).Inc()
}

func (m *PredictionMetrics) ObserveBreakerState(operation, state string) {
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	m.breakerState.WithLabelValues(m.service, operation).Set(v)
}
