package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shop",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shop",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	prometheus.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// SagaMetrics counts pay-order saga outcomes per step so that stuck
// compensations are visible on a dashboard.
type SagaMetrics struct {
	Outcomes      *prometheus.CounterVec
	Compensations *prometheus.CounterVec
}

func NewSagaMetrics() *SagaMetrics {
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shop",
		Subsystem: "orders",
		Name:      "saga_outcomes_total",
		Help:      "Pay-order saga outcomes by terminal result.",
	}, []string{"outcome"})
	comps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shop",
		Subsystem: "orders",
		Name:      "saga_compensations_total",
		Help:      "Compensation attempts by action and result.",
	}, []string{"action", "result"})

	prometheus.MustRegister(outcomes, comps)
	return &SagaMetrics{Outcomes: outcomes, Compensations: comps}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
