package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the client-side instrumentation for backend calls.
// Each Metrics owns its own registry so several clients (and tests) can coexist.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rastersLoaded   *prometheus.CounterVec
}

// NewMetrics creates a metrics set on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "theway",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total backend requests issued",
		}, []string{"endpoint", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "theway",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Backend request latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"endpoint"}),
		rastersLoaded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "theway",
			Subsystem: "imagery",
			Name:      "rasters_loaded_total",
			Help:      "Total raster load attempts by result",
		}, []string{"result"}),
	}
}

// observe records one request. status 0 means the request never got a response.
func (m *Metrics) observe(endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requestsTotal.WithLabelValues(endpoint, label).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RasterLoaded counts a raster load; it matches the imagery load hook signature
func (m *Metrics) RasterLoaded(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.rastersLoaded.WithLabelValues(result).Inc()
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
