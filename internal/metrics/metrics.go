package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	storeOperations     *prometheus.CounterVec
	devicesSeeded       prometheus.Counter
}

// New creates a fresh Metrics registry with HTTP and device store metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "device",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by device-go",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "device",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by device-go",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	storeOperations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "device",
		Name:      "store_operations_total",
		Help:      "Device store operations by outcome",
	}, []string{"operation", "outcome"})

	devicesSeeded := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "device",
		Name:      "devices_seeded_total",
		Help:      "Default devices inserted at startup",
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		storeOperations,
		devicesSeeded,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		storeOperations:     storeOperations,
		devicesSeeded:       devicesSeeded,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveStoreOperation counts one store call and its outcome.
func (m *Metrics) ObserveStoreOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.storeOperations.WithLabelValues(operation, outcome).Inc()
}

// AddDevicesSeeded adds n to the seeded devices counter.
func (m *Metrics) AddDevicesSeeded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.devicesSeeded.Add(float64(n))
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
