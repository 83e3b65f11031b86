package observability

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AdapterMetrics tracks adapter operations and the HTTP surface serving them.
type AdapterMetrics struct {
	operations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	refunds    *prometheus.CounterVec
	requests   *prometheus.CounterVec
	throttles  *prometheus.CounterVec
	commits    prometheus.Histogram
	blockGauge prometheus.Gauge
}

var (
	adapterMetricsOnce sync.Once
	adapterRegistry    *AdapterMetrics
)

// Adapter returns the process-wide adapter metrics, registering them with the
// default Prometheus registry on first use.
func Adapter() *AdapterMetrics {
	adapterMetricsOnce.Do(func() {
		adapterRegistry = NewAdapterMetrics(prometheus.DefaultRegisterer)
	})
	return adapterRegistry
}

// NewAdapterMetrics builds and registers a fresh set of collectors. Tests use
// it with a private registry.
func NewAdapterMetrics(reg prometheus.Registerer) *AdapterMetrics {
	m := &AdapterMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venus",
			Subsystem: "adapter",
			Name:      "operations_total",
			Help:      "Adapter operations segmented by operation and outcome.",
		}, []string{"operation", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venus",
			Subsystem: "adapter",
			Name:      "failures_total",
			Help:      "Reverted adapter operations segmented by failure reason.",
		}, []string{"operation", "reason"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "venus",
			Subsystem: "adapter",
			Name:      "operation_duration_seconds",
			Help:      "Time spent executing adapter operations, including commit.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venus",
			Subsystem: "adapter",
			Name:      "refunds_total",
			Help:      "Operations that returned surplus funds to the caller.",
		}, []string{"operation"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venus",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests segmented by route and status code.",
		}, []string{"route", "status"}),
		throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "venus",
			Subsystem: "http",
			Name:      "throttles_total",
			Help:      "Requests rejected before reaching a handler.",
		}, []string{"reason"}),
		commits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "venus",
			Subsystem: "ledger",
			Name:      "commit_duration_seconds",
			Help:      "Time spent persisting the ledger after an operation.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		blockGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "venus",
			Subsystem: "ledger",
			Name:      "block_height",
			Help:      "Current sandbox block height.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.failures, m.latency, m.refunds, m.requests, m.throttles, m.commits, m.blockGauge)
	}
	return m
}

func label(v, fallback string) string {
	if v = strings.TrimSpace(v); v == "" {
		return fallback
	}
	return v
}

// ObserveOperation records one adapter operation. reason is empty on success.
func (m *AdapterMetrics) ObserveOperation(operation, reason string, refunded bool, duration time.Duration) {
	if m == nil {
		return
	}
	operation = label(operation, "unknown")
	outcome := "success"
	if reason != "" {
		outcome = "reverted"
		m.failures.WithLabelValues(operation, reason).Inc()
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
	if refunded {
		m.refunds.WithLabelValues(operation).Inc()
	}
}

// ObserveRequest records the status written for a route pattern.
func (m *AdapterMetrics) ObserveRequest(route string, status int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(label(route, "unmatched"), strconv.Itoa(status)).Inc()
}

// RecordThrottle counts a request rejected by rate limiting or auth.
func (m *AdapterMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	m.throttles.WithLabelValues(label(reason, "unspecified")).Inc()
}

// ObserveCommit records ledger persistence latency and the committed height.
func (m *AdapterMetrics) ObserveCommit(height uint64, duration time.Duration) {
	if m == nil {
		return
	}
	m.commits.Observe(duration.Seconds())
	m.blockGauge.Set(float64(height))
}
