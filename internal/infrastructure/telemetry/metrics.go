package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeBusy    = "busy"
)

// HTTPDurationBuckets are the histogram buckets for request latency in seconds.
var HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Metrics holds the storefront's Prometheus collectors on a private registry.
//
// A nil *Metrics is valid and records nothing, so components can be built
// without metrics in tests.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	cartMutations    *prometheus.CounterVec
	checkoutAttempts *prometheus.CounterVec
	badgeBroadcasts  *prometheus.CounterVec
	badgeStreams     prometheus.Gauge
}

// NewMetrics creates and registers all collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests served.",
	}, []string{"method", "route", "status"})

	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   HTTPDurationBuckets,
	}, []string{"method", "route"})

	m.cartMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_mutations_total",
		Help:      "Cart mutations by operation and outcome.",
	}, []string{"operation", "outcome"})

	m.checkoutAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_attempts_total",
		Help:      "Checkout steps by provider, step and outcome.",
	}, []string{"provider", "step", "outcome"})

	m.badgeBroadcasts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "badge_broadcasts_total",
		Help:      "Badge count broadcasts by source.",
	}, []string{"source"})

	m.badgeStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "badge_streams_active",
		Help:      "Open badge SSE streams on this instance.",
	})

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.cartMutations,
		m.checkoutAttempts,
		m.badgeBroadcasts,
		m.badgeStreams,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// CartMutation records the outcome of a cart mutation.
func (m *Metrics) CartMutation(operation, outcome string) {
	if m == nil {
		return
	}
	m.cartMutations.WithLabelValues(operation, outcome).Inc()
}

// CheckoutStep records the outcome of one checkout step.
func (m *Metrics) CheckoutStep(provider, step, outcome string) {
	if m == nil {
		return
	}
	m.checkoutAttempts.WithLabelValues(provider, step, outcome).Inc()
}

// BadgeBroadcast records a badge update, local or received from another instance.
func (m *Metrics) BadgeBroadcast(source string) {
	if m == nil {
		return
	}
	m.badgeBroadcasts.WithLabelValues(source).Inc()
}

// StreamOpened increments the open badge stream gauge.
func (m *Metrics) StreamOpened() {
	if m == nil {
		return
	}
	m.badgeStreams.Inc()
}

// StreamClosed decrements the open badge stream gauge.
func (m *Metrics) StreamClosed() {
	if m == nil {
		return
	}
	m.badgeStreams.Dec()
}
