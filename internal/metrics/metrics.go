// Package metrics collects Prometheus metrics for the adapter and its
// transport.
//
// Metrics collected:
//   - wsgate_connections_total: connections served, by phase and outcome
//   - wsgate_active_connections: connections currently open, by phase
//   - wsgate_events_total: events handled, by phase, type and direction
//   - wsgate_errors_total: connection failures, by error type
//   - wsgate_subprotocols_negotiated_total: accepted subprotocols
//   - wsgate_lifespan_total: lifespan acknowledgements, by event and outcome
//   - wsgate_connection_duration_seconds: connection lifetime, by phase
//
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the metrics collector.
type Config struct {
	// Namespace is the metrics namespace (default: "wsgate").
	Namespace string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for connection duration.
	Buckets []float64

	// Registry is the registry metrics are registered with and served from.
	// Default: a fresh prometheus.NewRegistry().
	Registry *prometheus.Registry
}

// Option configures the metrics collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "wsgate",
		Buckets:   []float64{0.01, 0.1, 1, 10, 60, 300, 1800, 3600},
	}
}

// Metrics holds the adapter's Prometheus collectors.
type Metrics struct {
	registry           *prometheus.Registry
	connectionsTotal   *prometheus.CounterVec
	activeConnections  *prometheus.GaugeVec
	eventsTotal        *prometheus.CounterVec
	errorsTotal        *prometheus.CounterVec
	subprotocols       *prometheus.CounterVec
	lifespanTotal      *prometheus.CounterVec
	connectionDuration *prometheus.HistogramVec
}

// New creates and registers the adapter metrics.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		registry: config.Registry,

		connectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "connections_total",
			Help:        "Total number of connections served",
			ConstLabels: config.ConstLabels,
		}, []string{"phase", "outcome"}),

		activeConnections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "active_connections",
			Help:        "Number of connections currently open",
			ConstLabels: config.ConstLabels,
		}, []string{"phase"}),

		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "events_total",
			Help:        "Total number of events handled",
			ConstLabels: config.ConstLabels,
		}, []string{"phase", "type", "direction"}),

		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "errors_total",
			Help:        "Total number of connection failures by error type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		subprotocols: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "subprotocols_negotiated_total",
			Help:        "Total number of accepted WebSocket connections by subprotocol",
			ConstLabels: config.ConstLabels,
		}, []string{"subprotocol"}),

		lifespanTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "lifespan_total",
			Help:        "Lifespan acknowledgements by event and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"event", "outcome"}),

		connectionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "connection_duration_seconds",
			Help:        "Connection lifetime in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"phase"}),
	}
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ConnectionOpened marks a connection of the given phase as active.
func (m *Metrics) ConnectionOpened(phase string) {
	if m == nil {
		return
	}
	m.activeConnections.WithLabelValues(phase).Inc()
}

// ConnectionClosed records the end of a connection. outcome is "ok" or an
// error type name.
func (m *Metrics) ConnectionClosed(phase, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.activeConnections.WithLabelValues(phase).Dec()
	m.connectionsTotal.WithLabelValues(phase, outcome).Inc()
	m.connectionDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// Event counts one handled event.
func (m *Metrics) Event(phase, typ, direction string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(phase, typ, direction).Inc()
}

// Error counts one connection failure.
func (m *Metrics) Error(errorType string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(errorType).Inc()
}

// Negotiated counts one accepted subprotocol.
func (m *Metrics) Negotiated(subprotocol string) {
	if m == nil {
		return
	}
	m.subprotocols.WithLabelValues(subprotocol).Inc()
}

// Lifespan records a lifespan acknowledgement.
func (m *Metrics) Lifespan(event, outcome string) {
	if m == nil {
		return
	}
	m.lifespanTotal.WithLabelValues(event, outcome).Inc()
}
