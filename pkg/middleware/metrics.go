package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	bridgeerrors "github.com/hbmartin/webview-ipc/internal/errors"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "bridge").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for call duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "bridge",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics collects Prometheus metrics for handler calls and view broadcasts.
// It implements Middleware and the host registry observer interface.
type Metrics struct {
	callsTotal        *prometheus.CounterVec
	callDuration      *prometheus.HistogramVec
	callErrors        *prometheus.CounterVec
	registeredViews   prometheus.Gauge
	broadcastsTotal   *prometheus.CounterVec
	broadcastFailures *prometheus.CounterVec
}

// NewMetrics registers the bridge metrics with the configured registry.
// Registering twice against the same registry panics, as promauto does.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		callsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "calls_total",
			Help:        "Total number of handler calls processed",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "key", "status"}),

		callDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "call_duration_seconds",
			Help:        "Handler call duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"kind", "key"}),

		callErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "call_errors_total",
			Help:        "Total number of failed handler calls",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "key", "error_type"}),

		registeredViews: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "registered_views",
			Help:        "Number of views currently registered for broadcast",
			ConstLabels: config.ConstLabels,
		}),

		broadcastsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "broadcasts_total",
			Help:        "Total number of event deliveries attempted by broadcasts",
			ConstLabels: config.ConstLabels,
		}, []string{"key"}),

		broadcastFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "broadcast_failures_total",
			Help:        "Total number of recipients pruned after a failed broadcast send",
			ConstLabels: config.ConstLabels,
		}, []string{"key"}),
	}
}

// Handle implements Middleware.
func (m *Metrics) Handle(ctx context.Context, call *Call, next Next) (any, error) {
	start := time.Now()
	value, err := next(ctx)
	m.callDuration.WithLabelValues(string(call.Kind), call.Key).Observe(time.Since(start).Seconds())

	status := "success"
	if err != nil {
		status = "error"
		m.callErrors.WithLabelValues(string(call.Kind), call.Key, categorizeError(err)).Inc()
	}
	m.callsTotal.WithLabelValues(string(call.Kind), call.Key, status).Inc()
	return value, err
}

// ViewsChanged records the current number of registered views.
func (m *Metrics) ViewsChanged(n int) {
	m.registeredViews.Set(float64(n))
}

// BroadcastDone records the outcome of one broadcast.
func (m *Metrics) BroadcastDone(key string, delivered, failed int) {
	m.broadcastsTotal.WithLabelValues(key).Add(float64(delivered + failed))
	if failed > 0 {
		m.broadcastFailures.WithLabelValues(key).Add(float64(failed))
	}
}

// categorizeError returns a low-cardinality label for err.
func categorizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	var be *bridgeerrors.BridgeError
	if errors.As(err, &be) && be.Category != "" {
		return string(be.Category)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "not found"):
		return "not_found"
	case strings.Contains(msg, "unauthorized"):
		return "unauthorized"
	case strings.Contains(msg, "validation"), strings.Contains(msg, "invalid"):
		return "validation"
	case strings.Contains(msg, "panic"):
		return "panic"
	default:
		return "internal"
	}
}
