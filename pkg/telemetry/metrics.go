package telemetry

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/suspense/internal/errors"
	"github.com/vango-dev/suspense/pkg/hydration"
	"github.com/vango-dev/suspense/pkg/render"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "suspense").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for pass duration and boundary wait.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collectors.
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
		Namespace: "suspense",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Boundary outcomes used as the "outcome" label.
const (
	OutcomeReady    = "ready"
	OutcomePending  = "pending"
	OutcomeResolved = "resolved"
)

// Metrics holds the Prometheus collectors. Registering two Metrics on the
// same registry panics, as promauto does.
type Metrics struct {
	passesTotal     *prometheus.CounterVec
	passDuration    *prometheus.HistogramVec
	boundariesTotal *prometheus.CounterVec
	boundaryWait    *prometheus.HistogramVec
	chunksTotal     *prometheus.CounterVec
	chunkBytes      *prometheus.CounterVec
	serverFnCalls   *prometheus.CounterVec
	liveSubscribers prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if len(config.Buckets) == 0 {
		config.Buckets = prometheus.DefBuckets
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		passesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_passes_total",
			Help:        "Total number of render passes by mode and status",
			ConstLabels: config.ConstLabels,
		}, []string{"mode", "status"}),

		passDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_pass_duration_seconds",
			Help:        "Render pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"mode"}),

		boundariesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "boundaries_total",
			Help:        "Suspense boundaries rendered, by mode and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"mode", "outcome"}),

		boundaryWait: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "boundary_resolve_seconds",
			Help:        "Time from a boundary's fallback to its content",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"mode"}),

		chunksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "stream_chunks_total",
			Help:        "Total number of chunks written to sinks",
			ConstLabels: config.ConstLabels,
		}, []string{"mode"}),

		chunkBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "stream_bytes_total",
			Help:        "Total number of bytes written to sinks",
			ConstLabels: config.ConstLabels,
		}, []string{"mode"}),

		serverFnCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "serverfn_calls_total",
			Help:        "Server function calls by name and status",
			ConstLabels: config.ConstLabels,
		}, []string{"name", "status"}),

		liveSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_subscribers",
			Help:        "Number of connected live-channel subscribers",
			ConstLabels: config.ConstLabels,
		}),

		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_requests_total",
			Help:        "HTTP requests by route pattern, method and status code",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "method", "code"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route"}),
	}
}

// StartPass implements render.Observer.
func (m *Metrics) StartPass(ctx context.Context, mode render.Mode) (context.Context, func(error)) {
	start := time.Now()
	return ctx, func(err error) {
		m.passDuration.WithLabelValues(mode.String()).Observe(time.Since(start).Seconds())
		m.passesTotal.WithLabelValues(mode.String(), statusLabel(err)).Inc()
	}
}

// Boundary implements render.Observer.
func (m *Metrics) Boundary(_ context.Context, mode render.Mode, _ hydration.Key, ready bool) {
	outcome := OutcomePending
	if ready {
		outcome = OutcomeReady
	}
	m.boundariesTotal.WithLabelValues(mode.String(), outcome).Inc()
}

// BoundaryResolved implements render.Observer.
func (m *Metrics) BoundaryResolved(_ context.Context, mode render.Mode, _ hydration.Key, wait time.Duration) {
	m.boundariesTotal.WithLabelValues(mode.String(), OutcomeResolved).Inc()
	m.boundaryWait.WithLabelValues(mode.String()).Observe(wait.Seconds())
}

// Chunk implements render.Observer.
func (m *Metrics) Chunk(_ context.Context, mode render.Mode, size int) {
	m.chunksTotal.WithLabelValues(mode.String()).Inc()
	m.chunkBytes.WithLabelValues(mode.String()).Add(float64(size))
}

// RecordServerFn counts one server function call.
func (m *Metrics) RecordServerFn(name string, err error) {
	m.serverFnCalls.WithLabelValues(name, statusLabel(err)).Inc()
}

// SubscriberAdded increments the live subscriber gauge.
func (m *Metrics) SubscriberAdded() {
	m.liveSubscribers.Inc()
}

// SubscriberRemoved decrements the live subscriber gauge.
func (m *Metrics) SubscriberRemoved() {
	m.liveSubscribers.Dec()
}

// Middleware records request count and duration labelled by the chi route
// pattern, so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(sw.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// statusLabel is "ok", the error's code, or "error" for uncoded errors.
func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if code := errors.Code(err); code != "" {
		return code
	}
	return "error"
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Flush lets streaming drivers flush through the middleware.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets WebSocket upgrades through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	w.wroteHeader = true
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

var _ render.Observer = (*Metrics)(nil)
