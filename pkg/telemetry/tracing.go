package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/suspense/pkg/hydration"
	"github.com/vango-dev/suspense/pkg/render"
)

const defaultTracerName = "github.com/vango-dev/suspense"

// TracerConfig configures the tracing observer.
type TracerConfig struct {
	// TracerName is the instrumentation name (default: the module path).
	TracerName string

	// Provider supplies the tracer. Default: otel.GetTracerProvider().
	Provider trace.TracerProvider

	// Attributes are added to every pass span.
	Attributes []attribute.KeyValue
}

// TracerOption configures the tracing observer.
type TracerOption func(*TracerConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracerOption {
	return func(c *TracerConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(provider trace.TracerProvider) TracerOption {
	return func(c *TracerConfig) {
		c.Provider = provider
	}
}

// WithAttributes adds constant attributes to every pass span.
func WithAttributes(attrs ...attribute.KeyValue) TracerOption {
	return func(c *TracerConfig) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

// Tracer opens one span per render pass and records boundaries and chunks
// as span events.
type Tracer struct {
	tracer trace.Tracer
	attrs  []attribute.KeyValue
}

// NewTracer creates a tracing observer.
func NewTracer(opts ...TracerOption) *Tracer {
	config := TracerConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Provider == nil {
		config.Provider = otel.GetTracerProvider()
	}
	if config.TracerName == "" {
		config.TracerName = defaultTracerName
	}
	return &Tracer{
		tracer: config.Provider.Tracer(config.TracerName),
		attrs:  config.Attributes,
	}
}

// StartPass implements render.Observer.
func (t *Tracer) StartPass(ctx context.Context, mode render.Mode) (context.Context, func(error)) {
	attrs := append([]attribute.KeyValue{
		attribute.String("suspense.mode", mode.String()),
		attribute.Bool("suspense.streaming", mode.Streaming()),
	}, t.attrs...)

	ctx, span := t.tracer.Start(ctx, "suspense.render "+mode.String(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// Boundary implements render.Observer.
func (t *Tracer) Boundary(ctx context.Context, _ render.Mode, key hydration.Key, ready bool) {
	trace.SpanFromContext(ctx).AddEvent("suspense.boundary", trace.WithAttributes(
		attribute.String("suspense.key", key.String()),
		attribute.Bool("suspense.ready", ready),
	))
}

// BoundaryResolved implements render.Observer.
func (t *Tracer) BoundaryResolved(ctx context.Context, _ render.Mode, key hydration.Key, wait time.Duration) {
	trace.SpanFromContext(ctx).AddEvent("suspense.resolved", trace.WithAttributes(
		attribute.String("suspense.key", key.String()),
		attribute.Int64("suspense.wait_ms", wait.Milliseconds()),
	))
}

// Chunk implements render.Observer.
func (t *Tracer) Chunk(ctx context.Context, _ render.Mode, size int) {
	trace.SpanFromContext(ctx).AddEvent("suspense.chunk", trace.WithAttributes(
		attribute.Int("suspense.bytes", size),
	))
}

var _ render.Observer = (*Tracer)(nil)
