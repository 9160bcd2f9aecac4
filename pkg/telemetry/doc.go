// Package telemetry reports render passes and suspense boundaries to
// Prometheus and OpenTelemetry.
//
// Both Metrics and Tracer implement render.Observer and can be combined
// with render.MultiObserver:
//
//	reg := prometheus.NewRegistry()
//	m := telemetry.NewMetrics(telemetry.WithRegistry(reg))
//	r := render.NewRenderer(render.RendererConfig{
//	    Observer: render.MultiObserver(m, telemetry.NewTracer()),
//	})
//
// Metrics also counts server-function calls and live subscribers, and
// Middleware measures HTTP requests by chi route pattern.
package telemetry
