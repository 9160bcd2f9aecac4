package main

import (
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vango-dev/suspense/internal/config"
	"github.com/vango-dev/suspense/internal/demo"
	"github.com/vango-dev/suspense/pkg/live"
	"github.com/vango-dev/suspense/pkg/render"
	"github.com/vango-dev/suspense/pkg/telemetry"
)

// app is everything a command needs, built from one config.
type app struct {
	config   *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *telemetry.Metrics
	renderer *render.Renderer
	demo     *demo.App
}

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.LoadFromWorkingDir()
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp wires logging, metrics, tracing and the renderer. Logs go to
// logOut.
func newApp(cfg *config.Config, logOut io.Writer) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := cfg.NewLogger(logOut)
	if err != nil {
		return nil, err
	}

	a := &app{config: cfg, logger: logger}

	observers := []render.Observer{telemetry.NewTracer()}
	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.metrics = telemetry.NewMetrics(
			telemetry.WithNamespace(cfg.Metrics.Namespace),
			telemetry.WithRegistry(a.registry),
		)
		observers = append(observers, a.metrics)
	}

	a.renderer = render.NewRenderer(render.RendererConfig{
		Logger:       logger,
		Observer:     render.MultiObserver(observers...),
		ClientScript: cfg.Render.ClientScript,
	})

	liveOpts := []live.Option{live.WithBuffer(cfg.Live.Buffer)}
	if a.metrics != nil {
		liveOpts = append(liveOpts, live.WithObserver(a.metrics))
	}
	a.demo = demo.New(demo.Options{
		Latency:      cfg.Demo.Latency.Duration(),
		InitialCount: cfg.Demo.InitialCount,
		Logger:       logger,
		Live:         liveOpts,
	})
	return a, nil
}

// gatherer is nil when metrics are disabled, which turns /metrics off.
func (a *app) gatherer() prometheus.Gatherer {
	if a.registry == nil {
		return nil
	}
	return a.registry
}
