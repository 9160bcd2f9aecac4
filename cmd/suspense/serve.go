package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vango-dev/suspense/pkg/live"
	"github.com/vango-dev/suspense/pkg/server"
)

func serveCmd(configPath *string) *cobra.Command {
	var (
		port int
		host string
		mode string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server.

Pages are rendered in the configured mode; ?mode= overrides it
per request. Server functions, live updates and metrics are
served under /api and /metrics.

Examples:
  suspense serve
  suspense serve --port=8080 --mode=inorder`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if mode != "" {
				cfg.Render.Mode = mode
			}

			a, err := newApp(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			pageMode, err := cfg.Mode()
			if err != nil {
				return err
			}

			count := a.demo.Count()
			format := func(n int) string { return strconv.Itoa(n) }
			srv := server.New(server.Config{
				Address:         cfg.Address(),
				Renderer:        a.renderer,
				Mode:            pageMode,
				Pages:           a.demo.Pages(),
				ServerFns:       a.demo.Registry(),
				Events:          live.SSEHandler(count, live.HandlerConfig[int]{Format: format, Logger: a.logger}),
				EventsWS:        live.WebSocketHandler(count, live.WebSocketConfig[int]{HandlerConfig: live.HandlerConfig[int]{Format: format, Logger: a.logger}}),
				NewSession:      func() server.Session { return a.demo.NewCounterSession() },
				Metrics:         a.metrics,
				Gatherer:        a.gatherer(),
				Logger:          a.logger,
				ReadTimeout:     cfg.Server.ReadTimeout.Duration(),
				RenderTimeout:   cfg.Render.Timeout.Duration(),
				ShutdownTimeout: cfg.Server.ShutdownTimeout.Duration(),
			})
			defer count.Close()

			success(cmd, "serving %s", cfg.URL())
			info(cmd, "mode:    %s", pageMode)
			info(cmd, "live:    %s/api/live", cfg.URL())
			if a.metrics != nil {
				info(cmd, "metrics: %s/metrics", cfg.URL())
			}
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Default render mode: ssr, ooo or inorder")

	return cmd
}
