package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vango-dev/suspense/internal/errors"
	"github.com/vango-dev/suspense/pkg/render"
)

func renderCmd(configPath *string) *cobra.Command {
	var (
		mode  string
		route string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one page to stdout",
		Long: `Render one page to stdout in the given mode.

Streaming modes write chunks as they are produced, so the output
shows the shell and fallbacks before the resolved content.

Examples:
  suspense render --route=/ --mode=ooo
  suspense render --route=/counter --mode=ssr > counter.html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			a, err := newApp(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.demo.Count().Close()

			m, err := cfg.Mode()
			if mode != "" {
				m, err = render.ParseMode(mode)
			}
			if err != nil {
				return err
			}

			page, ok := a.demo.Pages()[route]
			if !ok {
				return errors.New("E124").WithDetailf("no page at route %q", route)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Render.Timeout.Duration())
			defer cancel()
			return a.renderer.RenderPage(ctx, cmd.OutOrStdout(), m, page)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Render mode: client, ssr, ooo or inorder (default from config)")
	cmd.Flags().StringVarP(&route, "route", "r", "/", "Route of the page to render")

	return cmd
}
