package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vango-dev/suspense/internal/errors"
	"github.com/vango-dev/suspense/pkg/export"
)

func exportCmd(configPath *string) *cobra.Command {
	var (
		target string
		routes []string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render pages to static files",
		Long: `Render pages with every boundary resolved and write them, with
a manifest.json, to a directory or an S3 bucket.

S3 credentials are read from AWS_ACCESS_KEY_ID and
AWS_SECRET_ACCESS_KEY.

Examples:
  suspense export
  suspense export --target=./public
  suspense export --target=s3://my-bucket/site --route=/ --route=/counter`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if target != "" {
				cfg.Export.Target = target
			}
			if len(routes) > 0 {
				cfg.Export.Routes = routes
			}

			a, err := newApp(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.demo.Count().Close()

			store, err := export.OpenStore(cfg.Export.Target, export.S3Options{
				Region:   cfg.Export.Region,
				Endpoint: cfg.Export.Endpoint,
			})
			if err != nil {
				return err
			}

			all := a.demo.Pages()
			pages := make([]export.Page, 0, len(cfg.Export.Routes))
			for _, route := range cfg.Export.Routes {
				data, ok := all[route]
				if !ok {
					return errors.New("E124").WithDetailf("no page at route %q", route)
				}
				pages = append(pages, export.Page{Route: route, Data: data})
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Render.Timeout.Duration())
			defer cancel()

			manifest, err := export.NewExporter(a.renderer, store, a.logger).Export(ctx, pages...)
			if err != nil {
				return err
			}
			for _, f := range manifest.Files {
				info(cmd, "%-24s %6d bytes", f.Path, f.Size)
			}
			success(cmd, "exported %d files to %s", len(manifest.Files), store.Location())
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Directory or s3://bucket/prefix (default from config)")
	cmd.Flags().StringSliceVarP(&routes, "route", "r", nil, "Route to export; repeatable (default from config)")

	return cmd
}
