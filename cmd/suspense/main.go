// Command suspense serves, renders and exports the suspense demo
// application.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/suspense/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "suspense",
		Short: "Suspense-aware rendering server",
		Long: `suspense renders reactive views with suspense boundaries.

Pages can be rendered in one pass, streamed out of order with
fallbacks replaced as data arrives, or streamed in document order.
Interactive documents are driven over a WebSocket.

Configuration is read from suspense.yaml in the working directory
or a parent, or from --config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a config file (default: nearest suspense.yaml)")

	rootCmd.AddCommand(
		serveCmd(&configPath),
		renderCmd(&configPath),
		exportCmd(&configPath),
		explainCmd(),
		versionCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", fmt.Sprintf(format, args...))
}
