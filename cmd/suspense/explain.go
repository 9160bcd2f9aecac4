package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/suspense/internal/errors"
)

func explainCmd() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "explain [code]",
		Short: "Describe an error code",
		Long: `Describe an error code, or list every code when none is given.

Examples:
  suspense explain
  suspense explain E123`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				errors.DisableColors()
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				codes := errors.GetAllCodes()
				sort.Strings(codes)
				for _, code := range codes {
					t, _ := errors.GetTemplate(code)
					fmt.Fprintf(out, "%s  %-10s %s\n", code, t.Category, t.Message)
				}
				return nil
			}

			code := strings.ToUpper(args[0])
			if _, ok := errors.GetTemplate(code); !ok {
				return fmt.Errorf("unknown error code %q", args[0])
			}
			fmt.Fprint(out, errors.New(code).Format())
			return nil
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable ANSI colors")

	return cmd
}
