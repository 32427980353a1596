package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExportCommand(opts *globalOptions) *cobra.Command {
	var from, to, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export transactions as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDay, err := parseOptionalDay(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			toDay, err := parseOptionalDay(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			e, err := openEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			n, err := e.ledger.Export(cmd.Context(), w, e.user, fromDay, toDay)
			if err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transactions to %s\n", n, output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")

	return cmd
}
