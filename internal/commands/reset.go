package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/extracto-dev/extracto/internal/importlog"
)

func newResetCommand(opts *globalOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every transaction of the user",
		Long:  "Delete every transaction of the user. Recurring templates and learned rules are kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete all transactions without --yes")
			}

			e, err := openEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := e.ledger.Reset(cmd.Context(), e.user)
			if err != nil {
				return err
			}
			if err := importlog.Append(e.cfg.DataDir(), importlog.Entry{
				Timestamp: time.Now(),
				UserID:    e.user,
				Action:    importlog.ActionReset,
				Source:    "cli",
			}); err != nil {
				e.logger.Warn("could not write import log", "err", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d transactions\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")

	return cmd
}
