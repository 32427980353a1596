package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/extracto-dev/extracto/internal/buildinfo"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	dir  string
	user string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "extracto",
		Short:   "Bank statement imports for a personal finance ledger",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.dir, "dir", ".", "ledger directory holding extracto.yaml")
	rootCmd.PersistentFlags().StringVar(&opts.user, "user", "", "ledger owner (defaults to user.id from the config)")

	rootCmd.AddCommand(
		newInitCommand(),
		newParseCommand(opts),
		newImportCommand(opts),
		newAddCommand(opts),
		newEditCommand(opts),
		newDeleteCommand(opts),
		newTemplatesCommand(opts),
		newSummaryCommand(opts),
		newExportCommand(opts),
		newResetCommand(opts),
		newServeCommand(opts),
	)

	return rootCmd
}
