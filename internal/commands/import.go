package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/extracto-dev/extracto/internal/importer"
	"github.com/extracto-dev/extracto/internal/importlog"
	"github.com/extracto-dev/extracto/internal/ingest"
)

func newImportCommand(opts *globalOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import [file...]",
		Short: "Import statements and save their new transactions",
		Long: "Import the given statement files. With no arguments, every PDF and CSV in the\n" +
			"inbox is imported and moved to inbox/processed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()
			return runImport(cmd, e, args, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and report without saving")

	return cmd
}

func runImport(cmd *cobra.Command, e *env, paths []string, dryRun bool) error {
	out := cmd.OutOrStdout()
	inbox := e.cfg.InboxPath()
	fromInbox := len(paths) == 0
	if fromInbox {
		files, err := importer.Scan(inbox)
		if err != nil {
			return err
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
	}
	if len(paths) == 0 {
		fmt.Fprintln(out, "No statements to import.")
		return nil
	}

	for _, path := range paths {
		name := filepath.Base(path)
		res, err := parseFile(cmd.Context(), e, path)
		if err != nil {
			return fmt.Errorf("importing %s: %w", name, err)
		}
		if dryRun {
			fmt.Fprintf(out, "%s (dry run):\n", name)
			printResult(out, res)
			continue
		}

		inserted := 0
		if len(res.Transactions) > 0 {
			sum, err := e.ingest.Save(cmd.Context(), e.user, ingest.ToRows(res.Transactions))
			if err != nil {
				return fmt.Errorf("importing %s: %w", name, err)
			}
			inserted = sum.Inserted
		}

		if err := importlog.Append(e.cfg.DataDir(), importlog.Entry{
			Timestamp:  time.Now(),
			UserID:     e.user,
			Action:     importlog.ActionSave,
			Source:     name,
			Imported:   inserted,
			Duplicates: len(res.Duplicates),
		}); err != nil {
			e.logger.Warn("could not write import log", "err", err)
		}
		if fromInbox {
			if err := importer.MarkProcessed(inbox, name); err != nil {
				return err
			}
		}

		fmt.Fprintf(out, "%s: %d imported, %d duplicates, %d ambiguous\n",
			name, inserted, len(res.Duplicates), len(res.Ambiguous))
		for _, line := range res.Ambiguous {
			fmt.Fprintf(out, "  needs manual entry: %s\n", line)
		}
	}
	return nil
}
