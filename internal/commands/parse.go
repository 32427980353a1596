package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/extracto-dev/extracto/internal/ingest"
	"github.com/extracto-dev/extracto/internal/matcher"
)

func newParseCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Show what a statement would import, without saving",
		Long: "Parse a PDF statement, a bank CSV export or already-extracted statement text (.txt)\n" +
			"and list new transactions, duplicates of stored ones, and lines needing manual entry.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := parseFile(cmd.Context(), e, args[0])
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

// parseFile runs the import pipeline over a statement file, choosing the
// parser by extension.
func parseFile(ctx context.Context, e *env, path string) (ingest.Result, error) {
	name := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		data, err := os.ReadFile(path)
		if err != nil {
			return ingest.Result{}, fmt.Errorf("reading %s: %w", name, err)
		}
		return e.ingest.Parse(ctx, e.user, ingest.Upload{
			Name:        name,
			ContentType: ingest.PDFContentType,
			Data:        data,
		})
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return ingest.Result{}, fmt.Errorf("reading %s: %w", name, err)
		}
		defer f.Close()
		return e.ingest.ParseFormat(ctx, e.user, "csv", f)
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return ingest.Result{}, fmt.Errorf("reading %s: %w", name, err)
		}
		return e.ingest.ParseText(ctx, e.user, string(data))
	default:
		return ingest.Result{}, fmt.Errorf("unsupported statement type %q for %s", ext, name)
	}
}

func printResult(w io.Writer, res ingest.Result) {
	if len(res.Transactions) > 0 {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tDESCRIPTION\tAMOUNT\tCATEGORY\tKIND\tTEMPLATE")
		for _, m := range res.Transactions {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				m.Tx.Date.Format("2006-01-02"), m.Tx.Description, m.Tx.Amount.StringFixed(2),
				m.Tx.Category, m.Tx.Kind, templateName(m))
		}
		tw.Flush()
	}
	for _, m := range res.Duplicates {
		fmt.Fprintf(w, "duplicate: %s %s %s\n", m.Tx.Date.Format("2006-01-02"), m.Tx.Description, m.Tx.Amount.StringFixed(2))
	}
	for _, line := range res.Ambiguous {
		fmt.Fprintf(w, "needs manual entry: %s\n", line)
	}
	fmt.Fprintf(w, "%d new, %d duplicates, %d ambiguous, %d skipped\n",
		len(res.Transactions), len(res.Duplicates), len(res.Ambiguous), res.Skipped)
}

func templateName(m matcher.Matched) string {
	if m.Template == nil {
		return "-"
	}
	return m.Template.Description
}
