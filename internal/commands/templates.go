package commands

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/extracto-dev/extracto/internal/id"
	"github.com/extracto-dev/extracto/internal/model"
	"github.com/extracto-dev/extracto/internal/store"
)

func newTemplatesCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Recurring expense templates",
	}
	cmd.AddCommand(newTemplatesListCommand(opts), newTemplatesExcludeCommand(opts))
	return cmd
}

func newTemplatesListCommand(opts *globalOptions) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recurring templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			templates, err := e.store.FindTemplates(cmd.Context(), store.TemplateFilter{UserID: e.user, ActiveOnly: !all})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(templates) == 0 {
				fmt.Fprintln(out, "No recurring templates.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDESCRIPTION\tAMOUNT\tCATEGORY\tDAY\tMONTHS\tACTIVE")
			for _, t := range templates {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%t\n",
					t.ID, t.Description, t.EstimatedAmount.StringFixed(2), t.Category, t.BillingDay, months(t), t.Active)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include inactive templates")

	return cmd
}

func months(t model.RecurringTemplate) string {
	if len(t.Months) == 0 {
		return "all"
	}
	parts := make([]string, len(t.Months))
	for i, m := range t.Months {
		parts[i] = strconv.Itoa(m)
	}
	return strings.Join(parts, ",")
}

func newTemplatesExcludeCommand(opts *globalOptions) *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "exclude <template-id>",
		Short: "Skip a recurring template for one month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := id.ParseMonth(month)
			if err != nil {
				return fmt.Errorf("--month: %w", err)
			}

			e, err := openEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			ex, err := e.ledger.Exclude(cmd.Context(), e.user, args[0], m)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Excluded template %s for %s\n", ex.TemplateID, id.FormatMonth(ex.Month))
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "month to skip, YYYY-MM (required)")
	_ = cmd.MarkFlagRequired("month")

	return cmd
}
