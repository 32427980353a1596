package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/extracto-dev/extracto/internal/config"
	"github.com/extracto-dev/extracto/internal/id"
	"github.com/extracto-dev/extracto/internal/ledger"
	"github.com/extracto-dev/extracto/internal/model"
)

func newSummaryCommand(opts *globalOptions) *cobra.Command {
	var (
		month    string
		year     int
		trailing int
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show income, expenses and savings",
		Long: "Summarize one month (default), a calendar year with --year, or the months\n" +
			"ending at --month with --trailing. Savings are compared with savings.goal.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := time.Now()
			if month != "" {
				var err error
				if m, err = id.ParseMonth(month); err != nil {
					return fmt.Errorf("--month: %w", err)
				}
			}

			e, err := openEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			goals := goalsFrom(e.cfg)
			ctx := cmd.Context()

			switch {
			case cmd.Flags().Changed("year"):
				stats, err := e.ledger.YearlyStats(ctx, e.user, year)
				if err != nil {
					return err
				}
				from := model.Day(year, time.January, 1)
				cats, err := e.ledger.CategoryStats(ctx, e.user, from, model.Day(year, time.December, 31))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Summary for %d\n", year)
				return printStats(out, stats, cats, goals)

			case cmd.Flags().Changed("trailing"):
				stats, err := e.ledger.TrailingStats(ctx, e.user, m, trailing)
				if err != nil {
					return err
				}
				cats, err := e.ledger.CategoryStats(ctx, e.user, stats[0].Month, model.MonthEnd(m))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Summary for the %d months to %s\n", trailing, id.FormatMonth(m))
				return printStats(out, stats, cats, goals)
			}

			sum, err := e.ledger.MonthSummary(ctx, e.user, m)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Summary for %s\n", id.FormatMonth(m))
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Income\t%s\n", sum.Income.StringFixed(2))
			fmt.Fprintf(tw, "Expenses\t%s\n", sum.Expenses.StringFixed(2))
			fmt.Fprintf(tw, "Investments\t%s\n", sum.Investments.StringFixed(2))
			fmt.Fprintf(tw, "Savings\t%s\n", sum.Savings.StringFixed(2))
			fmt.Fprintf(tw, "Pending\t%s\n", sum.Pending.StringFixed(2))
			for _, c := range model.Categories {
				if total, ok := sum.ByCategory[c]; ok {
					fmt.Fprintf(tw, "  %s\t%s\n", c, total.StringFixed(2))
				}
			}
			printGoals(tw, sum.SavingsRate(), goals)
			return tw.Flush()
		},
	}

	f := cmd.Flags()
	f.StringVar(&month, "month", "", "month to summarize, YYYY-MM (default current month)")
	f.IntVar(&year, "year", 0, "summarize a calendar year month by month")
	f.IntVar(&trailing, "trailing", 0, "summarize this many months ending at --month")
	cmd.MarkFlagsMutuallyExclusive("year", "month")
	cmd.MarkFlagsMutuallyExclusive("year", "trailing")

	return cmd
}

func goalsFrom(cfg *config.Config) ledger.Goals {
	return ledger.Goals{
		SavingsRate:     decimal.NewFromFloat(cfg.Savings.Goal),
		EmergencyTarget: decimal.NewFromFloat(cfg.Savings.EmergencyTarget),
		EmergencySaved:  decimal.NewFromFloat(cfg.Savings.EmergencyCurrent),
	}
}

func printStats(w io.Writer, stats []ledger.MonthStat, cats []ledger.CategoryStat, goals ledger.Goals) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MONTH\tINCOME\tEXPENSES\tINVESTMENTS\tSAVINGS")
	for _, m := range stats {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", id.FormatMonth(m.Month),
			m.Income.StringFixed(2), m.Expenses.StringFixed(2),
			m.Investments.StringFixed(2), m.Savings().StringFixed(2))
	}
	t := ledger.Totals(stats)
	fmt.Fprintf(tw, "Total\t%s\t%s\t%s\t%s\n",
		t.Income.StringFixed(2), t.Expenses.StringFixed(2),
		t.Investments.StringFixed(2), t.Savings().StringFixed(2))
	if err := tw.Flush(); err != nil {
		return err
	}

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(cats) > 0 {
		fmt.Fprintln(tw, "Expenses by category")
		for _, c := range cats {
			fmt.Fprintf(tw, "  %s\t%s\n", c.Category, c.Total.StringFixed(2))
		}
	}
	printGoals(tw, t.SavingsRate(), goals)
	return tw.Flush()
}

func printGoals(w io.Writer, rate decimal.Decimal, goals ledger.Goals) {
	fmt.Fprintf(w, "Savings rate\t%s (goal %s)\n", percent(rate), percent(goals.SavingsRate))
	if goals.EmergencyTarget.IsPositive() {
		fmt.Fprintf(w, "Emergency fund\t%s of %s (%s)\n",
			goals.EmergencySaved.StringFixed(2), goals.EmergencyTarget.StringFixed(2),
			percent(goals.EmergencyProgress()))
	}
}

func percent(d decimal.Decimal) string {
	return d.Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}

