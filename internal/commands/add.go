package commands

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/extracto-dev/extracto/internal/classify"
	"github.com/extracto-dev/extracto/internal/ledger"
	"github.com/extracto-dev/extracto/internal/model"
	"github.com/extracto-dev/extracto/internal/reconcile"
)

type addOptions struct {
	date          string
	description   string
	amount        string
	category      string
	kind          string
	paymentMethod string
	notes         string
	template      string
	months        []int
	start         string
	end           string
}

func newAddCommand(opts *globalOptions) *cobra.Command {
	var o addOptions

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a transaction by hand",
		Long: "Add one transaction. Category and kind are guessed from the description when\n" +
			"omitted. The amount is signed by kind: income is positive, everything else is\n" +
			"an outflow. Fixed expenses create or update their recurring template; --months,\n" +
			"--start and --end set the template's schedule.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := o.row()
			if err != nil {
				return err
			}

			e, err := openEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			sum, err := e.ingest.Save(cmd.Context(), e.user, []reconcile.Row{row})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s on %s (%s, %s)\n",
				row.Tx.Description, row.Tx.Amount.StringFixed(2), row.Tx.Date.Format("2006-01-02"),
				row.Tx.Category, row.Tx.Kind)
			if sum.TemplatesCreated > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Created recurring template.")
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.date, "date", "", "transaction date, YYYY-MM-DD (required)")
	f.StringVar(&o.description, "description", "", "description (required)")
	f.StringVar(&o.amount, "amount", "", "amount; the sign follows the kind, income positive (required)")
	f.StringVar(&o.category, "category", "", "category (guessed when empty)")
	f.StringVar(&o.kind, "kind", "", "fixed_expense, variable_expense, income or investment (guessed when empty)")
	f.StringVar(&o.paymentMethod, "payment-method", "", "card, cash, transfer, bizum or direct_debit")
	f.StringVar(&o.notes, "notes", "", "free-form notes")
	f.StringVar(&o.template, "template", "", "recurring template id to link")
	f.IntSliceVar(&o.months, "months", nil, "months a fixed expense applies to, e.g. 1,4,7,10")
	f.StringVar(&o.start, "start", "", "template start date, YYYY-MM-DD")
	f.StringVar(&o.end, "end", "", "template end date, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func (o addOptions) row() (reconcile.Row, error) {
	d, err := parseDay(o.date)
	if err != nil {
		return reconcile.Row{}, fmt.Errorf("--date: %w", err)
	}
	amount, err := decimal.NewFromString(o.amount)
	if err != nil {
		return reconcile.Row{}, fmt.Errorf("--amount: %w", err)
	}

	guess := classify.Default().Classify(model.ParsedTransaction{Description: o.description, Amount: amount})
	tx := model.LedgerTransaction{
		Date:          d,
		Description:   o.description,
		Amount:        amount,
		Category:      guess.Category,
		Kind:          guess.Kind,
		PaymentMethod: model.PaymentMethod(o.paymentMethod),
		Notes:         o.notes,
		RecurringID:   o.template,
	}
	if o.category != "" {
		tx.Category = model.Category(o.category)
	}
	if o.kind != "" {
		tx.Kind = model.Kind(o.kind)
	}
	tx.Amount = ledger.SignedAmount(amount, tx.Kind)

	row := reconcile.Row{Tx: tx, Months: o.months}
	if row.StartDate, err = parseOptionalDay(o.start); err != nil {
		return reconcile.Row{}, fmt.Errorf("--start: %w", err)
	}
	if row.EndDate, err = parseOptionalDay(o.end); err != nil {
		return reconcile.Row{}, fmt.Errorf("--end: %w", err)
	}
	return row, nil
}

func parseDay(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q", s)
	}
	return model.Day(t.Year(), t.Month(), t.Day()), nil
}

func parseOptionalDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseDay(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
