package commands

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/extracto-dev/extracto/internal/apperr"
	"github.com/extracto-dev/extracto/internal/ledger"
	"github.com/extracto-dev/extracto/internal/model"
	"github.com/extracto-dev/extracto/internal/reconcile"
)

func newEditCommand(opts *globalOptions) *cobra.Command {
	var o addOptions

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a stored transaction",
		Long: "Change the fields given as flags and keep the rest. Editing a fixed expense\n" +
			"updates its recurring template and relinks the template's history.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			cur, err := e.store.GetTransaction(cmd.Context(), e.user, args[0])
			if err != nil {
				if errors.Is(err, apperr.ErrNotFound) {
					return fmt.Errorf("transaction %s not found", args[0])
				}
				return err
			}
			row, err := o.apply(cmd, cur)
			if err != nil {
				return err
			}

			sum, err := e.rec.Update(cmd.Context(), e.user, args[0], row)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %s on %s (%s, %s)\n",
				row.Tx.Description, row.Tx.Amount.StringFixed(2), row.Tx.Date.Format("2006-01-02"),
				row.Tx.Category, row.Tx.Kind)
			if sum.TemplatesCreated > 0 || sum.TemplatesUpdated > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Recurring template updated, %d transactions relinked.\n", sum.Relinked)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.date, "date", "", "transaction date, YYYY-MM-DD")
	f.StringVar(&o.description, "description", "", "description")
	f.StringVar(&o.amount, "amount", "", "amount; the sign follows the kind")
	f.StringVar(&o.category, "category", "", "category")
	f.StringVar(&o.kind, "kind", "", "fixed_expense, variable_expense, income or investment")
	f.StringVar(&o.paymentMethod, "payment-method", "", "card, cash, transfer, bizum or direct_debit")
	f.StringVar(&o.notes, "notes", "", "free-form notes")
	f.StringVar(&o.template, "template", "", "recurring template id to link")
	f.IntSliceVar(&o.months, "months", nil, "months a fixed expense applies to, e.g. 1,4,7,10")
	f.StringVar(&o.start, "start", "", "template start date, YYYY-MM-DD")
	f.StringVar(&o.end, "end", "", "template end date, YYYY-MM-DD")

	return cmd
}

// apply overlays the flags set on cmd onto cur.
func (o addOptions) apply(cmd *cobra.Command, cur model.LedgerTransaction) (reconcile.Row, error) {
	f := cmd.Flags()
	tx := cur
	if f.Changed("date") {
		d, err := parseDay(o.date)
		if err != nil {
			return reconcile.Row{}, fmt.Errorf("--date: %w", err)
		}
		tx.Date = d
	}
	if f.Changed("description") {
		tx.Description = o.description
	}
	if f.Changed("amount") {
		amount, err := decimal.NewFromString(o.amount)
		if err != nil {
			return reconcile.Row{}, fmt.Errorf("--amount: %w", err)
		}
		tx.Amount = amount
	}
	if f.Changed("category") {
		tx.Category = model.Category(o.category)
	}
	if f.Changed("kind") {
		tx.Kind = model.Kind(o.kind)
	}
	if f.Changed("payment-method") {
		tx.PaymentMethod = model.PaymentMethod(o.paymentMethod)
	}
	if f.Changed("notes") {
		tx.Notes = o.notes
	}
	if f.Changed("template") {
		tx.RecurringID = o.template
	}
	if tx.Kind != model.KindFixedExpense {
		tx.RecurringID = ""
	}
	tx.Amount = ledger.SignedAmount(tx.Amount, tx.Kind)

	row := reconcile.Row{Tx: tx, Months: o.months}
	var err error
	if row.StartDate, err = parseOptionalDay(o.start); err != nil {
		return reconcile.Row{}, fmt.Errorf("--start: %w", err)
	}
	if row.EndDate, err = parseOptionalDay(o.end); err != nil {
		return reconcile.Row{}, fmt.Errorf("--end: %w", err)
	}
	return row, nil
}
