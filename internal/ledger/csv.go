package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/extracto-dev/extracto/internal/model"
)

// Header is the CSV header of a ledger export.
const Header = "id,date,description,amount,category,kind,payment_method,recurring_id,automatic,notes"

const (
	numFields    = 10
	dateFormat   = "2006-01-02"
	colID        = 0
	colDate      = 1
	colDesc      = 2
	colAmount    = 3
	colCategory  = 4
	colKind      = 5
	colMethod    = 6
	colRecurring = 7
	colAutomatic = 8
	colNotes     = 9
)

// WriteCSV writes rows to w (including header).
func WriteCSV(w io.Writer, rows []model.LedgerTransaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, tx := range rows {
		if err := cw.Write(MarshalRow(tx)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalRow converts a transaction to a CSV row.
func MarshalRow(tx model.LedgerTransaction) []string {
	row := make([]string, numFields)
	row[colID] = tx.ID
	row[colDate] = tx.Date.Format(dateFormat)
	row[colDesc] = tx.Description
	row[colAmount] = tx.Amount.StringFixed(2)
	row[colCategory] = string(tx.Category)
	row[colKind] = string(tx.Kind)
	row[colMethod] = string(tx.PaymentMethod)
	row[colRecurring] = tx.RecurringID
	if tx.Automatic {
		row[colAutomatic] = "true"
	} else {
		row[colAutomatic] = "false"
	}
	row[colNotes] = tx.Notes
	return row
}
