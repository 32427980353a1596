package ledger

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/extracto-dev/extracto/internal/apperr"
	"github.com/extracto-dev/extracto/internal/model"
)

// MinAmount is the smallest absolute amount a transaction may carry.
var MinAmount = decimal.New(1, -2)

// ValidationError describes a single rule violation on one row.
type ValidationError struct {
	Row         int
	Field       string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("row %d [%s]: %s", e.Row, e.Field, e.Description)
}

// Validate checks a ledger row before it is stored. row is the position
// reported in errors.
func Validate(row int, tx model.LedgerTransaction) []ValidationError {
	var errs []ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Row: row, Field: field, Description: fmt.Sprintf(format, args...)})
	}

	if utf8.RuneCountInString(strings.TrimSpace(tx.Description)) < 2 {
		add("description", "must be at least 2 characters")
	}
	if tx.Amount.Abs().LessThan(MinAmount) {
		add("amount", "absolute amount %s is below %s", tx.Amount, MinAmount)
	}
	if tx.Date.IsZero() {
		add("date", "missing")
	}
	if !tx.Category.Valid() {
		add("category", "unknown category %q", tx.Category)
	}
	if !tx.Kind.Valid() {
		add("kind", "unknown kind %q", tx.Kind)
	}
	if tx.PaymentMethod != "" && !tx.PaymentMethod.Valid() {
		add("payment_method", "unknown payment method %q", tx.PaymentMethod)
	}
	return errs
}

// ValidateSchedule checks the recurrence fields a form may attach to a
// fixed expense.
func ValidateSchedule(row int, months []int, billingDay int) []ValidationError {
	var errs []ValidationError
	for _, m := range months {
		if m < 1 || m > 12 {
			errs = append(errs, ValidationError{Row: row, Field: "months", Description: fmt.Sprintf("month %d outside 1-12", m)})
		}
	}
	if billingDay < 0 || billingDay > 31 {
		errs = append(errs, ValidationError{Row: row, Field: "billing_day", Description: fmt.Sprintf("day %d outside 1-31", billingDay)})
	}
	return errs
}

// AsError joins validation errors into one error wrapping
// apperr.ErrInvalidInput, or returns nil when errs is empty.
func AsError(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, ve := range errs {
		msgs[i] = ve.Error()
	}
	return fmt.Errorf("validation failed: %s: %w", strings.Join(msgs, "; "), apperr.ErrInvalidInput)
}
