package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extracto-dev/extracto/internal/apperr"
	"github.com/extracto-dev/extracto/internal/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func date(y int, m time.Month, d int) time.Time {
	return model.Day(y, m, d)
}

func validRow() model.LedgerTransaction {
	return model.LedgerTransaction{
		Date:          date(2024, 3, 5),
		Description:   "MERCADONA",
		Amount:        dec("-62.47"),
		Category:      model.CategorySupermarket,
		Kind:          model.KindVariableExpense,
		PaymentMethod: model.PaymentCard,
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.Empty(t, Validate(1, validRow()))

	noMethod := validRow()
	noMethod.PaymentMethod = ""
	assert.Empty(t, Validate(1, noMethod))
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*model.LedgerTransaction)
		field string
	}{
		{"short description", func(tx *model.LedgerTransaction) { tx.Description = " a " }, "description"},
		{"zero amount", func(tx *model.LedgerTransaction) { tx.Amount = decimal.Zero }, "amount"},
		{"sub-cent amount", func(tx *model.LedgerTransaction) { tx.Amount = dec("0.004") }, "amount"},
		{"missing date", func(tx *model.LedgerTransaction) { tx.Date = time.Time{} }, "date"},
		{"bad category", func(tx *model.LedgerTransaction) { tx.Category = "groceries" }, "category"},
		{"bad kind", func(tx *model.LedgerTransaction) { tx.Kind = "expense" }, "kind"},
		{"bad payment method", func(tx *model.LedgerTransaction) { tx.PaymentMethod = "cheque" }, "payment_method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := validRow()
			tt.edit(&tx)
			errs := Validate(3, tx)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Equal(t, 3, errs[0].Row)
		})
	}
}

func TestValidateSchedule(t *testing.T) {
	assert.Empty(t, ValidateSchedule(1, []int{1, 6, 12}, 31))
	assert.Empty(t, ValidateSchedule(1, nil, 0))

	errs := ValidateSchedule(1, []int{0, 13}, 32)
	assert.Len(t, errs, 3)
}

func TestAsError(t *testing.T) {
	assert.NoError(t, AsError(nil))

	err := AsError([]ValidationError{{Row: 2, Field: "amount", Description: "too small"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Contains(t, err.Error(), "row 2 [amount]: too small")
}
