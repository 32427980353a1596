package dedup

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extracto-dev/extracto/internal/matcher"
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

func parsed(d time.Time, desc, amount string, kind model.Kind) matcher.Matched {
	return matcher.Matched{Tx: model.ParsedTransaction{
		Date:        d,
		Description: desc,
		Amount:      dec(amount),
		Category:    model.CategoryOther,
		Kind:        kind,
	}}
}

func stored(d time.Time, desc, amount string, kind model.Kind) model.LedgerTransaction {
	return model.LedgerTransaction{
		ID:          desc,
		Date:        d,
		Description: desc,
		Amount:      dec(amount),
		Kind:        kind,
	}
}

func TestIsDuplicate_RuleA(t *testing.T) {
	existing := []model.LedgerTransaction{
		stored(date(2024, 3, 5), "Mercadona Valencia", "-62.47", model.KindVariableExpense),
	}

	tests := []struct {
		name string
		m    matcher.Matched
		want bool
	}{
		{"exact", parsed(date(2024, 3, 5), "MERCADONA VALENCIA ", "-62.47", model.KindVariableExpense), true},
		{"case and spaces", parsed(date(2024, 3, 5), "mercadona valencia", "-62.47", model.KindVariableExpense), true},
		{"one cent off", parsed(date(2024, 3, 5), "MERCADONA VALENCIA", "-62.46", model.KindVariableExpense), true},
		{"other day", parsed(date(2024, 3, 6), "MERCADONA VALENCIA", "-62.47", model.KindVariableExpense), false},
		{"other amount", parsed(date(2024, 3, 5), "MERCADONA VALENCIA", "-62.45", model.KindVariableExpense), false},
		{"similar but not identical", parsed(date(2024, 3, 5), "MERCADONA", "-62.47", model.KindVariableExpense), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDuplicate(tt.m, existing))
		})
	}
}

func TestIsDuplicate_RefundIsNotDuplicate(t *testing.T) {
	existing := []model.LedgerTransaction{
		stored(date(2024, 3, 5), "AMAZON MKTP", "-29.99", model.KindVariableExpense),
	}
	assert.False(t, IsDuplicate(parsed(date(2024, 3, 5), "AMAZON MKTP", "29.99", model.KindIncome), existing))
	assert.True(t, IsDuplicate(parsed(date(2024, 3, 5), "AMAZON MKTP", "-29.99", model.KindVariableExpense), existing))
}

func TestIsDuplicate_MonthlyFixed(t *testing.T) {
	existing := []model.LedgerTransaction{
		stored(date(2024, 3, 2), "VODAFONE ESPAÑA", "-35.00", model.KindFixedExpense),
	}

	m := parsed(date(2024, 3, 28), "VODAFONE", "-35.00", model.KindFixedExpense)
	assert.True(t, IsDuplicate(m, existing))

	r := Partition([]matcher.Matched{m}, existing)
	assert.Empty(t, r.ToImport)
	require.Len(t, r.Duplicates, 1)
	assert.Equal(t, "VODAFONE", r.Duplicates[0].Tx.Description)
}

func TestIsDuplicate_MonthlyFixed_Boundaries(t *testing.T) {
	existing := []model.LedgerTransaction{
		stored(date(2024, 3, 2), "VODAFONE ESPAÑA", "-35.00", model.KindVariableExpense),
	}

	// Next month is not a duplicate.
	assert.False(t, IsDuplicate(parsed(date(2024, 4, 2), "VODAFONE", "-35.00", model.KindFixedExpense), existing))
	// Variable expenses only use rule A.
	assert.False(t, IsDuplicate(parsed(date(2024, 3, 20), "VODAFONE", "-35.00", model.KindVariableExpense), existing))
	// Different amount.
	assert.False(t, IsDuplicate(parsed(date(2024, 3, 20), "VODAFONE", "-36.00", model.KindFixedExpense), existing))
	// Within tolerance, bound included.
	assert.True(t, IsDuplicate(parsed(date(2024, 3, 20), "VODAFONE", "-35.005", model.KindFixedExpense), existing))
	assert.True(t, IsDuplicate(parsed(date(2024, 3, 20), "VODAFONE", "-34.99", model.KindFixedExpense), existing))
	// Rule B compares absolute amounts.
	assert.True(t, IsDuplicate(parsed(date(2024, 3, 20), "VODAFONE", "35.00", model.KindFixedExpense), existing))
}

func TestIsDuplicate_ViaTemplate(t *testing.T) {
	existing := []model.LedgerTransaction{
		stored(date(2024, 3, 1), "CUOTA GIMNASIO SPORT", "-39.90", model.KindVariableExpense),
	}
	m := parsed(date(2024, 3, 30), "RECIBO GYM SC", "-39.90", model.KindFixedExpense)
	assert.False(t, IsDuplicate(m, existing))

	m.Template = &model.RecurringTemplate{ID: "t1", Description: "Gimnasio Sport"}
	assert.True(t, IsDuplicate(m, existing))
}

func TestIsDuplicate_BothFixed(t *testing.T) {
	existing := []model.LedgerTransaction{
		stored(date(2024, 3, 1), "PRESTAMO COCHE", "-120.00", model.KindFixedExpense),
	}
	m := parsed(date(2024, 3, 15), "CETELEM", "-120.00", model.KindFixedExpense)
	assert.True(t, IsDuplicate(m, existing))
}

func TestPartition_Reimport(t *testing.T) {
	batch := []matcher.Matched{
		parsed(date(2024, 3, 1), "NOMINA ACME", "2100.00", model.KindIncome),
		parsed(date(2024, 3, 5), "MERCADONA", "-62.47", model.KindVariableExpense),
		parsed(date(2024, 3, 7), "CUOTA PTMO HIPOTECA", "-450.00", model.KindFixedExpense),
	}

	first := Partition(batch, nil)
	require.Len(t, first.ToImport, 3)
	assert.Empty(t, first.Duplicates)

	var saved []model.LedgerTransaction
	for _, m := range first.ToImport {
		saved = append(saved, model.LedgerTransaction{
			Date:        m.Tx.Date,
			Description: m.Tx.Description,
			Amount:      m.Tx.Amount,
			Kind:        m.Tx.Kind,
		})
	}

	second := Partition(batch, saved)
	assert.Empty(t, second.ToImport)
	assert.Len(t, second.Duplicates, 3)
}
