package ledger

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/extracto-dev/extracto/internal/apperr"
	"github.com/extracto-dev/extracto/internal/model"
	"github.com/extracto-dev/extracto/internal/store"
)

// MonthStat totals one calendar month.
type MonthStat struct {
	Month       time.Time // first day of the month
	Income      decimal.Decimal
	Expenses    decimal.Decimal
	Investments decimal.Decimal
}

// Savings is Income minus Expenses.
func (m MonthStat) Savings() decimal.Decimal { return m.Income.Sub(m.Expenses) }

// SavingsRate returns Savings as a share of Income, zero without income.
func (m MonthStat) SavingsRate() decimal.Decimal {
	return Summary{Income: m.Income, Savings: m.Savings()}.SavingsRate()
}

// CategoryStat is the expense total of one category.
type CategoryStat struct {
	Category model.Category
	Total    decimal.Decimal
}

// Goals are the user's savings targets.
type Goals struct {
	// SavingsRate is the share of income to keep, between 0 and 1.
	SavingsRate     decimal.Decimal
	EmergencyTarget decimal.Decimal
	EmergencySaved  decimal.Decimal
}

// SavingsTarget returns the savings the goal asks for on income.
func (g Goals) SavingsTarget(income decimal.Decimal) decimal.Decimal {
	return income.Mul(g.SavingsRate)
}

// EmergencyProgress returns the saved share of the emergency fund target,
// zero when no target is set.
func (g Goals) EmergencyProgress() decimal.Decimal {
	if !g.EmergencyTarget.IsPositive() {
		return decimal.Zero
	}
	return g.EmergencySaved.Div(g.EmergencyTarget)
}

// SavingsRate returns Savings as a share of Income, zero without income.
func (s Summary) SavingsRate() decimal.Decimal {
	if !s.Income.IsPositive() {
		return decimal.Zero
	}
	return s.Savings.Div(s.Income)
}

// MonthlyStats totals rows for count consecutive months starting with the
// month containing first. Months without rows are zero.
func MonthlyStats(rows []model.LedgerTransaction, first time.Time, count int) []MonthStat {
	byMonth := make(map[string][]model.LedgerTransaction)
	for _, tx := range rows {
		k := tx.Date.Format("2006-01")
		byMonth[k] = append(byMonth[k], tx)
	}

	start := model.MonthStart(first)
	out := make([]MonthStat, count)
	for i := range out {
		m := start.AddDate(0, i, 0)
		s := Summarize(byMonth[m.Format("2006-01")])
		out[i] = MonthStat{Month: m, Income: s.Income, Expenses: s.Expenses, Investments: s.Investments}
	}
	return out
}

// CategoryTotals returns expense totals per category, largest first. Ties
// keep the display order of model.Categories.
func CategoryTotals(rows []model.LedgerTransaction) []CategoryStat {
	sum := Summarize(rows)
	out := make([]CategoryStat, 0, len(sum.ByCategory))
	for _, c := range model.Categories {
		if total, ok := sum.ByCategory[c]; ok {
			out = append(out, CategoryStat{Category: c, Total: total})
		}
	}
	slices.SortStableFunc(out, func(a, b CategoryStat) int {
		return b.Total.Cmp(a.Total)
	})
	return out
}

// YearlyStats returns one MonthStat per month of year.
func (s *Service) YearlyStats(ctx context.Context, userID string, year int) ([]MonthStat, error) {
	from := model.Day(year, time.January, 1)
	to := model.Day(year, time.December, 31)
	rows, err := s.store.FindTransactions(ctx, store.TxFilter{UserID: userID, From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	return MonthlyStats(rows, from, 12), nil
}

// TrailingStats returns the n months ending with the month containing end,
// oldest first.
func (s *Service) TrailingStats(ctx context.Context, userID string, end time.Time, n int) ([]MonthStat, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: month count must be positive, got %d", apperr.ErrInvalidInput, n)
	}
	from := model.MonthStart(end).AddDate(0, -(n - 1), 0)
	to := model.MonthEnd(end)
	rows, err := s.store.FindTransactions(ctx, store.TxFilter{UserID: userID, From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	return MonthlyStats(rows, from, n), nil
}

// CategoryStats returns expense totals per category between from and to,
// inclusive, largest first.
func (s *Service) CategoryStats(ctx context.Context, userID string, from, to time.Time) ([]CategoryStat, error) {
	rows, err := s.store.FindTransactions(ctx, store.TxFilter{UserID: userID, From: &from, To: &to})
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	return CategoryTotals(rows), nil
}

// Totals sums a run of months.
func Totals(stats []MonthStat) MonthStat {
	var t MonthStat
	for _, m := range stats {
		t.Income = t.Income.Add(m.Income)
		t.Expenses = t.Expenses.Add(m.Expenses)
		t.Investments = t.Investments.Add(m.Investments)
	}
	if len(stats) > 0 {
		t.Month = stats[0].Month
	}
	return t
}
