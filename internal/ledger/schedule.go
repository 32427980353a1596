package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/extracto-dev/extracto/internal/model"
)

// Applicable returns the active templates due in month: the month is in the
// template's month list, no exclusion exists for it, and the month overlaps
// the template's start/end window.
func Applicable(templates []model.RecurringTemplate, exclusions []model.Exclusion, month time.Time) []model.RecurringTemplate {
	start := model.MonthStart(month)
	end := model.MonthEnd(month)

	excluded := make(map[string]bool)
	for _, e := range exclusions {
		if model.SameMonth(e.Month, start) {
			excluded[e.TemplateID] = true
		}
	}

	var out []model.RecurringTemplate
	for _, t := range templates {
		switch {
		case !t.Active:
		case !t.AppliesToMonth(start.Month()):
		case excluded[t.ID]:
		case t.StartDate != nil && t.StartDate.After(end):
		case t.EndDate != nil && t.EndDate.Before(start):
		default:
			out = append(out, t)
		}
	}
	return out
}

// Summary aggregates a period's transactions. All figures are positive
// magnitudes.
type Summary struct {
	Income      decimal.Decimal
	Expenses    decimal.Decimal
	Investments decimal.Decimal

	// Savings is Income minus Expenses. Investments are money kept, not
	// money spent.
	Savings decimal.Decimal

	// ByCategory holds expense totals per category.
	ByCategory map[model.Category]decimal.Decimal

	// Pending is the estimated total of applicable templates with no linked
	// transaction yet.
	Pending decimal.Decimal
}

// Summarize totals rows. Investment is recognised by kind or category;
// everything that is neither income nor investment is an expense.
func Summarize(rows []model.LedgerTransaction) Summary {
	s := Summary{ByCategory: make(map[model.Category]decimal.Decimal)}
	for _, tx := range rows {
		amt := tx.Amount.Abs()
		switch {
		case tx.Kind == model.KindIncome:
			s.Income = s.Income.Add(amt)
		case tx.Kind == model.KindInvestment || tx.Category == model.CategoryInvestment:
			s.Investments = s.Investments.Add(amt)
		default:
			s.Expenses = s.Expenses.Add(amt)
			s.ByCategory[tx.Category] = s.ByCategory[tx.Category].Add(amt)
		}
	}
	s.Savings = s.Income.Sub(s.Expenses)
	return s
}

// Pending returns the applicable templates that no row links to.
func Pending(applicable []model.RecurringTemplate, rows []model.LedgerTransaction) []model.RecurringTemplate {
	linked := make(map[string]bool)
	for _, tx := range rows {
		if tx.RecurringID != "" {
			linked[tx.RecurringID] = true
		}
	}
	var out []model.RecurringTemplate
	for _, t := range applicable {
		if !linked[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

// SignedAmount returns amount with the sign implied by kind: income is
// positive, everything else is an outflow.
func SignedAmount(amount decimal.Decimal, kind model.Kind) decimal.Decimal {
	if kind == model.KindIncome {
		return amount.Abs()
	}
	return amount.Abs().Neg()
}
