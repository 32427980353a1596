package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Day returns the calendar date pinned to 12:00 UTC so that no timezone
// conversion can move it to a neighbouring day.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of t's month, pinned like Day.
func MonthStart(t time.Time) time.Time {
	return Day(t.Year(), t.Month(), 1)
}

// MonthEnd returns the last day of t's month, pinned like Day.
func MonthEnd(t time.Time) time.Time {
	return Day(t.Year(), t.Month()+1, 0)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// SameMonth reports whether a and b fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// ParsedTransaction is one transaction extracted from a statement line.
type ParsedTransaction struct {
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"` // negative = outflow, positive = inflow
	Category    Category        `json:"category"`
	Kind        Kind            `json:"kind"`
}

// LedgerTransaction is a persisted financial event.
type LedgerTransaction struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	Category      Category        `json:"category"`
	Kind          Kind            `json:"kind"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Notes         string          `json:"notes,omitempty"`
	RecurringID   string          `json:"recurring_id,omitempty"` // back-link to a RecurringTemplate
	Automatic     bool            `json:"automatic"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
