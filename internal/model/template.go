package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecurringTemplate is a user-defined recipe for a fixed expense.
type RecurringTemplate struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Description     string          `json:"description"`
	EstimatedAmount decimal.Decimal `json:"estimated_amount"` // always positive
	Category        Category        `json:"category"`
	Months          []int           `json:"months,omitempty"` // empty = every month
	BillingDay      int             `json:"billing_day"`
	Active          bool            `json:"active"`
	StartDate       *time.Time      `json:"start_date,omitempty"`
	EndDate         *time.Time      `json:"end_date,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// AppliesToMonth reports whether the template's month list includes m.
func (t RecurringTemplate) AppliesToMonth(m time.Month) bool {
	if len(t.Months) == 0 {
		return true
	}
	for _, v := range t.Months {
		if v == int(m) {
			return true
		}
	}
	return false
}

// Exclusion skips a template for one month without deleting it.
type Exclusion struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	TemplateID string    `json:"template_id"`
	Month      time.Time `json:"month"` // first day of the month
}

// LearningRule remembers a user's correction of the keyword classifier for a
// normalized description.
type LearningRule struct {
	UserID    string    `json:"user_id"`
	Pattern   string    `json:"pattern"` // normalized description
	Category  Category  `json:"category"`
	Kind      Kind      `json:"kind"`
	UpdatedAt time.Time `json:"updated_at"`
}
