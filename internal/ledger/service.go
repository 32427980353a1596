// Package ledger holds the operations on stored transactions outside the
// import pipeline: validation, monthly schedules, summaries, export, and
// reset.
package ledger

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/extracto-dev/extracto/internal/model"
	"github.com/extracto-dev/extracto/internal/store"
)

// Store is the subset of the record store the ledger service needs.
type Store interface {
	FindTransactions(ctx context.Context, f store.TxFilter) ([]model.LedgerTransaction, error)
	DeleteAllTransactions(ctx context.Context, userID string) (int64, error)
	FindTemplates(ctx context.Context, f store.TemplateFilter) ([]model.RecurringTemplate, error)
	FindExclusions(ctx context.Context, userID string, month time.Time) ([]model.Exclusion, error)
	InsertExclusion(ctx context.Context, e model.Exclusion) (model.Exclusion, error)
}

// Service provides ledger operations for one store.
type Service struct {
	store  Store
	logger *log.Logger
}

// NewService creates a ledger Service.
func NewService(s Store, logger *log.Logger) *Service {
	return &Service{store: s, logger: logger}
}

// Exclude skips a template for the month containing month.
func (s *Service) Exclude(ctx context.Context, userID, templateID string, month time.Time) (model.Exclusion, error) {
	e, err := s.store.InsertExclusion(ctx, model.Exclusion{
		UserID:     userID,
		TemplateID: templateID,
		Month:      model.MonthStart(month),
	})
	if err != nil {
		return e, fmt.Errorf("excluding template %s: %w", templateID, err)
	}
	s.logger.Info("template excluded", "user", userID, "template", templateID, "month", e.Month.Format("2006-01"))
	return e, nil
}

// Due returns the templates applicable to the month containing month.
func (s *Service) Due(ctx context.Context, userID string, month time.Time) ([]model.RecurringTemplate, error) {
	templates, err := s.store.FindTemplates(ctx, store.TemplateFilter{UserID: userID, ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	exclusions, err := s.store.FindExclusions(ctx, userID, month)
	if err != nil {
		return nil, fmt.Errorf("loading exclusions: %w", err)
	}
	return Applicable(templates, exclusions, month), nil
}

// MonthSummary summarizes the month containing month, including the
// estimated total of due templates still unpaid.
func (s *Service) MonthSummary(ctx context.Context, userID string, month time.Time) (Summary, error) {
	from, to := model.MonthStart(month), model.MonthEnd(month)
	rows, err := s.store.FindTransactions(ctx, store.TxFilter{UserID: userID, From: &from, To: &to})
	if err != nil {
		return Summary{}, fmt.Errorf("loading transactions: %w", err)
	}
	due, err := s.Due(ctx, userID, month)
	if err != nil {
		return Summary{}, err
	}

	sum := Summarize(rows)
	for _, t := range Pending(due, rows) {
		sum.Pending = sum.Pending.Add(t.EstimatedAmount)
	}
	return sum, nil
}

// Export writes the user's transactions between from and to (inclusive,
// either may be nil) as CSV.
func (s *Service) Export(ctx context.Context, w io.Writer, userID string, from, to *time.Time) (int, error) {
	rows, err := s.store.FindTransactions(ctx, store.TxFilter{UserID: userID, From: from, To: to})
	if err != nil {
		return 0, fmt.Errorf("loading transactions: %w", err)
	}
	if err := WriteCSV(w, rows); err != nil {
		return 0, fmt.Errorf("writing export: %w", err)
	}
	return len(rows), nil
}

// Reset deletes every transaction of the user. Templates are kept.
func (s *Service) Reset(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.DeleteAllTransactions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("resetting ledger: %w", err)
	}
	s.logger.Warn("ledger reset", "user", userID, "deleted", n)
	return n, nil
}
