package ingest

import (
	"context"

	"github.com/extracto-dev/extracto/internal/matcher"
	"github.com/extracto-dev/extracto/internal/model"
	"github.com/extracto-dev/extracto/internal/normalize"
	"github.com/extracto-dev/extracto/internal/reconcile"
)

// Save stores reviewed rows through the reconciler, then records a
// learning rule for every non-fixed row whose category or kind differs
// from what the classifier would guess. A failure to store rules is
// logged; the rows are already saved.
func (s *Service) Save(ctx context.Context, userID string, rows []reconcile.Row) (reconcile.Summary, error) {
	sum, err := s.saver.Save(ctx, userID, rows)
	if err != nil {
		return sum, err
	}

	rules := s.learn(userID, rows)
	if len(rules) == 0 {
		return sum, nil
	}
	if err := s.store.UpsertLearningRules(ctx, rules); err != nil {
		s.logger.Warn("could not store learning rules", "user", userID, "rules", len(rules), "err", err)
		return sum, nil
	}
	s.logger.Debug("learned corrections", "user", userID, "rules", len(rules))
	return sum, nil
}

func (s *Service) learn(userID string, rows []reconcile.Row) []model.LearningRule {
	var rules []model.LearningRule
	index := make(map[string]int)
	for _, row := range rows {
		if row.Tx.Kind == model.KindFixedExpense {
			continue
		}
		pattern := normalize.Normalize(row.Tx.Description)
		if pattern == "" {
			continue
		}
		guess := s.classifier.Classify(model.ParsedTransaction{
			Description: row.Tx.Description,
			Amount:      row.Tx.Amount,
		})
		if guess.Category == row.Tx.Category && guess.Kind == row.Tx.Kind {
			continue
		}

		rule := model.LearningRule{
			UserID:   userID,
			Pattern:  pattern,
			Category: row.Tx.Category,
			Kind:     row.Tx.Kind,
		}
		if i, ok := index[pattern]; ok {
			rules[i] = rule
			continue
		}
		index[pattern] = len(rules)
		rules = append(rules, rule)
	}
	return rules
}

// ToRows turns reviewed pipeline output into rows to save. Rows are marked
// Automatic and left unlinked; the reconciler resolves templates by
// description.
func ToRows(ms []matcher.Matched) []reconcile.Row {
	rows := make([]reconcile.Row, len(ms))
	for i, m := range ms {
		rows[i] = reconcile.Row{Tx: model.LedgerTransaction{
			Date:        m.Tx.Date,
			Description: m.Tx.Description,
			Amount:      m.Tx.Amount,
			Category:    m.Tx.Category,
			Kind:        m.Tx.Kind,
			Automatic:   true,
		}}
	}
	return rows
}
