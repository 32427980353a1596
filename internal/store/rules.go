package store

import (
	"context"
	"fmt"
	"time"

	"github.com/extracto-dev/extracto/internal/model"
)

// FindLearningRules returns the user's learning rules ordered by pattern.
func (s *Store) FindLearningRules(ctx context.Context, userID string) ([]model.LearningRule, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, pattern, category, kind, updated_at FROM learning_rules WHERE user_id = ? ORDER BY pattern",
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying learning rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.LearningRule
	for rows.Next() {
		var (
			r                       model.LearningRule
			category, kind, updated string
		)
		if err := rows.Scan(&r.UserID, &r.Pattern, &category, &kind, &updated); err != nil {
			return nil, fmt.Errorf("scanning learning rule: %w", err)
		}
		if r.UpdatedAt, err = parseStamp(updated); err != nil {
			return nil, err
		}
		r.Category = model.Category(category)
		r.Kind = model.Kind(kind)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating learning rules: %w", err)
	}
	return out, nil
}

// UpsertLearningRules inserts rules, replacing category and kind of any
// existing rule with the same (user_id, pattern).
func (s *Store) UpsertLearningRules(ctx context.Context, rules []model.LearningRule) error {
	if len(rules) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning rule upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UTC().Format(time.RFC3339Nano)
	for _, r := range rules {
		_, err := tx.ExecContext(ctx, `INSERT INTO learning_rules (user_id, pattern, category, kind, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (user_id, pattern) DO UPDATE SET
				category = excluded.category, kind = excluded.kind, updated_at = excluded.updated_at`,
			r.UserID, r.Pattern, string(r.Category), string(r.Kind), now)
		if err != nil {
			return fmt.Errorf("upserting rule %q: %w", r.Pattern, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing rule upsert: %w", err)
	}
	return nil
}
