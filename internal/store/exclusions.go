package store

import (
	"context"
	"fmt"
	"time"

	"github.com/extracto-dev/extracto/internal/id"
	"github.com/extracto-dev/extracto/internal/model"
)

// FindExclusions returns the user's exclusions for month, or all of them
// when month is zero.
func (s *Store) FindExclusions(ctx context.Context, userID string, month time.Time) ([]model.Exclusion, error) {
	query := "SELECT id, user_id, template_id, month FROM exclusions WHERE user_id = ?"
	args := []any{userID}
	if !month.IsZero() {
		query += " AND month = ?"
		args = append(args, formatDay(model.MonthStart(month)))
	}
	query += " ORDER BY month, template_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying exclusions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Exclusion
	for rows.Next() {
		var (
			e model.Exclusion
			m string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.TemplateID, &m); err != nil {
			return nil, fmt.Errorf("scanning exclusion: %w", err)
		}
		if e.Month, err = parseDay(m); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating exclusions: %w", err)
	}
	return out, nil
}

// InsertExclusion records that a template is skipped for e.Month. The month
// is truncated to its first day. Excluding the same month twice is a no-op.
func (s *Store) InsertExclusion(ctx context.Context, e model.Exclusion) (model.Exclusion, error) {
	if _, err := s.GetTemplate(ctx, e.UserID, e.TemplateID); err != nil {
		return e, err
	}
	if e.ID == "" {
		e.ID = id.New()
	}
	e.Month = model.MonthStart(e.Month)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exclusions (id, user_id, template_id, month) VALUES (?, ?, ?, ?)
		ON CONFLICT (template_id, month) DO NOTHING`,
		e.ID, e.UserID, e.TemplateID, formatDay(e.Month))
	if err != nil {
		return e, fmt.Errorf("inserting exclusion: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM exclusions WHERE template_id = ? AND month = ?",
		e.TemplateID, formatDay(e.Month)).Scan(&e.ID)
	if err != nil {
		return e, fmt.Errorf("reading exclusion: %w", err)
	}
	return e, nil
}

// MoveExclusions re-points the user's exclusions from one template to
// another. Months the target already excludes stay on from and go away with
// it.
func (s *Store) MoveExclusions(ctx context.Context, userID, from, to string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE OR IGNORE exclusions SET template_id = ? WHERE user_id = ? AND template_id = ?",
		to, userID, from)
	if err != nil {
		return 0, fmt.Errorf("moving exclusions from %s to %s: %w", from, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting moved exclusions: %w", err)
	}
	return n, nil
}
