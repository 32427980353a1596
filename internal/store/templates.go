package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/extracto-dev/extracto/internal/apperr"
	"github.com/extracto-dev/extracto/internal/id"
	"github.com/extracto-dev/extracto/internal/model"
)

// TemplateFilter selects recurring templates.
type TemplateFilter struct {
	UserID     string
	ActiveOnly bool
}

const templateColumns = `id, user_id, description, estimated_amount, category, months, billing_day,
	active, start_date, end_date, created_at`

// FindTemplates returns the user's templates ordered by billing day, then
// description.
func (s *Store) FindTemplates(ctx context.Context, f TemplateFilter) ([]model.RecurringTemplate, error) {
	if f.UserID == "" {
		return nil, fmt.Errorf("finding templates: %w: empty user id", apperr.ErrInvalidInput)
	}
	query := "SELECT " + templateColumns + " FROM recurring_templates WHERE user_id = ?"
	if f.ActiveOnly {
		query += " AND active = 1"
	}
	query += " ORDER BY billing_day, description, id"

	rows, err := s.db.QueryContext(ctx, query, f.UserID)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.RecurringTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating templates: %w", err)
	}
	return out, nil
}

// GetTemplate returns one of the user's templates.
func (s *Store) GetTemplate(ctx context.Context, userID, templateID string) (model.RecurringTemplate, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+templateColumns+" FROM recurring_templates WHERE user_id = ? AND id = ?", userID, templateID)
	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RecurringTemplate{}, fmt.Errorf("template %s: %w", templateID, apperr.ErrNotFound)
		}
		return model.RecurringTemplate{}, err
	}
	return t, nil
}

// InsertTemplate stores a new template, assigning an id if missing.
func (s *Store) InsertTemplate(ctx context.Context, t model.RecurringTemplate) (model.RecurringTemplate, error) {
	if t.UserID == "" {
		return t, fmt.Errorf("inserting template: %w: empty user id", apperr.ErrInvalidInput)
	}
	if t.ID == "" {
		t.ID = id.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now().UTC()
	}
	months, err := encodeMonths(t.Months)
	if err != nil {
		return t, err
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO recurring_templates (`+templateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Description, t.EstimatedAmount.String(), string(t.Category), months,
		t.BillingDay, boolInt(t.Active), formatDayPtr(t.StartDate), formatDayPtr(t.EndDate),
		t.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return t, fmt.Errorf("inserting template %s: %w", t.Description, err)
	}
	return t, nil
}

// UpdateTemplate overwrites every mutable field of t.
func (s *Store) UpdateTemplate(ctx context.Context, t model.RecurringTemplate) error {
	months, err := encodeMonths(t.Months)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE recurring_templates
		SET description = ?, estimated_amount = ?, category = ?, months = ?, billing_day = ?,
			active = ?, start_date = ?, end_date = ?
		WHERE user_id = ? AND id = ?`,
		t.Description, t.EstimatedAmount.String(), string(t.Category), months, t.BillingDay,
		boolInt(t.Active), formatDayPtr(t.StartDate), formatDayPtr(t.EndDate),
		t.UserID, t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating template %s: %w", t.ID, err)
	}
	return expectRow(res, "template", t.ID)
}

// DeleteTemplate removes a template and its exclusions. Transactions still
// linked to it are unlinked.
func (s *Store) DeleteTemplate(ctx context.Context, userID, templateID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning template delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"UPDATE transactions SET recurring_id = NULL WHERE user_id = ? AND recurring_id = ?",
		userID, templateID); err != nil {
		return fmt.Errorf("unlinking transactions from %s: %w", templateID, err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM recurring_templates WHERE user_id = ? AND id = ?", userID, templateID)
	if err != nil {
		return fmt.Errorf("deleting template %s: %w", templateID, err)
	}
	if err := expectRow(res, "template", templateID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing template delete: %w", err)
	}
	return nil
}

// RelinkTransactions moves every transaction linked to template from onto
// template to and returns how many moved.
func (s *Store) RelinkTransactions(ctx context.Context, userID, from, to string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE transactions SET recurring_id = ?, updated_at = ? WHERE user_id = ? AND recurring_id = ?",
		to, s.stamp(), userID, from)
	if err != nil {
		return 0, fmt.Errorf("relinking %s to %s: %w", from, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting relinked transactions: %w", err)
	}
	return n, nil
}

func scanTemplate(r rowScanner) (model.RecurringTemplate, error) {
	var (
		t                  model.RecurringTemplate
		amount, category   string
		months, createdAt  string
		active             int
		startDate, endDate sql.NullString
	)
	if err := r.Scan(&t.ID, &t.UserID, &t.Description, &amount, &category, &months, &t.BillingDay,
		&active, &startDate, &endDate, &createdAt); err != nil {
		return t, fmt.Errorf("scanning template: %w", err)
	}

	var err error
	if t.EstimatedAmount, err = parseAmount(amount); err != nil {
		return t, err
	}
	if err := json.Unmarshal([]byte(months), &t.Months); err != nil {
		return t, fmt.Errorf("decoding months of template %s: %w", t.ID, err)
	}
	if t.StartDate, err = parseDayPtr(startDate); err != nil {
		return t, err
	}
	if t.EndDate, err = parseDayPtr(endDate); err != nil {
		return t, err
	}
	if t.CreatedAt, err = parseStamp(createdAt); err != nil {
		return t, err
	}
	t.Category = model.Category(category)
	t.Active = active != 0
	return t, nil
}

func encodeMonths(months []int) (string, error) {
	if months == nil {
		months = []int{}
	}
	b, err := json.Marshal(months)
	if err != nil {
		return "", fmt.Errorf("encoding months: %w", err)
	}
	return string(b), nil
}
