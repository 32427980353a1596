package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/extracto-dev/extracto/internal/apperr"
	"github.com/extracto-dev/extracto/internal/id"
	"github.com/extracto-dev/extracto/internal/model"
)

// TxFilter selects ledger transactions. UserID is required; the other
// fields are optional.
type TxFilter struct {
	UserID      string
	From        *time.Time // inclusive day
	To          *time.Time // inclusive day
	Kind        model.Kind
	RecurringID string
}

// TxPatch lists the fields to change on a transaction. Nil fields are left
// untouched.
type TxPatch struct {
	Date          *time.Time
	Description   *string
	Amount        *decimal.Decimal
	Category      *model.Category
	Kind          *model.Kind
	PaymentMethod *model.PaymentMethod
	RecurringID   *string
	Notes         *string
}

const txColumns = `id, user_id, date, description, amount, category, kind, payment_method,
	notes, recurring_id, automatic, created_at, updated_at`

// FindTransactions returns transactions matching f, oldest first.
func (s *Store) FindTransactions(ctx context.Context, f TxFilter) ([]model.LedgerTransaction, error) {
	if f.UserID == "" {
		return nil, fmt.Errorf("finding transactions: %w: empty user id", apperr.ErrInvalidInput)
	}

	where := []string{"user_id = ?"}
	args := []any{f.UserID}
	if f.From != nil {
		where = append(where, "date >= ?")
		args = append(args, formatDay(*f.From))
	}
	if f.To != nil {
		where = append(where, "date <= ?")
		args = append(args, formatDay(*f.To))
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.RecurringID != "" {
		where = append(where, "recurring_id = ?")
		args = append(args, f.RecurringID)
	}

	query := "SELECT " + txColumns + " FROM transactions WHERE " + strings.Join(where, " AND ") +
		" ORDER BY date, created_at, id"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.LedgerTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}
	return out, nil
}

// GetTransaction returns one of the user's transactions.
func (s *Store) GetTransaction(ctx context.Context, userID, txID string) (model.LedgerTransaction, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+txColumns+" FROM transactions WHERE user_id = ? AND id = ?", userID, txID)
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.LedgerTransaction{}, fmt.Errorf("transaction %s: %w", txID, apperr.ErrNotFound)
		}
		return model.LedgerTransaction{}, err
	}
	return tx, nil
}

// InsertTransactions inserts rows in one SQL transaction: either every row
// is stored or none is. Missing ids and timestamps are filled in and the
// stored rows are returned.
func (s *Store) InsertTransactions(ctx context.Context, rows []model.LedgerTransaction) ([]model.LedgerTransaction, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions (`+txColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := s.now().UTC()
	out := make([]model.LedgerTransaction, 0, len(rows))
	for i, r := range rows {
		if r.UserID == "" {
			return nil, fmt.Errorf("row %d: %w: empty user id", i, apperr.ErrInvalidInput)
		}
		if r.ID == "" {
			r.ID = id.New()
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		if r.UpdatedAt.IsZero() {
			r.UpdatedAt = now
		}
		_, err := stmt.ExecContext(ctx,
			r.ID, r.UserID, formatDay(r.Date), r.Description, r.Amount.String(),
			string(r.Category), string(r.Kind), string(r.PaymentMethod),
			nullString(r.Notes), nullString(r.RecurringID), boolInt(r.Automatic),
			r.CreatedAt.Format(time.RFC3339Nano), r.UpdatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return nil, fmt.Errorf("inserting row %d (%s): %w", i, r.Description, err)
		}
		out = append(out, r)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing insert: %w", err)
	}
	return out, nil
}

// UpdateTransaction applies p to the user's transaction txID.
func (s *Store) UpdateTransaction(ctx context.Context, userID, txID string, p TxPatch) error {
	var sets []string
	var args []any
	if p.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, formatDay(*p.Date))
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.Amount != nil {
		sets = append(sets, "amount = ?")
		args = append(args, p.Amount.String())
	}
	if p.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, string(*p.Category))
	}
	if p.Kind != nil {
		sets = append(sets, "kind = ?")
		args = append(args, string(*p.Kind))
	}
	if p.PaymentMethod != nil {
		sets = append(sets, "payment_method = ?")
		args = append(args, string(*p.PaymentMethod))
	}
	if p.RecurringID != nil {
		sets = append(sets, "recurring_id = ?")
		args = append(args, nullString(*p.RecurringID))
	}
	if p.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, nullString(*p.Notes))
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, s.stamp(), userID, txID)

	res, err := s.db.ExecContext(ctx,
		"UPDATE transactions SET "+strings.Join(sets, ", ")+" WHERE user_id = ? AND id = ?", args...)
	if err != nil {
		return fmt.Errorf("updating transaction %s: %w", txID, err)
	}
	return expectRow(res, "transaction", txID)
}

// DeleteTransaction removes one of the user's transactions.
func (s *Store) DeleteTransaction(ctx context.Context, userID, txID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE user_id = ? AND id = ?", userID, txID)
	if err != nil {
		return fmt.Errorf("deleting transaction %s: %w", txID, err)
	}
	return expectRow(res, "transaction", txID)
}

// DeleteAllTransactions removes every transaction of the user and returns
// how many were deleted.
func (s *Store) DeleteAllTransactions(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE user_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("deleting transactions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted transactions: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(r rowScanner) (model.LedgerTransaction, error) {
	var (
		tx                     model.LedgerTransaction
		date, amount           string
		category, kind, method string
		notes, recurring       sql.NullString
		automatic              int
		createdAt, updatedAt   string
	)
	if err := r.Scan(&tx.ID, &tx.UserID, &date, &tx.Description, &amount, &category, &kind, &method,
		&notes, &recurring, &automatic, &createdAt, &updatedAt); err != nil {
		return tx, fmt.Errorf("scanning transaction: %w", err)
	}

	var err error
	if tx.Date, err = parseDay(date); err != nil {
		return tx, err
	}
	if tx.Amount, err = parseAmount(amount); err != nil {
		return tx, err
	}
	if tx.CreatedAt, err = parseStamp(createdAt); err != nil {
		return tx, err
	}
	if tx.UpdatedAt, err = parseStamp(updatedAt); err != nil {
		return tx, err
	}
	tx.Category = model.Category(category)
	tx.Kind = model.Kind(kind)
	tx.PaymentMethod = model.PaymentMethod(method)
	tx.Notes = notes.String
	tx.RecurringID = recurring.String
	tx.Automatic = automatic != 0
	return tx, nil
}

func expectRow(res sql.Result, what, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking %s %s: %w", what, key, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, key, apperr.ErrNotFound)
	}
	return nil
}
