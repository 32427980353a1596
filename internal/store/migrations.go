package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the latest schema version.
const SchemaVersion = 2

type migration struct {
	Version     int
	Description string
	Up          func(*sql.Tx) error
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					date TEXT NOT NULL,
					description TEXT NOT NULL,
					amount TEXT NOT NULL,
					category TEXT NOT NULL,
					kind TEXT NOT NULL,
					payment_method TEXT NOT NULL,
					notes TEXT,
					recurring_id TEXT,
					automatic INTEGER NOT NULL DEFAULT 0,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL
				)`,
				`CREATE INDEX idx_transactions_user_date ON transactions(user_id, date)`,
				`CREATE INDEX idx_transactions_recurring ON transactions(recurring_id)`,

				`CREATE TABLE IF NOT EXISTS recurring_templates (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					description TEXT NOT NULL,
					estimated_amount TEXT NOT NULL,
					category TEXT NOT NULL,
					months TEXT NOT NULL DEFAULT '[]',
					billing_day INTEGER NOT NULL,
					active INTEGER NOT NULL DEFAULT 1,
					start_date TEXT,
					end_date TEXT,
					created_at TEXT NOT NULL
				)`,
				`CREATE INDEX idx_templates_user ON recurring_templates(user_id, active)`,

				`CREATE TABLE IF NOT EXISTS exclusions (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					template_id TEXT NOT NULL REFERENCES recurring_templates(id) ON DELETE CASCADE,
					month TEXT NOT NULL,
					UNIQUE (template_id, month)
				)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Add learning rules",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS learning_rules (
					user_id TEXT NOT NULL,
					pattern TEXT NOT NULL,
					category TEXT NOT NULL,
					kind TEXT NOT NULL,
					updated_at TEXT NOT NULL,
					PRIMARY KEY (user_id, pattern)
				)`,
			)
		},
	},
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, q := range queries {
		if _, err := tx.Exec(q); err != nil {
			return fmt.Errorf("executing migration query: %w", err)
		}
	}
	return nil
}

// Migrate applies every migration newer than the database's user_version.
func (s *Store) Migrate(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", m.Version, err)
		}
		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("updating schema version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", m.Version, err)
		}
	}

	var final int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&final); err != nil {
		return fmt.Errorf("verifying schema version: %w", err)
	}
	if final != SchemaVersion {
		return fmt.Errorf("schema version mismatch: expected %d, got %d", SchemaVersion, final)
	}
	return nil
}
