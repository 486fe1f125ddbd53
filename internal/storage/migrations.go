package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/ledgerworks/taxpass/internal/taxonomy"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a
// fatal error.
const ExpectedSchemaVersion = 5

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS clients (
					id TEXT PRIMARY KEY,
					name TEXT UNIQUE NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					client_id TEXT NOT NULL,
					id TEXT NOT NULL,
					date DATETIME NOT NULL,
					description TEXT NOT NULL,
					amount REAL NOT NULL,
					normalized_amount REAL NOT NULL,
					source TEXT NOT NULL,
					txn_type TEXT,
					statement_period TEXT,
					account TEXT,
					extra TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (client_id, id),
					FOREIGN KEY (client_id) REFERENCES clients(id)
				)`,
				`CREATE INDEX idx_transactions_date ON transactions(client_id, date, id)`,
				`CREATE INDEX idx_transactions_source ON transactions(client_id, source)`,

				`CREATE TABLE IF NOT EXISTS classification_records (
					client_id TEXT NOT NULL,
					transaction_id TEXT NOT NULL,
					payee_json TEXT,
					category_json TEXT,
					business_json TEXT,
					needs_review BOOLEAN DEFAULT 0,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (client_id, transaction_id),
					FOREIGN KEY (client_id, transaction_id)
						REFERENCES transactions(client_id, id) ON DELETE CASCADE
				)`,

				`CREATE TABLE IF NOT EXISTS processing_status (
					client_id TEXT NOT NULL,
					transaction_id TEXT NOT NULL,
					payee_status TEXT NOT NULL DEFAULT 'pending',
					payee_error TEXT,
					payee_updated_at DATETIME,
					category_status TEXT NOT NULL DEFAULT 'pending',
					category_error TEXT,
					category_updated_at DATETIME,
					business_status TEXT NOT NULL DEFAULT 'pending',
					business_error TEXT,
					business_updated_at DATETIME,
					PRIMARY KEY (client_id, transaction_id),
					FOREIGN KEY (client_id, transaction_id)
						REFERENCES transactions(client_id, id) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_status_payee ON processing_status(client_id, payee_status)`,
				`CREATE INDEX idx_status_category ON processing_status(client_id, category_status)`,
				`CREATE INDEX idx_status_business ON processing_status(client_id, business_status)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add classification cache",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS classification_cache (
					client_id TEXT NOT NULL,
					fingerprint TEXT NOT NULL,
					pass TEXT NOT NULL,
					payload TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (client_id, fingerprint, pass)
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add business rules table",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS business_rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					client_id TEXT NOT NULL,
					name TEXT NOT NULL,
					description TEXT,
					rule_type TEXT NOT NULL,
					conditions TEXT NOT NULL,
					actions TEXT NOT NULL,
					priority INTEGER DEFAULT 0,
					is_active BOOLEAN DEFAULT 1,
					ai_generated BOOLEAN DEFAULT 0,
					confidence TEXT,
					reasoning TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE (client_id, name),
					FOREIGN KEY (client_id) REFERENCES clients(id)
				)`,
				`CREATE INDEX idx_rules_active ON business_rules(client_id, is_active, priority)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     4,
		Description: "Add tax categories and seed the fixed taxonomy",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS tax_categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					worksheet TEXT NOT NULL,
					name TEXT NOT NULL,
					client_id TEXT NOT NULL DEFAULT '',
					tax_year INTEGER NOT NULL DEFAULT 0,
					is_personal BOOLEAN DEFAULT 0,
					is_active BOOLEAN DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					UNIQUE (worksheet, name, client_id, tax_year)
				)`,
				`CREATE INDEX idx_tax_categories_active ON tax_categories(is_active)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}

			stmt, err := tx.Prepare(`
				INSERT INTO tax_categories (worksheet, name, is_personal, is_active)
				VALUES (?, ?, ?, 1)
			`)
			if err != nil {
				return fmt.Errorf("failed to prepare taxonomy seed: %w", err)
			}
			defer func() { _ = stmt.Close() }()

			for _, cat := range taxonomy.Fixed() {
				if _, err := stmt.Exec(string(cat.Worksheet), cat.Name, cat.IsPersonal); err != nil {
					return fmt.Errorf("failed to seed category %q: %w", cat.Name, err)
				}
			}
			return nil
		},
	},
	{
		Version:     5,
		Description: "Add classification history for auditing",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS classification_history (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					client_id TEXT NOT NULL,
					transaction_id TEXT NOT NULL,
					pass TEXT NOT NULL,
					payload TEXT NOT NULL,
					from_cache BOOLEAN DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_history_transaction ON classification_history(client_id, transaction_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate runs all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion); err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		slog.Info("Applying migration",
			"version", migration.Version,
			"description", migration.Description)

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to set schema version %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	var finalVersion int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion); err != nil {
		return fmt.Errorf("failed to verify schema version: %w", err)
	}
	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("schema version mismatch: have %d, expected %d", finalVersion, ExpectedSchemaVersion)
	}

	return nil
}
