package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledgerworks/taxpass/internal/common"
	"github.com/ledgerworks/taxpass/internal/model"
	"github.com/ledgerworks/taxpass/internal/service"
)

// ReplaceFeed applies one upsert-then-prune ingest cycle for a (client,
// source) feed: every valid row is upserted, and transactions from the
// same source that are absent from the feed are deleted. Deletes cascade
// to classification records and processing status, so no orphaned
// classifications survive a prune.
func (s *SQLiteStorage) ReplaceFeed(ctx context.Context, clientID, source string, txns []model.Transaction) (*service.FeedStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(clientID, "clientID"); err != nil {
		return nil, err
	}
	if err := validateString(source, "source"); err != nil {
		return nil, err
	}

	stats := &service.FeedStats{}

	// Exclude integrity failures up front, with a logged reason.
	valid := make([]model.Transaction, 0, len(txns))
	for _, txn := range txns {
		if err := txn.Validate(); err != nil {
			slog.Warn("Rejecting transaction from feed",
				"transaction_id", txn.ID,
				"reason", err)
			stats.Rejected++
			continue
		}
		valid = append(valid, txn)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			client_id, id, date, description, amount, normalized_amount,
			source, txn_type, statement_period, account, extra
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (client_id, id) DO UPDATE SET
			date = excluded.date,
			description = excluded.description,
			amount = excluded.amount,
			normalized_amount = excluded.normalized_amount,
			source = excluded.source,
			txn_type = excluded.txn_type,
			statement_period = excluded.statement_period,
			account = excluded.account,
			extra = excluded.extra
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	ids := make([]string, 0, len(valid))
	for _, txn := range valid {
		var extraJSON any
		if len(txn.Extra) > 0 {
			data, marshalErr := json.Marshal(txn.Extra)
			if marshalErr != nil {
				return nil, fmt.Errorf("failed to marshal extra for %s: %w", txn.ID, marshalErr)
			}
			extraJSON = string(data)
		}

		var existing int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM transactions WHERE client_id = ? AND id = ?`,
			clientID, txn.ID).Scan(&existing)
		if err != nil {
			return nil, fmt.Errorf("failed to check transaction %s: %w", txn.ID, err)
		}

		if _, err = stmt.ExecContext(ctx,
			clientID, txn.ID, txn.Date, txn.Description,
			txn.Amount, txn.NormalizedAmount, txn.Source,
			txn.Type, txn.StatementPeriod, txn.Account, extraJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to upsert transaction %s: %w", txn.ID, err)
		}

		if existing > 0 {
			stats.Updated++
		} else {
			stats.Inserted++
		}
		ids = append(ids, txn.ID)
	}

	// Prune rows from this source that the latest feed no longer carries.
	pruneQuery := `DELETE FROM transactions WHERE client_id = ? AND source = ?`
	args := []any{clientID, source}
	if len(ids) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
		pruneQuery += ` AND id NOT IN (` + placeholders + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := tx.ExecContext(ctx, pruneQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to prune stale transactions: %w", err)
	}
	if pruned, affErr := res.RowsAffected(); affErr == nil {
		stats.Pruned = int(pruned)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit feed: %w", err)
	}

	slog.Info("Feed replaced",
		"client_id", clientID,
		"source", source,
		"inserted", stats.Inserted,
		"updated", stats.Updated,
		"pruned", stats.Pruned,
		"rejected", stats.Rejected)

	return stats, nil
}

// GetTransaction retrieves a single transaction.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, clientID, id string) (*model.Transaction, error) {
	if err := validateKey(ctx, clientID, id); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT client_id, id, date, description, amount, normalized_amount,
			source, txn_type, statement_period, account, extra
		FROM transactions WHERE client_id = ? AND id = ?
	`, clientID, id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// ListTransactions returns the client's transactions ordered by (date, id)
// within the row range [startRow, endRow); endRow == 0 means unbounded.
func (s *SQLiteStorage) ListTransactions(ctx context.Context, clientID string, startRow, endRow int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(clientID, "clientID"); err != nil {
		return nil, err
	}
	if startRow < 0 {
		startRow = 0
	}

	limit := -1
	if endRow > startRow {
		limit = endRow - startRow
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT client_id, id, date, description, amount, normalized_amount,
			source, txn_type, statement_period, account, extra
		FROM transactions
		WHERE client_id = ?
		ORDER BY date, id
		LIMIT ? OFFSET ?
	`, clientID, limit, startRow)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", scanErr)
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

// GetTransactionCount returns the number of transactions for a client.
func (s *SQLiteStorage) GetTransactionCount(ctx context.Context, clientID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM transactions WHERE client_id = ?`, clientID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var txnType, statementPeriod, account, extra sql.NullString

	err := row.Scan(
		&txn.ClientID, &txn.ID, &txn.Date, &txn.Description,
		&txn.Amount, &txn.NormalizedAmount, &txn.Source,
		&txnType, &statementPeriod, &account, &extra,
	)
	if err != nil {
		return nil, err
	}

	txn.Type = txnType.String
	txn.StatementPeriod = statementPeriod.String
	txn.Account = account.String
	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &txn.Extra); err != nil {
			return nil, fmt.Errorf("failed to unmarshal extra: %w", err)
		}
	}
	return &txn, nil
}
