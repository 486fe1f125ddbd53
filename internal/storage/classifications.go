package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerworks/taxpass/internal/common"
	"github.com/ledgerworks/taxpass/internal/model"
	"github.com/ledgerworks/taxpass/internal/service"
)

// CommitPassOutcome applies a completed pass as one atomic unit: the
// pass's record fields, the status flip to completed, the audit history
// row, and the cache entry are written in a single database transaction.
// A crash can therefore never leave a completed status without its fields
// or vice versa.
func (s *SQLiteStorage) CommitPassOutcome(ctx context.Context, outcome *service.PassOutcome) error {
	if err := validateKey(ctx, outcome.ClientID, outcome.TransactionID); err != nil {
		return err
	}
	if err := validatePass(outcome.Pass); err != nil {
		return err
	}

	var result any
	switch outcome.Pass {
	case model.PassPayee:
		result = outcome.Payee
	case model.PassCategory:
		result = outcome.Category
	case model.PassBusiness:
		result = outcome.Business
	}
	if result == nil {
		return fmt.Errorf("outcome for %s pass has no result", outcome.Pass)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal %s result: %w", outcome.Pass, err)
	}

	now := time.Now().UTC()
	prefix := passPrefix(outcome.Pass)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO classification_records (client_id, transaction_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (client_id, transaction_id) DO NOTHING
	`, outcome.ClientID, outcome.TransactionID, now); err != nil {
		return fmt.Errorf("failed to ensure classification record: %w", err)
	}

	recordQuery := fmt.Sprintf(`
		UPDATE classification_records
		SET %s_json = ?, updated_at = ?
		WHERE client_id = ? AND transaction_id = ?
	`, prefix)
	if _, err := tx.ExecContext(ctx, recordQuery, string(payload), now, outcome.ClientID, outcome.TransactionID); err != nil {
		return fmt.Errorf("failed to write %s result: %w", prefix, err)
	}

	statusQuery := fmt.Sprintf(`
		UPDATE processing_status
		SET %[1]s_status = 'completed', %[1]s_error = NULL, %[1]s_updated_at = ?
		WHERE client_id = ? AND transaction_id = ?
	`, prefix)
	res, err := tx.ExecContext(ctx, statusQuery, now, outcome.ClientID, outcome.TransactionID)
	if err != nil {
		return fmt.Errorf("failed to complete %s pass: %w", prefix, err)
	}
	if affected, affErr := res.RowsAffected(); affErr == nil && affected == 0 {
		return fmt.Errorf("status for %s: %w", outcome.TransactionID, common.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO classification_history (client_id, transaction_id, pass, payload, from_cache)
		VALUES (?, ?, ?, ?, ?)
	`, outcome.ClientID, outcome.TransactionID, outcome.Pass.String(), string(payload), outcome.FromCache); err != nil {
		return fmt.Errorf("failed to write classification history: %w", err)
	}

	// A result served from the cache doesn't need re-caching.
	if !outcome.FromCache && outcome.Fingerprint != "" {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO classification_cache (client_id, fingerprint, pass, payload, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (client_id, fingerprint, pass) DO UPDATE SET
				payload = excluded.payload,
				updated_at = excluded.updated_at
		`, outcome.ClientID, outcome.Fingerprint, outcome.Pass.String(), string(payload), now); err != nil {
			return fmt.Errorf("failed to write cache entry: %w", err)
		}
	}

	return tx.Commit()
}

// GetClassified returns the joined transaction/record/status view for one
// transaction, read in a single query so the three passes are seen
// consistently.
func (s *SQLiteStorage) GetClassified(ctx context.Context, clientID, transactionID string) (*model.ClassifiedTransaction, error) {
	if err := validateKey(ctx, clientID, transactionID); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, classifiedQuery+` AND t.id = ?`, clientID, transactionID)
	ct, err := scanClassified(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get classified view: %w", err)
	}
	return ct, nil
}

// ListClassified returns the joined view for all of a client's
// transactions, ordered by (date, id).
func (s *SQLiteStorage) ListClassified(ctx context.Context, clientID string) ([]model.ClassifiedTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(clientID, "clientID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, classifiedQuery+` ORDER BY t.date, t.id`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list classified view: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ClassifiedTransaction
	for rows.Next() {
		ct, scanErr := scanClassified(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan classified view: %w", scanErr)
		}
		out = append(out, *ct)
	}
	return out, rows.Err()
}

const classifiedQuery = `
	SELECT t.client_id, t.id, t.date, t.description, t.amount,
		t.normalized_amount, t.source, t.txn_type, t.statement_period,
		t.account, t.extra,
		r.payee_json, r.category_json, r.business_json, r.needs_review,
		ps.payee_status, ps.payee_error, ps.payee_updated_at,
		ps.category_status, ps.category_error, ps.category_updated_at,
		ps.business_status, ps.business_error, ps.business_updated_at
	FROM transactions t
	LEFT JOIN classification_records r
		ON r.client_id = t.client_id AND r.transaction_id = t.id
	LEFT JOIN processing_status ps
		ON ps.client_id = t.client_id AND ps.transaction_id = t.id
	WHERE t.client_id = ?`

func scanClassified(row rowScanner) (*model.ClassifiedTransaction, error) {
	var txn model.Transaction
	var txnType, statementPeriod, account, extra sql.NullString
	var payeeJSON, categoryJSON, businessJSON sql.NullString
	var needsReview sql.NullBool
	var statuses [model.PassCount]sql.NullString
	var errMsgs [model.PassCount]sql.NullString
	var updatedAts [model.PassCount]sql.NullTime

	err := row.Scan(
		&txn.ClientID, &txn.ID, &txn.Date, &txn.Description, &txn.Amount,
		&txn.NormalizedAmount, &txn.Source, &txnType, &statementPeriod,
		&account, &extra,
		&payeeJSON, &categoryJSON, &businessJSON, &needsReview,
		&statuses[model.PassPayee], &errMsgs[model.PassPayee], &updatedAts[model.PassPayee],
		&statuses[model.PassCategory], &errMsgs[model.PassCategory], &updatedAts[model.PassCategory],
		&statuses[model.PassBusiness], &errMsgs[model.PassBusiness], &updatedAts[model.PassBusiness],
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

	ct := &model.ClassifiedTransaction{Transaction: txn}

	record := &model.ClassificationRecord{
		ClientID:      txn.ClientID,
		TransactionID: txn.ID,
		NeedsReview:   needsReview.Bool,
	}
	hasRecord := false
	if payeeJSON.Valid && payeeJSON.String != "" {
		record.Payee = &model.PayeeResult{}
		if err := json.Unmarshal([]byte(payeeJSON.String), record.Payee); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payee result: %w", err)
		}
		hasRecord = true
	}
	if categoryJSON.Valid && categoryJSON.String != "" {
		record.Category = &model.CategoryResult{}
		if err := json.Unmarshal([]byte(categoryJSON.String), record.Category); err != nil {
			return nil, fmt.Errorf("failed to unmarshal category result: %w", err)
		}
		hasRecord = true
	}
	if businessJSON.Valid && businessJSON.String != "" {
		record.Business = &model.BusinessResult{}
		if err := json.Unmarshal([]byte(businessJSON.String), record.Business); err != nil {
			return nil, fmt.Errorf("failed to unmarshal business result: %w", err)
		}
		hasRecord = true
	}
	if hasRecord {
		ct.Record = record
	}

	if statuses[model.PassPayee].Valid {
		ps := &model.ProcessingStatus{ClientID: txn.ClientID, TransactionID: txn.ID}
		for i := range ps.Passes {
			ps.Passes[i] = model.PassState{
				Status:    model.PassStatus(statuses[i].String),
				Error:     errMsgs[i].String,
				UpdatedAt: updatedAts[i].Time,
			}
		}
		ct.Status = ps
	}

	return ct, nil
}
