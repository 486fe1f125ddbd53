package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerworks/taxpass/internal/common"
	"github.com/ledgerworks/taxpass/internal/model"
)

// passPrefix maps a pass to its processing_status column prefix. The pass
// set is closed, so building column names from it is safe.
func passPrefix(p model.Pass) string {
	return p.String()
}

// EnsureStatus returns the status row for a transaction, creating it with
// all passes pending on first sight.
func (s *SQLiteStorage) EnsureStatus(ctx context.Context, clientID, transactionID string) (*model.ProcessingStatus, error) {
	if err := validateKey(ctx, clientID, transactionID); err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO processing_status (client_id, transaction_id)
		VALUES (?, ?)
		ON CONFLICT (client_id, transaction_id) DO NOTHING
	`, clientID, transactionID); err != nil {
		return nil, fmt.Errorf("failed to ensure status row: %w", err)
	}

	return s.GetStatus(ctx, clientID, transactionID)
}

// GetStatus retrieves the processing status for a transaction.
func (s *SQLiteStorage) GetStatus(ctx context.Context, clientID, transactionID string) (*model.ProcessingStatus, error) {
	if err := validateKey(ctx, clientID, transactionID); err != nil {
		return nil, err
	}
	return getStatusTx(ctx, s.db, clientID, transactionID)
}

func getStatusTx(ctx context.Context, q queryable, clientID, transactionID string) (*model.ProcessingStatus, error) {
	row := q.QueryRowContext(ctx, `
		SELECT payee_status, payee_error, payee_updated_at,
			category_status, category_error, category_updated_at,
			business_status, business_error, business_updated_at
		FROM processing_status
		WHERE client_id = ? AND transaction_id = ?
	`, clientID, transactionID)

	ps := &model.ProcessingStatus{ClientID: clientID, TransactionID: transactionID}
	var states [model.PassCount]struct {
		err       sql.NullString
		updatedAt sql.NullTime
		status    string
	}

	err := row.Scan(
		&states[model.PassPayee].status, &states[model.PassPayee].err, &states[model.PassPayee].updatedAt,
		&states[model.PassCategory].status, &states[model.PassCategory].err, &states[model.PassCategory].updatedAt,
		&states[model.PassBusiness].status, &states[model.PassBusiness].err, &states[model.PassBusiness].updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("status for %s: %w", transactionID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	for i := range states {
		ps.Passes[i] = model.PassState{
			Status:    model.PassStatus(states[i].status),
			Error:     states[i].err.String,
			UpdatedAt: states[i].updatedAt.Time,
		}
	}
	return ps, nil
}

// ClaimPass atomically transitions a pass to processing. The conditional
// update is the per-key claim: it succeeds for at most one caller, so no
// two workers process the same (client, transaction, pass). With force
// set, a completed pass may be reclaimed; otherwise only eligible states
// (pending, force_required, error) can be claimed.
func (s *SQLiteStorage) ClaimPass(ctx context.Context, clientID, transactionID string, pass model.Pass, force bool) (bool, error) {
	if err := validateKey(ctx, clientID, transactionID); err != nil {
		return false, err
	}
	if err := validatePass(pass); err != nil {
		return false, err
	}

	prefix := passPrefix(pass)
	eligible := `'pending', 'force_required', 'error'`
	if force {
		eligible += `, 'completed', 'skipped'`
	}

	query := fmt.Sprintf(`
		UPDATE processing_status
		SET %[1]s_status = 'processing', %[1]s_error = NULL, %[1]s_updated_at = ?
		WHERE client_id = ? AND transaction_id = ? AND %[1]s_status IN (%[2]s)
	`, prefix, eligible)

	res, err := s.db.ExecContext(ctx, query, time.Now().UTC(), clientID, transactionID)
	if err != nil {
		return false, fmt.Errorf("failed to claim %s pass: %w", prefix, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}
	return affected > 0, nil
}

// MarkPassError records a pass failure with its message. The pass stays
// eligible for retry on the next run.
func (s *SQLiteStorage) MarkPassError(ctx context.Context, clientID, transactionID string, pass model.Pass, msg string) error {
	return s.setPassStatus(ctx, clientID, transactionID, pass, model.StatusError, msg)
}

// MarkPassSkipped marks a pass as deliberately skipped.
func (s *SQLiteStorage) MarkPassSkipped(ctx context.Context, clientID, transactionID string, pass model.Pass) error {
	return s.setPassStatus(ctx, clientID, transactionID, pass, model.StatusSkipped, "")
}

// ForcePass flags a pass for rerun regardless of prior completion.
func (s *SQLiteStorage) ForcePass(ctx context.Context, clientID, transactionID string, pass model.Pass) error {
	return s.setPassStatus(ctx, clientID, transactionID, pass, model.StatusForceRequired, "")
}

func (s *SQLiteStorage) setPassStatus(ctx context.Context, clientID, transactionID string, pass model.Pass, status model.PassStatus, msg string) error {
	if err := validateKey(ctx, clientID, transactionID); err != nil {
		return err
	}
	if err := validatePass(pass); err != nil {
		return err
	}

	prefix := passPrefix(pass)
	var errVal any
	if msg != "" {
		errVal = msg
	}

	query := fmt.Sprintf(`
		UPDATE processing_status
		SET %[1]s_status = ?, %[1]s_error = ?, %[1]s_updated_at = ?
		WHERE client_id = ? AND transaction_id = ?
	`, prefix)

	res, err := s.db.ExecContext(ctx, query, string(status), errVal, time.Now().UTC(), clientID, transactionID)
	if err != nil {
		return fmt.Errorf("failed to set %s pass status: %w", prefix, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read status update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("status for %s: %w", transactionID, common.ErrNotFound)
	}
	return nil
}

// ResetPasses clears the given pass and every later pass back to pending,
// nulling error and timestamp. Later passes are reset too because they
// consume the reset pass's output as context.
func (s *SQLiteStorage) ResetPasses(ctx context.Context, clientID, transactionID string, fromPass model.Pass) error {
	if err := validateKey(ctx, clientID, transactionID); err != nil {
		return err
	}
	if err := validatePass(fromPass); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for p := fromPass; p.Valid(); p++ {
		prefix := passPrefix(p)
		query := fmt.Sprintf(`
			UPDATE processing_status
			SET %[1]s_status = 'pending', %[1]s_error = NULL, %[1]s_updated_at = NULL
			WHERE client_id = ? AND transaction_id = ?
		`, prefix)
		if _, err := tx.ExecContext(ctx, query, clientID, transactionID); err != nil {
			return fmt.Errorf("failed to reset %s pass: %w", prefix, err)
		}

		// Clear the record fields the reset pass owns so nothing stale
		// can be read as authoritative.
		recordQuery := fmt.Sprintf(`
			UPDATE classification_records
			SET %s_json = NULL, updated_at = ?
			WHERE client_id = ? AND transaction_id = ?
		`, prefix)
		if _, err := tx.ExecContext(ctx, recordQuery, time.Now().UTC(), clientID, transactionID); err != nil {
			return fmt.Errorf("failed to clear %s record fields: %w", prefix, err)
		}
	}

	return tx.Commit()
}
