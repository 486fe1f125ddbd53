package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ledgerworks/taxpass/internal/model"
)

// GetCachedResult looks up a previously computed pass result by (client,
// fingerprint, pass). A miss is not an error: the second return value is
// false and the caller falls through to a live classification call.
func (s *SQLiteStorage) GetCachedResult(ctx context.Context, clientID, fingerprint string, pass model.Pass) ([]byte, bool, error) {
	if err := validateContext(ctx); err != nil {
		return nil, false, err
	}
	if err := validateString(clientID, "clientID"); err != nil {
		return nil, false, err
	}
	if err := validateString(fingerprint, "fingerprint"); err != nil {
		return nil, false, err
	}
	if err := validatePass(pass); err != nil {
		return nil, false, err
	}

	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM classification_cache
		WHERE client_id = ? AND fingerprint = ? AND pass = ?
	`, clientID, fingerprint, pass.String()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}
	return []byte(payload), true, nil
}
