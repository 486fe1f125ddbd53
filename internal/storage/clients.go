package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerworks/taxpass/internal/model"
)

// GetOrCreateClient returns the client with the given name, creating it on
// first reference. Clients are never deleted by the core.
func (s *SQLiteStorage) GetOrCreateClient(ctx context.Context, name string) (*model.Client, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	client := &model.Client{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at FROM clients WHERE name = ?
	`, name).Scan(&client.ID, &client.Name, &client.CreatedAt)
	if err == nil {
		return client, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up client: %w", err)
	}

	client = &model.Client{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, created_at) VALUES (?, ?, ?)
	`, client.ID, client.Name, client.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create client %q: %w", name, err)
	}

	return client, nil
}
