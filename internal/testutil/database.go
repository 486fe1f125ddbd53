// Package testutil provides shared test fixtures: an in-memory database
// harness and canned transaction data.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/ledgerworks/taxpass/internal/model"
	"github.com/ledgerworks/taxpass/internal/service"
	"github.com/ledgerworks/taxpass/internal/storage"
)

// TestDB is an in-memory migrated database with its test client.
type TestDB struct {
	Storage service.Storage
	Client  *model.Client
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory database and a client named
// "testclient". Cleanup is registered automatically.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	client, err := store.GetOrCreateClient(ctx, "testclient")
	if err != nil {
		t.Fatalf("failed to create test client: %v", err)
	}

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	return &TestDB{Storage: store, Client: client, t: t}
}

// SeedTransactions upserts the given transactions as a feed from the
// given source.
func (db *TestDB) SeedTransactions(ctx context.Context, source string, txns []model.Transaction) *service.FeedStats {
	db.t.Helper()
	stats, err := db.Storage.ReplaceFeed(ctx, db.Client.ID, source, txns)
	if err != nil {
		db.t.Fatalf("failed to seed transactions: %v", err)
	}
	return stats
}

// Txn builds a valid transaction for the test client.
func (db *TestDB) Txn(id, description string, amount float64) model.Transaction {
	return model.Transaction{
		ClientID:    db.Client.ID,
		ID:          id,
		Date:        time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Description: description,
		Amount:      amount,
		Source:      "chase_checking",
	}
}
