package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/ledgerworks/taxpass/internal/config"
	"github.com/ledgerworks/taxpass/internal/model"
	"github.com/ledgerworks/taxpass/internal/service"
	"github.com/ledgerworks/taxpass/internal/storage"
)

// initStorage opens the configured database and runs migrations.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/taxpass/taxpass.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// resolveClient looks up the client named by the --client flag or the
// configured default, creating it on first reference.
func resolveClient(ctx context.Context, store service.Storage, name string) (*model.Client, error) {
	if name == "" {
		name = viper.GetString("client.name")
	}
	if name == "" {
		return nil, fmt.Errorf("client name is required (--client flag or client.name config)")
	}
	return store.GetOrCreateClient(ctx, name)
}
