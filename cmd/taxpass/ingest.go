package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ledgerworks/taxpass/internal/cli"
	"github.com/ledgerworks/taxpass/internal/model"
)

// feedRow is the on-disk shape of one normalized transaction in a feed
// file, as produced by the statement normalizer.
type feedRow struct {
	ID              string         `json:"id"`
	Date            string         `json:"date"` // ISO-8601
	Description     string         `json:"description"`
	Amount          float64        `json:"amount"`
	Type            string         `json:"type,omitempty"`
	StatementPeriod string         `json:"statement_period,omitempty"`
	Account         string         `json:"account,omitempty"`
	Extra           map[string]any `json:"extra,omitempty"`
}

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <feed.json>",
		Short: "Ingest a normalized transaction feed",
		Long: `Apply one upsert-then-prune ingest cycle from a normalized feed file.
Transactions present in the feed are inserted or updated; transactions
from the same source that are no longer present are deleted, along with
their classification records.`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().String("client", "", "client name")
	cmd.Flags().String("source", "", "feed source label, e.g. chase_checking (required)")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	clientName, _ := cmd.Flags().GetString("client")
	source, _ := cmd.Flags().GetString("source")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	client, err := resolveClient(ctx, store, clientName)
	if err != nil {
		return err
	}

	txns, err := loadFeed(args[0], client.ID, source)
	if err != nil {
		return err
	}

	stats, err := store.ReplaceFeed(ctx, client.ID, source, txns)
	if err != nil {
		return fmt.Errorf("failed to ingest feed: %w", err)
	}

	fmt.Println(cli.Success(fmt.Sprintf(
		"ingested %s for %s: %d inserted, %d updated, %d pruned, %d rejected",
		source, client.Name, stats.Inserted, stats.Updated, stats.Pruned, stats.Rejected)))
	return nil
}

func loadFeed(path, clientID, source string) ([]model.Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed file: %w", err)
	}

	var rows []feedRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse feed file: %w", err)
	}

	txns := make([]model.Transaction, 0, len(rows))
	for i, row := range rows {
		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			// Try full RFC 3339 before giving up on the row's date.
			date, err = time.Parse(time.RFC3339, row.Date)
			if err != nil {
				return nil, fmt.Errorf("feed row %d: invalid date %q", i, row.Date)
			}
		}
		txns = append(txns, model.Transaction{
			ClientID:         clientID,
			ID:               row.ID,
			Date:             date,
			Description:      row.Description,
			Amount:           row.Amount,
			NormalizedAmount: math.Abs(row.Amount),
			Source:           source,
			Type:             row.Type,
			StatementPeriod:  row.StatementPeriod,
			Account:          row.Account,
			Extra:            row.Extra,
		})
	}
	return txns, nil
}
