package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ledgerworks/taxpass/internal/common"
	"github.com/ledgerworks/taxpass/internal/llm"
	"github.com/ledgerworks/taxpass/internal/model"
	"github.com/ledgerworks/taxpass/internal/service"
)

// MinerConfig tunes rule mining.
type MinerConfig struct {
	// MinGroupSize is the smallest history group worth generating
	// candidates from.
	MinGroupSize int
}

// MiningReport summarizes one mining run: every backtested candidate with
// its verdict, accepted ones persisted.
type MiningReport struct {
	Results  []model.BacktestResult
	Accepted int
	Rejected int
}

// Miner generates candidate rules from classified history and persists
// the ones that clear the accuracy gate. Rejected candidates are reported
// and discarded, never retried automatically.
type Miner struct {
	storage service.Storage
	client  llm.Client
	logger  *slog.Logger
	cfg     MinerConfig
}

// NewMiner creates a rule miner.
func NewMiner(storage service.Storage, client llm.Client, logger *slog.Logger, cfg MinerConfig) (*Miner, error) {
	if storage == nil {
		return nil, errors.New("storage is required")
	}
	if client == nil {
		return nil, errors.New("llm client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinGroupSize <= 0 {
		cfg.MinGroupSize = 3
	}
	return &Miner{storage: storage, client: client, logger: logger, cfg: cfg}, nil
}

// Mine runs one mining cycle over the client's classified history.
func (m *Miner) Mine(ctx context.Context, clientID string) (*MiningReport, error) {
	history, err := m.storage.ListClassified(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load classified history: %w", err)
	}

	groups := buildGroups(history, m.cfg.MinGroupSize)
	m.logger.Info("mining rules",
		"client_id", clientID,
		"history", len(history),
		"groups", len(groups))

	report := &MiningReport{}
	for _, group := range groups {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		candidates, err := m.client.GenerateRuleCandidates(ctx, group)
		if err != nil {
			// A failed generation loses this group's candidates, not
			// the whole run.
			m.logger.Warn("candidate generation failed",
				"group_kind", group.Kind,
				"group_key", group.Key,
				"error", err)
			continue
		}

		for _, candidate := range candidates {
			result := Backtest(candidate, history)
			if result.Accepted {
				if err := m.storage.CreateRule(ctx, &result.Rule); err != nil {
					if errors.Is(err, common.ErrDuplicateEntry) {
						m.logger.Info("rule already exists, skipping",
							"rule", result.Rule.Name)
						continue
					}
					return report, fmt.Errorf("failed to persist rule %q: %w", result.Rule.Name, err)
				}
				report.Accepted++
			} else {
				report.Rejected++
			}
			report.Results = append(report.Results, result)
		}
	}

	m.logger.Info("mining complete",
		"client_id", clientID,
		"accepted", report.Accepted,
		"rejected", report.Rejected)
	return report, nil
}

// Suggest runs candidate generation against a single transaction without
// the backtest gate. The results are advisory only and are not persisted.
func (m *Miner) Suggest(ctx context.Context, clientID, transactionID string) ([]model.CandidateRule, error) {
	ct, err := m.storage.GetClassified(ctx, clientID, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}

	group := llm.RuleGroup{
		Kind:         "transaction",
		Key:          transactionID,
		Transactions: []model.ClassifiedTransaction{*ct},
	}
	return m.client.GenerateRuleCandidates(ctx, group)
}

// buildGroups buckets classified history three ways: by payee, by
// category, and by width-100 amount bucket. Only completed passes
// contribute to the payee and category groupings.
func buildGroups(history []model.ClassifiedTransaction, minSize int) []llm.RuleGroup {
	byPayee := make(map[string][]model.ClassifiedTransaction)
	byCategory := make(map[string][]model.ClassifiedTransaction)
	byBucket := make(map[string][]model.ClassifiedTransaction)

	for _, ct := range history {
		if payee, err := ct.Record.CompletedPayee(ct.Status); err == nil && payee.Payee != "" {
			byPayee[payee.Payee] = append(byPayee[payee.Payee], ct)
		}
		if cat, err := ct.Record.CompletedCategory(ct.Status); err == nil && cat.Category != "" {
			byCategory[cat.Category] = append(byCategory[cat.Category], ct)
		}
		bucket := model.AmountBucketKey(ct.Transaction.Amount)
		byBucket[bucket] = append(byBucket[bucket], ct)
	}

	var groups []llm.RuleGroup
	appendGroups := func(kind string, m map[string][]model.ClassifiedTransaction) {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if len(m[k]) < minSize {
				continue
			}
			groups = append(groups, llm.RuleGroup{Kind: kind, Key: k, Transactions: m[k]})
		}
	}
	appendGroups("payee", byPayee)
	appendGroups("category", byCategory)
	appendGroups("amount", byBucket)
	return groups
}
