// Package executor drives the three-pass classification pipeline: caching,
// status claiming, AI calls with retry, and atomic result commits.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ledgerworks/taxpass/internal/common"
	"github.com/ledgerworks/taxpass/internal/llm"
	"github.com/ledgerworks/taxpass/internal/model"
	"github.com/ledgerworks/taxpass/internal/service"
)

// Config tunes a processing run.
type Config struct {
	Workers  int
	FromPass model.Pass
	Retry    service.RetryOptions
	// OnProgress is called after each transaction finishes all its
	// passes. Optional.
	OnProgress func(done int)
}

// Executor runs classification passes over a client's transactions. Passes
// for one transaction run strictly in order; independent transactions run
// concurrently under a bounded worker pool.
type Executor struct {
	storage service.Storage
	client  llm.Client
	logger  *slog.Logger
	cfg     Config
}

// New creates an executor.
func New(storage service.Storage, client llm.Client, logger *slog.Logger, cfg Config) (*Executor, error) {
	if storage == nil {
		return nil, errors.New("storage is required")
	}
	if client == nil {
		return nil, errors.New("llm client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	if !cfg.FromPass.Valid() {
		return nil, fmt.Errorf("invalid starting pass %d", cfg.FromPass)
	}
	return &Executor{storage: storage, client: client, logger: logger, cfg: cfg}, nil
}

// Run processes the client's transactions within the filter's row range.
// Each transaction is independent: a failure marks that transaction's pass
// errored and moves on, so a partial run can always be resumed.
func (e *Executor) Run(ctx context.Context, clientID string, filter service.ProcessingFilter) (*RunStats, error) {
	txns, err := e.storage.ListTransactions(ctx, clientID, filter.StartRow, filter.EndRow)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	categories, err := e.storage.GetTaxCategories(ctx, clientID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to load tax categories: %w", err)
	}

	e.logger.Info("starting classification run",
		"client_id", clientID,
		"transactions", len(txns),
		"from_pass", e.cfg.FromPass.String(),
		"force", filter.Force,
		"workers", e.cfg.Workers)

	stats := &RunStats{}
	sem := make(chan struct{}, e.cfg.Workers)
	var wg sync.WaitGroup
	var done int
	var doneMu sync.Mutex

	for _, txn := range txns {
		wg.Add(1)
		go func(txn model.Transaction) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			e.processTransaction(ctx, &txn, categories, filter, stats)
			stats.addTransaction()

			if e.cfg.OnProgress != nil {
				doneMu.Lock()
				done++
				n := done
				doneMu.Unlock()
				e.cfg.OnProgress(n)
			}
		}(txn)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("run interrupted: %w", err)
	}
	return stats, nil
}

// processTransaction runs the configured passes for one transaction in
// order. A pass that cannot complete stops the chain, since later passes
// consume its output.
func (e *Executor) processTransaction(ctx context.Context, txn *model.Transaction, categories []model.TaxCategory, filter service.ProcessingFilter, stats *RunStats) {
	if _, err := e.storage.EnsureStatus(ctx, txn.ClientID, txn.ID); err != nil {
		e.logger.Error("failed to ensure status row",
			"transaction_id", txn.ID, "error", err)
		return
	}

	ct, err := e.storage.GetClassified(ctx, txn.ClientID, txn.ID)
	if err != nil {
		e.logger.Error("failed to load classification state",
			"transaction_id", txn.ID, "error", err)
		return
	}
	// A never-classified transaction has no record row yet; start one so
	// pass outcomes have somewhere to land.
	if ct.Record == nil {
		ct.Record = &model.ClassificationRecord{
			ClientID:      txn.ClientID,
			TransactionID: txn.ID,
		}
	}

	for pass := e.cfg.FromPass; pass <= model.PassBusiness; pass++ {
		if ctx.Err() != nil {
			return
		}

		ok, err := e.runPass(ctx, txn, ct, categories, pass, filter.Force, stats)
		if err != nil {
			stats.errored(pass)
			e.logger.Warn("pass failed",
				"transaction_id", txn.ID,
				"pass", pass.String(),
				"error", err)
			if markErr := e.storage.MarkPassError(ctx, txn.ClientID, txn.ID, pass, err.Error()); markErr != nil {
				e.logger.Error("failed to record pass error",
					"transaction_id", txn.ID, "error", markErr)
			}
			return
		}
		if !ok {
			// Not claimable. If it is already completed we can keep
			// going; anything else blocks the passes after it.
			if ct.Status.Completed(pass) {
				stats.skipped(pass)
				continue
			}
			return
		}
	}
}

// runPass claims and executes one pass. Returns false with a nil error
// when the pass was not claimable (already completed, skipped, or taken by
// another worker).
func (e *Executor) runPass(ctx context.Context, txn *model.Transaction, ct *model.ClassifiedTransaction, categories []model.TaxCategory, pass model.Pass, force bool, stats *RunStats) (bool, error) {
	claimed, err := e.storage.ClaimPass(ctx, txn.ClientID, txn.ID, pass, force)
	if err != nil {
		return false, fmt.Errorf("failed to claim pass: %w", err)
	}
	if !claimed {
		return false, nil
	}

	fingerprint := Fingerprint(txn.ClientID, txn.Description, txn.Amount, pass)

	outcome := &service.PassOutcome{
		ClientID:      txn.ClientID,
		TransactionID: txn.ID,
		Fingerprint:   fingerprint,
		Pass:          pass,
	}

	// Cache first. A forced run bypasses the cache so the fresh result
	// overwrites the entry on commit.
	if !force {
		if hit, err := e.loadCached(ctx, outcome); err != nil {
			e.logger.Warn("cache lookup failed, falling through to AI",
				"transaction_id", txn.ID, "pass", pass.String(), "error", err)
		} else if hit {
			if err := e.storage.CommitPassOutcome(ctx, outcome); err != nil {
				return false, fmt.Errorf("failed to commit cached result: %w", err)
			}
			e.applyOutcome(ct, outcome)
			stats.completed(pass, true)
			return true, nil
		}
	}

	req, err := e.buildRequest(txn, ct, categories, pass)
	if err != nil {
		return false, err
	}

	if err := common.WithRetry(ctx, func() error {
		return e.callPass(ctx, req, pass, outcome)
	}, e.cfg.Retry); err != nil {
		return false, fmt.Errorf("%w: %w", common.ErrPassFailed, err)
	}

	if err := e.storage.CommitPassOutcome(ctx, outcome); err != nil {
		return false, fmt.Errorf("failed to commit pass result: %w", err)
	}
	e.applyOutcome(ct, outcome)
	stats.completed(pass, false)
	return true, nil
}

// loadCached populates the outcome from the classification cache. Returns
// false on a miss. A cache entry that no longer parses is treated as a
// miss rather than an error.
func (e *Executor) loadCached(ctx context.Context, outcome *service.PassOutcome) (bool, error) {
	raw, found, err := e.storage.GetCachedResult(ctx, outcome.ClientID, outcome.Fingerprint, outcome.Pass)
	if err != nil || !found {
		return false, err
	}

	switch outcome.Pass {
	case model.PassPayee:
		var result model.PayeeResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return false, nil
		}
		outcome.Payee = &result
	case model.PassCategory:
		var result model.CategoryResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return false, nil
		}
		outcome.Category = &result
	case model.PassBusiness:
		var result model.BusinessResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return false, nil
		}
		outcome.Business = &result
	}

	outcome.FromCache = true
	return true, nil
}

// buildRequest assembles the pass request from the transaction and the
// completed earlier passes. Later passes require earlier outputs.
func (e *Executor) buildRequest(txn *model.Transaction, ct *model.ClassifiedTransaction, categories []model.TaxCategory, pass model.Pass) (llm.PassRequest, error) {
	req := llm.PassRequest{
		Date:        txn.Date,
		Description: txn.Description,
		Source:      txn.Source,
		Amount:      txn.Amount,
	}

	if pass >= model.PassCategory {
		payee, err := ct.Record.CompletedPayee(ct.Status)
		if err != nil {
			return req, fmt.Errorf("category pass requires payee output: %w", err)
		}
		req.Payee = payee.Payee
		req.GeneralCategory = payee.GeneralCategory
	}

	if pass >= model.PassBusiness {
		category, err := ct.Record.CompletedCategory(ct.Status)
		if err != nil {
			return req, fmt.Errorf("business pass requires category output: %w", err)
		}
		req.Category = category.Category
		req.ExpenseType = category.ExpenseType
		req.BusinessPercentage = category.BusinessPercentage
		req.Categories = categories
	}

	return req, nil
}

// callPass invokes the AI collaborator for one pass. Malformed responses
// are marked non-retryable so the retry loop fails fast on them.
func (e *Executor) callPass(ctx context.Context, req llm.PassRequest, pass model.Pass, outcome *service.PassOutcome) error {
	var err error
	switch pass {
	case model.PassPayee:
		outcome.Payee, err = e.client.IdentifyPayee(ctx, req)
	case model.PassCategory:
		outcome.Category, err = e.client.AssignCategory(ctx, req)
	case model.PassBusiness:
		outcome.Business, err = e.client.ClassifyBusiness(ctx, req)
	default:
		return fmt.Errorf("unknown pass %d", pass)
	}
	if err != nil {
		if errors.Is(err, common.ErrMalformedResponse) {
			return &common.RetryableError{Err: err, Retryable: false}
		}
		return err
	}
	return nil
}

// applyOutcome folds a committed pass result into the in-memory view so
// the next pass in this transaction's chain sees it.
func (e *Executor) applyOutcome(ct *model.ClassifiedTransaction, outcome *service.PassOutcome) {
	switch outcome.Pass {
	case model.PassPayee:
		ct.Record.Payee = outcome.Payee
	case model.PassCategory:
		ct.Record.Category = outcome.Category
	case model.PassBusiness:
		ct.Record.Business = outcome.Business
	}
	ct.Status.Passes[outcome.Pass].Status = model.StatusCompleted
	ct.Status.Passes[outcome.Pass].Error = ""
}
