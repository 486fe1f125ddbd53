// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/ledgerworks/taxpass/internal/model"
)

// ProcessingFilter bounds a classification run. Row positions are over the
// client's transactions ordered by (date, id); the range is [StartRow,
// EndRow) with EndRow == 0 meaning unbounded.
type ProcessingFilter struct {
	StartRow int
	EndRow   int
	Force    bool
}

// FeedStats summarizes one upsert-then-prune ingest cycle.
type FeedStats struct {
	Inserted int
	Updated  int
	Pruned   int
	Rejected int
}

// PassOutcome is the atomic unit a completed pass commits: the pass's
// record fields, the status flip to completed, and the cache entry are
// written together in one database transaction.
type PassOutcome struct {
	ClientID      string
	TransactionID string
	Fingerprint   string
	Payee         *model.PayeeResult
	Category      *model.CategoryResult
	Business      *model.BusinessResult
	Pass          model.Pass
	FromCache     bool
}

// Storage defines the contract for the persistence layer.
type Storage interface {
	// Client operations
	GetOrCreateClient(ctx context.Context, name string) (*model.Client, error)

	// Transaction operations
	ReplaceFeed(ctx context.Context, clientID, source string, txns []model.Transaction) (*FeedStats, error)
	GetTransaction(ctx context.Context, clientID, id string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, clientID string, startRow, endRow int) ([]model.Transaction, error)
	GetTransactionCount(ctx context.Context, clientID string) (int, error)

	// Status operations
	EnsureStatus(ctx context.Context, clientID, transactionID string) (*model.ProcessingStatus, error)
	GetStatus(ctx context.Context, clientID, transactionID string) (*model.ProcessingStatus, error)
	ClaimPass(ctx context.Context, clientID, transactionID string, pass model.Pass, force bool) (bool, error)
	MarkPassError(ctx context.Context, clientID, transactionID string, pass model.Pass, msg string) error
	MarkPassSkipped(ctx context.Context, clientID, transactionID string, pass model.Pass) error
	ForcePass(ctx context.Context, clientID, transactionID string, pass model.Pass) error
	ResetPasses(ctx context.Context, clientID, transactionID string, fromPass model.Pass) error

	// Classification operations
	CommitPassOutcome(ctx context.Context, outcome *PassOutcome) error
	GetClassified(ctx context.Context, clientID, transactionID string) (*model.ClassifiedTransaction, error)
	ListClassified(ctx context.Context, clientID string) ([]model.ClassifiedTransaction, error)

	// Cache operations
	GetCachedResult(ctx context.Context, clientID, fingerprint string, pass model.Pass) ([]byte, bool, error)

	// Rule operations
	CreateRule(ctx context.Context, rule *model.BusinessRule) error
	ListRules(ctx context.Context, clientID string, activeOnly bool) ([]model.BusinessRule, error)
	UpdateRulePriority(ctx context.Context, id int64, priority int) error
	SetRuleActive(ctx context.Context, id int64, active bool) error

	// Taxonomy operations
	GetTaxCategories(ctx context.Context, clientID string, activeOnly bool) ([]model.TaxCategory, error)
	GetTaxCategoryByID(ctx context.Context, id int) (*model.TaxCategory, error)
	AddClientTaxCategory(ctx context.Context, cat *model.TaxCategory) (*model.TaxCategory, error)
	DeactivateTaxCategory(ctx context.Context, id int) error
	GetWorksheetTotals(ctx context.Context, clientID string, taxYear int) ([]model.WorksheetTotal, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
