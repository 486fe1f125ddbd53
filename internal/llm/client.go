// Package llm provides the AI-pass collaborator clients for the three
// classification passes and for rule candidate generation.
package llm

import (
	"context"
	"time"

	"github.com/ledgerworks/taxpass/internal/model"
)

// PassRequest carries the structured context sent for one classification
// call: the transaction's facts plus the outputs of earlier passes and
// the taxonomy the model may choose from.
type PassRequest struct {
	Date               time.Time
	Description        string
	Source             string
	Payee              string // from the payee pass, for later passes
	GeneralCategory    string // from the payee pass
	Category           string // from the category pass, for the business pass
	ExpenseType        string
	Categories         []model.TaxCategory
	Amount             float64
	BusinessPercentage int
}

// RuleGroup is one grouping of classified history handed to rule candidate
// generation: transactions sharing a payee, a category, or an amount
// bucket.
type RuleGroup struct {
	Kind         string // "payee", "category", or "amount"
	Key          string
	Transactions []model.ClassifiedTransaction
}

// Client defines the contract with the AI-pass collaborator. A response
// that does not parse into the expected shape is an error, never a
// silently coerced result.
type Client interface {
	IdentifyPayee(ctx context.Context, req PassRequest) (*model.PayeeResult, error)
	AssignCategory(ctx context.Context, req PassRequest) (*model.CategoryResult, error)
	ClassifyBusiness(ctx context.Context, req PassRequest) (*model.BusinessResult, error)
	GenerateRuleCandidates(ctx context.Context, group RuleGroup) ([]model.CandidateRule, error)
	Close() error
}

// Config holds configuration for the LLM clients.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	RateLimit   int
	Timeout     time.Duration
}
