package model

import (
	"fmt"
	"math"
	"time"
)

// Client is the identity root; every other entity is scoped by a client ID.
// Clients are created on first reference and never deleted by the core.
type Client struct {
	CreatedAt time.Time
	ID        string
	Name      string
}

// Transaction represents a single normalized financial transaction as
// supplied by the upstream statement normalizer.
type Transaction struct {
	Date             time.Time
	ClientID         string
	ID               string // unique per client
	Description      string
	Source           string // e.g. "chase_checking", "amex_gold"
	Type             string // DEBIT, CREDIT, CHECK, ...
	StatementPeriod  string
	Account          string
	Extra            map[string]any // open-ended metadata from the normalizer
	Amount           float64
	NormalizedAmount float64
}

// AmountBucketKey returns the width-100 bucket label for an amount,
// e.g. 150.00 -> "100-199". Negative amounts bucket on absolute value.
func AmountBucketKey(amount float64) string {
	abs := math.Abs(amount)
	low := int(math.Floor(abs/100) * 100)
	return fmt.Sprintf("%d-%d", low, low+99)
}

// Validate checks the integrity constraints the core requires of the
// upstream feed. Failing rows are excluded from the batch with a logged
// reason rather than silently dropped.
func (t *Transaction) Validate() error {
	if t.ClientID == "" {
		return fmt.Errorf("%w: missing client id", ErrInvalidTransaction)
	}
	if t.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidTransaction)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if t.Description == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidTransaction)
	}
	if t.Source == "" {
		return fmt.Errorf("%w: missing source", ErrInvalidTransaction)
	}
	return nil
}
