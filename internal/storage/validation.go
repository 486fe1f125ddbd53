package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledgerworks/taxpass/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidPass      = errors.New("invalid pass")
	ErrInvalidRule      = errors.New("invalid rule")
	ErrCategoryNotFound = errors.New("tax category not found")
	ErrClientNotFound   = errors.New("client not found")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validatePass ensures a pass index is one of the three known passes.
func validatePass(p model.Pass) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPass, int(p))
	}
	return nil
}

// validateKey validates the (client, transaction) key shared by most
// status and classification operations.
func validateKey(ctx context.Context, clientID, transactionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(clientID, "clientID"); err != nil {
		return err
	}
	return validateString(transactionID, "transactionID")
}
