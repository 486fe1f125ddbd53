// Package model defines the core domain models used throughout the application.
package model

import "time"

// Pass identifies one of the three classification stages applied to a
// transaction, in execution order.
type Pass int

// Pass constants, in pipeline order. Later passes consume earlier passes'
// outputs as context, so a transaction's passes always run in this order.
const (
	PassPayee Pass = iota
	PassCategory
	PassBusiness

	// PassCount is the number of classification passes.
	PassCount = 3
)

// String returns the stable name used in persistence and cache keys.
func (p Pass) String() string {
	switch p {
	case PassPayee:
		return "payee"
	case PassCategory:
		return "category"
	case PassBusiness:
		return "business"
	default:
		return "unknown"
	}
}

// Valid reports whether p is one of the three known passes.
func (p Pass) Valid() bool {
	return p >= PassPayee && p <= PassBusiness
}

// PassStatus is the per-pass processing state of a transaction.
type PassStatus string

// Pass status constants.
const (
	StatusPending       PassStatus = "pending"
	StatusProcessing    PassStatus = "processing"
	StatusCompleted     PassStatus = "completed"
	StatusError         PassStatus = "error"
	StatusSkipped       PassStatus = "skipped"
	StatusForceRequired PassStatus = "force_required"
)

// Valid reports whether s is a known pass status.
func (s PassStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusError, StatusSkipped, StatusForceRequired:
		return true
	}
	return false
}

// Eligible reports whether a pass in this state should be picked up by the
// executor. force_required is treated the same as pending; error rows stay
// eligible so an interrupted or failed run can be retried.
func (s PassStatus) Eligible() bool {
	switch s {
	case StatusPending, StatusForceRequired, StatusError:
		return true
	}
	return false
}

// PassState is the recorded state of a single pass for one transaction.
type PassState struct {
	UpdatedAt time.Time
	Status    PassStatus
	Error     string
}

// ProcessingStatus is the resumability anchor: one row per (client,
// transaction) holding an independent state per pass. Created lazily with
// all passes pending the first time a transaction is seen.
type ProcessingStatus struct {
	ClientID      string
	TransactionID string
	Passes        [PassCount]PassState
}

// NewProcessingStatus returns a status row with all passes pending.
func NewProcessingStatus(clientID, transactionID string) *ProcessingStatus {
	ps := &ProcessingStatus{ClientID: clientID, TransactionID: transactionID}
	for i := range ps.Passes {
		ps.Passes[i].Status = StatusPending
	}
	return ps
}

// State returns the recorded state for a pass.
func (ps *ProcessingStatus) State(p Pass) PassState {
	return ps.Passes[p]
}

// Completed reports whether the given pass has finished successfully.
func (ps *ProcessingStatus) Completed(p Pass) bool {
	return ps.Passes[p].Status == StatusCompleted
}
