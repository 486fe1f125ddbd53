package model

import (
	"errors"
	"time"
)

// ErrInvalidTransaction marks data-integrity failures on feed rows.
var ErrInvalidTransaction = errors.New("invalid transaction")

// ErrPassNotCompleted is returned by the checked accessors when a pass's
// fields are read before that pass has completed.
var ErrPassNotCompleted = errors.New("pass not completed")

// PayeeResult holds the output of the payee identification pass.
type PayeeResult struct {
	Payee               string     `json:"payee"`
	Confidence          Confidence `json:"confidence"`
	Reasoning           string     `json:"reasoning"`
	BusinessDescription string     `json:"business_description,omitempty"`
	GeneralCategory     string     `json:"general_category,omitempty"`
}

// CategoryResult holds the output of the category assignment pass.
type CategoryResult struct {
	Category           string     `json:"category"`
	ExpenseType        string     `json:"expense_type"`
	Notes              string     `json:"notes"`
	Confidence         Confidence `json:"confidence,omitempty"`
	SuggestedCategory  string     `json:"suggested_new_category,omitempty"`
	BusinessPercentage int        `json:"business_percentage"`
}

// BusinessResult holds the output of the business/personal pass, including
// the derived tax fields.
type BusinessResult struct {
	Worksheet          Worksheet  `json:"worksheet"`
	Confidence         Confidence `json:"confidence"`
	Reasoning          string     `json:"reasoning"`
	TaxImplications    string     `json:"tax_implications,omitempty"`
	TaxCategoryID      int        `json:"tax_category_id"`
	BusinessPercentage int        `json:"business_percentage"`
}

// ClassificationRecord is the wide per-transaction record merging the
// outputs of all three passes. A sub-struct is populated only once its
// pass status is completed; use the checked accessors rather than reading
// the fields directly, so the gating invariant stays visible in code.
type ClassificationRecord struct {
	UpdatedAt     time.Time
	ClientID      string
	TransactionID string
	Payee         *PayeeResult
	Category      *CategoryResult
	Business      *BusinessResult
	NeedsReview   bool
}

// CompletedPayee returns the payee pass result, or ErrPassNotCompleted if
// the pass has not completed according to the status row.
func (r *ClassificationRecord) CompletedPayee(ps *ProcessingStatus) (*PayeeResult, error) {
	if ps == nil || !ps.Completed(PassPayee) || r.Payee == nil {
		return nil, ErrPassNotCompleted
	}
	return r.Payee, nil
}

// CompletedCategory returns the category pass result, gated on status.
func (r *ClassificationRecord) CompletedCategory(ps *ProcessingStatus) (*CategoryResult, error) {
	if ps == nil || !ps.Completed(PassCategory) || r.Category == nil {
		return nil, ErrPassNotCompleted
	}
	return r.Category, nil
}

// CompletedBusiness returns the business pass result, gated on status.
func (r *ClassificationRecord) CompletedBusiness(ps *ProcessingStatus) (*BusinessResult, error) {
	if ps == nil || !ps.Completed(PassBusiness) || r.Business == nil {
		return nil, ErrPassNotCompleted
	}
	return r.Business, nil
}

// BusinessAmount returns the business-percentage-weighted amount for a
// transaction, used by worksheet totals. Zero until the business pass has
// completed.
func (r *ClassificationRecord) BusinessAmount(ps *ProcessingStatus, amount float64) float64 {
	biz, err := r.CompletedBusiness(ps)
	if err != nil {
		return 0
	}
	return amount * float64(biz.BusinessPercentage) / 100
}
