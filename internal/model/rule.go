package model

import (
	"fmt"
	"time"
)

// RuleType classifies what a business rule keys on.
type RuleType string

// Rule type constants.
const (
	RuleTypeCategory  RuleType = "category"
	RuleTypePayee     RuleType = "payee"
	RuleTypeAmount    RuleType = "amount"
	RuleTypeComposite RuleType = "composite"
)

// Valid reports whether t is a known rule type.
func (t RuleType) Valid() bool {
	switch t {
	case RuleTypeCategory, RuleTypePayee, RuleTypeAmount, RuleTypeComposite:
		return true
	}
	return false
}

// RuleOperator is a condition comparison operator.
type RuleOperator string

// Condition operators. greater_than/less_than require a numeric field
// value; a non-numeric field makes the condition false.
const (
	OpEquals      RuleOperator = "equals"
	OpContains    RuleOperator = "contains"
	OpGreaterThan RuleOperator = "greater_than"
	OpLessThan    RuleOperator = "less_than"
)

// Valid reports whether op is a known operator.
func (op RuleOperator) Valid() bool {
	switch op {
	case OpEquals, OpContains, OpGreaterThan, OpLessThan:
		return true
	}
	return false
}

// RuleCondition is one field test in a business rule's condition list.
type RuleCondition struct {
	Field    string       `json:"field"`
	Operator RuleOperator `json:"operator"`
	Value    any          `json:"value"`
}

// RuleAction sets a named field to a value when the rule matches.
type RuleAction struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// BusinessRule is a persisted deterministic override applied on top of AI
// classification output. Rules are immutable once validated except for
// priority and the active flag; deactivation is the only form of removal,
// so past tax-year computations stay reproducible.
type BusinessRule struct {
	CreatedAt   time.Time       `json:"created_at"`
	ClientID    string          `json:"client_id"`
	Name        string          `json:"name"` // unique per client
	Description string          `json:"description"`
	Type        RuleType        `json:"type"`
	Conditions  []RuleCondition `json:"conditions"`
	Actions     []RuleAction    `json:"actions"`
	Reasoning   string          `json:"reasoning,omitempty"`
	Confidence  Confidence      `json:"confidence,omitempty"`
	ID          int64           `json:"id"`
	Priority    int             `json:"priority"`
	IsActive    bool            `json:"is_active"`
	AIGenerated bool            `json:"ai_generated"`
}

// Validate ensures a rule is well formed before persistence.
func (r *BusinessRule) Validate() error {
	if r.ClientID == "" {
		return fmt.Errorf("rule client id is required")
	}
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if !r.Type.Valid() {
		return fmt.Errorf("invalid rule type %q", r.Type)
	}
	if len(r.Conditions) == 0 {
		return fmt.Errorf("rule %q has no conditions", r.Name)
	}
	if len(r.Actions) == 0 {
		return fmt.Errorf("rule %q has no actions", r.Name)
	}
	for i, c := range r.Conditions {
		if c.Field == "" {
			return fmt.Errorf("rule %q condition %d: field is required", r.Name, i)
		}
		if !c.Operator.Valid() {
			return fmt.Errorf("rule %q condition %d: invalid operator %q", r.Name, i, c.Operator)
		}
	}
	for i, a := range r.Actions {
		if a.Field == "" {
			return fmt.Errorf("rule %q action %d: field is required", r.Name, i)
		}
	}
	return nil
}

// CandidateRule is a mined rule proposal awaiting backtest validation.
// The confidence is the generator's self-report; it feeds the accuracy
// gate's secondary threshold.
type CandidateRule struct {
	Rule       BusinessRule
	Confidence Confidence
}

// BacktestResult captures one candidate's backtest outcome.
type BacktestResult struct {
	Rule            BusinessRule
	Reason          string
	Matches         int
	TotalApplicable int
	Accuracy        float64
	Accepted        bool
}
