// Package rules implements the deterministic override engine: condition
// evaluation, priority-ordered application, mining from classified
// history, and backtest validation.
package rules

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ledgerworks/taxpass/internal/model"
)

// toFloat coerces the numeric types that reach us from JSON decoding and
// from transaction fields. Strings are deliberately not parsed: a numeric
// comparison against a non-numeric field fails closed.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// valuesEqual implements the equals operator: numeric equality when both
// sides are numbers, string-form equality otherwise.
func valuesEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

// evaluateCondition tests one condition against a field view. A field
// missing from the view makes the condition false.
func evaluateCondition(view map[string]any, cond model.RuleCondition) bool {
	fieldValue, ok := view[cond.Field]
	if !ok {
		return false
	}

	switch cond.Operator {
	case model.OpEquals:
		return valuesEqual(fieldValue, cond.Value)
	case model.OpContains:
		needle, ok := cond.Value.(string)
		if !ok {
			return false
		}
		haystack := fmt.Sprintf("%v", fieldValue)
		return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
	case model.OpGreaterThan:
		fv, fok := toFloat(fieldValue)
		cv, cok := toFloat(cond.Value)
		return fok && cok && fv > cv
	case model.OpLessThan:
		fv, fok := toFloat(fieldValue)
		cv, cok := toFloat(cond.Value)
		return fok && cok && fv < cv
	}
	return false
}

// ruleMatches reports whether every condition of the rule holds against
// the view. Conditions are conjunctive.
func ruleMatches(rule *model.BusinessRule, view map[string]any) bool {
	if len(rule.Conditions) == 0 {
		return false
	}
	for _, cond := range rule.Conditions {
		if !evaluateCondition(view, cond) {
			return false
		}
	}
	return true
}
