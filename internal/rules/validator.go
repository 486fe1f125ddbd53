package rules

import (
	"fmt"

	"github.com/ledgerworks/taxpass/internal/model"
)

// Accuracy gate thresholds. A candidate clears the gate outright at the
// accept threshold, or at the provisional threshold when its self-reported
// confidence is high.
const (
	acceptAccuracy      = 0.90
	provisionalAccuracy = 0.70
)

// Backtest evaluates one candidate rule against classified history.
// total_applicable counts transactions the rule's conditions match;
// matches counts the subset whose current field values already equal the
// rule's proposed actions. Accuracy is zero when nothing is applicable.
func Backtest(candidate model.CandidateRule, history []model.ClassifiedTransaction) model.BacktestResult {
	result := model.BacktestResult{Rule: candidate.Rule}

	for i := range history {
		view := history[i].FieldView()
		if !ruleMatches(&candidate.Rule, view) {
			continue
		}
		result.TotalApplicable++
		if actionsAgree(candidate.Rule.Actions, view) {
			result.Matches++
		}
	}

	if result.TotalApplicable > 0 {
		result.Accuracy = float64(result.Matches) / float64(result.TotalApplicable)
	}

	switch {
	case result.TotalApplicable == 0:
		result.Reason = "no applicable history"
	case result.Accuracy >= acceptAccuracy:
		result.Accepted = true
		result.Reason = fmt.Sprintf("accuracy %.2f meets %.2f threshold", result.Accuracy, acceptAccuracy)
	case result.Accuracy >= provisionalAccuracy && candidate.Confidence == model.ConfidenceHigh:
		result.Accepted = true
		result.Reason = fmt.Sprintf("accuracy %.2f with high confidence meets %.2f threshold", result.Accuracy, provisionalAccuracy)
	default:
		result.Reason = fmt.Sprintf("accuracy %.2f below threshold (confidence %s)", result.Accuracy, candidate.Confidence)
	}

	return result
}

// actionsAgree reports whether the view's current values already equal
// every action's proposed value.
func actionsAgree(actions []model.RuleAction, view map[string]any) bool {
	for _, action := range actions {
		current, ok := view[action.Field]
		if !ok || !valuesEqual(current, action.Value) {
			return false
		}
	}
	return true
}
