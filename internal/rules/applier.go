package rules

import (
	"sort"

	"github.com/ledgerworks/taxpass/internal/model"
)

// ApplierConfig tunes rule application.
type ApplierConfig struct {
	// FirstMatchWins changes contested-field resolution. The default
	// (false) iterates rules by priority descending and overwrites the
	// action fields on every match, so when two matching rules write the
	// same field, the later-iterated, lower-priority rule's value is the
	// one left standing. That overwrite order is the historically
	// observed behavior and is preserved as the default even though the
	// priority sort suggests the opposite intent. Setting FirstMatchWins
	// makes the first (highest-priority) matching rule win each field
	// instead.
	FirstMatchWins bool
}

// Application is the result of overlaying the rule set onto one
// transaction's classification view.
type Application struct {
	// Fields is the final field view with rule overrides applied.
	Fields map[string]any
	// Overridden lists the field names any rule wrote.
	Overridden []string
	// Matched holds the rules whose conditions matched, in iteration
	// order.
	Matched []model.BusinessRule
}

// Applier overlays active business rules onto classified transactions.
type Applier struct {
	rules []model.BusinessRule
	cfg   ApplierConfig
}

// NewApplier builds an applier over the given rule set. Inactive rules
// are dropped; the rest are sorted by priority descending, with rule id
// ascending as the tie-break so application order is stable.
func NewApplier(ruleSet []model.BusinessRule, cfg ApplierConfig) *Applier {
	active := make([]model.BusinessRule, 0, len(ruleSet))
	for _, r := range ruleSet {
		if r.IsActive {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority > active[j].Priority
		}
		return active[i].ID < active[j].ID
	})
	return &Applier{rules: active, cfg: cfg}
}

// Rules returns the active rules in application order.
func (a *Applier) Rules() []model.BusinessRule {
	return a.rules
}

// Apply overlays the rule set onto a transaction's field view. Conditions
// are evaluated against the working copy, so a rule can match on a field
// an earlier rule wrote.
func (a *Applier) Apply(ct *model.ClassifiedTransaction) *Application {
	view := ct.FieldView()
	written := make(map[string]bool)
	app := &Application{Fields: view}

	for i := range a.rules {
		rule := &a.rules[i]
		if !ruleMatches(rule, view) {
			continue
		}
		app.Matched = append(app.Matched, *rule)
		for _, action := range rule.Actions {
			if a.cfg.FirstMatchWins && written[action.Field] {
				continue
			}
			view[action.Field] = action.Value
			if !written[action.Field] {
				written[action.Field] = true
				app.Overridden = append(app.Overridden, action.Field)
			}
		}
	}
	return app
}
