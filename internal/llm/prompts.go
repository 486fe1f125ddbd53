package llm

import (
	"fmt"
	"strings"
)

const (
	payeeSystemPrompt    = "You are a financial transaction analyst. Identify the real-world payee behind bank statement descriptions. Respond only with JSON in the exact shape requested."
	categorySystemPrompt = "You are a financial transaction analyst. Assign a descriptive spending category and business-use percentage. Respond only with JSON in the exact shape requested."
	businessSystemPrompt = "You are a tax preparation analyst. Map transactions onto tax worksheet categories. Respond only with JSON in the exact shape requested."
	ruleSystemPrompt     = "You are a financial rules analyst. Propose deterministic classification rules generalizing the examples given. Respond only with JSON in the exact shape requested."
)

func buildPayeePrompt(req PassRequest) string {
	var b strings.Builder
	b.WriteString("Identify the payee for this transaction:\n\n")
	fmt.Fprintf(&b, "Date: %s\n", req.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "Description: %s\n", req.Description)
	fmt.Fprintf(&b, "Amount: %.2f\n", req.Amount)
	fmt.Fprintf(&b, "Source: %s\n", req.Source)
	b.WriteString(`
Respond with JSON only:
{
  "payee": "canonical payee name",
  "confidence": "high|medium|low",
  "reasoning": "one sentence",
  "business_description": "what this payee does",
  "general_category": "broad category, e.g. Software, Travel, Meals"
}`)
	return b.String()
}

func buildCategoryPrompt(req PassRequest) string {
	var b strings.Builder
	b.WriteString("Assign a spending category for this transaction:\n\n")
	fmt.Fprintf(&b, "Date: %s\n", req.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "Description: %s\n", req.Description)
	fmt.Fprintf(&b, "Amount: %.2f\n", req.Amount)
	fmt.Fprintf(&b, "Payee: %s\n", req.Payee)
	fmt.Fprintf(&b, "General category: %s\n", req.GeneralCategory)
	b.WriteString(`
Respond with JSON only:
{
  "category": "specific category name",
  "expense_type": "recurring|one-time|subscription",
  "notes": "optional notes",
  "confidence": "high|medium|low",
  "suggested_new_category": "only if no existing category fits",
  "business_percentage": 0-100
}`)
	return b.String()
}

func buildBusinessPrompt(req PassRequest) string {
	var b strings.Builder
	b.WriteString("Map this transaction onto a tax worksheet category:\n\n")
	fmt.Fprintf(&b, "Date: %s\n", req.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "Description: %s\n", req.Description)
	fmt.Fprintf(&b, "Amount: %.2f\n", req.Amount)
	fmt.Fprintf(&b, "Payee: %s\n", req.Payee)
	fmt.Fprintf(&b, "Category: %s\n", req.Category)
	fmt.Fprintf(&b, "Business percentage estimate: %d\n", req.BusinessPercentage)

	b.WriteString("\nAvailable tax categories (choose one by id):\n")
	for _, cat := range req.Categories {
		fmt.Fprintf(&b, "  %d. [%s] %s\n", cat.ID, cat.Worksheet, cat.Name)
	}

	b.WriteString(`
Respond with JSON only:
{
  "worksheet": "6A|Vehicle|HomeOffice|Personal",
  "confidence": "high|medium|low",
  "reasoning": "one sentence",
  "tax_implications": "optional note",
  "tax_category_id": <id from the list above>,
  "business_percentage": 0-100
}`)
	return b.String()
}

func buildRulePrompt(group RuleGroup) string {
	var b strings.Builder
	fmt.Fprintf(&b, "These classified transactions share the same %s (%q). Propose rules that would classify future transactions like them without AI involvement.\n\n", group.Kind, group.Key)

	for _, ct := range group.Transactions {
		fmt.Fprintf(&b, "- %s | %.2f | %s", ct.Transaction.Date.Format("2006-01-02"), ct.Transaction.Amount, ct.Transaction.Description)
		if payee, err := ct.Record.CompletedPayee(ct.Status); err == nil {
			fmt.Fprintf(&b, " | payee=%s", payee.Payee)
		}
		if cat, err := ct.Record.CompletedCategory(ct.Status); err == nil {
			fmt.Fprintf(&b, " | category=%s | business_pct=%d", cat.Category, cat.BusinessPercentage)
		}
		b.WriteString("\n")
	}

	b.WriteString(`
Rule conditions use fields (description, amount, payee, category, source) with
operators equals, contains, greater_than, less_than. Actions set output fields
such as category, payee, or business_percentage.

Respond with JSON only:
{
  "rules": [
    {
      "name": "short unique name",
      "description": "what the rule does",
      "type": "category|payee|amount|composite",
      "conditions": [{"field": "...", "operator": "...", "value": ...}],
      "actions": [{"field": "...", "value": ...}],
      "priority": 0-100,
      "confidence": "high|medium|low",
      "reasoning": "one sentence"
    }
  ]
}`)
	return b.String()
}
