package llm

import (
	"errors"
	"testing"

	"github.com/ledgerworks/taxpass/internal/common"
	"github.com/ledgerworks/taxpass/internal/model"
	"github.com/ledgerworks/taxpass/internal/taxonomy"
)

func TestCleanMarkdownWrapper(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bare json", `{"payee": "AWS"}`, `{"payee": "AWS"}`},
		{"plain fence", "```\n{\"payee\": \"AWS\"}\n```", `{"payee": "AWS"}`},
		{"json fence", "```json\n{\"payee\": \"AWS\"}\n```", `{"payee": "AWS"}`},
		{"surrounding whitespace", "  \n{\"payee\": \"AWS\"}\n  ", `{"payee": "AWS"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanMarkdownWrapper(tt.content); got != tt.want {
				t.Errorf("cleanMarkdownWrapper() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParsePayeeResult(t *testing.T) {
	result, err := parsePayeeResult("```json\n" + `{
		"payee": "Amazon Web Services",
		"confidence": "High",
		"reasoning": "AWS billing descriptor",
		"general_category": "Software"
	}` + "\n```")
	if err != nil {
		t.Fatalf("parsePayeeResult: %v", err)
	}
	if result.Payee != "Amazon Web Services" {
		t.Errorf("payee = %q", result.Payee)
	}
	if result.Confidence != model.ConfidenceHigh {
		t.Errorf("confidence = %q, want normalized high", result.Confidence)
	}
}

func TestParsePayeeResultMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "I think this is Amazon Web Services."},
		{"missing payee", `{"confidence": "high"}`},
		{"numeric confidence", `{"payee": "AWS", "confidence": "0.95"}`},
		{"unknown confidence", `{"payee": "AWS", "confidence": "certain"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parsePayeeResult(tt.content); !errors.Is(err, common.ErrMalformedResponse) {
				t.Errorf("err = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestParseCategoryResult(t *testing.T) {
	result, err := parseCategoryResult(`{
		"category": "Software",
		"expense_type": "business",
		"business_percentage": 100,
		"notes": "recurring subscription"
	}`)
	if err != nil {
		t.Fatalf("parseCategoryResult: %v", err)
	}
	if result.Category != "Software" || result.BusinessPercentage != 100 {
		t.Errorf("result = %+v", result)
	}
	// Confidence is optional on this pass.
	if result.Confidence != "" {
		t.Errorf("confidence = %q, want empty", result.Confidence)
	}

	// Zero percent is valid and distinct from missing.
	result, err = parseCategoryResult(`{"category": "Meals", "expense_type": "personal", "business_percentage": 0}`)
	if err != nil {
		t.Fatalf("zero percentage rejected: %v", err)
	}
	if result.BusinessPercentage != 0 {
		t.Errorf("business_percentage = %d, want 0", result.BusinessPercentage)
	}
}

func TestParseCategoryResultMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing category", `{"business_percentage": 100}`},
		{"missing percentage", `{"category": "Software"}`},
		{"percentage over 100", `{"category": "Software", "business_percentage": 150}`},
		{"negative percentage", `{"category": "Software", "business_percentage": -5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseCategoryResult(tt.content); !errors.Is(err, common.ErrMalformedResponse) {
				t.Errorf("err = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestParseBusinessResult(t *testing.T) {
	result, err := parseBusinessResult(`{
		"worksheet": "6A",
		"confidence": "high",
		"tax_category_id": 3,
		"business_percentage": 50,
		"reasoning": "mixed-use subscription"
	}`, taxonomy.Size())
	if err != nil {
		t.Fatalf("parseBusinessResult: %v", err)
	}
	if result.Worksheet != model.Worksheet6A || result.TaxCategoryID != 3 || result.BusinessPercentage != 50 {
		t.Errorf("result = %+v", result)
	}
}

func TestParseBusinessResultMalformed(t *testing.T) {
	n := taxonomy.Size()
	tests := []struct {
		name    string
		content string
	}{
		{"missing tax_category_id", `{"worksheet": "6A", "confidence": "high", "business_percentage": 100}`},
		{"tax_category_id zero", `{"worksheet": "6A", "confidence": "high", "tax_category_id": 0, "business_percentage": 100}`},
		{"tax_category_id beyond taxonomy", `{"worksheet": "6A", "confidence": "high", "tax_category_id": 999, "business_percentage": 100}`},
		{"unknown worksheet", `{"worksheet": "Schedule C", "confidence": "high", "tax_category_id": 3, "business_percentage": 100}`},
		{"missing percentage", `{"worksheet": "6A", "confidence": "high", "tax_category_id": 3}`},
		{"missing confidence", `{"worksheet": "6A", "tax_category_id": 3, "business_percentage": 100}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseBusinessResult(tt.content, n); !errors.Is(err, common.ErrMalformedResponse) {
				t.Errorf("err = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestParseBusinessResultRespectsExtendedBound(t *testing.T) {
	// Client-added categories extend the valid id range.
	content := `{"worksheet": "6A", "confidence": "high", "tax_category_id": 30, "business_percentage": 100}`
	if _, err := parseBusinessResult(content, taxonomy.Size()); err == nil {
		t.Error("id 30 accepted against the fixed taxonomy")
	}
	if _, err := parseBusinessResult(content, 30); err != nil {
		t.Errorf("id 30 rejected against an extended taxonomy: %v", err)
	}
}

func TestTaxonomyBound(t *testing.T) {
	if got := taxonomyBound(PassRequest{}); got != taxonomy.Size() {
		t.Errorf("empty request bound = %d, want %d", got, taxonomy.Size())
	}
	req := PassRequest{Categories: []model.TaxCategory{{ID: 2}, {ID: 31}, {ID: 7}}}
	if got := taxonomyBound(req); got != 31 {
		t.Errorf("bound = %d, want 31", got)
	}
}

func TestParseRuleCandidates(t *testing.T) {
	content := `{
		"rules": [
			{
				"name": "aws-software",
				"description": "AWS charges are software",
				"type": "category",
				"conditions": [{"field": "description", "operator": "contains", "value": "aws"}],
				"actions": [{"field": "category", "value": "Software"}],
				"priority": 60,
				"confidence": "high"
			}
		]
	}`
	candidates, err := parseRuleCandidates(content, "c1")
	if err != nil {
		t.Fatalf("parseRuleCandidates: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(candidates))
	}
	rule := candidates[0].Rule
	if rule.ClientID != "c1" || !rule.IsActive || !rule.AIGenerated {
		t.Errorf("rule = %+v", rule)
	}
	if rule.Name != "aws-software" || len(rule.Conditions) != 1 || len(rule.Actions) != 1 {
		t.Errorf("rule shape = %+v", rule)
	}
}

func TestParseRuleCandidatesMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "no rules today"},
		{"no conditions", `{"rules": [{"name": "r", "type": "category", "conditions": [], "actions": [{"field": "category", "value": "Software"}], "confidence": "high"}]}`},
		{"no actions", `{"rules": [{"name": "r", "type": "category", "conditions": [{"field": "description", "operator": "contains", "value": "aws"}], "actions": [], "confidence": "high"}]}`},
		{"bad operator", `{"rules": [{"name": "r", "type": "category", "conditions": [{"field": "description", "operator": "matches", "value": "aws"}], "actions": [{"field": "category", "value": "Software"}], "confidence": "high"}]}`},
		{"bad type", `{"rules": [{"name": "r", "type": "regex", "conditions": [{"field": "description", "operator": "contains", "value": "aws"}], "actions": [{"field": "category", "value": "Software"}], "confidence": "high"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseRuleCandidates(tt.content, "c1"); !errors.Is(err, common.ErrMalformedResponse) {
				t.Errorf("err = %v, want ErrMalformedResponse", err)
			}
		})
	}
}
