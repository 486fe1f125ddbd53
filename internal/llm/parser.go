package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ledgerworks/taxpass/internal/common"
	"github.com/ledgerworks/taxpass/internal/model"
	"github.com/ledgerworks/taxpass/internal/taxonomy"
)

// taxonomyBound returns the highest valid tax_category_id for a request:
// the largest id among the offered categories, or the fixed taxonomy size
// when none were attached.
func taxonomyBound(req PassRequest) int {
	bound := 0
	for _, cat := range req.Categories {
		if cat.ID > bound {
			bound = cat.ID
		}
	}
	if bound == 0 {
		return taxonomy.Size()
	}
	return bound
}

// cleanMarkdownWrapper strips markdown code fences models sometimes wrap
// JSON responses in.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}

	return strings.TrimSpace(content)
}

// parsePayeeResult parses and validates a payee-pass response. Anything
// that does not match the expected shape is a malformed-response error,
// which the executor records as a pass failure.
func parsePayeeResult(content string) (*model.PayeeResult, error) {
	var raw struct {
		Payee               string `json:"payee"`
		Confidence          string `json:"confidence"`
		Reasoning           string `json:"reasoning"`
		BusinessDescription string `json:"business_description"`
		GeneralCategory     string `json:"general_category"`
	}
	if err := json.Unmarshal([]byte(cleanMarkdownWrapper(content)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}
	if raw.Payee == "" {
		return nil, fmt.Errorf("%w: missing payee", common.ErrMalformedResponse)
	}

	confidence, err := model.ParseConfidence(raw.Confidence)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}

	return &model.PayeeResult{
		Payee:               raw.Payee,
		Confidence:          confidence,
		Reasoning:           raw.Reasoning,
		BusinessDescription: raw.BusinessDescription,
		GeneralCategory:     raw.GeneralCategory,
	}, nil
}

// parseCategoryResult parses and validates a category-pass response.
func parseCategoryResult(content string) (*model.CategoryResult, error) {
	var raw struct {
		Category           string `json:"category"`
		ExpenseType        string `json:"expense_type"`
		Notes              string `json:"notes"`
		Confidence         string `json:"confidence"`
		SuggestedCategory  string `json:"suggested_new_category"`
		BusinessPercentage *int   `json:"business_percentage"`
	}
	if err := json.Unmarshal([]byte(cleanMarkdownWrapper(content)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}
	if raw.Category == "" {
		return nil, fmt.Errorf("%w: missing category", common.ErrMalformedResponse)
	}
	if raw.BusinessPercentage == nil {
		return nil, fmt.Errorf("%w: missing business_percentage", common.ErrMalformedResponse)
	}
	if *raw.BusinessPercentage < 0 || *raw.BusinessPercentage > 100 {
		return nil, fmt.Errorf("%w: business_percentage %d out of range", common.ErrMalformedResponse, *raw.BusinessPercentage)
	}

	result := &model.CategoryResult{
		Category:           raw.Category,
		ExpenseType:        raw.ExpenseType,
		Notes:              raw.Notes,
		SuggestedCategory:  raw.SuggestedCategory,
		BusinessPercentage: *raw.BusinessPercentage,
	}

	// Confidence is optional on the category pass.
	if raw.Confidence != "" {
		confidence, err := model.ParseConfidence(raw.Confidence)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
		}
		result.Confidence = confidence
	}

	return result, nil
}

// parseBusinessResult parses and validates a business-pass response.
// taxonomySize is N, the size of the fixed taxonomy; tax_category_id must
// fall in [1, N].
func parseBusinessResult(content string, taxonomySize int) (*model.BusinessResult, error) {
	var raw struct {
		Worksheet          string `json:"worksheet"`
		Confidence         string `json:"confidence"`
		Reasoning          string `json:"reasoning"`
		TaxImplications    string `json:"tax_implications"`
		TaxCategoryID      *int   `json:"tax_category_id"`
		BusinessPercentage *int   `json:"business_percentage"`
	}
	if err := json.Unmarshal([]byte(cleanMarkdownWrapper(content)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}
	if raw.TaxCategoryID == nil {
		return nil, fmt.Errorf("%w: missing tax_category_id", common.ErrMalformedResponse)
	}
	if *raw.TaxCategoryID < 1 || *raw.TaxCategoryID > taxonomySize {
		return nil, fmt.Errorf("%w: tax_category_id %d out of range [1, %d]", common.ErrMalformedResponse, *raw.TaxCategoryID, taxonomySize)
	}
	if raw.BusinessPercentage == nil {
		return nil, fmt.Errorf("%w: missing business_percentage", common.ErrMalformedResponse)
	}
	if *raw.BusinessPercentage < 0 || *raw.BusinessPercentage > 100 {
		return nil, fmt.Errorf("%w: business_percentage %d out of range", common.ErrMalformedResponse, *raw.BusinessPercentage)
	}

	worksheet := model.Worksheet(raw.Worksheet)
	if !worksheet.Valid() {
		return nil, fmt.Errorf("%w: unknown worksheet %q", common.ErrMalformedResponse, raw.Worksheet)
	}

	confidence, err := model.ParseConfidence(raw.Confidence)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}

	return &model.BusinessResult{
		Worksheet:          worksheet,
		Confidence:         confidence,
		Reasoning:          raw.Reasoning,
		TaxImplications:    raw.TaxImplications,
		TaxCategoryID:      *raw.TaxCategoryID,
		BusinessPercentage: *raw.BusinessPercentage,
	}, nil
}

// parseRuleCandidates parses a rule-generation response into candidate
// rules. Conditions and actions are validated structurally; the accuracy
// gate does the semantic vetting.
func parseRuleCandidates(content, clientID string) ([]model.CandidateRule, error) {
	var raw struct {
		Rules []struct {
			Name        string                `json:"name"`
			Description string                `json:"description"`
			Type        string                `json:"type"`
			Conditions  []model.RuleCondition `json:"conditions"`
			Actions     []model.RuleAction    `json:"actions"`
			Priority    int                   `json:"priority"`
			Confidence  string                `json:"confidence"`
			Reasoning   string                `json:"reasoning"`
		} `json:"rules"`
	}
	if err := json.Unmarshal([]byte(cleanMarkdownWrapper(content)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedResponse, err)
	}

	candidates := make([]model.CandidateRule, 0, len(raw.Rules))
	for i, r := range raw.Rules {
		confidence, err := model.ParseConfidence(r.Confidence)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %d: %v", common.ErrMalformedResponse, i, err)
		}

		rule := model.BusinessRule{
			ClientID:    clientID,
			Name:        r.Name,
			Description: r.Description,
			Type:        model.RuleType(r.Type),
			Conditions:  r.Conditions,
			Actions:     r.Actions,
			Priority:    r.Priority,
			Reasoning:   r.Reasoning,
			Confidence:  confidence,
			IsActive:    true,
			AIGenerated: true,
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("%w: rule %d: %v", common.ErrMalformedResponse, i, err)
		}

		candidates = append(candidates, model.CandidateRule{
			Rule:       rule,
			Confidence: confidence,
		})
	}
	return candidates, nil
}
