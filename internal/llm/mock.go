package llm

import (
	"context"
	"strings"
	"sync"

	"github.com/ledgerworks/taxpass/internal/model"
)

// MockClient is a deterministic test implementation of the Client
// interface. Responses derive from the transaction description, and
// per-method error and override hooks let tests force failures.
type MockClient struct {
	PayeeErr    error
	CategoryErr error
	BusinessErr error
	RulesErr    error

	PayeeFunc    func(req PassRequest) (*model.PayeeResult, error)
	CategoryFunc func(req PassRequest) (*model.CategoryResult, error)
	BusinessFunc func(req PassRequest) (*model.BusinessResult, error)
	RulesFunc    func(group RuleGroup) ([]model.CandidateRule, error)

	mu            sync.Mutex
	payeeCalls    int
	categoryCalls int
	businessCalls int
	ruleCalls     int
}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) IdentifyPayee(_ context.Context, req PassRequest) (*model.PayeeResult, error) {
	m.mu.Lock()
	m.payeeCalls++
	m.mu.Unlock()

	if m.PayeeFunc != nil {
		return m.PayeeFunc(req)
	}
	if m.PayeeErr != nil {
		return nil, m.PayeeErr
	}

	desc := strings.ToLower(req.Description)
	payee := req.Description
	if fields := strings.Fields(req.Description); len(fields) > 0 {
		payee = fields[0]
	}
	result := &model.PayeeResult{
		Payee:           payee,
		Confidence:      model.ConfidenceHigh,
		Reasoning:       "derived from description",
		GeneralCategory: "Other",
	}
	switch {
	case strings.Contains(desc, "aws") || strings.Contains(desc, "github"):
		result.GeneralCategory = "Software"
		result.BusinessDescription = "Cloud and developer services"
	case strings.Contains(desc, "starbucks") || strings.Contains(desc, "coffee"):
		result.GeneralCategory = "Meals"
		result.Confidence = model.ConfidenceMedium
	case strings.Contains(desc, "shell") || strings.Contains(desc, "chevron"):
		result.GeneralCategory = "Vehicle"
	}
	return result, nil
}

func (m *MockClient) AssignCategory(_ context.Context, req PassRequest) (*model.CategoryResult, error) {
	m.mu.Lock()
	m.categoryCalls++
	m.mu.Unlock()

	if m.CategoryFunc != nil {
		return m.CategoryFunc(req)
	}
	if m.CategoryErr != nil {
		return nil, m.CategoryErr
	}

	result := &model.CategoryResult{
		Category:           req.GeneralCategory,
		ExpenseType:        "one-time",
		Confidence:         model.ConfidenceHigh,
		BusinessPercentage: 100,
	}
	if result.Category == "" {
		result.Category = "Other"
	}
	if result.Category == "Meals" {
		result.BusinessPercentage = 50
		result.Confidence = model.ConfidenceMedium
	}
	return result, nil
}

func (m *MockClient) ClassifyBusiness(_ context.Context, req PassRequest) (*model.BusinessResult, error) {
	m.mu.Lock()
	m.businessCalls++
	m.mu.Unlock()

	if m.BusinessFunc != nil {
		return m.BusinessFunc(req)
	}
	if m.BusinessErr != nil {
		return nil, m.BusinessErr
	}

	result := &model.BusinessResult{
		Worksheet:          model.Worksheet6A,
		Confidence:         model.ConfidenceHigh,
		Reasoning:          "mapped from category",
		TaxCategoryID:      1,
		BusinessPercentage: req.BusinessPercentage,
	}
	if result.BusinessPercentage == 0 {
		result.BusinessPercentage = 100
	}
	if req.Category == "Vehicle" {
		result.Worksheet = model.WorksheetVehicle
		result.TaxCategoryID = 15
	}
	return result, nil
}

func (m *MockClient) GenerateRuleCandidates(_ context.Context, group RuleGroup) ([]model.CandidateRule, error) {
	m.mu.Lock()
	m.ruleCalls++
	m.mu.Unlock()

	if m.RulesFunc != nil {
		return m.RulesFunc(group)
	}
	if m.RulesErr != nil {
		return nil, m.RulesErr
	}

	clientID := ""
	if len(group.Transactions) > 0 {
		clientID = group.Transactions[0].Transaction.ClientID
	}

	return []model.CandidateRule{
		{
			Rule: model.BusinessRule{
				ClientID:    clientID,
				Name:        "auto-" + group.Kind + "-" + group.Key,
				Description: "generated from " + group.Kind + " group",
				Type:        model.RuleTypeCategory,
				Conditions: []model.RuleCondition{
					{Field: "description", Operator: model.OpContains, Value: group.Key},
				},
				Actions: []model.RuleAction{
					{Field: "category", Value: group.Key},
				},
				Priority:    50,
				Confidence:  model.ConfidenceHigh,
				IsActive:    true,
				AIGenerated: true,
			},
			Confidence: model.ConfidenceHigh,
		},
	}, nil
}

// PayeeCalls reports how many payee requests were made.
func (m *MockClient) PayeeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payeeCalls
}

// CategoryCalls reports how many category requests were made.
func (m *MockClient) CategoryCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.categoryCalls
}

// BusinessCalls reports how many business requests were made.
func (m *MockClient) BusinessCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.businessCalls
}

// RuleCalls reports how many rule-generation requests were made.
func (m *MockClient) RuleCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ruleCalls
}

// TotalCalls reports the total number of AI requests across all passes.
func (m *MockClient) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payeeCalls + m.categoryCalls + m.businessCalls + m.ruleCalls
}

// Close is a no-op for the mock.
func (m *MockClient) Close() error {
	return nil
}
