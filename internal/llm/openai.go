package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledgerworks/taxpass/internal/common"
	"github.com/ledgerworks/taxpass/internal/model"
)

// openAIClient implements the Client interface for the OpenAI API.
type openAIClient struct {
	httpClient  *http.Client
	limiter     *rateLimiter
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// newOpenAIClient creates a new OpenAI API client.
func newOpenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4-turbo-preview"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &openAIClient{
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		limiter:     newRateLimiter(cfg.RateLimit),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// openAIResponse represents the OpenAI chat completion response structure.
type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// complete sends one chat completion request and returns the message text.
func (c *openAIClient) complete(ctx context.Context, system, prompt string) (string, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return "", err
	}

	requestBody := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{
				"role":    "system",
				"content": system,
			},
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"temperature": c.temperature,
		"max_tokens":  c.maxTokens,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/chat/completions", strings.NewReader(string(jsonBody)))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &common.RetryableError{Err: common.ErrRateLimit, Retryable: true}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenAI API error (status %d): %s", resp.StatusCode, string(body))
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}

	return response.Choices[0].Message.Content, nil
}

func (c *openAIClient) IdentifyPayee(ctx context.Context, req PassRequest) (*model.PayeeResult, error) {
	content, err := c.complete(ctx, payeeSystemPrompt, buildPayeePrompt(req))
	if err != nil {
		return nil, err
	}
	return parsePayeeResult(content)
}

func (c *openAIClient) AssignCategory(ctx context.Context, req PassRequest) (*model.CategoryResult, error) {
	content, err := c.complete(ctx, categorySystemPrompt, buildCategoryPrompt(req))
	if err != nil {
		return nil, err
	}
	return parseCategoryResult(content)
}

func (c *openAIClient) ClassifyBusiness(ctx context.Context, req PassRequest) (*model.BusinessResult, error) {
	content, err := c.complete(ctx, businessSystemPrompt, buildBusinessPrompt(req))
	if err != nil {
		return nil, err
	}
	return parseBusinessResult(content, taxonomyBound(req))
}

func (c *openAIClient) GenerateRuleCandidates(ctx context.Context, group RuleGroup) ([]model.CandidateRule, error) {
	content, err := c.complete(ctx, ruleSystemPrompt, buildRulePrompt(group))
	if err != nil {
		return nil, err
	}
	clientID := ""
	if len(group.Transactions) > 0 {
		clientID = group.Transactions[0].Transaction.ClientID
	}
	return parseRuleCandidates(content, clientID)
}

func (c *openAIClient) Close() error {
	c.limiter.Close()
	return nil
}
