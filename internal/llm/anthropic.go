package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ledgerworks/taxpass/internal/model"
)

// anthropicClient implements the Client interface on the Anthropic
// Messages API.
type anthropicClient struct {
	client      anthropic.Client
	limiter     *rateLimiter
	model       string
	temperature float64
	maxTokens   int
}

// newAnthropicClient creates a new Anthropic API client.
func newAnthropicClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &anthropicClient{
		client:      anthropic.NewClient(opts...),
		limiter:     newRateLimiter(cfg.RateLimit),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// complete sends one prompt and returns the concatenated text content.
func (c *anthropicClient) complete(ctx context.Context, system, prompt string) (string, error) {
	if err := c.limiter.wait(ctx); err != nil {
		return "", err
	}

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(c.maxTokens),
		Temperature: anthropic.Float(c.temperature),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call failed: %w", err)
	}

	if len(message.Content) == 0 {
		return "", fmt.Errorf("empty response from anthropic API")
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

func (c *anthropicClient) IdentifyPayee(ctx context.Context, req PassRequest) (*model.PayeeResult, error) {
	content, err := c.complete(ctx, payeeSystemPrompt, buildPayeePrompt(req))
	if err != nil {
		return nil, err
	}
	return parsePayeeResult(content)
}

func (c *anthropicClient) AssignCategory(ctx context.Context, req PassRequest) (*model.CategoryResult, error) {
	content, err := c.complete(ctx, categorySystemPrompt, buildCategoryPrompt(req))
	if err != nil {
		return nil, err
	}
	return parseCategoryResult(content)
}

func (c *anthropicClient) ClassifyBusiness(ctx context.Context, req PassRequest) (*model.BusinessResult, error) {
	content, err := c.complete(ctx, businessSystemPrompt, buildBusinessPrompt(req))
	if err != nil {
		return nil, err
	}
	return parseBusinessResult(content, taxonomyBound(req))
}

func (c *anthropicClient) GenerateRuleCandidates(ctx context.Context, group RuleGroup) ([]model.CandidateRule, error) {
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

func (c *anthropicClient) Close() error {
	c.limiter.Close()
	return nil
}
