package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/ledgerworks/taxpass/internal/common"
	"github.com/ledgerworks/taxpass/internal/llm"
)

// LoadLLMConfig assembles the AI collaborator configuration. Precedence:
// Viper configuration (config file or TAXPASS_ env vars), then the
// provider's conventional environment variable for the API key.
func LoadLLMConfig() (llm.Config, error) {
	cfg := llm.Config{
		Provider:    viper.GetString("llm.provider"),
		APIKey:      viper.GetString("llm.api_key"),
		Model:       viper.GetString("llm.model"),
		Temperature: viper.GetFloat64("llm.temperature"),
		MaxTokens:   viper.GetInt("llm.max_tokens"),
		RateLimit:   viper.GetInt("llm.rate_limit"),
	}
	if timeout := viper.GetString("llm.timeout"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return cfg, fmt.Errorf("%w: llm.timeout: %v", common.ErrInvalidConfig, err)
		}
		cfg.Timeout = d
	}

	if cfg.Provider == "" {
		cfg.Provider = "anthropic"
	}
	envVar := "ANTHROPIC_API_KEY"
	if cfg.Provider == "openai" {
		envVar = "OPENAI_API_KEY"
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(envVar)
	}
	if cfg.APIKey == "" {
		return cfg, common.NewUserError(
			fmt.Sprintf("no API key configured for provider %s (set llm.api_key or %s)", cfg.Provider, envVar),
			common.ErrMissingConfig)
	}

	return cfg, nil
}
