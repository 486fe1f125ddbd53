package config

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/ledgerworks/taxpass/internal/common"
)

func resetConfig(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Cleanup(viper.Reset)
}

func TestLoadLLMConfigDefaultsAndTimeout(t *testing.T) {
	resetConfig(t)
	viper.Set("llm.api_key", "sk-test")
	viper.Set("llm.timeout", "45s")

	cfg, err := LoadLLMConfig()
	if err != nil {
		t.Fatalf("LoadLLMConfig: %v", err)
	}
	if cfg.Provider != "anthropic" {
		t.Errorf("provider = %q, want anthropic default", cfg.Provider)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("timeout = %v, want 45s", cfg.Timeout)
	}
}

func TestLoadLLMConfigAPIKeyFromEnv(t *testing.T) {
	resetConfig(t)
	viper.Set("llm.provider", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := LoadLLMConfig()
	if err != nil {
		t.Fatalf("LoadLLMConfig: %v", err)
	}
	if cfg.APIKey != "sk-env" {
		t.Errorf("api key = %q, want the env fallback", cfg.APIKey)
	}
}

func TestLoadLLMConfigMissingKeyIsUserError(t *testing.T) {
	resetConfig(t)

	_, err := LoadLLMConfig()
	if !errors.Is(err, common.ErrMissingConfig) {
		t.Fatalf("err = %v, want ErrMissingConfig", err)
	}
	var userErr *common.UserError
	if !errors.As(err, &userErr) {
		t.Fatalf("err = %v, want a UserError", err)
	}
	if userErr.UserMessage == "" {
		t.Error("user message is empty")
	}
}

func TestLoadLLMConfigRejectsBadTimeout(t *testing.T) {
	resetConfig(t)
	viper.Set("llm.api_key", "sk-test")
	viper.Set("llm.timeout", "soon")

	if _, err := LoadLLMConfig(); !errors.Is(err, common.ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}
