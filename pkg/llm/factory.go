package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lumara-health/labelling-engine/pkg/config"
)

// NewClient builds the configured provider client. Returns nil without error
// when no provider is configured; callers treat a nil client as the feature
// being switched off.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicClient(cfg.APIKey, cfg.Model, logger)
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
