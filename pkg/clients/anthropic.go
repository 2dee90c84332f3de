package clients

import (
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/mikeboe/search-agent/pkg/config"
)

const (
	Claude4Sonnet ModelType = "claude-sonnet-4-20250514"
	Claude35Haiku ModelType = "claude-3-5-haiku-20241022"
)

var errMissingAnthropicKey = errors.New("ANTHROPIC_API_KEY is not set")

// AnthropicAI builds a langchaingo Claude model.
func AnthropicAI(cfg *config.Config) (*anthropic.LLM, error) {
	if cfg.AnthropicApiKey == "" {
		return nil, errMissingAnthropicKey
	}

	model := cfg.AnthropicModel
	if model == "" {
		model = string(Claude4Sonnet)
	}

	llm, err := anthropic.New(anthropic.WithToken(cfg.AnthropicApiKey), anthropic.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("failed to create anthropic model: %w", err)
	}
	return llm, nil
}
