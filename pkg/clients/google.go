package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms/googleai"
	"google.golang.org/genai"

	"github.com/mikeboe/search-agent/pkg/config"
	"github.com/mikeboe/search-agent/pkg/llm"
)

// ModelType is an enum for the available Google AI models.
type ModelType string

const (
	// DefaultModel is the default model to use if none is specified
	DefaultModel ModelType = "gemini-2.5-flash"
	ProModel     ModelType = "gemini-2.5-pro"
)

var errMissingKey = errors.New("GOOGLE_API_KEY is not set")

func modelName(cfg *config.Config) string {
	if cfg.FastModel != "" {
		return cfg.FastModel
	}
	return string(DefaultModel)
}

// GoogleAi builds a langchaingo Gemini model.
func GoogleAi(ctx context.Context, cfg *config.Config) (*googleai.GoogleAI, error) {
	if cfg.GoogleApiKey == "" {
		return nil, errMissingKey
	}

	// See https://ai.google.dev/gemini-api/docs/models/gemini for possible models
	model, err := googleai.New(ctx, googleai.WithAPIKey(cfg.GoogleApiKey), googleai.WithDefaultModel(modelName(cfg)))
	if err != nil {
		return nil, fmt.Errorf("failed to create googleai model: %w", err)
	}
	return model, nil
}

// Genai builds a Gemini API client.
func Genai(ctx context.Context, cfg *config.Config) (*genai.Client, error) {
	if cfg.GoogleApiKey == "" {
		return nil, errMissingKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GoogleApiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client, nil
}

// NewGenerator returns the generator selected by LLM_BACKEND. When the backend cannot be
// initialised it returns an llm.Unavailable so runs still complete with fallback values.
func NewGenerator(ctx context.Context, cfg *config.Config) llm.Generator {
	switch cfg.LLMBackend {
	case config.BackendAnthropic:
		model, err := AnthropicAI(cfg)
		if err != nil {
			slog.Warn("Generation backend unavailable", "backend", cfg.LLMBackend, "error", err)
			return llm.Unavailable{Reason: err}
		}
		return llm.NewLangchainGenerator(model)
	case config.BackendGenai:
		client, err := Genai(ctx, cfg)
		if err != nil {
			slog.Warn("Generation backend unavailable", "backend", cfg.LLMBackend, "error", err)
			return llm.Unavailable{Reason: err}
		}
		return llm.NewGenaiGenerator(client, modelName(cfg))
	default:
		model, err := GoogleAi(ctx, cfg)
		if err != nil {
			slog.Warn("Generation backend unavailable", "backend", config.BackendLangchain, "error", err)
			return llm.Unavailable{Reason: err}
		}
		return llm.NewLangchainGenerator(model)
	}
}
