package factory

import (
	"context"
	"fmt"
	"strings"

	"claudebuddy-be/pkg/llm"
	"claudebuddy-be/pkg/llm/anthropic"
	"claudebuddy-be/pkg/llm/gemini"
	"claudebuddy-be/pkg/llm/ollama"
)

// Config carries everything any supported backend may need.
type Config struct {
	Provider        string
	Model           string
	AnthropicAPIKey string
	GeminiAPIKey    string
	OllamaBaseURL   string
}

func NewLLMProvider(ctx context.Context, cfg Config) (llm.LLMProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "anthropic", "claude":
		p, err := anthropic.NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "gemini", "google":
		p, err := gemini.NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "ollama":
		return ollama.NewOllamaProvider(cfg.OllamaBaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
