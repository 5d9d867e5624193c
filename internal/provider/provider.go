package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/knowledge-engine/docqa/internal/config"
)

// LLMProvider defines the interface for AI model integration
type LLMProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
	Model() string
}

// New builds the provider selected in cfg, rate limited when configured
func New(cfg config.LLMConfig) (LLMProvider, error) {
	client := &http.Client{Timeout: cfg.Timeout}

	var p LLMProvider
	switch cfg.Provider {
	case config.ProviderOllama:
		p = NewOllamaProvider(cfg.BaseURL, cfg.Model, client)
	case config.ProviderOpenAI:
		p = NewOpenAIProvider(cfg.BaseURL, cfg.Model, cfg.APIKey, client)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	return RateLimited(p, cfg.RequestsPerSecond, cfg.Burst), nil
}
