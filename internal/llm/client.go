package llm

import (
	"context"
	"fmt"
)

// Client is an abstraction over LLM providers
type Client interface {
	// Generate returns the model's reply to text under the given system prompt
	Generate(ctx context.Context, systemPrompt, text string, tier ModelTier) (string, error)
	// GenerateJSON is Generate with the reply stripped of markdown code fences
	GenerateJSON(ctx context.Context, systemPrompt, text string, tier ModelTier) (string, error)
	// Model returns the provider model identifier for a tier
	Model(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderOpenAI:
		return NewOpenAIClient(config)
	case ProviderAnthropic:
		return NewAnthropicClient(config)
	case ProviderBedrock:
		return NewBedrockClient(ctx, config)
	case ProviderGemini:
		return NewGeminiClient(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported provider %q", config.Provider)
	}
}

// withDefaultTimeout applies the configured timeout when ctx carries no deadline.
func withDefaultTimeout(ctx context.Context, cfg *Config) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, cfg.timeout())
}
