// Package llm provides the chat model abstraction used for text correction and
// document restructuring. One Client interface fronts every backend; the backend
// is selected by the Provider tag on Config.
package llm

import (
	"fmt"
	"time"
)

// ModelTier represents the complexity/capability level of a model
type ModelTier string

const (
	// TierLite is for cheap classification calls (type and language detection)
	TierLite ModelTier = "lite"
	// TierStandard is for correction and specialist review
	TierStandard ModelTier = "standard"
	// TierAdvanced is for the foundation document
	TierAdvanced ModelTier = "advanced"
)

// Provider identifies a chat model backend
type Provider string

// Provider constants define supported LLM backends
const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderBedrock   Provider = "bedrock"
	ProviderGemini    Provider = "gemini"
)

// DefaultTemperature keeps corrections close to the input.
const DefaultTemperature = 0.1

// DefaultTimeout is applied to a call when the caller's context has no deadline.
const DefaultTimeout = 2 * time.Minute

// BedrockConfig carries the AWS specific settings for ProviderBedrock.
type BedrockConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
	SessionToken    string `yaml:"-"`
	// InferenceProfile, when set, is used as the model id for every tier.
	InferenceProfile string `yaml:"inference_profile"`
}

// Config holds the model configuration for one provider.
type Config struct {
	Provider    Provider
	Models      map[ModelTier]string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Bedrock     BedrockConfig
}

// DefaultConfig returns the OpenAI configuration.
func DefaultConfig() *Config {
	return DefaultConfigFor(ProviderOpenAI)
}

// DefaultConfigFor returns sensible model tiers for a provider.
func DefaultConfigFor(provider Provider) *Config {
	cfg := &Config{
		Provider:    provider,
		Temperature: DefaultTemperature,
		MaxTokens:   4096,
		Timeout:     DefaultTimeout,
	}
	switch provider {
	case ProviderAnthropic:
		cfg.BaseURL = "https://api.anthropic.com/v1"
		cfg.Models = map[ModelTier]string{
			TierLite:     "claude-3-5-haiku-latest",
			TierStandard: "claude-sonnet-4-0",
			TierAdvanced: "claude-sonnet-4-0",
		}
	case ProviderBedrock:
		cfg.Bedrock.Region = "us-east-1"
		cfg.Models = map[ModelTier]string{
			TierLite:     "anthropic.claude-3-5-haiku-20241022-v1:0",
			TierStandard: "anthropic.claude-3-7-sonnet-20250219-v1:0",
			TierAdvanced: "anthropic.claude-3-7-sonnet-20250219-v1:0",
		}
	case ProviderGemini:
		cfg.Models = map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		}
	default:
		cfg.Provider = ProviderOpenAI
		cfg.BaseURL = "https://api.openai.com/v1"
		cfg.Models = map[ModelTier]string{
			TierLite:     "gpt-4o-mini",
			TierStandard: "gpt-4o",
			TierAdvanced: "gpt-4o",
		}
	}
	return cfg
}

// ParseProvider maps a configuration string to a Provider.
// "aws-bedrock" is accepted as an alias of "bedrock".
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderOpenAI, ProviderAnthropic, ProviderBedrock, ProviderGemini:
		return Provider(s), nil
	}
	if s == "aws-bedrock" {
		return ProviderBedrock, nil
	}
	return "", fmt.Errorf("unknown provider %q", s)
}

// GetModel returns the model name for a given tier
func (c *Config) GetModel(tier ModelTier) string {
	if c.Provider == ProviderBedrock && c.Bedrock.InferenceProfile != "" {
		return c.Bedrock.InferenceProfile
	}
	if model, ok := c.Models[tier]; ok {
		return model
	}
	// Fallback chain: try standard, then lite
	if model, ok := c.Models[TierStandard]; ok {
		return model
	}
	if model, ok := c.Models[TierLite]; ok {
		return model
	}
	return ""
}

// WithModel returns a copy of the Config with a specific model for a tier
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	newConfig := *c
	newConfig.Models = make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		newConfig.Models[k] = v
	}
	newConfig.Models[tier] = model
	return &newConfig
}

func (c *Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

func (c *Config) maxTokens() int {
	if c.MaxTokens <= 0 {
		return 4096
	}
	return c.MaxTokens
}
