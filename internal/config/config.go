// Package config loads the YAML configuration file, overlays environment
// variables and validates the result.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/fixmytext/internal/clipboard"
	"github.com/jonathan/fixmytext/internal/hotkey"
	"github.com/jonathan/fixmytext/internal/llm"
	"github.com/jonathan/fixmytext/internal/logging"
	"github.com/jonathan/fixmytext/internal/pyramid"
	"github.com/jonathan/fixmytext/internal/richtext"
)

// Config is the complete application configuration.
// All sections are optional in the file; missing values keep their defaults.
type Config struct {
	Hotkey     HotkeyConfig           `yaml:"hotkey"`
	Provider   ProviderConfig         `yaml:"provider"`
	RichText   richtext.MatcherConfig `yaml:"rich_text"`
	Automation clipboard.CommandSet   `yaml:"automation"`
	Pipeline   PipelineConfig         `yaml:"pipeline"`
	Server     ServerConfig           `yaml:"server"`
	Logging    logging.Config         `yaml:"logging"`
}

// HotkeyConfig controls gesture detection and capture timing.
type HotkeyConfig struct {
	ID            string `yaml:"id"`
	DoublePressMS int    `yaml:"double_press_ms" validate:"gte=50,lte=2000"`
	TriggerOn     string `yaml:"trigger_on" validate:"omitempty,oneof=pressed released"`
	SettleDelayMS int    `yaml:"settle_delay_ms" validate:"gte=0,lte=5000"`
}

// ProviderConfig selects and configures the chat model backend.
type ProviderConfig struct {
	Name            string            `yaml:"name" validate:"required,oneof=openai anthropic bedrock aws-bedrock gemini"`
	APIKey          string            `yaml:"api_key"`
	BaseURL         string            `yaml:"base_url" validate:"omitempty,url"`
	Models          map[string]string `yaml:"models"`
	Temperature     float64           `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens       int               `yaml:"max_tokens" validate:"gte=0"`
	TimeoutSeconds  int               `yaml:"timeout_seconds" validate:"gte=0"`
	CacheTTLSeconds int               `yaml:"cache_ttl_seconds" validate:"gte=0"`
	Bedrock         BedrockConfig     `yaml:"bedrock"`
}

// BedrockConfig holds AWS settings. Credentials fall back to the default AWS chain.
type BedrockConfig struct {
	Region           string `yaml:"region"`
	InferenceProfile string `yaml:"inference_profile"`
	// Explicit keys, for accounts that are not in the default chain
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" validate:"required_with=AccessKeyID"`
	SessionToken    string `yaml:"session_token"`
}

// PipelineConfig tunes the document pipeline.
type PipelineConfig struct {
	DefaultType string             `yaml:"default_type" validate:"omitempty,oneof=auto email wiki memo powerpoint"`
	Thresholds  pyramid.Thresholds `yaml:"thresholds"`
}

// ServerConfig controls the local bridge used by the UI shell.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`
	// Secret signs bridge tokens; read from FIXMYTEXT_SERVER_SECRET when empty
	Secret          string `yaml:"-"`
	TokenTTLHours   int    `yaml:"token_ttl_hours" validate:"gte=1"`
	RateLimitPerMin int    `yaml:"rate_limit_per_minute" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Hotkey: HotkeyConfig{
			DoublePressMS: int(hotkey.DefaultDoublePressThreshold / time.Millisecond),
			TriggerOn:     "pressed",
			SettleDelayMS: 100,
		},
		Provider: ProviderConfig{
			Name:            string(llm.ProviderOpenAI),
			Temperature:     llm.DefaultTemperature,
			CacheTTLSeconds: 300,
		},
		RichText: richtext.DefaultMatcherConfig(),
		Pipeline: PipelineConfig{
			DefaultType: string(pyramid.Auto),
			Thresholds:  pyramid.DefaultThresholds(),
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:7878",
			TokenTTLHours:   24,
			RateLimitPerMin: 120,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if !filepath.IsAbs(path) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			path = filepath.Join(cwd, path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables. Explicit file values for API keys win.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("FIXMYTEXT_PROVIDER"); v != "" {
		c.Provider.Name = strings.ToLower(v)
	}

	if c.Provider.APIKey == "" {
		switch llm.Provider(c.Provider.Name) {
		case llm.ProviderOpenAI:
			c.Provider.APIKey = getenv("OPENAI_API_KEY")
		case llm.ProviderAnthropic:
			c.Provider.APIKey = getenv("ANTHROPIC_API_KEY")
		case llm.ProviderGemini:
			c.Provider.APIKey = getenv("GEMINI_API_KEY")
		}
	}

	if c.Provider.Bedrock.Region == "" {
		c.Provider.Bedrock.Region = getenv("AWS_REGION")
	}
	if b := &c.Provider.Bedrock; b.AccessKeyID == "" {
		b.AccessKeyID = getenv("AWS_ACCESS_KEY_ID")
		b.SecretAccessKey = getenv("AWS_SECRET_ACCESS_KEY")
		b.SessionToken = getenv("AWS_SESSION_TOKEN")
	}

	if v := getenv("FIXMYTEXT_SERVER_SECRET"); v != "" {
		c.Server.Secret = v
	}
	if v := getenv("FIXMYTEXT_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	t := c.Pipeline.Thresholds
	for name, v := range map[string]float64{
		"subject_confidence": t.SubjectConfidence,
		"header_confidence":  t.HeaderConfidence,
		"completeness_risk":  t.CompletenessRisk,
		"penalty_risk":       t.PenaltyRisk,
		"style_confidence":   t.StyleConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("config error: pipeline threshold %s must be within [0,1], got %v", name, v)
		}
	}
	if t.ImprovementIncrement < 0 || t.RiskPenalty < 0 {
		return fmt.Errorf("config error: pipeline increment and penalty must be non-negative")
	}

	return nil
}

// LLMConfig builds the provider configuration. It fails when a key-based
// provider has no API key.
func (c *Config) LLMConfig() (*llm.Config, error) {
	provider, err := llm.ParseProvider(c.Provider.Name)
	if err != nil {
		return nil, err
	}

	out := llm.DefaultConfigFor(provider)
	if provider != llm.ProviderBedrock && c.Provider.APIKey == "" {
		return nil, fmt.Errorf("config error: no API key for provider %s", provider)
	}
	out.APIKey = c.Provider.APIKey
	if c.Provider.BaseURL != "" {
		out.BaseURL = c.Provider.BaseURL
	}
	for tier, model := range c.Provider.Models {
		if model != "" {
			out.Models[llm.ModelTier(strings.ToLower(tier))] = model
		}
	}
	out.Temperature = c.Provider.Temperature
	out.MaxTokens = c.Provider.MaxTokens
	if c.Provider.TimeoutSeconds > 0 {
		out.Timeout = time.Duration(c.Provider.TimeoutSeconds) * time.Second
	}
	if c.Provider.Bedrock.Region != "" {
		out.Bedrock.Region = c.Provider.Bedrock.Region
	}
	if c.Provider.Bedrock.InferenceProfile != "" {
		out.Bedrock.InferenceProfile = c.Provider.Bedrock.InferenceProfile
	}
	out.Bedrock.AccessKeyID = c.Provider.Bedrock.AccessKeyID
	out.Bedrock.SecretAccessKey = c.Provider.Bedrock.SecretAccessKey
	out.Bedrock.SessionToken = c.Provider.Bedrock.SessionToken
	return out, nil
}

// HotkeyDispatcherConfig converts the hotkey section.
func (c *Config) HotkeyDispatcherConfig() hotkey.Config {
	transition, err := hotkey.ParseTransition(c.Hotkey.TriggerOn)
	if err != nil {
		transition = hotkey.Pressed
	}
	return hotkey.Config{
		HotkeyID:             c.Hotkey.ID,
		DoublePressThreshold: time.Duration(c.Hotkey.DoublePressMS) * time.Millisecond,
		TriggerOn:            transition,
	}
}

// SettleDelay is the wait between the copy keystroke and the clipboard read.
func (c *Config) SettleDelay() time.Duration {
	if c.Hotkey.SettleDelayMS == 0 {
		return -1
	}
	return time.Duration(c.Hotkey.SettleDelayMS) * time.Millisecond
}

// CacheTTL is the response cache lifetime; zero disables caching.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Provider.CacheTTLSeconds) * time.Second
}
