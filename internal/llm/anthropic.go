package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const anthropicVersion = "2023-06-01"

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// AnthropicClient implements Client for the Anthropic messages API
type AnthropicClient struct {
	config     *Config
	httpClient *http.Client
}

// NewAnthropicClient creates a new Anthropic client
func NewAnthropicClient(config *Config) (*AnthropicClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config.BaseURL == "" {
		config = copyWithBaseURL(config, "https://api.anthropic.com/v1")
	}
	return &AnthropicClient{
		config:     config,
		httpClient: &http.Client{},
	}, nil
}

// Generate sends systemPrompt as the system block and text as the user turn
func (c *AnthropicClient) Generate(ctx context.Context, systemPrompt, text string, tier ModelTier) (string, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}

	ctx, cancel := withDefaultTimeout(ctx, c.config)
	defer cancel()

	req := anthropicRequest{
		Model:       modelName,
		System:      systemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: text}},
		MaxTokens:   c.config.maxTokens(),
		Temperature: c.config.Temperature,
	}
	headers := map[string]string{
		"x-api-key":         c.config.APIKey,
		"anthropic-version": anthropicVersion,
	}

	var resp anthropicResponse
	if err := postJSON(ctx, c.httpClient, ProviderAnthropic, c.config.BaseURL+"/messages", headers, req, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &ProviderError{Provider: ProviderAnthropic, Kind: KindResponse, Message: "no text content in response"}
	}
	return strings.TrimSpace(sb.String()), nil
}

// GenerateJSON generates and strips code fences; the messages API has no JSON mode
func (c *AnthropicClient) GenerateJSON(ctx context.Context, systemPrompt, text string, tier ModelTier) (string, error) {
	out, err := c.Generate(ctx, systemPrompt, text, tier)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(out), nil
}

// Model returns the model name for a tier
func (c *AnthropicClient) Model(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases idle connections
func (c *AnthropicClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
