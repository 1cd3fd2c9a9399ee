package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// OpenAIClient implements Client for the OpenAI chat completions API
type OpenAIClient struct {
	config     *Config
	httpClient *http.Client
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(config *Config) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config.BaseURL == "" {
		config = copyWithBaseURL(config, "https://api.openai.com/v1")
	}
	return &OpenAIClient{
		config:     config,
		httpClient: &http.Client{},
	}, nil
}

// Generate sends systemPrompt and text as one chat turn
func (c *OpenAIClient) Generate(ctx context.Context, systemPrompt, text string, tier ModelTier) (string, error) {
	return c.complete(ctx, systemPrompt, text, tier, false)
}

// GenerateJSON asks for a JSON object response
func (c *OpenAIClient) GenerateJSON(ctx context.Context, systemPrompt, text string, tier ModelTier) (string, error) {
	out, err := c.complete(ctx, systemPrompt, text, tier, true)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(out), nil
}

func (c *OpenAIClient) complete(ctx context.Context, systemPrompt, text string, tier ModelTier, jsonMode bool) (string, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}

	ctx, cancel := withDefaultTimeout(ctx, c.config)
	defer cancel()

	req := openAIRequest{
		Model: modelName,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.maxTokens(),
	}
	if jsonMode {
		req.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	var resp openAIResponse
	headers := map[string]string{"Authorization": "Bearer " + c.config.APIKey}
	if err := postJSON(ctx, c.httpClient, ProviderOpenAI, c.config.BaseURL+"/chat/completions", headers, req, &resp); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", &ProviderError{Provider: ProviderOpenAI, Kind: KindResponse, Message: "no choices in response"}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Model returns the model name for a tier
func (c *OpenAIClient) Model(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases idle connections
func (c *OpenAIClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func copyWithBaseURL(cfg *Config, baseURL string) *Config {
	cp := *cfg
	cp.BaseURL = baseURL
	return &cp
}
