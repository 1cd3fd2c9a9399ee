package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

func (c *GeminiClient) model(systemPrompt string, tier ModelTier) (*genai.GenerativeModel, error) {
	modelName := c.config.GetModel(tier)
	if modelName == "" {
		return nil, fmt.Errorf("no model configured for tier %s", tier)
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(float32(c.config.Temperature))
	model.SetMaxOutputTokens(int32(c.config.maxTokens()))
	if systemPrompt != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))
	}
	return model, nil
}

// Generate generates text with systemPrompt as the system instruction
func (c *GeminiClient) Generate(ctx context.Context, systemPrompt, text string, tier ModelTier) (string, error) {
	model, err := c.model(systemPrompt, tier)
	if err != nil {
		return "", err
	}

	ctx, cancel := withDefaultTimeout(ctx, c.config)
	defer cancel()

	resp, err := model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return "", asProviderError(ProviderGemini, err)
	}
	return extractTextFromResponse(resp)
}

// GenerateJSON requests an application/json response
func (c *GeminiClient) GenerateJSON(ctx context.Context, systemPrompt, text string, tier ModelTier) (string, error) {
	model, err := c.model(systemPrompt, tier)
	if err != nil {
		return "", err
	}
	model.ResponseMIMEType = "application/json"

	ctx, cancel := withDefaultTimeout(ctx, c.config)
	defer cancel()

	resp, err := model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return "", asProviderError(ProviderGemini, err)
	}

	out, err := extractTextFromResponse(resp)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(out), nil
}

// Model returns the model name for a tier
func (c *GeminiClient) Model(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", &ProviderError{Provider: ProviderGemini, Kind: KindResponse, Message: "no candidates in response"}
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", &ProviderError{Provider: ProviderGemini, Kind: KindResponse, Message: "no content in response"}
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", &ProviderError{Provider: ProviderGemini, Kind: KindResponse, Message: "no text parts in response"}
	}

	return strings.TrimSpace(strings.Join(parts, "")), nil
}
