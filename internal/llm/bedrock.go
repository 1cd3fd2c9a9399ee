package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"
)

// converser is the subset of the Bedrock runtime client used here.
type converser interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClient implements Client for AWS Bedrock through the Converse API
type BedrockClient struct {
	runtime converser
	config  *Config
}

// NewBedrockClient creates a Bedrock client. Static credentials are used when an
// access key is configured; otherwise the default AWS credential chain applies.
func NewBedrockClient(ctx context.Context, config *Config) (*BedrockClient, error) {
	if config.Bedrock.Region == "" {
		return nil, fmt.Errorf("bedrock region is required")
	}

	awsCfg, err := loadAWSConfig(ctx, config.Bedrock)
	if err != nil {
		return nil, err
	}
	return newBedrockClientWithRuntime(bedrockruntime.NewFromConfig(awsCfg), config), nil
}

func loadAWSConfig(ctx context.Context, b BedrockConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(b.Region),
	}
	if b.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(b.AccessKeyID, b.SecretAccessKey, b.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}

func newBedrockClientWithRuntime(runtime converser, config *Config) *BedrockClient {
	return &BedrockClient{runtime: runtime, config: config}
}

// Generate runs a single-turn conversation
func (c *BedrockClient) Generate(ctx context.Context, systemPrompt, text string, tier ModelTier) (string, error) {
	modelID := c.config.GetModel(tier)
	if modelID == "" {
		return "", fmt.Errorf("no model configured for tier %s", tier)
	}

	ctx, cancel := withDefaultTimeout(ctx, c.config)
	defer cancel()

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(modelID),
		Messages: []types.Message{
			{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: text}},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: aws.Float32(float32(c.config.Temperature)),
			MaxTokens:   aws.Int32(int32(c.config.maxTokens())),
		},
	}
	if systemPrompt != "" {
		input.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: systemPrompt}}
	}

	out, err := c.runtime.Converse(ctx, input)
	if err != nil {
		return "", classifyBedrockError(err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", &ProviderError{Provider: ProviderBedrock, Kind: KindResponse, Message: "no message in response"}
	}

	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if t, ok := block.(*types.ContentBlockMemberText); ok {
			sb.WriteString(t.Value)
		}
	}
	if sb.Len() == 0 {
		return "", &ProviderError{Provider: ProviderBedrock, Kind: KindResponse, Message: "no text content in response"}
	}
	return strings.TrimSpace(sb.String()), nil
}

// GenerateJSON generates and strips code fences
func (c *BedrockClient) GenerateJSON(ctx context.Context, systemPrompt, text string, tier ModelTier) (string, error) {
	out, err := c.Generate(ctx, systemPrompt, text, tier)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(out), nil
}

// Model returns the model id for a tier
func (c *BedrockClient) Model(tier ModelTier) string {
	return c.config.GetModel(tier)
}

// Close is a no-op for Bedrock
func (c *BedrockClient) Close() error {
	return nil
}

func classifyBedrockError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		kind := KindResponse
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "ServiceQuotaExceededException":
			kind = KindRateLimit
		case "AccessDeniedException", "UnrecognizedClientException", "ExpiredTokenException":
			kind = KindAuth
		case "ServiceUnavailableException", "InternalServerException", "ModelNotReadyException":
			kind = KindNetwork
		}
		return &ProviderError{Provider: ProviderBedrock, Kind: kind, Message: apiErr.ErrorMessage(), Cause: err}
	}
	return asProviderError(ProviderBedrock, err)
}
