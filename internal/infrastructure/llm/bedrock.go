package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"AptScanner/internal/ports"
)

// ConverseAPI is the slice of the Bedrock runtime client used here.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClient implements ports.TextModel through the Bedrock Converse API.
type BedrockClient struct {
	api     ConverseAPI
	modelID string
}

var _ ports.TextModel = (*BedrockClient)(nil)

// NewBedrockClient wraps a runtime client for a fixed model.
func NewBedrockClient(api ConverseAPI, modelID string) *BedrockClient {
	return &BedrockClient{api: api, modelID: modelID}
}

// Complete sends a single user turn and joins the text blocks of the reply.
func (c *BedrockClient) Complete(ctx context.Context, prompt string, opts ports.GenerateOptions) (string, error) {
	if c.api == nil {
		return "", fmt.Errorf("bedrock client is not configured")
	}

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.modelID),
		Messages: []types.Message{
			{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: prompt}},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			Temperature: aws.Float32(opts.Temperature),
		},
	}
	if opts.MaxTokens > 0 {
		input.InferenceConfig.MaxTokens = aws.Int32(opts.MaxTokens)
	}

	out, err := c.api.Converse(ctx, input)
	if err != nil {
		return "", fmt.Errorf("bedrock converse: %w", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("bedrock returned unexpected output %T", out.Output)
	}

	var parts []string
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			parts = append(parts, text.Value)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("bedrock reply has no text content (stop reason %s)", out.StopReason)
	}

	return strings.TrimSpace(strings.Join(parts, "")), nil
}
