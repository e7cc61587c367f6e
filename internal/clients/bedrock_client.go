package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
)

// BedrockInvokeAPI is the part of the Bedrock runtime client the invoker needs.
type BedrockInvokeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockInvoker sends prompts to Anthropic models on Bedrock. API errors are
// returned as-is so their ErrorCode() can drive retries.
type BedrockInvoker struct {
	Client BedrockInvokeAPI
}

func NewBedrockInvoker(client BedrockInvokeAPI) *BedrockInvoker {
	return &BedrockInvoker{Client: client}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"`
	MaxTokens        int                `json:"max_tokens"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (b *BedrockInvoker) Invoke(ctx context.Context, modelIdentifier, prompt string) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        inferenceMaxTokens,
		Messages:         []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("[BedrockClient] marshal request: %w", err)
	}

	out, err := b.Client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelIdentifier),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			slog.Debug("[BedrockClient] InvokeModel failed",
				slog.String("model", modelIdentifier),
				slog.String("code", apiErr.ErrorCode()),
				slog.String("fault", apiErr.ErrorFault().String()))
		}
		return "", err
	}

	var resp anthropicResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("[BedrockClient] decode response: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("[BedrockClient] response has no content (stop_reason=%s)", resp.StopReason)
	}

	slog.Debug("[BedrockClient] Model invoked",
		slog.String("model", modelIdentifier),
		slog.String("stop_reason", resp.StopReason))
	return resp.Content[0].Text, nil
}
