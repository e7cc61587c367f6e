package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/spacesedan/buzzdigest/internal/judge"
)

const (
	openAIRequestTimeout = 60 * time.Second // Timeout for individual OpenAI API requests
)

var (
	openAIClientInstance *OpenAIClient
	openAIOnce           sync.Once
)

// ChatCompleter is the part of the go-openai client the invoker needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type OpenAIClient struct {
	Client ChatCompleter
}

func GetOpenAIClient(apiKey string) *OpenAIClient {
	if apiKey == "" {
		slog.Error("[OpenAIClient] Missing OPENAI_API_KEY in environment variables")
		panic("[OpenAIClient] Missing OPENAI_API_KEY in environment variables")
	}
	openAIOnce.Do(func() {
		config := openai.DefaultConfig(apiKey)
		config.HTTPClient = &http.Client{
			Timeout: openAIRequestTimeout,
		}

		openAIClientInstance = &OpenAIClient{
			Client: openai.NewClientWithConfig(config),
		}
		slog.Info("[OpenAIClient] OpenAI client initialized with custom HTTP timeout", slog.Duration("timeout", openAIRequestTimeout))
	})
	return openAIClientInstance
}

// InferenceError tags a provider error with a Bedrock-style error code.
type InferenceError struct {
	Code string
	Err  error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

func (e *InferenceError) ErrorCode() string { return e.Code }

// Invoke runs one JSON-mode chat completion.
func (o *OpenAIClient) Invoke(ctx context.Context, model, prompt string) (string, error) {
	resp, err := o.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: inferenceMaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("[OpenAIClient] response has no choices")
	}

	slog.Debug("[OpenAIClient] Completion received",
		slog.String("model", model),
		slog.String("finish_reason", string(resp.Choices[0].FinishReason)))
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAIError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusTooManyRequests:
		return &InferenceError{Code: judge.CodeThrottling, Err: err}
	case status >= http.StatusInternalServerError:
		return &InferenceError{Code: judge.CodeServiceUnavailable, Err: err}
	case status == http.StatusBadRequest:
		return &InferenceError{Code: "ValidationException", Err: err}
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return &InferenceError{Code: "AccessDeniedException", Err: err}
	default:
		return err
	}
}
