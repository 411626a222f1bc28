package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// chatCompleter is the subset of the go-openai client used by OpenAI.
// *openai.Client implements it implicitly.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

var _ chatCompleter = (*openai.Client)(nil)

// OpenAIConfig holds the settings for the cloud provider.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// OpenAI structures entries with a model behind an OpenAI-compatible
// chat completions API.
type OpenAI struct {
	client  chatCompleter
	hasKey  bool
	model   string
	timeout time.Duration
}

// NewOpenAI returns the cloud provider. An empty APIKey is accepted here and
// reported as ErrAuth on every call.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(oc),
		hasKey:  strings.TrimSpace(cfg.APIKey) != "",
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
}

func (o *OpenAI) ID() ID { return Cloud }

// Model returns the model name requests are sent to.
func (o *OpenAI) Model() string { return o.model }

// Structure sends one chat completion request and returns the model's raw output.
func (o *OpenAI) Structure(ctx context.Context, req Request) (Response, error) {
	if !o.hasKey {
		return Response{}, fmt.Errorf("cloud %s: no API key configured: %w", o.model, ErrAuth)
	}

	callCtx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
	})
	if err != nil {
		return Response{}, o.classify(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("cloud %s: response has no choices: %w", o.model, ErrProviderError)
	}
	return Response{Output: resp.Choices[0].Message.Content, Provider: Cloud}, nil
}

// classify maps go-openai errors to provider sentinels by HTTP status.
func (o *OpenAI) classify(parent context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if callTimedOut(parent, err) {
		return fmt.Errorf("cloud %s: no response within %s: %w", o.model, o.timeout, ErrTimeout)
	}

	status, msg := 0, err.Error()
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status, msg = apiErr.HTTPStatusCode, apiErr.Message
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("cloud %s: %s: %w", o.model, msg, ErrAuth)
	case http.StatusTooManyRequests:
		return fmt.Errorf("cloud %s: %s: %w", o.model, msg, ErrRateLimited)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return fmt.Errorf("cloud %s: %s: %w", o.model, msg, ErrTimeout)
	}
	if status != 0 {
		return fmt.Errorf("cloud %s: HTTP %d: %s: %w", o.model, status, msg, ErrProviderError)
	}
	return fmt.Errorf("cloud %s: %s: %w", o.model, msg, ErrProviderError)
}
