package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kalambet/journal-ai/internal/ollama"
)

// temperature keeps the structuring deterministic enough to parse.
const temperature = 0.1

// entrySchema is the output shape requested from Ollama's structured output mode.
var entrySchema = &ollama.Schema{
	Type: "object",
	Properties: map[string]ollama.SchemaProperty{
		"title":   {Type: "string", Description: "short title for the entry"},
		"content": {Type: "string", Description: "the cleaned-up entry body"},
		"tags":    {Type: "array", Items: &ollama.SchemaProperty{Type: "string"}},
	},
	Required: []string{"title", "content", "tags"},
}

// chatter is the subset of ollama.Client used by Ollama.
type chatter interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema, opts *ollama.Options) (string, error)
}

// Ollama structures entries with a model served by a local Ollama instance.
type Ollama struct {
	client  chatter
	model   string
	timeout time.Duration
}

// NewOllama returns the local provider. A zero timeout leaves the call bounded
// only by ctx.
func NewOllama(client *ollama.Client, model string, timeout time.Duration) *Ollama {
	return &Ollama{client: client, model: model, timeout: timeout}
}

func (l *Ollama) ID() ID { return Local }

// Model returns the model name requests are sent to.
func (l *Ollama) Model() string { return l.model }

// Structure sends one chat request and returns the model's raw output.
func (l *Ollama) Structure(ctx context.Context, req Request) (Response, error) {
	callCtx, cancel := withTimeout(ctx, l.timeout)
	defer cancel()

	out, err := l.client.Chat(callCtx, l.model, []ollama.Message{
		{Role: "system", Content: req.System},
		{Role: "user", Content: req.User},
	}, entrySchema, &ollama.Options{Temperature: temperature})
	if err != nil {
		return Response{}, l.classify(ctx, err)
	}
	return Response{Output: out, Provider: Local}, nil
}

func (l *Ollama) classify(parent context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if callTimedOut(parent, err) {
		return fmt.Errorf("local %s: no response within %s: %w", l.model, l.timeout, ErrTimeout)
	}

	var se *ollama.StatusError
	if errors.As(err, &se) {
		if se.StatusCode == http.StatusNotFound {
			return fmt.Errorf("local %s: %s: %w", l.model, se.Message, ErrModelNotFound)
		}
		return fmt.Errorf("local %s: %v: %w", l.model, se, ErrProviderError)
	}

	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("local %s: %v: %w", l.model, ue.Err, ErrUnreachable)
	}
	return fmt.Errorf("local %s: %v: %w", l.model, err, ErrProviderError)
}

// withTimeout derives a per-call context. A non-positive d only adds a
// cancel func.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
