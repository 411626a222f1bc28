package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/kalambet/journal-ai/internal/fakellm"
)

// mockChatCompleter returns a fixed response or error.
type mockChatCompleter struct {
	response openai.ChatCompletionResponse
	err      error
	calls    int
}

func (m *mockChatCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.calls++
	return m.response, m.err
}

func TestOpenAI_Structure(t *testing.T) {
	srv := fakellm.Start(t)
	srv.ScriptCompletions(fakellm.Reply{Content: `{"title":"T","content":"C","tags":[]}`})

	p := NewOpenAI(OpenAIConfig{
		BaseURL: srv.OpenAIURL(),
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
		Timeout: time.Second,
	})
	resp, err := p.Structure(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Structure: %v", err)
	}
	if resp.Provider != Cloud {
		t.Errorf("Provider = %q, want cloud", resp.Provider)
	}
	if resp.Output != `{"title":"T","content":"C","tags":[]}` {
		t.Errorf("Output = %q", resp.Output)
	}

	reqs := srv.CompletionRequests()
	if len(reqs) != 1 {
		t.Fatalf("got %d completion requests, want 1", len(reqs))
	}
	got := reqs[0]
	if got.Authorization != "Bearer sk-test" {
		t.Errorf("Authorization = %q", got.Authorization)
	}
	if got.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", got.Model)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %+v, want json_object", got.ResponseFormat)
	}
	if got.Temperature < 0.099 || got.Temperature > 0.101 {
		t.Errorf("temperature = %v, want 0.1", got.Temperature)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestOpenAI_MissingKey(t *testing.T) {
	srv := fakellm.Start(t)

	p := NewOpenAI(OpenAIConfig{BaseURL: srv.OpenAIURL(), Model: "gpt-4o-mini"})
	_, err := p.Structure(context.Background(), testRequest())
	if !errors.Is(err, ErrAuth) {
		t.Errorf("err = %v, want ErrAuth", err)
	}
	if n := len(srv.CompletionRequests()); n != 0 {
		t.Errorf("made %d requests without a key, want 0", n)
	}
}

func TestOpenAI_ErrorMapping(t *testing.T) {
	tests := []struct {
		name  string
		reply fakellm.Reply
		want  error
	}{
		{"unauthorized", fakellm.Reply{Status: http.StatusUnauthorized, Content: "invalid api key"}, ErrAuth},
		{"forbidden", fakellm.Reply{Status: http.StatusForbidden, Content: "forbidden"}, ErrAuth},
		{"rate limited", fakellm.Reply{Status: http.StatusTooManyRequests, Content: "slow down"}, ErrRateLimited},
		{"gateway timeout", fakellm.Reply{Status: http.StatusGatewayTimeout, Content: "upstream"}, ErrTimeout},
		{"request timeout", fakellm.Reply{Status: http.StatusRequestTimeout, Content: "late"}, ErrTimeout},
		{"server error", fakellm.Reply{Status: http.StatusInternalServerError, Content: "boom"}, ErrProviderError},
		{"non-json error", fakellm.Reply{Status: http.StatusBadGateway, Body: "<html>bad gateway</html>"}, ErrProviderError},
		{"empty choices", fakellm.Reply{Body: `{"id":"x","object":"chat.completion","choices":[]}`}, ErrProviderError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakellm.Start(t)
			srv.ScriptCompletions(tt.reply)

			p := NewOpenAI(OpenAIConfig{BaseURL: srv.OpenAIURL(), APIKey: "sk-test", Model: "gpt-4o-mini", Timeout: time.Second})
			_, err := p.Structure(context.Background(), testRequest())
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if Kind(err) != tt.want {
				t.Errorf("Kind = %v, want %v", Kind(err), tt.want)
			}
		})
	}
}

func TestOpenAI_Timeout(t *testing.T) {
	srv := fakellm.Start(t)
	srv.ScriptCompletions(fakellm.Reply{Delay: 5 * time.Second})

	p := NewOpenAI(OpenAIConfig{BaseURL: srv.OpenAIURL(), APIKey: "sk-test", Model: "gpt-4o-mini", Timeout: 50 * time.Millisecond})
	_, err := p.Structure(context.Background(), testRequest())
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestOpenAI_TransportFailure(t *testing.T) {
	srv := fakellm.Start(t)
	srv.Close()

	p := NewOpenAI(OpenAIConfig{BaseURL: srv.OpenAIURL(), APIKey: "sk-test", Model: "gpt-4o-mini", Timeout: time.Second})
	_, err := p.Structure(context.Background(), testRequest())
	if !errors.Is(err, ErrProviderError) {
		t.Errorf("err = %v, want ErrProviderError", err)
	}
}

func TestOpenAI_ParentCancelled(t *testing.T) {
	m := &mockChatCompleter{err: context.Canceled}
	p := &OpenAI{client: m, hasKey: true, model: "gpt-4o-mini"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Structure(ctx, testRequest())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if Kind(err) != nil {
		t.Errorf("cancellation classified as %v", Kind(err))
	}
}

func TestOpenAI_ClassifyAPIError(t *testing.T) {
	m := &mockChatCompleter{err: &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "quota"}}
	p := &OpenAI{client: m, hasKey: true, model: "gpt-4o-mini"}

	_, err := p.Structure(context.Background(), testRequest())
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited", err)
	}
	if m.calls != 1 {
		t.Errorf("calls = %d, want exactly 1 (no internal retry)", m.calls)
	}
}
