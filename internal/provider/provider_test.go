package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    ID
		wantErr bool
	}{
		{"local", Local, false},
		{"cloud", Cloud, false},
		{"ollama", Local, false},
		{"OpenAI", Cloud, false},
		{"  local ", Local, false},
		{"", "", true},
		{"anthropic", "", true},
	}
	for _, tt := range tests {
		got, err := ParseID(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidID) {
				t.Errorf("ParseID(%q) err = %v, want ErrInvalidID", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseID(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseOrder(t *testing.T) {
	got, err := ParseOrder("local, cloud")
	if err != nil {
		t.Fatalf("ParseOrder: %v", err)
	}
	if len(got) != 2 || got[0] != Local || got[1] != Cloud {
		t.Errorf("ParseOrder = %v, want [local cloud]", got)
	}

	got, err = ParseOrder("cloud")
	if err != nil || len(got) != 1 || got[0] != Cloud {
		t.Errorf("ParseOrder(cloud) = %v, %v", got, err)
	}
}

func TestParseOrder_Invalid(t *testing.T) {
	for _, in := range []string{"", " , ", "local,local", "local,ollama", "local,gemini"} {
		if _, err := ParseOrder(in); !errors.Is(err, ErrInvalidID) {
			t.Errorf("ParseOrder(%q) err = %v, want ErrInvalidID", in, err)
		}
	}
}

func TestKind(t *testing.T) {
	for _, sentinel := range kinds {
		err := fmt.Errorf("cloud gpt-4o-mini: boom: %w", sentinel)
		if got := Kind(err); got != sentinel {
			t.Errorf("Kind(%v) = %v, want %v", err, got, sentinel)
		}
	}
	if got := Kind(context.Canceled); got != nil {
		t.Errorf("Kind(context.Canceled) = %v, want nil", got)
	}
	if got := Kind(nil); got != nil {
		t.Errorf("Kind(nil) = %v, want nil", got)
	}
}

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrUnreachable, true},
		{ErrTimeout, true},
		{ErrRateLimited, true},
		{ErrAuth, false},
		{ErrModelNotFound, false},
		{ErrProviderError, false},
	}
	for _, tt := range tests {
		if got := IsRecoverable(fmt.Errorf("x: %w", tt.err)); got != tt.want {
			t.Errorf("IsRecoverable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestCallTimedOut(t *testing.T) {
	parent := context.Background()
	if !callTimedOut(parent, fmt.Errorf("post: %w", context.DeadlineExceeded)) {
		t.Error("own deadline not detected")
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if callTimedOut(cancelled, context.DeadlineExceeded) {
		t.Error("cancelled parent reported as timeout")
	}
	if callTimedOut(parent, errors.New("connection refused")) {
		t.Error("plain error reported as timeout")
	}
}
