// Package provider defines the contract shared by the model backends that
// turn a structuring request into raw text, plus the local (Ollama) and
// cloud (OpenAI-compatible) implementations of it.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ID identifies a provider variant. The zero value means "no provider hint".
type ID string

const (
	Local ID = "local"
	Cloud ID = "cloud"
)

// ErrInvalidID indicates an unrecognized provider name.
var ErrInvalidID = errors.New("invalid provider")

// aliases maps accepted user spellings to provider IDs.
var aliases = map[string]ID{
	"local":  Local,
	"ollama": Local,
	"cloud":  Cloud,
	"openai": Cloud,
}

// ParseID validates a provider name. The backend names "ollama" and
// "openai" are accepted as aliases.
func ParseID(s string) (ID, error) {
	id, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown provider %q (use 'local' or 'cloud'): %w", s, ErrInvalidID)
	}
	return id, nil
}

// ParseOrder parses a comma-separated provider list such as "local,cloud".
// Duplicates are rejected so each provider is attempted at most once per run.
func ParseOrder(s string) ([]ID, error) {
	var order []ID
	seen := make(map[ID]bool)
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		id, err := ParseID(part)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, fmt.Errorf("provider %q listed twice: %w", id, ErrInvalidID)
		}
		seen[id] = true
		order = append(order, id)
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("provider order is empty: %w", ErrInvalidID)
	}
	return order, nil
}

// IsZero reports whether no provider is set.
func (id ID) IsZero() bool {
	return id == ""
}

func (id ID) String() string {
	return string(id)
}

// Request is a provider-agnostic structuring request. It is built once per
// invocation by the prompt package and never mutated; the reinforced variant
// used for a reparse retry is a copy.
type Request struct {
	RawText    string
	Hint       ID
	System     string
	User       string
	Reinforced bool
}

// Response carries the raw text a provider produced.
type Response struct {
	Output   string
	Provider ID
}

// Provider is a model backend capable of structuring a request.
// Implementations perform exactly one outbound call per Structure and never
// retry; retry and fallback belong to the caller.
type Provider interface {
	ID() ID
	Structure(ctx context.Context, req Request) (Response, error)
}
