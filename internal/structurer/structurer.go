// Package structurer drives one structuring run: it builds the request,
// calls providers in priority order, validates their output and applies the
// retry and fallback policy, recording every attempt.
package structurer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/journal-ai/internal/entry"
	"github.com/kalambet/journal-ai/internal/prompt"
	"github.com/kalambet/journal-ai/internal/provider"
)

var (
	// ErrExhausted indicates every attempted provider failed.
	ErrExhausted = errors.New("all providers failed")

	// ErrUnknownProvider indicates the requested provider is not configured.
	ErrUnknownProvider = errors.New("provider not configured")
)

// State is a step of the structuring state machine.
type State int

const (
	Idle State = iota
	Building
	Calling
	Parsing
	Retrying
	Succeeded
	Exhausted
)

var stateNames = [...]string{"idle", "building", "calling", "parsing", "retrying", "succeeded", "exhausted"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Attempt records one provider call. It never holds credentials.
type Attempt struct {
	Provider   provider.ID
	Succeeded  bool
	Reason     string
	Kind       error
	Reinforced bool
	Duration   time.Duration
}

// Outcome is the result of a run. Entry is set only when State is Succeeded.
type Outcome struct {
	State    State
	Entry    *entry.Entry
	Attempts []Attempt
}

// ExhaustedError carries the attempt log of a run in which every provider failed.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	if n := len(e.Attempts); n > 0 {
		last := e.Attempts[n-1]
		return fmt.Sprintf("%v after %d attempts (last: %s: %s)", ErrExhausted, n, last.Provider, last.Reason)
	}
	return fmt.Sprintf("%v: no provider was attempted", ErrExhausted)
}

func (e *ExhaustedError) Unwrap() error { return ErrExhausted }

// Orchestrator runs the structuring pipeline over a fixed provider order.
// It holds no per-run state and may be reused.
type Orchestrator struct {
	providers []provider.Provider
	reparse   bool
	entryOpts entry.Options
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithReparseRetry enables or disables the single reinforced retry against
// the same provider after its output fails to parse. Enabled by default.
func WithReparseRetry(enabled bool) Option {
	return func(o *Orchestrator) {
		o.reparse = enabled
	}
}

// WithEntryOptions sets the tag and title limits applied when parsing.
func WithEntryOptions(opts entry.Options) Option {
	return func(o *Orchestrator) {
		o.entryOpts = opts
	}
}

// New creates an Orchestrator trying providers in the given order.
func New(providers []provider.Provider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		providers: providers,
		reparse:   true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Providers returns the configured provider order.
func (o *Orchestrator) Providers() []provider.ID {
	ids := make([]provider.ID, len(o.providers))
	for i, p := range o.providers {
		ids[i] = p.ID()
	}
	return ids
}

// run is the mutable state of one invocation.
type run struct {
	state    State
	queue    []provider.Provider
	idx      int
	req      provider.Request
	active   provider.Request
	resp     provider.Response
	entry    *entry.Entry
	attempts []Attempt
	reparsed bool
}

// Run structures raw into an entry. A non-zero hint restricts the run to
// that provider with no fallback.
//
// Errors: prompt.ErrEmptyInput for blank input, ErrUnknownProvider for a
// hint that is not configured, *ExhaustedError when every provider failed,
// and the context error when ctx is cancelled. The returned Outcome always
// carries the attempts made so far.
func (o *Orchestrator) Run(ctx context.Context, raw string, hint provider.ID) (Outcome, error) {
	r := &run{state: Idle}

	for {
		switch r.state {
		case Idle:
			queue, err := o.queue(hint)
			if err != nil {
				return r.outcome(), err
			}
			r.queue = queue
			r.state = Building

		case Building:
			req, err := prompt.Build(raw, hint)
			if err != nil {
				return r.outcome(), err
			}
			r.req, r.active = req, req
			r.state = Calling

		case Calling:
			if r.idx >= len(r.queue) {
				r.state = Exhausted
				continue
			}
			if err := ctx.Err(); err != nil {
				return r.outcome(), err
			}
			if err := o.call(ctx, r); err != nil {
				return r.outcome(), err
			}

		case Parsing:
			o.parse(r)

		case Retrying:
			r.idx++
			r.reparsed = false
			r.active = r.req
			r.state = Calling

		case Succeeded:
			slog.Info("entry structured",
				"provider", r.entry.Source,
				"attempts", len(r.attempts),
				"tags", len(r.entry.Tags),
			)
			return r.outcome(), nil

		case Exhausted:
			slog.Warn("all providers failed", "attempts", len(r.attempts))
			return r.outcome(), &ExhaustedError{Attempts: r.attempts}
		}
	}
}

// queue resolves the providers to try for this run.
func (o *Orchestrator) queue(hint provider.ID) ([]provider.Provider, error) {
	if hint.IsZero() {
		return o.providers, nil
	}
	for _, p := range o.providers {
		if p.ID() == hint {
			return []provider.Provider{p}, nil
		}
	}
	return nil, fmt.Errorf("%q: %w", hint, ErrUnknownProvider)
}

// call performs one provider call and advances the state. It returns an
// error only when ctx was cancelled during the call.
func (o *Orchestrator) call(ctx context.Context, r *run) error {
	p := r.queue[r.idx]
	slog.Debug("calling provider", "provider", p.ID(), "reinforced", r.active.Reinforced)

	start := time.Now()
	resp, err := p.Structure(ctx, r.active)
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("provider call failed", "provider", p.ID(), "error", err, "duration", elapsed)
		r.attempts = append(r.attempts, Attempt{
			Provider:   p.ID(),
			Reason:     err.Error(),
			Kind:       provider.Kind(err),
			Reinforced: r.active.Reinforced,
			Duration:   elapsed,
		})
		r.state = Retrying
		return nil
	}

	r.resp = resp
	r.attempts = append(r.attempts, Attempt{
		Provider:   p.ID(),
		Reinforced: r.active.Reinforced,
		Duration:   elapsed,
	})
	r.state = Parsing
	return nil
}

// parse validates the last response, completing its attempt record.
func (o *Orchestrator) parse(r *run) {
	last := &r.attempts[len(r.attempts)-1]
	id := r.queue[r.idx].ID()

	e, err := entry.Parse(r.resp.Output, o.entryOpts)
	if err != nil {
		last.Reason = err.Error()
		last.Kind = parseKind(err)
		if o.reparse && !r.reparsed {
			slog.Warn("unusable provider output, retrying with reinforced prompt", "provider", id, "error", err)
			r.reparsed = true
			r.active = prompt.Reinforce(r.req)
			r.state = Calling
			return
		}
		slog.Warn("unusable provider output", "provider", id, "error", err)
		r.state = Retrying
		return
	}

	last.Succeeded = true
	e.Source = id
	r.entry = &e
	r.state = Succeeded
}

func parseKind(err error) error {
	if errors.Is(err, entry.ErrMissingField) {
		return entry.ErrMissingField
	}
	return entry.ErrMalformedOutput
}

func (r *run) outcome() Outcome {
	return Outcome{State: r.state, Entry: r.entry, Attempts: r.attempts}
}
