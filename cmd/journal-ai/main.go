package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kalambet/journal-ai/internal/input"
	"github.com/kalambet/journal-ai/internal/journal"
	"github.com/kalambet/journal-ai/internal/prompt"
	"github.com/kalambet/journal-ai/internal/provider"
	"github.com/kalambet/journal-ai/internal/structurer"
)

var version = "dev"

// Exit statuses.
const (
	exitOK          = 0
	exitUnexpected  = 1
	exitUsage       = 2
	exitExhausted   = 3
	exitPersist     = 4
	exitInterrupted = 130
)

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	interrupted := ctx.Err() != nil
	stop()

	if err == nil {
		return
	}
	code := exitCode(err)
	if interrupted {
		code = exitInterrupted
	}
	if code == exitInterrupted {
		printError("interrupted")
	} else {
		printError("%v", err)
	}
	os.Exit(code)
}

// usageError marks failures caused by the invocation itself: flags, input
// or configuration.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

var exitCodes = []struct {
	err  error
	code int
}{
	{context.Canceled, exitInterrupted},
	{prompt.ErrEmptyInput, exitUsage},
	{input.ErrNoInput, exitUsage},
	{input.ErrTooLarge, exitUsage},
	{provider.ErrInvalidID, exitUsage},
	{structurer.ErrUnknownProvider, exitUsage},
	{structurer.ErrExhausted, exitExhausted},
	{journal.ErrPersistFailed, exitPersist},
}

// exitCode maps an error returned by the root command to a process status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	for _, c := range exitCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	var ue usageError
	if errors.As(err, &ue) {
		return exitUsage
	}
	return exitUnexpected
}
