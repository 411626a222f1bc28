package provider

import (
	"context"
	"errors"
)

// Sentinel errors for provider call failures. Every error returned by a
// Provider wraps exactly one of these, so callers classify with errors.Is.
var (
	// ErrUnreachable indicates the backend could not be contacted.
	ErrUnreachable = errors.New("provider unreachable")

	// ErrTimeout indicates no response arrived within the configured wait.
	ErrTimeout = errors.New("provider timeout")

	// ErrRateLimited indicates the backend signalled throttling.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuth indicates the credential is missing or was rejected.
	ErrAuth = errors.New("authentication failed")

	// ErrModelNotFound indicates the configured model is not available.
	ErrModelNotFound = errors.New("model not found")

	// ErrProviderError covers any other unsuccessful response.
	ErrProviderError = errors.New("provider error")
)

var kinds = []error{
	ErrUnreachable,
	ErrTimeout,
	ErrRateLimited,
	ErrAuth,
	ErrModelNotFound,
	ErrProviderError,
}

// Kind returns the sentinel wrapped by err, or nil if err is not a provider
// failure (for example a context cancellation).
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// IsRecoverable reports whether the failure is transient. Both transient and
// configuration failures move on to the next provider; the distinction is
// kept for diagnostics.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrUnreachable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// callTimedOut reports whether a call failed because its own deadline fired
// while the parent context is still alive.
func callTimedOut(parent context.Context, err error) bool {
	return parent.Err() == nil && errors.Is(err, context.DeadlineExceeded)
}
