package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("requested item not found")
	ErrConflict     = errors.New("item was modified concurrently")
	ErrUnauthorized = errors.New("authentication required or invalid credentials")
	ErrValidation   = errors.New("invalid input")
)

// maxExcerptRunes bounds the raw model text carried by MalformedOutputError.
const maxExcerptRunes = 200

// ConfigurationError reports missing provider keys or storage credentials.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing configuration: %s", e.Setting)
}

// RateLimitedError is returned when a provider answered 429 after the transport
// exhausted its retries.
type RateLimitedError struct {
	Provider string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("provider %s: rate limited", e.Provider)
}

// InsufficientCreditsError is returned when a provider answered 402.
type InsufficientCreditsError struct {
	Provider string
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("provider %s: insufficient credits", e.Provider)
}

// ProviderError covers any other non-2xx provider answer.
type ProviderError struct {
	Provider string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: status %d: %v", e.Provider, e.Status, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// UnsupportedProviderError is returned by the dispatcher for unknown provider names.
type UnsupportedProviderError struct {
	Name string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported provider %q", e.Name)
}

// NetworkError is a transport-level failure that survived every retry.
type NetworkError struct {
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error after %d attempts: %v", e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// MalformedOutputError carries a bounded excerpt of model text that failed to parse.
type MalformedOutputError struct {
	Excerpt string
	Err     error
}

func NewMalformedOutputError(raw string, err error) *MalformedOutputError {
	return &MalformedOutputError{Excerpt: Excerpt(raw, maxExcerptRunes), Err: err}
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed model output: %v (excerpt: %q)", e.Err, e.Excerpt)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// Excerpt truncates s to at most n runes, appending an ellipsis when cut.
func Excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
