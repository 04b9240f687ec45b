// Package transport executes outbound HTTP requests with exponential backoff.
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 1000 * time.Millisecond
	DefaultMaxDelay   = 8000 * time.Millisecond
)

// retryableStatus is the set of statuses worth another attempt.
var retryableStatus = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

type Options struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultOptions returns 3 retries with 1s base and 8s cap.
func DefaultOptions() Options {
	return Options{MaxRetries: DefaultMaxRetries, BaseDelay: DefaultBaseDelay, MaxDelay: DefaultMaxDelay}
}

func (o Options) withDefaults() Options {
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = DefaultBaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = DefaultMaxDelay
	}
	return o
}

// Backoff returns min(base * 2^attempt, max) for a 0-indexed attempt.
func (o Options) Backoff(attempt int) time.Duration {
	d := o.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= o.MaxDelay {
			return o.MaxDelay
		}
	}
	if d > o.MaxDelay {
		return o.MaxDelay
	}
	return d
}

// IsRetryableStatus reports whether status belongs to the retryable set.
func IsRetryableStatus(status int) bool {
	_, ok := retryableStatus[status]
	return ok
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Executor runs a request function under the retry schedule.
type Executor struct {
	opts    Options
	sleep   SleepFunc
	logger  *slog.Logger
	onRetry func(ctx context.Context, attempt int, status int)
}

type ExecutorOption func(*Executor)

// WithSleep replaces the wait function, mostly for tests.
func WithSleep(fn SleepFunc) ExecutorOption {
	return func(e *Executor) { e.sleep = fn }
}

// WithRetryHook is called before every retry with the failed attempt index and the
// status that caused it (0 for network failures).
func WithRetryHook(fn func(ctx context.Context, attempt int, status int)) ExecutorOption {
	return func(e *Executor) { e.onRetry = fn }
}

func NewExecutor(opts Options, logger *slog.Logger, options ...ExecutorOption) *Executor {
	e := &Executor{
		opts:   opts.withDefaults(),
		sleep:  sleepContext,
		logger: logger,
	}
	for _, o := range options {
		o(e)
	}
	return e
}

// Execute calls do until it succeeds, fails with a non-retryable status, or the
// retry budget runs out. An exhausted HTTP failure is returned as the last
// response with a nil error; an exhausted network failure is returned as a
// *types.NetworkError.
func (e *Executor) Execute(ctx context.Context, do func(ctx context.Context) (*http.Response, error)) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= e.opts.MaxRetries; attempt++ {
		resp, err := do(ctx)
		if err == nil {
			if !IsRetryableStatus(resp.StatusCode) || attempt == e.opts.MaxRetries {
				return resp, nil
			}
			e.logger.WarnContext(ctx, "Retryable status from upstream",
				slog.Int("status", resp.StatusCode),
				slog.Int("attempt", attempt),
				slog.Int("max_retries", e.opts.MaxRetries))
			drain(resp)
			if err := e.wait(ctx, attempt, resp.StatusCode); err != nil {
				return nil, err
			}
			continue
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		if attempt == e.opts.MaxRetries {
			break
		}
		e.logger.WarnContext(ctx, "Network error calling upstream",
			slog.Any("error", err),
			slog.Int("attempt", attempt))
		if err := e.wait(ctx, attempt, 0); err != nil {
			return nil, err
		}
	}
	return nil, &types.NetworkError{Attempts: e.opts.MaxRetries + 1, Err: lastErr}
}

func (e *Executor) wait(ctx context.Context, attempt, status int) error {
	if e.onRetry != nil {
		e.onRetry(ctx, attempt, status)
	}
	return e.sleep(ctx, e.opts.Backoff(attempt))
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// RoundTripper lets SDK clients inherit the retry schedule.
type RoundTripper struct {
	base     http.RoundTripper
	executor *Executor
}

func NewRoundTripper(base http.RoundTripper, executor *Executor) *RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RoundTripper{base: base, executor: executor}
}

func (rt *RoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		// Without GetBody the body cannot be replayed, so only one attempt is possible.
		return rt.base.RoundTrip(req)
	}
	return rt.executor.Execute(req.Context(), func(ctx context.Context) (*http.Response, error) {
		attempt := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to rewind request body: %w", err)
			}
			attempt.Body = body
		}
		return rt.base.RoundTrip(attempt)
	})
}

// NewHTTPClient builds an http.Client whose transport retries per opts.
// Every attempt is traced as its own client span.
func NewHTTPClient(executor *Executor, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: NewRoundTripper(otelhttp.NewTransport(http.DefaultTransport), executor),
		Timeout:   timeout,
	}
}
