package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func respond(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader("{}"))}
}

func TestOptions_Backoff(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, 1000*time.Millisecond, o.Backoff(0))
	assert.Equal(t, 2000*time.Millisecond, o.Backoff(1))
	assert.Equal(t, 4000*time.Millisecond, o.Backoff(2))
	assert.Equal(t, 8000*time.Millisecond, o.Backoff(3))
	assert.Equal(t, 8000*time.Millisecond, o.Backoff(10))
}

func TestExecutor_RecoversAfterTransientFailures(t *testing.T) {
	rec := &recordedSleeps{}
	e := NewExecutor(DefaultOptions(), discardLogger(), WithSleep(rec.sleep))

	calls := 0
	resp, err := e.Execute(context.Background(), func(ctx context.Context) (*http.Response, error) {
		calls++
		if calls <= 2 {
			return respond(http.StatusServiceUnavailable), nil
		}
		return respond(http.StatusOK), nil
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{1000 * time.Millisecond, 2000 * time.Millisecond}, rec.delays)
}

func TestExecutor_ReturnsLastFailedResponse(t *testing.T) {
	rec := &recordedSleeps{}
	e := NewExecutor(DefaultOptions(), discardLogger(), WithSleep(rec.sleep))

	calls := 0
	resp, err := e.Execute(context.Background(), func(ctx context.Context) (*http.Response, error) {
		calls++
		return respond(http.StatusTooManyRequests), nil
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, rec.delays)
}

func TestExecutor_NonRetryableStatusReturnsImmediately(t *testing.T) {
	rec := &recordedSleeps{}
	e := NewExecutor(DefaultOptions(), discardLogger(), WithSleep(rec.sleep))

	for _, status := range []int{http.StatusBadRequest, http.StatusPaymentRequired, http.StatusUnauthorized, http.StatusNotFound} {
		calls := 0
		resp, err := e.Execute(context.Background(), func(ctx context.Context) (*http.Response, error) {
			calls++
			return respond(status), nil
		})
		require.NoError(t, err)
		assert.Equal(t, status, resp.StatusCode)
		assert.Equal(t, 1, calls)
	}
	assert.Empty(t, rec.delays)
}

func TestExecutor_NetworkErrorIsRaisedAfterExhaustion(t *testing.T) {
	rec := &recordedSleeps{}
	var hookAttempts []int
	e := NewExecutor(Options{MaxRetries: 2, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second}, discardLogger(),
		WithSleep(rec.sleep),
		WithRetryHook(func(_ context.Context, attempt, status int) {
			hookAttempts = append(hookAttempts, attempt)
			assert.Zero(t, status)
		}))

	dialErr := errors.New("connection refused")
	calls := 0
	resp, err := e.Execute(context.Background(), func(ctx context.Context) (*http.Response, error) {
		calls++
		return nil, dialErr
	})

	assert.Nil(t, resp)
	var netErr *types.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, 3, netErr.Attempts)
	assert.ErrorIs(t, err, dialErr)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{0, 1}, hookAttempts)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, rec.delays)
}

func TestExecutor_StopsWhenContextCancelled(t *testing.T) {
	e := NewExecutor(DefaultOptions(), discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Execute(ctx, func(ctx context.Context) (*http.Response, error) {
		return respond(http.StatusBadGateway), nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRoundTripper_ReplaysBody(t *testing.T) {
	var hits atomic.Int32
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rec := &recordedSleeps{}
	client := NewHTTPClient(NewExecutor(DefaultOptions(), discardLogger(), WithSleep(rec.sleep)), 5*time.Second)

	resp, err := client.Post(srv.URL, "application/json", strings.NewReader(`{"model":"m"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{`{"model":"m"}`, `{"model":"m"}`}, bodies)
	assert.Equal(t, []time.Duration{time.Second}, rec.delays)
}
