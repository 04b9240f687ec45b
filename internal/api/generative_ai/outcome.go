package generativeAI

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-trip-assistant/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

// Outcome names the failure class of err for metrics labels.
func Outcome(err error) string {
	var (
		rateLimited *types.RateLimitedError
		credits     *types.InsufficientCreditsError
		malformed   *types.MalformedOutputError
		providerErr *types.ProviderError
		netErr      *types.NetworkError
		cfgErr      *types.ConfigurationError
		unsupported *types.UnsupportedProviderError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, types.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, types.ErrValidation):
		return "invalid_request"
	case errors.Is(err, types.ErrNotFound):
		return "not_found"
	case errors.Is(err, types.ErrConflict):
		return "conflict"
	case errors.As(err, &rateLimited):
		return "rate_limited"
	case errors.As(err, &credits):
		return "insufficient_credits"
	case errors.As(err, &malformed):
		return "malformed_output"
	case errors.As(err, &providerErr):
		return "provider_error"
	case errors.As(err, &netErr):
		return "network_error"
	case errors.As(err, &cfgErr), errors.As(err, &unsupported):
		return "configuration_error"
	default:
		return "error"
	}
}

// ObserveRequest counts one orchestration handler invocation. Degraded results
// that still answered the caller are reported with outcome "fallback".
func ObserveRequest(ctx context.Context, handler string, err error, degraded bool) {
	outcome := Outcome(err)
	if err == nil && degraded {
		outcome = "fallback"
	}
	metrics.Get().AIRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("handler", handler),
		attribute.String("outcome", outcome),
	))
}
