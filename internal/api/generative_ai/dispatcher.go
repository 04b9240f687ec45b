package generativeAI

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/go-trip-assistant/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-assistant/config"
	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

// Dispatcher routes a request to a named provider.
type Dispatcher interface {
	Send(ctx context.Context, name string, req Request) (string, error)
}

var _ Dispatcher = (*DispatcherImpl)(nil)

type route struct {
	provider Provider
	limiter  *rate.Limiter
}

type DispatcherImpl struct {
	routes map[string]route
	logger *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *DispatcherImpl {
	return &DispatcherImpl{routes: map[string]route{}, logger: logger}
}

// Register binds name to p. A positive rps installs a client-side token bucket
// in front of the provider.
func (d *DispatcherImpl) Register(name string, p Provider, rps float64, burst int) {
	r := route{provider: p}
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	d.routes[name] = r
}

// Names lists registered providers in sorted order.
func (d *DispatcherImpl) Names() []string {
	names := make([]string, 0, len(d.routes))
	for n := range d.routes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewDispatcherFromConfig registers one provider per configured entry. API keys
// are read from the environment variable each entry names; an absent key leaves
// the provider registered but failing with ConfigurationError.
func NewDispatcherFromConfig(ctx context.Context, cfg config.AIConfig, httpClient *http.Client, logger *slog.Logger) (*DispatcherImpl, error) {
	d := NewDispatcher(logger)
	for name, pc := range cfg.Providers {
		apiKey := os.Getenv(pc.APIKeyEnv)
		if apiKey == "" {
			logger.Warn("AI provider has no API key configured", slog.String("provider", name), slog.String("env", pc.APIKeyEnv))
		}

		var p Provider
		switch pc.Kind {
		case KindOpenAI, "":
			p = NewOpenAIProvider(name, pc, apiKey, httpClient, logger)
		case KindGemini:
			gp, err := NewGeminiProvider(ctx, name, pc, apiKey, httpClient, logger)
			if err != nil {
				return nil, err
			}
			p = gp
		default:
			return nil, fmt.Errorf("provider %s: unknown kind %q", name, pc.Kind)
		}
		d.Register(name, p, pc.RPS, pc.Burst)
	}
	logger.Info("AI providers registered", slog.Any("providers", d.Names()))
	return d, nil
}

func (d *DispatcherImpl) Send(ctx context.Context, name string, req Request) (string, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "Send", trace.WithAttributes(
		attribute.String("provider", name),
	))
	defer span.End()

	r, ok := d.routes[name]
	if !ok {
		err := &types.UnsupportedProviderError{Name: name}
		span.RecordError(err)
		span.SetStatus(codes.Error, "unsupported provider")
		return "", err
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "rate limiter wait aborted")
			return "", fmt.Errorf("waiting for provider %s: %w", name, err)
		}
	}

	start := time.Now()
	text, err := r.provider.Complete(ctx, req)
	metrics.Get().ProviderLatencySeconds.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("provider", name)))

	if err != nil {
		classified := classifyError(name, err)
		d.logger.ErrorContext(ctx, "Provider call failed",
			slog.String("provider", name), slog.Any("error", classified))
		span.RecordError(classified)
		span.SetStatus(codes.Error, "provider call failed")
		return "", classified
	}

	span.SetStatus(codes.Ok, "provider call succeeded")
	return text, nil
}
