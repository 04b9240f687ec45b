package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-assistant/app/observability/metrics"
	generativeAI "github.com/FACorreiaa/go-trip-assistant/internal/api/generative_ai"
	llmParser "github.com/FACorreiaa/go-trip-assistant/internal/api/llm_parser"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/sanitizer"
	travelContext "github.com/FACorreiaa/go-trip-assistant/internal/api/travel_context"
	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

// DiscoverRequest asks for attractions in Region on Date. With More or a
// UserSuggestion the new results are appended to Existing; otherwise they replace it.
type DiscoverRequest struct {
	Region         string             `json:"region" validate:"required"`
	Date           string             `json:"date" validate:"required"`
	UserSuggestion string             `json:"user_suggestion,omitempty"`
	More           bool               `json:"more,omitempty"`
	Existing       []types.Attraction `json:"existing,omitempty"`
}

// maxExistingAttractions bounds how many previously shown attractions are
// echoed back into the prompt and the merged result.
const maxExistingAttractions = 50

func (r DiscoverRequest) accumulates() bool {
	return r.More || strings.TrimSpace(r.UserSuggestion) != ""
}

var _ DiscoveryService = (*DiscoveryServiceImpl)(nil)

type DiscoveryService interface {
	// Discover accepts uuid.Nil for anonymous callers, who get a context
	// without profile, trip or history.
	Discover(ctx context.Context, userID uuid.UUID, req DiscoverRequest) ([]types.Attraction, error)
	InvalidateCache(ctx context.Context, region, date string) (int, error)
}

type DiscoveryServiceImpl struct {
	logger     *slog.Logger
	builder    travelContext.Builder
	dispatcher generativeAI.Dispatcher
	cache      Cache
	sanitizer  *sanitizer.Sanitizer
}

func NewDiscoveryService(builder travelContext.Builder, dispatcher generativeAI.Dispatcher, c Cache,
	s *sanitizer.Sanitizer, logger *slog.Logger) *DiscoveryServiceImpl {
	return &DiscoveryServiceImpl{
		logger:     logger,
		builder:    builder,
		dispatcher: dispatcher,
		cache:      c,
		sanitizer:  s,
	}
}

func (s *DiscoveryServiceImpl) Discover(ctx context.Context, userID uuid.UUID, req DiscoverRequest) (result []types.Attraction, err error) {
	ctx, span := otel.Tracer("DiscoveryService").Start(ctx, "Discover", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("discovery.date", req.Date),
		attribute.Bool("discovery.more", req.More),
	))
	defer span.End()
	defer func() { generativeAI.ObserveRequest(ctx, "discovery", err, false) }()

	l := s.logger.With(slog.String("method", "Discover"))

	region := s.sanitizer.Clean(ctx, req.Region, sanitizer.FieldRegion)
	if region == "" {
		err = fmt.Errorf("%w: region is required", types.ErrValidation)
		span.SetStatus(codes.Error, "Missing region")
		return nil, err
	}
	asOf, err := types.ParseDate(req.Date)
	if err != nil {
		span.SetStatus(codes.Error, "Invalid date")
		return nil, err
	}
	date := types.FormatDate(asOf)
	suggestion := s.sanitizer.Clean(ctx, req.UserSuggestion, sanitizer.FieldTopic)
	existing := s.cleanExisting(ctx, l, req.Existing)
	span.SetAttributes(attribute.String("discovery.region", region))

	// "More" asks for something new relative to Existing, so it never reads the cache.
	key := CacheKey(region, date, suggestion)
	if !req.More {
		if cached, ok := s.lookup(ctx, l, key); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			span.SetStatus(codes.Ok, "Attractions served from cache")
			return combine(req, existing, cached), nil
		}
	}

	tc, err := s.contextFor(ctx, userID, asOf, region)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Context build failed")
		return nil, err
	}

	raw, err := s.dispatcher.Send(ctx, generativeAI.ProviderSearch, generativeAI.Request{
		Prompt: travelContext.RenderPrompt(tc, discoveryTask(region, date, suggestion, req.More, existing)),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Provider call failed")
		return nil, err
	}

	fresh, err := llmParser.ParseAttractions(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Malformed attractions")
		return nil, err
	}

	if !req.More {
		if cerr := s.cache.Set(ctx, key, fresh); cerr != nil {
			l.WarnContext(ctx, "Failed to cache attractions", slog.Any("error", cerr))
		}
	}

	result = combine(req, existing, fresh)
	l.InfoContext(ctx, "Attractions discovered",
		slog.String("region", region), slog.Int("fresh", len(fresh)), slog.Int("returned", len(result)))
	span.SetStatus(codes.Ok, "Attractions discovered")
	return result, nil
}

func (s *DiscoveryServiceImpl) lookup(ctx context.Context, l *slog.Logger, key string) ([]types.Attraction, bool) {
	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		l.WarnContext(ctx, "Discovery cache read failed", slog.Any("error", err))
	}
	if ok {
		metrics.Get().DiscoveryCacheHitsTotal.Add(ctx, 1)
		return cached, true
	}
	metrics.Get().DiscoveryCacheMissesTotal.Add(ctx, 1)
	return nil, false
}

func (s *DiscoveryServiceImpl) contextFor(ctx context.Context, userID uuid.UUID, asOf time.Time, region string) (*types.TravelContext, error) {
	if userID == uuid.Nil {
		return &types.TravelContext{AsOf: asOf, Region: region}, nil
	}
	return s.builder.BuildContext(ctx, userID, asOf, region)
}

// cleanExisting keeps the newest maxExistingAttractions entries of in and
// sanitizes them; entries left without a name are dropped.
func (s *DiscoveryServiceImpl) cleanExisting(ctx context.Context, l *slog.Logger, in []types.Attraction) []types.Attraction {
	if len(in) > maxExistingAttractions {
		l.WarnContext(ctx, "Existing attractions trimmed",
			slog.Int("received", len(in)), slog.Int("kept", maxExistingAttractions))
		in = in[len(in)-maxExistingAttractions:]
	}
	out := make([]types.Attraction, 0, len(in))
	for _, a := range in {
		// One line per entry in the prompt list.
		a.Name = strings.Join(strings.Fields(s.sanitizer.Clean(ctx, a.Name, sanitizer.FieldTitle)), " ")
		if a.Name == "" {
			continue
		}
		a.Type = sanitizer.Sanitize(a.Type, sanitizer.FieldGeneric)
		a.Address = s.sanitizer.Clean(ctx, a.Address, sanitizer.FieldAddress)
		a.Hours = sanitizer.Sanitize(a.Hours, sanitizer.FieldGeneric)
		a.Description = s.sanitizer.Clean(ctx, a.Description, sanitizer.FieldDescription)
		a.Neighborhood = sanitizer.Sanitize(a.Neighborhood, sanitizer.FieldRegion)
		out = append(out, a)
	}
	return out
}

func combine(req DiscoverRequest, existing, fresh []types.Attraction) []types.Attraction {
	if !req.accumulates() {
		return fresh
	}
	return Merge(existing, fresh)
}

// Merge appends the entries of fresh whose names are not already in existing.
func Merge(existing, fresh []types.Attraction) []types.Attraction {
	out := make([]types.Attraction, 0, len(existing)+len(fresh))
	seen := make(map[string]struct{}, len(existing)+len(fresh))
	for _, list := range [][]types.Attraction{existing, fresh} {
		for _, a := range list {
			name := normalize(a.Name)
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}

// InvalidateCache drops the entries for region on date, or everything when both are empty.
func (s *DiscoveryServiceImpl) InvalidateCache(ctx context.Context, region, date string) (int, error) {
	ctx, span := otel.Tracer("DiscoveryService").Start(ctx, "InvalidateCache")
	defer span.End()

	region = s.sanitizer.Clean(ctx, region, sanitizer.FieldRegion)
	date = strings.TrimSpace(date)

	prefix := ""
	switch {
	case region == "" && date == "":
	case region == "" || date == "":
		span.SetStatus(codes.Error, "Partial key")
		return 0, fmt.Errorf("%w: region and date must be given together", types.ErrValidation)
	default:
		asOf, err := types.ParseDate(date)
		if err != nil {
			span.SetStatus(codes.Error, "Invalid date")
			return 0, err
		}
		prefix = RegionDatePrefix(region, types.FormatDate(asOf))
	}

	n, err := s.cache.Invalidate(ctx, prefix)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalidate failed")
		return 0, err
	}
	s.logger.InfoContext(ctx, "Discovery cache invalidated", slog.String("prefix", prefix), slog.Int("removed", n))
	span.SetStatus(codes.Ok, "Cache invalidated")
	return n, nil
}
