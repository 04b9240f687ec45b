package discovery

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-assistant/internal/api"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/auth"
)

type DiscoveryHandler struct {
	service DiscoveryService
	logger  *slog.Logger
}

func NewDiscoveryHandler(service DiscoveryService, logger *slog.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{service: service, logger: logger}
}

// Discover handles POST /ai/discover. Authentication is optional.
func (h *DiscoveryHandler) Discover(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DiscoveryHandler").Start(r.Context(), "Discover", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/ai/discover"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Discover"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		userID = uuid.Nil
	}

	var req DiscoverRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	attractions, err := h.service.Discover(ctx, userID, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Discovery failed")
		api.HandleServiceError(w, r, l, err)
		return
	}

	span.SetStatus(codes.Ok, "Attractions discovered")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{"attractions": attractions})
}

// InvalidateCache handles DELETE /ai/discover/cache?region=&date=.
func (h *DiscoveryHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "InvalidateCache"))

	if _, err := auth.RequireUserID(r.Context()); err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	q := r.URL.Query()
	n, err := h.service.InvalidateCache(r.Context(), q.Get("region"), q.Get("date"))
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]int{"removed": n})
}
