package profiles

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-assistant/internal/api"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/auth"
	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

type ProfileHandler struct {
	service ProfileService
	logger  *slog.Logger
}

func NewProfileHandler(service ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{service: service, logger: logger}
}

// GetProfile handles GET /profile.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ProfileHandler").Start(r.Context(), "GetProfile", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/profile"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetProfile"))

	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	profile, err := h.service.GetProfile(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Get profile failed")
		api.HandleServiceError(w, r, l, err)
		return
	}

	span.SetStatus(codes.Ok, "Profile fetched")
	api.WriteJSONResponse(w, r, http.StatusOK, profile)
}

// SaveProfile handles PUT /profile.
func (h *ProfileHandler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ProfileHandler").Start(r.Context(), "SaveProfile", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/profile"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SaveProfile"))

	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	var req types.TravelProfile
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	saved, err := h.service.SaveProfile(ctx, userID, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Save profile failed")
		api.HandleServiceError(w, r, l, err)
		return
	}

	span.SetStatus(codes.Ok, "Profile saved")
	api.WriteJSONResponse(w, r, http.StatusOK, saved)
}

// GetTripConfig handles GET /trip-config.
func (h *ProfileHandler) GetTripConfig(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ProfileHandler").Start(r.Context(), "GetTripConfig", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trip-config"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetTripConfig"))

	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	trip, err := h.service.GetTripConfig(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Get trip config failed")
		api.HandleServiceError(w, r, l, err)
		return
	}

	span.SetStatus(codes.Ok, "Trip config fetched")
	api.WriteJSONResponse(w, r, http.StatusOK, trip)
}

// SaveTripConfig handles PUT /trip-config.
func (h *ProfileHandler) SaveTripConfig(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ProfileHandler").Start(r.Context(), "SaveTripConfig", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/trip-config"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "SaveTripConfig"))

	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	var req types.TripConfig
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	saved, err := h.service.SaveTripConfig(ctx, userID, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Save trip config failed")
		api.HandleServiceError(w, r, l, err)
		return
	}

	span.SetStatus(codes.Ok, "Trip config saved")
	api.WriteJSONResponse(w, r, http.StatusOK, saved)
}
