package suggestions

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

type RegionSuggestionsRequest struct {
	ProgramID uuid.UUID `json:"program_id" validate:"required"`
}

type FAQRequest struct {
	ProgramID   uuid.UUID `json:"program_id" validate:"required"`
	Suggestions string    `json:"suggestions,omitempty"`
}

type ExploreRequest struct {
	ProgramID uuid.UUID `json:"program_id" validate:"required"`
	FAQIndex  *int      `json:"faq_index" validate:"required,gte=0"`
}

type SuggestionsHandler struct {
	service SuggestionsService
	logger  *slog.Logger
}

func NewSuggestionsHandler(service SuggestionsService, logger *slog.Logger) *SuggestionsHandler {
	return &SuggestionsHandler{service: service, logger: logger}
}

// RegionSuggestions handles POST /ai/region-suggestions.
func (h *SuggestionsHandler) RegionSuggestions(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SuggestionsHandler").Start(r.Context(), "RegionSuggestions", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/ai/region-suggestions"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "RegionSuggestions"))

	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	var req RegionSuggestionsRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	text, err := h.service.GenerateSuggestions(ctx, userID, req.ProgramID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Suggestions failed")
		api.HandleServiceError(w, r, l, err)
		return
	}

	span.SetStatus(codes.Ok, "Suggestions generated")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{"suggestions": text})
}

// FAQ handles POST /ai/faq.
func (h *SuggestionsHandler) FAQ(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SuggestionsHandler").Start(r.Context(), "FAQ", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/ai/faq"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "FAQ"))

	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	var req FAQRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	faq, err := h.service.GenerateFAQ(ctx, userID, req.ProgramID, req.Suggestions)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "FAQ failed")
		api.HandleServiceError(w, r, l, err)
		return
	}

	span.SetStatus(codes.Ok, "FAQ generated")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{"faq": faq})
}

// ExploreTopic handles POST /ai/faq/explore.
func (h *SuggestionsHandler) ExploreTopic(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SuggestionsHandler").Start(r.Context(), "ExploreTopic", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/ai/faq/explore"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ExploreTopic"))

	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	var req ExploreRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	out, err := h.service.ExploreTopic(ctx, userID, req.ProgramID, *req.FAQIndex)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Explore failed")
		api.HandleServiceError(w, r, l, err)
		return
	}

	span.SetStatus(codes.Ok, "Topic explored")
	api.WriteJSONResponse(w, r, http.StatusOK, out)
}
