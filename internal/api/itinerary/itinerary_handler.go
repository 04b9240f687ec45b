package itinerary

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-assistant/internal/api"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/auth"
	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

type ConfirmRequest struct {
	Programs []types.ItineraryEntry `json:"programs" validate:"required,min=1,dive"`
}

type DayRequest struct {
	Date   string `json:"date" validate:"required"`
	Region string `json:"region,omitempty"`
}

type ItineraryHandler struct {
	service ItineraryService
	logger  *slog.Logger
}

func NewItineraryHandler(service ItineraryService, logger *slog.Logger) *ItineraryHandler {
	return &ItineraryHandler{service: service, logger: logger}
}

// Organize handles POST /ai/organize.
func (h *ItineraryHandler) Organize(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "Organize", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/ai/organize"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Organize"))

	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	var req OrganizeRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	it, err := h.service.Organize(ctx, userID, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Organize failed")
		api.HandleServiceError(w, r, l, err)
		return
	}

	span.SetStatus(codes.Ok, "Itinerary organized")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{"itinerary": it})
}

// Confirm handles POST /ai/organize/confirm.
func (h *ItineraryHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "Confirm"))

	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	var req ConfirmRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	created, err := h.service.Confirm(r.Context(), userID, req.Programs)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]any{"programs": created})
}

// Narrative handles POST /ai/pdf-narrative.
func (h *ItineraryHandler) Narrative(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "Narrative", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/ai/pdf-narrative"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Narrative"))

	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	var req DayRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	doc, err := h.service.Narrative(ctx, userID, req.Date, req.Region)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Narrative failed")
		api.HandleServiceError(w, r, l, err)
		return
	}

	span.SetStatus(codes.Ok, "Narrative generated")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{"narrative": doc.Narrative})
}

// PDF handles POST /ai/pdf and answers with the rendered document.
func (h *ItineraryHandler) PDF(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "PDF", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/ai/pdf"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "PDF"))

	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	var req DayRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	body, err := h.service.RenderPDF(ctx, userID, req.Date, req.Region)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "PDF failed")
		api.HandleServiceError(w, r, l, err)
		return
	}

	span.SetStatus(codes.Ok, "PDF rendered")
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=roteiro-%s.pdf", req.Date))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		l.ErrorContext(ctx, "Failed to write pdf", slog.Any("error", err))
	}
}
