package programs

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-assistant/internal/api"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/auth"
	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

type ProgramHandler struct {
	service ProgramService
	logger  *slog.Logger
}

func NewProgramHandler(service ProgramService, logger *slog.Logger) *ProgramHandler {
	return &ProgramHandler{service: service, logger: logger}
}

// ProgramIDParam reads the {id} route parameter.
func ProgramIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid program id", types.ErrValidation)
	}
	return id, nil
}

// ListPrograms handles GET /programs, optionally filtered by ?date=YYYY-MM-DD.
func (h *ProgramHandler) ListPrograms(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ProgramHandler").Start(r.Context(), "ListPrograms", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/programs"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ListPrograms"))

	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	programs, err := h.service.List(ctx, userID, r.URL.Query().Get("date"))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "List failed")
		api.HandleServiceError(w, r, l, err)
		return
	}

	span.SetStatus(codes.Ok, "Programs listed")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{"programs": programs})
}

func (h *ProgramHandler) GetProgram(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ProgramHandler").Start(r.Context(), "GetProgram", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/programs/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetProgram"))

	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	id, err := ProgramIDParam(r)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	program, err := h.service.Get(ctx, userID, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Get failed")
		api.HandleServiceError(w, r, l, err)
		return
	}

	span.SetStatus(codes.Ok, "Program fetched")
	api.WriteJSONResponse(w, r, http.StatusOK, program)
}

func (h *ProgramHandler) CreateProgram(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ProgramHandler").Start(r.Context(), "CreateProgram", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/programs"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "CreateProgram"))

	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	var patch types.ProgramPatch
	if err := api.DecodeJSONBody(w, r, &patch); err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	program, err := h.service.Create(ctx, userID, patch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Create failed")
		api.HandleServiceError(w, r, l, err)
		return
	}

	span.SetStatus(codes.Ok, "Program created")
	api.WriteJSONResponse(w, r, http.StatusCreated, program)
}

func (h *ProgramHandler) UpdateProgram(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ProgramHandler").Start(r.Context(), "UpdateProgram", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/programs/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "UpdateProgram"))

	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	id, err := ProgramIDParam(r)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	var patch types.ProgramPatch
	if err := api.DecodeJSONBody(w, r, &patch); err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	program, err := h.service.Update(ctx, userID, id, patch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		api.HandleServiceError(w, r, l, err)
		return
	}

	span.SetStatus(codes.Ok, "Program updated")
	api.WriteJSONResponse(w, r, http.StatusOK, program)
}

func (h *ProgramHandler) DeleteProgram(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ProgramHandler").Start(r.Context(), "DeleteProgram", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/programs/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "DeleteProgram"))

	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	id, err := ProgramIDParam(r)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	if err := h.service.Delete(ctx, userID, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		api.HandleServiceError(w, r, l, err)
		return
	}

	span.SetStatus(codes.Ok, "Program deleted")
	w.WriteHeader(http.StatusNoContent)
}
