package chat

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
	"github.com/FACorreiaa/go-trip-assistant/internal/api/programs"
)

type ProgramChatRequest struct {
	ProgramID uuid.UUID `json:"program_id" validate:"required"`
	Message   string    `json:"message" validate:"required"`
}

type GlobalChatRequest struct {
	Message string `json:"message" validate:"required"`
	Date    string `json:"date,omitempty"`
}

type ChatHandler struct {
	service ChatService
	logger  *slog.Logger
}

func NewChatHandler(service ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{service: service, logger: logger}
}

// ProgramChat handles POST /ai/program-chat.
func (h *ChatHandler) ProgramChat(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "ProgramChat", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/ai/program-chat"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ProgramChat"))

	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	var req ProgramChatRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	reply, err := h.service.ProgramChat(ctx, userID, req.ProgramID, req.Message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Program chat failed")
		api.HandleServiceError(w, r, l, err)
		return
	}

	span.SetStatus(codes.Ok, "Program chat answered")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{"reply": reply})
}

// GlobalChat handles POST /ai/global-chat.
func (h *ChatHandler) GlobalChat(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "GlobalChat", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/ai/global-chat"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GlobalChat"))

	userID, err := auth.RequireUserID(ctx)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	var req GlobalChatRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	out, err := h.service.GlobalChat(ctx, userID, req.Message, req.Date)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Global chat failed")
		api.HandleServiceError(w, r, l, err)
		return
	}

	span.SetStatus(codes.Ok, "Global chat answered")
	api.WriteJSONResponse(w, r, http.StatusOK, out)
}

// ProgramHistory handles GET /programs/{id}/chat.
func (h *ChatHandler) ProgramHistory(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "ProgramHistory"))

	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	programID, err := programs.ProgramIDParam(r)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	msgs, err := h.service.ProgramHistory(r.Context(), userID, programID)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{"messages": msgs})
}

// ClearProgramHistory handles DELETE /programs/{id}/chat.
func (h *ChatHandler) ClearProgramHistory(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "ClearProgramHistory"))

	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	programID, err := programs.ProgramIDParam(r)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	if err := h.service.ClearProgramHistory(r.Context(), userID, programID); err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GlobalHistory handles GET /chat.
func (h *ChatHandler) GlobalHistory(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "GlobalHistory"))

	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	msgs, err := h.service.GlobalHistory(r.Context(), userID)
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]any{"messages": msgs})
}

// ClearGlobalHistory handles DELETE /chat.
func (h *ChatHandler) ClearGlobalHistory(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "ClearGlobalHistory"))

	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}

	if err := h.service.ClearGlobalHistory(r.Context(), userID); err != nil {
		api.HandleServiceError(w, r, l, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
