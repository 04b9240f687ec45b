package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	generativeAI "github.com/FACorreiaa/go-trip-assistant/internal/api/generative_ai"
	llmParser "github.com/FACorreiaa/go-trip-assistant/internal/api/llm_parser"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/sanitizer"
	travelContext "github.com/FACorreiaa/go-trip-assistant/internal/api/travel_context"
	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

const persistTimeout = 10 * time.Second

// ProgramStore is the program surface chat needs: reading the discussed program
// and applying the actions the model requests.
type ProgramStore interface {
	Get(ctx context.Context, userID, id uuid.UUID) (*types.Program, error)
	Create(ctx context.Context, userID uuid.UUID, patch types.ProgramPatch) (*types.Program, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch types.ProgramPatch) (*types.Program, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type GlobalReply struct {
	Reply  string                `json:"reply"`
	Action *types.ActionExecuted `json:"action,omitempty"`
}

var _ ChatService = (*ChatServiceImpl)(nil)

type ChatService interface {
	ProgramChat(ctx context.Context, userID, programID uuid.UUID, message string) (string, error)
	GlobalChat(ctx context.Context, userID uuid.UUID, message, date string) (*GlobalReply, error)
	ProgramHistory(ctx context.Context, userID, programID uuid.UUID) ([]types.ChatMessage, error)
	ClearProgramHistory(ctx context.Context, userID, programID uuid.UUID) error
	GlobalHistory(ctx context.Context, userID uuid.UUID) ([]types.ChatMessage, error)
	ClearGlobalHistory(ctx context.Context, userID uuid.UUID) error
}

type ChatServiceImpl struct {
	logger     *slog.Logger
	repo       ChatRepository
	programs   ProgramStore
	builder    travelContext.Builder
	dispatcher generativeAI.Dispatcher
	sanitizer  *sanitizer.Sanitizer
	now        func() time.Time

	// pending tracks background message writes so shutdown can drain them.
	pending sync.WaitGroup
}

func NewChatService(repo ChatRepository, programs ProgramStore, builder travelContext.Builder,
	dispatcher generativeAI.Dispatcher, s *sanitizer.Sanitizer, logger *slog.Logger) *ChatServiceImpl {
	return &ChatServiceImpl{
		logger:     logger,
		repo:       repo,
		programs:   programs,
		builder:    builder,
		dispatcher: dispatcher,
		sanitizer:  s,
		now:        time.Now,
	}
}

// Wait blocks until every background message write has finished.
func (s *ChatServiceImpl) Wait() {
	s.pending.Wait()
}

// persist writes the exchange off the request path. A failed write is logged and
// never affects the reply already computed.
func (s *ChatServiceImpl) persist(ctx context.Context, scope string, write func(ctx context.Context, role types.ChatRole, content string) error, question, reply string) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()

		if err := write(bg, types.ChatRoleUser, question); err != nil {
			s.logger.ErrorContext(bg, "Failed to store user chat message", slog.String("scope", scope), slog.Any("error", err))
		}
		if err := write(bg, types.ChatRoleAssistant, reply); err != nil {
			s.logger.ErrorContext(bg, "Failed to store assistant chat message", slog.String("scope", scope), slog.Any("error", err))
		}
	}()
}

func toMessages(history []types.ChatMessage) []generativeAI.Message {
	out := make([]generativeAI.Message, 0, len(history))
	for _, m := range history {
		role := generativeAI.RoleUser
		if m.Role == types.ChatRoleAssistant {
			role = generativeAI.RoleAssistant
		}
		out = append(out, generativeAI.Message{Role: role, Content: m.Content})
	}
	return out
}

func (s *ChatServiceImpl) cleanMessage(ctx context.Context, message string) (string, error) {
	clean := s.sanitizer.Clean(ctx, message, sanitizer.FieldMessage)
	if clean == "" {
		return "", fmt.Errorf("%w: message must not be empty", types.ErrValidation)
	}
	return clean, nil
}

func programBlock(p *types.Program) string {
	var b strings.Builder
	b.WriteString("PROGRAMA EM DISCUSSÃO:\n")
	fmt.Fprintf(&b, "- Título: %s\n", p.Title)
	fmt.Fprintf(&b, "- Data: %s\n", p.Date)
	if start := types.Deref(p.StartTime); start != "" {
		fmt.Fprintf(&b, "- Horário: %s", start)
		if end := types.Deref(p.EndTime); end != "" {
			fmt.Fprintf(&b, " até %s", end)
		}
		b.WriteString("\n")
	}
	if addr := types.Deref(p.Address); addr != "" {
		fmt.Fprintf(&b, "- Endereço: %s\n", addr)
	}
	if desc := types.Deref(p.Description); desc != "" {
		fmt.Fprintf(&b, "- Descrição: %s\n", desc)
	}
	if notes := types.Deref(p.Notes); notes != "" {
		fmt.Fprintf(&b, "- Anotações do viajante: %s\n", notes)
	}
	if sugg := types.Deref(p.AISuggestions); sugg != "" {
		fmt.Fprintf(&b, "\nSUGESTÕES JÁ GERADAS PARA ESTE PROGRAMA:\n%s\n", sugg)
	}
	b.WriteString("\nVocê é um assistente de viagem. Responda em português do Brasil, de forma objetiva, " +
		"sempre considerando este programa, o perfil do viajante e a data.")
	return b.String()
}

// ProgramChat answers one message about a single program, replaying up to
// HistoryLimit earlier messages of that program's conversation.
func (s *ChatServiceImpl) ProgramChat(ctx context.Context, userID, programID uuid.UUID, message string) (reply string, err error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "ProgramChat", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("program.id", programID.String()),
	))
	defer span.End()
	defer func() { generativeAI.ObserveRequest(ctx, "program_chat", err, false) }()

	l := s.logger.With(slog.String("method", "ProgramChat"), slog.String("programID", programID.String()))

	clean, err := s.cleanMessage(ctx, message)
	if err != nil {
		span.SetStatus(codes.Error, "Empty message")
		return "", err
	}

	program, err := s.programs.Get(ctx, userID, programID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Program lookup failed")
		return "", err
	}

	history, err := s.repo.ListProgramMessages(ctx, userID, programID, HistoryLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "History lookup failed")
		return "", err
	}

	tc, err := s.builder.BuildContext(ctx, userID, s.now(), types.Deref(program.Address))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Context build failed")
		return "", err
	}

	reply, err = s.dispatcher.Send(ctx, generativeAI.ProviderChat, generativeAI.Request{
		System:   travelContext.RenderPrompt(tc, programBlock(program)),
		Messages: toMessages(history),
		Prompt:   clean,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Provider call failed")
		return "", err
	}
	reply = strings.TrimSpace(reply)

	s.persist(ctx, "program", func(ctx context.Context, role types.ChatRole, content string) error {
		return s.repo.InsertProgramMessage(ctx, userID, programID, role, content)
	}, clean, reply)

	l.InfoContext(ctx, "Program chat answered", slog.Int("history", len(history)))
	span.SetStatus(codes.Ok, "Reply generated")
	return reply, nil
}

// GlobalChat answers a trip-level message. The model may append one action block;
// a valid one is applied to the caller's programs and reported back.
func (s *ChatServiceImpl) GlobalChat(ctx context.Context, userID uuid.UUID, message, date string) (out *GlobalReply, err error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "GlobalChat", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()
	defer func() { generativeAI.ObserveRequest(ctx, "global_chat", err, false) }()

	l := s.logger.With(slog.String("method", "GlobalChat"), slog.String("userID", userID.String()))

	clean, err := s.cleanMessage(ctx, message)
	if err != nil {
		span.SetStatus(codes.Error, "Empty message")
		return nil, err
	}

	asOf := s.now()
	if date != "" {
		if asOf, err = types.ParseDate(date); err != nil {
			span.SetStatus(codes.Error, "Invalid date")
			return nil, err
		}
	}

	history, err := s.repo.ListGlobalMessages(ctx, userID, HistoryLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "History lookup failed")
		return nil, err
	}

	tc, err := s.builder.BuildContext(ctx, userID, asOf, "")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Context build failed")
		return nil, err
	}
	if tc.Trip != nil {
		tc.Region = tc.Trip.Destination
	}

	raw, err := s.dispatcher.Send(ctx, generativeAI.ProviderChat, generativeAI.Request{
		System:   travelContext.RenderPrompt(tc, scheduleBlock(tc, types.FormatDate(asOf))),
		Messages: toMessages(history),
		Prompt:   clean,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Provider call failed")
		return nil, err
	}

	action, text := llmParser.ExtractAction(raw)
	out = &GlobalReply{Reply: text}
	if action != nil {
		executed, aerr := s.applyAction(ctx, userID, action)
		if aerr != nil {
			l.WarnContext(ctx, "Requested program action failed", slog.String("type", string(action.Type)), slog.Any("error", aerr))
			span.RecordError(aerr)
			out.Reply = strings.TrimSpace(out.Reply + "\n\n(Não foi possível aplicar a alteração pedida na agenda.)")
		} else {
			out.Action = executed
			l.InfoContext(ctx, "Program action applied", slog.String("type", string(executed.Type)))
		}
	}

	s.persist(ctx, "global", func(ctx context.Context, role types.ChatRole, content string) error {
		return s.repo.InsertGlobalMessage(ctx, userID, role, content)
	}, clean, out.Reply)

	span.SetStatus(codes.Ok, "Reply generated")
	return out, nil
}

func (s *ChatServiceImpl) applyAction(ctx context.Context, userID uuid.UUID, a *types.ProgramAction) (*types.ActionExecuted, error) {
	switch a.Type {
	case types.ActionAdd:
		p, err := s.programs.Create(ctx, userID, a.Program)
		if err != nil {
			return nil, err
		}
		return &types.ActionExecuted{Type: a.Type, Program: p}, nil
	case types.ActionUpdate, types.ActionDelete:
		id, err := uuid.Parse(a.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("%w: action references invalid program id %q", types.ErrValidation, a.ProgramID)
		}
		if a.Type == types.ActionUpdate {
			p, err := s.programs.Update(ctx, userID, id, a.Program)
			if err != nil {
				return nil, err
			}
			return &types.ActionExecuted{Type: a.Type, Program: p}, nil
		}
		p, err := s.programs.Get(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if err := s.programs.Delete(ctx, userID, id); err != nil {
			return nil, err
		}
		return &types.ActionExecuted{Type: a.Type, Program: p}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action %q", types.ErrValidation, a.Type)
	}
}

func (s *ChatServiceImpl) ProgramHistory(ctx context.Context, userID, programID uuid.UUID) ([]types.ChatMessage, error) {
	if _, err := s.programs.Get(ctx, userID, programID); err != nil {
		return nil, err
	}
	return s.repo.ListProgramMessages(ctx, userID, programID, HistoryLimit)
}

func (s *ChatServiceImpl) ClearProgramHistory(ctx context.Context, userID, programID uuid.UUID) error {
	return s.repo.DeleteProgramMessages(ctx, userID, programID)
}

func (s *ChatServiceImpl) GlobalHistory(ctx context.Context, userID uuid.UUID) ([]types.ChatMessage, error) {
	return s.repo.ListGlobalMessages(ctx, userID, HistoryLimit)
}

func (s *ChatServiceImpl) ClearGlobalHistory(ctx context.Context, userID uuid.UUID) error {
	return s.repo.DeleteGlobalMessages(ctx, userID)
}
