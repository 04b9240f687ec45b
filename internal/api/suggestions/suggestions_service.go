package suggestions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
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

// maxFAQWriteAttempts bounds the compare-and-swap loop of ExploreTopic.
const maxFAQWriteAttempts = 3

var errEmptyReply = errors.New("model returned an empty reply")

// ProgramStore is the slice of the program repository the generators write through.
type ProgramStore interface {
	Get(ctx context.Context, userID, id uuid.UUID) (*types.Program, error)
	UpdateSuggestions(ctx context.Context, userID, id uuid.UUID, suggestions string) error
	UpdateFAQ(ctx context.Context, userID, id uuid.UUID, faq []types.FAQItem, expectedVersion int) (int, error)
}

type ExploreResult struct {
	FAQ     []types.FAQItem `json:"faq"`
	Details string          `json:"details"`
}

var _ SuggestionsService = (*SuggestionsServiceImpl)(nil)

type SuggestionsService interface {
	GenerateSuggestions(ctx context.Context, userID, programID uuid.UUID) (string, error)
	GenerateFAQ(ctx context.Context, userID, programID uuid.UUID, suggestions string) ([]types.FAQItem, error)
	ExploreTopic(ctx context.Context, userID, programID uuid.UUID, index int) (*ExploreResult, error)
}

type SuggestionsServiceImpl struct {
	logger     *slog.Logger
	programs   ProgramStore
	builder    travelContext.Builder
	dispatcher generativeAI.Dispatcher
	sanitizer  *sanitizer.Sanitizer
	now        func() time.Time
}

func NewSuggestionsService(programs ProgramStore, builder travelContext.Builder, dispatcher generativeAI.Dispatcher,
	s *sanitizer.Sanitizer, logger *slog.Logger) *SuggestionsServiceImpl {
	return &SuggestionsServiceImpl{
		logger:     logger,
		programs:   programs,
		builder:    builder,
		dispatcher: dispatcher,
		sanitizer:  s,
		now:        time.Now,
	}
}

// contextFor builds the travel context as of the program's own day, so season and
// holiday facts describe the visit rather than the moment of the request.
func (s *SuggestionsServiceImpl) contextFor(ctx context.Context, userID uuid.UUID, p *types.Program) (*types.TravelContext, error) {
	asOf, err := types.ParseDate(p.Date)
	if err != nil {
		asOf = s.now()
	}
	return s.builder.BuildContext(ctx, userID, asOf, types.Deref(p.Address))
}

// GenerateSuggestions writes a markdown guide for the program's surroundings onto
// ai_suggestions. Calling it again replaces the previous text.
func (s *SuggestionsServiceImpl) GenerateSuggestions(ctx context.Context, userID, programID uuid.UUID) (text string, err error) {
	ctx, span := otel.Tracer("SuggestionsService").Start(ctx, "GenerateSuggestions", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("program.id", programID.String()),
	))
	defer span.End()
	defer func() { generativeAI.ObserveRequest(ctx, "region_suggestions", err, false) }()

	l := s.logger.With(slog.String("method", "GenerateSuggestions"), slog.String("programID", programID.String()))

	program, err := s.programs.Get(ctx, userID, programID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Program lookup failed")
		return "", err
	}
	tc, err := s.contextFor(ctx, userID, program)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Context build failed")
		return "", err
	}

	raw, err := s.dispatcher.Send(ctx, generativeAI.ProviderChat, generativeAI.Request{
		Prompt: travelContext.RenderPrompt(tc, suggestionsTask(program)),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Provider call failed")
		return "", err
	}

	text = sanitizer.Sanitize(raw, sanitizer.FieldSuggestions)
	if text == "" {
		err = types.NewMalformedOutputError(raw, errEmptyReply)
		span.SetStatus(codes.Error, "Empty suggestions")
		return "", err
	}

	if err = s.programs.UpdateSuggestions(ctx, userID, programID, text); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Persist failed")
		return "", fmt.Errorf("error storing suggestions: %w", err)
	}

	l.InfoContext(ctx, "Region suggestions generated", slog.Int("length", len(text)))
	span.SetStatus(codes.Ok, "Suggestions generated")
	return text, nil
}

// GenerateFAQ turns suggestion text into 4 to 6 question/answer pairs stored on
// ai_faq. Unparseable model output is stored and returned as an empty list.
func (s *SuggestionsServiceImpl) GenerateFAQ(ctx context.Context, userID, programID uuid.UUID, suggestions string) (faq []types.FAQItem, err error) {
	ctx, span := otel.Tracer("SuggestionsService").Start(ctx, "GenerateFAQ", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("program.id", programID.String()),
	))
	defer span.End()

	degraded := false
	defer func() { generativeAI.ObserveRequest(ctx, "faq", err, degraded) }()

	l := s.logger.With(slog.String("method", "GenerateFAQ"), slog.String("programID", programID.String()))

	program, err := s.programs.Get(ctx, userID, programID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Program lookup failed")
		return nil, err
	}

	source := s.sanitizer.Clean(ctx, suggestions, sanitizer.FieldSuggestions)
	if source == "" {
		source = types.Deref(program.AISuggestions)
	}
	if source == "" {
		err = fmt.Errorf("%w: no suggestions to build the FAQ from", types.ErrValidation)
		span.SetStatus(codes.Error, "No suggestions")
		return nil, err
	}

	tc, err := s.contextFor(ctx, userID, program)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Context build failed")
		return nil, err
	}

	raw, err := s.dispatcher.Send(ctx, generativeAI.ProviderChat, generativeAI.Request{
		Prompt:   travelContext.RenderPrompt(tc, faqTask(program, source)),
		JSONMode: true,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Provider call failed")
		return nil, err
	}

	faq, perr := llmParser.ParseFAQ(raw)
	if perr != nil {
		degraded = true
		l.WarnContext(ctx, "FAQ output unusable, storing an empty list", slog.Any("error", perr))
		faq = []types.FAQItem{}
	}

	if _, err = s.programs.UpdateFAQ(ctx, userID, programID, faq, 0); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Persist failed")
		return nil, fmt.Errorf("error storing faq: %w", err)
	}

	l.InfoContext(ctx, "FAQ generated", slog.Int("items", len(faq)), slog.Bool("degraded", degraded))
	span.SetStatus(codes.Ok, "FAQ generated")
	return faq, nil
}

// ExploreTopic expands one FAQ entry and stores the text in its details field.
// The array write is version-checked; on a concurrent change the program is
// re-read and the same expansion re-applied, up to maxFAQWriteAttempts times.
func (s *SuggestionsServiceImpl) ExploreTopic(ctx context.Context, userID, programID uuid.UUID, index int) (out *ExploreResult, err error) {
	ctx, span := otel.Tracer("SuggestionsService").Start(ctx, "ExploreTopic", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("program.id", programID.String()),
		attribute.Int("faq.index", index),
	))
	defer span.End()
	defer func() { generativeAI.ObserveRequest(ctx, "topic_drilldown", err, false) }()

	l := s.logger.With(slog.String("method", "ExploreTopic"), slog.String("programID", programID.String()), slog.Int("index", index))

	var details string
	for attempt := 1; attempt <= maxFAQWriteAttempts; attempt++ {
		program, err := s.programs.Get(ctx, userID, programID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Program lookup failed")
			return nil, err
		}
		if index < 0 || index >= len(program.AIFAQ) {
			err = fmt.Errorf("%w: faq index %d out of range (0..%d)", types.ErrValidation, index, len(program.AIFAQ)-1)
			span.SetStatus(codes.Error, "Index out of range")
			return nil, err
		}

		if details == "" {
			details, err = s.expand(ctx, userID, program, program.AIFAQ[index])
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "Expansion failed")
				return nil, err
			}
		}

		faq := make([]types.FAQItem, len(program.AIFAQ))
		copy(faq, program.AIFAQ)
		faq[index].Details = details

		_, err = s.programs.UpdateFAQ(ctx, userID, programID, faq, program.Version)
		if errors.Is(err, types.ErrConflict) {
			l.WarnContext(ctx, "FAQ changed concurrently, retrying", slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Persist failed")
			return nil, fmt.Errorf("error storing faq details: %w", err)
		}

		span.SetStatus(codes.Ok, "Topic explored")
		return &ExploreResult{FAQ: faq, Details: details}, nil
	}

	err = fmt.Errorf("faq of program %s kept changing after %d attempts: %w", programID, maxFAQWriteAttempts, types.ErrConflict)
	span.SetStatus(codes.Error, "Conflict")
	return nil, err
}

func (s *SuggestionsServiceImpl) expand(ctx context.Context, userID uuid.UUID, program *types.Program, item types.FAQItem) (string, error) {
	tc, err := s.contextFor(ctx, userID, program)
	if err != nil {
		return "", err
	}
	raw, err := s.dispatcher.Send(ctx, generativeAI.ProviderChat, generativeAI.Request{
		Prompt: travelContext.RenderPrompt(tc, exploreTask(program, item)),
	})
	if err != nil {
		return "", err
	}
	details := strings.TrimSpace(sanitizer.Sanitize(raw, sanitizer.FieldContext))
	if details == "" {
		return "", types.NewMalformedOutputError(raw, errEmptyReply)
	}
	return details, nil
}
