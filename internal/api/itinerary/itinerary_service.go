package itinerary

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
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

// ProgramStore is the part of the program service itinerary work reads and writes.
type ProgramStore interface {
	List(ctx context.Context, userID uuid.UUID, date string) ([]types.Program, error)
	CreateMany(ctx context.Context, userID uuid.UUID, patches []types.ProgramPatch) ([]types.Program, error)
}

type OrganizeRequest struct {
	Attractions []types.Attraction `json:"attractions" validate:"required,min=1,dive"`
	Date        string             `json:"date" validate:"required"`
	StartTime   string             `json:"start_time" validate:"required"`
	EndTime     string             `json:"end_time" validate:"required"`
	Region      string             `json:"region,omitempty"`
}

// DayDocument is everything the PDF renderer needs for one day.
type DayDocument struct {
	Date      string
	Region    string
	Programs  []types.Program
	Narrative *types.PDFNarrative
}

var _ ItineraryService = (*ItineraryServiceImpl)(nil)

type ItineraryService interface {
	Organize(ctx context.Context, userID uuid.UUID, req OrganizeRequest) (*types.OrganizedItinerary, error)
	Confirm(ctx context.Context, userID uuid.UUID, entries []types.ItineraryEntry) ([]types.Program, error)
	Narrative(ctx context.Context, userID uuid.UUID, date, region string) (*DayDocument, error)
	RenderPDF(ctx context.Context, userID uuid.UUID, date, region string) ([]byte, error)
}

type ItineraryServiceImpl struct {
	logger     *slog.Logger
	programs   ProgramStore
	builder    travelContext.Builder
	dispatcher generativeAI.Dispatcher
	sanitizer  *sanitizer.Sanitizer
}

func NewItineraryService(programs ProgramStore, builder travelContext.Builder, dispatcher generativeAI.Dispatcher,
	s *sanitizer.Sanitizer, logger *slog.Logger) *ItineraryServiceImpl {
	return &ItineraryServiceImpl{
		logger:     logger,
		programs:   programs,
		builder:    builder,
		dispatcher: dispatcher,
		sanitizer:  s,
	}
}

// buildContext falls back to the trip destination when the caller names no region.
func (s *ItineraryServiceImpl) buildContext(ctx context.Context, userID uuid.UUID, asOf time.Time, region string) (*types.TravelContext, error) {
	tc, err := s.builder.BuildContext(ctx, userID, asOf, region)
	if err != nil {
		return nil, err
	}
	if tc.Region == "" && tc.Trip != nil {
		tc.Region = tc.Trip.Destination
	}
	return tc, nil
}

func (s *ItineraryServiceImpl) cleanAttractions(ctx context.Context, in []types.Attraction) []types.Attraction {
	out := make([]types.Attraction, len(in))
	for i, a := range in {
		a.Name = s.sanitizer.Clean(ctx, a.Name, sanitizer.FieldTitle)
		a.Type = sanitizer.Sanitize(a.Type, sanitizer.FieldGeneric)
		a.Address = s.sanitizer.Clean(ctx, a.Address, sanitizer.FieldAddress)
		a.Hours = sanitizer.Sanitize(a.Hours, sanitizer.FieldGeneric)
		a.Description = s.sanitizer.Clean(ctx, a.Description, sanitizer.FieldDescription)
		a.Neighborhood = sanitizer.Sanitize(a.Neighborhood, sanitizer.FieldRegion)
		out[i] = a
	}
	return out
}

// Organize asks the model to fit the chosen attractions into the time window
// without clashing with programs already on that day.
func (s *ItineraryServiceImpl) Organize(ctx context.Context, userID uuid.UUID, req OrganizeRequest) (it *types.OrganizedItinerary, err error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Organize", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("itinerary.date", req.Date),
		attribute.Int("itinerary.attractions", len(req.Attractions)),
	))
	defer span.End()
	defer func() { generativeAI.ObserveRequest(ctx, "itinerary", err, false) }()

	l := s.logger.With(slog.String("method", "Organize"))

	asOf, err := types.ParseDate(req.Date)
	if err != nil {
		span.SetStatus(codes.Error, "Invalid date")
		return nil, err
	}
	if !types.ValidClock(req.StartTime) || !types.ValidClock(req.EndTime) || req.EndTime <= req.StartTime {
		err = fmt.Errorf("%w: time window %s-%s is invalid", types.ErrValidation, req.StartTime, req.EndTime)
		span.SetStatus(codes.Error, "Invalid window")
		return nil, err
	}
	if len(req.Attractions) == 0 {
		err = fmt.Errorf("%w: at least one attraction is required", types.ErrValidation)
		span.SetStatus(codes.Error, "No attractions")
		return nil, err
	}

	date := types.FormatDate(asOf)
	region := s.sanitizer.Clean(ctx, req.Region, sanitizer.FieldRegion)
	attractions := s.cleanAttractions(ctx, req.Attractions)

	tc, err := s.buildContext(ctx, userID, asOf, region)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Context build failed")
		return nil, err
	}

	addendum := travelContext.RenderTripOverview(tc, date) + "\n" + organizeTask(date, req.StartTime, req.EndTime, attractions)
	raw, err := s.dispatcher.Send(ctx, generativeAI.ProviderChat, generativeAI.Request{
		Prompt:   travelContext.RenderPrompt(tc, addendum),
		JSONMode: true,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Provider call failed")
		return nil, err
	}

	it, err = llmParser.ParseItinerary(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Malformed itinerary")
		return nil, err
	}
	for i := range it.Programs {
		if it.Programs[i].Date == "" {
			it.Programs[i].Date = date
		}
	}

	l.InfoContext(ctx, "Itinerary organized",
		slog.Int("entries", len(it.Programs)), slog.Int("warnings", len(it.Warnings)))
	span.SetStatus(codes.Ok, "Itinerary organized")
	return it, nil
}

// Confirm stores accepted itinerary entries as programs in one batch.
func (s *ItineraryServiceImpl) Confirm(ctx context.Context, userID uuid.UUID, entries []types.ItineraryEntry) ([]types.Program, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Confirm", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Int("itinerary.entries", len(entries)),
	))
	defer span.End()

	patches := make([]types.ProgramPatch, 0, len(entries))
	for _, e := range entries {
		patches = append(patches, EntryToPatch(e))
	}

	created, err := s.programs.CreateMany(ctx, userID, patches)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Create failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Itinerary confirmed")
	return created, nil
}

// EntryToPatch maps an itinerary entry onto program fields. Travel time is kept
// in the notes since programs have no column for it.
func EntryToPatch(e types.ItineraryEntry) types.ProgramPatch {
	notes := e.Notes
	if e.TravelTime != "" {
		travel := "Deslocamento: " + e.TravelTime
		if notes != "" {
			notes = notes + "\n" + travel
		} else {
			notes = travel
		}
	}
	title, date := e.Title, e.Date
	return types.ProgramPatch{
		Title:       &title,
		Date:        &date,
		StartTime:   types.Str(e.StartTime),
		EndTime:     types.Str(e.EndTime),
		Address:     types.Str(e.Address),
		Description: types.Str(e.Description),
		Notes:       types.Str(notes),
	}
}

// Narrative generates the printed-day text for every program on date. Model
// failures other than transport errors degrade to a templated narrative.
func (s *ItineraryServiceImpl) Narrative(ctx context.Context, userID uuid.UUID, date, region string) (doc *DayDocument, err error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Narrative", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("itinerary.date", date),
	))
	defer span.End()

	degraded := false
	defer func() { generativeAI.ObserveRequest(ctx, "pdf_narrative", err, degraded) }()

	l := s.logger.With(slog.String("method", "Narrative"))

	asOf, err := types.ParseDate(date)
	if err != nil {
		span.SetStatus(codes.Error, "Invalid date")
		return nil, err
	}
	date = types.FormatDate(asOf)

	programs, err := s.programs.List(ctx, userID, date)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Program list failed")
		return nil, err
	}
	if len(programs) == 0 {
		err = fmt.Errorf("%w: no programs scheduled on %s", types.ErrValidation, date)
		span.SetStatus(codes.Error, "Empty day")
		return nil, err
	}
	programs = travelContext.SortPrograms(programs)

	tc, err := s.buildContext(ctx, userID, asOf, s.sanitizer.Clean(ctx, region, sanitizer.FieldRegion))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Context build failed")
		return nil, err
	}
	doc = &DayDocument{Date: date, Region: tc.Region, Programs: programs}

	raw, err := s.dispatcher.Send(ctx, generativeAI.ProviderChat, generativeAI.Request{
		Prompt:   travelContext.RenderPrompt(tc, narrativeTask(date, programs)),
		JSONMode: true,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Provider call failed")
		return nil, err
	}

	narrative, perr := llmParser.ParseNarrative(raw, len(programs))
	if perr != nil {
		degraded = true
		l.WarnContext(ctx, "Narrative output unusable, using template", slog.Any("error", perr))
		narrative = llmParser.FallbackNarrative(tc.Region, programs)
	} else if narrative.Intro == "" {
		l.InfoContext(ctx, "Narrative intro missing, using template intro")
		narrative.Intro = llmParser.FallbackNarrative(tc.Region, programs).Intro
	}
	doc.Narrative = narrative

	span.SetStatus(codes.Ok, "Narrative generated")
	return doc, nil
}

// RenderPDF produces the printable day document.
func (s *ItineraryServiceImpl) RenderPDF(ctx context.Context, userID uuid.UUID, date, region string) ([]byte, error) {
	doc, err := s.Narrative(ctx, userID, date, region)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := WritePDF(&buf, doc); err != nil {
		return nil, fmt.Errorf("error rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}
