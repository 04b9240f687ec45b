package profiles

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-assistant/internal/api/sanitizer"
	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

var _ ProfileService = (*ProfileServiceImpl)(nil)

type ProfileService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.TravelProfile, error)
	SaveProfile(ctx context.Context, userID uuid.UUID, p types.TravelProfile) (*types.TravelProfile, error)
	GetTripConfig(ctx context.Context, userID uuid.UUID) (*types.TripConfig, error)
	SaveTripConfig(ctx context.Context, userID uuid.UUID, c types.TripConfig) (*types.TripConfig, error)
}

type ProfileServiceImpl struct {
	logger    *slog.Logger
	repo      ProfileRepository
	sanitizer *sanitizer.Sanitizer
}

func NewProfileService(repo ProfileRepository, s *sanitizer.Sanitizer, logger *slog.Logger) *ProfileServiceImpl {
	return &ProfileServiceImpl{logger: logger, repo: repo, sanitizer: s}
}

func (s *ProfileServiceImpl) GetProfile(ctx context.Context, userID uuid.UUID) (*types.TravelProfile, error) {
	return s.repo.GetProfile(ctx, userID)
}

func (s *ProfileServiceImpl) GetTripConfig(ctx context.Context, userID uuid.UUID) (*types.TripConfig, error) {
	return s.repo.GetTripConfig(ctx, userID)
}

// SaveProfile overwrites the caller's profile. Every string ends up in prompts,
// so each one is cleaned with the bound of its field.
func (s *ProfileServiceImpl) SaveProfile(ctx context.Context, userID uuid.UUID, p types.TravelProfile) (*types.TravelProfile, error) {
	ctx, span := otel.Tracer("ProfileService").Start(ctx, "SaveProfile", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "SaveProfile"), slog.String("userID", userID.String()))

	if !p.Pace.Valid() {
		span.SetStatus(codes.Error, "Invalid pace")
		return nil, fmt.Errorf("%w: unknown pace %q", types.ErrValidation, p.Pace)
	}
	if !p.BudgetLevel.Valid() {
		span.SetStatus(codes.Error, "Invalid budget level")
		return nil, fmt.Errorf("%w: unknown budget level %q", types.ErrValidation, p.BudgetLevel)
	}

	clean := types.TravelProfile{
		UserID:                   userID,
		Travelers:                make([]types.Traveler, 0, len(p.Travelers)),
		DietaryRestrictions:      s.sanitizer.CleanAll(ctx, p.DietaryRestrictions, sanitizer.FieldGeneric),
		MobilityNotes:            s.sanitizer.Clean(ctx, p.MobilityNotes, sanitizer.FieldNotes),
		Pace:                     p.Pace,
		BudgetLevel:              p.BudgetLevel,
		PreferredCategories:      s.sanitizer.CleanAll(ctx, p.PreferredCategories, sanitizer.FieldGeneric),
		AvoidTopics:              s.sanitizer.CleanAll(ctx, p.AvoidTopics, sanitizer.FieldTopic),
		Interests:                s.sanitizer.CleanAll(ctx, p.Interests, sanitizer.FieldGeneric),
		TransportationPreference: s.sanitizer.Clean(ctx, p.TransportationPreference, sanitizer.FieldGeneric),
		WeatherSensitivity:       s.sanitizer.Clean(ctx, p.WeatherSensitivity, sanitizer.FieldGeneric),
		MorningPreference:        s.sanitizer.Clean(ctx, p.MorningPreference, sanitizer.FieldGeneric),
		GroupDynamics:            s.sanitizer.Clean(ctx, p.GroupDynamics, sanitizer.FieldGeneric),
		SpecialOccasions:         s.sanitizer.CleanAll(ctx, p.SpecialOccasions, sanitizer.FieldGeneric),
		Notes:                    s.sanitizer.Clean(ctx, p.Notes, sanitizer.FieldNotes),
	}
	for i, t := range p.Travelers {
		name := s.sanitizer.Clean(ctx, t.Name, sanitizer.FieldTitle)
		if name == "" {
			return nil, fmt.Errorf("%w: traveler %d has no name", types.ErrValidation, i)
		}
		if t.Age != nil && (*t.Age < 0 || *t.Age > 120) {
			return nil, fmt.Errorf("%w: traveler %q has an invalid age", types.ErrValidation, name)
		}
		clean.Travelers = append(clean.Travelers, types.Traveler{
			Name:      name,
			Age:       t.Age,
			Interests: s.sanitizer.CleanAll(ctx, t.Interests, sanitizer.FieldGeneric),
		})
	}

	saved, err := s.repo.UpsertProfile(ctx, clean)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Save failed")
		return nil, fmt.Errorf("error saving travel profile: %w", err)
	}

	l.InfoContext(ctx, "Travel profile saved", slog.Int("travelers", len(saved.Travelers)))
	span.SetStatus(codes.Ok, "Profile saved")
	return saved, nil
}

func (s *ProfileServiceImpl) SaveTripConfig(ctx context.Context, userID uuid.UUID, c types.TripConfig) (*types.TripConfig, error) {
	ctx, span := otel.Tracer("ProfileService").Start(ctx, "SaveTripConfig", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	start, err := types.ParseDate(c.StartDate)
	if err != nil {
		span.SetStatus(codes.Error, "Invalid start date")
		return nil, err
	}
	end, err := types.ParseDate(c.EndDate)
	if err != nil {
		span.SetStatus(codes.Error, "Invalid end date")
		return nil, err
	}
	if end.Before(start) {
		span.SetStatus(codes.Error, "End before start")
		return nil, fmt.Errorf("%w: end_date is before start_date", types.ErrValidation)
	}

	saved, err := s.repo.UpsertTripConfig(ctx, types.TripConfig{
		UserID:       userID,
		StartDate:    c.StartDate,
		EndDate:      c.EndDate,
		HotelAddress: s.sanitizer.Clean(ctx, c.HotelAddress, sanitizer.FieldAddress),
		Destination:  s.sanitizer.Clean(ctx, c.Destination, sanitizer.FieldRegion),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Save failed")
		return nil, fmt.Errorf("error saving trip config: %w", err)
	}

	s.logger.InfoContext(ctx, "Trip config saved", slog.String("userID", userID.String()),
		slog.String("start", saved.StartDate), slog.String("end", saved.EndDate))
	span.SetStatus(codes.Ok, "Trip config saved")
	return saved, nil
}
