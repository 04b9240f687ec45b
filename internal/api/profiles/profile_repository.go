package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-trip-assistant/app/db"
	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

var _ ProfileRepository = (*PostgresProfileRepo)(nil)

// ProfileRepository stores the one-per-user travel profile and trip window.
// Both records are only ever overwritten, never deleted.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.TravelProfile, error)
	UpsertProfile(ctx context.Context, p types.TravelProfile) (*types.TravelProfile, error)
	GetTripConfig(ctx context.Context, userID uuid.UUID) (*types.TripConfig, error)
	UpsertTripConfig(ctx context.Context, c types.TripConfig) (*types.TripConfig, error)
}

const profileColumns = `user_id, travelers, dietary_restrictions, mobility_notes, pace, budget_level,
        preferred_categories, avoid_topics, interests, transportation_preference, weather_sensitivity,
        morning_preference, group_dynamics, special_occasions, notes, updated_at`

const tripColumns = `user_id, start_date::text, end_date::text, hotel_address, destination, updated_at`

type PostgresProfileRepo struct {
	logger *slog.Logger
	pgpool database.DBTX
}

func NewPostgresProfileRepo(pgpool database.DBTX, logger *slog.Logger) *PostgresProfileRepo {
	return &PostgresProfileRepo{logger: logger, pgpool: pgpool}
}

func scanProfile(row pgx.Row) (*types.TravelProfile, error) {
	var (
		p         types.TravelProfile
		travelers []byte
		pace      string
		budget    string
	)
	err := row.Scan(&p.UserID, &travelers, &p.DietaryRestrictions, &p.MobilityNotes, &pace, &budget,
		&p.PreferredCategories, &p.AvoidTopics, &p.Interests, &p.TransportationPreference, &p.WeatherSensitivity,
		&p.MorningPreference, &p.GroupDynamics, &p.SpecialOccasions, &p.Notes, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Pace = types.TravelPace(pace)
	p.BudgetLevel = types.BudgetLevel(budget)
	p.Travelers = []types.Traveler{}
	if len(travelers) > 0 {
		if err := json.Unmarshal(travelers, &p.Travelers); err != nil {
			return nil, fmt.Errorf("decoding travelers of %s: %w", p.UserID, err)
		}
	}
	return &p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r *PostgresProfileRepo) GetProfile(ctx context.Context, userID uuid.UUID) (*types.TravelProfile, error) {
	ctx, span := otel.Tracer("ProfileRepo").Start(ctx, "GetProfile", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "travel_profiles"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	start := time.Now()
	p, err := scanProfile(r.pgpool.QueryRow(ctx, `
        SELECT `+profileColumns+`
        FROM travel_profiles
        WHERE user_id = $1`, userID))
	database.ObserveQuery(ctx, "travel_profiles", "GetProfile", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		span.SetStatus(codes.Ok, "No profile")
		return nil, fmt.Errorf("travel profile of %s: %w", userID, types.ErrNotFound)
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to fetch travel profile", slog.String("userID", userID.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching travel profile: %w", err)
	}

	span.SetStatus(codes.Ok, "Profile fetched")
	return p, nil
}

func (r *PostgresProfileRepo) UpsertProfile(ctx context.Context, p types.TravelProfile) (*types.TravelProfile, error) {
	ctx, span := otel.Tracer("ProfileRepo").Start(ctx, "UpsertProfile", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "travel_profiles"),
		attribute.String("db.user.id", p.UserID.String()),
	))
	defer span.End()

	if p.Travelers == nil {
		p.Travelers = []types.Traveler{}
	}
	travelers, err := json.Marshal(p.Travelers)
	if err != nil {
		return nil, fmt.Errorf("encoding travelers: %w", err)
	}

	query := `
        INSERT INTO travel_profiles (user_id, travelers, dietary_restrictions, mobility_notes, pace, budget_level,
            preferred_categories, avoid_topics, interests, transportation_preference, weather_sensitivity,
            morning_preference, group_dynamics, special_occasions, notes)
        VALUES ($1, $2::jsonb, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
        ON CONFLICT (user_id) DO UPDATE SET
            travelers = EXCLUDED.travelers,
            dietary_restrictions = EXCLUDED.dietary_restrictions,
            mobility_notes = EXCLUDED.mobility_notes,
            pace = EXCLUDED.pace,
            budget_level = EXCLUDED.budget_level,
            preferred_categories = EXCLUDED.preferred_categories,
            avoid_topics = EXCLUDED.avoid_topics,
            interests = EXCLUDED.interests,
            transportation_preference = EXCLUDED.transportation_preference,
            weather_sensitivity = EXCLUDED.weather_sensitivity,
            morning_preference = EXCLUDED.morning_preference,
            group_dynamics = EXCLUDED.group_dynamics,
            special_occasions = EXCLUDED.special_occasions,
            notes = EXCLUDED.notes,
            updated_at = now()
        RETURNING ` + profileColumns

	start := time.Now()
	saved, err := scanProfile(r.pgpool.QueryRow(ctx, query,
		p.UserID, string(travelers), nonNil(p.DietaryRestrictions), p.MobilityNotes, string(p.Pace), string(p.BudgetLevel),
		nonNil(p.PreferredCategories), nonNil(p.AvoidTopics), nonNil(p.Interests), p.TransportationPreference,
		p.WeatherSensitivity, p.MorningPreference, p.GroupDynamics, nonNil(p.SpecialOccasions), p.Notes))
	database.ObserveQuery(ctx, "travel_profiles", "UpsertProfile", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to save travel profile", slog.String("userID", p.UserID.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB upsert failed")
		return nil, fmt.Errorf("database error saving travel profile: %w", err)
	}

	span.SetStatus(codes.Ok, "Profile saved")
	return saved, nil
}

func scanTrip(row pgx.Row) (*types.TripConfig, error) {
	var c types.TripConfig
	if err := row.Scan(&c.UserID, &c.StartDate, &c.EndDate, &c.HotelAddress, &c.Destination, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PostgresProfileRepo) GetTripConfig(ctx context.Context, userID uuid.UUID) (*types.TripConfig, error) {
	ctx, span := otel.Tracer("ProfileRepo").Start(ctx, "GetTripConfig", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "trip_configs"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	start := time.Now()
	c, err := scanTrip(r.pgpool.QueryRow(ctx, `SELECT `+tripColumns+` FROM trip_configs WHERE user_id = $1`, userID))
	database.ObserveQuery(ctx, "trip_configs", "GetTripConfig", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		span.SetStatus(codes.Ok, "No trip config")
		return nil, fmt.Errorf("trip config of %s: %w", userID, types.ErrNotFound)
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to fetch trip config", slog.String("userID", userID.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching trip config: %w", err)
	}

	span.SetStatus(codes.Ok, "Trip config fetched")
	return c, nil
}

func (r *PostgresProfileRepo) UpsertTripConfig(ctx context.Context, c types.TripConfig) (*types.TripConfig, error) {
	ctx, span := otel.Tracer("ProfileRepo").Start(ctx, "UpsertTripConfig", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "trip_configs"),
		attribute.String("db.user.id", c.UserID.String()),
	))
	defer span.End()

	query := `
        INSERT INTO trip_configs (user_id, start_date, end_date, hotel_address, destination)
        VALUES ($1, $2::date, $3::date, $4, $5)
        ON CONFLICT (user_id) DO UPDATE SET
            start_date = EXCLUDED.start_date,
            end_date = EXCLUDED.end_date,
            hotel_address = EXCLUDED.hotel_address,
            destination = EXCLUDED.destination,
            updated_at = now()
        RETURNING ` + tripColumns

	start := time.Now()
	saved, err := scanTrip(r.pgpool.QueryRow(ctx, query, c.UserID, c.StartDate, c.EndDate, c.HotelAddress, c.Destination))
	database.ObserveQuery(ctx, "trip_configs", "UpsertTripConfig", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to save trip config", slog.String("userID", c.UserID.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB upsert failed")
		return nil, fmt.Errorf("database error saving trip config: %w", err)
	}

	span.SetStatus(codes.Ok, "Trip config saved")
	return saved, nil
}
