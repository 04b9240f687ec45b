// Package travelContext gathers a user's profile, trip and program history and
// renders them into the deterministic prompt body shared by every AI feature.
package travelContext

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
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

// ProfileReader is the read side of the profile storage.
type ProfileReader interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.TravelProfile, error)
	GetTripConfig(ctx context.Context, userID uuid.UUID) (*types.TripConfig, error)
}

// ProgramReader is the read side of the program storage.
type ProgramReader interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]types.Program, error)
}

type Builder interface {
	BuildContext(ctx context.Context, userID uuid.UUID, asOf time.Time, region string) (*types.TravelContext, error)
}

var _ Builder = (*BuilderImpl)(nil)

type BuilderImpl struct {
	profiles ProfileReader
	programs ProgramReader
	logger   *slog.Logger
}

func NewBuilder(profiles ProfileReader, programs ProgramReader, logger *slog.Logger) *BuilderImpl {
	return &BuilderImpl{profiles: profiles, programs: programs, logger: logger}
}

// BuildContext reads profile, trip config and programs. Absent profile or trip
// config yield nil fields rather than an error.
func (b *BuilderImpl) BuildContext(ctx context.Context, userID uuid.UUID, asOf time.Time, region string) (*types.TravelContext, error) {
	ctx, span := otel.Tracer("TravelContext").Start(ctx, "BuildContext", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("region", region),
	))
	defer span.End()

	l := b.logger.With(slog.String("method", "BuildContext"), slog.String("userID", userID.String()))

	tc := &types.TravelContext{
		UserID: userID,
		AsOf:   asOf,
		Region: strings.TrimSpace(region),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := b.profiles.GetProfile(gctx, userID)
		if err != nil && !errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("failed to load travel profile: %w", err)
		}
		tc.Profile = p
		return nil
	})
	g.Go(func() error {
		t, err := b.profiles.GetTripConfig(gctx, userID)
		if err != nil && !errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("failed to load trip config: %w", err)
		}
		tc.Trip = t
		return nil
	})
	g.Go(func() error {
		ps, err := b.programs.ListByUser(gctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load programs: %w", err)
		}
		tc.Programs = ps
		return nil
	})

	if err := g.Wait(); err != nil {
		l.ErrorContext(ctx, "Failed to build travel context", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "context build failed")
		return nil, err
	}

	l.DebugContext(ctx, "Travel context built",
		slog.Bool("has_profile", tc.Profile != nil),
		slog.Bool("has_trip", tc.Trip != nil),
		slog.Int("programs", len(tc.Programs)))
	span.SetAttributes(attribute.Int("programs.count", len(tc.Programs)))
	span.SetStatus(codes.Ok, "context built")
	return tc, nil
}
