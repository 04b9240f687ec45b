package programs

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

var _ ProgramService = (*ProgramServiceImpl)(nil)

// ProgramService is the program CRUD surface shared by the HTTP handler and the
// chat actions. Every free-text field is sanitized before it is stored.
type ProgramService interface {
	List(ctx context.Context, userID uuid.UUID, date string) ([]types.Program, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*types.Program, error)
	Create(ctx context.Context, userID uuid.UUID, patch types.ProgramPatch) (*types.Program, error)
	CreateMany(ctx context.Context, userID uuid.UUID, patches []types.ProgramPatch) ([]types.Program, error)
	Update(ctx context.Context, userID, id uuid.UUID, patch types.ProgramPatch) (*types.Program, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type ProgramServiceImpl struct {
	logger    *slog.Logger
	repo      ProgramRepository
	sanitizer *sanitizer.Sanitizer
}

func NewProgramService(repo ProgramRepository, s *sanitizer.Sanitizer, logger *slog.Logger) *ProgramServiceImpl {
	return &ProgramServiceImpl{logger: logger, repo: repo, sanitizer: s}
}

func (s *ProgramServiceImpl) cleanField(ctx context.Context, v *string, ft sanitizer.FieldType) *string {
	if v == nil {
		return nil
	}
	c := s.sanitizer.Clean(ctx, *v, ft)
	return &c
}

// cleanPatch sanitizes the free-text fields and checks the structured ones.
// Nil fields stay nil so partial updates keep their meaning.
func (s *ProgramServiceImpl) cleanPatch(ctx context.Context, p types.ProgramPatch) (types.ProgramPatch, error) {
	out := types.ProgramPatch{
		Title:       s.cleanField(ctx, p.Title, sanitizer.FieldTitle),
		Date:        p.Date,
		StartTime:   p.StartTime,
		EndTime:     p.EndTime,
		Address:     s.cleanField(ctx, p.Address, sanitizer.FieldAddress),
		Description: s.cleanField(ctx, p.Description, sanitizer.FieldDescription),
		Notes:       s.cleanField(ctx, p.Notes, sanitizer.FieldNotes),
	}
	if out.Title != nil && *out.Title == "" {
		return out, fmt.Errorf("%w: title must not be empty", types.ErrValidation)
	}
	if out.Date != nil {
		if _, err := types.ParseDate(*out.Date); err != nil {
			return out, err
		}
	}
	for _, c := range []*string{out.StartTime, out.EndTime} {
		if c != nil && *c != "" && !types.ValidClock(*c) {
			return out, fmt.Errorf("%w: invalid time %q, expected HH:MM", types.ErrValidation, *c)
		}
	}
	return out, nil
}

func (s *ProgramServiceImpl) cleanNew(ctx context.Context, p types.ProgramPatch) (types.ProgramPatch, error) {
	clean, err := s.cleanPatch(ctx, p)
	if err != nil {
		return clean, err
	}
	candidate := types.Program{
		Title:     types.Deref(clean.Title),
		Date:      types.Deref(clean.Date),
		StartTime: clean.StartTime,
		EndTime:   clean.EndTime,
	}
	return clean, candidate.Validate()
}

func (s *ProgramServiceImpl) List(ctx context.Context, userID uuid.UUID, date string) ([]types.Program, error) {
	ctx, span := otel.Tracer("ProgramService").Start(ctx, "List", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("date", date),
	))
	defer span.End()

	if date == "" {
		return s.repo.ListByUser(ctx, userID)
	}
	if _, err := types.ParseDate(date); err != nil {
		span.SetStatus(codes.Error, "Invalid date")
		return nil, err
	}
	return s.repo.ListByDate(ctx, userID, date)
}

func (s *ProgramServiceImpl) Get(ctx context.Context, userID, id uuid.UUID) (*types.Program, error) {
	return s.repo.Get(ctx, userID, id)
}

func (s *ProgramServiceImpl) Create(ctx context.Context, userID uuid.UUID, patch types.ProgramPatch) (*types.Program, error) {
	ctx, span := otel.Tracer("ProgramService").Start(ctx, "Create", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Create"), slog.String("userID", userID.String()))

	clean, err := s.cleanNew(ctx, patch)
	if err != nil {
		l.WarnContext(ctx, "Rejected program", slog.Any("error", err))
		span.SetStatus(codes.Error, "Validation failed")
		return nil, err
	}

	created, err := s.repo.Insert(ctx, userID, clean)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		return nil, fmt.Errorf("error creating program: %w", err)
	}

	l.InfoContext(ctx, "Program created", slog.String("programID", created.ID.String()))
	span.SetStatus(codes.Ok, "Program created")
	return created, nil
}

// CreateMany validates every entry before writing any of them.
func (s *ProgramServiceImpl) CreateMany(ctx context.Context, userID uuid.UUID, patches []types.ProgramPatch) ([]types.Program, error) {
	ctx, span := otel.Tracer("ProgramService").Start(ctx, "CreateMany", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.Int("programs.count", len(patches)),
	))
	defer span.End()

	if len(patches) == 0 {
		return nil, fmt.Errorf("%w: at least one program is required", types.ErrValidation)
	}

	clean := make([]types.ProgramPatch, 0, len(patches))
	for i, p := range patches {
		c, err := s.cleanNew(ctx, p)
		if err != nil {
			span.SetStatus(codes.Error, "Validation failed")
			return nil, fmt.Errorf("program %d: %w", i, err)
		}
		clean = append(clean, c)
	}

	created, err := s.repo.InsertMany(ctx, userID, clean)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		return nil, fmt.Errorf("error creating programs: %w", err)
	}

	s.logger.InfoContext(ctx, "Programs created", slog.String("userID", userID.String()), slog.Int("count", len(created)))
	span.SetStatus(codes.Ok, "Programs created")
	return created, nil
}

func (s *ProgramServiceImpl) Update(ctx context.Context, userID, id uuid.UUID, patch types.ProgramPatch) (*types.Program, error) {
	ctx, span := otel.Tracer("ProgramService").Start(ctx, "Update", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("program.id", id.String()),
	))
	defer span.End()

	clean, err := s.cleanPatch(ctx, patch)
	if err != nil {
		span.SetStatus(codes.Error, "Validation failed")
		return nil, err
	}

	updated, err := s.repo.Update(ctx, userID, id, clean)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return nil, fmt.Errorf("error updating program: %w", err)
	}

	span.SetStatus(codes.Ok, "Program updated")
	return updated, nil
}

func (s *ProgramServiceImpl) Delete(ctx context.Context, userID, id uuid.UUID) error {
	ctx, span := otel.Tracer("ProgramService").Start(ctx, "Delete", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("program.id", id.String()),
	))
	defer span.End()

	if err := s.repo.Delete(ctx, userID, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		return fmt.Errorf("error deleting program: %w", err)
	}

	s.logger.InfoContext(ctx, "Program deleted", slog.String("programID", id.String()))
	span.SetStatus(codes.Ok, "Program deleted")
	return nil
}
