package programs

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

var _ ProgramRepository = (*PostgresProgramRepo)(nil)

type ProgramRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]types.Program, error)
	ListByDate(ctx context.Context, userID uuid.UUID, date string) ([]types.Program, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*types.Program, error)
	Insert(ctx context.Context, userID uuid.UUID, p types.ProgramPatch) (*types.Program, error)
	InsertMany(ctx context.Context, userID uuid.UUID, ps []types.ProgramPatch) ([]types.Program, error)
	Update(ctx context.Context, userID, id uuid.UUID, p types.ProgramPatch) (*types.Program, error)
	UpdateSuggestions(ctx context.Context, userID, id uuid.UUID, suggestions string) error
	// UpdateFAQ replaces ai_faq. With expectedVersion > 0 the write only lands if
	// the row is still at that version, otherwise it fails with types.ErrConflict.
	UpdateFAQ(ctx context.Context, userID, id uuid.UUID, faq []types.FAQItem, expectedVersion int) (int, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

const table = "programs"

const programColumns = `id, user_id, title, date::text, start_time, end_time, address, description,
        notes, ai_suggestions, ai_faq, version, created_at, updated_at`

const insertProgram = `
        INSERT INTO programs (user_id, title, date, start_time, end_time, address, description, notes)
        VALUES ($1, $2, $3::date, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''))
        RETURNING ` + programColumns

type PostgresProgramRepo struct {
	logger *slog.Logger
	pgpool database.DBTX
}

func NewPostgresProgramRepo(pgpool database.DBTX, logger *slog.Logger) *PostgresProgramRepo {
	return &PostgresProgramRepo{logger: logger, pgpool: pgpool}
}

func scanProgram(row pgx.Row) (*types.Program, error) {
	var (
		p   types.Program
		faq []byte
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Date, &p.StartTime, &p.EndTime, &p.Address,
		&p.Description, &p.Notes, &p.AISuggestions, &faq, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.AIFAQ = []types.FAQItem{}
	if len(faq) > 0 {
		if err := json.Unmarshal(faq, &p.AIFAQ); err != nil {
			return nil, fmt.Errorf("decoding ai_faq of program %s: %w", p.ID, err)
		}
	}
	return &p, nil
}

func (r *PostgresProgramRepo) list(ctx context.Context, method, query string, args ...any) ([]types.Program, error) {
	ctx, span := otel.Tracer("ProgramRepo").Start(ctx, method, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", table),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", method))

	start := time.Now()
	rows, err := r.pgpool.Query(ctx, query, args...)
	database.ObserveQuery(ctx, table, method, start, err)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query programs", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching programs: %w", err)
	}
	defer rows.Close()

	out := []types.Program{}
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			l.ErrorContext(ctx, "Failed to scan program row", slog.Any("error", err))
			span.RecordError(err)
			return nil, fmt.Errorf("database error scanning program: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		l.ErrorContext(ctx, "Error iterating program rows", slog.Any("error", err))
		span.RecordError(err)
		return nil, fmt.Errorf("database error reading programs: %w", err)
	}

	span.SetStatus(codes.Ok, "Programs fetched")
	return out, nil
}

func (r *PostgresProgramRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]types.Program, error) {
	return r.list(ctx, "ListByUser", `
        SELECT `+programColumns+`
        FROM programs
        WHERE user_id = $1
        ORDER BY date, start_time NULLS FIRST, title`, userID)
}

func (r *PostgresProgramRepo) ListByDate(ctx context.Context, userID uuid.UUID, date string) ([]types.Program, error) {
	return r.list(ctx, "ListByDate", `
        SELECT `+programColumns+`
        FROM programs
        WHERE user_id = $1 AND date = $2::date
        ORDER BY start_time NULLS FIRST, title`, userID, date)
}

func (r *PostgresProgramRepo) Get(ctx context.Context, userID, id uuid.UUID) (*types.Program, error) {
	ctx, span := otel.Tracer("ProgramRepo").Start(ctx, "Get", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", table),
		attribute.String("program.id", id.String()),
	))
	defer span.End()

	start := time.Now()
	p, err := scanProgram(r.pgpool.QueryRow(ctx, `
        SELECT `+programColumns+`
        FROM programs
        WHERE id = $1 AND user_id = $2`, id, userID))
	database.ObserveQuery(ctx, table, "Get", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		span.SetStatus(codes.Error, "Program not found")
		return nil, fmt.Errorf("program %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to fetch program", slog.String("programID", id.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching program: %w", err)
	}

	span.SetStatus(codes.Ok, "Program fetched")
	return p, nil
}

func insertArgs(userID uuid.UUID, p types.ProgramPatch) []any {
	return []any{userID, types.Deref(p.Title), types.Deref(p.Date), types.Deref(p.StartTime), types.Deref(p.EndTime),
		types.Deref(p.Address), types.Deref(p.Description), types.Deref(p.Notes)}
}

func (r *PostgresProgramRepo) Insert(ctx context.Context, userID uuid.UUID, p types.ProgramPatch) (*types.Program, error) {
	ctx, span := otel.Tracer("ProgramRepo").Start(ctx, "Insert", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", table),
	))
	defer span.End()

	start := time.Now()
	created, err := scanProgram(r.pgpool.QueryRow(ctx, insertProgram, insertArgs(userID, p)...))
	database.ObserveQuery(ctx, table, "Insert", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert program", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB insert failed")
		return nil, fmt.Errorf("database error inserting program: %w", err)
	}

	span.SetStatus(codes.Ok, "Program inserted")
	return created, nil
}

// InsertMany writes every program in one transaction; either all rows land or none.
func (r *PostgresProgramRepo) InsertMany(ctx context.Context, userID uuid.UUID, ps []types.ProgramPatch) ([]types.Program, error) {
	ctx, span := otel.Tracer("ProgramRepo").Start(ctx, "InsertMany", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", table),
		attribute.Int("programs.count", len(ps)),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "InsertMany"), slog.String("userID", userID.String()))

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to begin transaction", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Begin failed")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				l.ErrorContext(ctx, "Failed to rollback transaction", slog.Any("error", rbErr))
			}
		}
	}()

	out := make([]types.Program, 0, len(ps))
	for _, p := range ps {
		var created *types.Program
		created, err = scanProgram(tx.QueryRow(ctx, insertProgram, insertArgs(userID, p)...))
		if err != nil {
			l.ErrorContext(ctx, "Failed to insert program", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "DB insert failed")
			return nil, fmt.Errorf("database error inserting program: %w", err)
		}
		out = append(out, *created)
	}

	if err = tx.Commit(ctx); err != nil {
		l.ErrorContext(ctx, "Failed to commit transaction", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Commit failed")
		return nil, fmt.Errorf("failed to commit programs: %w", err)
	}

	span.SetStatus(codes.Ok, "Programs inserted")
	return out, nil
}

// Update applies a patch. A nil field is left untouched; an empty optional field is cleared.
func (r *PostgresProgramRepo) Update(ctx context.Context, userID, id uuid.UUID, p types.ProgramPatch) (*types.Program, error) {
	ctx, span := otel.Tracer("ProgramRepo").Start(ctx, "Update", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", table),
		attribute.String("program.id", id.String()),
	))
	defer span.End()

	query := `
        UPDATE programs SET
            title       = COALESCE($3, title),
            date        = COALESCE($4::date, date),
            start_time  = CASE WHEN $5::text IS NULL THEN start_time ELSE NULLIF($5, '') END,
            end_time    = CASE WHEN $6::text IS NULL THEN end_time ELSE NULLIF($6, '') END,
            address     = CASE WHEN $7::text IS NULL THEN address ELSE NULLIF($7, '') END,
            description = CASE WHEN $8::text IS NULL THEN description ELSE NULLIF($8, '') END,
            notes       = CASE WHEN $9::text IS NULL THEN notes ELSE NULLIF($9, '') END,
            version     = version + 1,
            updated_at  = now()
        WHERE id = $1 AND user_id = $2
        RETURNING ` + programColumns

	start := time.Now()
	updated, err := scanProgram(r.pgpool.QueryRow(ctx, query, id, userID,
		p.Title, p.Date, p.StartTime, p.EndTime, p.Address, p.Description, p.Notes))
	database.ObserveQuery(ctx, table, "Update", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		span.SetStatus(codes.Error, "Program not found")
		return nil, fmt.Errorf("program %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update program", slog.String("programID", id.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB update failed")
		return nil, fmt.Errorf("database error updating program: %w", err)
	}

	span.SetStatus(codes.Ok, "Program updated")
	return updated, nil
}

func (r *PostgresProgramRepo) UpdateSuggestions(ctx context.Context, userID, id uuid.UUID, suggestions string) error {
	ctx, span := otel.Tracer("ProgramRepo").Start(ctx, "UpdateSuggestions", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", table),
		attribute.String("program.id", id.String()),
	))
	defer span.End()

	start := time.Now()
	tag, err := r.pgpool.Exec(ctx, `
        UPDATE programs
        SET ai_suggestions = $3, version = version + 1, updated_at = now()
        WHERE id = $1 AND user_id = $2`, id, userID, suggestions)
	database.ObserveQuery(ctx, table, "UpdateSuggestions", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to store suggestions", slog.String("programID", id.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB update failed")
		return fmt.Errorf("database error storing suggestions: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Program not found")
		return fmt.Errorf("program %s: %w", id, types.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Suggestions stored")
	return nil
}

func (r *PostgresProgramRepo) UpdateFAQ(ctx context.Context, userID, id uuid.UUID, faq []types.FAQItem, expectedVersion int) (int, error) {
	ctx, span := otel.Tracer("ProgramRepo").Start(ctx, "UpdateFAQ", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", table),
		attribute.String("program.id", id.String()),
		attribute.Int("expected.version", expectedVersion),
	))
	defer span.End()

	if faq == nil {
		faq = []types.FAQItem{}
	}
	payload, err := json.Marshal(faq)
	if err != nil {
		return 0, fmt.Errorf("encoding faq: %w", err)
	}

	query := `
        UPDATE programs
        SET ai_faq = $3::jsonb, version = version + 1, updated_at = now()
        WHERE id = $1 AND user_id = $2
        RETURNING version`
	args := []any{id, userID, string(payload)}
	if expectedVersion > 0 {
		query = `
        UPDATE programs
        SET ai_faq = $3::jsonb, version = version + 1, updated_at = now()
        WHERE id = $1 AND user_id = $2 AND version = $4
        RETURNING version`
		args = append(args, expectedVersion)
	}

	var version int
	start := time.Now()
	err = r.pgpool.QueryRow(ctx, query, args...).Scan(&version)
	database.ObserveQuery(ctx, table, "UpdateFAQ", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		if expectedVersion > 0 {
			span.SetStatus(codes.Error, "Version mismatch")
			return 0, fmt.Errorf("program %s at version %d: %w", id, expectedVersion, types.ErrConflict)
		}
		span.SetStatus(codes.Error, "Program not found")
		return 0, fmt.Errorf("program %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to store FAQ", slog.String("programID", id.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB update failed")
		return 0, fmt.Errorf("database error storing faq: %w", err)
	}

	span.SetStatus(codes.Ok, "FAQ stored")
	return version, nil
}

func (r *PostgresProgramRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	ctx, span := otel.Tracer("ProgramRepo").Start(ctx, "Delete", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", table),
		attribute.String("program.id", id.String()),
	))
	defer span.End()

	start := time.Now()
	tag, err := r.pgpool.Exec(ctx, `DELETE FROM programs WHERE id = $1 AND user_id = $2`, id, userID)
	database.ObserveQuery(ctx, table, "Delete", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete program", slog.String("programID", id.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB delete failed")
		return fmt.Errorf("database error deleting program: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Program not found")
		return fmt.Errorf("program %s: %w", id, types.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Program deleted")
	return nil
}
