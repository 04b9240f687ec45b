package chat

import (
	"context"
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

// HistoryLimit is how many prior messages are replayed to the model.
const HistoryLimit = 50

var _ ChatRepository = (*PostgresChatRepo)(nil)

// ChatRepository stores both chat scopes. Messages are append-only and only
// removed in bulk per scope.
type ChatRepository interface {
	ListProgramMessages(ctx context.Context, userID, programID uuid.UUID, limit int) ([]types.ChatMessage, error)
	InsertProgramMessage(ctx context.Context, userID, programID uuid.UUID, role types.ChatRole, content string) error
	DeleteProgramMessages(ctx context.Context, userID, programID uuid.UUID) error
	ListGlobalMessages(ctx context.Context, userID uuid.UUID, limit int) ([]types.ChatMessage, error)
	InsertGlobalMessage(ctx context.Context, userID uuid.UUID, role types.ChatRole, content string) error
	DeleteGlobalMessages(ctx context.Context, userID uuid.UUID) error
}

type PostgresChatRepo struct {
	logger *slog.Logger
	pgpool database.DBTX
}

func NewPostgresChatRepo(pgpool database.DBTX, logger *slog.Logger) *PostgresChatRepo {
	return &PostgresChatRepo{logger: logger, pgpool: pgpool}
}

func startSpan(ctx context.Context, method, table string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer("ChatRepo").Start(ctx, method, trace.WithAttributes(append([]attribute.KeyValue{
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", table),
	}, attrs...)...))
}

// list returns the newest limit messages in chronological order.
func (r *PostgresChatRepo) list(ctx context.Context, method, table, query string, args ...any) ([]types.ChatMessage, error) {
	ctx, span := startSpan(ctx, method, table)
	defer span.End()

	start := time.Now()
	rows, err := r.pgpool.Query(ctx, query, args...)
	database.ObserveQuery(ctx, table, method, start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query chat history", slog.String("table", table), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching chat history: %w", err)
	}

	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.ChatMessage, error) {
		var (
			m    types.ChatMessage
			role string
		)
		err := row.Scan(&m.ID, &m.UserID, &m.ProgramID, &role, &m.Content, &m.CreatedAt)
		m.Role = types.ChatRole(role)
		return m, err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Scan failed")
		return nil, fmt.Errorf("database error scanning chat history: %w", err)
	}

	// newest-first from the query
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	span.SetStatus(codes.Ok, "History fetched")
	return msgs, nil
}

func (r *PostgresChatRepo) exec(ctx context.Context, method, table, query string, args ...any) (int64, error) {
	ctx, span := startSpan(ctx, method, table)
	defer span.End()

	start := time.Now()
	tag, err := r.pgpool.Exec(ctx, query, args...)
	database.ObserveQuery(ctx, table, method, start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Chat statement failed", slog.String("method", method), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB exec failed")
		return 0, fmt.Errorf("database error in %s: %w", method, err)
	}
	span.SetStatus(codes.Ok, method)
	return tag.RowsAffected(), nil
}

func (r *PostgresChatRepo) ListProgramMessages(ctx context.Context, userID, programID uuid.UUID, limit int) ([]types.ChatMessage, error) {
	return r.list(ctx, "ListProgramMessages", "program_chat_messages", `
        SELECT id, user_id, program_id, role, content, created_at
        FROM program_chat_messages
        WHERE program_id = $1 AND user_id = $2
        ORDER BY created_at DESC, id DESC
        LIMIT $3`, programID, userID, limit)
}

func (r *PostgresChatRepo) InsertProgramMessage(ctx context.Context, userID, programID uuid.UUID, role types.ChatRole, content string) error {
	_, err := r.exec(ctx, "InsertProgramMessage", "program_chat_messages", `
        INSERT INTO program_chat_messages (user_id, program_id, role, content)
        VALUES ($1, $2, $3, $4)`, userID, programID, string(role), content)
	return err
}

func (r *PostgresChatRepo) DeleteProgramMessages(ctx context.Context, userID, programID uuid.UUID) error {
	_, err := r.exec(ctx, "DeleteProgramMessages", "program_chat_messages",
		`DELETE FROM program_chat_messages WHERE program_id = $1 AND user_id = $2`, programID, userID)
	return err
}

func (r *PostgresChatRepo) ListGlobalMessages(ctx context.Context, userID uuid.UUID, limit int) ([]types.ChatMessage, error) {
	return r.list(ctx, "ListGlobalMessages", "global_chat_messages", `
        SELECT id, user_id, NULL::uuid, role, content, created_at
        FROM global_chat_messages
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2`, userID, limit)
}

func (r *PostgresChatRepo) InsertGlobalMessage(ctx context.Context, userID uuid.UUID, role types.ChatRole, content string) error {
	_, err := r.exec(ctx, "InsertGlobalMessage", "global_chat_messages", `
        INSERT INTO global_chat_messages (user_id, role, content)
        VALUES ($1, $2, $3)`, userID, string(role), content)
	return err
}

func (r *PostgresChatRepo) DeleteGlobalMessages(ctx context.Context, userID uuid.UUID) error {
	_, err := r.exec(ctx, "DeleteGlobalMessages", "global_chat_messages",
		`DELETE FROM global_chat_messages WHERE user_id = $1`, userID)
	return err
}
