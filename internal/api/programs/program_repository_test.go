package programs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

var programCols = []string{"id", "user_id", "title", "date", "start_time", "end_time", "address", "description",
	"notes", "ai_suggestions", "ai_faq", "version", "created_at", "updated_at"}

func setupProgramRepoTest(t *testing.T) (pgxmock.PgxPoolIface, *PostgresProgramRepo) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool, NewPostgresProgramRepo(pool, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func programRow(rows *pgxmock.Rows, id, userID uuid.UUID, title, date string, start *string, faq string, version int) *pgxmock.Rows {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return rows.AddRow(id, userID, title, date, start, (*string)(nil), types.Str("11 W 53rd St"), (*string)(nil),
		(*string)(nil), (*string)(nil), []byte(faq), version, now, now)
}

func TestPostgresProgramRepo_ListByUser(t *testing.T) {
	pool, repo := setupProgramRepoTest(t)
	userID := uuid.New()
	a, b := uuid.New(), uuid.New()

	rows := pgxmock.NewRows(programCols)
	programRow(rows, a, userID, "MoMA", "2025-06-15", types.Str("10:00"), `[{"question":"Q","answer":"A","details":"D"}]`, 3)
	programRow(rows, b, userID, "Jantar", "2025-06-15", nil, `[]`, 1)

	pool.ExpectQuery(`SELECT (.+) FROM programs WHERE user_id = \$1 ORDER BY date`).
		WithArgs(userID).
		WillReturnRows(rows)

	got, err := repo.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "MoMA", got[0].Title)
	assert.Equal(t, "2025-06-15", got[0].Date)
	assert.Equal(t, "10:00", types.Deref(got[0].StartTime))
	assert.Equal(t, []types.FAQItem{{Question: "Q", Answer: "A", Details: "D"}}, got[0].AIFAQ)
	assert.Equal(t, 3, got[0].Version)
	assert.NotNil(t, got[1].AIFAQ)
	assert.Empty(t, got[1].AIFAQ)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPostgresProgramRepo_Get(t *testing.T) {
	ctx := context.Background()
	userID, id := uuid.New(), uuid.New()

	t.Run("missing row is not found", func(t *testing.T) {
		pool, repo := setupProgramRepoTest(t)
		pool.ExpectQuery(`SELECT (.+) FROM programs WHERE id = \$1 AND user_id = \$2`).
			WithArgs(id, userID).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.Get(ctx, userID, id)
		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("database failure is wrapped", func(t *testing.T) {
		pool, repo := setupProgramRepoTest(t)
		dbErr := errors.New("connection refused")
		pool.ExpectQuery(`SELECT (.+) FROM programs WHERE id = \$1`).
			WithArgs(id, userID).
			WillReturnError(dbErr)

		_, err := repo.Get(ctx, userID, id)
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, types.ErrNotFound)
	})
}

func TestPostgresProgramRepo_UpdateFAQ(t *testing.T) {
	ctx := context.Background()
	userID, id := uuid.New(), uuid.New()
	faq := []types.FAQItem{{Question: "Q", Answer: "A"}}

	t.Run("matching version bumps it", func(t *testing.T) {
		pool, repo := setupProgramRepoTest(t)
		pool.ExpectQuery(`UPDATE programs SET ai_faq = \$3::jsonb, (.+) WHERE id = \$1 AND user_id = \$2 AND version = \$4`).
			WithArgs(id, userID, `[{"question":"Q","answer":"A"}]`, 4).
			WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(5))

		v, err := repo.UpdateFAQ(ctx, userID, id, faq, 4)
		require.NoError(t, err)
		assert.Equal(t, 5, v)
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		pool, repo := setupProgramRepoTest(t)
		pool.ExpectQuery(`AND version = \$4`).
			WithArgs(id, userID, pgxmock.AnyArg(), 4).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.UpdateFAQ(ctx, userID, id, faq, 4)
		assert.ErrorIs(t, err, types.ErrConflict)
	})

	t.Run("unconditional write stores an empty array for nil", func(t *testing.T) {
		pool, repo := setupProgramRepoTest(t)
		pool.ExpectQuery(`UPDATE programs SET ai_faq = \$3::jsonb`).
			WithArgs(id, userID, `[]`).
			WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(2))

		_, err := repo.UpdateFAQ(ctx, userID, id, nil, 0)
		require.NoError(t, err)
		assert.NoError(t, pool.ExpectationsWereMet())
	})
}

func TestPostgresProgramRepo_UpdateSuggestionsAndDelete(t *testing.T) {
	ctx := context.Background()
	userID, id := uuid.New(), uuid.New()

	pool, repo := setupProgramRepoTest(t)
	pool.ExpectExec(`UPDATE programs SET ai_suggestions = \$3`).
		WithArgs(id, userID, "## História\n...").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectExec(`DELETE FROM programs WHERE id = \$1 AND user_id = \$2`).
		WithArgs(id, userID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.UpdateSuggestions(ctx, userID, id, "## História\n..."))
	assert.ErrorIs(t, repo.Delete(ctx, userID, id), types.ErrNotFound)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func TestPostgresProgramRepo_InsertMany(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	patches := []types.ProgramPatch{
		{Title: types.Str("MoMA"), Date: types.Str("2025-06-15"), StartTime: types.Str("10:00")},
		{Title: types.Str("Central Park"), Date: types.Str("2025-06-15"), StartTime: types.Str("12:30")},
	}

	t.Run("commits every row", func(t *testing.T) {
		pool, repo := setupProgramRepoTest(t)
		pool.ExpectBegin()
		for _, p := range patches {
			pool.ExpectQuery(`INSERT INTO programs`).
				WithArgs(userID, *p.Title, "2025-06-15", *p.StartTime, "", "", "", "").
				WillReturnRows(programRow(pgxmock.NewRows(programCols), uuid.New(), userID, *p.Title, "2025-06-15", p.StartTime, `[]`, 1))
		}
		pool.ExpectCommit()

		got, err := repo.InsertMany(ctx, userID, patches)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Central Park", got[1].Title)
		assert.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		pool, repo := setupProgramRepoTest(t)
		pool.ExpectBegin()
		pool.ExpectQuery(`INSERT INTO programs`).
			WillReturnRows(programRow(pgxmock.NewRows(programCols), uuid.New(), userID, "MoMA", "2025-06-15", nil, `[]`, 1))
		pool.ExpectQuery(`INSERT INTO programs`).
			WillReturnError(errors.New("check constraint"))
		pool.ExpectRollback()

		_, err := repo.InsertMany(ctx, userID, patches)
		require.Error(t, err)
		assert.NoError(t, pool.ExpectationsWereMet())
	})
}
