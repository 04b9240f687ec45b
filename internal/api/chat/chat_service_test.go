package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	generativeAI "github.com/FACorreiaa/go-trip-assistant/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-assistant/internal/api/sanitizer"
	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) ListProgramMessages(ctx context.Context, userID, programID uuid.UUID, limit int) ([]types.ChatMessage, error) {
	args := m.Called(ctx, userID, programID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ChatMessage), args.Error(1)
}

func (m *MockChatRepository) InsertProgramMessage(ctx context.Context, userID, programID uuid.UUID, role types.ChatRole, content string) error {
	return m.Called(ctx, userID, programID, role, content).Error(0)
}

func (m *MockChatRepository) DeleteProgramMessages(ctx context.Context, userID, programID uuid.UUID) error {
	return m.Called(ctx, userID, programID).Error(0)
}

func (m *MockChatRepository) ListGlobalMessages(ctx context.Context, userID uuid.UUID, limit int) ([]types.ChatMessage, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.ChatMessage), args.Error(1)
}

func (m *MockChatRepository) InsertGlobalMessage(ctx context.Context, userID uuid.UUID, role types.ChatRole, content string) error {
	return m.Called(ctx, userID, role, content).Error(0)
}

func (m *MockChatRepository) DeleteGlobalMessages(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

type MockProgramStore struct {
	mock.Mock
}

func (m *MockProgramStore) Get(ctx context.Context, userID, id uuid.UUID) (*types.Program, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Program), args.Error(1)
}

func (m *MockProgramStore) Create(ctx context.Context, userID uuid.UUID, patch types.ProgramPatch) (*types.Program, error) {
	args := m.Called(ctx, userID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Program), args.Error(1)
}

func (m *MockProgramStore) Update(ctx context.Context, userID, id uuid.UUID, patch types.ProgramPatch) (*types.Program, error) {
	args := m.Called(ctx, userID, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Program), args.Error(1)
}

func (m *MockProgramStore) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}

type MockBuilder struct {
	mock.Mock
}

func (m *MockBuilder) BuildContext(ctx context.Context, userID uuid.UUID, asOf time.Time, region string) (*types.TravelContext, error) {
	args := m.Called(ctx, userID, asOf, region)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TravelContext), args.Error(1)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Send(ctx context.Context, name string, req generativeAI.Request) (string, error) {
	args := m.Called(ctx, name, req)
	return args.String(0), args.Error(1)
}

type chatFixture struct {
	repo       *MockChatRepository
	programs   *MockProgramStore
	builder    *MockBuilder
	dispatcher *MockDispatcher
	svc        *ChatServiceImpl
}

var fixedNow = time.Date(2025, 6, 15, 9, 0, 0, 0, time.Local)

func newChatFixture() *chatFixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &chatFixture{
		repo:       new(MockChatRepository),
		programs:   new(MockProgramStore),
		builder:    new(MockBuilder),
		dispatcher: new(MockDispatcher),
	}
	f.svc = NewChatService(f.repo, f.programs, f.builder, f.dispatcher, sanitizer.New(logger, nil), logger)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func TestChatService_ProgramChat(t *testing.T) {
	ctx := context.Background()
	userID, programID := uuid.New(), uuid.New()
	program := &types.Program{
		ID: programID, Title: "MoMA", Date: "2025-06-15",
		Address: types.Str("11 W 53rd St, Midtown"), AISuggestions: types.Str("## História"),
	}
	history := []types.ChatMessage{
		{Role: types.ChatRoleUser, Content: "Abre que horas?"},
		{Role: types.ChatRoleAssistant, Content: "Às 10h30."},
	}

	t.Run("replays history and stores both messages even when one write fails", func(t *testing.T) {
		f := newChatFixture()
		f.programs.On("Get", mock.Anything, userID, programID).Return(program, nil).Once()
		f.repo.On("ListProgramMessages", mock.Anything, userID, programID, HistoryLimit).Return(history, nil).Once()
		f.builder.On("BuildContext", mock.Anything, userID, fixedNow, "11 W 53rd St, Midtown").
			Return(&types.TravelContext{UserID: userID, AsOf: fixedNow, Region: "Midtown"}, nil).Once()
		f.dispatcher.On("Send", mock.Anything, generativeAI.ProviderChat, mock.MatchedBy(func(req generativeAI.Request) bool {
			return assert.ObjectsAreEqual([]generativeAI.Message{
				{Role: generativeAI.RoleUser, Content: "Abre que horas?"},
				{Role: generativeAI.RoleAssistant, Content: "Às 10h30."},
			}, req.Messages) &&
				req.Prompt == "Tem café lá dentro?" &&
				containsAll(req.System, "PROGRAMA EM DISCUSSÃO", "MoMA", "## História", "REGRAS DE VALIDAÇÃO")
		})).Return("  Sim, no segundo andar.  ", nil).Once()
		f.repo.On("InsertProgramMessage", mock.Anything, userID, programID, types.ChatRoleUser, "Tem café lá dentro?").
			Return(errors.New("db down")).Once()
		f.repo.On("InsertProgramMessage", mock.Anything, userID, programID, types.ChatRoleAssistant, "Sim, no segundo andar.").
			Return(nil).Once()

		reply, err := f.svc.ProgramChat(ctx, userID, programID, " Tem café lá dentro? ")
		require.NoError(t, err)
		assert.Equal(t, "Sim, no segundo andar.", reply)

		f.svc.Wait()
		f.repo.AssertExpectations(t)
		f.dispatcher.AssertExpectations(t)
	})

	t.Run("provider rate limit surfaces and nothing is stored", func(t *testing.T) {
		f := newChatFixture()
		f.programs.On("Get", mock.Anything, userID, programID).Return(program, nil).Once()
		f.repo.On("ListProgramMessages", mock.Anything, userID, programID, HistoryLimit).Return([]types.ChatMessage{}, nil).Once()
		f.builder.On("BuildContext", mock.Anything, userID, fixedNow, mock.Anything).
			Return(&types.TravelContext{AsOf: fixedNow}, nil).Once()
		f.dispatcher.On("Send", mock.Anything, generativeAI.ProviderChat, mock.Anything).
			Return("", &types.RateLimitedError{Provider: "chat"}).Once()

		_, err := f.svc.ProgramChat(ctx, userID, programID, "oi")
		var rl *types.RateLimitedError
		assert.ErrorAs(t, err, &rl)

		f.svc.Wait()
		f.repo.AssertNotCalled(t, "InsertProgramMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("blank message is rejected before any lookup", func(t *testing.T) {
		f := newChatFixture()
		_, err := f.svc.ProgramChat(ctx, userID, programID, " \x00 ")
		assert.ErrorIs(t, err, types.ErrValidation)
		f.programs.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown program is not found", func(t *testing.T) {
		f := newChatFixture()
		f.programs.On("Get", mock.Anything, userID, programID).Return(nil, types.ErrNotFound).Once()
		_, err := f.svc.ProgramChat(ctx, userID, programID, "oi")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestChatService_GlobalChat(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	existing := types.Program{ID: uuid.New(), Title: "Jantar no Carbone", Date: "2025-06-22", StartTime: types.Str("19:00")}
	tc := &types.TravelContext{
		UserID:   userID,
		AsOf:     fixedNow,
		Trip:     &types.TripConfig{StartDate: "2025-06-10", EndDate: "2025-06-25", Destination: "Nova York"},
		Programs: []types.Program{existing},
	}

	t.Run("add action is applied and reported", func(t *testing.T) {
		f := newChatFixture()
		f.repo.On("ListGlobalMessages", mock.Anything, userID, HistoryLimit).Return([]types.ChatMessage{}, nil).Once()
		f.builder.On("BuildContext", mock.Anything, userID, fixedNow, "").Return(tc, nil).Once()
		f.dispatcher.On("Send", mock.Anything, generativeAI.ProviderChat, mock.MatchedBy(func(req generativeAI.Request) bool {
			return containsAll(req.System, "id="+existing.ID.String(), "```action")
		})).Return("Adicionei o Whitney!\n```action\n"+
			`{"type":"ADD","program":{"title":"Whitney Museum","date":"2025-06-16","start_time":"14:00"}}`+"\n```", nil).Once()

		created := &types.Program{ID: uuid.New(), Title: "Whitney Museum", Date: "2025-06-16"}
		f.programs.On("Create", mock.Anything, userID, types.ProgramPatch{
			Title: types.Str("Whitney Museum"), Date: types.Str("2025-06-16"), StartTime: types.Str("14:00"),
		}).Return(created, nil).Once()
		f.repo.On("InsertGlobalMessage", mock.Anything, userID, types.ChatRoleUser, "Adiciona o Whitney amanhã às 14h").Return(nil).Once()
		f.repo.On("InsertGlobalMessage", mock.Anything, userID, types.ChatRoleAssistant, "Adicionei o Whitney!").Return(nil).Once()

		out, err := f.svc.GlobalChat(ctx, userID, "Adiciona o Whitney amanhã às 14h", "")
		require.NoError(t, err)
		assert.Equal(t, "Adicionei o Whitney!", out.Reply)
		require.NotNil(t, out.Action)
		assert.Equal(t, types.ActionAdd, out.Action.Type)
		assert.Equal(t, created, out.Action.Program)

		f.svc.Wait()
		f.repo.AssertExpectations(t)
		f.programs.AssertExpectations(t)
	})

	t.Run("delete action returns the removed program", func(t *testing.T) {
		f := newChatFixture()
		f.repo.On("ListGlobalMessages", mock.Anything, userID, HistoryLimit).Return([]types.ChatMessage{}, nil).Once()
		f.builder.On("BuildContext", mock.Anything, userID, mock.Anything, "").Return(tc, nil).Once()
		f.dispatcher.On("Send", mock.Anything, generativeAI.ProviderChat, mock.Anything).
			Return("Removido.\n```action\n{\"type\":\"delete\",\"program_id\":\""+existing.ID.String()+"\"}\n```", nil).Once()
		f.programs.On("Get", mock.Anything, userID, existing.ID).Return(&existing, nil).Once()
		f.programs.On("Delete", mock.Anything, userID, existing.ID).Return(nil).Once()
		f.repo.On("InsertGlobalMessage", mock.Anything, userID, mock.Anything, mock.Anything).Return(nil)

		out, err := f.svc.GlobalChat(ctx, userID, "Cancela o jantar", "2025-06-22")
		require.NoError(t, err)
		require.NotNil(t, out.Action)
		assert.Equal(t, types.ActionDelete, out.Action.Type)
		assert.Equal(t, existing.ID, out.Action.Program.ID)
		f.svc.Wait()
	})

	t.Run("failed action keeps the reply and reports no action", func(t *testing.T) {
		f := newChatFixture()
		f.repo.On("ListGlobalMessages", mock.Anything, userID, HistoryLimit).Return([]types.ChatMessage{}, nil).Once()
		f.builder.On("BuildContext", mock.Anything, userID, mock.Anything, "").Return(tc, nil).Once()
		f.dispatcher.On("Send", mock.Anything, generativeAI.ProviderChat, mock.Anything).
			Return("Atualizei.\n```action\n{\"type\":\"update\",\"program_id\":\"abc\",\"program\":{\"notes\":\"x\"}}\n```", nil).Once()
		f.repo.On("InsertGlobalMessage", mock.Anything, userID, mock.Anything, mock.Anything).Return(nil)

		out, err := f.svc.GlobalChat(ctx, userID, "Anota x", "")
		require.NoError(t, err)
		assert.Nil(t, out.Action)
		assert.Contains(t, out.Reply, "Atualizei.")
		assert.Contains(t, out.Reply, "Não foi possível aplicar")
		f.programs.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.svc.Wait()
	})

	t.Run("invalid date is rejected", func(t *testing.T) {
		f := newChatFixture()
		_, err := f.svc.GlobalChat(ctx, userID, "oi", "22/06")
		assert.ErrorIs(t, err, types.ErrValidation)
	})
}

func TestPostgresChatRepo_ListProgramMessages(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()
	repo := NewPostgresChatRepo(pool, slog.New(slog.NewTextHandler(io.Discard, nil)))

	userID, programID := uuid.New(), uuid.New()
	t1 := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	cols := []string{"id", "user_id", "program_id", "role", "content", "created_at"}
	pool.ExpectQuery(`FROM program_chat_messages WHERE program_id = \$1 AND user_id = \$2 ORDER BY created_at DESC, id DESC LIMIT \$3`).
		WithArgs(programID, userID, HistoryLimit).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(uuid.New(), userID, &programID, "assistant", "segunda", t1.Add(time.Minute)).
			AddRow(uuid.New(), userID, &programID, "user", "primeira", t1))

	msgs, err := repo.ListProgramMessages(context.Background(), userID, programID, HistoryLimit)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "primeira", msgs[0].Content)
	assert.Equal(t, types.ChatRoleAssistant, msgs[1].Role)
	assert.NoError(t, pool.ExpectationsWereMet())
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
