package travelContext

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

type MockProfileReader struct {
	mock.Mock
}

func (m *MockProfileReader) GetProfile(ctx context.Context, userID uuid.UUID) (*types.TravelProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TravelProfile), args.Error(1)
}

func (m *MockProfileReader) GetTripConfig(ctx context.Context, userID uuid.UUID) (*types.TripConfig, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.TripConfig), args.Error(1)
}

type MockProgramReader struct {
	mock.Mock
}

func (m *MockProgramReader) ListByUser(ctx context.Context, userID uuid.UUID) ([]types.Program, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Program), args.Error(1)
}

func day(s string) time.Time {
	t, err := types.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func sampleContext() *types.TravelContext {
	age := 34
	return &types.TravelContext{
		UserID: uuid.MustParse("7f9c24e8-3b12-4fef-91fd-8d2a8e4d9a01"),
		AsOf:   day("2025-06-15"),
		Region: "Times Square",
		Profile: &types.TravelProfile{
			Travelers:           []types.Traveler{{Name: "Ana", Age: &age, Interests: []string{"teatro"}}, {Name: "Rui"}},
			DietaryRestrictions: []string{"vegetariano"},
			MobilityNotes:       "evitar escadas longas",
			AvoidTopics:         []string{"política"},
			Pace:                types.TravelPaceModerate,
			BudgetLevel:         types.BudgetLevelLuxury,
		},
		Programs: []types.Program{
			{Title: "MoMA", Date: "2025-06-14", Address: types.Str("Midtown, 11 W 53rd St"), Description: types.Str("museu de arte moderna")},
			{Title: "Jantar no Carbone", Date: "2025-06-14", Address: types.Str("Greenwich Village, 181 Thompson St")},
			{Title: "Central Park", Date: "2025-06-13", Description: types.Str("passeio no parque"), Address: types.Str("Midtown, Central Park South")},
		},
	}
}

func TestSeasonFor_PartitionsYear(t *testing.T) {
	assert.Equal(t, "Inverno", SeasonFor(time.January).Name)
	assert.Equal(t, "Primavera", SeasonFor(time.April).Name)
	assert.Equal(t, "Verão", SeasonFor(time.July).Name)
	assert.Equal(t, "Outono", SeasonFor(time.October).Name)

	counts := map[string]int{}
	for m := time.January; m <= time.December; m++ {
		counts[SeasonFor(m).Name]++
	}
	assert.Equal(t, map[string]int{"Inverno": 3, "Primavera": 3, "Verão": 3, "Outono": 3}, counts)
	assert.Equal(t, "Inverno", SeasonFor(time.December).Name)
	assert.Equal(t, "Inverno", SeasonFor(time.February).Name)
}

func TestHolidayFor(t *testing.T) {
	h, ok := HolidayFor(day("2025-07-04"))
	require.True(t, ok)
	assert.Contains(t, h, "Independence Day")

	h, ok = HolidayFor(day("2025-07-10"))
	require.True(t, ok)
	assert.Contains(t, h, "Shakespeare in the Park")

	_, ok = HolidayFor(day("2025-05-10"))
	assert.False(t, ok)
}

func TestLocaleContextFor(t *testing.T) {
	exact := LocaleContextFor("Times Square")
	assert.Equal(t, LocaleNeighborhoodExact, exact.Kind)

	sub := LocaleContextFor("times square area")
	assert.Equal(t, LocaleNeighborhoodSubstring, sub.Kind)
	assert.Equal(t, exact.Description, sub.Description)

	borough := LocaleContextFor("Brooklyn")
	assert.Equal(t, LocaleBorough, borough.Kind)

	fb := LocaleContextFor("Hoboken Diner")
	assert.Equal(t, LocaleFallback, fb.Kind)
	assert.Contains(t, fb.Description, "10-15 minutos a pé")
	assert.Contains(t, fb.Description, "Hoboken Diner")

	assert.Equal(t, LocaleFallback, LocaleContextFor("").Kind)
}

func TestSummarizeHistory(t *testing.T) {
	s := SummarizeHistory(sampleContext().Programs)

	require.NotEmpty(t, s.TopCategories)
	names := []string{}
	for _, c := range s.TopCategories {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"museum", "food", "park"}, names)

	require.NotEmpty(t, s.TopAreas)
	assert.Equal(t, Count{Name: "Midtown", Count: 2}, s.TopAreas[0])
	assert.Equal(t, Count{Name: "Greenwich Village", Count: 1}, s.TopAreas[1])

	assert.True(t, SummarizeHistory(nil).Empty())
}

func TestRenderPrompt_DeterministicAndOrdered(t *testing.T) {
	tc := sampleContext()
	addendum := "TAREFA: sugira um roteiro."

	first := RenderPrompt(tc, addendum)
	second := RenderPrompt(sampleContext(), addendum)
	assert.Equal(t, first, second)

	order := []string{
		"DATA ATUAL: 2025-06-15 (domingo)",
		"ESTAÇÃO: Verão",
		"Eventos do mês",
		"CONTEXTO DO LOCAL:",
		"PERFIL DO VIAJANTE:",
		"Ana (34 anos): interesses em teatro",
		"Restrições alimentares: vegetariano",
		"HISTÓRICO DE PREFERÊNCIAS",
		"TAREFA: sugira um roteiro.",
		"REGRAS DE VALIDAÇÃO",
	}
	last := -1
	for _, marker := range order {
		idx := strings.Index(first, marker)
		require.GreaterOrEqual(t, idx, 0, "missing %q", marker)
		assert.Greater(t, idx, last, "%q out of order", marker)
		last = idx
	}
}

func TestRenderPrompt_WithoutPersonalization(t *testing.T) {
	out := RenderPrompt(&types.TravelContext{AsOf: day("2025-01-20"), Region: "Hoboken Diner"}, "")
	assert.Contains(t, out, "Inverno")
	assert.Contains(t, out, "não informado")
	assert.NotContains(t, out, "HISTÓRICO")
	assert.NotContains(t, out, "Restrições alimentares")
	assert.True(t, strings.HasSuffix(out, validationRules))
}

func TestRenderTripOverview(t *testing.T) {
	tc := sampleContext()
	tc.Trip = &types.TripConfig{StartDate: "2025-06-12", EndDate: "2025-06-20", HotelAddress: "The Knickerbocker, 6 Times Sq"}
	tc.Programs[2].AIFAQ = []types.FAQItem{{Question: "Precisa de ingresso?", Answer: "Não."}}

	out := RenderTripOverview(tc, "2025-06-14")
	assert.Contains(t, out, "Hotel: The Knickerbocker")
	assert.Contains(t, out, "Período: 2025-06-12 a 2025-06-20")

	sameDay := out[strings.Index(out, "PROGRAMAS JÁ AGENDADOS"):strings.Index(out, "OUTROS PROGRAMAS")]
	assert.Contains(t, sameDay, "MoMA")
	assert.Contains(t, sameDay, "Jantar no Carbone")
	assert.NotContains(t, sameDay, "Central Park")
	assert.Contains(t, out, "P: Precisa de ingresso? R: Não.")
}

func TestRenderTripOverview_IncludesProgramNotes(t *testing.T) {
	tc := sampleContext()
	tc.Programs[0].Notes = types.Str("ingressos já comprados, chegar 15 min antes")
	tc.Programs[2].Notes = types.Str("levar protetor solar")

	out := RenderTripOverview(tc, "2025-06-14")
	sameDay := out[strings.Index(out, "PROGRAMAS JÁ AGENDADOS"):strings.Index(out, "OUTROS PROGRAMAS")]
	assert.Contains(t, sameDay, "  Observações: ingressos já comprados, chegar 15 min antes\n")
	assert.Contains(t, out[strings.Index(out, "OUTROS PROGRAMAS"):], "  Observações: levar protetor solar\n")
	assert.Equal(t, 2, strings.Count(out, "Observações:"))
}

func TestBuilder_BuildContext(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()
	userID := uuid.New()
	asOf := day("2025-06-15")

	t.Run("missing profile and trip yield nil", func(t *testing.T) {
		profiles := new(MockProfileReader)
		programs := new(MockProgramReader)
		profiles.On("GetProfile", mock.Anything, userID).Return(nil, types.ErrNotFound)
		profiles.On("GetTripConfig", mock.Anything, userID).Return(nil, types.ErrNotFound)
		programs.On("ListByUser", mock.Anything, userID).Return([]types.Program{{Title: "x", Date: "2025-06-15"}}, nil)

		tc, err := NewBuilder(profiles, programs, logger).BuildContext(ctx, userID, asOf, " SoHo ")
		require.NoError(t, err)
		assert.Nil(t, tc.Profile)
		assert.Nil(t, tc.Trip)
		assert.Len(t, tc.Programs, 1)
		assert.Equal(t, "SoHo", tc.Region)
		assert.Equal(t, asOf, tc.AsOf)
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		profiles := new(MockProfileReader)
		programs := new(MockProgramReader)
		dbErr := errors.New("connection reset")
		profiles.On("GetProfile", mock.Anything, userID).Return(&types.TravelProfile{}, nil)
		profiles.On("GetTripConfig", mock.Anything, userID).Return(&types.TripConfig{}, nil)
		programs.On("ListByUser", mock.Anything, userID).Return(nil, dbErr)

		_, err := NewBuilder(profiles, programs, logger).BuildContext(ctx, userID, asOf, "SoHo")
		require.Error(t, err)
		assert.ErrorIs(t, err, dbErr)
	})
}
