package llmParser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

func TestExtractPayload(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"fenced json", "```json\n[1,2]\n```", "[1,2]"},
		{"fenced without tag", "Aqui está:\n```\n{\"a\":1}\n```\nBom passeio!", `{"a":1}`},
		{"bare", "  [1]  ", "[1]"},
		{"skips action block", "```action\n{}\n```\n```json\n[3]\n```", "[3]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPayload(tt.raw))
		})
	}
}

func TestParseAttractions(t *testing.T) {
	t.Run("fenced array gets a generated id", func(t *testing.T) {
		got, err := ParseAttractions("```json\n[{\"name\":\"X\",\"type\":\"museum\",\"estimatedDuration\":60}]\n```")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "X", got[0].Name)
		_, err = uuid.Parse(got[0].ID)
		assert.NoError(t, err)
	})

	t.Run("keeps supplied ids and coerces numeric strings", func(t *testing.T) {
		got, err := ParseAttractions(`{"attractions":[{"id":"a-1","name":"Katz's","estimatedDuration":"45 min","rating":"4,6","reviewCount":"1200"}]}`)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "a-1", got[0].ID)
		assert.Equal(t, 45, got[0].EstimatedDuration)
		require.NotNil(t, got[0].Rating)
		assert.InDelta(t, 4.6, *got[0].Rating, 0.0001)
		require.NotNil(t, got[0].ReviewCount)
		assert.Equal(t, 1200, *got[0].ReviewCount)
	})

	t.Run("negative duration is clamped without failing the batch", func(t *testing.T) {
		got, err := ParseAttractions(`[{"name":"High Line","estimatedDuration":-30},` +
			`{"name":"Chelsea Market","estimatedDuration":60,"rating":7,"reviewCount":-5}]`)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 0, got[0].EstimatedDuration)
		assert.Equal(t, 60, got[1].EstimatedDuration)
		assert.Nil(t, got[1].Rating)
		assert.Nil(t, got[1].ReviewCount)
	})

	t.Run("prose around the json is tolerated", func(t *testing.T) {
		got, err := ParseAttractions(`Claro! [{"name":"Domino Park"}] Aproveite.`)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("empty array stays empty", func(t *testing.T) {
		got, err := ParseAttractions("[]")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("not json is malformed", func(t *testing.T) {
		_, err := ParseAttractions("not json")
		var target *types.MalformedOutputError
		require.ErrorAs(t, err, &target)
		assert.Equal(t, "not json", target.Excerpt)
	})

	t.Run("missing name fails validation", func(t *testing.T) {
		_, err := ParseAttractions(`[{"type":"park"}]`)
		var target *types.MalformedOutputError
		assert.ErrorAs(t, err, &target)
	})

	t.Run("excerpt is bounded", func(t *testing.T) {
		_, err := ParseAttractions(strings.Repeat("x", 5000))
		var target *types.MalformedOutputError
		require.ErrorAs(t, err, &target)
		assert.LessOrEqual(t, len([]rune(target.Excerpt)), 201)
	})

	t.Run("ten attractions get distinct ids", func(t *testing.T) {
		var parts []string
		for i := 0; i < 10; i++ {
			parts = append(parts, fmt.Sprintf(`{"name":"Lugar %d","estimatedDuration":%d}`, i, 30+i))
		}
		got, err := ParseAttractions("[" + strings.Join(parts, ",") + "]")
		require.NoError(t, err)
		require.Len(t, got, 10)
		seen := map[string]bool{}
		for _, a := range got {
			assert.NotEmpty(t, a.ID)
			seen[a.ID] = true
		}
		assert.Len(t, seen, 10)
	})
}

func TestParseItinerary(t *testing.T) {
	t.Run("defaults absent arrays", func(t *testing.T) {
		it, err := ParseItinerary(`{"summary":"Dia livre"}`)
		require.NoError(t, err)
		assert.NotNil(t, it.Programs)
		assert.NotNil(t, it.Warnings)
		assert.Equal(t, "Dia livre", it.Summary)
	})

	t.Run("full object", func(t *testing.T) {
		raw := "```json\n" + `{"programs":[{"title":"MoMA","date":"2025-06-15","start_time":"10:00","end_time":"12:00","travel_time":"15 min a pé"}],` +
			`"summary":"Manhã de museus","warnings":["MoMA fecha às 17:30"]}` + "\n```"
		it, err := ParseItinerary(raw)
		require.NoError(t, err)
		require.Len(t, it.Programs, 1)
		assert.Equal(t, "10:00", it.Programs[0].StartTime)
		assert.Equal(t, []string{"MoMA fecha às 17:30"}, it.Warnings)
	})

	t.Run("array is the wrong shape", func(t *testing.T) {
		_, err := ParseItinerary(`[{"title":"x"}]`)
		var target *types.MalformedOutputError
		assert.ErrorAs(t, err, &target)
	})

	t.Run("entry without title fails", func(t *testing.T) {
		_, err := ParseItinerary(`{"programs":[{"date":"2025-06-15"}]}`)
		var target *types.MalformedOutputError
		assert.ErrorAs(t, err, &target)
	})
}

func TestParseFAQ(t *testing.T) {
	items, err := ParseFAQ(`[{"question":"Precisa reservar?","answer":"Sim, com antecedência."}]`)
	require.NoError(t, err)
	assert.Equal(t, []types.FAQItem{{Question: "Precisa reservar?", Answer: "Sim, com antecedência."}}, items)

	items, err = ParseFAQ(`{"faq":[{"question":"Q","answer":"A"}]}`)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = ParseFAQ(`[{"question":"sem resposta"}]`)
	assert.Error(t, err)

	assert.Equal(t, []types.FAQItem{}, ParseFAQOrEmpty("not json"))
	assert.Equal(t, []types.FAQItem{}, ParseFAQOrEmpty(`[{"question": "Q", "answer": `))
}

func TestParseNarrative(t *testing.T) {
	t.Run("plain array is positional", func(t *testing.T) {
		n, err := ParseNarrative(`{"intro":"Bem-vindo ao SoHo","programs":["um","dois"]}`, 3)
		require.NoError(t, err)
		assert.Equal(t, "Bem-vindo ao SoHo", n.Intro)
		assert.Equal(t, []string{"um", "dois", ""}, n.Programs)
	})

	t.Run("indexed entries land on their index", func(t *testing.T) {
		n, err := ParseNarrative(`{"intro":"x","programs":[{"index":2,"text":"c"},{"index":0,"text":"a"},{"index":9,"text":"z"}]}`, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "", "c"}, n.Programs)
	})

	t.Run("extra entries are dropped", func(t *testing.T) {
		n, err := ParseNarrative(`{"intro":"x","programs":["a","b","c"]}`, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, n.Programs)
	})

	t.Run("garbage is malformed", func(t *testing.T) {
		_, err := ParseNarrative("Desculpe, não consegui.", 2)
		var target *types.MalformedOutputError
		assert.ErrorAs(t, err, &target)
	})
}

func TestFallbackNarrative(t *testing.T) {
	programs := []types.Program{
		{Title: "MoMA", Address: types.Str("11 W 53rd St")},
		{Title: "Jantar"},
	}
	n := FallbackNarrative("Midtown", programs)
	assert.Contains(t, n.Intro, "Midtown")
	require.Len(t, n.Programs, 2)
	assert.Contains(t, n.Programs[0], "11 W 53rd St")
	assert.True(t, strings.HasPrefix(n.Programs[1], "Jantar"))

	assert.Contains(t, FallbackNarrative("", nil).Intro, "Nova York")
	assert.Empty(t, FallbackNarrative("", nil).Programs)
}

func TestExtractAction(t *testing.T) {
	t.Run("add action", func(t *testing.T) {
		reply := "Adicionei o jantar no Carbone.\n```action\n" +
			`{"type":"add","program":{"title":"Jantar no Carbone","date":"2025-06-22","start_time":"19:00"}}` + "\n```"
		action, text := ExtractAction(reply)
		require.NotNil(t, action)
		assert.Equal(t, types.ActionAdd, action.Type)
		assert.Equal(t, "Jantar no Carbone", types.Deref(action.Program.Title))
		assert.Equal(t, "19:00", types.Deref(action.Program.StartTime))
		assert.Equal(t, "Adicionei o jantar no Carbone.", text)
	})

	t.Run("no block", func(t *testing.T) {
		action, text := ExtractAction("  Só uma dica.  ")
		assert.Nil(t, action)
		assert.Equal(t, "Só uma dica.", text)
	})

	t.Run("invalid type is ignored", func(t *testing.T) {
		action, text := ExtractAction("Ok.\n```action\n{\"type\":\"explode\"}\n```")
		assert.Nil(t, action)
		assert.Equal(t, "Ok.", text)
	})

	t.Run("broken json is ignored", func(t *testing.T) {
		action, _ := ExtractAction("```action\n{type: delete\n```")
		assert.Nil(t, action)
	})
}
