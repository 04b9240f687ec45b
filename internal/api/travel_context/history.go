package travelContext

import (
	"sort"
	"strings"

	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

const topN = 3

type categoryKeywords struct {
	category string
	keywords []string
}

var historyCategories = []categoryKeywords{
	{"museum", []string{"museu", "museum", "galeria", "gallery", "exposição", "exhibition", "moma", "guggenheim", "whitney"}},
	{"park", []string{"parque", "park", "jardim", "garden", "high line", "promenade", "praia", "beach"}},
	{"food", []string{"restaurante", "restaurant", "jantar", "dinner", "almoço", "lunch", "café", "cafe", "brunch", "pizza", "bar", "deli", "comida", "food"}},
	{"entertainment", []string{"broadway", "show", "teatro", "theater", "theatre", "musical", "concerto", "concert", "jazz", "comedy", "comédia", "jogo", "game"}},
	{"shopping", []string{"compras", "shopping", "loja", "store", "outlet", "mercado", "market", "feira", "boutique"}},
}

type Count struct {
	Name  string
	Count int
}

// HistorySummary is the frequency digest of a user's past programs.
type HistorySummary struct {
	TopCategories []Count
	TopAreas      []Count
}

func (h HistorySummary) Empty() bool {
	return len(h.TopCategories) == 0 && len(h.TopAreas) == 0
}

// SummarizeHistory counts category keyword hits over title+description and the
// first comma segment of each address, keeping the top 3 of each. Ties are broken
// by name so the result is stable.
func SummarizeHistory(programs []types.Program) HistorySummary {
	categories := map[string]int{}
	areas := map[string]int{}

	for _, p := range programs {
		text := strings.ToLower(p.Title + " " + types.Deref(p.Description))
		for _, c := range historyCategories {
			for _, kw := range c.keywords {
				if strings.Contains(text, kw) {
					categories[c.category]++
					break
				}
			}
		}

		if addr := types.Deref(p.Address); addr != "" {
			segment := strings.TrimSpace(strings.SplitN(addr, ",", 2)[0])
			if segment != "" {
				areas[segment]++
			}
		}
	}

	return HistorySummary{
		TopCategories: top(categories, topN),
		TopAreas:      top(areas, topN),
	}
}

func top(counts map[string]int, n int) []Count {
	out := make([]Count, 0, len(counts))
	for name, c := range counts {
		out = append(out, Count{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
