package travelContext

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

var weekdays = [...]string{"domingo", "segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado"}

const validationRules = `REGRAS DE VALIDAÇÃO (obrigatórias):
- Nunca sugira eventos únicos (shows, feiras, exposições temporárias) cuja data não coincida com a data informada.
- Nunca sugira locais fechados no dia e horário considerados, nem estabelecimentos que encerraram as atividades.
- Nunca invente endereços, horários de funcionamento ou preços; se não tiver certeza, diga que o viajante deve confirmar.
- Respeite sempre as restrições alimentares, as observações de mobilidade e os temas a evitar do perfil.`

// FormatDay renders a date as "YYYY-MM-DD (weekday)".
func FormatDay(t time.Time) string {
	return fmt.Sprintf("%s (%s)", t.Format(types.DateLayout), weekdays[t.Weekday()])
}

// RenderPrompt composes the personalised prompt body in a fixed order. It is pure:
// the same context and addendum always produce the same text.
func RenderPrompt(tc *types.TravelContext, addendum string) string {
	var b strings.Builder

	writeDateAndSeason(&b, tc.AsOf)

	if h, ok := HolidayFor(tc.AsOf); ok {
		b.WriteString(h)
		b.WriteString("\n\n")
	}

	locale := LocaleContextFor(tc.Region)
	b.WriteString("CONTEXTO DO LOCAL:\n")
	b.WriteString(locale.Description)
	b.WriteString("\n\n")

	writeProfile(&b, tc.Profile)
	writeHistory(&b, SummarizeHistory(tc.Programs))

	if addendum = strings.TrimSpace(addendum); addendum != "" {
		b.WriteString(addendum)
		b.WriteString("\n\n")
	}

	b.WriteString(validationRules)
	return b.String()
}

func writeDateAndSeason(b *strings.Builder, asOf time.Time) {
	s := SeasonFor(asOf.Month())
	fmt.Fprintf(b, "DATA ATUAL: %s\n", FormatDay(asOf))
	fmt.Fprintf(b, "ESTAÇÃO: %s\n", s.Name)
	fmt.Fprintf(b, "- Temperatura: %s\n", s.Temperature)
	fmt.Fprintf(b, "- Roupas: %s\n", s.Clothing)
	fmt.Fprintf(b, "- Dicas da estação: %s\n", s.Tips)
	fmt.Fprintf(b, "- Atenção: %s\n\n", s.Caution)
}

func writeProfile(b *strings.Builder, p *types.TravelProfile) {
	if p == nil {
		b.WriteString("PERFIL DO VIAJANTE: não informado; faça sugestões equilibradas para um público geral.\n\n")
		return
	}

	b.WriteString("PERFIL DO VIAJANTE:\n")
	if len(p.Travelers) > 0 {
		b.WriteString("- Viajantes:\n")
		for _, t := range p.Travelers {
			line := "  - " + t.Name
			if t.Age != nil {
				line += fmt.Sprintf(" (%d anos)", *t.Age)
			}
			if len(t.Interests) > 0 {
				line += ": interesses em " + strings.Join(t.Interests, ", ")
			}
			b.WriteString(line + "\n")
		}
	}
	writeList(b, "Restrições alimentares", p.DietaryRestrictions)
	writeField(b, "Mobilidade", p.MobilityNotes)
	writeList(b, "Temas a evitar", p.AvoidTopics)
	writeField(b, "Ritmo", string(p.Pace))
	writeField(b, "Orçamento", string(p.BudgetLevel))
	writeList(b, "Categorias preferidas", p.PreferredCategories)
	writeList(b, "Interesses", p.Interests)
	writeField(b, "Transporte preferido", p.TransportationPreference)
	writeField(b, "Sensibilidade ao clima", p.WeatherSensitivity)
	writeField(b, "Manhãs", p.MorningPreference)
	writeField(b, "Dinâmica do grupo", p.GroupDynamics)
	writeList(b, "Ocasiões especiais", p.SpecialOccasions)
	writeField(b, "Observações", p.Notes)
	b.WriteString("\n")
}

func writeHistory(b *strings.Builder, h HistorySummary) {
	if h.Empty() {
		return
	}
	b.WriteString("HISTÓRICO DE PREFERÊNCIAS (programas já agendados):\n")
	if len(h.TopCategories) > 0 {
		b.WriteString("- Categorias mais frequentes: " + joinCounts(h.TopCategories) + "\n")
	}
	if len(h.TopAreas) > 0 {
		b.WriteString("- Regiões mais visitadas: " + joinCounts(h.TopAreas) + "\n")
	}
	b.WriteString("\n")
}

func writeField(b *strings.Builder, label, value string) {
	if value = strings.TrimSpace(value); value != "" {
		fmt.Fprintf(b, "- %s: %s\n", label, value)
	}
}

func writeList(b *strings.Builder, label string, values []string) {
	if len(values) > 0 {
		fmt.Fprintf(b, "- %s: %s\n", label, strings.Join(values, ", "))
	}
}

func joinCounts(cs []Count) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = fmt.Sprintf("%s (%d)", c.Name, c.Count)
	}
	return strings.Join(parts, ", ")
}

// RenderTripOverview lists everything itinerary organization needs for conflict
// avoidance: hotel, trip window, every other program with its cached FAQ, and the
// programs already on the target day.
func RenderTripOverview(tc *types.TravelContext, targetDate string) string {
	var b strings.Builder

	b.WriteString("DADOS DA VIAGEM:\n")
	if tc.Trip != nil {
		writeField(&b, "Destino", tc.Trip.Destination)
		writeField(&b, "Hotel", tc.Trip.HotelAddress)
		if tc.Trip.StartDate != "" || tc.Trip.EndDate != "" {
			fmt.Fprintf(&b, "- Período: %s a %s\n", tc.Trip.StartDate, tc.Trip.EndDate)
		}
	} else {
		b.WriteString("- Configuração da viagem não informada.\n")
	}
	b.WriteString("\n")

	programs := SortPrograms(tc.Programs)
	var sameDay, others []types.Program
	for _, p := range programs {
		if p.Date == targetDate {
			sameDay = append(sameDay, p)
		} else {
			others = append(others, p)
		}
	}

	fmt.Fprintf(&b, "PROGRAMAS JÁ AGENDADOS EM %s (não podem ter conflito de horário):\n", targetDate)
	if len(sameDay) == 0 {
		b.WriteString("- nenhum\n")
	}
	for _, p := range sameDay {
		b.WriteString(describeProgram(p, false))
	}
	b.WriteString("\n")

	if len(others) > 0 {
		b.WriteString("OUTROS PROGRAMAS DA VIAGEM (evite repetir atrações):\n")
		for _, p := range others {
			b.WriteString(describeProgram(p, true))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func describeProgram(p types.Program, withFAQ bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- [%s", p.Date)
	if p.StartTime != nil {
		fmt.Fprintf(&b, " %s", *p.StartTime)
		if p.EndTime != nil {
			fmt.Fprintf(&b, "-%s", *p.EndTime)
		}
	}
	fmt.Fprintf(&b, "] %s", p.Title)
	if addr := types.Deref(p.Address); addr != "" {
		fmt.Fprintf(&b, " @ %s", addr)
	}
	b.WriteString("\n")
	if desc := types.Deref(p.Description); desc != "" {
		fmt.Fprintf(&b, "  %s\n", desc)
	}
	if notes := types.Deref(p.Notes); notes != "" {
		fmt.Fprintf(&b, "  Observações: %s\n", notes)
	}
	if withFAQ {
		for _, f := range p.AIFAQ {
			fmt.Fprintf(&b, "  P: %s R: %s\n", f.Question, f.Answer)
		}
	}
	return b.String()
}

// SortPrograms orders programs by date, start time and title without mutating the input.
func SortPrograms(programs []types.Program) []types.Program {
	out := make([]types.Program, len(programs))
	copy(out, programs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		si, sj := types.Deref(out[i].StartTime), types.Deref(out[j].StartTime)
		if si != sj {
			return si < sj
		}
		return out[i].Title < out[j].Title
	})
	return out
}
