package itinerary

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

const itinerarySchema = `{"programs": [{"title": "...", "date": "YYYY-MM-DD", "start_time": "HH:MM", "end_time": "HH:MM", ` +
	`"address": "...", "description": "...", "travel_time": "20 min de metrô", "notes": "..."}], ` +
	`"summary": "...", "warnings": ["..."]}`

func organizeTask(date, start, end string, attractions []types.Attraction) string {
	var b strings.Builder
	b.WriteString("ATRAÇÕES ESCOLHIDAS:\n")
	for _, a := range attractions {
		fmt.Fprintf(&b, "- %s", a.Name)
		if a.Address != "" {
			fmt.Fprintf(&b, " | %s", a.Address)
		}
		if a.Hours != "" {
			fmt.Fprintf(&b, " | horário: %s", a.Hours)
		}
		if a.EstimatedDuration > 0 {
			fmt.Fprintf(&b, " | duração: %d min", a.EstimatedDuration)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nTAREFA:\nMonte o roteiro de %s entre %s e %s com as atrações acima.\n", date, start, end)
	b.WriteString("- Nunca sobreponha horários com os programas já agendados neste dia.\n" +
		"- Respeite o horário de funcionamento de cada atração.\n" +
		"- Deixe de 15 a 30 minutos de folga entre as paradas.\n" +
		"- Informe o tempo de deslocamento entre paradas em travel_time.\n" +
		"- Se alguma atração não couber, deixe-a de fora e explique em warnings.\n" +
		"- Use warnings também para fechamentos, filas ou reservas necessárias.\n")
	b.WriteString("Responda apenas com JSON no formato:\n")
	b.WriteString(itinerarySchema)
	return b.String()
}

func narrativeTask(date string, programs []types.Program) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PROGRAMAS DE %s (em ordem, índice começando em 0):\n", date)
	for i, p := range programs {
		fmt.Fprintf(&b, "%d. %s", i, p.Title)
		if start := types.Deref(p.StartTime); start != "" {
			fmt.Fprintf(&b, " às %s", start)
		}
		if addr := types.Deref(p.Address); addr != "" {
			fmt.Fprintf(&b, " | %s", addr)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nTAREFA:\nEscreva o texto de um guia impresso para este dia, em português do Brasil: " +
		"uma introdução curta e um parágrafo por programa com o que esperar e uma dica prática.\n" +
		`Responda apenas com JSON no formato {"intro": "...", "programs": [{"index": 0, "text": "..."}]}.`)
	return b.String()
}
