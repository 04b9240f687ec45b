package chat

import (
	"fmt"
	"strings"

	travelContext "github.com/FACorreiaa/go-trip-assistant/internal/api/travel_context"
	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

const actionInstructions = "AÇÕES NA AGENDA:\n" +
	"Se, e somente se, o viajante pedir explicitamente para adicionar, alterar ou remover um programa, " +
	"responda normalmente e inclua ao final um único bloco no formato:\n" +
	"```action\n" +
	`{"type": "add" | "update" | "delete", "program_id": "<id do programa, obrigatório em update e delete>", ` +
	`"program": {"title": "...", "date": "YYYY-MM-DD", "start_time": "HH:MM", "end_time": "HH:MM", ` +
	`"address": "...", "description": "...", "notes": "..."}}` + "\n" +
	"```\n" +
	"Em update, envie em \"program\" apenas os campos que mudam. Use somente ids listados na agenda acima."

// scheduleBlock lists every program with its id so the model can address them
// in actions, followed by the action protocol.
func scheduleBlock(tc *types.TravelContext, today string) string {
	var b strings.Builder
	b.WriteString("AGENDA DA VIAGEM:\n")
	if tc.Trip != nil {
		fmt.Fprintf(&b, "- Período: %s a %s", tc.Trip.StartDate, tc.Trip.EndDate)
		if tc.Trip.HotelAddress != "" {
			fmt.Fprintf(&b, " | Hotel: %s", tc.Trip.HotelAddress)
		}
		b.WriteString("\n")
	}
	programs := travelContext.SortPrograms(tc.Programs)
	if len(programs) == 0 {
		b.WriteString("- nenhum programa agendado\n")
	}
	for _, p := range programs {
		fmt.Fprintf(&b, "- id=%s | %s", p.ID, p.Date)
		if start := types.Deref(p.StartTime); start != "" {
			fmt.Fprintf(&b, " %s", start)
			if end := types.Deref(p.EndTime); end != "" {
				fmt.Fprintf(&b, "-%s", end)
			}
		}
		fmt.Fprintf(&b, " | %s", p.Title)
		if addr := types.Deref(p.Address); addr != "" {
			fmt.Fprintf(&b, " | %s", addr)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nO dia de referência da conversa é %s.\n\n", today)
	b.WriteString(actionInstructions)
	return b.String()
}
