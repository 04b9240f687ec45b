package discovery

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

const attractionSchema = `{"attractions": [{"name": "...", "type": "museu|parque|restaurante|mirante|compras|show|bairro|outro", ` +
	`"address": "...", "hours": "...", "description": "...", "estimatedDuration": 90, "neighborhood": "...", ` +
	`"imageUrl": "...", "infoUrl": "...", "rating": 4.6, "reviewCount": 1200}]}`

func discoveryTask(region, date, suggestion string, more bool, existing []types.Attraction) string {
	var b strings.Builder
	b.WriteString("TAREFA:\n")
	fmt.Fprintf(&b, "Pesquise e sugira de 8 a 12 atrações reais em %s para o dia %s, ", region, date)
	b.WriteString("considerando horários de funcionamento nesse dia, a estação, feriados e o perfil do viajante.\n")
	if suggestion != "" {
		fmt.Fprintf(&b, "O viajante pediu especificamente: %s\n", suggestion)
	}
	if more && len(existing) > 0 {
		b.WriteString("Já foram sugeridas as atrações abaixo; traga apenas opções diferentes:\n")
		for _, a := range existing {
			fmt.Fprintf(&b, "- %s\n", a.Name)
		}
	}
	b.WriteString("estimatedDuration é em minutos. Omita imageUrl, infoUrl, rating e reviewCount se não tiver certeza.\n")
	b.WriteString("Responda apenas com JSON no formato:\n")
	b.WriteString(attractionSchema)
	return b.String()
}
