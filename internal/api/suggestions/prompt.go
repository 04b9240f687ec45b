package suggestions

import (
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

func writeProgram(b *strings.Builder, p *types.Program) {
	b.WriteString("PROGRAMA:\n")
	fmt.Fprintf(b, "- Título: %s\n", p.Title)
	fmt.Fprintf(b, "- Data: %s\n", p.Date)
	if start := types.Deref(p.StartTime); start != "" {
		fmt.Fprintf(b, "- Início: %s\n", start)
	}
	if addr := types.Deref(p.Address); addr != "" {
		fmt.Fprintf(b, "- Endereço: %s\n", addr)
	}
	if desc := types.Deref(p.Description); desc != "" {
		fmt.Fprintf(b, "- Descrição: %s\n", desc)
	}
}

func suggestionsTask(p *types.Program) string {
	var b strings.Builder
	writeProgram(&b, p)
	b.WriteString("\nTAREFA:\n" +
		"Escreva em português do Brasil, em markdown, um guia curto sobre a região deste programa com as seções:\n" +
		"## História e contexto\n" +
		"## Pontos de interesse próximos\n" +
		"## Onde comer (respeite as restrições alimentares do perfil)\n" +
		"## Dicas práticas (transporte, horários, segurança, clima da estação)\n" +
		"Seja específico para o endereço informado e evite informações que não possa confirmar.")
	return b.String()
}

func faqTask(p *types.Program, suggestions string) string {
	var b strings.Builder
	writeProgram(&b, p)
	fmt.Fprintf(&b, "\nSUGESTÕES:\n%s\n", suggestions)
	b.WriteString("\nTAREFA:\n" +
		"A partir das sugestões acima, gere de 4 a 6 perguntas frequentes que este viajante faria, " +
		"com respostas curtas e práticas em português do Brasil.\n" +
		`Responda apenas com JSON no formato {"faq": [{"question": "...", "answer": "..."}]}.`)
	return b.String()
}

func exploreTask(p *types.Program, item types.FAQItem) string {
	var b strings.Builder
	writeProgram(&b, p)
	fmt.Fprintf(&b, "\nPERGUNTA: %s\nRESPOSTA CURTA: %s\n", item.Question, item.Answer)
	b.WriteString("\nTAREFA:\n" +
		"Aprofunde este tópico em português do Brasil: explique com detalhes, dê exemplos concretos " +
		"ligados ao programa e ao perfil do viajante e termine com uma recomendação prática. Use markdown.")
	return b.String()
}
