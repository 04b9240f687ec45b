package llmParser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

type rawNarrative struct {
	Intro    string          `json:"intro"`
	Programs json.RawMessage `json:"programs"`
}

type indexedText struct {
	Index flexNumber `json:"index"`
	Text  string     `json:"text"`
}

// ParseNarrative always returns exactly count entries, 0-based and in input
// order. Entries the model left out stay empty so the renderer can fall back to
// the program's own description.
func ParseNarrative(raw string, count int) (*types.PDFNarrative, error) {
	var rn rawNarrative
	if err := decode(raw, &rn); err != nil {
		return nil, types.NewMalformedOutputError(raw, err)
	}
	if strings.TrimSpace(rn.Intro) == "" && len(rn.Programs) == 0 {
		return nil, types.NewMalformedOutputError(raw, errWrongShape)
	}

	n := &types.PDFNarrative{Intro: strings.TrimSpace(rn.Intro), Programs: make([]string, count)}
	if len(rn.Programs) == 0 || string(rn.Programs) == "null" {
		return n, nil
	}

	var plain []string
	if err := json.Unmarshal(rn.Programs, &plain); err == nil {
		for i := 0; i < count && i < len(plain); i++ {
			n.Programs[i] = strings.TrimSpace(plain[i])
		}
		return n, nil
	}

	var indexed []indexedText
	if err := json.Unmarshal(rn.Programs, &indexed); err != nil {
		return nil, types.NewMalformedOutputError(raw, err)
	}
	for pos, it := range indexed {
		i := pos
		if it.Index.set {
			i = int(it.Index.value)
		}
		if i >= 0 && i < count {
			n.Programs[i] = strings.TrimSpace(it.Text)
		}
	}
	return n, nil
}

// FallbackNarrative is the templated text used when the model output is unusable.
func FallbackNarrative(region string, programs []types.Program) *types.PDFNarrative {
	place := strings.TrimSpace(region)
	if place == "" {
		place = "Nova York"
	}
	n := &types.PDFNarrative{
		Intro: fmt.Sprintf("Um dia para explorar %s com calma: confira os horários de cada parada, "+
			"reserve tempo para os deslocamentos e aproveite o que a região tem de melhor.", place),
		Programs: make([]string, len(programs)),
	}
	for i, p := range programs {
		if addr := types.Deref(p.Address); addr != "" {
			n.Programs[i] = fmt.Sprintf("%s, em %s. Chegue com alguns minutos de antecedência e confirme o horário de funcionamento.", p.Title, addr)
			continue
		}
		n.Programs[i] = fmt.Sprintf("%s. Chegue com alguns minutos de antecedência e confirme o horário de funcionamento.", p.Title)
	}
	return n
}
