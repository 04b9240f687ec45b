package itinerary

import (
	"fmt"
	"io"

	"github.com/phpdave11/gofpdf"

	travelContext "github.com/FACorreiaa/go-trip-assistant/internal/api/travel_context"
	"github.com/FACorreiaa/go-trip-assistant/internal/types"
)

// WritePDF renders doc as an A4 day guide. Each program uses the narrative text
// at its index, or its own description when that text is empty.
func WritePDF(w io.Writer, doc *DayDocument) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Roteiro "+doc.Date), false)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	title := "Roteiro do dia"
	if t, err := types.ParseDate(doc.Date); err == nil {
		title = "Roteiro de " + travelContext.FormatDay(t)
	}
	pdf.SetFont("Arial", "B", 18)
	pdf.MultiCell(0, 9, tr(title), "", "L", false)
	if doc.Region != "" {
		pdf.SetFont("Arial", "", 12)
		pdf.MultiCell(0, 7, tr(doc.Region), "", "L", false)
	}
	pdf.Ln(4)

	if doc.Narrative != nil && doc.Narrative.Intro != "" {
		pdf.SetFont("Arial", "I", 11)
		pdf.MultiCell(0, 6, tr(doc.Narrative.Intro), "", "L", false)
		pdf.Ln(4)
	}

	for i, p := range doc.Programs {
		pdf.SetFont("Arial", "B", 13)
		pdf.MultiCell(0, 7, tr(programHeading(p)), "", "L", false)

		if addr := types.Deref(p.Address); addr != "" {
			pdf.SetFont("Arial", "", 10)
			pdf.MultiCell(0, 5, tr(addr), "", "L", false)
		}

		if text := programText(doc.Narrative, i, p); text != "" {
			pdf.SetFont("Arial", "", 11)
			pdf.MultiCell(0, 6, tr(text), "", "L", false)
		}
		if notes := types.Deref(p.Notes); notes != "" {
			pdf.SetFont("Arial", "I", 10)
			pdf.MultiCell(0, 5, tr("Anotações: "+notes), "", "L", false)
		}
		pdf.Ln(4)
	}

	return pdf.Output(w)
}

func programHeading(p types.Program) string {
	start, end := types.Deref(p.StartTime), types.Deref(p.EndTime)
	switch {
	case start != "" && end != "":
		return fmt.Sprintf("%s - %s  %s", start, end, p.Title)
	case start != "":
		return fmt.Sprintf("%s  %s", start, p.Title)
	default:
		return p.Title
	}
}

func programText(n *types.PDFNarrative, i int, p types.Program) string {
	if n != nil && i < len(n.Programs) && n.Programs[i] != "" {
		return n.Programs[i]
	}
	return types.Deref(p.Description)
}
