package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Field is a label/value line in a document header.
type Field struct {
	Label string
	Value string
}

// Section is a titled table inside a Document.
type Section struct {
	Heading string
	Table   Dataset
	// Widths are column widths in mm; zero spreads columns evenly.
	Widths []float64
	// Empty is printed instead of the table when it has no rows.
	Empty string
}

// Document is a single-record report such as a container assessment.
type Document struct {
	Title       string
	Fields      []Field
	Sections    []Section
	GeneratedAt time.Time
}

// PDFExporter renders datasets and documents with gofpdf.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a landscape register with a title and one table.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}
	writeTable(pdf, data, nil, 277)

	return output(pdf)
}

// RenderDocument renders a portrait document with header fields and sections.
func (e *PDFExporter) RenderDocument(doc Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 15, 12)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 15)
	pdf.CellFormat(0, 10, doc.Title, "", 1, "L", false, 0, "")
	if !doc.GeneratedAt.IsZero() {
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 5, "Generated "+doc.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	for _, f := range doc.Fields {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(45, 6, f.Label, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 6, f.Value, "", "L", false)
	}

	for _, section := range doc.Sections {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, section.Heading, "", 1, "L", false, 0, "")
		if len(section.Table.Rows) == 0 {
			pdf.SetFont("Arial", "I", 9)
			pdf.CellFormat(0, 6, section.Empty, "", 1, "L", false, 0, "")
			continue
		}
		writeTable(pdf, section.Table, section.Widths, 186)
	}
	return output(pdf)
}

func writeTable(pdf *gofpdf.Fpdf, data Dataset, widths []float64, total float64) {
	if len(widths) != len(data.Headers) {
		widths = make([]float64, len(data.Headers))
		for i := range widths {
			widths[i] = total / float64(len(data.Headers))
		}
	}

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], 7, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for r, row := range data.Rows {
		tone := ToneNone
		if r < len(data.Tones) {
			tone = data.Tones[r]
		}
		fill := setTone(pdf, tone)
		for i := range data.Headers {
			var value string
			if i < len(row) {
				value = row[i]
			}
			pdf.CellFormat(widths[i], 6, value, "1", 0, "", fill, 0, "")
		}
		pdf.Ln(-1)
	}
}

func setTone(pdf *gofpdf.Fpdf, tone Tone) bool {
	switch tone {
	case ToneGood:
		pdf.SetFillColor(220, 245, 220)
	case ToneWarn:
		pdf.SetFillColor(255, 240, 200)
	case ToneBad:
		pdf.SetFillColor(250, 210, 210)
	default:
		return false
	}
	return true
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
