package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// Field is one label/value line of a key-value table.
type Field struct {
	Label string
	Value string
}

// Document builds a portrait A4 report out of headings, key-value tables and
// paragraphs. Methods chain; errors surface from Bytes.
type Document struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

// NewDocument starts a document with title centred on the first page.
func NewDocument(title string) *Document {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(25, 25, 25)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle(title, true)
	pdf.AddPage()
	d := &Document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetTextColor(0, 0, 139)
	pdf.CellFormat(0, 12, d.tr(title), "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(8)
	return d
}

// Heading writes a section heading.
func (d *Document) Heading(text string) *Document {
	d.pdf.SetFont("Helvetica", "B", 15)
	d.pdf.SetTextColor(0, 0, 139)
	d.pdf.CellFormat(0, 9, d.tr(text), "", 1, "L", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.Ln(2)
	return d
}

// Subheading writes a smaller green heading, used per repeated item.
func (d *Document) Subheading(text string) *Document {
	d.pdf.SetFont("Helvetica", "B", 13)
	d.pdf.SetTextColor(0, 100, 0)
	d.pdf.CellFormat(0, 8, d.tr(text), "", 1, "L", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
	return d
}

// Table writes a bordered two-column table with shaded labels. labelWidth is in mm.
func (d *Document) Table(fields []Field, labelWidth float64, shade [3]int) *Document {
	pageWidth, _ := d.pdf.GetPageSize()
	left, _, right, _ := d.pdf.GetMargins()
	valueWidth := pageWidth - left - right - labelWidth

	for _, f := range fields {
		d.pdf.SetFillColor(shade[0], shade[1], shade[2])
		d.pdf.SetFont("Helvetica", "B", 10)
		d.pdf.CellFormat(labelWidth, 8, d.tr(f.Label), "1", 0, "L", true, 0, "")
		d.pdf.SetFont("Helvetica", "", 10)
		d.pdf.CellFormat(valueWidth, 8, d.tr(f.Value), "1", 1, "L", false, 0, "")
	}
	d.pdf.Ln(3)
	return d
}

// Paragraph writes wrapped body text with an optional bold label before it.
func (d *Document) Paragraph(label, text string) *Document {
	if label != "" {
		d.pdf.SetFont("Helvetica", "B", 11)
		d.pdf.CellFormat(0, 6, d.tr(label), "", 1, "L", false, 0, "")
	}
	d.pdf.SetFont("Helvetica", "", 11)
	d.pdf.MultiCell(0, 6, d.tr(text), "", "L", false)
	d.pdf.Ln(2)
	return d
}

// Space adds vertical whitespace in mm.
func (d *Document) Space(mm float64) *Document {
	d.pdf.Ln(mm)
	return d
}

// Footer writes a small grey centred line.
func (d *Document) Footer(text string) *Document {
	d.pdf.Ln(10)
	d.pdf.SetFont("Helvetica", "", 8)
	d.pdf.SetTextColor(128, 128, 128)
	d.pdf.CellFormat(0, 5, d.tr(text), "", 1, "C", false, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
	return d
}

// Pages returns the current page count.
func (d *Document) Pages() int {
	return d.pdf.PageCount()
}

// Bytes renders the document.
func (d *Document) Bytes() ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := d.pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Shades used by the student documents.
var (
	ShadeGrey = [3]int{211, 211, 211}
	ShadeBlue = [3]int{173, 216, 230}
)
