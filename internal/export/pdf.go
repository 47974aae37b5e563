package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/diewo77/go-quotes/i18n"
	"github.com/diewo77/go-quotes/internal/models"
	"github.com/diewo77/go-quotes/view"
)

// PDFContentType is served with PDF exports.
const PDFContentType = "application/pdf"

// PDF renders the quote with the core Helvetica font. Text goes through a
// cp1252 translator so Portuguese accents survive.
func PDF(w io.Writer, d view.QuoteDocument) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(i18n.T("quote")+" "+d.Heading()), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(i18n.T("quote")+" "+d.Heading()))
	pdf.Ln(12)

	top := pdf.GetY()
	party(pdf, tr, 10, top, "", d.Issuer)
	party(pdf, tr, 110, top, i18n.T("recipient"), d.Client)
	pdf.SetY(top + 34)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(247, 247, 247)
	pdf.CellFormat(100, 7, tr(i18n.T("description")), "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 7, tr(i18n.T("qty")), "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 7, tr(i18n.T("unit")), "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 7, tr(i18n.T("total")), "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, it := range d.Quote.Items {
		pdf.CellFormat(100, 6, tr(trim(it.Description, 60)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprint(it.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, tr(i18n.Money(it.UnitPrice)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, tr(i18n.Money(it.Total())), "1", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, tr(i18n.T("subtotal")+": "+i18n.Money(d.Quote.Subtotal)), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, tr(i18n.T("total")+": "+i18n.Money(d.Quote.Total)), "", 1, "R", false, 0, "")

	if d.Quote.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(i18n.T("notes")+": "+d.Quote.Notes), "", "L", false)
	}

	// signature
	pdf.Ln(40)
	y := pdf.GetY()
	pdf.SetLineWidth(0.5)
	pdf.Line(45, y, 165, y)
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, tr(d.Issuer.Name), "", 1, "C", false, 0, "")

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(102, 102, 102)
	pdf.Cell(0, 5, tr(i18n.T("generated_at")+": "+i18n.Date(d.Quote.CreatedAt)))

	return pdf.Output(w)
}

func party(pdf *gofpdf.Fpdf, tr func(string) string, x, y float64, title string, p models.Party) {
	pdf.SetXY(x, y)
	if title != "" {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(90, 5, tr(title), "", 2, "L", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(90, 6, tr(p.Name), "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	if p.TaxID != "" {
		pdf.CellFormat(90, 5, tr(i18n.T("tax_id")+": "+p.TaxID), "", 2, "L", false, 0, "")
	}
	if p.Address != "" {
		pdf.CellFormat(90, 5, tr(trim(p.Address, 55)), "", 2, "L", false, 0, "")
	}
	if p.Phone != "" {
		pdf.CellFormat(90, 5, tr(i18n.T("phone")+": "+p.Phone), "", 2, "L", false, 0, "")
	}
}

func trim(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
