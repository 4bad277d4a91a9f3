package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"spendlog/internal/reporting"
)

type rgb [3]int

var (
	headerColor   = rgb{40, 40, 40}
	headerText    = rgb{255, 255, 255}
	bodyText      = rgb{50, 50, 50}
	lineColor     = rgb{200, 200, 200}
	currentColor  = rgb{74, 111, 165}
	previousColor = rgb{180, 190, 205}
)

const (
	pageWidth   = 190.0
	chartHeight = 60.0
)

// WritePDF renders a one-page report: summary, a month-by-month bar chart
// comparing the two years, and a category bar chart.
func WritePDF(w io.Writer, rep *Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Spending report %d", rep.Current.Year), true)
	pdf.SetCreationDate(rep.GeneratedAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFillColor(headerColor[0], headerColor[1], headerColor[2])
	pdf.SetTextColor(headerText[0], headerText[1], headerText[2])
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 12, tr(fmt.Sprintf("  Spending report %d", rep.Current.Year)), "", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.SetTextColor(bodyText[0], bodyText[1], bodyText[2])
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("  %s · generated %s", rep.Owner, rep.GeneratedAt.Format("02 January, 2006"))), "", 1, "L", true, 0, "")
	pdf.Ln(6)

	section(pdf, "Summary")
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(95, 10, "Total "+strconv.FormatInt(rep.Current.Total, 10), "", 0, "L", false, 0, "")
	if rep.Previous != nil {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(95, 10, fmt.Sprintf("%d total: %d", rep.Previous.Year, rep.Previous.Total), "", 0, "L", false, 0, "")
	}
	pdf.Ln(14)

	section(pdf, "Monthly spending")
	monthChart(pdf, rep)
	pdf.Ln(6)

	section(pdf, "Spending by category")
	categoryChart(pdf, tr, rep.Current)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("error writing PDF: %w", err)
	}
	return nil
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.Cell(0, 8, title)
	pdf.Ln(7)
	pdf.SetDrawColor(lineColor[0], lineColor[1], lineColor[2])
	pdf.Line(pdf.GetX(), pdf.GetY(), pdf.GetX()+pageWidth, pdf.GetY())
	pdf.Ln(4)
	pdf.SetTextColor(bodyText[0], bodyText[1], bodyText[2])
}

func monthChart(pdf *gofpdf.Fpdf, rep *Report) {
	var peak int64
	for i := range rep.Current.Months {
		peak = max(peak, rep.Current.Months[i])
		if rep.Previous != nil {
			peak = max(peak, rep.Previous.Months[i])
		}
	}

	left, top := pdf.GetX(), pdf.GetY()
	base := top + chartHeight
	slot := pageWidth / 12
	bar := slot * 0.35

	pdf.SetDrawColor(lineColor[0], lineColor[1], lineColor[2])
	pdf.Line(left, base, left+pageWidth, base)
	pdf.SetFont("Arial", "", 7)

	for i, label := range reporting.MonthLabels {
		x := left + float64(i)*slot + slot*0.1
		if rep.Previous != nil {
			drawBar(pdf, x, base, bar, scaled(rep.Previous.Months[i], peak), previousColor)
		}
		drawBar(pdf, x+bar, base, bar, scaled(rep.Current.Months[i], peak), currentColor)

		pdf.SetXY(left+float64(i)*slot, base+1)
		pdf.CellFormat(slot, 4, label, "", 0, "C", false, 0, "")
		if v := rep.Current.Months[i]; v > 0 {
			pdf.SetXY(left+float64(i)*slot, base-scaled(v, peak)-4)
			pdf.CellFormat(slot, 4, strconv.FormatInt(v, 10), "", 0, "C", false, 0, "")
		}
	}

	pdf.SetXY(left, base+6)
	legend(pdf, currentColor, strconv.Itoa(rep.Current.Year))
	if rep.Previous != nil {
		legend(pdf, previousColor, strconv.Itoa(rep.Previous.Year))
	}
	pdf.Ln(6)
}

func categoryChart(pdf *gofpdf.Fpdf, tr func(string) string, rep *reporting.YearReport) {
	pdf.SetFont("Arial", "", 9)
	if len(rep.Categories) == 0 {
		pdf.Cell(0, 6, "No spending recorded.")
		pdf.Ln(6)
		return
	}

	var peak int64
	for _, c := range rep.Categories {
		peak = max(peak, c.Total)
	}
	const labelWidth, valueWidth, rowHeight = 45.0, 25.0, 6.0
	barArea := pageWidth - labelWidth - valueWidth

	for _, c := range rep.Categories {
		x, y := pdf.GetX(), pdf.GetY()
		pdf.CellFormat(labelWidth, rowHeight, tr(c.Category), "", 0, "L", false, 0, "")
		w := barArea * float64(c.Total) / float64(peak)
		pdf.SetFillColor(currentColor[0], currentColor[1], currentColor[2])
		pdf.Rect(x+labelWidth, y+1, w, rowHeight-2, "F")
		pdf.SetXY(x+labelWidth+barArea, y)
		pdf.CellFormat(valueWidth, rowHeight, strconv.FormatInt(c.Total, 10), "", 1, "R", false, 0, "")
	}
}

func drawBar(pdf *gofpdf.Fpdf, x, base, width, height float64, c rgb) {
	if height <= 0 {
		return
	}
	pdf.SetFillColor(c[0], c[1], c[2])
	pdf.Rect(x, base-height, width, height, "F")
}

func legend(pdf *gofpdf.Fpdf, c rgb, label string) {
	x, y := pdf.GetX(), pdf.GetY()
	pdf.SetFillColor(c[0], c[1], c[2])
	pdf.Rect(x, y+1, 3, 3, "F")
	pdf.SetXY(x+4, y)
	pdf.CellFormat(20, 5, label, "", 0, "L", false, 0, "")
}

func scaled(v, peak int64) float64 {
	if peak <= 0 || v <= 0 {
		return 0
	}
	return chartHeight * float64(v) / float64(peak)
}
