package export

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/iwvelando/course-emi/internal/presentation"
	"github.com/iwvelando/course-emi/pkg/constants"
)

const (
	pdfContentType = "application/pdf"
	pdfFont        = "Helvetica"
	pdfRowHeight   = 8.0
)

type rgb struct{ r, g, b int }

var (
	summaryHeaderRGB  = rgb{59, 130, 246}
	scheduleHeaderRGB = rgb{249, 115, 22}
	stripeRGB         = rgb{245, 245, 245}
	mutedRGB          = rgb{100, 100, 100}
	textRGB           = rgb{0, 0, 0}

	summaryWidths  = []float64{80, 100}
	scheduleWidths = []float64{15, 60, 60, 45}
)

// PDFRenderer writes a single-page A4 document: title block, a grid summary
// table, a striped schedule table and the footer.
type PDFRenderer struct{}

func (PDFRenderer) Format() string {
	return constants.ExportFormatPDF
}

func (r PDFRenderer) Render(ctx context.Context, payload presentation.Payload) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetTitle(payload.Title, true)
	pdf.SetSubject(payload.Subtitle, true)
	pdf.SetCreator(payload.Title, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont(pdfFont, "B", 18)
	setText(pdf, summaryHeaderRGB)
	pdf.CellFormat(0, 10, tr(payload.Title), "", 1, "C", false, 0, "")
	pdf.SetFont(pdfFont, "", 11)
	setText(pdf, mutedRGB)
	pdf.CellFormat(0, 7, tr(payload.Subtitle), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	sectionHeading(pdf, tr(payload.SummaryHeading))
	tableHeader(pdf, tr, presentation.SummaryColumns, summaryWidths, summaryHeaderRGB)
	pdf.SetFont(pdfFont, "", 10)
	for _, row := range payload.Summary {
		pdf.CellFormat(summaryWidths[0], pdfRowHeight, tr(row.Metric), "1", 0, "L", false, 0, "")
		pdf.CellFormat(summaryWidths[1], pdfRowHeight, tr(row.Value), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	sectionHeading(pdf, tr(payload.ScheduleHeading))
	tableHeader(pdf, tr, presentation.ScheduleColumns, scheduleWidths, scheduleHeaderRGB)
	pdf.SetFont(pdfFont, "", 10)
	pdf.SetFillColor(stripeRGB.r, stripeRGB.g, stripeRGB.b)
	for i, p := range payload.Schedule {
		fill := i%2 == 1
		pdf.CellFormat(scheduleWidths[0], pdfRowHeight, strconv.Itoa(p.Index), "LR", 0, "C", fill, 0, "")
		pdf.CellFormat(scheduleWidths[1], pdfRowHeight, tr(p.Month), "LR", 0, "L", fill, 0, "")
		pdf.CellFormat(scheduleWidths[2], pdfRowHeight, tr(p.Amount), "LR", 0, "R", fill, 0, "")
		pdf.CellFormat(scheduleWidths[3], pdfRowHeight, tr(p.Status), "LR", 1, "C", fill, 0, "")
	}
	pdf.CellFormat(sum(scheduleWidths), 0, "", "T", 1, "", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont(pdfFont, "I", 9)
	setText(pdf, mutedRGB)
	pdf.CellFormat(0, 6, tr(payload.Footer), "", 1, "C", false, 0, "")

	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Artifact{}, fmt.Errorf("failed to write pdf: %w", err)
	}
	return Artifact{
		Name:        payload.FileBase + "." + r.Format(),
		ContentType: pdfContentType,
		Data:        buf.Bytes(),
	}, nil
}

func setText(pdf *fpdf.Fpdf, c rgb) {
	pdf.SetTextColor(c.r, c.g, c.b)
}

func sectionHeading(pdf *fpdf.Fpdf, text string) {
	pdf.SetFont(pdfFont, "B", 13)
	setText(pdf, textRGB)
	pdf.CellFormat(0, 9, text, "", 1, "L", false, 0, "")
}

// tableHeader draws a filled header row and leaves the text color reset.
func tableHeader(pdf *fpdf.Fpdf, tr func(string) string, columns []string, widths []float64, fill rgb) {
	pdf.SetFont(pdfFont, "B", 10)
	pdf.SetFillColor(fill.r, fill.g, fill.b)
	pdf.SetTextColor(255, 255, 255)
	for i, col := range columns {
		pdf.CellFormat(widths[i], pdfRowHeight, tr(col), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	setText(pdf, textRGB)
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
