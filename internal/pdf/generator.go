package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/licitabrasil/licita-api/internal/model"
)

// Generator renders bidding reports. The core Helvetica font is used with a
// cp1252 translator, which covers Portuguese diacritics.
type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

var (
	tableHeaders = []string{"Número", "Objeto", "Órgão", "Modalidade", "Situação", "Abertura", "Estimado (R$)", "Propostas", "Adjudicado (R$)"}
	tableWidths  = []float64{26, 62, 46, 30, 22, 20, 26, 15, 20}
)

func (g *Generator) Generate(report model.BiddingReport) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFillColor(230, 230, 230)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, tr("Relatório de licitações"), "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Período: %s a %s", formatDate(report.PeriodStart), formatDate(report.PeriodEnd))), "", 1, "C", false, 0, "")
	status := "todas"
	if report.Status != nil {
		status = string(*report.Status)
	}
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Situação: %s", status)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	drawTableRow(pdf, g.fontName, tr, tableHeaders, tableWidths, true)
	if len(report.Rows) == 0 {
		pdf.SetFont(g.fontName, "", 10)
		pdf.CellFormat(sum(tableWidths), 8, tr("Nenhuma licitação no período"), "1", 1, "C", false, 0, "")
	}
	for _, row := range report.Rows {
		if pdf.GetY() > 180 {
			pdf.AddPage()
			drawTableRow(pdf, g.fontName, tr, tableHeaders, tableWidths, true)
		}
		drawTableRow(pdf, g.fontName, tr, []string{
			row.Number,
			row.Title,
			row.EntityName,
			string(row.Modality),
			string(row.Status),
			formatDate(row.OpeningDate),
			formatAmount(row.EstimatedValue),
			fmt.Sprintf("%d", row.ProposalCount),
			formatOptionalAmount(row.WinningAmount),
		}, tableWidths, false)
	}

	pdf.Ln(4)
	pdf.SetFont(g.fontName, "B", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Licitações: %d  Propostas: %d", len(report.Rows), report.TotalProposals())), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Valor estimado total: R$ %s", formatAmount(report.TotalEstimated()))), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Valor adjudicado total: R$ %s", formatAmount(report.TotalAwarded()))), "", 1, "R", false, 0, "")

	pdf.SetFont(g.fontName, "", 9)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Gerado em %s", formatDateTime(report.GeneratedAt))), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, tr func(string) string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 8)
	for i, col := range cols {
		align := "L"
		if !header && i >= 6 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 7, fit(pdf, tr(col), widths[i]-2), "1", 0, align, header, 0, "")
	}
	pdf.Ln(-1)
}

// fit shortens text until it fits width.
func fit(pdf *gofpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	for len(text) > 0 && pdf.GetStringWidth(text+"...") > width {
		text = text[:len(text)-1]
	}
	return strings.TrimSpace(text) + "..."
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func formatAmount(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func formatOptionalAmount(value *float64) string {
	if value == nil {
		return "-"
	}
	return formatAmount(*value)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02/01/2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02/01/2006 15:04")
}
