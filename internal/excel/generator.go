package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/licitabrasil/licita-api/internal/model"
)

const summarySheet = "Resumo"

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// entityGroup collects the report rows of one public entity.
type entityGroup struct {
	Name string
	Rows []model.BiddingReportRow
}

func (g *Generator) Generate(report model.BiddingReport) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	groups := groupByEntity(report.Rows)
	if err := g.writeSummary(file, summarySheet, report, groups); err != nil {
		return nil, err
	}

	usedNames := map[string]struct{}{summarySheet: {}}
	for i, group := range groups {
		sheetName := buildSheetName(group.Name, i+1, usedNames)
		usedNames[sheetName] = struct{}{}

		if _, err := file.NewSheet(sheetName); err != nil {
			return nil, err
		}
		if err := g.writeDetail(file, sheetName, report, group); err != nil {
			return nil, err
		}
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, report model.BiddingReport, groups []entityGroup) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Relatório de licitações")
	set("A2", "Início do período")
	set("B2", formatDate(report.PeriodStart))
	set("A3", "Fim do período")
	set("B3", formatDate(report.PeriodEnd))
	set("A4", "Situação")
	set("B4", statusLabel(report.Status))
	set("A5", "Licitações")
	set("B5", len(report.Rows))
	set("A6", "Propostas")
	set("B6", report.TotalProposals())
	set("A7", "Valor estimado, R$")
	set("B7", formatMoney(report.TotalEstimated()))
	set("A8", "Valor adjudicado, R$")
	set("B8", formatMoney(report.TotalAwarded()))
	set("A9", "Gerado em")
	set("B9", formatDateTime(report.GeneratedAt))

	tableRow := 11
	headers := []string{"Órgão", "Licitações", "Propostas", "Valor estimado, R$", "Valor adjudicado, R$"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, group := range groups {
		row := tableRow + 1 + i
		estimated, awarded, proposals := groupTotals(group)
		set(fmt.Sprintf("A%d", row), group.Name)
		set(fmt.Sprintf("B%d", row), len(group.Rows))
		set(fmt.Sprintf("C%d", row), proposals)
		set(fmt.Sprintf("D%d", row), formatMoney(estimated))
		set(fmt.Sprintf("E%d", row), formatMoney(awarded))
	}

	_ = file.SetColWidth(sheet, "A", "A", 45)
	_ = file.SetColWidth(sheet, "B", "C", 14)
	_ = file.SetColWidth(sheet, "D", "E", 22)
	return nil
}

func (g *Generator) writeDetail(file *excelize.File, sheet string, report model.BiddingReport, group entityGroup) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	estimated, awarded, _ := groupTotals(group)
	set("A1", "Órgão")
	set("B1", group.Name)
	set("A2", "Início do período")
	set("B2", formatDate(report.PeriodStart))
	set("A3", "Fim do período")
	set("B3", formatDate(report.PeriodEnd))
	set("A4", "Valor estimado, R$")
	set("B4", formatMoney(estimated))
	set("A5", "Valor adjudicado, R$")
	set("B5", formatMoney(awarded))

	tableRow := 7
	headers := []string{
		"Número",
		"Objeto",
		"Modalidade",
		"Situação",
		"Abertura",
		"Encerramento",
		"Valor estimado, R$",
		"Propostas",
		"Vencedor",
		"Valor vencedor, R$",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, item := range group.Rows {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), item.Number)
		set(fmt.Sprintf("B%d", row), item.Title)
		set(fmt.Sprintf("C%d", row), string(item.Modality))
		set(fmt.Sprintf("D%d", row), string(item.Status))
		set(fmt.Sprintf("E%d", row), formatDateTime(item.OpeningDate))
		set(fmt.Sprintf("F%d", row), formatDateTime(item.ClosingDate))
		set(fmt.Sprintf("G%d", row), formatMoney(item.EstimatedValue))
		set(fmt.Sprintf("H%d", row), item.ProposalCount)
		set(fmt.Sprintf("I%d", row), formatString(item.WinnerName))
		set(fmt.Sprintf("J%d", row), formatOptionalMoney(item.WinningAmount))
	}

	_ = file.SetColWidth(sheet, "A", "A", 16)
	_ = file.SetColWidth(sheet, "B", "B", 40)
	_ = file.SetColWidth(sheet, "C", "D", 20)
	_ = file.SetColWidth(sheet, "E", "F", 18)
	_ = file.SetColWidth(sheet, "G", "G", 18)
	_ = file.SetColWidth(sheet, "H", "H", 10)
	_ = file.SetColWidth(sheet, "I", "I", 32)
	_ = file.SetColWidth(sheet, "J", "J", 18)
	return nil
}

func groupByEntity(rows []model.BiddingReportRow) []entityGroup {
	index := make(map[string]int)
	var groups []entityGroup
	for _, row := range rows {
		name := strings.TrimSpace(row.EntityName)
		pos, ok := index[name]
		if !ok {
			pos = len(groups)
			index[name] = pos
			groups = append(groups, entityGroup{Name: name})
		}
		groups[pos].Rows = append(groups[pos].Rows, row)
	}
	return groups
}

func groupTotals(group entityGroup) (float64, float64, int64) {
	var estimated, awarded float64
	var proposals int64
	for _, row := range group.Rows {
		estimated += row.EstimatedValue
		proposals += row.ProposalCount
		if row.WinningAmount != nil {
			awarded += *row.WinningAmount
		}
	}
	return estimated, awarded, proposals
}

// buildSheetName returns a unique sheet name of at most 31 characters.
func buildSheetName(name string, position int, used map[string]struct{}) string {
	base := sanitizeSheetName(name)
	if base == "" {
		base = fmt.Sprintf("Órgão %d", position)
	}
	base = truncateRunes(base, 31)

	nameCandidate := base
	counter := 2
	for {
		if _, exists := used[nameCandidate]; !exists {
			return nameCandidate
		}
		suffix := fmt.Sprintf("-%d", counter)
		nameCandidate = truncateRunes(base, 31-len(suffix)) + suffix
		counter++
	}
}

func sanitizeSheetName(value string) string {
	replacer := strings.NewReplacer(
		"[", "-",
		"]", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"/", "-",
		"\\", "-",
		"'", "",
	)
	return strings.TrimSpace(replacer.Replace(strings.TrimSpace(value)))
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

func statusLabel(status *model.BiddingStatus) string {
	if status == nil {
		return "Todas"
	}
	return string(*status)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006 15:04")
}

func formatString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func formatMoney(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func formatOptionalMoney(value *float64) string {
	if value == nil {
		return ""
	}
	return formatMoney(*value)
}
