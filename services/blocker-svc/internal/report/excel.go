// services/blocker-svc/internal/report/excel.go
package report

import (
	"bytes"
	"context"

	"github.com/xuri/excelize/v2"
)

// Листы книги
const (
	SheetSummary = "Summary"
	SheetBlocked = "Blocked Links"
	SheetTrace   = "Search Trace"
	SheetLinks   = "Links"
)

// ExcelGenerator генератор Excel отчётов
type ExcelGenerator struct {
	BaseGenerator
}

// NewExcelGenerator создаёт новый генератор
func NewExcelGenerator() *ExcelGenerator {
	return &ExcelGenerator{}
}

// Format возвращает формат генератора
func (g *ExcelGenerator) Format() string { return FormatExcel }

// Binary возвращает true
func (g *ExcelGenerator) Binary() bool { return true }

// Generate генерирует Excel отчёт
func (g *ExcelGenerator) Generate(ctx context.Context, data *Data) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// Дефолтный лист становится сводкой
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}

	g.writeSummary(f, data, headerStyle)
	if data.Result != nil {
		if err := g.writeBlocked(f, data, headerStyle); err != nil {
			return nil, err
		}
	}
	if g.ShouldIncludeTrace(data) {
		if err := g.writeTrace(f, data, headerStyle); err != nil {
			return nil, err
		}
	}
	if data.Network != nil {
		if err := g.writeLinks(f, data, headerStyle); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *ExcelGenerator) writeSummary(f *excelize.File, data *Data, headerStyle int) {
	row := 1
	f.SetCellValue(SheetSummary, Cell("A", row), g.GetTitle(data))
	f.MergeCell(SheetSummary, Cell("A", row), Cell("B", row))
	row += 2

	f.SetCellValue(SheetSummary, Cell("A", row), "Metric")
	f.SetCellValue(SheetSummary, Cell("B", row), "Value")
	f.SetCellStyle(SheetSummary, Cell("A", row), Cell("B", row), headerStyle)
	row++

	for _, kv := range summary(data) {
		f.SetCellValue(SheetSummary, Cell("A", row), kv[0])
		f.SetCellValue(SheetSummary, Cell("B", row), kv[1])
		row++
	}
	f.SetCellValue(SheetSummary, Cell("A", row), "Generated")
	f.SetCellValue(SheetSummary, Cell("B", row), g.FormatTimestamp(data))

	f.SetColWidth(SheetSummary, "A", "A", 22)
	f.SetColWidth(SheetSummary, "B", "B", 40)
}

func (g *ExcelGenerator) writeBlocked(f *excelize.File, data *Data, headerStyle int) error {
	if _, err := f.NewSheet(SheetBlocked); err != nil {
		return err
	}
	headers := []string{"Head", "Tail", "Link ID", "Capacity", "Cost"}
	writeHeaderRow(f, SheetBlocked, headers, headerStyle)

	for i, r := range blockedRows(data) {
		row := i + 2
		f.SetCellValue(SheetBlocked, Cell("A", row), r.Key.Head)
		f.SetCellValue(SheetBlocked, Cell("B", row), r.Key.Tail)
		f.SetCellValue(SheetBlocked, Cell("C", row), r.ID)
		f.SetCellValue(SheetBlocked, Cell("D", row), r.Capacity)
		f.SetCellValue(SheetBlocked, Cell("E", row), r.Cost)
	}
	return nil
}

func (g *ExcelGenerator) writeTrace(f *excelize.File, data *Data, headerStyle int) error {
	if _, err := f.NewSheet(SheetTrace); err != nil {
		return err
	}
	headers := []string{"#", "Budget", "Lo", "Hi", "Verdict", "Clauses", "Variables", "Duration (ms)"}
	writeHeaderRow(f, SheetTrace, headers, headerStyle)

	for i, it := range data.Result.Trace {
		row := i + 2
		f.SetCellValue(SheetTrace, Cell("A", row), it.Index)
		f.SetCellValue(SheetTrace, Cell("B", row), it.Budget)
		f.SetCellValue(SheetTrace, Cell("C", row), it.Lo)
		f.SetCellValue(SheetTrace, Cell("D", row), it.Hi)
		f.SetCellValue(SheetTrace, Cell("E", row), it.Verdict.String())
		f.SetCellValue(SheetTrace, Cell("F", row), it.Clauses)
		f.SetCellValue(SheetTrace, Cell("G", row), it.Variables)
		f.SetCellValue(SheetTrace, Cell("H", row), millis(it.Duration.Nanoseconds()))
	}
	return nil
}

// writeLinks выгружает все связи сети с отметкой о блокировке
func (g *ExcelGenerator) writeLinks(f *excelize.File, data *Data, headerStyle int) error {
	if _, err := f.NewSheet(SheetLinks); err != nil {
		return err
	}
	headers := []string{"Link ID", "Head", "Tail", "Capacity", "Cost", "Blocked"}
	writeHeaderRow(f, SheetLinks, headers, headerStyle)

	blocked := make(map[string]bool)
	for _, r := range blockedRows(data) {
		blocked[r.Key.String()] = true
	}
	for i, l := range data.Network.Links() {
		row := i + 2
		f.SetCellValue(SheetLinks, Cell("A", row), l.ID)
		f.SetCellValue(SheetLinks, Cell("B", row), l.Head)
		f.SetCellValue(SheetLinks, Cell("C", row), l.Tail)
		f.SetCellValue(SheetLinks, Cell("D", row), l.Capacity)
		f.SetCellValue(SheetLinks, Cell("E", row), l.Cost)
		mark := "no"
		if blocked[l.Key().String()] {
			mark = "yes"
		}
		f.SetCellValue(SheetLinks, Cell("F", row), mark)
	}
	return nil
}

func writeHeaderRow(f *excelize.File, sheet string, headers []string, style int) {
	for i, h := range headers {
		f.SetCellValue(sheet, CellByIndex(i, 1), h)
	}
	f.SetCellStyle(sheet, "A1", CellByIndex(len(headers)-1, 1), style)
}
