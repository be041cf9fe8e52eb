// services/blocker-svc/internal/report/pdf.go
package report

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// pdfMaxRows ограничение длины таблиц в PDF
const pdfMaxRows = 40

// PDFGenerator генератор PDF отчётов
type PDFGenerator struct {
	BaseGenerator
}

// NewPDFGenerator создаёт новый генератор
func NewPDFGenerator() *PDFGenerator {
	return &PDFGenerator{}
}

// Format возвращает формат генератора
func (g *PDFGenerator) Format() string { return FormatPDF }

// Binary возвращает true
func (g *PDFGenerator) Binary() bool { return true }

// Стили
var (
	primaryColor   = &props.Color{Red: 52, Green: 152, Blue: 219}  // #3498db
	headerBgColor  = &props.Color{Red: 44, Green: 62, Blue: 80}    // #2c3e50
	successColor   = &props.Color{Red: 39, Green: 174, Blue: 96}   // #27ae60
	dangerColor    = &props.Color{Red: 231, Green: 76, Blue: 60}   // #e74c3c
	lightGrayColor = &props.Color{Red: 236, Green: 240, Blue: 241} // #ecf0f1
	darkGrayColor  = &props.Color{Red: 127, Green: 140, Blue: 141} // #7f8c8d

	titleStyle = props.Text{
		Size:  22,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: headerBgColor,
	}

	h2Style = props.Text{
		Size:  15,
		Style: fontstyle.Bold,
		Color: headerBgColor,
		Top:   5,
	}

	normalStyle = props.Text{Size: 10}

	boldStyle = props.Text{Size: 10, Style: fontstyle.Bold}

	smallStyle = props.Text{Size: 8, Color: darkGrayColor}

	metricValueStyle = props.Text{
		Size:  20,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: primaryColor,
	}

	metricLabelStyle = props.Text{
		Size:  9,
		Align: align.Center,
		Color: darkGrayColor,
		Top:   10,
	}

	tableHeaderStyle = &props.Cell{BackgroundColor: primaryColor}

	tableHeaderTextStyle = props.Text{
		Size:  9,
		Style: fontstyle.Bold,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
		Align: align.Center,
	}

	tableCellStyle = &props.Cell{
		BorderType:  border.Bottom,
		BorderColor: lightGrayColor,
	}

	tableCellTextStyle = props.Text{Size: 9, Align: align.Center}
)

// Generate генерирует PDF отчёт
func (g *PDFGenerator) Generate(ctx context.Context, data *Data) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)

	g.addHeader(m, data)
	g.addSolution(m, data)
	g.addVerification(m, data)
	if g.ShouldIncludeTrace(data) {
		g.addTrace(m, data)
	}
	g.addFooter(m, data)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func (g *PDFGenerator) addHeader(m core.Maroto, data *Data) {
	m.AddRow(15, text.NewCol(12, g.GetTitle(data), titleStyle))
	m.AddRow(5, line.NewCol(12))

	m.AddRow(6,
		text.NewCol(6, fmt.Sprintf("Author: %s", g.GetAuthor(data)), smallStyle),
		text.NewCol(6, fmt.Sprintf("Generated: %s", g.FormatTimestamp(data)),
			props.Text{Size: 8, Color: darkGrayColor, Align: align.Right}),
	)
	if desc := g.GetDescription(data); desc != "" {
		m.AddRow(5, text.NewCol(12, desc, smallStyle))
	}
	m.AddRow(8)
}

func (g *PDFGenerator) addSolution(m core.Maroto, data *Data) {
	g.addSection(m, "Summary")

	if r := data.Result; r != nil {
		g.addMetricCards(m, []metricCard{
			{Label: "Minimum Cost", Value: fmt.Sprintf("%d", r.Cost), Highlight: true},
			{Label: "Blocked Links", Value: fmt.Sprintf("%d", len(r.Blocked)), Highlight: true},
			{Label: "Target Flow", Value: fmt.Sprintf("%d", data.TargetFlow)},
		})
		m.AddRow(5)
	}

	for _, kv := range summary(data) {
		m.AddRow(6,
			text.NewCol(6, kv[0], boldStyle),
			text.NewCol(6, kv[1], normalStyle),
		)
	}

	if data.Result == nil {
		return
	}
	g.addSection(m, "Blocked Links")
	rows := blockedRows(data)
	if len(rows) == 0 {
		m.AddRow(6, text.NewCol(12, "No link needs to be blocked.", normalStyle))
		return
	}
	g.addTableHeader(m, "Link", "Link ID", "Capacity", "Cost")
	for i, r := range rows {
		if i >= pdfMaxRows {
			m.AddRow(6, text.NewCol(12, fmt.Sprintf("... and %d more rows", len(rows)-pdfMaxRows), smallStyle))
			break
		}
		g.addTableRow(m, r.Key.String(), fmt.Sprintf("%d", r.ID), fmt.Sprintf("%d", r.Capacity), fmt.Sprintf("%d", r.Cost))
	}
}

func (g *PDFGenerator) addVerification(m core.Maroto, data *Data) {
	v := data.Verification
	if v == nil {
		return
	}
	g.addSection(m, "Verification")

	status, color := "PASSED", successColor
	if v.ResidualMaxFlow > v.TargetFlow {
		status, color = "FAILED", dangerColor
	}
	m.AddRow(8, text.NewCol(12, status, props.Text{Size: 12, Style: fontstyle.Bold, Color: color}))
	g.addMetricCards(m, []metricCard{
		{Label: "Max Flow Before", Value: fmt.Sprintf("%d", v.OriginalMaxFlow)},
		{Label: "Max Flow After", Value: fmt.Sprintf("%d", v.ResidualMaxFlow), Highlight: true},
	})
}

func (g *PDFGenerator) addTrace(m core.Maroto, data *Data) {
	g.addSection(m, "Search Trace")
	g.addTableHeader(m, "#", "Budget", "Verdict", "Clauses", "Duration")
	for i, it := range data.Result.Trace {
		if i >= pdfMaxRows {
			m.AddRow(6, text.NewCol(12, fmt.Sprintf("... and %d more rows", len(data.Result.Trace)-pdfMaxRows), smallStyle))
			break
		}
		g.addTableRow(m,
			fmt.Sprintf("%d", it.Index),
			fmt.Sprintf("%d", it.Budget),
			it.Verdict.String(),
			fmt.Sprintf("%d", it.Clauses),
			g.FormatDuration(it.Duration),
		)
	}
}

type metricCard struct {
	Label     string
	Value     string
	Highlight bool
}

func (g *PDFGenerator) addMetricCards(m core.Maroto, cards []metricCard) {
	if len(cards) == 0 {
		return
	}
	colSize := 12 / len(cards)
	if colSize < 2 {
		colSize = 2
	}

	var cols []core.Col
	for _, card := range cards {
		valueStyle := metricValueStyle
		if !card.Highlight {
			valueStyle.Size = 14
		}
		cols = append(cols,
			col.New(colSize).Add(
				text.New(card.Value, valueStyle),
				text.New(card.Label, metricLabelStyle),
			),
		)
	}
	m.AddRow(20, cols...)
}

// addTableHeader делит 12 колонок сетки поровну между заголовками
func (g *PDFGenerator) addTableHeader(m core.Maroto, headers ...string) {
	size := 12 / len(headers)
	cols := make([]core.Col, 0, len(headers))
	for _, h := range headers {
		cols = append(cols, text.NewCol(size, h, tableHeaderTextStyle).WithStyle(tableHeaderStyle))
	}
	m.AddRow(8, cols...)
}

func (g *PDFGenerator) addTableRow(m core.Maroto, cells ...string) {
	size := 12 / len(cells)
	cols := make([]core.Col, 0, len(cells))
	for _, c := range cells {
		cols = append(cols, text.NewCol(size, c, tableCellTextStyle).WithStyle(tableCellStyle))
	}
	m.AddRow(6, cols...)
}

func (g *PDFGenerator) addSection(m core.Maroto, title string) {
	m.AddRow(10, text.NewCol(12, title, h2Style))
	m.AddRow(2, line.NewCol(12, props.Line{Color: primaryColor}))
	m.AddRow(5)
}

func (g *PDFGenerator) addFooter(m core.Maroto, data *Data) {
	m.AddRow(10)
	m.AddRow(2, line.NewCol(12, props.Line{Color: lightGrayColor}))
	m.AddRow(6,
		text.NewCol(12,
			fmt.Sprintf("Generated by netblock | %s", g.FormatTimestamp(data)),
			props.Text{Size: 8, Color: darkGrayColor, Align: align.Center},
		),
	)
}
