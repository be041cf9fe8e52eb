// services/blocker-svc/internal/report/csv.go
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
)

// CSVGenerator генератор CSV отчётов
type CSVGenerator struct {
	BaseGenerator
}

// NewCSVGenerator создаёт новый генератор
func NewCSVGenerator() *CSVGenerator {
	return &CSVGenerator{}
}

// Format возвращает формат генератора
func (g *CSVGenerator) Format() string { return FormatCSV }

// Binary возвращает false
func (g *CSVGenerator) Binary() bool { return false }

// csvWriter обёртка для отслеживания ошибок
type csvWriter struct {
	w   *csv.Writer
	err error
}

func (cw *csvWriter) Write(record ...string) {
	if cw.err != nil {
		return
	}
	cw.err = cw.w.Write(record)
}

func (cw *csvWriter) Flush() {
	if cw.err != nil {
		return
	}
	cw.w.Flush()
	cw.err = cw.w.Error()
}

// Generate генерирует CSV отчёт: секция сводки, затем таблица
// заблокированных связей и, по запросу, трасса поиска
func (g *CSVGenerator) Generate(ctx context.Context, data *Data) ([]byte, error) {
	var buf bytes.Buffer
	cw := &csvWriter{w: csv.NewWriter(&buf)}

	cw.Write("# " + g.GetTitle(data))
	cw.Write("")

	cw.Write("Summary")
	for _, kv := range summary(data) {
		cw.Write(kv[0], kv[1])
	}
	cw.Write("")

	if data.Result != nil {
		cw.Write("Blocked Links")
		cw.Write("Head", "Tail", "LinkId", "Capacity", "Cost")
		for _, r := range blockedRows(data) {
			cw.Write(i64(r.Key.Head), i64(r.Key.Tail), i64(r.ID), i64(r.Capacity), i64(r.Cost))
		}
	}

	if g.ShouldIncludeTrace(data) {
		cw.Write("")
		cw.Write("Search Trace")
		cw.Write("Index", "Budget", "Lo", "Hi", "Verdict", "Clauses", "Variables", "Duration (ms)", "Confirm")
		for _, it := range data.Result.Trace {
			cw.Write(
				strconv.Itoa(it.Index),
				i64(it.Budget),
				i64(it.Lo),
				i64(it.Hi),
				it.Verdict.String(),
				strconv.Itoa(it.Clauses),
				strconv.Itoa(it.Variables),
				fmt.Sprintf("%.3f", millis(it.Duration.Nanoseconds())),
				strconv.FormatBool(it.Confirm),
			)
		}
	}

	cw.Flush()
	if cw.err != nil {
		return nil, fmt.Errorf("csv write error: %w", cw.err)
	}

	return buf.Bytes(), nil
}

func i64(v int64) string {
	return strconv.FormatInt(v, 10)
}
