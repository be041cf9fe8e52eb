// services/blocker-svc/internal/report/generator.go
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"netblock/pkg/apperror"
	"netblock/pkg/domain"
	"netblock/services/blocker-svc/internal/maxflow"
	"netblock/services/blocker-svc/internal/search"
)

// Форматы отчётов
const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatExcel    = "xlsx"
	FormatPDF      = "pdf"
)

// Options параметры оформления отчёта
type Options struct {
	Title       string
	Author      string
	Description string

	// IncludeTrace добавляет таблицу итераций бинарного поиска
	IncludeTrace bool
}

// Data данные для генерации отчёта
type Data struct {
	RunID       string
	InputPath   string
	TargetFlow  int64
	Cached      bool
	GeneratedAt time.Time

	Network      *domain.Network
	Result       *search.Result
	Verification *maxflow.Verification

	Options Options
}

// Generator интерфейс генератора отчётов
type Generator interface {
	Generate(ctx context.Context, data *Data) ([]byte, error)
	Format() string
	// Binary сообщает, что вывод нельзя печатать в терминал
	Binary() bool
}

var registry = map[string]func() Generator{
	FormatJSON:     func() Generator { return NewJSONGenerator() },
	FormatMarkdown: func() Generator { return NewMarkdownGenerator() },
	FormatCSV:      func() Generator { return NewCSVGenerator() },
	FormatExcel:    func() Generator { return NewExcelGenerator() },
	FormatPDF:      func() Generator { return NewPDFGenerator() },
}

// Formats возвращает поддерживаемые форматы
func Formats() []string {
	out := make([]string, 0, len(registry))
	for f := range registry {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// New возвращает генератор для формата. Пустая строка означает JSON,
// "md" и "excel" принимаются как синонимы.
func New(format string) (Generator, error) {
	switch f := strings.ToLower(format); f {
	case "":
		format = FormatJSON
	case "md":
		format = FormatMarkdown
	case "excel":
		format = FormatExcel
	default:
		format = f
	}
	build, ok := registry[format]
	if !ok {
		return nil, apperror.New(apperror.CodeInvalidArgument, fmt.Sprintf("unknown report format %q", format)).
			WithField("report.format").
			WithDetails("available", Formats())
	}
	return build(), nil
}

// BaseGenerator базовые утилиты для генераторов
type BaseGenerator struct{}

// GetTitle возвращает заголовок отчёта
func (b *BaseGenerator) GetTitle(data *Data) string {
	if data.Options.Title != "" {
		return data.Options.Title
	}
	return "Network Blocking Report"
}

// GetAuthor возвращает автора отчёта
func (b *BaseGenerator) GetAuthor(data *Data) string {
	if data.Options.Author != "" {
		return data.Options.Author
	}
	return "netblock"
}

// GetDescription возвращает описание
func (b *BaseGenerator) GetDescription(data *Data) string {
	return data.Options.Description
}

// ShouldIncludeTrace проверяет нужно ли включать трассу поиска
func (b *BaseGenerator) ShouldIncludeTrace(data *Data) bool {
	return data.Options.IncludeTrace && data.Result != nil && len(data.Result.Trace) > 0
}

// FormatDuration форматирует длительность
func (b *BaseGenerator) FormatDuration(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)
	if ms < 1000 {
		return fmt.Sprintf("%.2f ms", ms)
	}
	return fmt.Sprintf("%.2f s", ms/1000)
}

// FormatTimestamp форматирует время
func (b *BaseGenerator) FormatTimestamp(data *Data) string {
	t := data.GeneratedAt
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("2006-01-02 15:04:05")
}

// blockedRow строка таблицы заблокированных связей
type blockedRow struct {
	Key      domain.LinkKey
	ID       int64
	Capacity int64
	Cost     int64
}

// blockedRows собирает заблокированные связи с их атрибутами из сети
func blockedRows(data *Data) []blockedRow {
	if data.Result == nil {
		return nil
	}
	rows := make([]blockedRow, 0, len(data.Result.Blocked))
	for _, k := range data.Result.Blocked {
		row := blockedRow{Key: k}
		if data.Network != nil {
			if l, ok := data.Network.Link(k); ok {
				row.ID, row.Capacity, row.Cost = l.ID, l.Capacity, l.Cost
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// summary ключевые показатели отчёта в порядке вывода
func summary(data *Data) [][2]string {
	var kv [][2]string
	if data.RunID != "" {
		kv = append(kv, [2]string{"Run ID", data.RunID})
	}
	if data.InputPath != "" {
		kv = append(kv, [2]string{"Input", data.InputPath})
	}
	if data.Network != nil {
		req := data.Network.Request()
		kv = append(kv,
			[2]string{"Nodes", fmt.Sprintf("%d", data.Network.NodeCount())},
			[2]string{"Links", fmt.Sprintf("%d", data.Network.LinkCount())},
			[2]string{"Source", fmt.Sprintf("%d", req.Source)},
			[2]string{"Destination", fmt.Sprintf("%d", req.Destination)},
		)
	}
	kv = append(kv, [2]string{"Target Flow", fmt.Sprintf("%d", data.TargetFlow)})
	if r := data.Result; r != nil {
		kv = append(kv,
			[2]string{"Minimum Cost", fmt.Sprintf("%d", r.Cost)},
			[2]string{"Blocked Links", fmt.Sprintf("%d", len(r.Blocked))},
			[2]string{"Oracle", r.Oracle},
			[2]string{"Iterations", fmt.Sprintf("%d", r.Stats.Iterations)},
		)
	}
	if v := data.Verification; v != nil {
		kv = append(kv,
			[2]string{"Original Max Flow", fmt.Sprintf("%d", v.OriginalMaxFlow)},
			[2]string{"Residual Max Flow", fmt.Sprintf("%d", v.ResidualMaxFlow)},
		)
	}
	if data.Cached {
		kv = append(kv, [2]string{"Cached", "yes"})
	}
	return kv
}

// ColName преобразует индекс колонки в буквенное обозначение (0 -> A, 25 -> Z, 26 -> AA)
func ColName(index int) string {
	result := ""
	for {
		result = string(rune('A'+index%26)) + result
		index = index/26 - 1
		if index < 0 {
			break
		}
	}
	return result
}

// Cell возвращает адрес ячейки
func Cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// CellByIndex возвращает адрес ячейки по индексам
func CellByIndex(colIndex, rowIndex int) string {
	return fmt.Sprintf("%s%d", ColName(colIndex), rowIndex)
}
