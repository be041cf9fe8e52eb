// services/blocker-svc/internal/report/markdown.go
package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"
)

// MarkdownGenerator генератор Markdown отчётов
type MarkdownGenerator struct {
	BaseGenerator
}

// NewMarkdownGenerator создаёт новый генератор
func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

// Format возвращает формат генератора
func (g *MarkdownGenerator) Format() string { return FormatMarkdown }

// Binary возвращает false
func (g *MarkdownGenerator) Binary() bool { return false }

// Generate генерирует Markdown отчёт
func (g *MarkdownGenerator) Generate(ctx context.Context, data *Data) ([]byte, error) {
	var buf bytes.Buffer

	g.writeHeader(&buf, data)
	g.writeSummary(&buf, data)
	g.writeBlocked(&buf, data)
	g.writeVerification(&buf, data)
	if g.ShouldIncludeTrace(data) {
		g.writeTrace(&buf, data)
	}
	g.writeFooter(&buf, data)

	return buf.Bytes(), nil
}

func (g *MarkdownGenerator) writeHeader(buf *bytes.Buffer, data *Data) {
	fmt.Fprintf(buf, "# %s\n\n", g.GetTitle(data))

	buf.WriteString("## Report Information\n\n")
	fmt.Fprintf(buf, "- **Generated:** %s\n", g.FormatTimestamp(data))
	fmt.Fprintf(buf, "- **Author:** %s\n", g.GetAuthor(data))
	if desc := g.GetDescription(data); desc != "" {
		fmt.Fprintf(buf, "- **Description:** %s\n", desc)
	}

	buf.WriteString("\n---\n\n")
}

func (g *MarkdownGenerator) writeSummary(buf *bytes.Buffer, data *Data) {
	buf.WriteString("## Summary\n\n")
	buf.WriteString("| Metric | Value |\n")
	buf.WriteString("|--------|-------|\n")
	for _, kv := range summary(data) {
		fmt.Fprintf(buf, "| %s | %s |\n", kv[0], escapeCell(kv[1]))
	}
	if r := data.Result; r != nil {
		fmt.Fprintf(buf, "| Oracle Time | %s |\n", g.FormatDuration(r.Stats.OracleTime))
		fmt.Fprintf(buf, "| Total Time | %s |\n", g.FormatDuration(r.Stats.TotalTime))
	}
	buf.WriteString("\n")
}

func (g *MarkdownGenerator) writeBlocked(buf *bytes.Buffer, data *Data) {
	if data.Result == nil {
		return
	}
	buf.WriteString("## Blocked Links\n\n")
	rows := blockedRows(data)
	if len(rows) == 0 {
		buf.WriteString("_No link needs to be blocked: the flow is already within the target._\n\n")
		return
	}
	buf.WriteString("| Link | Link ID | Capacity | Cost |\n")
	buf.WriteString("|------|---------|----------|------|\n")
	for _, r := range rows {
		fmt.Fprintf(buf, "| %s | %d | %d | %d |\n", r.Key, r.ID, r.Capacity, r.Cost)
	}
	buf.WriteString("\n")
}

func (g *MarkdownGenerator) writeVerification(buf *bytes.Buffer, data *Data) {
	v := data.Verification
	if v == nil {
		return
	}
	buf.WriteString("## Verification\n\n")
	status := "passed"
	if v.ResidualMaxFlow > v.TargetFlow {
		status = "FAILED"
	}
	fmt.Fprintf(buf, "- **Status:** %s\n", status)
	fmt.Fprintf(buf, "- **Max flow before blocking:** %d\n", v.OriginalMaxFlow)
	fmt.Fprintf(buf, "- **Max flow after blocking:** %d (target %d)\n", v.ResidualMaxFlow, v.TargetFlow)
	if len(v.OriginalCut) > 0 {
		buf.WriteString("- **Minimum cut of the original network:** ")
		for i, k := range v.OriginalCut {
			if i > 0 {
				buf.WriteString(", ")
			}
			fmt.Fprintf(buf, "`%s`", k)
		}
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
}

func (g *MarkdownGenerator) writeTrace(buf *bytes.Buffer, data *Data) {
	buf.WriteString("## Search Trace\n\n")
	buf.WriteString("| # | Budget | Interval | Verdict | Clauses | Variables | Duration |\n")
	buf.WriteString("|---|--------|----------|---------|---------|-----------|----------|\n")
	for _, it := range data.Result.Trace {
		verdict := it.Verdict.String()
		if it.Confirm {
			verdict += " (confirm)"
		}
		fmt.Fprintf(buf, "| %d | %d | [%d, %d] | %s | %d | %d | %s |\n",
			it.Index, it.Budget, it.Lo, it.Hi, verdict, it.Clauses, it.Variables, g.FormatDuration(it.Duration))
	}
	buf.WriteString("\n")
}

func (g *MarkdownGenerator) writeFooter(buf *bytes.Buffer, data *Data) {
	buf.WriteString("---\n\n")
	fmt.Fprintf(buf, "*Generated by netblock | %s*\n", g.FormatTimestamp(data))
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
