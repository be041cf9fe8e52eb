package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"netblock/pkg/apperror"
	"netblock/services/blocker-svc/internal/maxflow"
	"netblock/services/blocker-svc/internal/search"
	"netblock/services/blocker-svc/internal/testutil"
)

func solvedDiamond(t *testing.T) *Data {
	t.Helper()
	net := testutil.Diamond()
	res, err := search.New().Run(context.Background(), net, 0)
	require.NoError(t, err)
	v, err := maxflow.Verify(context.Background(), net, res.Blocked, 0)
	require.NoError(t, err)

	return &Data{
		RunID:        "run-1",
		InputPath:    "testdata/diamond",
		TargetFlow:   0,
		GeneratedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Network:      net,
		Result:       res,
		Verification: v,
		Options:      Options{Title: "Diamond", IncludeTrace: true},
	}
}

func TestNew(t *testing.T) {
	for _, f := range Formats() {
		g, err := New(f)
		require.NoError(t, err)
		assert.Equal(t, f, g.Format())
	}

	g, err := New("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, g.Format())

	g, err = New("MD")
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, g.Format())

	_, err = New("html")
	assert.True(t, apperror.Is(err, apperror.CodeInvalidArgument))
}

func TestFormats(t *testing.T) {
	assert.Equal(t, []string{"csv", "json", "markdown", "pdf", "xlsx"}, Formats())
}

func TestJSONGenerator(t *testing.T) {
	data := solvedDiamond(t)
	out, err := NewJSONGenerator().Generate(context.Background(), data)
	require.NoError(t, err)

	var rep JSONReport
	require.NoError(t, json.Unmarshal(out, &rep))

	assert.Equal(t, "Diamond", rep.Metadata.Title)
	assert.Equal(t, "2026-01-02 03:04:05", rep.Metadata.GeneratedAt)
	assert.Equal(t, 4, rep.Network.LinkCount)
	assert.Equal(t, int64(2), rep.Solution.MinimumCost)
	assert.Len(t, rep.Solution.BlockedLinks, 2)
	assert.True(t, rep.Verification.Passed)
	assert.Equal(t, int64(2), rep.Verification.OriginalMaxFlow)
	require.Len(t, rep.Trace, len(data.Result.Trace))
	assert.Equal(t, "sat", rep.Trace[0].Verdict)
	assert.False(t, NewJSONGenerator().Binary())
}

func TestJSONGenerator_EmptyBlockedIsArray(t *testing.T) {
	data := solvedDiamond(t)
	data.Result.Blocked = nil
	out, err := NewJSONGenerator().Generate(context.Background(), data)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"blockedLinks": []`)
}

func TestJSONGenerator_TraceOmittedByDefault(t *testing.T) {
	data := solvedDiamond(t)
	data.Options.IncludeTrace = false
	out, err := NewJSONGenerator().Generate(context.Background(), data)
	require.NoError(t, err)
	assert.NotContains(t, string(out), `"trace"`)
}

func TestMarkdownGenerator(t *testing.T) {
	data := solvedDiamond(t)
	out, err := NewMarkdownGenerator().Generate(context.Background(), data)
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "# Diamond\n"))
	assert.Contains(t, md, "| Minimum Cost | 2 |")
	assert.Contains(t, md, "## Blocked Links")
	assert.Contains(t, md, "## Verification")
	assert.Contains(t, md, "- **Status:** passed")
	assert.Contains(t, md, "## Search Trace")
	for _, k := range data.Result.Blocked {
		assert.Contains(t, md, "| "+k.String()+" |")
	}
}

func TestMarkdownGenerator_NothingBlocked(t *testing.T) {
	data := solvedDiamond(t)
	data.Result.Blocked = nil
	out, err := NewMarkdownGenerator().Generate(context.Background(), data)
	require.NoError(t, err)
	assert.Contains(t, string(out), "No link needs to be blocked")
}

func TestCSVGenerator(t *testing.T) {
	data := solvedDiamond(t)
	out, err := NewCSVGenerator().Generate(context.Background(), data)
	require.NoError(t, err)

	r := csv.NewReader(bytes.NewReader(out))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	var section string
	blocked := 0
	for _, rec := range records {
		if len(rec) == 1 {
			section = rec[0]
			continue
		}
		if section == "Blocked Links" && rec[0] != "Head" {
			blocked++
		}
	}
	assert.Equal(t, len(data.Result.Blocked), blocked)
	assert.Contains(t, string(out), "Minimum Cost,2")
	assert.Contains(t, string(out), "Search Trace")
}

func TestExcelGenerator(t *testing.T) {
	data := solvedDiamond(t)
	g := NewExcelGenerator()
	out, err := g.Generate(context.Background(), data)
	require.NoError(t, err)
	assert.True(t, g.Binary())

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{SheetSummary, SheetBlocked, SheetTrace, SheetLinks}, f.GetSheetList())

	rows, err := f.GetRows(SheetBlocked)
	require.NoError(t, err)
	assert.Len(t, rows, 1+len(data.Result.Blocked))

	title, err := f.GetCellValue(SheetSummary, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Diamond", title)

	links, err := f.GetRows(SheetLinks)
	require.NoError(t, err)
	marked := 0
	for _, r := range links[1:] {
		if r[5] == "yes" {
			marked++
		}
	}
	assert.Equal(t, len(data.Result.Blocked), marked)
}

func TestPDFGenerator(t *testing.T) {
	data := solvedDiamond(t)
	g := NewPDFGenerator()
	out, err := g.Generate(context.Background(), data)
	require.NoError(t, err)
	assert.True(t, g.Binary())
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), "output is not a PDF")
}

func TestGenerators_WithoutResult(t *testing.T) {
	data := &Data{Network: testutil.Diamond(), TargetFlow: 1}
	for _, f := range Formats() {
		g, err := New(f)
		require.NoError(t, err)
		out, err := g.Generate(context.Background(), data)
		require.NoError(t, err, f)
		assert.NotEmpty(t, out, f)
	}
}

func TestColName(t *testing.T) {
	tests := map[int]string{0: "A", 25: "Z", 26: "AA", 27: "AB", 701: "ZZ", 702: "AAA"}
	for in, want := range tests {
		assert.Equal(t, want, ColName(in))
	}
	assert.Equal(t, "C7", CellByIndex(2, 7))
}
