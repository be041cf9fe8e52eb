// services/blocker-svc/internal/report/json.go
package report

import (
	"context"
	"encoding/json"
)

// JSONGenerator генератор JSON отчётов
type JSONGenerator struct {
	BaseGenerator
}

// NewJSONGenerator создаёт новый генератор
func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{}
}

// Format возвращает формат генератора
func (g *JSONGenerator) Format() string { return FormatJSON }

// Binary возвращает false: JSON печатается в stdout
func (g *JSONGenerator) Binary() bool { return false }

// JSONReport структура JSON отчёта
type JSONReport struct {
	Metadata     JSONMetadata      `json:"metadata"`
	Network      *JSONNetwork      `json:"network,omitempty"`
	Solution     *JSONSolution     `json:"solution,omitempty"`
	Verification *JSONVerification `json:"verification,omitempty"`
	Trace        []JSONIteration   `json:"trace,omitempty"`
}

type JSONMetadata struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description,omitempty"`
	GeneratedAt string `json:"generatedAt"`
	RunID       string `json:"runId,omitempty"`
	InputPath   string `json:"inputPath,omitempty"`
	Cached      bool   `json:"cached"`
}

type JSONNetwork struct {
	NodeCount     int   `json:"nodeCount"`
	LinkCount     int   `json:"linkCount"`
	SourceID      int64 `json:"sourceId"`
	DestinationID int64 `json:"destinationId"`
	TotalCost     int64 `json:"totalCost"`
	TotalCapacity int64 `json:"totalCapacity"`
}

type JSONSolution struct {
	TargetFlow    int64             `json:"targetFlow"`
	MinimumCost   int64             `json:"minimumCost"`
	Oracle        string            `json:"oracle"`
	Iterations    int               `json:"iterations"`
	FixedClauses  int               `json:"fixedClauses"`
	MaxVariables  int               `json:"maxVariables"`
	OracleTimeMs  float64           `json:"oracleTimeMs"`
	TotalTimeMs   float64           `json:"totalTimeMs"`
	BlockedLinks  []JSONBlockedLink `json:"blockedLinks"`
	ModelVerified bool              `json:"modelVerified"`
}

type JSONBlockedLink struct {
	Link     string `json:"link"`
	Head     int64  `json:"head"`
	Tail     int64  `json:"tail"`
	LinkID   int64  `json:"linkId,omitempty"`
	Capacity int64  `json:"capacity"`
	Cost     int64  `json:"cost"`
}

type JSONVerification struct {
	OriginalMaxFlow int64    `json:"originalMaxFlow"`
	ResidualMaxFlow int64    `json:"residualMaxFlow"`
	OriginalMinCut  []string `json:"originalMinCut"`
	Passed          bool     `json:"passed"`
}

type JSONIteration struct {
	Index      int     `json:"index"`
	Budget     int64   `json:"budget"`
	Lo         int64   `json:"lo"`
	Hi         int64   `json:"hi"`
	Verdict    string  `json:"verdict"`
	Clauses    int     `json:"clauses"`
	Variables  int     `json:"variables"`
	DurationMs float64 `json:"durationMs"`
	Confirm    bool    `json:"confirm,omitempty"`
}

// Generate генерирует JSON отчёт
func (g *JSONGenerator) Generate(ctx context.Context, data *Data) ([]byte, error) {
	return json.MarshalIndent(g.build(data), "", "  ")
}

func (g *JSONGenerator) build(data *Data) *JSONReport {
	rep := &JSONReport{
		Metadata: JSONMetadata{
			Title:       g.GetTitle(data),
			Author:      g.GetAuthor(data),
			Description: g.GetDescription(data),
			GeneratedAt: g.FormatTimestamp(data),
			RunID:       data.RunID,
			InputPath:   data.InputPath,
			Cached:      data.Cached,
		},
	}

	if n := data.Network; n != nil {
		req := n.Request()
		rep.Network = &JSONNetwork{
			NodeCount:     n.NodeCount(),
			LinkCount:     n.LinkCount(),
			SourceID:      req.Source,
			DestinationID: req.Destination,
			TotalCost:     n.TotalCost(),
			TotalCapacity: n.TotalCapacity(),
		}
	}

	if r := data.Result; r != nil {
		sol := &JSONSolution{
			TargetFlow:    data.TargetFlow,
			MinimumCost:   r.Cost,
			Oracle:        r.Oracle,
			Iterations:    r.Stats.Iterations,
			FixedClauses:  r.Stats.FixedClauses,
			MaxVariables:  r.Stats.MaxVariables,
			OracleTimeMs:  millis(r.Stats.OracleTime.Nanoseconds()),
			TotalTimeMs:   millis(r.Stats.TotalTime.Nanoseconds()),
			BlockedLinks:  []JSONBlockedLink{},
			ModelVerified: r.Stats.ModelVerified,
		}
		for _, row := range blockedRows(data) {
			sol.BlockedLinks = append(sol.BlockedLinks, JSONBlockedLink{
				Link:     row.Key.String(),
				Head:     row.Key.Head,
				Tail:     row.Key.Tail,
				LinkID:   row.ID,
				Capacity: row.Capacity,
				Cost:     row.Cost,
			})
		}
		rep.Solution = sol

		if g.ShouldIncludeTrace(data) {
			for _, it := range r.Trace {
				rep.Trace = append(rep.Trace, JSONIteration{
					Index:      it.Index,
					Budget:     it.Budget,
					Lo:         it.Lo,
					Hi:         it.Hi,
					Verdict:    it.Verdict.String(),
					Clauses:    it.Clauses,
					Variables:  it.Variables,
					DurationMs: millis(it.Duration.Nanoseconds()),
					Confirm:    it.Confirm,
				})
			}
		}
	}

	if v := data.Verification; v != nil {
		jv := &JSONVerification{
			OriginalMaxFlow: v.OriginalMaxFlow,
			ResidualMaxFlow: v.ResidualMaxFlow,
			OriginalMinCut:  []string{},
			Passed:          v.ResidualMaxFlow <= v.TargetFlow,
		}
		for _, k := range v.OriginalCut {
			jv.OriginalMinCut = append(jv.OriginalMinCut, k.String())
		}
		rep.Verification = jv
	}

	return rep
}

func millis(ns int64) float64 {
	return float64(ns) / 1e6
}
