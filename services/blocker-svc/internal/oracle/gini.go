package oracle

import (
	"context"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
)

// GiniName identifies the gini backend.
const GiniName = "gini"

const (
	giniPollMin = time.Millisecond
	giniPollMax = 50 * time.Millisecond
)

// Gini is a CDCL backend built on github.com/go-air/gini.
//
// The search runs asynchronously through GoSolve and is polled until it
// finishes, the context ends or Timeout elapses; in the latter two cases
// the solver is stopped.
type Gini struct {
	Timeout time.Duration

	model Model
}

// Solve implements Oracle.
func (g *Gini) Solve(ctx context.Context, clauses [][]int) (Verdict, error) {
	g.model = nil

	empty, maxVar, err := inspect(clauses)
	if err != nil {
		return Unknown, err
	}
	if empty {
		return Unsat, nil
	}

	ctx, cancel := withTimeout(ctx, g.Timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return Unknown, inconclusive(GiniName, err)
	}

	s := gini.New()
	for _, c := range clauses {
		for _, lit := range c {
			s.Add(z.Dimacs2Lit(lit))
		}
		s.Add(z.LitNull)
	}

	result, err := g.wait(ctx, s)
	if err != nil {
		return Unknown, err
	}
	switch result {
	case 1:
		m := make(Model, maxVar)
		for v := 1; v <= maxVar; v++ {
			m[v-1] = s.Value(z.Dimacs2Lit(v))
		}
		g.model = m
		return Sat, nil
	case -1:
		return Unsat, nil
	default:
		return Unknown, inconclusive(GiniName, nil)
	}
}

// wait polls the asynchronous solve with exponential backoff.
func (g *Gini) wait(ctx context.Context, s *gini.Gini) (int, error) {
	run := s.GoSolve()
	pause := giniPollMin
	timer := time.NewTimer(pause)
	defer timer.Stop()

	for {
		if r, done := run.Test(); done {
			return r, nil
		}
		select {
		case <-ctx.Done():
			// Stop reports a verdict if the search finished in the meantime.
			if r := run.Stop(); r != 0 {
				return r, nil
			}
			return 0, inconclusive(GiniName, ctx.Err())
		case <-timer.C:
			pause = min(pause*2, giniPollMax)
			timer.Reset(pause)
		}
	}
}

// Model implements Oracle.
func (g *Gini) Model() Model {
	return g.model
}

// Name implements Oracle.
func (g *Gini) Name() string {
	return GiniName
}
