package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/crillab/gophersat/solver"

	"netblock/pkg/apperror"
)

// GophersatName identifies the gophersat backend.
const GophersatName = "gophersat"

// Gophersat is a CDCL backend built on github.com/crillab/gophersat.
//
// The solver has no interruption hook, so the search runs in its own
// goroutine. On timeout the goroutine is abandoned and its result dropped.
type Gophersat struct {
	Timeout time.Duration

	model Model
}

type gophersatAnswer struct {
	status solver.Status
	model  []bool
	err    error
}

// Solve implements Oracle.
func (g *Gophersat) Solve(ctx context.Context, clauses [][]int) (Verdict, error) {
	g.model = nil

	empty, _, err := inspect(clauses)
	if err != nil {
		return Unknown, err
	}
	if empty {
		return Unsat, nil
	}
	if len(clauses) == 0 {
		g.model = Model{}
		return Sat, nil
	}

	ctx, cancel := withTimeout(ctx, g.Timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return Unknown, inconclusive(GophersatName, err)
	}

	done := make(chan gophersatAnswer, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- gophersatAnswer{err: apperror.New(apperror.CodeInternal, fmt.Sprintf("gophersat panicked: %v", r))}
			}
		}()
		s := solver.New(solver.ParseSlice(clauses))
		st := s.Solve()
		ans := gophersatAnswer{status: st}
		if st == solver.Sat {
			ans.model = s.Model()
		}
		done <- ans
	}()

	select {
	case ans := <-done:
		if ans.err != nil {
			return Unknown, ans.err
		}
		switch ans.status {
		case solver.Sat:
			g.model = Model(ans.model)
			return Sat, nil
		case solver.Unsat:
			return Unsat, nil
		default:
			return Unknown, inconclusive(GophersatName, nil)
		}
	case <-ctx.Done():
		return Unknown, inconclusive(GophersatName, ctx.Err())
	}
}

// Model implements Oracle.
func (g *Gophersat) Model() Model {
	return g.model
}

// Name implements Oracle.
func (g *Gophersat) Name() string {
	return GophersatName
}
