package oracle

import (
	"context"
	"fmt"

	"netblock/pkg/apperror"
	"netblock/services/blocker-svc/internal/cnf"
)

// checked verifies models before handing them out.
type checked struct {
	inner Oracle
}

// Checked wraps o so that a Sat answer whose model falsifies one of the
// submitted clauses becomes an ENCODING_CONSISTENCY error.
func Checked(o Oracle) Oracle {
	if _, ok := o.(*checked); ok {
		return o
	}
	return &checked{inner: o}
}

func (c *checked) Solve(ctx context.Context, clauses [][]int) (Verdict, error) {
	v, err := c.inner.Solve(ctx, clauses)
	if err != nil || v != Sat {
		return v, err
	}
	m := c.inner.Model()
	if i := cnf.Check(clauses, m); i >= 0 {
		return Unknown, apperror.Inconsistent(
			fmt.Sprintf("%s returned an assignment that falsifies clause %d", c.inner.Name(), i)).
			WithDetails("clause_index", i).
			WithDetails("clause", clauses[i]).
			WithDetails("oracle", c.inner.Name())
	}
	return v, nil
}

func (c *checked) Model() Model {
	return c.inner.Model()
}

func (c *checked) Name() string {
	return c.inner.Name()
}
