// Package cnf holds the clause-level building blocks of the blocking reduction.
//
// This package contains:
//   - Pool: the single allocator of Boolean variable ids for one solve
//   - Formula: an ordered clause list with a sealed fixed prefix and a
//     discardable per-iteration suffix
//   - Check: a model checker used to validate oracle answers
//
// # Literals
//
// A variable is a positive int handed out by a Pool, starting at 1.
// A literal is +v or -v. Zero is never a variable and never a literal.
//
// # Thread Safety
//
// Pool and Formula are NOT thread-safe. Each solve owns its own instances.
package cnf

import (
	"fmt"
	"math"

	"netblock/pkg/apperror"
)

// MaxVar is the largest id a Pool hands out. Oracle backends index
// variables with 32-bit integers.
const MaxVar = math.MaxInt32 - 1

// =============================================================================
// Variable Pool
// =============================================================================

// Pool is a monotonic allocator of variable ids.
//
// Ids are never reused. An external encoder that mints its own auxiliary
// ids reports the highest one it used, and Sync moves the high-water mark
// past it.
type Pool struct {
	next int
}

// NewPool returns a pool whose first id is 1.
func NewPool() *Pool {
	return &Pool{next: 1}
}

// Allocate reserves n contiguous fresh ids and returns the first one.
// With n == 0 it returns Next() and reserves nothing.
func (p *Pool) Allocate(n int) (int, error) {
	if n < 0 {
		return 0, apperror.Inconsistent(fmt.Sprintf("cannot allocate %d variables", n)).
			WithDetails("requested", n)
	}
	if p.next > MaxVar-n+1 {
		return 0, apperror.Inconsistent("variable pool exhausted").
			WithDetails("requested", n).
			WithDetails("next", p.next)
	}
	first := p.next
	p.next += n
	return first, nil
}

// Next is the id the next Allocate call will start at.
func (p *Pool) Next() int {
	return p.next
}

// Max is the highest id handed out so far, or 0 if none.
func (p *Pool) Max() int {
	return p.next - 1
}

// Sync re-synchronises the pool after an external encoder consumed ids
// up to reportedMax: next becomes max(next, reportedMax+1).
func (p *Pool) Sync(reportedMax int) error {
	if reportedMax > MaxVar {
		return apperror.Inconsistent("encoder reported an id beyond the pool range").
			WithDetails("reported_max", reportedMax)
	}
	if reportedMax+1 > p.next {
		p.next = reportedMax + 1
	}
	return nil
}

// Allocated reports whether v is an id this pool has handed out.
func (p *Pool) Allocated(v int) bool {
	return v >= 1 && v < p.next
}
