package cnf

import (
	"fmt"

	"netblock/pkg/apperror"
)

// =============================================================================
// Formula
// =============================================================================

// Formula is an ordered conjunction of clauses.
//
// Clauses added before Seal form the fixed prefix, which stays unchanged for
// the rest of the solve. Clauses added after Seal are iteration scoped and
// are dropped by Rollback.
type Formula struct {
	pool    *Pool
	clauses [][]int
	fixed   int
	sealed  bool
	lits    int
}

// NewFormula returns an empty formula whose literals are checked against pool.
func NewFormula(pool *Pool) *Formula {
	return &Formula{pool: pool}
}

// Add appends one clause. Every literal must reference an allocated variable.
// The clause is copied.
func (f *Formula) Add(lits ...int) error {
	if len(lits) == 0 {
		return apperror.Inconsistent("empty clause").
			WithDetails("clause_index", len(f.clauses))
	}
	for _, lit := range lits {
		v := lit
		if v < 0 {
			v = -v
		}
		if !f.pool.Allocated(v) {
			return apperror.Inconsistent(fmt.Sprintf("literal %d references unallocated variable", lit)).
				WithDetails("literal", lit).
				WithDetails("pool_max", f.pool.Max()).
				WithDetails("clause_index", len(f.clauses))
		}
	}
	c := make([]int, len(lits))
	copy(c, lits)
	f.clauses = append(f.clauses, c)
	f.lits += len(c)
	return nil
}

// AddAll appends clauses in order. On error the clauses added by this call
// are removed again.
func (f *Formula) AddAll(clauses [][]int) error {
	start, lits := len(f.clauses), f.lits
	for _, c := range clauses {
		if err := f.Add(c...); err != nil {
			f.clauses = f.clauses[:start]
			f.lits = lits
			return err
		}
	}
	return nil
}

// Seal marks the current clauses as the fixed prefix.
func (f *Formula) Seal() error {
	if f.sealed {
		return apperror.Inconsistent("formula sealed twice").
			WithDetails("fixed", f.fixed)
	}
	f.fixed = len(f.clauses)
	f.sealed = true
	return nil
}

// Sealed reports whether Seal has been called.
func (f *Formula) Sealed() bool {
	return f.sealed
}

// Rollback discards every clause added after Seal.
func (f *Formula) Rollback() error {
	if !f.sealed {
		return apperror.Inconsistent("rollback before the fixed prefix was sealed")
	}
	return f.RollbackTo(f.fixed)
}

// RollbackTo truncates the formula to n clauses. Truncating into the
// fixed prefix is an error.
func (f *Formula) RollbackTo(n int) error {
	if n < f.fixed {
		return apperror.Inconsistent("rollback past the fixed prefix").
			WithDetails("target", n).
			WithDetails("fixed", f.fixed)
	}
	if n > len(f.clauses) {
		return apperror.Inconsistent("rollback beyond the end of the formula").
			WithDetails("target", n).
			WithDetails("len", len(f.clauses))
	}
	for _, c := range f.clauses[n:] {
		f.lits -= len(c)
	}
	clear(f.clauses[n:])
	f.clauses = f.clauses[:n]
	return nil
}

// Len is the number of clauses.
func (f *Formula) Len() int {
	return len(f.clauses)
}

// FixedLen is the size of the fixed prefix (0 before Seal).
func (f *Formula) FixedLen() int {
	return f.fixed
}

// Literals is the total number of literal occurrences.
func (f *Formula) Literals() int {
	return f.lits
}

// Clauses returns the clause list. The outer slice is a copy; the clauses
// themselves are shared and must not be modified.
func (f *Formula) Clauses() [][]int {
	out := make([][]int, len(f.clauses))
	copy(out, f.clauses)
	return out
}

// =============================================================================
// Model checking
// =============================================================================

// Assignment gives the truth value of a variable.
type Assignment interface {
	Value(v int) bool
}

// Check verifies that every clause has a true literal under a.
// It returns the index of the first falsified clause, or -1.
func Check(clauses [][]int, a Assignment) int {
	for i, c := range clauses {
		sat := false
		for _, lit := range c {
			if lit > 0 && a.Value(lit) || lit < 0 && !a.Value(-lit) {
				sat = true
				break
			}
		}
		if !sat {
			return i
		}
	}
	return -1
}
