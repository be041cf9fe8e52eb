// Package oracle answers satisfiability queries for the blocking search.
//
// This package contains:
//   - Oracle: the single-shot SAT interface used by the search driver
//   - Gophersat and Gini: concrete backends
//   - Checked: a decorator that validates every SAT model against the clauses
//
// # Lifetime
//
// An Oracle answers exactly one query. The search driver builds a fresh
// instance for every budget through a Factory, so no learnt state leaks
// between iterations.
//
// # Timeouts
//
// A backend with a positive Timeout gives up after that wall-clock duration.
// Running out of time, a cancelled context and an undecided solver all yield
// Unknown together with an error wrapping ErrInconclusive. None of them is
// ever reported as Unsat.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"netblock/pkg/apperror"
)

// ErrInconclusive is wrapped by every error that means "no answer".
var ErrInconclusive = errors.New("oracle inconclusive")

// =============================================================================
// Verdict
// =============================================================================

// Verdict is the outcome of one query.
type Verdict int

const (
	Unknown Verdict = iota
	Sat
	Unsat
)

func (v Verdict) String() string {
	switch v {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// MarshalText encodes the verdict by name.
func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// ParseVerdict is the inverse of String. Anything unrecognised is Unknown.
func ParseVerdict(s string) Verdict {
	switch s {
	case "sat":
		return Sat
	case "unsat":
		return Unsat
	default:
		return Unknown
	}
}

// UnmarshalText decodes a verdict written by MarshalText.
func (v *Verdict) UnmarshalText(b []byte) error {
	*v = ParseVerdict(string(b))
	return nil
}

// =============================================================================
// Model
// =============================================================================

// Model is a total assignment. Index i holds the value of variable i+1.
// Variables beyond the end read as false.
type Model []bool

// Value returns the truth value of variable v.
func (m Model) Value(v int) bool {
	if v < 1 || v > len(m) {
		return false
	}
	return m[v-1]
}

// Len is the number of variables the model covers.
func (m Model) Len() int {
	return len(m)
}

// =============================================================================
// Oracle
// =============================================================================

// Oracle decides one CNF formula.
type Oracle interface {
	// Solve decides clauses. Literals are non-zero signed variable ids.
	Solve(ctx context.Context, clauses [][]int) (Verdict, error)

	// Model returns the satisfying assignment found by the last Sat answer,
	// or nil.
	Model() Model

	// Name identifies the backend.
	Name() string
}

// Factory builds a fresh Oracle.
type Factory func() Oracle

// Names lists the available backends.
func Names() []string {
	return []string{GophersatName, GiniName}
}

// New returns a factory for the named backend. Every oracle it builds is
// wrapped in Checked.
func New(name string, timeout time.Duration) (Factory, error) {
	if timeout < 0 {
		return nil, apperror.New(apperror.CodeInvalidArgument, "oracle timeout must be non-negative").
			WithDetails("timeout", timeout.String())
	}
	switch name {
	case GophersatName, "":
		return func() Oracle { return Checked(&Gophersat{Timeout: timeout}) }, nil
	case GiniName:
		return func() Oracle { return Checked(&Gini{Timeout: timeout}) }, nil
	default:
		return nil, apperror.New(apperror.CodeInvalidArgument, fmt.Sprintf("unknown oracle %q", name)).
			WithField("oracle").
			WithDetails("available", Names())
	}
}

// =============================================================================
// Helpers
// =============================================================================

// inspect rejects literal 0 and reports whether an empty clause is present
// together with the highest variable referenced.
func inspect(clauses [][]int) (empty bool, maxVar int, err error) {
	for i, c := range clauses {
		if len(c) == 0 {
			empty = true
		}
		for _, lit := range c {
			if lit == 0 {
				return false, 0, apperror.Inconsistent("literal 0 in clause").
					WithDetails("clause_index", i)
			}
			if lit < 0 {
				lit = -lit
			}
			maxVar = max(maxVar, lit)
		}
	}
	return empty, maxVar, nil
}

// inconclusive wraps the reason a query produced no answer.
func inconclusive(backend string, reason error) error {
	if reason == nil {
		return fmt.Errorf("%s: %w", backend, ErrInconclusive)
	}
	return fmt.Errorf("%s: %w: %w", backend, ErrInconclusive, reason)
}

// withTimeout applies timeout when positive.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
