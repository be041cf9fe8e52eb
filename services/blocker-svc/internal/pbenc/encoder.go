// Package pbenc translates linear pseudo-Boolean constraints into CNF.
//
// A constraint Σ wᵢ·lᵢ ≤ K (or ≥ K) over literals lᵢ is turned into clauses
// that are satisfiable, for a given assignment of the lᵢ, exactly when the
// inequality holds. Fresh auxiliary variables are numbered from a caller
// supplied first id; the encoder reports the highest id it used so the
// caller can re-synchronise its variable pool.
package pbenc

import (
	"fmt"
	"math"
	"sort"

	"netblock/pkg/apperror"
)

// Comparator is the relation of a constraint.
type Comparator int

const (
	// AtMost is Σ wᵢ·lᵢ ≤ K.
	AtMost Comparator = iota
	// AtLeast is Σ wᵢ·lᵢ ≥ K.
	AtLeast
)

// String returns the operator symbol.
func (c Comparator) String() string {
	switch c {
	case AtMost:
		return "<="
	case AtLeast:
		return ">="
	default:
		return fmt.Sprintf("Comparator(%d)", int(c))
	}
}

// Term is one weighted literal. Lit is a signed variable id.
type Term struct {
	Lit    int
	Weight int64
}

// Encoder turns one constraint into clauses.
//
// Encode must only introduce variables ≥ firstAux. maxAux is the highest
// auxiliary id used, or firstAux-1 if none was needed.
type Encoder interface {
	Encode(terms []Term, cmp Comparator, bound int64, firstAux int) (clauses [][]int, maxAux int, err error)
}

// normalize validates the terms and rewrites the constraint into the
// AtMost form over distinct variables with positive weights. Opposite
// literals of one variable are folded using l + ¬l = 1.
func normalize(terms []Term, cmp Comparator, bound int64) ([]Term, int64, error) {
	type acc struct{ pos, neg int64 }
	byVar := make(map[int]*acc, len(terms))
	order := make([]int, 0, len(terms))

	var total int64
	for _, t := range terms {
		if t.Lit == 0 {
			return nil, 0, apperror.New(apperror.CodeInvalidArgument, "term with literal 0")
		}
		if t.Weight < 0 {
			return nil, 0, apperror.New(apperror.CodeInvalidArgument,
				fmt.Sprintf("term %d has negative weight %d", t.Lit, t.Weight)).
				WithDetails("literal", t.Lit)
		}
		if t.Weight == 0 {
			continue
		}
		if total > math.MaxInt64-t.Weight {
			return nil, 0, apperror.New(apperror.CodeInvalidArgument, "sum of weights overflows int64")
		}
		total += t.Weight

		v := t.Lit
		if v < 0 {
			v = -v
		}
		a, ok := byVar[v]
		if !ok {
			a = &acc{}
			byVar[v] = a
			order = append(order, v)
		}
		if t.Lit > 0 {
			a.pos += t.Weight
		} else {
			a.neg += t.Weight
		}
	}

	switch cmp {
	case AtMost:
	case AtLeast:
		// Σ w·l ≥ K  ⇔  Σ w·¬l ≤ Σw − K
		for _, a := range byVar {
			a.pos, a.neg = a.neg, a.pos
		}
		bound = satSub(total, bound)
	default:
		return nil, 0, apperror.New(apperror.CodeInvalidArgument, fmt.Sprintf("unknown comparator %d", int(cmp)))
	}

	out := make([]Term, 0, len(order))
	for _, v := range order {
		a := byVar[v]
		// p·x + n·¬x = min(p,n) + |p−n|·(x or ¬x)
		common := min(a.pos, a.neg)
		bound = satSub(bound, common)
		switch {
		case a.pos > a.neg:
			out = append(out, Term{Lit: v, Weight: a.pos - a.neg})
		case a.neg > a.pos:
			out = append(out, Term{Lit: -v, Weight: a.neg - a.pos})
		}
	}

	// Heaviest first keeps the diagram small; ties by literal for determinism.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Lit < out[j].Lit
	})
	return out, bound, nil
}

// satAdd adds with saturation at the int64 range.
func satAdd(a, b int64) int64 {
	switch {
	case b > 0 && a > math.MaxInt64-b:
		return math.MaxInt64
	case b < 0 && a < math.MinInt64-b:
		return math.MinInt64
	default:
		return a + b
	}
}

func satSub(a, b int64) int64 {
	if b == math.MinInt64 {
		return satAdd(satAdd(a, math.MaxInt64), 1)
	}
	return satAdd(a, -b)
}

func errTooLarge(limit, terms int) error {
	return apperror.New(apperror.CodeInvalidArgument,
		fmt.Sprintf("decision diagram exceeds %d nodes", limit)).
		WithDetails("max_nodes", limit).
		WithDetails("terms", terms)
}
