package encoding

import (
	"fmt"

	"netblock/pkg/apperror"
	"netblock/pkg/domain"
	"netblock/services/blocker-svc/internal/cnf"
	"netblock/services/blocker-svc/internal/pbenc"
)

// =============================================================================
// Budgeted Constraints
// =============================================================================

// Constrainer adds pseudo-Boolean constraints through an external encoder
// while keeping the shared variable pool consistent.
type Constrainer struct {
	enc     pbenc.Encoder
	pool    *cnf.Pool
	formula *cnf.Formula
}

// Encoded describes the clauses one constraint produced.
type Encoded struct {
	Clauses  int
	FirstAux int
	MaxAux   int
}

// Aux is the number of auxiliary variables the constraint introduced.
func (e Encoded) Aux() int {
	return e.MaxAux - e.FirstAux + 1
}

// NewConstrainer binds an encoder to the pool and formula of one solve.
func NewConstrainer(enc pbenc.Encoder, pool *cnf.Pool, f *cnf.Formula) *Constrainer {
	return &Constrainer{enc: enc, pool: pool, formula: f}
}

// AddTargetFlow adds Σ cap·mc ≤ targetFlow. It belongs to the fixed prefix
// and must be called before the formula is sealed.
func (c *Constrainer) AddTargetFlow(cut *CutVars, net *domain.Network, targetFlow int64) (Encoded, error) {
	if c.formula.Sealed() {
		return Encoded{}, apperror.Inconsistent("target flow constraint added after the fixed prefix was sealed")
	}
	terms := make([]pbenc.Term, 0, net.LinkCount())
	for _, l := range net.Links() {
		terms = append(terms, pbenc.Term{Lit: cut.MC[l.Key()], Weight: l.Capacity})
	}
	return c.add("target_flow", terms, targetFlow)
}

// AddBudget adds Σ cost·block ≤ budget to the iteration suffix.
func (c *Constrainer) AddBudget(cut *CutVars, net *domain.Network, budget int64) (Encoded, error) {
	if !c.formula.Sealed() {
		return Encoded{}, apperror.Inconsistent("budget constraint added before the fixed prefix was sealed")
	}
	terms := make([]pbenc.Term, 0, net.LinkCount())
	for _, l := range net.Links() {
		terms = append(terms, pbenc.Term{Lit: cut.Block[l.Key()], Weight: l.Cost})
	}
	return c.add("budget", terms, budget)
}

func (c *Constrainer) add(name string, terms []pbenc.Term, bound int64) (Encoded, error) {
	first := c.pool.Next()
	clauses, maxAux, err := c.enc.Encode(terms, pbenc.AtMost, bound, first)
	if err != nil {
		return Encoded{}, apperror.Wrap(err, apperror.CodeEncodingConsistency,
			fmt.Sprintf("encoding %s constraint", name)).
			WithSeverity(apperror.SeverityCritical).
			WithDetails("bound", bound)
	}
	if maxAux < first-1 {
		return Encoded{}, apperror.Inconsistent(
			fmt.Sprintf("encoder reported max aux %d below first aux %d", maxAux, first)).
			WithDetails("constraint", name)
	}
	if err := c.pool.Sync(maxAux); err != nil {
		return Encoded{}, err
	}
	// The formula rejects any literal past the synced high-water mark.
	if err := c.formula.AddAll(clauses); err != nil {
		return Encoded{}, err
	}
	return Encoded{Clauses: len(clauses), FirstAux: first, MaxAux: maxAux}, nil
}
