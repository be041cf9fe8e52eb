// Package encoding builds the clauses of the network-blocking reduction.
//
// This package contains:
//   - BuildCut: the fixed cut clauses over block, mc, side and dual variables
//   - Constrainer: the pseudo-Boolean capacity and budget constraints
//
// # Variables
//
//	block(l)  link l is removed from the network
//	mc(l)     link l is charged to the cut
//	side(n)   node n lies on the source side of the cut
//	dual(n)   negation of side(n), allocated for link tails only
//
// # Cut clause
//
// For every link (h, t) the builder emits
//
//	mc(h,t) ∨ block(h,t) ∨ ¬side(h) ∨ ¬dual(t)
//
// so a link that leaves the source side and enters the sink side is either
// blocked or paid for by the cut. Together with Σ cap·mc ≤ target_flow this
// bounds the capacity of an s-t cut in the remaining network, and hence its
// maximum flow.
package encoding

import (
	"slices"

	"netblock/pkg/apperror"
	"netblock/pkg/domain"
	"netblock/services/blocker-svc/internal/cnf"
)

// =============================================================================
// Cut Variables
// =============================================================================

// CutVars maps the network onto the variables of one solve.
type CutVars struct {
	Block map[domain.LinkKey]int
	MC    map[domain.LinkKey]int
	Side  map[int64]int
	Dual  map[int64]int

	// order is the link input order.
	order []domain.LinkKey
}

// Links returns the link keys in input order.
func (c *CutVars) Links() []domain.LinkKey {
	out := make([]domain.LinkKey, len(c.order))
	copy(out, c.order)
	return out
}

// BlockedLinks returns, in input order, the links whose block variable is
// true under a.
func (c *CutVars) BlockedLinks(a cnf.Assignment) []domain.LinkKey {
	var out []domain.LinkKey
	for _, k := range c.order {
		if a.Value(c.Block[k]) {
			out = append(out, k)
		}
	}
	return out
}

// RequiredBlocks returns the blocked links of a, in input order, that the
// cut under a still needs to keep its unblocked capacity within targetFlow.
//
// A blocked link that does not cross the cut is dropped. A crossing one is
// dropped while its capacity still fits under targetFlow next to the
// unblocked crossing links. The result never costs more than
// BlockedLinks(a), and the cut stays a witness that the remaining maximum
// flow is at most targetFlow.
func (c *CutVars) RequiredBlocks(net *domain.Network, a cnf.Assignment, targetFlow int64) []domain.LinkKey {
	source := make(map[int64]bool, len(c.Side))
	for _, n := range c.SourceSide(a) {
		source[n] = true
	}
	crosses := func(k domain.LinkKey) bool { return source[k.Head] && !source[k.Tail] }

	var load int64
	for _, k := range c.order {
		if crosses(k) && !a.Value(c.Block[k]) {
			l, _ := net.Link(k)
			load += l.Capacity
		}
	}

	var out []domain.LinkKey
	for _, k := range c.order {
		if !a.Value(c.Block[k]) || !crosses(k) {
			continue
		}
		l, _ := net.Link(k)
		if l.Capacity <= targetFlow-load {
			load += l.Capacity
			continue
		}
		out = append(out, k)
	}
	return out
}

// SourceSide returns the nodes assigned to the source side under a, sorted.
func (c *CutVars) SourceSide(a cnf.Assignment) []int64 {
	var out []int64
	for n, v := range c.Side {
		if a.Value(v) {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}

// =============================================================================
// Builder
// =============================================================================

// BuildCut allocates the cut variables from pool and appends the fixed cut
// clauses to f.
//
// Allocation order is part of the contract: one block per link, then one mc
// per link, then one side per node, then dual per distinct link tail in
// order of first appearance.
func BuildCut(net *domain.Network, pool *cnf.Pool, f *cnf.Formula) (*CutVars, error) {
	if f.Sealed() {
		return nil, apperror.Inconsistent("cut clauses added after the fixed prefix was sealed")
	}

	links := net.Links()
	nodes := net.Nodes()
	req := net.Request()

	cv := &CutVars{
		Block: make(map[domain.LinkKey]int, len(links)),
		MC:    make(map[domain.LinkKey]int, len(links)),
		Side:  make(map[int64]int, len(nodes)),
		Dual:  make(map[int64]int),
		order: make([]domain.LinkKey, len(links)),
	}

	firstBlock, err := pool.Allocate(len(links))
	if err != nil {
		return nil, err
	}
	firstMC, err := pool.Allocate(len(links))
	if err != nil {
		return nil, err
	}
	for i, l := range links {
		k := l.Key()
		cv.order[i] = k
		cv.Block[k] = firstBlock + i
		cv.MC[k] = firstMC + i
	}

	firstSide, err := pool.Allocate(len(nodes))
	if err != nil {
		return nil, err
	}
	for i, n := range nodes {
		cv.Side[n] = firstSide + i
	}

	if err := f.Add(cv.Side[req.Source]); err != nil {
		return nil, err
	}
	if err := f.Add(-cv.Side[req.Destination]); err != nil {
		return nil, err
	}

	for _, k := range cv.order {
		if _, ok := cv.Dual[k.Tail]; ok {
			continue
		}
		d, err := pool.Allocate(1)
		if err != nil {
			return nil, err
		}
		cv.Dual[k.Tail] = d
		s := cv.Side[k.Tail]
		if err := f.AddAll([][]int{{s, d}, {-s, -d}}); err != nil {
			return nil, err
		}
	}

	for _, k := range cv.order {
		if err := f.Add(cv.MC[k], cv.Block[k], -cv.Side[k.Head], -cv.Dual[k.Tail]); err != nil {
			return nil, err
		}
	}

	return cv, nil
}
