package pbenc

import (
	"math"
	"sort"
)

// BDD encodes constraints through a reduced ordered binary decision diagram.
//
// Node (i, K) stands for "Σ_{j≥i} wⱼ·lⱼ ≤ K". Every node also carries the
// interval [lo, hi] of bounds K for which it denotes the same function, so
// a later request for (i, K') with K' in that interval reuses the node
// instead of building a new one.
//
// Only the implication node → ite(l, high, low) is emitted. The root is
// asserted, which is enough for an AtMost constraint because the high child
// always implies the low one.
type BDD struct {
	// MaxNodes bounds the number of auxiliary variables one constraint may
	// create. Zero means unlimited.
	MaxNodes int
}

// NewBDD returns an encoder without a node limit.
func NewBDD() *BDD {
	return &BDD{}
}

// node kinds
const (
	kindFalse = iota - 1
	kindVar
	kindTrue
)

type bddNode struct {
	kind int
	v    int
}

var (
	falseNode = bddNode{kind: kindFalse}
	trueNode  = bddNode{kind: kindTrue}
)

type interval struct {
	lo, hi int64
	n      bddNode
}

type bddBuilder struct {
	terms    []Term
	suffix   []int64 // suffix[i] = Σ_{j≥i} w_j
	levels   [][]interval
	next     int
	maxNodes int
	created  int
	clauses  [][]int
}

// Encode implements Encoder.
func (b *BDD) Encode(terms []Term, cmp Comparator, bound int64, firstAux int) ([][]int, int, error) {
	norm, k, err := normalize(terms, cmp, bound)
	if err != nil {
		return nil, 0, err
	}

	bb := &bddBuilder{
		terms:    norm,
		suffix:   make([]int64, len(norm)+1),
		levels:   make([][]interval, len(norm)),
		next:     firstAux,
		maxNodes: b.MaxNodes,
	}
	for i := len(norm) - 1; i >= 0; i-- {
		bb.suffix[i] = bb.suffix[i+1] + norm[i].Weight
	}

	root, err := bb.build(0, k)
	if err != nil {
		return nil, 0, err
	}

	switch root.n.kind {
	case kindTrue:
		return nil, firstAux - 1, nil
	case kindFalse:
		a := bb.next
		bb.next++
		return [][]int{{a}, {-a}}, a, nil
	}
	bb.clauses = append(bb.clauses, []int{root.n.v})
	return bb.clauses, bb.next - 1, nil
}

func (bb *bddBuilder) build(i int, k int64) (interval, error) {
	if k < 0 {
		return interval{lo: math.MinInt64, hi: -1, n: falseNode}, nil
	}
	if k >= bb.suffix[i] {
		return interval{lo: bb.suffix[i], hi: math.MaxInt64, n: trueNode}, nil
	}
	if hit, ok := bb.lookup(i, k); ok {
		return hit, nil
	}

	t := bb.terms[i]
	low, err := bb.build(i+1, k)
	if err != nil {
		return interval{}, err
	}
	high, err := bb.build(i+1, k-t.Weight)
	if err != nil {
		return interval{}, err
	}

	res := interval{
		lo: max(low.lo, satAdd(high.lo, t.Weight)),
		hi: min(low.hi, satAdd(high.hi, t.Weight)),
	}
	if low.n == high.n {
		res.n = low.n
	} else {
		if bb.maxNodes > 0 && bb.created >= bb.maxNodes {
			return interval{}, errTooLarge(bb.maxNodes, len(bb.terms))
		}
		v := bb.next
		bb.next++
		bb.created++
		res.n = bddNode{kind: kindVar, v: v}
		bb.emit(v, t.Lit, low.n, high.n)
	}
	bb.insert(i, res)
	return res, nil
}

// emit writes v → (l ? high : low) as (¬v ∨ low) and (¬v ∨ ¬l ∨ high).
func (bb *bddBuilder) emit(v, lit int, low, high bddNode) {
	switch low.kind {
	case kindVar:
		bb.clauses = append(bb.clauses, []int{-v, low.v})
	case kindFalse:
		bb.clauses = append(bb.clauses, []int{-v})
	}
	switch high.kind {
	case kindVar:
		bb.clauses = append(bb.clauses, []int{-v, -lit, high.v})
	case kindFalse:
		bb.clauses = append(bb.clauses, []int{-v, -lit})
	}
}

func (bb *bddBuilder) lookup(i int, k int64) (interval, bool) {
	lv := bb.levels[i]
	j := sort.Search(len(lv), func(j int) bool { return lv[j].hi >= k })
	if j < len(lv) && lv[j].lo <= k {
		return lv[j], true
	}
	return interval{}, false
}

func (bb *bddBuilder) insert(i int, in interval) {
	lv := bb.levels[i]
	j := sort.Search(len(lv), func(j int) bool { return lv[j].lo > in.lo })
	lv = append(lv, interval{})
	copy(lv[j+1:], lv[j:])
	lv[j] = in
	bb.levels[i] = lv
}
