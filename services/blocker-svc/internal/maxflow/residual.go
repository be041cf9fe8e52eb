// Package maxflow provides an integral residual graph and Dinic's maximum
// flow algorithm. The blocking search uses it to verify its answers
// independently of the SAT reduction.
package maxflow

import (
	"math"
	"slices"

	"netblock/pkg/domain"
)

// Infinity is the capacity of an unbounded path.
const Infinity = math.MaxInt64

// =============================================================================
// Residual Edge
// =============================================================================

// ResidualEdge is one direction of a residual arc.
//
// An input link (u, v) with capacity c becomes a forward edge u→v with
// capacity c and a backward edge v→u with capacity 0. Pushing f units
// moves f from the forward capacity to the backward one.
type ResidualEdge struct {
	To int64

	// Capacity is the current residual capacity.
	Capacity int64

	// Flow is the net flow pushed along a forward edge.
	Flow int64

	// OriginalCapacity is the capacity before any flow was pushed.
	OriginalCapacity int64

	// IsReverse marks edges created only for flow cancellation.
	IsReverse bool
}

// HasCapacity reports whether the edge can carry more flow.
func (e *ResidualEdge) HasCapacity() bool {
	return e.Capacity > 0
}

// =============================================================================
// Residual Graph
// =============================================================================

// ResidualGraph stores forward and backward edges with O(1) lookup by
// (from, to) and insertion-ordered neighbour lists for deterministic runs.
//
// # Antiparallel links
//
// When both u→v and v→u are input links they share one edge per direction:
// the backward edge of u→v is the forward edge v→u. Residual capacities
// stay correct, so the flow value and cuts are exact.
//
// # Thread Safety
//
// ResidualGraph is NOT thread-safe. Clone it per goroutine.
type ResidualGraph struct {
	Nodes     map[int64]bool
	Edges     map[int64]map[int64]*ResidualEdge
	EdgesList map[int64][]*ResidualEdge
}

// NewResidualGraph returns an empty graph.
func NewResidualGraph() *ResidualGraph {
	return &ResidualGraph{
		Nodes:     make(map[int64]bool),
		Edges:     make(map[int64]map[int64]*ResidualEdge),
		EdgesList: make(map[int64][]*ResidualEdge),
	}
}

// FromLinks builds a residual graph over nodes and links.
func FromLinks(nodes []int64, links []domain.Link) *ResidualGraph {
	rg := NewResidualGraph()
	for _, n := range nodes {
		rg.AddNode(n)
	}
	for _, l := range links {
		rg.AddEdgeWithReverse(l.Head, l.Tail, l.Capacity)
	}
	return rg
}

// FromNetwork builds the residual graph of net with the given links removed.
func FromNetwork(net *domain.Network, blocked []domain.LinkKey) *ResidualGraph {
	rg := FromLinks(net.Nodes(), net.Links())
	rg.Block(blocked)
	return rg
}

// AddNode adds a node. Adding an existing node is a no-op.
func (rg *ResidualGraph) AddNode(id int64) {
	rg.Nodes[id] = true
}

// AddEdge adds a forward edge. A backward edge in the same direction is
// promoted to forward; an existing forward edge accumulates capacity.
func (rg *ResidualGraph) AddEdge(from, to int64, capacity int64) {
	rg.AddNode(from)
	rg.AddNode(to)

	if existing := rg.GetEdge(from, to); existing != nil {
		if existing.IsReverse {
			existing.IsReverse = false
		}
		existing.Capacity += capacity
		existing.OriginalCapacity += capacity
		return
	}
	rg.insert(from, &ResidualEdge{
		To:               to,
		Capacity:         capacity,
		OriginalCapacity: capacity,
	})
}

// AddReverseEdge adds a zero-capacity backward edge unless one already
// exists in that direction.
func (rg *ResidualGraph) AddReverseEdge(from, to int64) {
	rg.AddNode(from)
	rg.AddNode(to)
	if rg.GetEdge(from, to) != nil {
		return
	}
	rg.insert(from, &ResidualEdge{To: to, IsReverse: true})
}

// AddEdgeWithReverse adds from→to and its backward edge.
func (rg *ResidualGraph) AddEdgeWithReverse(from, to int64, capacity int64) {
	rg.AddEdge(from, to, capacity)
	rg.AddReverseEdge(to, from)
}

func (rg *ResidualGraph) insert(from int64, e *ResidualEdge) {
	if rg.Edges[from] == nil {
		rg.Edges[from] = make(map[int64]*ResidualEdge)
	}
	rg.Edges[from][e.To] = e
	rg.EdgesList[from] = append(rg.EdgesList[from], e)
}

// GetEdge returns the edge from→to, or nil.
func (rg *ResidualGraph) GetEdge(from, to int64) *ResidualEdge {
	return rg.Edges[from][to]
}

// GetNeighborsList returns the outgoing edges of node in insertion order.
func (rg *ResidualGraph) GetNeighborsList(node int64) []*ResidualEdge {
	return rg.EdgesList[node]
}

// GetSortedNodes returns every node id in ascending order.
func (rg *ResidualGraph) GetSortedNodes() []int64 {
	out := make([]int64, 0, len(rg.Nodes))
	for n := range rg.Nodes {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// =============================================================================
// Flow Operations
// =============================================================================

// UpdateFlow pushes flow along from→to and credits the backward edge.
func (rg *ResidualGraph) UpdateFlow(from, to int64, flow int64) {
	if e := rg.GetEdge(from, to); e != nil {
		e.Capacity -= flow
		e.Flow += flow
	}
	if back := rg.GetEdge(to, from); back != nil {
		back.Capacity += flow
		back.Flow -= flow
		return
	}
	rg.insert(to, &ResidualEdge{To: from, Capacity: flow, Flow: -flow, IsReverse: true})
}

// Reachable returns the nodes reachable from source through edges with
// positive residual capacity.
func (rg *ResidualGraph) Reachable(source int64) map[int64]bool {
	seen := map[int64]bool{source: true}
	queue := []int64{source}
	for head := 0; head < len(queue); head++ {
		u := queue[head]
		for _, e := range rg.EdgesList[u] {
			if e.HasCapacity() && !seen[e.To] {
				seen[e.To] = true
				queue = append(queue, e.To)
			}
		}
	}
	return seen
}

// Clone returns an independent deep copy that preserves neighbour order.
func (rg *ResidualGraph) Clone() *ResidualGraph {
	clone := NewResidualGraph()
	for n := range rg.Nodes {
		clone.Nodes[n] = true
	}
	for from, edges := range rg.EdgesList {
		for _, e := range edges {
			c := *e
			clone.insert(from, &c)
		}
	}
	return clone
}

// Block removes the capacity of the input links in keys. It must run before
// any flow is pushed. Keys that are not links of the graph are ignored.
func (rg *ResidualGraph) Block(keys []domain.LinkKey) {
	for _, k := range keys {
		if e := rg.GetEdge(k.Head, k.Tail); e != nil && !e.IsReverse {
			e.Capacity = 0
			e.OriginalCapacity = 0
		}
	}
}
