package maxflow

import (
	"context"
)

// =============================================================================
// Dinic's Algorithm
// =============================================================================
//
// Each phase builds a BFS level graph from the source and saturates it with
// a blocking flow found by iterative DFS with the current-arc optimisation.
// Phases repeat until the sink is unreachable.
//
// Time Complexity: O(V² × E)
// Space Complexity: O(V + E)
// =============================================================================

// DinicResult is the outcome of one max-flow computation.
type DinicResult struct {
	// MaxFlow is the flow value pushed from source to sink.
	MaxFlow int64

	// Phases is the number of level graphs built.
	Phases int

	// Canceled is set when the context ended before the flow was maximal.
	Canceled bool
}

// Dinic runs Dinic's algorithm on g, which is modified in place.
func Dinic(ctx context.Context, g *ResidualGraph, source, sink int64) *DinicResult {
	res := &DinicResult{}
	if source == sink || !g.Nodes[source] || !g.Nodes[sink] {
		return res
	}

	for {
		if ctx.Err() != nil {
			res.Canceled = true
			return res
		}

		level := bfsLevel(g, source)
		if _, ok := level[sink]; !ok {
			return res
		}

		currentArc := make(map[int64]int, len(level))
		pushed := int64(0)
		for {
			f := dfsBlockingPath(g, source, sink, level, currentArc)
			if f == 0 {
				break
			}
			pushed += f
		}
		if pushed == 0 {
			return res
		}
		res.MaxFlow += pushed
		res.Phases++
	}
}

// bfsLevel assigns BFS distances from source over edges with capacity.
func bfsLevel(g *ResidualGraph, source int64) map[int64]int {
	level := map[int64]int{source: 0}
	queue := []int64{source}
	for head := 0; head < len(queue); head++ {
		u := queue[head]
		for _, e := range g.GetNeighborsList(u) {
			if _, seen := level[e.To]; !seen && e.HasCapacity() {
				level[e.To] = level[u] + 1
				queue = append(queue, e.To)
			}
		}
	}
	return level
}

// dfsBlockingPath finds and augments one path in the level graph. It
// returns the bottleneck pushed, or 0 when the level graph is saturated.
func dfsBlockingPath(g *ResidualGraph, source, sink int64, level map[int64]int, currentArc map[int64]int) int64 {
	path := []int64{source}
	bottleneck := []int64{Infinity}

	for len(path) > 0 {
		u := path[len(path)-1]
		if u == sink {
			f := bottleneck[len(bottleneck)-1]
			for i := 0; i < len(path)-1; i++ {
				g.UpdateFlow(path[i], path[i+1], f)
			}
			return f
		}

		edges := g.GetNeighborsList(u)
		advanced := false
		for i := currentArc[u]; i < len(edges); i++ {
			e := edges[i]
			lv, ok := level[e.To]
			if !ok || lv != level[u]+1 || !e.HasCapacity() {
				continue
			}
			currentArc[u] = i
			path = append(path, e.To)
			bottleneck = append(bottleneck, min(bottleneck[len(bottleneck)-1], e.Capacity))
			advanced = true
			break
		}

		if !advanced {
			// Dead end: drop u from the level graph and backtrack.
			currentArc[u] = len(edges)
			delete(level, u)
			path = path[:len(path)-1]
			bottleneck = bottleneck[:len(bottleneck)-1]
		}
	}
	return 0
}
