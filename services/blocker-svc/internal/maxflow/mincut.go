package maxflow

import (
	"context"
	"fmt"

	"netblock/pkg/apperror"
	"netblock/pkg/domain"
)

// =============================================================================
// Minimum Cut
// =============================================================================

// Cut is a minimum s-t cut of a network.
type Cut struct {
	// MaxFlow equals the capacity of the cut.
	MaxFlow int64

	// SourceSide holds the nodes reachable from the source in the final
	// residual graph, sorted.
	SourceSide []int64

	// Links are the input links leaving SourceSide, in input order.
	Links []domain.LinkKey
}

// MinCut computes a maximum flow over links and derives a minimum cut.
func MinCut(ctx context.Context, nodes []int64, links []domain.Link, source, sink int64) (*Cut, error) {
	return cutOf(ctx, FromLinks(nodes, links), links, source, sink)
}

// cutOf runs Dinic on g, which must be unflowed, and reads the cut of links
// off the final residual graph. A canceled run is an internal error wrapping
// ctx.Err().
func cutOf(ctx context.Context, g *ResidualGraph, links []domain.Link, source, sink int64) (*Cut, error) {
	res := Dinic(ctx, g, source, sink)
	if res.Canceled {
		return nil, apperror.Wrap(ctx.Err(), apperror.CodeInternal, "max-flow computation canceled")
	}

	reach := g.Reachable(source)
	cut := &Cut{MaxFlow: res.MaxFlow}
	for _, n := range g.GetSortedNodes() {
		if reach[n] {
			cut.SourceSide = append(cut.SourceSide, n)
		}
	}
	for _, l := range links {
		if reach[l.Head] && !reach[l.Tail] {
			cut.Links = append(cut.Links, l.Key())
		}
	}
	return cut, nil
}

// =============================================================================
// Verification
// =============================================================================

// Verification compares a blocking solution with an exact max-flow run.
type Verification struct {
	// OriginalMaxFlow is the max flow of the unmodified network.
	OriginalMaxFlow int64

	// ResidualMaxFlow is the max flow once the blocked links are removed.
	ResidualMaxFlow int64

	// TargetFlow is the threshold the residual flow must not exceed.
	TargetFlow int64

	// OriginalCut is a minimum cut of the unmodified network.
	OriginalCut []domain.LinkKey
}

// Verify removes blocked from net and checks that the remaining max flow
// from source to destination is at most targetFlow. A violation is a
// VERIFICATION_FAILED error carrying both flow values.
func Verify(ctx context.Context, net *domain.Network, blocked []domain.LinkKey, targetFlow int64) (*Verification, error) {
	req := net.Request()

	// One graph serves both runs; the unmodified flow runs on a copy.
	g := FromNetwork(net, nil)
	orig, err := cutOf(ctx, g.Clone(), net.Links(), req.Source, req.Destination)
	if err != nil {
		return nil, err
	}
	g.Block(blocked)
	rest, err := cutOf(ctx, g, net.Without(blocked), req.Source, req.Destination)
	if err != nil {
		return nil, err
	}

	v := &Verification{
		OriginalMaxFlow: orig.MaxFlow,
		ResidualMaxFlow: rest.MaxFlow,
		TargetFlow:      targetFlow,
		OriginalCut:     orig.Links,
	}
	if rest.MaxFlow > targetFlow {
		return v, apperror.New(apperror.CodeVerificationFailed,
			fmt.Sprintf("residual max flow %d exceeds target %d", rest.MaxFlow, targetFlow)).
			WithDetails("residual_max_flow", rest.MaxFlow).
			WithDetails("target_flow", targetFlow).
			WithDetails("blocked", len(blocked))
	}
	return v, nil
}
