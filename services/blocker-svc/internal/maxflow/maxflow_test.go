package maxflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netblock/pkg/apperror"
	"netblock/pkg/domain"
)

func link(h, t, capacity int64) domain.Link {
	return domain.Link{Head: h, Tail: t, Capacity: capacity, Cost: 1}
}

func clrs() ([]int64, []domain.Link) {
	return []int64{0, 1, 2, 3, 4, 5}, []domain.Link{
		link(0, 1, 16), link(0, 2, 13), link(1, 3, 12), link(2, 1, 4),
		link(2, 4, 14), link(3, 2, 9), link(3, 5, 20), link(4, 3, 7), link(4, 5, 4),
	}
}

func TestDinic(t *testing.T) {
	nodes, links := clrs()
	tests := []struct {
		name  string
		nodes []int64
		links []domain.Link
		s, t  int64
		want  int64
	}{
		{"single link", []int64{1, 2}, []domain.Link{link(1, 2, 3)}, 1, 2, 3},
		{"chain bottleneck", []int64{1, 2, 3}, []domain.Link{link(1, 2, 5), link(2, 3, 2)}, 1, 3, 2},
		{"diamond", []int64{1, 2, 3, 4}, []domain.Link{
			link(1, 2, 1), link(1, 3, 1), link(2, 4, 1), link(3, 4, 1),
		}, 1, 4, 2},
		{"clrs", nodes, links, 0, 5, 23},
		{"disconnected", []int64{1, 2, 3}, []domain.Link{link(1, 2, 4)}, 1, 3, 0},
		{"zero capacity", []int64{1, 2}, []domain.Link{link(1, 2, 0)}, 1, 2, 0},
		{"antiparallel", []int64{1, 2, 3}, []domain.Link{
			link(1, 2, 4), link(2, 1, 3), link(2, 3, 5),
		}, 1, 3, 4},
		{"needs cancellation", []int64{1, 2, 3, 4}, []domain.Link{
			link(1, 2, 1), link(1, 3, 1), link(2, 3, 1), link(2, 4, 1), link(3, 4, 1),
		}, 1, 4, 2},
		{"source equals sink", []int64{1, 2}, []domain.Link{link(1, 2, 3)}, 1, 1, 0},
		{"unknown sink", []int64{1, 2}, []domain.Link{link(1, 2, 3)}, 1, 9, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := FromLinks(tt.nodes, tt.links)
			res := Dinic(context.Background(), g, tt.s, tt.t)
			assert.Equal(t, tt.want, res.MaxFlow)
			assert.False(t, res.Canceled)
		})
	}
}

func TestDinic_Canceled(t *testing.T) {
	nodes, links := clrs()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := Dinic(ctx, FromLinks(nodes, links), 0, 5)
	assert.True(t, res.Canceled)
	assert.Zero(t, res.MaxFlow)
}

func TestMinCut_CapacityEqualsFlow(t *testing.T) {
	nodes, links := clrs()
	cut, err := MinCut(context.Background(), nodes, links, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(23), cut.MaxFlow)

	byKey := make(map[domain.LinkKey]int64)
	for _, l := range links {
		byKey[l.Key()] = l.Capacity
	}
	var capacity int64
	for _, k := range cut.Links {
		capacity += byKey[k]
	}
	assert.Equal(t, cut.MaxFlow, capacity)
	assert.Contains(t, cut.SourceSide, int64(0))
	assert.NotContains(t, cut.SourceSide, int64(5))
}

func TestMinCut_Canceled(t *testing.T) {
	nodes, links := clrs()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := MinCut(ctx, nodes, links, 0, 5)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInternal))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, apperror.ExitCode(err))
}

func TestVerify_Canceled(t *testing.T) {
	net := domain.MustNetwork([]int64{1, 2}, []domain.Link{link(1, 2, 3)},
		domain.ServiceRequest{Source: 1, Destination: 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Verify(ctx, net, nil, 0)
	require.Error(t, err)
	assert.False(t, apperror.Is(err, apperror.CodeOracleInconclusive))
	assert.True(t, apperror.Is(err, apperror.CodeInternal))
}

func TestVerify(t *testing.T) {
	net := domain.MustNetwork(
		[]int64{1, 2, 3, 4},
		[]domain.Link{link(1, 2, 1), link(1, 3, 1), link(2, 4, 1), link(3, 4, 1)},
		domain.ServiceRequest{Source: 1, Destination: 4},
	)

	v, err := Verify(context.Background(), net, []domain.LinkKey{{Head: 1, Tail: 2}, {Head: 1, Tail: 3}}, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.OriginalMaxFlow)
	assert.Equal(t, int64(0), v.ResidualMaxFlow)
	assert.Len(t, v.OriginalCut, 2)

	v, err = Verify(context.Background(), net, []domain.LinkKey{{Head: 1, Tail: 2}}, 0)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeVerificationFailed))
	assert.Equal(t, int64(1), v.ResidualMaxFlow)
	assert.Equal(t, int64(1), apperror.DetailsOf(err)["residual_max_flow"])

	v, err = Verify(context.Background(), net, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.ResidualMaxFlow)
}

func TestResidualGraph_Clone(t *testing.T) {
	nodes, links := clrs()
	g := FromLinks(nodes, links)
	clone := g.Clone()

	assert.Equal(t, int64(23), Dinic(context.Background(), g, 0, 5).MaxFlow)
	// The clone is untouched by the run on g.
	assert.Equal(t, int64(23), Dinic(context.Background(), clone, 0, 5).MaxFlow)
}

func TestFromNetwork_BlocksLinks(t *testing.T) {
	// 1->2 and 2->1 share residual edges; blocking one direction keeps the other.
	net := domain.MustNetwork(
		[]int64{1, 2, 3},
		[]domain.Link{link(1, 2, 4), link(2, 1, 3), link(2, 3, 5), link(1, 3, 1)},
		domain.ServiceRequest{Source: 1, Destination: 3},
	)

	assert.Equal(t, int64(5), Dinic(context.Background(), FromNetwork(net, nil), 1, 3).MaxFlow)

	g := FromNetwork(net, []domain.LinkKey{{Head: 1, Tail: 2}})
	assert.Equal(t, int64(1), Dinic(context.Background(), g, 1, 3).MaxFlow)
	assert.Equal(t, int64(3), g.GetEdge(2, 1).OriginalCapacity)

	// Unknown keys and backward edges are ignored.
	g = FromNetwork(net, []domain.LinkKey{{Head: 3, Tail: 2}, {Head: 9, Tail: 1}})
	assert.Equal(t, int64(5), Dinic(context.Background(), g, 1, 3).MaxFlow)
}

func TestResidualGraph_Edges(t *testing.T) {
	g := FromLinks([]int64{1, 2, 3, 7}, []domain.Link{link(1, 2, 4), link(2, 1, 3), link(2, 3, 5)})
	assert.Equal(t, []int64{1, 2, 3, 7}, g.GetSortedNodes())

	e := g.GetEdge(2, 1)
	require.NotNil(t, e)
	assert.False(t, e.IsReverse)
	assert.Equal(t, int64(3), e.Capacity)

	back := g.GetEdge(3, 2)
	require.NotNil(t, back)
	assert.True(t, back.IsReverse)
	assert.False(t, back.HasCapacity())
}

func TestResidualGraph_UpdateFlow(t *testing.T) {
	g := FromLinks([]int64{1, 2}, []domain.Link{link(1, 2, 5)})
	g.UpdateFlow(1, 2, 3)

	assert.Equal(t, int64(2), g.GetEdge(1, 2).Capacity)
	assert.Equal(t, int64(3), g.GetEdge(1, 2).Flow)
	assert.Equal(t, int64(3), g.GetEdge(2, 1).Capacity)
	assert.True(t, g.Reachable(1)[2])
	assert.True(t, g.Reachable(2)[1])
}
