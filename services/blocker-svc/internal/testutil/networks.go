// services/blocker-svc/internal/testutil/networks.go
package testutil

import (
	"context"
	"math/rand"

	"netblock/pkg/domain"
	"netblock/services/blocker-svc/internal/maxflow"
)

// ================== Fixed networks ==================

// SingleLink is 1→2 with capacity 3 and cost 3.
func SingleLink() *domain.Network {
	return domain.MustNetwork(
		[]int64{1, 2},
		[]domain.Link{{Head: 1, Tail: 2, Capacity: 3, Cost: 3}},
		domain.ServiceRequest{Source: 1, Destination: 2},
	)
}

// Diamond is 1→{2,3}→4 with unit capacities and costs.
func Diamond() *domain.Network {
	return domain.MustNetwork(
		[]int64{1, 2, 3, 4},
		[]domain.Link{
			{Head: 1, Tail: 2, Capacity: 1, Cost: 1},
			{Head: 1, Tail: 3, Capacity: 1, Cost: 1},
			{Head: 2, Tail: 4, Capacity: 1, Cost: 1},
			{Head: 3, Tail: 4, Capacity: 1, Cost: 1},
		},
		domain.ServiceRequest{Source: 1, Destination: 4},
	)
}

// Bridge is a chain 1→2→3 where the cheap link is not the narrow one.
func Bridge() *domain.Network {
	return domain.MustNetwork(
		[]int64{1, 2, 3},
		[]domain.Link{
			{Head: 1, Tail: 2, Capacity: 10, Cost: 2},
			{Head: 2, Tail: 3, Capacity: 4, Cost: 7},
		},
		domain.ServiceRequest{Source: 1, Destination: 3},
	)
}

// Random builds a network on n nodes where every ordered pair is linked
// with probability p. Source is 1 and destination is n.
func Random(rng *rand.Rand, n int, p float64, maxCapacity, maxCost int64) *domain.Network {
	nodes := make([]int64, n)
	for i := range nodes {
		nodes[i] = int64(i + 1)
	}
	var links []domain.Link
	for h := 1; h <= n; h++ {
		for t := 1; t <= n; t++ {
			if h == t || rng.Float64() >= p {
				continue
			}
			links = append(links, domain.Link{
				Head:     int64(h),
				Tail:     int64(t),
				Capacity: rng.Int63n(maxCapacity + 1),
				Cost:     rng.Int63n(maxCost + 1),
			})
		}
	}
	return domain.MustNetwork(nodes, links, domain.ServiceRequest{Source: 1, Destination: int64(n)})
}

// ================== Reference solver ==================

// BruteForce enumerates every subset of links and returns the cheapest one
// that bounds the max flow by target. ok is false when even removing every
// link is not enough, which only happens for a negative target.
// Only usable for a handful of links.
func BruteForce(net *domain.Network, target int64) (cost int64, blocked []domain.LinkKey, ok bool) {
	links := net.Links()
	req := net.Request()
	cost = -1
	for mask := 0; mask < 1<<len(links); mask++ {
		var keys []domain.LinkKey
		var c int64
		for i, l := range links {
			if mask&(1<<i) != 0 {
				keys = append(keys, l.Key())
				c += l.Cost
			}
		}
		if cost >= 0 && c >= cost {
			continue
		}
		flow := maxflow.Dinic(context.Background(),
			maxflow.FromNetwork(net, keys), req.Source, req.Destination).MaxFlow
		if flow <= target {
			cost, blocked = c, keys
		}
	}
	return cost, blocked, cost >= 0
}
