package cache

import (
	"testing"

	"netblock/pkg/domain"
)

func hashNetwork(nodes []int64, links []domain.Link, src, dst int64) *domain.Network {
	return domain.MustNetwork(nodes, links, domain.ServiceRequest{Source: src, Destination: dst})
}

func TestNetworkHash(t *testing.T) {
	links := []domain.Link{
		{ID: 1, Head: 1, Tail: 2, Capacity: 10, Cost: 2},
		{ID: 2, Head: 2, Tail: 3, Capacity: 4, Cost: 7},
	}
	base := hashNetwork([]int64{1, 2, 3}, links, 1, 3)

	t.Run("deterministic", func(t *testing.T) {
		h := NetworkHash(base)
		if len(h) != 32 {
			t.Errorf("hash length = %d, want 32", len(h))
		}
		if h != NetworkHash(hashNetwork([]int64{1, 2, 3}, links, 1, 3)) {
			t.Error("equal networks must hash equally")
		}
	})

	t.Run("input order does not matter", func(t *testing.T) {
		reordered := hashNetwork([]int64{3, 1, 2}, []domain.Link{links[1], links[0]}, 1, 3)
		if NetworkHash(base) != NetworkHash(reordered) {
			t.Error("node/link order changed the hash")
		}
	})

	t.Run("link ids do not matter", func(t *testing.T) {
		renumbered := []domain.Link{links[0], links[1]}
		renumbered[0].ID, renumbered[1].ID = 10, 20
		if NetworkHash(base) != NetworkHash(hashNetwork([]int64{1, 2, 3}, renumbered, 1, 3)) {
			t.Error("LinkId changed the hash")
		}
	})

	t.Run("capacity and cost matter", func(t *testing.T) {
		changed := []domain.Link{links[0], links[1]}
		changed[1].Capacity = 5
		if NetworkHash(base) == NetworkHash(hashNetwork([]int64{1, 2, 3}, changed, 1, 3)) {
			t.Error("capacity change not reflected")
		}
		changed[1].Capacity, changed[1].Cost = 4, 8
		if NetworkHash(base) == NetworkHash(hashNetwork([]int64{1, 2, 3}, changed, 1, 3)) {
			t.Error("cost change not reflected")
		}
	})

	t.Run("request matters", func(t *testing.T) {
		if NetworkHash(base) == NetworkHash(hashNetwork([]int64{1, 2, 3}, links, 1, 2)) {
			t.Error("destination change not reflected")
		}
	})

	t.Run("nil", func(t *testing.T) {
		if NetworkHash(nil) != "" {
			t.Error("nil network should hash to empty string")
		}
	})
}

func TestBuildSolveKey(t *testing.T) {
	tests := []struct {
		target, ceiling int64
		want            string
	}{
		{0, 0, "solve:abc:0:0"},
		{3, 0, "solve:abc:3:0"},
		{3, 10, "solve:abc:3:10"},
		{3, -1, "solve:abc:3:0"},
	}
	for _, tt := range tests {
		if got := BuildSolveKey("abc", tt.target, tt.ceiling); got != tt.want {
			t.Errorf("BuildSolveKey(abc, %d, %d) = %s, want %s", tt.target, tt.ceiling, got, tt.want)
		}
	}
}
