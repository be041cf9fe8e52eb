package domain

import (
	"testing"

	"netblock/pkg/apperror"
)

func diamondLinks() []Link {
	return []Link{
		{ID: 1, Head: 1, Tail: 2, Capacity: 5, Cost: 1},
		{ID: 2, Head: 1, Tail: 3, Capacity: 5, Cost: 1},
		{ID: 3, Head: 2, Tail: 4, Capacity: 5, Cost: 1},
		{ID: 4, Head: 3, Tail: 4, Capacity: 5, Cost: 1},
	}
}

func TestNewNetwork_Valid(t *testing.T) {
	n, err := NewNetwork([]int64{1, 2, 3, 4}, diamondLinks(), ServiceRequest{Source: 1, Destination: 4})
	if err != nil {
		t.Fatalf("NewNetwork() error = %v", err)
	}

	if n.NodeCount() != 4 || n.LinkCount() != 4 {
		t.Errorf("counts = %d nodes, %d links", n.NodeCount(), n.LinkCount())
	}
	if n.TotalCost() != 4 {
		t.Errorf("TotalCost() = %d, want 4", n.TotalCost())
	}
	if n.TotalCapacity() != 20 {
		t.Errorf("TotalCapacity() = %d, want 20", n.TotalCapacity())
	}
	if n.Request() != (ServiceRequest{Source: 1, Destination: 4}) {
		t.Errorf("Request() = %+v", n.Request())
	}
	if l, ok := n.Link(LinkKey{Head: 2, Tail: 4}); !ok || l.ID != 3 {
		t.Errorf("Link(2->4) = %+v, %v", l, ok)
	}
	if _, ok := n.Link(LinkKey{Head: 4, Tail: 2}); ok {
		t.Error("reverse link should not exist")
	}
	if len(n.Warnings()) != 0 {
		t.Errorf("Warnings() = %v", n.Warnings())
	}
}

func TestNewNetwork_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		nodes []int64
		links []Link
		req   ServiceRequest
	}{
		{
			name:  "unknown tail",
			nodes: []int64{1, 2},
			links: []Link{{Head: 1, Tail: 9, Capacity: 1, Cost: 1}},
			req:   ServiceRequest{Source: 1, Destination: 2},
		},
		{
			name:  "duplicate link",
			nodes: []int64{1, 2},
			links: []Link{{Head: 1, Tail: 2, Capacity: 1, Cost: 1}, {Head: 1, Tail: 2, Capacity: 3, Cost: 2}},
			req:   ServiceRequest{Source: 1, Destination: 2},
		},
		{
			name:  "negative capacity",
			nodes: []int64{1, 2},
			links: []Link{{Head: 1, Tail: 2, Capacity: -1, Cost: 1}},
			req:   ServiceRequest{Source: 1, Destination: 2},
		},
		{
			name:  "negative cost",
			nodes: []int64{1, 2},
			links: []Link{{Head: 1, Tail: 2, Capacity: 1, Cost: -4}},
			req:   ServiceRequest{Source: 1, Destination: 2},
		},
		{
			name:  "missing source",
			nodes: []int64{1, 2},
			req:   ServiceRequest{Source: 7, Destination: 2},
		},
		{
			name:  "missing destination",
			nodes: []int64{1, 2},
			req:   ServiceRequest{Source: 1, Destination: 8},
		},
		{
			name:  "source equals destination",
			nodes: []int64{1, 2},
			req:   ServiceRequest{Source: 1, Destination: 1},
		},
		{
			name:  "duplicate node",
			nodes: []int64{1, 2, 2},
			req:   ServiceRequest{Source: 1, Destination: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := NewNetwork(tt.nodes, tt.links, tt.req)
			if err == nil {
				t.Fatalf("NewNetwork() = %v, want error", n)
			}
			if !apperror.Is(err, apperror.CodeMalformedInput) {
				t.Errorf("error code = %v, want MALFORMED_INPUT", apperror.Code(err))
			}
		})
	}
}

func TestNewNetwork_ReportsEveryViolation(t *testing.T) {
	_, err := NewNetwork(
		[]int64{1, 2},
		[]Link{
			{Head: 1, Tail: 5, Capacity: 1, Cost: 1},
			{Head: 2, Tail: 1, Capacity: -1, Cost: 1},
		},
		ServiceRequest{Source: 1, Destination: 3},
	)
	if err == nil {
		t.Fatal("expected error")
	}
	details := apperror.DetailsOf(err)
	violations, ok := details["violations"].([]string)
	if !ok || len(violations) != 3 {
		t.Fatalf("violations = %v", details["violations"])
	}
	if details["node"] != int64(3) {
		t.Errorf("first offending node = %v, want 3", details["node"])
	}
}

func TestNewNetwork_SelfLoopWarning(t *testing.T) {
	n, err := NewNetwork(
		[]int64{1, 2},
		[]Link{{Head: 1, Tail: 1, Capacity: 3, Cost: 1}, {Head: 1, Tail: 2, Capacity: 3, Cost: 1}},
		ServiceRequest{Source: 1, Destination: 2},
	)
	if err != nil {
		t.Fatalf("self loops should be accepted: %v", err)
	}
	if len(n.Warnings()) != 1 {
		t.Errorf("Warnings() = %v, want one self-loop warning", n.Warnings())
	}
}

func TestNetwork_Immutable(t *testing.T) {
	links := diamondLinks()
	nodes := []int64{1, 2, 3, 4}
	n := MustNetwork(nodes, links, ServiceRequest{Source: 1, Destination: 4})

	links[0].Cost = 100
	nodes[0] = 42
	got := n.Links()
	got[1].Capacity = 0
	gotNodes := n.Nodes()
	gotNodes[2] = 99

	if l, _ := n.Link(LinkKey{Head: 1, Tail: 2}); l.Cost != 1 {
		t.Errorf("input slice mutation leaked: cost = %d", l.Cost)
	}
	if n.Links()[1].Capacity != 5 {
		t.Error("returned slice mutation leaked")
	}
	if !n.HasNode(1) || n.HasNode(42) || n.Nodes()[2] != 3 {
		t.Error("node set mutated")
	}
}

func TestNetwork_CostOfAndWithout(t *testing.T) {
	n := MustNetwork([]int64{1, 2, 3, 4}, diamondLinks(), ServiceRequest{Source: 1, Destination: 4})
	blocked := []LinkKey{{Head: 1, Tail: 2}, {Head: 3, Tail: 4}, {Head: 9, Tail: 9}}

	if got := n.CostOf(blocked); got != 2 {
		t.Errorf("CostOf() = %d, want 2", got)
	}
	rest := n.Without(blocked)
	if len(rest) != 2 {
		t.Fatalf("Without() returned %d links", len(rest))
	}
	if rest[0].Key() != (LinkKey{Head: 1, Tail: 3}) || rest[1].Key() != (LinkKey{Head: 2, Tail: 4}) {
		t.Errorf("Without() = %+v", rest)
	}
}

func TestLinkKey_String(t *testing.T) {
	if got := (LinkKey{Head: 3, Tail: 7}).String(); got != "3->7" {
		t.Errorf("String() = %q", got)
	}
}
