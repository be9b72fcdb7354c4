package graph

import (
	"slices"
	"testing"
)

func collectIDs(g *Graph) []NodeID {
	var ids []NodeID
	for n := range g.Nodes() {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestAddNode(t *testing.T) {
	g := New()
	g.AddNode(3, NodeData{Label: "c"})
	g.AddNode(1, NodeData{Label: "a"})
	g.AddNode(3, NodeData{Label: "c2"})

	if got, want := collectIDs(g), []NodeID{3, 1}; !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
	n, ok := g.Node(3)
	if !ok || n.Data.Label != "c2" {
		t.Errorf("Node(3) = %+v, %v; want label c2", n, ok)
	}
	if g.NodeCount() != 2 {
		t.Errorf("NodeCount() = %d, want 2", g.NodeCount())
	}
}

func TestLinks(t *testing.T) {
	g := New()
	g.AddNode(1, NodeData{})
	g.AddNode(2, NodeData{})
	l := g.AddLink(1, 2, LinkData{Weight: 0.5})
	g.AddLink(1, 99, LinkData{Weight: 0.1})

	tests := []struct {
		name string
		a, b NodeID
		want bool
	}{
		{"Forward", 1, 2, true},
		{"Reverse", 2, 1, true},
		{"Dangling", 1, 99, true},
		{"Missing", 2, 99, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.HasLinkBetween(tt.a, tt.b); got != tt.want {
				t.Errorf("HasLinkBetween(%d, %d) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}

	if got, ok := g.Link(1, 2); !ok || got != l {
		t.Errorf("Link(1, 2) = %v, %v", got, ok)
	}
	if _, ok := g.Link(2, 1); ok {
		t.Error("Link(2, 1) should be directional")
	}
	if g.Degree(1) != 2 {
		t.Errorf("Degree(1) = %d, want 2", g.Degree(1))
	}
}

func TestNeighborsSkipsAbsent(t *testing.T) {
	g := New()
	g.AddNode(1, NodeData{})
	g.AddNode(2, NodeData{})
	g.AddNode(3, NodeData{})
	g.AddLink(1, 2, LinkData{})
	g.AddLink(7, 1, LinkData{})
	g.AddLink(3, 1, LinkData{})

	var got []NodeID
	for n, l := range g.Neighbors(1) {
		if !l.Touches(1) {
			t.Errorf("link %v does not touch 1", l)
		}
		got = append(got, n.ID)
	}
	if want := []NodeID{2, 3}; !slices.Equal(got, want) {
		t.Errorf("Neighbors(1) = %v, want %v", got, want)
	}
}

func TestRemoveNode(t *testing.T) {
	g := New()
	for _, id := range []NodeID{1, 2, 3} {
		g.AddNode(id, NodeData{})
	}
	g.AddLink(1, 2, LinkData{})
	g.AddLink(2, 3, LinkData{})
	g.AddLink(1, 3, LinkData{})

	if !g.RemoveNode(2) {
		t.Fatal("RemoveNode(2) = false")
	}
	if g.RemoveNode(2) {
		t.Error("second RemoveNode(2) = true")
	}
	if g.LinkCount() != 1 {
		t.Errorf("LinkCount() = %d, want 1", g.LinkCount())
	}
	if g.HasLinkBetween(1, 2) || g.HasLinkBetween(3, 2) {
		t.Error("links to removed node survive")
	}
	if got, want := collectIDs(g), []NodeID{1, 3}; !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestRemoveLink(t *testing.T) {
	g := New()
	a := g.AddLink(1, 2, LinkData{})
	b := g.AddLink(1, 2, LinkData{Weight: 1})

	if !g.RemoveLink(a) {
		t.Fatal("RemoveLink(a) = false")
	}
	if g.RemoveLink(a) {
		t.Error("RemoveLink(a) twice = true")
	}
	if got, _ := g.Link(1, 2); got != b {
		t.Errorf("remaining link = %v, want %v", got, b)
	}
}

func TestCloneIsDeep(t *testing.T) {
	g := New()
	g.AddNode(1, NodeData{Cluster: Cluster(4)})
	c := g.Clone()
	n, _ := c.Node(1)
	*n.Data.Cluster = 9

	orig, _ := g.Node(1)
	if *orig.Data.Cluster != 4 {
		t.Errorf("clone shares cluster pointer: %d", *orig.Data.Cluster)
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		in      string
		want    Position
		wantErr bool
	}{
		{"12.5,3.2", Position{12.5, 3.2}, false},
		{" -1 , 2e1 ", Position{-1, 20}, false},
		{"12.5", Position{}, true},
		{"a,b", Position{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePosition(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
