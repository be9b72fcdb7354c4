package graph

import (
	"iter"
	"slices"
)

// Node is one board game in a [Graph].
type Node struct {
	ID   NodeID
	Data NodeData
}

// Link is one similarity edge between two node ids. Either endpoint may be
// absent from the graph holding the link.
type Link struct {
	From NodeID
	To   NodeID
	Data LinkData
}

// Other returns the endpoint of l opposite to id.
func (l *Link) Other(id NodeID) NodeID {
	if l.From == id {
		return l.To
	}
	return l.From
}

// Touches reports whether id is an endpoint of l.
func (l *Link) Touches(id NodeID) bool { return l.From == id || l.To == id }

// Graph is a multigraph of board games keyed by node id.
//
// Nodes and links iterate in insertion order. The zero value is not usable;
// call [New].
type Graph struct {
	nodes map[NodeID]*Node
	order []NodeID
	links []*Link
	adj   map[NodeID][]*Link
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[NodeID]*Node),
		adj:   make(map[NodeID][]*Link),
	}
}

// AddNode inserts a node or replaces the data of an existing one, returning
// the stored node.
func (g *Graph) AddNode(id NodeID, data NodeData) *Node {
	if n, ok := g.nodes[id]; ok {
		n.Data = data
		return n
	}
	n := &Node{ID: id, Data: data}
	g.nodes[id] = n
	g.order = append(g.order, id)
	return n
}

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// HasNode reports whether id is present.
func (g *Graph) HasNode(id NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// RemoveNode deletes a node and every link touching it. It reports whether
// the node existed.
func (g *Graph) RemoveNode(id NodeID) bool {
	if _, ok := g.nodes[id]; !ok {
		return false
	}
	for _, l := range slices.Clone(g.adj[id]) {
		g.RemoveLink(l)
	}
	delete(g.nodes, id)
	delete(g.adj, id)
	g.order = slices.DeleteFunc(g.order, func(v NodeID) bool { return v == id })
	return true
}

// AddLink appends a link from one id to another. Endpoints need not exist.
// Parallel links are kept.
func (g *Graph) AddLink(from, to NodeID, data LinkData) *Link {
	l := &Link{From: from, To: to, Data: data}
	g.links = append(g.links, l)
	g.adj[from] = append(g.adj[from], l)
	if to != from {
		g.adj[to] = append(g.adj[to], l)
	}
	return l
}

// RemoveLink deletes l. It reports whether l belonged to the graph.
func (g *Graph) RemoveLink(l *Link) bool {
	i := slices.Index(g.links, l)
	if i < 0 {
		return false
	}
	g.links = slices.Delete(g.links, i, i+1)
	drop := func(v *Link) bool { return v == l }
	g.adj[l.From] = slices.DeleteFunc(g.adj[l.From], drop)
	g.adj[l.To] = slices.DeleteFunc(g.adj[l.To], drop)
	return true
}

// Link returns the first link stored from one id to another, in that
// direction.
func (g *Graph) Link(from, to NodeID) (*Link, bool) {
	for _, l := range g.adj[from] {
		if l.From == from && l.To == to {
			return l, true
		}
	}
	return nil, false
}

// HasLinkBetween reports whether a link joins a and b in either direction.
func (g *Graph) HasLinkBetween(a, b NodeID) bool {
	for _, l := range g.adj[a] {
		if l.Other(a) == b {
			return true
		}
	}
	return false
}

// Nodes iterates nodes in insertion order.
func (g *Graph) Nodes() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, id := range g.order {
			if !yield(g.nodes[id]) {
				return
			}
		}
	}
}

// NodeIDs returns node ids in insertion order.
func (g *Graph) NodeIDs() []NodeID { return slices.Clone(g.order) }

// Links iterates links in insertion order.
func (g *Graph) Links() iter.Seq[*Link] {
	return func(yield func(*Link) bool) {
		for _, l := range g.links {
			if !yield(l) {
				return
			}
		}
	}
}

// LinksOf returns the links touching id in insertion order.
func (g *Graph) LinksOf(id NodeID) []*Link { return slices.Clone(g.adj[id]) }

// Neighbors iterates the nodes linked to id together with the connecting
// link, in link insertion order. Links whose other endpoint is absent from
// the graph are skipped. A neighbor joined by parallel links is yielded once
// per link.
func (g *Graph) Neighbors(id NodeID) iter.Seq2[*Node, *Link] {
	return func(yield func(*Node, *Link) bool) {
		for _, l := range g.adj[id] {
			n, ok := g.nodes[l.Other(id)]
			if !ok {
				continue
			}
			if !yield(n, l) {
				return
			}
		}
	}
}

// Degree returns the number of links touching id.
func (g *Graph) Degree(id NodeID) int { return len(g.adj[id]) }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// LinkCount returns the number of links.
func (g *Graph) LinkCount() int { return len(g.links) }

// Clone returns a deep copy of g.
func (g *Graph) Clone() *Graph {
	out := New()
	for _, id := range g.order {
		out.AddNode(id, g.nodes[id].Data.Clone())
	}
	for _, l := range g.links {
		out.AddLink(l.From, l.To, l.Data)
	}
	return out
}
