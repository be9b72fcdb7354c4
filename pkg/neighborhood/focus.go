package neighborhood

import (
	"cmp"
	"context"
	"slices"

	"github.com/toucan4life/gamemap/pkg/errors"
	"github.com/toucan4life/gamemap/pkg/graph"
)

// Neighbor is one direct neighbor of a focused node.
type Neighbor struct {
	ID     graph.NodeID
	Data   graph.NodeData
	Weight float64
	Status string
}

// Neighbors lists the direct neighbors of node within its cluster graph,
// strongest link first. Ties are broken by ascending id. A neighbor joined
// by several links appears once, with its strongest weight.
func (b *Builder) Neighbors(ctx context.Context, cluster graph.ClusterID, node graph.NodeID) ([]Neighbor, error) {
	g, err := b.loader.Fetch(ctx, cluster)
	if err != nil {
		return nil, err
	}
	if !g.HasNode(node) {
		return nil, errors.New(errors.ErrCodeNodeNotFound, "node %d not found in cluster %d", node, cluster)
	}
	return DirectNeighbors(g, node), nil
}

// DirectNeighbors lists node's neighbors in g, strongest link first.
func DirectNeighbors(g *graph.Graph, node graph.NodeID) []Neighbor {
	index := make(map[graph.NodeID]int)
	var out []Neighbor
	for n, l := range g.Neighbors(node) {
		if n.ID == node {
			continue
		}
		if i, ok := index[n.ID]; ok {
			if l.Data.Weight > out[i].Weight {
				out[i].Weight = l.Data.Weight
				out[i].Status = l.Data.Status
			}
			continue
		}
		index[n.ID] = len(out)
		out = append(out, Neighbor{ID: n.ID, Data: n.Data.Clone(), Weight: l.Data.Weight, Status: l.Data.Status})
	}
	slices.SortFunc(out, func(a, b Neighbor) int {
		if c := cmp.Compare(b.Weight, a.Weight); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
