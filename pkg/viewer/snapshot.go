package viewer

import "github.com/toucan4life/gamemap/pkg/graph"

// SnapshotNode is one node's position in both coordinate systems.
type SnapshotNode struct {
	ID     graph.NodeID `json:"id" bson:"id"`
	Label  string       `json:"label,omitempty" bson:"label,omitempty"`
	X      float64      `json:"x" bson:"x"`
	Y      float64      `json:"y" bson:"y"`
	Lng    float64      `json:"lng" bson:"lng"`
	Lat    float64      `json:"lat" bson:"lat"`
	Pinned bool         `json:"pinned,omitempty" bson:"pinned,omitempty"`
}

// Snapshot captures a viewer's layout at one moment.
type Snapshot struct {
	Root        graph.NodeID   `json:"root" bson:"root"`
	State       string         `json:"state" bson:"state"`
	Steps       int            `json:"steps" bson:"steps"`
	ScaleFactor float64        `json:"scale_factor" bson:"scale_factor"`
	Nodes       []SnapshotNode `json:"nodes" bson:"nodes"`
}

// Position returns the snapshot entry for id.
func (s Snapshot) Position(id graph.NodeID) (SnapshotNode, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return SnapshotNode{}, false
}

// Snapshot returns the current positions of every laid-out node in graph
// order. It reports false until the layout has started.
func (v *Viewer) Snapshot() (Snapshot, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.eng == nil {
		return Snapshot{}, false
	}
	snap := Snapshot{
		Root:        v.opts.RootNodeID,
		State:       v.state.String(),
		Steps:       v.eng.Steps(),
		ScaleFactor: v.proj.Scale,
		Nodes:       make([]SnapshotNode, 0, v.eng.Len()),
	}
	for n := range v.g.Nodes() {
		pos, ok := v.eng.NodePosition(n.ID)
		if !ok {
			continue
		}
		pt := v.proj.ToMap(pos)
		snap.Nodes = append(snap.Nodes, SnapshotNode{
			ID:     n.ID,
			Label:  n.Data.Label,
			X:      pos.X,
			Y:      pos.Y,
			Lng:    pt.Lon(),
			Lat:    pt.Lat(),
			Pinned: v.eng.IsPinned(n.ID),
		})
	}
	return snap, true
}
