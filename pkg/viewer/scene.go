package viewer

import (
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/toucan4life/gamemap/pkg/graph"
	"github.com/toucan4life/gamemap/pkg/layout"
)

// DefaultScaleFactor converts simulation units to map degrees.
const DefaultScaleFactor = 100

// Projection maps simulation coordinates to map coordinates by dividing by
// Scale. It has no geographic meaning.
type Projection struct {
	Scale float64
}

// ToMap converts a simulation position to [lng, lat].
func (p Projection) ToMap(v r2.Vec) orb.Point {
	return orb.Point{v.X / p.Scale, v.Y / p.Scale}
}

// ToSim converts a map point back to simulation space.
func (p Projection) ToSim(pt orb.Point) r2.Vec {
	return r2.Vec{X: pt[0] * p.Scale, Y: pt[1] * p.Scale}
}

// Scene is one frame's worth of scene buffers.
type Scene struct {
	Nodes      *geojson.FeatureCollection
	Edges      *geojson.FeatureCollection
	Highlights *geojson.FeatureCollection

	// Bounds encloses every node point. It is only meaningful when Nodes
	// is non-empty.
	Bounds orb.Bound
}

// Collection merges the edge and node buffers into one collection, edges
// first.
func (s Scene) Collection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = append(fc.Features, s.Edges.Features...)
	fc.Features = append(fc.Features, s.Nodes.Features...)
	return fc
}

// emptyScene returns a scene with empty buffers.
func emptyScene() Scene {
	return Scene{
		Nodes:      geojson.NewFeatureCollection(),
		Edges:      geojson.NewFeatureCollection(),
		Highlights: geojson.NewFeatureCollection(),
	}
}

type sceneBuilder struct {
	g     *graph.Graph
	eng   *layout.Engine
	style Style
	proj  Projection
}

// build recomputes every buffer from the current engine positions. selected
// may be nil.
func (b sceneBuilder) build(selected *graph.NodeID) Scene {
	scene := emptyScene()

	first := true
	for n := range b.g.Nodes() {
		pos, ok := b.eng.NodePosition(n.ID)
		if !ok {
			continue
		}
		pt := b.proj.ToMap(pos)
		if first {
			scene.Bounds = pt.Bound()
			first = false
		} else {
			scene.Bounds = scene.Bounds.Extend(pt)
		}
		scene.Nodes.Append(b.nodeFeature(n, pos, pt))
	}

	var onTop []*geojson.Feature
	for l := range b.g.Links() {
		if !l.Data.Visible() {
			continue
		}
		from, ok1 := b.eng.NodePosition(l.From)
		to, ok2 := b.eng.NodePosition(l.To)
		if !ok1 || !ok2 {
			continue
		}
		color := b.style.EdgeColor(l.Data.Weight)
		touching := selected != nil && l.Touches(*selected)
		if touching {
			color = b.style.SelectedEdgeColor
		}
		f := geojson.NewFeature(orb.LineString{b.proj.ToMap(from), b.proj.ToMap(to)})
		f.Properties["from"] = int64(l.From)
		f.Properties["to"] = int64(l.To)
		f.Properties["weight"] = l.Data.Weight
		f.Properties["color"] = color
		if touching {
			onTop = append(onTop, f)
			continue
		}
		scene.Edges.Append(f)
	}
	scene.Edges.Features = append(scene.Edges.Features, onTop...)

	if selected != nil {
		scene.Highlights = b.highlights(*selected)
	}
	return scene
}

func (b sceneBuilder) nodeFeature(n *graph.Node, pos r2.Vec, pt orb.Point) *geojson.Feature {
	f := geojson.NewFeature(pt)
	f.ID = int64(n.ID)
	f.Properties["id"] = int64(n.ID)
	f.Properties["label"] = n.Data.Label
	f.Properties["size"] = n.Data.Size
	f.Properties["complexity"] = n.Data.Complexity
	f.Properties["rating"] = n.Data.Rating
	f.Properties["icon"] = b.style.Icon(n.Data.Complexity)
	f.Properties["color"] = b.style.NodeColor
	f.Properties["icon_color"] = b.style.RatingColor(n.Data.Rating)
	f.Properties["x"] = pos.X
	f.Properties["y"] = pos.Y
	if n.Data.Cluster != nil {
		f.Properties["cluster"] = int64(*n.Data.Cluster)
	}
	return f
}

// highlights returns the selected node followed by its distinct neighbors
// that have a body.
func (b sceneBuilder) highlights(id graph.NodeID) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	n, ok := b.g.Node(id)
	if !ok {
		return fc
	}
	if f := b.highlightFeature(n, b.style.SelectedColor, b.style.Selected); f != nil {
		fc.Append(f)
	}
	seen := map[graph.NodeID]bool{id: true}
	for nb := range b.g.Neighbors(id) {
		if seen[nb.ID] {
			continue
		}
		seen[nb.ID] = true
		if f := b.highlightFeature(nb, b.style.NeighborColor, b.style.Neighbor); f != nil {
			fc.Append(f)
		}
	}
	return fc
}

func (b sceneBuilder) highlightFeature(n *graph.Node, color string, h Highlight) *geojson.Feature {
	pos, ok := b.eng.NodePosition(n.ID)
	if !ok {
		return nil
	}
	f := geojson.NewFeature(b.proj.ToMap(pos))
	f.ID = int64(n.ID)
	f.Properties["id"] = int64(n.ID)
	f.Properties["label"] = n.Data.Label
	f.Properties["color"] = color
	f.Properties["textSize"] = h.TextSize
	f.Properties["size"] = h.Size
	return f
}

// featureNodeID reads the "id" property of a rendered node feature. The
// value is an int64 when the feature was built in-process and a float64
// after a JSON round trip.
func featureNodeID(f *geojson.Feature) (graph.NodeID, bool) {
	if f == nil {
		return 0, false
	}
	switch v := f.Properties["id"].(type) {
	case int64:
		return graph.NodeID(v), true
	case int:
		return graph.NodeID(v), true
	case graph.NodeID:
		return v, true
	case float64:
		return graph.NodeID(v), true
	case json.Number:
		i, err := v.Int64()
		return graph.NodeID(i), err == nil
	}
	return 0, false
}
