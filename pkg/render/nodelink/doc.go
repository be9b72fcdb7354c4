// Package nodelink draws a settled neighborhood layout as a node-link
// diagram.
//
// # Usage
//
// Convert a graph and a viewer snapshot to DOT, then render to SVG:
//
//	snap, _ := v.Snapshot()
//	dot := nodelink.ToDOT(g, snap, nodelink.Options{Style: viewer.DefaultStyle()})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Positions
//
// Every node is written with a pinned position (pos="x,y!") taken from the
// snapshot's simulation coordinates, and [RenderSVG] uses the neato engine,
// which honors pinned positions. The diagram therefore matches the map
// view rather than a fresh Graphviz layout. Nodes missing from the snapshot
// are left out, as are links to them.
//
// # Styling
//
// Node fill follows the rating color ramp, edge color follows the edge
// weight bands, and the selected node (if any) and its links use the
// selection colors of the given [viewer.Style].
package nodelink
