package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/toucan4life/gamemap/pkg/graph"
	"github.com/toucan4life/gamemap/pkg/render"
	"github.com/toucan4life/gamemap/pkg/viewer"
)

// DefaultScale is the number of points per simulation unit.
const DefaultScale = 8.0

// Options configures node-link diagram rendering.
type Options struct {
	// Style supplies node and edge colors. The zero value uses
	// [viewer.DefaultStyle].
	Style *viewer.Style

	// Scale is the number of points per simulation unit.
	Scale float64

	// Selected highlights one node and its links.
	Selected *graph.NodeID

	// Detailed adds rating and complexity to node labels.
	Detailed bool
}

// ToDOT converts a graph and the positions in snap to an undirected
// Graphviz graph with pinned node positions.
func ToDOT(g *graph.Graph, snap viewer.Snapshot, opts Options) string {
	style := viewer.DefaultStyle()
	if opts.Style != nil {
		style = *opts.Style
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = DefaultScale
	}

	pos := make(map[graph.NodeID]viewer.SnapshotNode, len(snap.Nodes))
	for _, n := range snap.Nodes {
		pos[n.ID] = n
	}
	selected := func(id graph.NodeID) bool {
		return opts.Selected != nil && *opts.Selected == id
	}

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  bgcolor=\"#1b1b1f\";\n")
	buf.WriteString("  inputscale=72;\n")
	buf.WriteString("  outputorder=edgesfirst;\n")
	buf.WriteString("  node [shape=circle, style=filled, fixedsize=true, width=0.25, fontsize=9, fontcolor=\"#212121\"];\n")
	buf.WriteString("  edge [penwidth=1.2];\n")
	buf.WriteString("\n")

	for n := range g.Nodes() {
		p, ok := pos[n.ID]
		if !ok {
			continue
		}
		attrs := []string{
			fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed)),
			fmt.Sprintf("pos=\"%s,%s!\"", num(p.X*scale), num(p.Y*scale)),
			fmt.Sprintf("fillcolor=%q", style.NodeColor),
			fmt.Sprintf("tooltip=%q", n.ID.String()),
		}
		if selected(n.ID) {
			attrs = append(attrs, fmt.Sprintf("color=%q", style.SelectedColor), "penwidth=3")
		} else {
			attrs = append(attrs, fmt.Sprintf("color=%q", style.RatingColor(n.Data.Rating)), "penwidth=2")
		}
		if p.Pinned {
			attrs = append(attrs, "shape=doublecircle")
		}
		fmt.Fprintf(&buf, "  %d [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for l := range g.Links() {
		if !l.Data.Visible() {
			continue
		}
		if _, ok := pos[l.From]; !ok {
			continue
		}
		if _, ok := pos[l.To]; !ok {
			continue
		}
		color := style.EdgeColor(l.Data.Weight)
		if selected(l.From) || selected(l.To) {
			color = style.SelectedEdgeColor
		}
		fmt.Fprintf(&buf, "  %d -- %d [color=%q, tooltip=%q];\n", l.From, l.To, color, num(l.Data.Weight))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *graph.Node, detailed bool) string {
	label := n.Data.Label
	if label == "" {
		label = n.ID.String()
	}
	if !detailed {
		return label
	}
	return fmt.Sprintf("%s\nrating: %s\ncomplexity: %s", label, num(n.Data.Rating), num(n.Data.Complexity))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderSVG renders a DOT graph to SVG with the neato engine so that
// pinned positions are kept.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's fixed-size svg header with one that
// scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
