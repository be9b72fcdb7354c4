package nodelink

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/toucan4life/gamemap/pkg/graph"
	"github.com/toucan4life/gamemap/pkg/viewer"
)

func testInput() (*graph.Graph, viewer.Snapshot) {
	g := graph.New()
	g.AddNode(13, graph.NodeData{Label: "Catan", Rating: 7.1})
	g.AddNode(822, graph.NodeData{Label: "Carcassonne", Rating: 7.4, Complexity: 1.9})
	g.AddNode(68448, graph.NodeData{Label: "7 Wonders"})
	g.AddNode(5, graph.NodeData{Label: "Unplaced"})
	g.AddLink(13, 822, graph.LinkData{Weight: 0.2})
	g.AddLink(13, 68448, graph.LinkData{Weight: 0.05, Status: "hidden"})
	g.AddLink(822, 5, graph.LinkData{Weight: 0.3})

	snap := viewer.Snapshot{
		Root: 13,
		Nodes: []viewer.SnapshotNode{
			{ID: 13, Pinned: true},
			{ID: 822, X: 10, Y: -2.5},
			{ID: 68448, X: -4, Y: 6},
		},
	}
	return g, snap
}

func TestToDOT(t *testing.T) {
	g, snap := testInput()
	dot := ToDOT(g, snap, Options{Scale: 2})

	tests := []struct {
		name string
		want string
		in   bool
	}{
		{"pinned root", `13 [label="Catan", pos="0,0!"`, true},
		{"scaled position", `pos="20,-5!"`, true},
		{"root marked", "shape=doublecircle", true},
		{"visible link", "13 -- 822", true},
		{"edge band color", `color="#ff5722"`, true},
		{"node fill", `fillcolor="#EAEDEF"`, true},
		{"rating outline", `tooltip="13", color="#00ff88", penwidth=2`, true},
		{"hidden link", "13 -- 68448", false},
		{"unplaced node", "Unplaced", false},
		{"link to unplaced node", "822 -- 5", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strings.Contains(dot, tt.want); got != tt.in {
				t.Errorf("contains %q = %v, want %v\n%s", tt.want, got, tt.in, dot)
			}
		})
	}
}

func TestToDOTSelection(t *testing.T) {
	g, snap := testInput()
	sel := graph.NodeID(822)
	style := viewer.DefaultStyle()
	dot := ToDOT(g, snap, Options{Selected: &sel, Style: &style})

	if !strings.Contains(dot, `color="`+style.SelectedColor+`", penwidth=3`) {
		t.Errorf("selected node not highlighted:\n%s", dot)
	}
	if !strings.Contains(dot, `13 -- 822 [color="`+style.SelectedEdgeColor+`"`) {
		t.Errorf("selected link not highlighted:\n%s", dot)
	}
}

func TestDetailedLabel(t *testing.T) {
	g, snap := testInput()
	dot := ToDOT(g, snap, Options{Detailed: true})
	if !strings.Contains(dot, `Carcassonne\nrating: 7.4\ncomplexity: 1.9`) {
		t.Errorf("detailed label missing:\n%s", dot)
	}
}

func TestRenderSVG(t *testing.T) {
	g, snap := testInput()
	svg, err := RenderSVG(context.Background(), ToDOT(g, snap, Options{}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) || !bytes.Contains(svg, []byte(`viewBox="0 0 `)) {
		t.Errorf("unexpected SVG header: %.200s", svg)
	}
}

func TestRenderSVGInvalid(t *testing.T) {
	if _, err := RenderSVG(context.Background(), "graph G { 1 -- }"); err == nil {
		t.Error("expected parse error")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 10.00 20.00"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.HasPrefix(out, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 10.00 20.00" width="10" height="20">`) {
		t.Errorf("normalizeViewBox = %s", out)
	}
	if got := normalizeViewBox([]byte("<svg>")); string(got) != "<svg>" {
		t.Errorf("no viewBox should be unchanged, got %s", got)
	}
}
