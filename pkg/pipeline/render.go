package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/toucan4life/gamemap/pkg/graph"
	"github.com/toucan4life/gamemap/pkg/render/nodelink"
	"github.com/toucan4life/gamemap/pkg/viewer"
)

// Export is the document written for the json format: the neighborhood in
// node-link form plus the settled positions.
type Export struct {
	Graph  graph.Document  `json:"graph"`
	Layout viewer.Snapshot `json:"layout"`
}

// RenderLayout generates output artifacts in the requested formats.
func RenderLayout(ctx context.Context, g *graph.Graph, l Layout, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))

	var dot string
	if opts.Wants(FormatSVG) || opts.Wants(FormatPNG) || opts.Wants(FormatPDF) || opts.Wants(FormatDOT) {
		dot = nodelink.ToDOT(g, l.Snapshot, nodelink.Options{
			Style:    opts.Style,
			Selected: l.Selected,
			Detailed: opts.Detailed,
		})
	}

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatGeoJSON:
			data, err = json.Marshal(l.Scene.Collection())
		case FormatSVG:
			data, err = nodelink.RenderSVG(ctx, dot)
		case FormatPNG:
			data, err = nodelink.RenderPNG(ctx, dot, opts.PNGScale)
		case FormatPDF:
			data, err = nodelink.RenderPDF(ctx, dot)
		case FormatDOT:
			data = []byte(dot)
		case FormatJSON:
			data, err = renderJSON(g, l)
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

func renderJSON(g *graph.Graph, l Layout) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Export{Graph: graph.ToDocument(g), Layout: l.Snapshot}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
