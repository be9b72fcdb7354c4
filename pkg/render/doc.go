// Package render converts rendered layouts between output formats.
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg).
//
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0)  // 2x scale
//
// # Node-Link Diagrams
//
// The [nodelink] subpackage draws a settled neighborhood layout with
// Graphviz, keeping every node at the position the force simulation gave it.
//
// [nodelink]: github.com/toucan4life/gamemap/pkg/render/nodelink
package render
