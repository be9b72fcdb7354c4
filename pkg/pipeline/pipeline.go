// Package pipeline runs the headless build → settle → render pipeline shared
// by the CLI and the HTTP server.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Build: Fetch clusters and assemble the neighborhood of a root node
//  2. Settle: Run a viewer against an in-memory surface until its layout
//     budget is spent
//  3. Render: Export the settled layout (GeoJSON, SVG, PNG, PDF, DOT, JSON)
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
//	runner := pipeline.NewRunner(builder, c, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Cluster: 42,
//	    Node:    13,
//	    Formats: []string{"geojson", "svg"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	g, err := runner.Build(ctx, opts)
//	settled, err := pipeline.Settle(ctx, g, opts)
//	artifacts, err := runner.Render(ctx, g, settled, opts)
package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/toucan4life/gamemap/pkg/errors"
	"github.com/toucan4life/gamemap/pkg/graph"
	"github.com/toucan4life/gamemap/pkg/layout"
	"github.com/toucan4life/gamemap/pkg/neighborhood"
	"github.com/toucan4life/gamemap/pkg/viewer"
)

// =============================================================================
// Default Values
// =============================================================================

// DefaultDepth is the number of cluster hops explored from the root.
const DefaultDepth = 2

// Format constants for output formats.
const (
	FormatGeoJSON = "geojson"
	FormatSVG     = "svg"
	FormatPNG     = "png"
	FormatPDF     = "pdf"
	FormatDOT     = "dot"
	FormatJSON    = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatGeoJSON: true,
	FormatSVG:     true,
	FormatPNG:     true,
	FormatPDF:     true,
	FormatDOT:     true,
	FormatJSON:    true,
}

// Extension returns the file extension written for format.
func Extension(format string) string {
	if format == FormatGeoJSON {
		return ".geojson"
	}
	return "." + format
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
type Options struct {
	// Build options
	Cluster graph.ClusterID `json:"cluster"`
	Node    graph.NodeID    `json:"node"`
	Depth   int             `json:"depth,omitempty"`

	// Settle options
	Steps       int           `json:"steps,omitempty"`
	ScaleFactor float64       `json:"scale_factor,omitempty"`
	Layout      layout.Config `json:"-"`

	// Render options
	Formats  []string      `json:"formats,omitempty"`
	Style    *viewer.Style `json:"-"`
	Detailed bool          `json:"detailed,omitempty"`
	PNGScale float64       `json:"png_scale,omitempty"`
	Refresh  bool          `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger     *log.Logger                `json:"-"`
	OnProgress neighborhood.ProgressFunc `json:"-"`
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Graph     *graph.Graph
	GraphHash string
	Layout    Layout
	Artifacts map[string][]byte
	Stats     Stats
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount  int
	LinkCount  int
	Frames     int
	BuildTime  time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput,
			"invalid format: %q (must be one of: geojson, svg, png, pdf, dot, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ParseFormats splits a comma-separated format list, dropping blanks and
// duplicates.
func ParseFormats(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range strings.Split(s, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the
// full pipeline.
func (o *Options) ValidateAndSetDefaults() error {
	if err := o.ValidateForBuild(); err != nil {
		return err
	}
	if err := o.ValidateForSettle(); err != nil {
		return err
	}
	return o.ValidateForRender()
}

// ValidateForBuild checks the build fields and applies their defaults.
func (o *Options) ValidateForBuild() error {
	if o.Depth == 0 {
		o.Depth = DefaultDepth
	}
	if err := errors.ValidateDepth(o.Depth); err != nil {
		return err
	}
	o.setLogger()
	return nil
}

// SetLayoutDefaults sets default values for layout computation.
func (o *Options) SetLayoutDefaults() {
	if o.Layout == (layout.Config{}) {
		o.Layout = layout.DefaultConfig()
	}
	if o.Steps <= 0 {
		o.Steps = viewer.DefaultSteps
	}
	if o.ScaleFactor <= 0 {
		o.ScaleFactor = viewer.DefaultScaleFactor
	}
	o.setLogger()
}

// ValidateForSettle validates and sets defaults for layout computation.
func (o *Options) ValidateForSettle() error {
	o.SetLayoutDefaults()
	if err := o.Layout.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "layout")
	}
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatGeoJSON}
	}
	if o.Style == nil {
		s := viewer.DefaultStyle()
		o.Style = &s
	}
	if o.PNGScale <= 0 {
		o.PNGScale = 2
	}
	o.setLogger()
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if err := o.Style.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "style")
	}
	return nil
}

func (o *Options) setLogger() {
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Wants reports whether format was requested.
func (o *Options) Wants(format string) bool {
	for _, f := range o.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// String describes the run for log lines.
func (o *Options) String() string {
	return fmt.Sprintf("cluster %d node %d depth %d", o.Cluster, o.Node, o.Depth)
}
