package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/toucan4life/gamemap/pkg/cache"
	"github.com/toucan4life/gamemap/pkg/graph"
	"github.com/toucan4life/gamemap/pkg/neighborhood"
	"github.com/toucan4life/gamemap/pkg/observability"
)

// Runner encapsulates pipeline execution with artifact caching.
// Both CLI and API use it so that they settle and render identically.
//
// The Runner is stateless except for its builder, cache and logger.
// Multiple goroutines can safely use the same Runner with different options.
type Runner struct {
	Builder *neighborhood.Builder
	Cache   cache.Cache
	Keyer   cache.Keyer
	Logger  *log.Logger
}

// NewRunner creates a runner around a neighborhood builder.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(b *neighborhood.Builder, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Builder: b,
		Cache:   c,
		Keyer:   keyer,
		Logger:  logger,
	}
}

// Execute runs the complete build → settle → render pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{}

	// Stage 1: Build
	buildStart := time.Now()
	g, err := r.Build(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Graph = g
	result.GraphHash = graphHash(g)
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.LinkCount = g.LinkCount()

	r.Logger.Info("built neighborhood",
		"nodes", g.NodeCount(),
		"links", g.LinkCount(),
		"duration", result.Stats.BuildTime)

	// Stage 2: Settle
	layoutStart := time.Now()
	l, err := Settle(ctx, g, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.Layout = l
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.Frames = l.Frames

	r.Logger.Info("settled layout",
		"steps", l.Snapshot.Steps,
		"duration", result.Stats.LayoutTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, g, l, opts)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = hit

	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", hit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Build assembles the neighborhood of opts.Node.
func (r *Runner) Build(ctx context.Context, opts Options) (*graph.Graph, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForBuild(); err != nil {
		return nil, err
	}
	return r.Builder.Build(ctx, opts.Cluster, opts.Node, opts.Depth, opts.OnProgress)
}

// RenderWithCacheInfo renders artifacts, reusing cached ones when every
// requested format is present, and reports whether that happened.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *graph.Graph, l Layout, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	hooks := observability.Pipeline()
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()

	hash := graphHash(g)
	keys := make(map[string]string, len(opts.Formats))
	for _, format := range opts.Formats {
		keys[format] = r.Keyer.ArtifactKey(hash, r.artifactKeyOpts(format, opts))
	}

	if !opts.Refresh {
		artifacts := make(map[string][]byte, len(opts.Formats))
		for format, key := range keys {
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), nil)
			return artifacts, true, nil
		}
	}

	rendered, err := RenderLayout(ctx, g, l, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range rendered {
		if err := r.Cache.Set(ctx, keys[format], data, cache.TTLArtifact); err != nil {
			r.Logger.Debug("artifact cache write failed", "format", format, "error", err)
		}
	}
	return rendered, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Render(ctx context.Context, g *graph.Graph, l Layout, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, g, l, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) artifactKeyOpts(format string, opts Options) cache.ArtifactKeyOpts {
	settle := struct {
		Layout any     `json:"layout"`
		Scale  float64 `json:"scale"`
	}{opts.Layout, opts.ScaleFactor}
	return cache.ArtifactKeyOpts{
		Format:     format,
		Root:       int64(opts.Node),
		Steps:      opts.Steps,
		LayoutHash: cache.HashJSON(settle),
		StyleHash:  cache.HashJSON(opts.Style),
		Detailed:   opts.Detailed,
	}
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func graphHash(g *graph.Graph) string {
	var buf bytes.Buffer
	if err := graph.WriteJSON(g, &buf); err != nil {
		return ""
	}
	return cache.Hash(buf.Bytes())
}
