// Package pkg provides the core libraries of the gamemap client.
//
// # Overview
//
// Gamemap places board games on a map where similar games sit close
// together. The map is partitioned into clusters; each cluster's similarity
// graph is published as a DOT payload. The pkg directory is organized into
// four main areas:
//
//  1. [graph] - The graph model and its DOT and node-link JSON forms
//  2. [fetch], [neighborhood] - Loading clusters and assembling neighborhoods
//  3. [layout], [viewer] - Force-directed layout and its animated projection
//  4. [pipeline] - Headless orchestration (build → settle → render)
//
// # Architecture
//
// The typical data flow:
//
//	Cluster payloads ({graphs}/{cluster}.dot)
//	         ↓
//	    [fetch] package (download, cache, de-duplicate)
//	         ↓
//	    [neighborhood] package (breadth-first search across clusters)
//	         ↓
//	    [layout] package (force simulation, root pinned)
//	         ↓
//	    [viewer] package (frames, GeoJSON scene buffers, selection)
//	         ↓
//	    GeoJSON/SVG/DOT/JSON output or a live map surface
//
// # Quick Start
//
// Build the neighborhood of Catan and settle its layout:
//
//	f := fetch.New(fetch.Options{Endpoint: "https://example.org/data/v3/graphs"})
//	b := neighborhood.New(f, neighborhood.Options{})
//	runner := pipeline.NewRunner(b, nil, nil, nil)
//
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Cluster: 42,
//	    Node:    13,
//	    Formats: []string{pipeline.FormatGeoJSON, pipeline.FormatSVG},
//	})
//
// # Main Packages
//
// [graph] - Undirected multigraph of games and similarity links with
// insertion-ordered iteration.
//
// [fetch] - Cluster downloads with an in-memory graph cache, in-flight
// de-duplication, zlib payloads and a second-level payload cache.
//
// [neighborhood] - Depth-bounded neighborhoods spanning clusters, plus the
// direct-neighbor focus listing.
//
// [layout] - Barnes-Hut force simulation with pinning.
//
// [viewer] - The subgraph viewer state machine, scene buffers, frame
// schedulers, surfaces and selection feed.
//
// [render/nodelink] - Graphviz export of settled layouts.
//
// ## Infrastructure
//
// [cache] - Payload and artifact cache backends (null, file, redis).
//
// [store] - Layout snapshot persistence (memory, MongoDB).
//
// [config] - TOML and YAML configuration.
//
// [errors] - Coded errors shared by every layer.
//
// [observability], [metrics] - Hooks and their Prometheus implementation.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/viewer/...             # Specific package
//	go test -run Example                 # Examples only
//
// [graph]: https://pkg.go.dev/github.com/toucan4life/gamemap/pkg/graph
// [fetch]: https://pkg.go.dev/github.com/toucan4life/gamemap/pkg/fetch
// [neighborhood]: https://pkg.go.dev/github.com/toucan4life/gamemap/pkg/neighborhood
// [layout]: https://pkg.go.dev/github.com/toucan4life/gamemap/pkg/layout
// [viewer]: https://pkg.go.dev/github.com/toucan4life/gamemap/pkg/viewer
// [pipeline]: https://pkg.go.dev/github.com/toucan4life/gamemap/pkg/pipeline
// [render/nodelink]: https://pkg.go.dev/github.com/toucan4life/gamemap/pkg/render/nodelink
// [cache]: https://pkg.go.dev/github.com/toucan4life/gamemap/pkg/cache
// [store]: https://pkg.go.dev/github.com/toucan4life/gamemap/pkg/store
// [config]: https://pkg.go.dev/github.com/toucan4life/gamemap/pkg/config
// [errors]: https://pkg.go.dev/github.com/toucan4life/gamemap/pkg/errors
// [observability]: https://pkg.go.dev/github.com/toucan4life/gamemap/pkg/observability
// [metrics]: https://pkg.go.dev/github.com/toucan4life/gamemap/pkg/metrics
package pkg
