// Package cli implements the gamemap command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/toucan4life/gamemap/pkg/buildinfo"
	"github.com/toucan4life/gamemap/pkg/cache"
	"github.com/toucan4life/gamemap/pkg/config"
	"github.com/toucan4life/gamemap/pkg/fetch"
	"github.com/toucan4life/gamemap/pkg/graph"
	"github.com/toucan4life/gamemap/pkg/neighborhood"
	"github.com/toucan4life/gamemap/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	noCache    bool
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Gamemap explores board-game similarity maps",
		Long: `Gamemap downloads per-cluster similarity graphs of board games, assembles
the neighborhood of a game across clusters and lays it out on the map with
a force-directed simulation.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/gamemap/config.toml)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the payload cache")

	// Register all subcommands
	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.neighborhoodCommand())
	root.AddCommand(c.neighborsCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.viewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads the configuration and attaches the logger to the command
// context.
func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	path := c.configPath
	if path == "" {
		if p, ok := config.DefaultPath(); ok {
			path = p
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if c.noCache {
		cfg.Cache.Backend = cache.BackendNone
	}
	if path != "" {
		c.Logger.Debug("loaded config", "path", path)
	}
	c.cfg = cfg

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(withLogger(ctx, c.Logger))
	return nil
}

// settings returns the loaded configuration, or the defaults before setup ran.
func (c *CLI) settings() *config.Config {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

// =============================================================================
// Collaborator Factory
// =============================================================================

// env bundles the collaborators shared by the data commands.
type env struct {
	cache   cache.Cache
	fetcher *fetch.Fetcher
	builder *neighborhood.Builder
}

// newEnv opens the payload cache and wires a fetcher and builder to it.
func (c *CLI) newEnv(ctx context.Context) (*env, error) {
	cfg := c.settings()
	pc, err := c.newCache(ctx)
	if err != nil {
		return nil, err
	}
	f := fetch.New(fetch.Options{
		Endpoint:           cfg.Endpoints.Graphs,
		CompressedEndpoint: cfg.Endpoints.CompressedGraphs,
		Compressed:         cfg.Fetch.Compressed,
		HTTPClient:         fetch.NewHTTPClient(cfg.Fetch.Timeout),
		Cache:              pc,
		CacheTTL:           cfg.Cache.TTL,
		Parallelism:        cfg.Fetch.Parallelism,
		Logger:             c.Logger,
		OnDownload: func(p fetch.DownloadProgress) {
			if p.BytesReceived == p.TotalBytes {
				c.Logger.Debug("downloaded", "file", p.FileName, "bytes", p.BytesReceived)
			}
		},
	})
	b := neighborhood.New(f, neighborhood.Options{
		Parallelism: cfg.Fetch.Parallelism,
		Logger:      c.Logger,
	})
	return &env{cache: pc, fetcher: f, builder: b}, nil
}

// Close releases the payload cache.
func (e *env) Close() error {
	return e.cache.Close()
}

// newRunner creates a pipeline runner sharing the env's cache.
func (c *CLI) newRunner(e *env) *pipeline.Runner {
	return pipeline.NewRunner(e.builder, e.cache, nil, c.Logger)
}

func (c *CLI) newCache(ctx context.Context) (cache.Cache, error) {
	cfg := c.settings()
	if cfg.Cache.Backend == "" || cfg.Cache.Backend == cache.BackendNone {
		return cache.NewNullCache(), nil
	}
	dir, err := cfg.CacheDir()
	if err != nil {
		c.Logger.Warn("no cache directory, caching disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	pc, err := cache.Open(ctx, cache.Options{
		Backend:   cfg.Cache.Backend,
		Dir:       dir,
		RedisAddr: cfg.Cache.RedisAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", cfg.Cache.Backend, err)
	}
	return pc, nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// pipelineOptions fills pipeline options from the configuration.
func (c *CLI) pipelineOptions(cluster graph.ClusterID, node graph.NodeID, depth int) pipeline.Options {
	cfg := c.settings()
	style := cfg.Style
	opts := pipeline.Options{
		Cluster:     cluster,
		Node:        node,
		Depth:       depth,
		Steps:       cfg.Viewer.Steps,
		ScaleFactor: cfg.Viewer.ScaleFactor,
		Layout:      cfg.Layout,
		Style:       &style,
	}
	if opts.Depth <= 0 {
		opts.Depth = cfg.Fetch.Depth
	}
	return opts
}

// parseTarget parses the <cluster> <node> positional arguments.
func parseTarget(args []string) (graph.ClusterID, graph.NodeID, error) {
	cluster, err := parseCluster(args[0])
	if err != nil {
		return 0, 0, err
	}
	node, err := graph.ParseNodeID(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("node: %w", err)
	}
	return cluster, node, nil
}

func parseCluster(s string) (graph.ClusterID, error) {
	id, err := graph.ParseClusterID(s)
	if err != nil {
		return 0, fmt.Errorf("cluster: %w", err)
	}
	return id, nil
}
