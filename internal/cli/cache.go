package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/toucan4life/gamemap/pkg/cache"
	"github.com/toucan4life/gamemap/pkg/graph"
)

// cacheCommand groups the payload cache subcommands.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the payload cache",
		Long: `Manage the payload cache.

Downloaded cluster payloads and rendered layout artifacts are kept in the
configured cache backend (cache.backend: file or redis) so later runs skip
the network.`,
	}
	cmd.AddCommand(c.cacheClearCommand(), c.cachePathCommand())
	return cmd
}

func (c *CLI) cacheClearCommand() *cobra.Command {
	var clusters []string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached payloads and artifacts",
		Long: `Clear the file cache directory.

With --cluster only the payloads of the given clusters are removed. That
form works with every backend, including redis.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(clusters) > 0 {
				ids := make([]graph.ClusterID, 0, len(clusters))
				for _, s := range clusters {
					id, err := parseCluster(s)
					if err != nil {
						return err
					}
					ids = append(ids, id)
				}
				return c.evictClusters(cmd.Context(), ids)
			}
			return c.clearCacheDir()
		},
	}
	cmd.Flags().StringSliceVar(&clusters, "cluster", nil, "only drop the payloads of these clusters")
	return cmd
}

func (c *CLI) evictClusters(ctx context.Context, ids []graph.ClusterID) error {
	e, err := c.newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.fetcher.Evict(ctx, ids...); err != nil {
		return err
	}
	printSuccess("Dropped %s", plural(len(ids), "cluster payload", "cluster payloads"))
	return nil
}

func (c *CLI) clearCacheDir() error {
	cfg := c.settings()
	if cfg.Cache.Backend == cache.BackendRedis {
		printWarning("Redis entries expire by TTL; use --cluster to drop specific payloads")
		return nil
	}
	dir, err := cfg.CacheDir()
	if err != nil {
		return fmt.Errorf("cache directory: %w", err)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		printInfo("Cache is empty")
		return nil
	}

	n := countFiles(dir)
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return err
	}
	if err := fc.(*cache.FileCache).Clear(); err != nil {
		return fmt.Errorf("clear %s: %w", dir, err)
	}
	printSuccess("Cleared %s", plural(n, "cached entry", "cached entries"))
	printDetail("Directory: %s", dir)
	return nil
}

// countFiles counts the entries below dir, skipping unreadable ones.
func countFiles(dir string) int {
	n := 0
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return nil
	})
	return n
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.settings().CacheDir()
			if err != nil {
				return fmt.Errorf("cache directory: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}
