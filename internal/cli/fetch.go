package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/toucan4life/gamemap/pkg/graph"
)

// fetchCommand creates the fetch command for downloading one cluster graph.
func (c *CLI) fetchCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fetch <cluster>",
		Short: "Download one cluster graph",
		Long: `Download the similarity graph of one cluster and print its size.

With -o the graph is written as DOT (.dot) or node-link JSON (any other
extension). Payloads are kept in the payload cache unless --no-cache is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cluster, err := parseCluster(args[0])
			if err != nil {
				return err
			}
			return c.runFetch(cmd.Context(), cluster, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the graph to this file (.dot or .json)")

	return cmd
}

func (c *CLI) runFetch(ctx context.Context, cluster graph.ClusterID, output string) error {
	logger := loggerFromContext(ctx)
	e, err := c.newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	prog := newProgress(logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Fetching cluster %d...", cluster))
	spinner.Start()

	g, err := e.fetcher.Fetch(ctx, cluster)
	if err != nil {
		spinner.StopWithError("Fetch failed")
		return fmt.Errorf("fetch cluster %d: %w", cluster, err)
	}
	spinner.Stop()
	prog.done("Fetched cluster", "cluster", cluster, "games", g.NodeCount())

	printSuccess("Cluster %d", cluster)
	printStats(g.NodeCount(), g.LinkCount(), false)
	if output != "" {
		if err := graph.WriteFile(g, output); err != nil {
			return err
		}
		printFile(output)
	}
	return nil
}
