package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/toucan4life/gamemap/pkg/graph"
	"github.com/toucan4life/gamemap/pkg/neighborhood"
)

// neighborhoodCommand creates the neighborhood command.
func (c *CLI) neighborhoodCommand() *cobra.Command {
	var (
		output string
		depth  int
	)

	cmd := &cobra.Command{
		Use:   "neighborhood <cluster> <node>",
		Short: "Build the neighborhood of a game across clusters",
		Long: `Build the neighborhood of a game: every game within --depth hops,
following links into neighboring clusters.

With -o the neighborhood is written as DOT (.dot) or node-link JSON.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cluster, node, err := parseTarget(args)
			if err != nil {
				return err
			}
			return c.runNeighborhood(cmd.Context(), cluster, node, depth, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the neighborhood to this file (.dot or .json)")
	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "hops from the root (default from config)")

	return cmd
}

func (c *CLI) runNeighborhood(ctx context.Context, cluster graph.ClusterID, node graph.NodeID, depth int, output string) error {
	logger := loggerFromContext(ctx)
	e, err := c.newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	opts := c.pipelineOptions(cluster, node, depth)
	opts.OnProgress = progressLogger(logger, log.InfoLevel)

	prog := newProgress(logger)
	g, err := c.newRunner(e).Build(ctx, opts)
	if err != nil {
		return fmt.Errorf("build neighborhood: %w", err)
	}
	prog.done("Built neighborhood", "games", g.NodeCount())

	printSuccess("Neighborhood of %d (depth %d)", node, opts.Depth)
	printStats(g.NodeCount(), g.LinkCount(), false)
	printDetail("%d clusters loaded", e.fetcher.Len())
	if output != "" {
		if err := graph.WriteFile(g, output); err != nil {
			return err
		}
		printFile(output)
	}
	printNewline()
	printNextStep("Lay out", fmt.Sprintf("%s layout %d %d", appName, cluster, node))
	return nil
}

// neighborsCommand creates the neighbors command.
func (c *CLI) neighborsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "neighbors <cluster> <node>",
		Short: "List the direct neighbors of a game",
		Long:  `List the direct neighbors of a game within its cluster, strongest link first.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cluster, node, err := parseTarget(args)
			if err != nil {
				return err
			}
			e, err := c.newEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			ns, err := e.builder.Neighbors(cmd.Context(), cluster, node)
			if err != nil {
				return err
			}
			writeNeighborTable(cmd.OutOrStdout(), node, ns)
			return nil
		},
	}
}

// writeNeighborTable renders ns as a bordered table.
func writeNeighborTable(w io.Writer, node graph.NodeID, ns []neighborhood.Neighbor) {
	if len(ns) == 0 {
		fmt.Fprintln(w, StyleDim.Render(fmt.Sprintf("Game %d has no neighbors", node)))
		return
	}
	rows := make([][]string, 0, len(ns))
	for i, n := range ns {
		cluster := "-"
		if n.Data.Cluster != nil {
			cluster = n.Data.Cluster.String()
		}
		status := n.Status
		if status == "" {
			status = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			n.ID.String(),
			n.Data.Label,
			cluster,
			strconv.FormatFloat(n.Weight, 'f', 4, 64),
			status,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "ID", "Game", "Cluster", "Weight", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 4:
				return lipgloss.NewStyle().Foreground(colorCyan)
			case col == 0 || col == 5:
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		})

	fmt.Fprintln(w, StyleTitle.Render(fmt.Sprintf("Neighbors of %d", node)))
	fmt.Fprintln(w, t.Render())
}
