package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/toucan4life/gamemap/pkg/graph"
	"github.com/toucan4life/gamemap/pkg/viewer"
)

// viewCommand creates the view command for the interactive terminal viewer.
func (c *CLI) viewCommand() *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "view <cluster> <node>",
		Short: "Watch a neighborhood layout settle in the terminal",
		Long: `Build the neighborhood of a game and run the force layout interactively.

Keys: s stops the layout, r restarts it, n and p cycle the selection through
the neighbors of the selected game, c recenters on the root, q quits.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cluster, node, err := parseTarget(args)
			if err != nil {
				return err
			}
			return c.runView(cmd.Context(), cluster, node, depth)
		},
	}

	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "hops from the root (default from config)")

	return cmd
}

func (c *CLI) runView(ctx context.Context, cluster graph.ClusterID, node graph.NodeID, depth int) error {
	e, err := c.newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	ev := newEvents()
	defer ev.close()
	v, surface, err := c.newViewer(e, ev, cluster, node, depth)
	if err != nil {
		return err
	}
	defer v.Dispose()

	title := fmt.Sprintf("%s · cluster %d · game %d", appName, cluster, node)
	p := tea.NewProgram(newViewModel(v, surface, ev, title), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("viewer: %w", err)
	}
	return v.Err()
}

// newViewer starts a viewer that loads the neighborhood asynchronously and
// reports through ev.
func (c *CLI) newViewer(e *env, ev *events, cluster graph.ClusterID, node graph.NodeID, depth int) (*viewer.Viewer, *viewer.MemorySurface, error) {
	cfg := c.settings()
	if depth <= 0 {
		depth = cfg.Fetch.Depth
	}
	surface := viewer.NewMemorySurface()
	if cfg.Viewer.HitRadius > 0 {
		surface.HitRadius = cfg.Viewer.HitRadius
	}
	style := cfg.Style

	v, err := viewer.New(viewer.Options{
		Load: func(ctx context.Context) (*graph.Graph, error) {
			return e.builder.Build(ctx, cluster, node, depth, func(msg string) { ev.send(logMsg(msg)) })
		},
		RootNodeID:           node,
		Surface:              surface,
		Scheduler:            viewer.NewTimerScheduler(cfg.Viewer.FrameInterval),
		Layout:               cfg.Layout,
		Style:                &style,
		Steps:                cfg.Viewer.Steps,
		ScaleFactor:          cfg.Viewer.ScaleFactor,
		FitPadding:           cfg.Viewer.FitPadding,
		OnLayoutStatusChange: func(running bool) { ev.send(statusMsg(running)) },
		OnNodeClicked:        func(info viewer.NodeInfo) { ev.send(clickMsg(info)) },
		OnError:              func(err error) { ev.send(loadErrMsg{err: err}) },
		Logger:               c.Logger,
	})
	if err != nil {
		return nil, nil, err
	}
	surface.Load()
	return v, surface, nil
}
