package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/toucan4life/gamemap/pkg/pipeline"
)

// layoutOpts holds the command-line flags for the layout command.
type layoutOpts struct {
	output   string  // base path for artifacts
	formats  string  // comma-separated output formats
	depth    int     // hops from the root
	steps    int     // simulation steps
	detailed bool    // rating and complexity in SVG labels
	pngScale float64 // PNG scale factor
	refresh  bool    // bypass cached artifacts
}

// layoutCommand creates the layout command for settling a neighborhood layout.
func (c *CLI) layoutCommand() *cobra.Command {
	var lo layoutOpts

	cmd := &cobra.Command{
		Use:   "layout <cluster> <node>",
		Short: "Settle a neighborhood layout and export it",
		Long: `Settle a neighborhood layout headlessly and export it.

The layout runs the same force simulation as the interactive viewer for the
configured number of steps, then selects the root game. Supported formats are
geojson (nodes and links), svg, png and pdf (graphviz with pinned positions),
dot and json (graph plus positions).

Rendered artifacts are cached locally for faster subsequent runs.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cluster, node, err := parseTarget(args)
			if err != nil {
				return err
			}
			opts := c.pipelineOptions(cluster, node, lo.depth)
			if lo.steps > 0 {
				opts.Steps = lo.steps
			}
			opts.Formats = pipeline.ParseFormats(lo.formats)
			if len(opts.Formats) == 0 {
				opts.Formats = []string{pipeline.FormatGeoJSON}
			}
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			opts.Detailed = lo.detailed
			opts.PNGScale = lo.pngScale
			opts.Refresh = lo.refresh

			base := lo.output
			if base == "" {
				base = fmt.Sprintf("%d-%d", cluster, node)
			}
			return c.runLayout(cmd.Context(), opts, base)
		},
	}

	cmd.Flags().StringVarP(&lo.output, "output", "o", "", "output base path (default: <cluster>-<node>)")
	cmd.Flags().StringVarP(&lo.formats, "format", "f", pipeline.FormatGeoJSON, "output format(s): geojson, svg, png, pdf, dot, json (comma-separated)")
	cmd.Flags().IntVarP(&lo.depth, "depth", "d", 0, "hops from the root (default from config)")
	cmd.Flags().IntVar(&lo.steps, "steps", 0, "simulation steps (default from config)")
	cmd.Flags().BoolVar(&lo.detailed, "detailed", false, "show rating and complexity in labels")
	cmd.Flags().Float64Var(&lo.pngScale, "png-scale", 2, "PNG scale factor")
	cmd.Flags().BoolVar(&lo.refresh, "refresh", false, "re-render even when artifacts are cached")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)

	return cmd
}

// runLayout builds, settles and renders, then writes one file per format.
func (c *CLI) runLayout(ctx context.Context, opts pipeline.Options, base string) error {
	logger := loggerFromContext(ctx)
	e, err := c.newEnv(ctx)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	runner := c.newRunner(e)
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Laying out %d...", opts.Node))
	opts.Logger = logger
	logProgress := progressLogger(logger, log.DebugLevel)
	opts.OnProgress = func(msg string) {
		logProgress(msg)
		spinner.Update(msg)
	}
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return fmt.Errorf("layout: %w", err)
	}
	spinner.Stop()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	paths, err := writeArtifacts(result.Artifacts, opts.Formats, base)
	if err != nil {
		return err
	}

	printSuccess("Layout complete (%d frames)", result.Stats.Frames)
	for _, p := range paths {
		printFile(p)
	}
	printStats(result.Stats.NodeCount, result.Stats.LinkCount, result.CacheInfo.RenderHit)
	printNewline()
	printNextStep("Explore", fmt.Sprintf("%s view %d %d", appName, opts.Cluster, opts.Node))
	return nil
}

// writeArtifacts writes artifacts[format] to base plus the format's
// extension, in the order of formats.
func writeArtifacts(artifacts map[string][]byte, formats []string, base string) ([]string, error) {
	base = strings.TrimSuffix(base, ".")
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		data, ok := artifacts[f]
		if !ok {
			continue
		}
		path := base + pipeline.Extension(f)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
