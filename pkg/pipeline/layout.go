package pipeline

import (
	"context"
	"time"

	"github.com/toucan4life/gamemap/pkg/errors"
	"github.com/toucan4life/gamemap/pkg/graph"
	"github.com/toucan4life/gamemap/pkg/observability"
	"github.com/toucan4life/gamemap/pkg/viewer"
)

// settleBatch is the number of frames run between context checks.
const settleBatch = 25

// Layout is a settled neighborhood: node positions plus the scene the
// viewer last drew.
type Layout struct {
	Snapshot viewer.Snapshot
	Scene    viewer.Scene
	Selected *graph.NodeID
	Frames   int
}

// Settle lays out g headlessly. It drives a viewer over an in-memory
// surface with a manual frame scheduler until the step budget is spent and
// the root is selected, checking ctx between batches of frames.
func Settle(ctx context.Context, g *graph.Graph, opts Options) (Layout, error) {
	if err := opts.ValidateForSettle(); err != nil {
		return Layout{}, err
	}
	if !g.HasNode(opts.Node) {
		return Layout{}, errors.New(errors.ErrCodeNodeNotFound, "node %d not in neighborhood", opts.Node)
	}
	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, g.NodeCount())
	start := time.Now()

	sched := viewer.NewManualScheduler()
	surface := viewer.NewMemorySurface()
	v, err := viewer.New(viewer.Options{
		Graph:       g,
		RootNodeID:  opts.Node,
		Surface:     surface,
		Scheduler:   sched,
		Layout:      opts.Layout,
		Style:       opts.Style,
		Steps:       opts.Steps,
		ScaleFactor: opts.ScaleFactor,
		Logger:      opts.Logger,
	})
	if err != nil {
		return Layout{}, err
	}
	defer v.Dispose()
	surface.Load()

	frames := 0
	for v.State() != viewer.Settled {
		if err := ctx.Err(); err != nil {
			return Layout{}, err
		}
		n := sched.RunUntilIdle(settleBatch)
		if n == 0 {
			break
		}
		frames += n
	}
	if v.State() != viewer.Settled {
		return Layout{}, errors.New(errors.ErrCodeInternal, "layout stopped in state %s", v.State())
	}

	snap, _ := v.Snapshot()
	scene, _ := v.Scene()
	out := Layout{Snapshot: snap, Scene: scene, Frames: frames}
	if id, ok := v.Selected(); ok {
		out.Selected = &id
	}

	hooks.OnLayoutComplete(ctx, snap.Steps, time.Since(start))
	opts.Logger.Debug("layout settled", "nodes", len(snap.Nodes), "steps", snap.Steps, "frames", frames)
	return out, nil
}
