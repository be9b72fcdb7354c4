// Package viewer animates the force layout of a neighborhood graph onto a
// map-like rendering surface.
//
// A [Viewer] owns one [layout.Engine] and drives it one step per frame
// through a [Scheduler]. After every step it rebuilds three GeoJSON scene
// buffers and hands them to a [Surface]:
//
//   - [SourceNodes]: one point per laid-out node
//   - [SourceEdges]: one line per visible link, selected links last
//   - [SourceSelectedNodes]: the selected node and its direct neighbors
//
// Simulation coordinates are divided by the projection scale to obtain
// map coordinates; see [Projection].
//
// # Lifecycle
//
// A viewer starts in [Initializing]. Once the surface reports that it has
// loaded and the graph is available, it enters [LayingOut] and steps until
// its budget is exhausted, then moves to [Settled] and selects the root
// node. [Viewer.ResumeLayout] starts a new budget; [Viewer.Dispose] is
// terminal and cancels any pending frame.
//
// # Testing
//
// [ManualScheduler] and [MemorySurface] make the frame loop fully
// deterministic:
//
//	sched := viewer.NewManualScheduler()
//	surface := viewer.NewMemorySurface()
//	v, _ := viewer.New(viewer.Options{Graph: g, Surface: surface, Scheduler: sched})
//	surface.Load()
//	sched.RunUntilIdle(1000)
package viewer
