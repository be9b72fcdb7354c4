package viewer

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/toucan4life/gamemap/pkg/errors"
	"github.com/toucan4life/gamemap/pkg/graph"
	"github.com/toucan4life/gamemap/pkg/layout"
	"github.com/toucan4life/gamemap/pkg/observability"
)

// Defaults applied by [New].
const (
	DefaultSteps      = 400
	DefaultFitPadding = 20
)

// LoadFunc produces the graph asynchronously. ctx is cancelled when the
// viewer is disposed.
type LoadFunc func(ctx context.Context) (*graph.Graph, error)

// NodeInfo describes a node for a details panel.
type NodeInfo struct {
	ID      graph.NodeID     `json:"id"`
	Label   string           `json:"label"`
	Lat     float64          `json:"lat"`
	Lon     float64          `json:"lon"`
	Cluster *graph.ClusterID `json:"cluster_id,omitempty"`
}

// Options configures a [Viewer].
type Options struct {
	// Graph is the neighborhood to lay out. Exactly one of Graph and Load
	// must be set.
	Graph *graph.Graph
	Load  LoadFunc

	// RootNodeID is pinned during layout and selected once it settles.
	RootNodeID graph.NodeID

	Surface   Surface
	Scheduler Scheduler // defaults to a TimerScheduler

	Layout      layout.Config // zero value means layout.DefaultConfig()
	Style       *Style        // nil means DefaultStyle()
	Steps       int           // step budget per layout run
	ScaleFactor float64
	FitPadding  float64

	// OnLayoutStatusChange is called with true when stepping starts and
	// false when it stops.
	OnLayoutStatusChange func(running bool)

	// OnNodeClicked is called when a click on the surface selects a node.
	OnNodeClicked func(NodeInfo)

	// OnError is called when Load fails.
	OnError func(error)

	// Feed delivers external selection changes.
	Feed *Feed

	Logger *log.Logger
}

type pendingSelection struct {
	id   graph.NodeID
	view bool
}

// Viewer animates a force layout of one graph onto a [Surface]. Its methods
// are safe for concurrent use. Callbacks run without internal locks held and
// may call back into the viewer.
type Viewer struct {
	opts    Options
	surface Surface
	sched   Scheduler
	proj    Projection
	logger  *log.Logger
	hooks   observability.ViewerHooks

	ctx    context.Context
	cancel context.CancelFunc
	loaded chan struct{}

	mu           sync.Mutex
	state        State
	g            *graph.Graph
	eng          *layout.Engine
	builder      sceneBuilder
	scene        Scene
	stepsLeft    int
	frame        FrameID
	gen          uint64
	surfaceReady bool
	selected     graph.NodeID
	hasSelected  bool
	pending      *pendingSelection
	err          error
	unsubscribe  func()
	events       []func()
}

// New creates a viewer and registers it with the surface. Layout starts
// once the surface has loaded and the graph is available.
func New(opts Options) (*Viewer, error) {
	if opts.Surface == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "viewer requires a surface")
	}
	if (opts.Graph == nil) == (opts.Load == nil) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "viewer requires exactly one of Graph and Load")
	}
	if opts.Scheduler == nil {
		opts.Scheduler = NewTimerScheduler(DefaultFrameInterval)
	}
	if opts.Layout == (layout.Config{}) {
		opts.Layout = layout.DefaultConfig()
	}
	if err := opts.Layout.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "layout")
	}
	if opts.Style == nil {
		s := DefaultStyle()
		opts.Style = &s
	}
	if err := opts.Style.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "style")
	}
	if opts.Steps <= 0 {
		opts.Steps = DefaultSteps
	}
	if opts.ScaleFactor <= 0 {
		opts.ScaleFactor = DefaultScaleFactor
	}
	if opts.FitPadding < 0 {
		opts.FitPadding = 0
	} else if opts.FitPadding == 0 {
		opts.FitPadding = DefaultFitPadding
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	ctx, cancel := context.WithCancel(context.Background())
	v := &Viewer{
		opts:    opts,
		surface: opts.Surface,
		sched:   opts.Scheduler,
		proj:    Projection{Scale: opts.ScaleFactor},
		logger:  logger.With("root", opts.RootNodeID),
		hooks:   observability.Viewer(),
		ctx:     ctx,
		cancel:  cancel,
		loaded:  make(chan struct{}),
		scene:   emptyScene(),
	}

	if opts.Graph != nil {
		v.g = opts.Graph
		close(v.loaded)
	} else {
		go v.load(opts.Load)
	}
	if opts.Feed != nil {
		v.unsubscribe = opts.Feed.Subscribe(v.HandleSelectionChange)
	}
	v.surface.OnLoad(v.handleLoad)
	return v, nil
}

// =============================================================================
// Public API
// =============================================================================

// Dispose stops the viewer for good: it cancels the pending frame and any
// in-flight load, unsubscribes from the feed and removes the surface.
// Results arriving afterwards are discarded.
func (v *Viewer) Dispose() {
	v.mu.Lock()
	if v.state == Disposed {
		v.mu.Unlock()
		return
	}
	v.cancelFrame()
	v.pending = nil
	v.setState(Disposed)
	v.cancel()
	unsubscribe := v.unsubscribe
	v.unsubscribe = nil
	v.surface.Remove()
	v.unlockAndDispatch()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// StopLayout settles a running layout immediately, keeping current
// positions.
func (v *Viewer) StopLayout() {
	v.mu.Lock()
	defer v.unlockAndDispatch()
	if v.state != LayingOut {
		return
	}
	v.cancelFrame()
	v.settle()
	if v.pending != nil {
		v.scheduleFrame()
	}
}

// ResumeLayout restarts stepping with a full budget. It clears the scene
// buffers and the selection; the root node is selected again when the
// layout settles. It has no effect before the layout has started or after
// Dispose.
func (v *Viewer) ResumeLayout() {
	v.mu.Lock()
	defer v.unlockAndDispatch()
	if v.state == Disposed || v.eng == nil {
		return
	}
	v.stepsLeft = v.opts.Steps
	v.hasSelected = false
	v.pending = nil
	v.scene = emptyScene()
	v.surface.SetData(SourceNodes, v.scene.Nodes)
	v.surface.SetData(SourceSelectedNodes, v.scene.Highlights)
	v.surface.SetData(SourceEdges, v.scene.Edges)

	wasRunning := v.state == LayingOut
	v.setState(LayingOut)
	if !wasRunning {
		v.emitStatus(true)
	}
	if v.frame == 0 {
		v.scheduleFrame()
	}
}

// HandleSelectionChange selects id and centers the view on it. Unknown ids
// and the current selection are ignored. If the surface is busy the
// selection is retried on the next frame.
func (v *Viewer) HandleSelectionChange(id graph.NodeID) {
	v.mu.Lock()
	defer v.unlockAndDispatch()
	if v.state == Disposed || v.eng == nil {
		return
	}
	v.selectNode(id, true)
	if v.pending != nil && v.frame == 0 {
		v.scheduleFrame()
	}
}

// Coordinates returns the map position and details of id.
func (v *Viewer) Coordinates(id graph.NodeID) (NodeInfo, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.eng == nil {
		return NodeInfo{}, false
	}
	pos, ok := v.eng.NodePosition(id)
	if !ok {
		return NodeInfo{}, false
	}
	return v.info(id, v.proj.ToMap(pos))
}

// Recenter flies to the selected node, or to the root when nothing is
// selected.
func (v *Viewer) Recenter() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state == Disposed || v.eng == nil {
		return false
	}
	id := v.opts.RootNodeID
	if v.hasSelected {
		id = v.selected
	}
	pos, ok := v.eng.NodePosition(id)
	if !ok {
		return false
	}
	v.surface.FlyTo(v.proj.ToMap(pos))
	return true
}

// State returns the current lifecycle state.
func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// StepsLeft returns the remaining step budget.
func (v *Viewer) StepsLeft() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stepsLeft
}

// Selected returns the selected node.
func (v *Viewer) Selected() (graph.NodeID, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected, v.hasSelected
}

// Root returns the pinned root node id.
func (v *Viewer) Root() graph.NodeID { return v.opts.RootNodeID }

// Graph returns the viewer's graph, or nil while it is still loading.
func (v *Viewer) Graph() *graph.Graph {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.g
}

// Err returns the load error, if any.
func (v *Viewer) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// LoadDone is closed once the graph is available, the load failed, or its
// result was discarded.
func (v *Viewer) LoadDone() <-chan struct{} { return v.loaded }

// Projection returns the simulation-to-map projection.
func (v *Viewer) Projection() Projection { return v.proj }

// Scene builds the scene buffers for the current positions and selection.
// It reports false until the layout has started.
func (v *Viewer) Scene() (Scene, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.eng == nil {
		return Scene{}, false
	}
	return v.builder.build(v.selectedPtr()), true
}

// =============================================================================
// Lifecycle
// =============================================================================

func (v *Viewer) load(fn LoadFunc) {
	defer close(v.loaded)
	g, err := fn(v.ctx)

	v.mu.Lock()
	defer v.unlockAndDispatch()
	if v.state == Disposed {
		v.logger.Debug("discarding graph load after dispose")
		return
	}
	if err == nil && g == nil {
		err = errors.New(errors.ErrCodeInternal, "graph load returned no graph")
	}
	if err != nil {
		v.err = err
		v.logger.Error("graph load failed", "err", err)
		if cb := v.opts.OnError; cb != nil {
			v.events = append(v.events, func() { cb(err) })
		}
		return
	}
	v.g = g
	if v.surfaceReady {
		v.initialize()
	}
}

func (v *Viewer) handleLoad() {
	v.mu.Lock()
	defer v.unlockAndDispatch()
	if v.state == Disposed || v.surfaceReady {
		return
	}
	v.surfaceReady = true
	v.surface.AddSource(SourceNodes, geojson.NewFeatureCollection())
	v.surface.AddSource(SourceSelectedNodes, geojson.NewFeatureCollection())
	v.surface.AddSource(SourceEdges, geojson.NewFeatureCollection())
	v.surface.OnClick(SourceNodes, v.handleClick)
	if v.g != nil {
		v.initialize()
	}
}

// initialize creates the engine, pins the root, takes a first step and
// starts the frame loop.
func (v *Viewer) initialize() {
	v.eng = layout.New(v.g, v.opts.Layout)
	v.builder = sceneBuilder{g: v.g, eng: v.eng, style: *v.opts.Style, proj: v.proj}
	v.eng.SetNodePosition(v.opts.RootNodeID, r2.Vec{})
	if !v.eng.PinNode(v.opts.RootNodeID, true) {
		v.logger.Warn("root node is not part of the graph")
	}
	v.eng.Step()
	v.stepsLeft = v.opts.Steps
	v.logger.Debug("layout started", "nodes", v.g.NodeCount(), "links", v.g.LinkCount(), "steps", v.stepsLeft)

	v.setState(LayingOut)
	v.redraw()
	v.emitStatus(true)
	v.scheduleFrame()
}

// tick is one animation frame. Frames from a superseded schedule are
// ignored.
func (v *Viewer) tick(gen uint64) {
	v.mu.Lock()
	defer v.unlockAndDispatch()
	if gen != v.gen || v.state == Disposed {
		return
	}
	v.frame = 0

	if v.state == LayingOut {
		start := time.Now()
		willStop := v.stepsLeft <= 1
		if v.stepsLeft > 0 {
			v.stepsLeft--
			v.eng.Step()
			v.redraw()
		}
		v.hooks.OnFrame(time.Since(start))
		if willStop {
			v.settle()
		}
	}

	v.retryPending()
	if v.state == LayingOut || v.pending != nil {
		v.scheduleFrame()
	}
}

// settle ends the current layout run and selects the root when nothing is
// selected.
func (v *Viewer) settle() {
	v.stepsLeft = 0
	v.setState(Settled)
	v.emitStatus(false)
	v.logger.Debug("layout settled", "steps", v.eng.Steps())
	if !v.hasSelected {
		v.selectNode(v.opts.RootNodeID, true)
	}
}

func (v *Viewer) handleClick(f *geojson.Feature) {
	id, ok := featureNodeID(f)
	if !ok {
		return
	}
	v.mu.Lock()
	defer v.unlockAndDispatch()
	if v.state == Disposed || v.eng == nil {
		return
	}
	pt, ok := v.selectNode(id, false)
	if !ok {
		return
	}
	info, ok := v.info(id, pt)
	if cb := v.opts.OnNodeClicked; ok && cb != nil {
		v.events = append(v.events, func() { cb(info) })
	}
}

// =============================================================================
// Selection and drawing
// =============================================================================

// selectNode highlights id and its neighbors. It returns the node's map
// position and whether the selection changed.
func (v *Viewer) selectNode(id graph.NodeID, view bool) (orb.Point, bool) {
	if v.eng == nil || (v.hasSelected && v.selected == id) {
		return orb.Point{}, false
	}
	pos, ok := v.eng.NodePosition(id)
	if !ok {
		return orb.Point{}, false
	}
	if !v.surface.IsStyleLoaded() {
		v.pending = &pendingSelection{id: id, view: view}
		return orb.Point{}, false
	}
	v.pending = nil
	v.selected, v.hasSelected = id, true
	v.redraw()

	pt := v.proj.ToMap(pos)
	if view {
		v.surface.FlyTo(pt)
	}
	return pt, true
}

func (v *Viewer) retryPending() {
	if v.pending == nil || !v.surface.IsStyleLoaded() {
		return
	}
	p := *v.pending
	v.pending = nil
	v.selectNode(p.id, p.view)
}

// redraw rebuilds every scene buffer and hands it to the surface. The view
// is fitted to the nodes while nothing is selected.
func (v *Viewer) redraw() {
	v.scene = v.builder.build(v.selectedPtr())
	if !v.surface.IsStyleLoaded() {
		return
	}
	v.surface.SetData(SourceNodes, v.scene.Nodes)
	v.surface.SetData(SourceEdges, v.scene.Edges)
	v.surface.SetData(SourceSelectedNodes, v.scene.Highlights)
	if !v.hasSelected && len(v.scene.Nodes.Features) > 0 {
		v.surface.FitBounds(v.scene.Bounds, v.opts.FitPadding)
	}
}

func (v *Viewer) selectedPtr() *graph.NodeID {
	if !v.hasSelected {
		return nil
	}
	id := v.selected
	return &id
}

func (v *Viewer) info(id graph.NodeID, pt orb.Point) (NodeInfo, bool) {
	n, ok := v.g.Node(id)
	if !ok {
		return NodeInfo{}, false
	}
	info := NodeInfo{ID: id, Label: n.Data.Label, Lon: pt.Lon(), Lat: pt.Lat()}
	if n.Data.Cluster != nil {
		c := *n.Data.Cluster
		info.Cluster = &c
	}
	return info, true
}

// =============================================================================
// Internals
// =============================================================================

func (v *Viewer) scheduleFrame() {
	v.cancelFrame()
	gen := v.gen
	v.frame = v.sched.RequestFrame(func() { v.tick(gen) })
}

func (v *Viewer) cancelFrame() {
	if v.frame != 0 {
		v.sched.CancelFrame(v.frame)
		v.frame = 0
	}
	v.gen++
}

func (v *Viewer) setState(to State) {
	from := v.state
	if from == to {
		return
	}
	v.state = to
	v.hooks.OnStateChange(from.String(), to.String())
	v.logger.Debug("viewer state", "from", from, "to", to)
}

func (v *Viewer) emitStatus(running bool) {
	if cb := v.opts.OnLayoutStatusChange; cb != nil {
		v.events = append(v.events, func() { cb(running) })
	}
}

// unlockAndDispatch releases mu and then runs the callbacks queued while it
// was held.
func (v *Viewer) unlockAndDispatch() {
	events := v.events
	v.events = nil
	v.mu.Unlock()
	for _, fn := range events {
		fn()
	}
}
