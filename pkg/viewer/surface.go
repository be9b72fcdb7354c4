package viewer

import (
	"slices"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/quadtree"
)

// Scene buffer source names.
const (
	SourceNodes         = "nodes"
	SourceSelectedNodes = "selected-nodes"
	SourceEdges         = "graph-edges-source"
)

// ClickFunc receives the feature under a click.
type ClickFunc func(f *geojson.Feature)

// Surface is the rendering substrate a viewer draws on: named GeoJSON
// sources rendered as a pannable 2D scene.
type Surface interface {
	// OnLoad registers fn to run once the surface is ready for sources.
	OnLoad(fn func())

	// AddSource registers a named source with initial contents.
	AddSource(name string, fc *geojson.FeatureCollection)

	// IsStyleLoaded reports whether the surface accepts data updates.
	IsStyleLoaded() bool

	// SetData replaces a source's contents wholesale.
	SetData(name string, fc *geojson.FeatureCollection)

	// FitBounds frames b with padding in screen pixels.
	FitBounds(b orb.Bound, padding float64)

	// FlyTo centers the view on p.
	FlyTo(p orb.Point)

	// OnClick registers fn for clicks hitting a feature of source.
	OnClick(source string, fn ClickFunc)

	// Remove tears the surface down.
	Remove()
}

// DefaultHitRadius is the click tolerance of a [MemorySurface] in map
// units.
const DefaultHitRadius = 0.05

// MemorySurface is an in-process [Surface]. It keeps the latest contents of
// every source and answers point and rectangle queries against them.
type MemorySurface struct {
	// HitRadius is the maximum distance between a click and a point
	// feature. Zero means DefaultHitRadius.
	HitRadius float64

	mu          sync.Mutex
	loaded      bool
	styleLoaded bool
	removed     bool
	onLoad      []func()
	sources     map[string]*geojson.FeatureCollection
	updates     map[string]int
	clicks      map[string][]ClickFunc
	center      orb.Point
	bounds      orb.Bound
	padding     float64
}

// NewMemorySurface creates a surface that has not loaded yet.
func NewMemorySurface() *MemorySurface {
	return &MemorySurface{
		sources: make(map[string]*geojson.FeatureCollection),
		updates: make(map[string]int),
		clicks:  make(map[string][]ClickFunc),
	}
}

// Load marks the surface and its style as loaded and runs the registered
// load callbacks. Calling Load again has no effect.
func (s *MemorySurface) Load() {
	s.mu.Lock()
	if s.loaded || s.removed {
		s.mu.Unlock()
		return
	}
	s.loaded = true
	s.styleLoaded = true
	fns := s.onLoad
	s.onLoad = nil
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// SetStyleLoaded overrides the style-loaded flag, simulating a surface that
// is still processing a previous update.
func (s *MemorySurface) SetStyleLoaded(loaded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.styleLoaded = loaded
}

// OnLoad implements [Surface]. fn runs immediately when the surface has
// already loaded.
func (s *MemorySurface) OnLoad(fn func()) {
	s.mu.Lock()
	if !s.loaded {
		s.onLoad = append(s.onLoad, fn)
		s.mu.Unlock()
		return
	}
	removed := s.removed
	s.mu.Unlock()
	if !removed {
		fn()
	}
}

// AddSource implements [Surface].
func (s *MemorySurface) AddSource(name string, fc *geojson.FeatureCollection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return
	}
	s.sources[name] = fc
}

// IsStyleLoaded implements [Surface].
func (s *MemorySurface) IsStyleLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.styleLoaded && !s.removed
}

// SetData implements [Surface].
func (s *MemorySurface) SetData(name string, fc *geojson.FeatureCollection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return
	}
	s.sources[name] = fc
	s.updates[name]++
}

// FitBounds implements [Surface].
func (s *MemorySurface) FitBounds(b orb.Bound, padding float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return
	}
	s.bounds = b
	s.padding = padding
	s.center = b.Center()
}

// FlyTo implements [Surface].
func (s *MemorySurface) FlyTo(p orb.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return
	}
	s.center = p
}

// OnClick implements [Surface].
func (s *MemorySurface) OnClick(source string, fn ClickFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicks[source] = append(s.clicks[source], fn)
}

// Remove implements [Surface]. Afterwards the surface ignores every update.
func (s *MemorySurface) Remove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = true
	s.onLoad = nil
	clear(s.clicks)
}

// Removed reports whether Remove was called.
func (s *MemorySurface) Removed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removed
}

// Data returns the current contents of a source.
func (s *MemorySurface) Data(name string) (*geojson.FeatureCollection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fc, ok := s.sources[name]
	return fc, ok
}

// Sources returns the registered source names in sorted order.
func (s *MemorySurface) Sources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.sources))
	for name := range s.sources {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Updates returns how many times SetData replaced a source.
func (s *MemorySurface) Updates(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates[name]
}

// Center returns the current view center.
func (s *MemorySurface) Center() orb.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.center
}

// Viewport returns the last fitted bounds and padding.
func (s *MemorySurface) Viewport() (orb.Bound, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bounds, s.padding
}

// Click hit-tests p against every source with click handlers and
// dispatches the nearest point feature within HitRadius. It reports whether
// a feature was hit.
func (s *MemorySurface) Click(p orb.Point) bool {
	s.mu.Lock()
	radius := s.HitRadius
	if radius <= 0 {
		radius = DefaultHitRadius
	}
	var (
		hit      *geojson.Feature
		handlers []ClickFunc
	)
	for source, fns := range s.clicks {
		if len(fns) == 0 {
			continue
		}
		f := nearest(s.sources[source], p, radius)
		if f != nil && (hit == nil || distSq(f.Point(), p) < distSq(hit.Point(), p)) {
			hit = f
			handlers = slices.Clone(fns)
		}
	}
	s.mu.Unlock()

	if hit == nil {
		return false
	}
	for _, fn := range handlers {
		fn(hit)
	}
	return true
}

// QueryRect returns the point features of source inside b.
func (s *MemorySurface) QueryRect(source string, b orb.Bound) []*geojson.Feature {
	s.mu.Lock()
	fc := s.sources[source]
	s.mu.Unlock()

	qt := index(fc)
	if qt == nil {
		return nil
	}
	found := qt.InBound(nil, b)
	out := make([]*geojson.Feature, 0, len(found))
	for _, p := range found {
		out = append(out, p.(*geojson.Feature))
	}
	return out
}

func nearest(fc *geojson.FeatureCollection, p orb.Point, radius float64) *geojson.Feature {
	qt := index(fc)
	if qt == nil {
		return nil
	}
	found := qt.KNearest(nil, p, 1, radius)
	if len(found) == 0 {
		return nil
	}
	return found[0].(*geojson.Feature)
}

// index builds a quadtree over the point features of fc, or returns nil
// when there are none.
func index(fc *geojson.FeatureCollection) *quadtree.Quadtree {
	if fc == nil {
		return nil
	}
	var (
		points []*geojson.Feature
		bound  orb.Bound
	)
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		if len(points) == 0 {
			bound = pt.Bound()
		} else {
			bound = bound.Extend(pt)
		}
		points = append(points, f)
	}
	if len(points) == 0 {
		return nil
	}
	qt := quadtree.New(bound.Pad(1))
	for _, f := range points {
		_ = qt.Add(f)
	}
	return qt
}

func distSq(a, b orb.Point) float64 {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return dx*dx + dy*dy
}
