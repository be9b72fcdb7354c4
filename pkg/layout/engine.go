package layout

import (
	"iter"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/barneshut"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/toucan4life/gamemap/pkg/graph"
)

// maxSpeed caps the per-step velocity magnitude.
const maxSpeed = 1.0

// Body is the simulation state of one node.
type Body struct {
	ID       graph.NodeID
	Pos      r2.Vec
	Velocity r2.Vec
	Pinned   bool

	force r2.Vec
	mass  float64
}

// Coord2 implements barneshut.Particle2.
func (b *Body) Coord2() r2.Vec { return b.Pos }

// Mass implements barneshut.Particle2.
func (b *Body) Mass() float64 { return b.mass }

type spring struct {
	from, to *Body
}

// Engine runs the simulation for one graph. It is not safe for concurrent
// use.
type Engine struct {
	cfg       Config
	rng       *rand.Rand
	bodies    []*Body
	index     map[graph.NodeID]*Body
	springs   []spring
	particles []barneshut.Particle2
	steps     int
}

// New creates an engine with one body per node of g, placed
// deterministically from cfg.Seed. Links with an endpoint outside g and
// self-loops produce no spring.
func New(g *graph.Graph, cfg Config) *Engine {
	e := &Engine{
		cfg:   cfg,
		rng:   rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		index: make(map[graph.NodeID]*Body, g.NodeCount()),
	}

	for n := range g.Nodes() {
		b := &Body{ID: n.ID, mass: 1 + float64(g.Degree(n.ID))/3}
		e.bodies = append(e.bodies, b)
		e.index[n.ID] = b
	}
	for l := range g.Links() {
		from, ok1 := e.index[l.From]
		to, ok2 := e.index[l.To]
		if !ok1 || !ok2 || from == to || !l.Data.Visible() {
			continue
		}
		e.springs = append(e.springs, spring{from: from, to: to})
	}

	placed := make(map[graph.NodeID]bool, len(e.bodies))
	for _, b := range e.bodies {
		b.Pos = e.initialPosition(g, b.ID, placed)
		placed[b.ID] = true
	}

	e.particles = make([]barneshut.Particle2, len(e.bodies))
	for i, b := range e.bodies {
		e.particles[i] = b
	}
	return e
}

// initialPosition places a body near the centroid of its already placed
// neighbors, or near the centroid of everything placed so far.
func (e *Engine) initialPosition(g *graph.Graph, id graph.NodeID, placed map[graph.NodeID]bool) r2.Vec {
	var sum r2.Vec
	count := 0
	for n := range g.Neighbors(id) {
		if placed[n.ID] {
			sum = r2.Add(sum, e.index[n.ID].Pos)
			count++
		}
	}
	if count == 0 {
		for _, b := range e.bodies {
			if placed[b.ID] {
				sum = r2.Add(sum, b.Pos)
				count++
			}
		}
	}
	var base r2.Vec
	if count > 0 {
		base = r2.Scale(1/float64(count), sum)
	}
	span := e.cfg.SpringLength
	if span == 0 {
		span = 1
	}
	return r2.Vec{
		X: base.X + (e.rng.Float64()-0.5)*span,
		Y: base.Y + (e.rng.Float64()-0.5)*span,
	}
}

// Step advances the simulation by one time step and returns the mean
// distance moved by unpinned bodies.
func (e *Engine) Step() float64 {
	e.steps++
	if len(e.bodies) == 0 {
		return 0
	}
	for _, b := range e.bodies {
		b.force = r2.Vec{}
	}

	e.applyNBody()
	e.applySprings()

	var moved float64
	free := 0
	for _, b := range e.bodies {
		if b.Pinned {
			b.Velocity = r2.Vec{}
			continue
		}
		b.force = r2.Sub(b.force, r2.Scale(e.cfg.DragCoefficient, b.Velocity))
		b.force = r2.Sub(b.force, r2.Scale(e.cfg.CenterGravity, b.Pos))

		b.Velocity = r2.Add(b.Velocity, r2.Scale(e.cfg.TimeStep/b.mass, b.force))
		if speed := r2.Norm(b.Velocity); speed > maxSpeed {
			b.Velocity = r2.Scale(maxSpeed/speed, b.Velocity)
		}
		d := r2.Scale(e.cfg.TimeStep, b.Velocity)
		b.Pos = r2.Add(b.Pos, d)
		moved += r2.Norm(d)
		free++
	}
	if free == 0 {
		return 0
	}
	return moved / float64(free)
}

// Steps returns the number of Step calls so far.
func (e *Engine) Steps() int { return e.steps }

func (e *Engine) applyNBody() {
	if e.cfg.Gravity == 0 || len(e.bodies) < 2 {
		return
	}
	theta := e.cfg.Theta
	plane, err := barneshut.NewPlane(e.particles)
	if err != nil {
		// Coordinates too spread for a quadtree; fall back to exact sums.
		plane = &barneshut.Plane{Particles: e.particles}
		theta = 0
	}
	for _, b := range e.bodies {
		b.force = r2.Add(b.force, plane.ForceOn(b, theta, e.nbody))
	}
}

// nbody is the Barnes-Hut force function: Gravity*m1*m2/r^3 along v, where
// v points from p1 to p2.
func (e *Engine) nbody(p1, p2 barneshut.Particle2, m1, m2 float64, v r2.Vec) r2.Vec {
	if p2 != nil && p1 == p2 {
		return r2.Vec{}
	}
	r := r2.Norm(v)
	if r == 0 {
		v = e.jitter()
		r = r2.Norm(v)
	}
	return r2.Scale(e.cfg.Gravity*m1*m2/(r*r*r), v)
}

func (e *Engine) applySprings() {
	for _, s := range e.springs {
		d := r2.Sub(s.to.Pos, s.from.Pos)
		r := r2.Norm(d)
		if r == 0 {
			d = e.jitter()
			r = r2.Norm(d)
		}
		coeff := e.cfg.SpringCoefficient * (r - e.cfg.SpringLength) / r
		f := r2.Scale(coeff, d)
		s.from.force = r2.Add(s.from.force, f)
		s.to.force = r2.Sub(s.to.force, f)
	}
}

// jitter separates coincident bodies by a small seeded offset.
func (e *Engine) jitter() r2.Vec {
	for {
		v := r2.Vec{X: (e.rng.Float64() - 0.5) / 50, Y: (e.rng.Float64() - 0.5) / 50}
		if v.X != 0 || v.Y != 0 {
			return v
		}
	}
}

// NodePosition returns the current simulation position of id.
func (e *Engine) NodePosition(id graph.NodeID) (r2.Vec, bool) {
	b, ok := e.index[id]
	if !ok {
		return r2.Vec{}, false
	}
	return b.Pos, true
}

// Body returns the body of id. The body must not be modified.
func (e *Engine) Body(id graph.NodeID) (*Body, bool) {
	b, ok := e.index[id]
	return b, ok
}

// PinNode pins or unpins id and reports whether id has a body. A pinned
// body keeps its current position until unpinned.
func (e *Engine) PinNode(id graph.NodeID, pinned bool) bool {
	b, ok := e.index[id]
	if !ok {
		return false
	}
	b.Pinned = pinned
	if pinned {
		b.Velocity = r2.Vec{}
	}
	return true
}

// IsPinned reports whether id is pinned.
func (e *Engine) IsPinned(id graph.NodeID) bool {
	b, ok := e.index[id]
	return ok && b.Pinned
}

// SetNodePosition moves id to pos and clears its velocity.
func (e *Engine) SetNodePosition(id graph.NodeID, pos r2.Vec) bool {
	b, ok := e.index[id]
	if !ok {
		return false
	}
	b.Pos = pos
	b.Velocity = r2.Vec{}
	return true
}

// Positions iterates body positions in graph insertion order.
func (e *Engine) Positions() iter.Seq2[graph.NodeID, r2.Vec] {
	return func(yield func(graph.NodeID, r2.Vec) bool) {
		for _, b := range e.bodies {
			if !yield(b.ID, b.Pos) {
				return
			}
		}
	}
}

// Bounds returns the box enclosing every body. It is the zero box when the
// engine has no bodies.
func (e *Engine) Bounds() r2.Box {
	if len(e.bodies) == 0 {
		return r2.Box{}
	}
	box := r2.Box{
		Min: r2.Vec{X: math.Inf(1), Y: math.Inf(1)},
		Max: r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)},
	}
	for _, b := range e.bodies {
		box.Min.X = math.Min(box.Min.X, b.Pos.X)
		box.Min.Y = math.Min(box.Min.Y, b.Pos.Y)
		box.Max.X = math.Max(box.Max.X, b.Pos.X)
		box.Max.Y = math.Max(box.Max.Y, b.Pos.Y)
	}
	return box
}

// Len returns the number of bodies.
func (e *Engine) Len() int { return len(e.bodies) }
