// Package physics runs a small rigid-body world: rectangular bodies under a
// shared gravity scalar, contained by four static walls sized to the
// container. It is deliberately narrow and does not resolve body-to-body
// collisions.
package physics

import (
	"log/slog"
	"math"
	"sync"

	"github.com/flemzord/emotewall/internal/frame"
	"github.com/flemzord/emotewall/internal/surface"
)

const (
	// WallThickness is the depth of each boundary wall. Walls are centered
	// on the container edges, so half of it intrudes into the visible area.
	WallThickness = 50.0

	// GravityScale converts the theme gravity scalar to px/s².
	GravityScale = 1000.0

	// restThreshold is the speed below which a body resting on the floor
	// stops bouncing.
	restThreshold = 20.0
)

// BodyOptions are per-body material values, fixed at attach time.
type BodyOptions struct {
	Restitution float64
	Friction    float64
	AirFriction float64
}

// DefaultBodyOptions returns the material values used when a theme supplies
// none.
func DefaultBodyOptions() BodyOptions {
	return BodyOptions{Restitution: 0.6, Friction: 0.1, AirFriction: 0.02}
}

// Properties are the shared, retroactive world parameters.
type Properties struct {
	Gravity float64
}

// Config configures a World.
type Config struct {
	Container surface.Container
	Gravity   float64
	FPS       int
	Clock     frame.Clock
	Logger    *slog.Logger
}

// World owns every simulated body. It starts ticking when created and keeps
// ticking until Close; Attach and Detach only change the set it iterates.
type World struct {
	logger *slog.Logger
	loop   *frame.Loop

	mu      sync.Mutex
	size    surface.Size
	gravity float64
	walls   [4]surface.Rect
	bodies  map[string]*Body

	unsubscribe func()
	closeOnce   sync.Once
}

// New creates the world, builds its walls and starts the tick loop.
func New(cfg Config) *World {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	w := &World{
		logger:  logger.With("component", "physics"),
		gravity: cfg.Gravity,
		bodies:  make(map[string]*Body),
	}
	w.resize(cfg.Container.Size())
	w.unsubscribe = cfg.Container.Resizes().Subscribe(w.resize)
	w.loop = frame.NewLoop(cfg.Clock, cfg.FPS, w.Step)
	w.loop.Start()
	return w
}

// Close stops the tick loop and the resize subscription. A closed world is
// not restarted.
func (w *World) Close() {
	w.closeOnce.Do(func() {
		w.loop.Stop()
		w.unsubscribe()
	})
}

// UpdateWorldProperties replaces the shared gravity scalar. Per-body material
// values are left as they were at attach time.
func (w *World) UpdateWorldProperties(p Properties) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gravity = p.Gravity
}

// Gravity returns the current gravity scalar.
func (w *World) Gravity() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.gravity
}

// Walls returns the four static boundary rectangles: floor, ceiling, left,
// right.
func (w *World) Walls() [4]surface.Rect {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.walls
}

// Attach creates a body matching obj's current rect and starts mirroring it
// onto obj every tick. It reports false, without side effects, when obj has
// already been removed. Attaching an id twice returns the existing body.
func (w *World) Attach(obj surface.VisualObject, opts BodyOptions) (*Body, bool) {
	if !obj.Alive() {
		w.logger.Debug("attach skipped, object removed", "id", obj.ID())
		return nil, false
	}
	r := obj.Rect()

	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.bodies[obj.ID()]; ok {
		return b, true
	}
	b := &Body{
		id:    obj.ID(),
		obj:   obj,
		opts:  opts,
		pos:   r.Center(),
		half:  surface.Vec2{X: r.W / 2, Y: r.H / 2},
		angle: obj.Transform().Rotation,
	}
	w.bodies[b.id] = b
	return b, true
}

// Detach removes the body for id. Unknown ids are ignored.
func (w *World) Detach(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.bodies, id)
}

// Tracked reports whether id has an attached body.
func (w *World) Tracked(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.bodies[id]
	return ok
}

// BodyCount returns the number of attached bodies.
func (w *World) BodyCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.bodies)
}

// Step advances the simulation by dt seconds and copies each body's position
// and rotation onto its visual object.
func (w *World) Step(dt float64) {
	if dt <= 0 {
		return
	}

	w.mu.Lock()
	g := w.gravity * GravityScale
	minX := w.walls[2].X + w.walls[2].W
	maxX := w.walls[3].X
	minY := w.walls[1].Y + w.walls[1].H
	maxY := w.walls[0].Y
	bodies := make([]*Body, 0, len(w.bodies))
	for _, b := range w.bodies {
		b.integrate(dt, g)
		b.contain(minX, maxX, minY, maxY)
		bodies = append(bodies, b)
	}
	w.mu.Unlock()

	for _, b := range bodies {
		if !w.Tracked(b.id) {
			continue
		}
		b.sync()
	}
}

func (w *World) resize(size surface.Size) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.size = size
	half := WallThickness / 2
	w.walls = [4]surface.Rect{
		{X: 0, Y: size.H - half, W: size.W, H: WallThickness},
		{X: 0, Y: -half, W: size.W, H: WallThickness},
		{X: -half, Y: 0, W: WallThickness, H: size.H},
		{X: size.W - half, Y: 0, W: WallThickness, H: size.H},
	}
	w.logger.Debug("world resized", "width", size.W, "height", size.H)
}

// Body is a rectangular rigid body bound to one visual object.
type Body struct {
	id   string
	obj  surface.VisualObject
	opts BodyOptions

	pos    surface.Vec2
	vel    surface.Vec2
	half   surface.Vec2
	angle  float64
	angVel float64

	// mirrored state for sync, written under World.mu
	outPos   surface.Vec2
	outAngle float64
}

// ID returns the id of the visual object this body mirrors.
func (b *Body) ID() string { return b.id }

func (b *Body) integrate(dt, g float64) {
	drag := math.Pow(1-b.opts.AirFriction, dt*60)
	b.vel.Y += g * dt
	b.vel.X *= drag
	b.vel.Y *= drag
	b.angVel *= drag
	b.pos = b.pos.Add(surface.Vec2{X: b.vel.X * dt, Y: b.vel.Y * dt})
	b.angle += b.angVel * dt
}

func (b *Body) contain(minX, maxX, minY, maxY float64) {
	e, mu := b.opts.Restitution, b.opts.Friction

	if b.pos.Y+b.half.Y > maxY {
		b.pos.Y = maxY - b.half.Y
		if b.vel.Y > 0 {
			b.vel.Y = -b.vel.Y * e
			if -b.vel.Y < restThreshold {
				b.vel.Y = 0
			}
		}
		b.vel.X *= 1 - mu
		if b.half.Y > 0 {
			b.angVel = b.vel.X / b.half.Y
		}
	}
	if b.pos.Y-b.half.Y < minY {
		b.pos.Y = minY + b.half.Y
		if b.vel.Y < 0 {
			b.vel.Y = -b.vel.Y * e
		}
		b.vel.X *= 1 - mu
	}
	if b.pos.X-b.half.X < minX {
		b.pos.X = minX + b.half.X
		if b.vel.X < 0 {
			b.vel.X = -b.vel.X * e
		}
		b.vel.Y *= 1 - mu
	}
	if b.pos.X+b.half.X > maxX {
		b.pos.X = maxX - b.half.X
		if b.vel.X > 0 {
			b.vel.X = -b.vel.X * e
		}
		b.vel.Y *= 1 - mu
	}

	b.outPos = b.pos
	b.outAngle = b.angle
}

// sync writes the body pose onto the visual object, keeping its scale and
// opacity.
func (b *Body) sync() {
	tf := b.obj.Transform()
	tf.X = b.outPos.X - b.half.X
	tf.Y = b.outPos.Y - b.half.Y
	tf.Rotation = b.outAngle
	b.obj.SetTransform(tf)
}
