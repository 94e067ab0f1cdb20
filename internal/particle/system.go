package particle

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/flemzord/emotewall/internal/frame"
	"github.com/flemzord/emotewall/internal/surface"
)

// TrailThreshold is the distance, in pixels, an object's center must travel
// before the next trail particle is emitted.
const TrailThreshold = 5.0

// Config configures a System.
type Config struct {
	Container surface.Container
	Canvas    surface.Canvas
	FPS       int
	Clock     frame.Clock
	Logger    *slog.Logger
	// Rand seeds particle randomness. Nil uses a time-seeded source.
	Rand *rand.Rand
}

type trail struct {
	obj  surface.VisualObject
	opts TrailOptions
	last surface.Vec2
}

// System owns the particle canvas and every live particle.
type System struct {
	canvas surface.Canvas
	logger *slog.Logger
	loop   *frame.Loop

	mu        sync.Mutex
	rng       *rand.Rand
	particles []Particle
	trails    map[string]*trail

	unsubscribe func()
}

// New creates a stopped particle system whose canvas tracks the container
// size.
func New(cfg Config) *System {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rng := cfg.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	s := &System{
		canvas: cfg.Canvas,
		logger: logger.With("component", "particles"),
		rng:    rng,
		trails: make(map[string]*trail),
	}
	s.canvas.Resize(cfg.Container.Size())
	s.unsubscribe = cfg.Container.Resizes().Subscribe(s.canvas.Resize)
	s.loop = frame.NewLoop(cfg.Clock, cfg.FPS, s.Step)
	return s
}

// Start schedules the tick loop. Starting a running system is a no-op.
func (s *System) Start() {
	if s.loop.Start() {
		s.logger.Debug("particle loop started")
	}
}

// Stop unschedules the tick loop. Live particles are kept.
func (s *System) Stop() {
	s.loop.Stop()
}

// Running reports whether the tick loop is scheduled.
func (s *System) Running() bool {
	return s.loop.Running()
}

// Close stops the loop and drops the resize subscription.
func (s *System) Close() {
	s.Stop()
	s.unsubscribe()
}

// CreateEmoteExplosion adds opts.Count explosion particles at pos.
func (s *System) CreateEmoteExplosion(pos surface.Vec2, image string, opts ExplosionOptions) {
	if opts.Count <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for range opts.Count {
		s.particles = append(s.particles, NewEmoteParticle(pos, image, opts, s.rng))
	}
}

// CreateTrailEffect registers obj for trail emission. It reports false when
// obj has already been removed.
func (s *System) CreateTrailEffect(obj surface.VisualObject, opts TrailOptions) bool {
	if !obj.Alive() {
		s.logger.Debug("trail skipped, object removed", "id", obj.ID())
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trails[obj.ID()] = &trail{
		obj:  obj,
		opts: opts.withDefaults(),
		last: obj.Rect().Center(),
	}
	return true
}

// RemoveTrailEffect unregisters the trail for id. Unknown ids are ignored.
func (s *System) RemoveTrailEffect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.trails, id)
}

// LiveCount returns the number of live particles.
func (s *System) LiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.particles)
}

// TrailCount returns the number of registered trails.
func (s *System) TrailCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trails)
}

// Step runs one frame: clear, emit due trail particles, update and render
// live particles, drop dead ones, present.
func (s *System) Step(dt float64) {
	s.mu.Lock()
	s.canvas.Clear()

	for _, tr := range s.trails {
		if !tr.obj.Alive() {
			continue
		}
		pos := tr.obj.Rect().Center()
		if pos.Sub(tr.last).Len() > TrailThreshold {
			s.particles = append(s.particles, NewTrailParticle(pos, tr.opts))
			tr.last = pos
		}
	}

	live := s.particles[:0]
	for _, p := range s.particles {
		if p.Update(dt) {
			continue
		}
		p.Render(s.canvas)
		live = append(live, p)
	}
	clear(s.particles[len(live):])
	s.particles = live
	s.mu.Unlock()

	s.canvas.Present()
}
