// Package particle implements the wall's particle effects: radial emote
// explosions and distance-triggered trails, drawn onto a surface.Canvas by a
// tick loop that runs independently of the physics world.
package particle

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/flemzord/emotewall/internal/surface"
)

const (
	// explosionGravity is the downward acceleration applied to explosion
	// particles, in px/s².
	explosionGravity = 98.0

	// upwardBias is subtracted from the random vertical launch velocity.
	upwardBias = 100.0
)

// Particle is one simulated particle.
type Particle interface {
	// Update advances the particle by dt seconds and reports whether it died.
	Update(dt float64) bool
	Render(c surface.Canvas)
	IsDead() bool
}

type base struct {
	pos     surface.Vec2
	elapsed float64 // seconds lived, summed from Update deltas
	initial float64 // lifespan in seconds
	opacity float64
}

func newBase(pos surface.Vec2, lifespan float64) base {
	return base{pos: pos, initial: lifespan, opacity: 1}
}

func (b *base) age(dt float64) {
	b.elapsed += dt
	if b.IsDead() {
		b.opacity = 0
		return
	}
	b.opacity = 1 - b.elapsed/b.initial
}

// IsDead reports whether the deltas seen so far add up to the lifespan.
// Elapsed time is accumulated rather than counted down, so ticks summing
// to exactly the lifespan leave no rounding remainder.
func (b *base) IsDead() bool { return b.elapsed >= b.initial }

// EmoteParticle is a small copy of an emote image flung out of an explosion.
type EmoteParticle struct {
	base
	image         string
	vel           surface.Vec2
	size          float64
	rotation      float64
	rotationSpeed float64
}

// NewEmoteParticle seeds a particle at pos with a random, upward-biased
// velocity scaled by opts.Power.
func NewEmoteParticle(pos surface.Vec2, image string, opts ExplosionOptions, rng *rand.Rand) *EmoteParticle {
	opts = opts.withDefaults()
	size := opts.Size
	if size <= 0 {
		size = rng.Float64()*15 + 10
	}
	return &EmoteParticle{
		base:  newBase(pos, opts.Lifespan.Seconds()),
		image: image,
		vel: surface.Vec2{
			X: (rng.Float64() - 0.5) * opts.Power,
			Y: (rng.Float64()-0.5)*opts.Power - upwardBias,
		},
		size:          size,
		rotation:      rng.Float64() * 2 * math.Pi,
		rotationSpeed: (rng.Float64() - 0.5) * 5,
	}
}

// Update applies gravity, integrates motion and fades the particle.
func (p *EmoteParticle) Update(dt float64) bool {
	p.vel.Y += explosionGravity * dt
	p.pos.X += p.vel.X * dt
	p.pos.Y += p.vel.Y * dt
	p.rotation += p.rotationSpeed * dt
	p.age(dt)
	return p.IsDead()
}

// Render draws the emote image centered on the particle.
func (p *EmoteParticle) Render(c surface.Canvas) {
	c.DrawImage(p.image, p.pos, p.size, p.rotation, p.opacity)
}

// TrailParticle is a stationary breadcrumb left behind a moving object.
type TrailParticle struct {
	base
	color string
	size  float64
}

// NewTrailParticle seeds a trail particle at pos.
func NewTrailParticle(pos surface.Vec2, opts TrailOptions) *TrailParticle {
	opts = opts.withDefaults()
	return &TrailParticle{
		base:  newBase(pos, opts.Lifespan.Seconds()),
		color: opts.Color,
		size:  opts.Size,
	}
}

// Update fades the particle; trail particles never move.
func (p *TrailParticle) Update(dt float64) bool {
	p.age(dt)
	return p.IsDead()
}

// Render draws a circle that shrinks as it fades.
func (p *TrailParticle) Render(c surface.Canvas) {
	c.FillCircle(p.pos, p.size*p.opacity, p.color, p.opacity)
}

// ExplosionOptions configures CreateEmoteExplosion.
type ExplosionOptions struct {
	Count    int
	Power    float64
	Lifespan time.Duration
	// Size fixes the particle size; zero picks a random size per particle.
	Size float64
}

func (o ExplosionOptions) withDefaults() ExplosionOptions {
	if o.Power <= 0 {
		o.Power = 200
	}
	if o.Lifespan <= 0 {
		o.Lifespan = 2 * time.Second
	}
	return o
}

// TrailOptions configures CreateTrailEffect.
type TrailOptions struct {
	Color    string
	Size     float64
	Lifespan time.Duration
}

func (o TrailOptions) withDefaults() TrailOptions {
	if o.Color == "" {
		o.Color = "#FFFFFF"
	}
	if o.Size <= 0 {
		o.Size = 4
	}
	if o.Lifespan <= 0 {
		o.Lifespan = 400 * time.Millisecond
	}
	return o
}
