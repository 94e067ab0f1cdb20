package particle

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/flemzord/emotewall/internal/surface"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestEmoteParticle_DiesAfterLifespan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		lifespan time.Duration
		deltas   []float64
	}{
		{name: "exact", lifespan: time.Second, deltas: []float64{0.25, 0.25, 0.25, 0.25}},
		{name: "overshoot", lifespan: 1500 * time.Millisecond, deltas: []float64{1, 1}},
		{name: "single", lifespan: 100 * time.Millisecond, deltas: []float64{0.1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewEmoteParticle(surface.Vec2{}, "kappa.png", ExplosionOptions{Lifespan: tt.lifespan}, testRand())
			for _, dt := range tt.deltas {
				p.Update(dt)
			}
			if !p.IsDead() {
				t.Errorf("particle alive after %v seconds with lifespan %v", tt.deltas, tt.lifespan)
			}
		})
	}
}

func TestParticles_DeadOnceDeltasReachLifespan(t *testing.T) {
	t.Parallel()

	rng := testRand()
	for range 5000 {
		lifespan := time.Duration(1+rng.IntN(5000)) * time.Millisecond
		l := lifespan.Seconds()
		parts := []Particle{
			NewEmoteParticle(surface.Vec2{}, "kappa.png", ExplosionOptions{Lifespan: lifespan}, rng),
			NewTrailParticle(surface.Vec2{}, TrailOptions{Lifespan: lifespan}),
		}

		// Even splits of l, or uneven random ones, until the running sum
		// reaches l.
		n := 1 + rng.IntN(12)
		even := rng.IntN(2) == 0
		sum := 0.0
		for sum < l {
			dt := l / float64(n)
			if !even {
				dt = rng.Float64() * 2 * l / float64(n)
			}
			for _, p := range parts {
				if p.IsDead() {
					t.Fatalf("lifespan %v: dead after %v seconds", lifespan, sum)
				}
				p.Update(dt)
			}
			sum += dt
		}
		for _, p := range parts {
			if !p.IsDead() {
				t.Fatalf("lifespan %v, %d ticks (even=%v): alive after %v seconds", lifespan, n, even, sum)
			}
		}
	}
}

func TestEmoteParticle_FadesAndFalls(t *testing.T) {
	t.Parallel()

	p := NewEmoteParticle(surface.Vec2{X: 100, Y: 100}, "kappa.png",
		ExplosionOptions{Lifespan: 2 * time.Second, Power: 150}, testRand())
	v0 := p.vel.Y

	if p.Update(0.5) {
		t.Fatal("particle died early")
	}
	if p.opacity < 0.74 || p.opacity > 0.76 {
		t.Errorf("opacity = %v, want 0.75", p.opacity)
	}
	if p.vel.Y <= v0 {
		t.Error("gravity should increase downward velocity")
	}
}

func TestEmoteParticle_VelocityBiasedUpward(t *testing.T) {
	t.Parallel()

	rng := testRand()
	var sumY float64
	const n = 500
	for range n {
		p := NewEmoteParticle(surface.Vec2{}, "", ExplosionOptions{Power: 150}, rng)
		if p.size < 10 || p.size > 25 {
			t.Fatalf("size %v outside [10,25]", p.size)
		}
		sumY += p.vel.Y
	}
	if mean := sumY / n; mean > -80 || mean < -120 {
		t.Errorf("mean vertical velocity = %v, want about -100", mean)
	}
}

func TestTrailParticle_Stationary(t *testing.T) {
	t.Parallel()

	p := NewTrailParticle(surface.Vec2{X: 5, Y: 6}, TrailOptions{Lifespan: 400 * time.Millisecond})
	p.Update(0.2)
	if p.pos != (surface.Vec2{X: 5, Y: 6}) {
		t.Errorf("trail particle moved to %+v", p.pos)
	}
	if p.color != "#FFFFFF" || p.size != 4 {
		t.Errorf("defaults = %q %v", p.color, p.size)
	}
	if !p.Update(0.2) {
		t.Error("trail particle should die once lifespan is spent")
	}
}
