// Package animation plays fixed-length entrance timelines on visual objects.
// Timelines are deterministic: the same style always produces the same poses.
package animation

import (
	"context"
	"sync"
	"time"

	"github.com/flemzord/emotewall/internal/frame"
	"github.com/flemzord/emotewall/internal/surface"
)

// Animator creates entrance timelines driven by a clock.
type Animator struct {
	clock frame.Clock
	fps   int
}

// New returns an Animator stepping timelines at fps frames per second.
func New(clock frame.Clock, fps int) *Animator {
	if clock == nil {
		clock = frame.SystemClock{}
	}
	if fps <= 0 {
		fps = 60
	}
	return &Animator{clock: clock, fps: fps}
}

// Timeline is a running entrance animation.
type Timeline struct {
	style    Style
	duration time.Duration
	done     chan struct{}
	once     sync.Once
}

// Style returns the style actually played; unknown styles play Bounce.
func (t *Timeline) Style() Style { return t.style }

// Duration returns the fixed timeline length.
func (t *Timeline) Duration() time.Duration { return t.duration }

// Done is closed exactly once, when the timeline completes.
func (t *Timeline) Done() <-chan struct{} { return t.done }

// Wait blocks until the timeline completes or ctx is done.
func (t *Timeline) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Timeline) finish() {
	t.once.Do(func() { close(t.done) })
}

// CreateEntrance starts the entrance animation for style on obj. The
// timeline only touches obj's scale, offset, rotation and opacity, and ends
// with obj back at its resting transform. If obj is removed mid-animation the
// timeline completes early.
func (a *Animator) CreateEntrance(obj surface.VisualObject, style Style) *Timeline {
	if !style.Valid() {
		style = Bounce
	}
	tr := trackFor(style)
	tl := &Timeline{
		style:    style,
		duration: tr.duration,
		done:     make(chan struct{}),
	}

	rest := obj.Transform()
	start := a.clock.Now()
	apply(obj, rest, tr.sample(0))

	ticker := a.clock.NewTicker(time.Second / time.Duration(a.fps))
	go func() {
		defer tl.finish()
		defer ticker.Stop()
		for range ticker.C() {
			if !obj.Alive() {
				return
			}
			elapsed := a.clock.Now().Sub(start)
			if elapsed >= tr.duration {
				apply(obj, rest, tr.sample(1))
				return
			}
			apply(obj, rest, tr.sample(float64(elapsed)/float64(tr.duration)))
		}
	}()
	return tl
}

func apply(obj surface.VisualObject, rest surface.Transform, p Pose) {
	obj.SetTransform(surface.Transform{
		X:        rest.X + p.DX,
		Y:        rest.Y + p.DY,
		Scale:    rest.Scale * p.Scale,
		Rotation: rest.Rotation + p.Rotation,
		Opacity:  rest.Opacity * p.Opacity,
	})
}
