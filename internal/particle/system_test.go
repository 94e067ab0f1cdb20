package particle

import (
	"testing"
	"time"

	"github.com/flemzord/emotewall/internal/frame"
	"github.com/flemzord/emotewall/internal/scene"
	"github.com/flemzord/emotewall/internal/surface"
)

func newTestSystem(t *testing.T) (*System, *scene.Scene, *scene.Canvas) {
	t.Helper()
	sc := scene.New(surface.Size{W: 800, H: 600})
	canvas := sc.Canvas()
	s := New(Config{
		Container: sc,
		Canvas:    canvas,
		Clock:     frame.NewManualClock(time.Unix(0, 0)),
		Rand:      testRand(),
	})
	t.Cleanup(s.Close)
	return s, sc, canvas
}

func TestSystem_ExplosionAddsExactlyCount(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestSystem(t)
	s.CreateEmoteExplosion(surface.Vec2{X: 10, Y: 10}, "a.png", ExplosionOptions{Count: 7})
	before := s.LiveCount()

	s.CreateEmoteExplosion(surface.Vec2{X: 50, Y: 50}, "b.png", ExplosionOptions{Count: 30})

	if got := s.LiveCount() - before; got != 30 {
		t.Errorf("live count increased by %d, want 30", got)
	}
}

func TestSystem_StepPurgesDead(t *testing.T) {
	t.Parallel()

	s, _, canvas := newTestSystem(t)
	s.CreateEmoteExplosion(surface.Vec2{}, "a.png", ExplosionOptions{Count: 5, Lifespan: 500 * time.Millisecond})

	s.Step(0.25)
	if s.LiveCount() != 5 {
		t.Fatalf("LiveCount = %d, want 5", s.LiveCount())
	}
	if len(canvas.Last()) != 5 {
		t.Errorf("rendered %d ops, want 5", len(canvas.Last()))
	}

	s.Step(0.25)
	if s.LiveCount() != 0 {
		t.Errorf("LiveCount = %d, want 0", s.LiveCount())
	}
	if len(canvas.Last()) != 0 {
		t.Errorf("dead particles rendered: %d ops", len(canvas.Last()))
	}
}

func TestSystem_TrailEmitsPastThreshold(t *testing.T) {
	t.Parallel()

	s, sc, _ := newTestSystem(t)
	obj := sc.CreateObject(surface.ObjectSpec{Size: surface.Size{W: 20, H: 20}, Position: surface.Vec2{X: 100, Y: 100}})
	if !s.CreateTrailEffect(obj, TrailOptions{Lifespan: time.Second}) {
		t.Fatal("CreateTrailEffect failed")
	}

	s.Step(0.01)
	if s.LiveCount() != 0 {
		t.Fatalf("stationary object emitted %d particles", s.LiveCount())
	}

	obj.SetTransform(surface.Identity(103, 103))
	s.Step(0.01)
	if s.LiveCount() != 0 {
		t.Fatalf("move of %.2fpx emitted a particle", surface.Vec2{X: 3, Y: 3}.Len())
	}

	obj.SetTransform(surface.Identity(110, 100))
	s.Step(0.01)
	if s.LiveCount() != 1 {
		t.Fatalf("LiveCount = %d, want 1 after crossing threshold", s.LiveCount())
	}

	// The reference point moved with the emission.
	s.Step(0.01)
	if s.LiveCount() != 1 {
		t.Errorf("LiveCount = %d, want 1 without further movement", s.LiveCount())
	}
}

func TestSystem_RemoveTrailEffect(t *testing.T) {
	t.Parallel()

	s, sc, _ := newTestSystem(t)
	obj := sc.CreateObject(surface.ObjectSpec{Size: surface.Size{W: 20, H: 20}})
	s.CreateTrailEffect(obj, TrailOptions{})

	s.RemoveTrailEffect(obj.ID())
	s.RemoveTrailEffect(obj.ID())
	if s.TrailCount() != 0 {
		t.Fatalf("TrailCount = %d, want 0", s.TrailCount())
	}

	obj.SetTransform(surface.Identity(300, 300))
	s.Step(0.01)
	if s.LiveCount() != 0 {
		t.Error("removed trail still emitted")
	}
}

func TestSystem_TrailOnRemovedObject(t *testing.T) {
	t.Parallel()

	s, sc, _ := newTestSystem(t)
	obj := sc.CreateObject(surface.ObjectSpec{Size: surface.Size{W: 20, H: 20}})
	s.CreateTrailEffect(obj, TrailOptions{})
	obj.Remove()
	s.Step(0.01)

	gone := sc.CreateObject(surface.ObjectSpec{})
	gone.Remove()
	if s.CreateTrailEffect(gone, TrailOptions{}) {
		t.Error("trail registered on removed object")
	}
}

func TestSystem_StartIsIdempotent(t *testing.T) {
	t.Parallel()

	s, _, _ := newTestSystem(t)
	s.Start()
	s.Start()
	if !s.Running() {
		t.Fatal("system should be running")
	}
	s.Stop()
	if s.Running() {
		t.Error("system should be stopped")
	}
	s.Start()
	if !s.Running() {
		t.Error("system should restart after Stop")
	}
}

func TestSystem_CanvasFollowsContainer(t *testing.T) {
	t.Parallel()

	_, sc, canvas := newTestSystem(t)
	if canvas.Size() != (surface.Size{W: 800, H: 600}) {
		t.Fatalf("canvas size = %+v", canvas.Size())
	}
	sc.SetSize(surface.Size{W: 1920, H: 1080})
	if canvas.Size() != (surface.Size{W: 1920, H: 1080}) {
		t.Errorf("canvas size = %+v after resize", canvas.Size())
	}
}
