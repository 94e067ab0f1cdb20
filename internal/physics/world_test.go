package physics

import (
	"testing"
	"time"

	"github.com/flemzord/emotewall/internal/frame"
	"github.com/flemzord/emotewall/internal/scene"
	"github.com/flemzord/emotewall/internal/surface"
)

func newTestWorld(t *testing.T, gravity float64) (*World, *scene.Scene) {
	t.Helper()
	sc := scene.New(surface.Size{W: 800, H: 600})
	w := New(Config{
		Container: sc,
		Gravity:   gravity,
		Clock:     frame.NewManualClock(time.Unix(0, 0)),
	})
	t.Cleanup(w.Close)
	return w, sc
}

func spawn(sc *scene.Scene, x, y float64) surface.VisualObject {
	return sc.CreateObject(surface.ObjectSpec{
		Image:    "kappa.png",
		Size:     surface.Size{W: 40, H: 40},
		Position: surface.Vec2{X: x, Y: y},
	})
}

func TestWorld_AttachDetachRestoresCount(t *testing.T) {
	t.Parallel()

	w, sc := newTestWorld(t, 0.5)
	spawn(sc, 0, 0)
	existing, _ := w.Attach(spawn(sc, 100, 100), DefaultBodyOptions())
	before := w.BodyCount()

	obj := spawn(sc, 200, 200)
	body, ok := w.Attach(obj, DefaultBodyOptions())
	if !ok || body.ID() != obj.ID() {
		t.Fatalf("Attach = %v, %v", body, ok)
	}
	w.Detach(obj.ID())

	if got := w.BodyCount(); got != before {
		t.Errorf("BodyCount = %d, want %d", got, before)
	}
	if !w.Tracked(existing.ID()) {
		t.Error("unrelated body was detached")
	}
}

func TestWorld_DetachIsIdempotent(t *testing.T) {
	t.Parallel()

	w, sc := newTestWorld(t, 0.5)
	obj := spawn(sc, 10, 10)
	w.Attach(obj, DefaultBodyOptions())

	w.Detach(obj.ID())
	w.Detach(obj.ID())
	w.Detach("never-attached")

	if w.BodyCount() != 0 {
		t.Errorf("BodyCount = %d, want 0", w.BodyCount())
	}
}

func TestWorld_AttachRemovedObjectIsNoop(t *testing.T) {
	t.Parallel()

	w, sc := newTestWorld(t, 0.5)
	obj := spawn(sc, 10, 10)
	obj.Remove()

	if _, ok := w.Attach(obj, DefaultBodyOptions()); ok {
		t.Fatal("Attach on removed object should fail")
	}
	if w.BodyCount() != 0 {
		t.Errorf("BodyCount = %d, want 0", w.BodyCount())
	}
}

func TestWorld_AttachTwiceReturnsSameBody(t *testing.T) {
	t.Parallel()

	w, sc := newTestWorld(t, 0.5)
	obj := spawn(sc, 10, 10)
	a, _ := w.Attach(obj, DefaultBodyOptions())
	b, _ := w.Attach(obj, DefaultBodyOptions())
	if a != b || w.BodyCount() != 1 {
		t.Errorf("double attach created a second body")
	}
}

func TestWorld_GravityMovesAndSyncs(t *testing.T) {
	t.Parallel()

	w, sc := newTestWorld(t, 0.5)
	obj := spawn(sc, 380, 100)
	w.Attach(obj, DefaultBodyOptions())

	for range 10 {
		w.Step(1.0 / 60)
	}

	tf := obj.Transform()
	if tf.Y <= 100 {
		t.Errorf("Y = %v, body should have fallen", tf.Y)
	}
	if tf.X != 380 {
		t.Errorf("X = %v, want 380 with no horizontal force", tf.X)
	}
}

func TestWorld_ContainedByWalls(t *testing.T) {
	t.Parallel()

	w, sc := newTestWorld(t, 1)
	obj := spawn(sc, 380, 500)
	w.Attach(obj, DefaultBodyOptions())

	for range 600 {
		w.Step(1.0 / 60)
	}

	r := obj.Rect()
	floor := w.Walls()[0]
	if r.Y+r.H > floor.Y+1e-9 {
		t.Errorf("bottom %v is below the floor face %v", r.Y+r.H, floor.Y)
	}
	if r.Y+r.H < floor.Y-1 {
		t.Errorf("body should come to rest on the floor, bottom=%v floor=%v", r.Y+r.H, floor.Y)
	}
}

func TestWorld_ZeroGravityHolds(t *testing.T) {
	t.Parallel()

	w, sc := newTestWorld(t, 0)
	obj := spawn(sc, 300, 300)
	w.Attach(obj, DefaultBodyOptions())
	w.Step(0.5)

	if tf := obj.Transform(); tf.X != 300 || tf.Y != 300 {
		t.Errorf("transform = %+v, want unchanged", tf)
	}
}

func TestWorld_UpdateWorldPropertiesIsRetroactive(t *testing.T) {
	t.Parallel()

	w, sc := newTestWorld(t, 0)
	obj := spawn(sc, 300, 100)
	w.Attach(obj, DefaultBodyOptions())

	w.UpdateWorldProperties(Properties{Gravity: 1})
	w.Step(1.0 / 60)

	if w.Gravity() != 1 {
		t.Errorf("Gravity = %v, want 1", w.Gravity())
	}
	if obj.Transform().Y <= 100 {
		t.Error("new gravity should apply to bodies attached before the change")
	}
}

func TestWorld_ResizeRebuildsWalls(t *testing.T) {
	t.Parallel()

	w, sc := newTestWorld(t, 0.5)
	if got := w.Walls()[0].Y; got != 600-WallThickness/2 {
		t.Fatalf("floor Y = %v", got)
	}

	sc.SetSize(surface.Size{W: 1280, H: 720})

	walls := w.Walls()
	if walls[0].Y != 720-WallThickness/2 {
		t.Errorf("floor Y = %v, want %v", walls[0].Y, 720-WallThickness/2)
	}
	if walls[3].X != 1280-WallThickness/2 {
		t.Errorf("right wall X = %v, want %v", walls[3].X, 1280-WallThickness/2)
	}
}

func TestWorld_StepSkipsDetachedMidFrame(t *testing.T) {
	t.Parallel()

	w, sc := newTestWorld(t, 0.5)
	objs := make([]surface.VisualObject, 5)
	for i := range objs {
		objs[i] = spawn(sc, float64(i*100+50), 100)
		w.Attach(objs[i], DefaultBodyOptions())
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, o := range objs {
			w.Detach(o.ID())
			o.Remove()
		}
	}()
	for range 50 {
		w.Step(1.0 / 60)
	}
	<-done

	if w.BodyCount() != 0 {
		t.Errorf("BodyCount = %d, want 0", w.BodyCount())
	}
}
