package surface

import "testing"

func TestRect_Center(t *testing.T) {
	t.Parallel()

	r := Rect{X: 10, Y: 20, W: 40, H: 60}
	if got, want := r.Center(), (Vec2{30, 50}); got != want {
		t.Errorf("Center = %+v, want %+v", got, want)
	}
}

func TestVec2_Len(t *testing.T) {
	t.Parallel()

	if got := (Vec2{3, 4}).Len(); got != 5 {
		t.Errorf("Len = %v, want 5", got)
	}
	if got := (Vec2{5, 5}).Sub(Vec2{2, 1}); got != (Vec2{3, 4}) {
		t.Errorf("Sub = %+v", got)
	}
}

func TestResizeNotifier(t *testing.T) {
	t.Parallel()

	var n ResizeNotifier
	var a, b Size
	cancelA := n.Subscribe(func(s Size) { a = s })
	n.Subscribe(func(s Size) { b = s })

	n.Notify(Size{W: 800, H: 600})
	if a != (Size{800, 600}) || b != (Size{800, 600}) {
		t.Fatalf("a=%+v b=%+v", a, b)
	}

	cancelA()
	n.Notify(Size{W: 100, H: 100})
	if a != (Size{800, 600}) {
		t.Errorf("cancelled subscriber still notified: %+v", a)
	}
	if b != (Size{100, 100}) {
		t.Errorf("b = %+v, want 100x100", b)
	}
}
