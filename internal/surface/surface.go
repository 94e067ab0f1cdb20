// Package surface defines the contracts between the effect subsystems and
// whatever renders them: visual objects, the container that owns them and the
// immediate-mode canvas used for particles.
package surface

import "math"

// Vec2 is a point or vector in container pixels.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v+o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v-o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Size is a width/height pair in pixels.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Rect is an axis-aligned rectangle; X and Y are the top-left corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Center returns the midpoint of r.
func (r Rect) Center() Vec2 {
	return Vec2{r.X + r.W/2, r.Y + r.H/2}
}

// Transform is the mutable visual state of an object. X and Y place the
// top-left corner; Scale and Rotation (radians) apply around the center.
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
	Opacity  float64 `json:"opacity"`
}

// Identity returns a transform at (x, y) with unit scale and full opacity.
func Identity(x, y float64) Transform {
	return Transform{X: x, Y: y, Scale: 1, Opacity: 1}
}

// VisualObject is a live handle onto something drawn in a Container.
// Implementations must be safe for concurrent use: the animation, physics and
// particle loops all read or write it from their own goroutines.
type VisualObject interface {
	ID() string

	// Rect returns the current on-screen rectangle, ignoring scale and
	// rotation.
	Rect() Rect

	Transform() Transform
	SetTransform(Transform)

	// Remove detaches the object from its container. Removing twice is a
	// no-op.
	Remove()

	// Alive reports whether the object is still attached to its container.
	Alive() bool
}

// ObjectSpec describes an object to create.
type ObjectSpec struct {
	// Image is the asset URL drawn for the object.
	Image string
	// Label is a human readable name, e.g. the emote code.
	Label string
	Size  Size
	// Position is the initial top-left corner.
	Position Vec2
}

// Container is the host area the wall draws into.
type Container interface {
	Size() Size
	SetBackground(background string)
	CreateObject(spec ObjectSpec) VisualObject
	Resizes() *ResizeNotifier
}

// Canvas is a 2D immediate-mode drawing surface. A frame is Clear, any number
// of draw calls, then Present.
type Canvas interface {
	Resize(Size)
	Clear()
	DrawImage(image string, center Vec2, size, rotation, opacity float64)
	FillCircle(center Vec2, radius float64, color string, opacity float64)
	Present()
}
