package scene

import (
	"sync"

	"github.com/flemzord/emotewall/internal/surface"
)

// Canvas records draw calls into a display list and publishes the list with
// the scene graph on Present.
type Canvas struct {
	scene *Scene

	mu   sync.Mutex
	size surface.Size
	ops  []DrawOp
	last []DrawOp
}

var _ surface.Canvas = (*Canvas)(nil)

// Canvas returns a new display-list canvas bound to s.
func (s *Scene) Canvas() *Canvas {
	return &Canvas{scene: s, size: s.Size()}
}

// Resize sets the drawable area.
func (c *Canvas) Resize(size surface.Size) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.size = size
}

// Size returns the drawable area.
func (c *Canvas) Size() surface.Size {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Clear discards the pending display list.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = c.ops[:0]
}

// DrawImage records an image centered on center.
func (c *Canvas) DrawImage(image string, center surface.Vec2, size, rotation, opacity float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, DrawOp{
		Kind: OpImage, Image: image,
		X: center.X, Y: center.Y, Size: size,
		Rotation: rotation, Opacity: opacity,
	})
}

// FillCircle records a filled circle.
func (c *Canvas) FillCircle(center surface.Vec2, radius float64, color string, opacity float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, DrawOp{
		Kind: OpCircle, Color: color,
		X: center.X, Y: center.Y, Size: radius,
		Opacity: opacity,
	})
}

// Present publishes the display list together with the scene graph.
func (c *Canvas) Present() {
	c.mu.Lock()
	ops := make([]DrawOp, len(c.ops))
	copy(ops, c.ops)
	c.last = ops
	c.mu.Unlock()

	c.scene.emit(ops)
}

// Last returns the display list of the most recent Present.
func (c *Canvas) Last() []DrawOp {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
