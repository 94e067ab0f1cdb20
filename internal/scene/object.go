package scene

import (
	"sync"

	"github.com/flemzord/emotewall/internal/surface"
)

// Object is a scene node implementing surface.VisualObject.
type Object struct {
	scene *Scene
	id    string
	image string
	label string
	size  surface.Size

	mu      sync.Mutex
	tf      surface.Transform
	removed bool
}

var _ surface.VisualObject = (*Object)(nil)

// ID returns the scene-unique object id.
func (o *Object) ID() string { return o.id }

// Image returns the asset URL.
func (o *Object) Image() string { return o.image }

// Rect returns the unscaled on-screen rectangle.
func (o *Object) Rect() surface.Rect {
	o.mu.Lock()
	defer o.mu.Unlock()
	return surface.Rect{X: o.tf.X, Y: o.tf.Y, W: o.size.W, H: o.size.H}
}

// Transform returns the current transform.
func (o *Object) Transform() surface.Transform {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tf
}

// SetTransform replaces the transform. Writes after Remove are dropped.
func (o *Object) SetTransform(tf surface.Transform) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.removed {
		return
	}
	o.tf = tf
}

// Remove detaches the object from the scene.
func (o *Object) Remove() {
	o.mu.Lock()
	if o.removed {
		o.mu.Unlock()
		return
	}
	o.removed = true
	o.mu.Unlock()

	o.scene.remove(o)
}

// Alive reports whether the object is still in the scene.
func (o *Object) Alive() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.removed
}

func (o *Object) state() ObjectState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return ObjectState{
		ID:        o.id,
		Image:     o.image,
		Label:     o.label,
		W:         o.size.W,
		H:         o.size.H,
		Transform: o.tf,
	}
}
