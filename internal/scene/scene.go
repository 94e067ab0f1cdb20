// Package scene is a retained scene graph that implements surface.Container
// and a display-list surface.Canvas. Each canvas Present composes the object
// graph and the particle display list into a Frame for overlay clients.
package scene

import (
	"slices"
	"strconv"
	"sync"

	"github.com/flemzord/emotewall/internal/surface"
)

// Frame is one composed snapshot of the wall.
type Frame struct {
	Seq        uint64        `json:"seq"`
	Width      float64       `json:"width"`
	Height     float64       `json:"height"`
	Background string        `json:"background"`
	Objects    []ObjectState `json:"objects"`
	Particles  []DrawOp      `json:"particles"`
}

// ObjectState is the visible state of one object in a Frame.
type ObjectState struct {
	ID        string            `json:"id"`
	Image     string            `json:"image"`
	Label     string            `json:"label,omitempty"`
	W         float64           `json:"w"`
	H         float64           `json:"h"`
	Transform surface.Transform `json:"transform"`
}

// DrawOp kinds.
const (
	OpImage  = "image"
	OpCircle = "circle"
)

// DrawOp is one recorded canvas call.
type DrawOp struct {
	Kind     string  `json:"kind"`
	Image    string  `json:"image,omitempty"`
	Color    string  `json:"color,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Size     float64 `json:"size"`
	Rotation float64 `json:"rotation,omitempty"`
	Opacity  float64 `json:"opacity"`
}

// Option configures a Scene.
type Option func(*Scene)

// WithPublisher sets the function receiving every composed Frame.
func WithPublisher(fn func(Frame)) Option {
	return func(s *Scene) { s.publish = fn }
}

// Scene holds the objects currently on the wall.
type Scene struct {
	mu         sync.Mutex
	size       surface.Size
	background string
	objects    []*Object
	nextID     uint64
	seq        uint64
	publish    func(Frame)

	resizes surface.ResizeNotifier
}

var _ surface.Container = (*Scene)(nil)

// New returns an empty scene of the given size.
func New(size surface.Size, opts ...Option) *Scene {
	s := &Scene{size: size, background: "transparent"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Size returns the current container size.
func (s *Scene) Size() surface.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// SetSize changes the container size and notifies resize subscribers when it
// actually changed.
func (s *Scene) SetSize(size surface.Size) {
	s.mu.Lock()
	changed := s.size != size
	s.size = size
	s.mu.Unlock()

	if changed {
		s.resizes.Notify(size)
	}
}

// Resizes returns the notifier fired by SetSize.
func (s *Scene) Resizes() *surface.ResizeNotifier {
	return &s.resizes
}

// Background returns the current background descriptor.
func (s *Scene) Background() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.background
}

// SetBackground replaces the background descriptor.
func (s *Scene) SetBackground(background string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.background = background
}

// CreateObject adds a new object to the scene.
func (s *Scene) CreateObject(spec surface.ObjectSpec) surface.VisualObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	o := &Object{
		scene: s,
		id:    "obj-" + strconv.FormatUint(s.nextID, 10),
		image: spec.Image,
		label: spec.Label,
		size:  spec.Size,
		tf:    surface.Identity(spec.Position.X, spec.Position.Y),
	}
	s.objects = append(s.objects, o)
	return o
}

// Len returns the number of live objects.
func (s *Scene) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Object returns the live object with the given id.
func (s *Scene) Object(id string) (*Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.objects {
		if o.id == id {
			return o, true
		}
	}
	return nil, false
}

// Snapshot composes a Frame from the object graph and the given particle ops.
func (s *Scene) Snapshot(particles []DrawOp) Frame {
	s.mu.Lock()
	s.seq++
	f := Frame{
		Seq:        s.seq,
		Width:      s.size.W,
		Height:     s.size.H,
		Background: s.background,
		Particles:  particles,
	}
	objects := slices.Clone(s.objects)
	s.mu.Unlock()

	f.Objects = make([]ObjectState, 0, len(objects))
	for _, o := range objects {
		f.Objects = append(f.Objects, o.state())
	}
	return f
}

func (s *Scene) remove(o *Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = slices.DeleteFunc(s.objects, func(x *Object) bool { return x == o })
}

func (s *Scene) emit(particles []DrawOp) {
	if s.publish == nil {
		return
	}
	s.publish(s.Snapshot(particles))
}
