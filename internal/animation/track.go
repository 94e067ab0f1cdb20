package animation

import (
	"math"
	"time"
)

// Pose is a transform offset relative to an object's resting position.
type Pose struct {
	DX, DY   float64
	Scale    float64
	Rotation float64
	Opacity  float64
}

type keyframe struct {
	at float64 // progress in [0,1]
	Pose
}

type track struct {
	duration time.Duration
	ease     func(float64) float64
	frames   []keyframe
}

var tracks = map[Style]track{
	Bounce: {
		duration: 800 * time.Millisecond,
		ease:     linear,
		frames: []keyframe{
			{0, Pose{Scale: 0, Opacity: 0}},
			{0.3, Pose{Scale: 1.2, Opacity: 1}},
			{0.55, Pose{Scale: 0.9, Opacity: 1}},
			{0.8, Pose{Scale: 1.05, Opacity: 1}},
			{1, Pose{Scale: 1, Opacity: 1}},
		},
	},
	Slide: {
		duration: 600 * time.Millisecond,
		ease:     easeOutCubic,
		frames: []keyframe{
			{0, Pose{DX: -200, Scale: 1, Opacity: 0}},
			{1, Pose{Scale: 1, Opacity: 1}},
		},
	},
	Epic: {
		duration: 1200 * time.Millisecond,
		ease:     easeOutCubic,
		frames: []keyframe{
			{0, Pose{Scale: 3, Rotation: 2 * math.Pi, Opacity: 0}},
			{0.6, Pose{Scale: 0.8, Rotation: 0, Opacity: 1}},
			{1, Pose{Scale: 1, Opacity: 1}},
		},
	},
	Physics: {
		duration: 300 * time.Millisecond,
		ease:     easeOutCubic,
		frames: []keyframe{
			{0, Pose{DY: -50, Scale: 1, Opacity: 0}},
			{1, Pose{Scale: 1, Opacity: 1}},
		},
	},
}

func trackFor(s Style) track {
	if tr, ok := tracks[s]; ok {
		return tr
	}
	return tracks[Bounce]
}

// Duration returns the fixed length of a style's timeline. Unknown styles
// report the bounce duration.
func Duration(s Style) time.Duration {
	return trackFor(s).duration
}

// Sample returns the pose of style s at progress p, clamped to [0,1].
func Sample(s Style, p float64) Pose {
	return trackFor(s).sample(p)
}

func (tr track) sample(p float64) Pose {
	p = tr.ease(min(max(p, 0), 1))
	frames := tr.frames
	if p <= frames[0].at {
		return frames[0].Pose
	}
	if last := frames[len(frames)-1]; p >= last.at {
		return last.Pose
	}
	for i := 1; i < len(frames); i++ {
		a, b := frames[i-1], frames[i]
		if p <= b.at {
			f := (p - a.at) / (b.at - a.at)
			return Pose{
				DX:       lerp(a.DX, b.DX, f),
				DY:       lerp(a.DY, b.DY, f),
				Scale:    lerp(a.Scale, b.Scale, f),
				Rotation: lerp(a.Rotation, b.Rotation, f),
				Opacity:  lerp(a.Opacity, b.Opacity, f),
			}
		}
	}
	return frames[len(frames)-1].Pose
}

func lerp(a, b, f float64) float64 { return a + (b-a)*f }

func linear(p float64) float64 { return p }

func easeOutCubic(p float64) float64 {
	q := 1 - p
	return 1 - q*q*q
}
