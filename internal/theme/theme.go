// Package theme holds the static registry of emote wall presets. Each preset
// bundles environment, emote behavior, physics and particle parameters and
// is validated once when the registry loads.
package theme

import (
	"errors"
	"time"

	"github.com/flemzord/emotewall/internal/animation"
)

// DefaultID is the id of the theme used when none is configured.
const DefaultID = "default"

var (
	// ErrUnknownTheme is returned by Lookup for an id not in the registry.
	ErrUnknownTheme = errors.New("theme: unknown theme")

	// ErrInvalidTheme is returned when preset data fails validation.
	ErrInvalidTheme = errors.New("theme: invalid theme")
)

// Theme is an immutable emote wall preset. Values are copied out of the
// registry, so holding one never aliases registry state.
type Theme struct {
	ID          string
	Name        string
	Description string
	Environment Environment
	Emotes      EmoteBehavior
	Physics     Physics
	Particles   Particles
}

// Environment describes the wall backdrop.
type Environment struct {
	// Background is a CSS background value forwarded to overlay clients.
	Background string
}

// EmoteBehavior controls how each spawned emote enters and how long it lives.
type EmoteBehavior struct {
	AnimationStyle animation.Style
	Duration       time.Duration
}

// Physics is the physics block of a theme.
type Physics struct {
	Enabled bool
	Config  PhysicsConfig
}

// PhysicsConfig holds per-body material values and the shared gravity scalar.
type PhysicsConfig struct {
	Restitution float64
	Friction    float64
	AirFriction float64
	Gravity     float64
}

// Particles is the particle block of a theme.
type Particles struct {
	ExplosionEnabled  bool
	ExplosionCount    int
	ExplosionPower    float64
	ExplosionLifespan time.Duration

	TrailEnabled  bool
	TrailColor    string
	TrailLifespan time.Duration
}

// UsesPhysicsEntrance reports whether emotes skip the entrance animation and
// go straight into the physics world.
func (t Theme) UsesPhysicsEntrance() bool {
	return t.Emotes.AnimationStyle == animation.Physics && t.Physics.Enabled
}
