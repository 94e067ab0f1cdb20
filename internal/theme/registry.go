package theme

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/emotewall/internal/animation"
)

//go:embed themes.yaml
var builtinYAML []byte

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Registry is a read-only id → Theme table.
type Registry struct {
	themes map[string]Theme
	order  []string
}

var builtin = sync.OnceValue(func() *Registry {
	r, err := Load(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("theme: builtin presets: %v", err))
	}
	return r
})

// Builtin returns the registry of presets shipped with the binary.
func Builtin() *Registry {
	return builtin()
}

type rawFile struct {
	Themes []rawTheme `yaml:"themes"`
}

type rawTheme struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Environment *rawEnvironment `yaml:"environment"`
	Emotes      *rawEmotes      `yaml:"emotes"`
	Physics     *rawPhysics     `yaml:"physics"`
	Particles   *rawParticles   `yaml:"particles"`
}

type rawEnvironment struct {
	Background string `yaml:"background"`
}

type rawEmotes struct {
	AnimationStyle string `yaml:"animation_style"`
	DurationMS     int    `yaml:"duration_ms"`
}

type rawPhysics struct {
	Enabled     bool    `yaml:"enabled"`
	Restitution float64 `yaml:"restitution"`
	Friction    float64 `yaml:"friction"`
	AirFriction float64 `yaml:"air_friction"`
	Gravity     float64 `yaml:"gravity"`
}

type rawParticles struct {
	ExplosionEnabled     bool    `yaml:"explosion_enabled"`
	ExplosionCount       int     `yaml:"explosion_count"`
	ExplosionPower       float64 `yaml:"explosion_power"`
	ExplosionLifespanSec float64 `yaml:"explosion_lifespan_sec"`
	TrailEnabled         bool    `yaml:"trail_enabled"`
	TrailColor           string  `yaml:"trail_color"`
	TrailLifespanSec     float64 `yaml:"trail_lifespan_sec"`
}

// Load decodes and validates a theme file. Unknown fields, missing blocks,
// duplicate ids and out-of-range values all fail with ErrInvalidTheme.
func Load(data []byte) (*Registry, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file rawFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: decoding: %w", ErrInvalidTheme, err)
	}
	if len(file.Themes) == 0 {
		return nil, fmt.Errorf("%w: no themes defined", ErrInvalidTheme)
	}

	r := &Registry{themes: make(map[string]Theme, len(file.Themes))}
	var errs []error
	for i, raw := range file.Themes {
		t, err := raw.build()
		if err != nil {
			errs = append(errs, fmt.Errorf("themes[%d] %q: %w", i, raw.ID, err))
			continue
		}
		if _, dup := r.themes[t.ID]; dup {
			errs = append(errs, fmt.Errorf("themes[%d]: duplicate id %q", i, t.ID))
			continue
		}
		r.themes[t.ID] = t
		r.order = append(r.order, t.ID)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTheme, errors.Join(errs...))
	}
	if _, ok := r.themes[DefaultID]; !ok {
		return nil, fmt.Errorf("%w: missing %q theme", ErrInvalidTheme, DefaultID)
	}
	return r, nil
}

func (raw rawTheme) build() (Theme, error) {
	var errs []error
	if raw.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if raw.Environment == nil {
		errs = append(errs, errors.New("environment block is required"))
	}
	if raw.Emotes == nil {
		errs = append(errs, errors.New("emotes block is required"))
	}
	if raw.Physics == nil {
		errs = append(errs, errors.New("physics block is required"))
	}
	if raw.Particles == nil {
		errs = append(errs, errors.New("particles block is required"))
	}
	if len(errs) > 0 {
		return Theme{}, errors.Join(errs...)
	}

	style := animation.Style(raw.Emotes.AnimationStyle)
	if !style.Valid() {
		errs = append(errs, fmt.Errorf("unknown animation style %q", raw.Emotes.AnimationStyle))
	}
	if raw.Emotes.DurationMS <= 0 {
		errs = append(errs, fmt.Errorf("emotes.duration_ms must be positive, got %d", raw.Emotes.DurationMS))
	}

	ph := raw.Physics
	if ph.Restitution < 0 || ph.Friction < 0 || ph.AirFriction < 0 {
		errs = append(errs, errors.New("physics material values must be non-negative"))
	}
	if ph.AirFriction >= 1 {
		errs = append(errs, fmt.Errorf("physics.air_friction must be below 1, got %g", ph.AirFriction))
	}
	if ph.Enabled && ph.Gravity < 0 {
		errs = append(errs, fmt.Errorf("physics.gravity must be non-negative, got %g", ph.Gravity))
	}

	pa := raw.Particles
	if pa.ExplosionCount < 0 {
		errs = append(errs, fmt.Errorf("particles.explosion_count must be non-negative, got %d", pa.ExplosionCount))
	}
	if pa.ExplosionPower < 0 {
		errs = append(errs, fmt.Errorf("particles.explosion_power must be non-negative, got %g", pa.ExplosionPower))
	}
	if pa.ExplosionLifespanSec < 0 || pa.TrailLifespanSec < 0 {
		errs = append(errs, errors.New("particle lifespans must be non-negative"))
	}
	if pa.TrailEnabled && !hexColor.MatchString(pa.TrailColor) {
		errs = append(errs, fmt.Errorf("particles.trail_color %q is not a hex color", pa.TrailColor))
	}
	if len(errs) > 0 {
		return Theme{}, errors.Join(errs...)
	}

	return Theme{
		ID:          raw.ID,
		Name:        raw.Name,
		Description: raw.Description,
		Environment: Environment{Background: raw.Environment.Background},
		Emotes: EmoteBehavior{
			AnimationStyle: style,
			Duration:       time.Duration(raw.Emotes.DurationMS) * time.Millisecond,
		},
		Physics: Physics{
			Enabled: ph.Enabled,
			Config: PhysicsConfig{
				Restitution: ph.Restitution,
				Friction:    ph.Friction,
				AirFriction: ph.AirFriction,
				Gravity:     ph.Gravity,
			},
		},
		Particles: Particles{
			ExplosionEnabled:  pa.ExplosionEnabled,
			ExplosionCount:    pa.ExplosionCount,
			ExplosionPower:    pa.ExplosionPower,
			ExplosionLifespan: seconds(pa.ExplosionLifespanSec),
			TrailEnabled:      pa.TrailEnabled,
			TrailColor:        pa.TrailColor,
			TrailLifespan:     seconds(pa.TrailLifespanSec),
		},
	}, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Lookup returns the theme registered under id.
func (r *Registry) Lookup(id string) (Theme, error) {
	t, ok := r.themes[id]
	if !ok {
		return Theme{}, fmt.Errorf("%w: %q", ErrUnknownTheme, id)
	}
	return t, nil
}

// Default returns the default theme.
func (r *Registry) Default() Theme {
	return r.themes[DefaultID]
}

// IDs returns theme ids in file order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Themes returns every theme in file order.
func (r *Registry) Themes() []Theme {
	out := make([]Theme, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.themes[id])
	}
	return out
}
