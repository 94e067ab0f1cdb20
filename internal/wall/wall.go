// Package wall is the emote wall orchestrator. It listens to chat, resolves
// emotes, and drives every spawned emote through its lifecycle: entrance,
// particles, physics and timed removal.
package wall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/flemzord/emotewall/internal/animation"
	"github.com/flemzord/emotewall/internal/channel"
	"github.com/flemzord/emotewall/internal/frame"
	"github.com/flemzord/emotewall/internal/particle"
	"github.com/flemzord/emotewall/internal/physics"
	"github.com/flemzord/emotewall/internal/surface"
	"github.com/flemzord/emotewall/internal/theme"
	"github.com/flemzord/emotewall/pkg/emote"
)

// DefaultEmoteSize is the edge length of a spawned emote, in pixels.
const DefaultEmoteSize = 56.0

// Resolver turns chat text into emote matches.
type Resolver interface {
	ParseMessage(ctx context.Context, text, scope string) (emote.ParsedMessage, error)
}

// PhysicsWorld is the part of the physics subsystem the wall drives.
type PhysicsWorld interface {
	Attach(obj surface.VisualObject, opts physics.BodyOptions) (*physics.Body, bool)
	Detach(id string)
	UpdateWorldProperties(p physics.Properties)
}

// Effects is the part of the particle system the wall drives.
type Effects interface {
	CreateEmoteExplosion(pos surface.Vec2, image string, opts particle.ExplosionOptions)
	CreateTrailEffect(obj surface.VisualObject, opts particle.TrailOptions) bool
	RemoveTrailEffect(id string)
}

// Entrances plays entrance animations.
type Entrances interface {
	CreateEntrance(obj surface.VisualObject, style animation.Style) *animation.Timeline
}

// Observer is notified of spawn activity. Implementations must be safe for
// concurrent use.
type Observer interface {
	EmoteSpawned(data emote.Data)
}

// Config is the live wall configuration. Theme must come from a
// theme.Registry lookup.
type Config struct {
	Enabled bool
	Theme   theme.Theme
}

// Deps are the collaborators of a Wall.
type Deps struct {
	Container surface.Container
	Resolver  Resolver
	Physics   PhysicsWorld
	Effects   Effects
	Entrances Entrances

	// Clock schedules removals. Defaults to the system clock.
	Clock frame.Clock
	// EmoteSize defaults to DefaultEmoteSize.
	EmoteSize float64
	// Rand picks spawn positions. Nil uses a time-seeded source.
	Rand     *rand.Rand
	Observer Observer
	Logger   *slog.Logger
}

// Status is a point-in-time view of the wall.
type Status struct {
	Enabled   bool   `json:"enabled"`
	Theme     string `json:"theme"`
	Instances int    `json:"instances"`
	Connected bool   `json:"connected"`
}

// Wall owns every live emote instance.
type Wall struct {
	deps   Deps
	logger *slog.Logger

	mu        sync.Mutex
	cfg       Config
	applied   string
	instances map[string]*Instance
	rng       *rand.Rand

	subMu       sync.Mutex
	unsubscribe func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a disabled wall with no theme applied. Call SetConfig before
// connecting it to chat.
func New(deps Deps) (*Wall, error) {
	if deps.Container == nil || deps.Resolver == nil || deps.Physics == nil ||
		deps.Effects == nil || deps.Entrances == nil {
		return nil, errors.New("wall: container, resolver, physics, effects and entrances are required")
	}
	if deps.Clock == nil {
		deps.Clock = frame.SystemClock{}
	}
	if deps.EmoteSize <= 0 {
		deps.EmoteSize = DefaultEmoteSize
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	rng := deps.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Wall{
		deps:      deps,
		logger:    deps.Logger.With("component", "wall"),
		instances: make(map[string]*Instance),
		rng:       rng,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// SetConfig stores cfg. The theme is re-applied only when its id differs
// from the one currently applied, so passing the same theme again is a
// no-op for the scene and the physics world.
func (w *Wall) SetConfig(cfg Config) {
	w.mu.Lock()
	w.cfg = cfg
	changed := cfg.Theme.ID != "" && cfg.Theme.ID != w.applied
	if changed {
		w.applied = cfg.Theme.ID
	}
	w.mu.Unlock()

	if changed {
		w.applyTheme(cfg.Theme)
	}
}

// Config returns the stored configuration.
func (w *Wall) Config() Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg
}

func (w *Wall) applyTheme(th theme.Theme) {
	w.deps.Container.SetBackground(th.Environment.Background)
	w.deps.Physics.UpdateWorldProperties(physics.Properties{Gravity: th.Physics.Config.Gravity})
	w.logger.Info("theme applied", "theme", th.ID, "gravity", th.Physics.Config.Gravity)
}

// ConnectToChat subscribes the wall to t. Any previous subscription is
// dropped first.
func (w *Wall) ConnectToChat(t channel.Transport) {
	unsubscribe := t.Subscribe(func(msg channel.Message) {
		if w.ctx.Err() != nil {
			return
		}
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if _, err := w.HandleMessage(w.ctx, msg); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Debug("message not handled", "channel", msg.Channel, "error", err)
			}
		}()
	})

	w.subMu.Lock()
	prev := w.unsubscribe
	w.unsubscribe = unsubscribe
	w.subMu.Unlock()
	if prev != nil {
		prev()
	}
}

// Disconnect stops accepting chat messages. Instances already on the wall
// keep their removal timers.
func (w *Wall) Disconnect() {
	w.subMu.Lock()
	unsubscribe := w.unsubscribe
	w.unsubscribe = nil
	w.subMu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Connected reports whether the wall is subscribed to a transport.
func (w *Wall) Connected() bool {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	return w.unsubscribe != nil
}

// OnSceneChange is the hook for host scene switches (e.g. OBS scenes). It
// does not change behavior yet.
func (w *Wall) OnSceneChange(scene string) {
	w.logger.Debug("scene changed", "scene", scene)
}

// Close disconnects from chat, abandons in-flight resolutions and entrance
// waits, and waits for message handlers to return. Scheduled removals still
// fire.
func (w *Wall) Close() {
	w.Disconnect()
	w.cancel()
	w.wg.Wait()
}

// HandleMessage resolves msg and spawns one instance per emote. It returns
// the number of instances spawned. Messages arriving while the wall is
// disabled or has no theme are ignored.
func (w *Wall) HandleMessage(ctx context.Context, msg channel.Message) (int, error) {
	if _, ok := w.active(); !ok {
		return 0, nil
	}
	parsed, err := w.deps.Resolver.ParseMessage(ctx, msg.Text, msg.Scope)
	if err != nil {
		return 0, fmt.Errorf("resolving message: %w", err)
	}

	spawned := 0
	for _, data := range parsed.Emotes {
		if w.Spawn(data) != nil {
			spawned++
		}
	}
	return spawned, nil
}

// active returns the current config when spawning is allowed.
func (w *Wall) active() (Config, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.cfg.Enabled || w.applied == "" {
		return Config{}, false
	}
	return w.cfg, true
}

// Status returns a snapshot of the wall state.
func (w *Wall) Status() Status {
	w.mu.Lock()
	st := Status{Enabled: w.cfg.Enabled, Theme: w.applied, Instances: len(w.instances)}
	w.mu.Unlock()
	st.Connected = w.Connected()
	return st
}

// Len returns the number of live instances.
func (w *Wall) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.instances)
}

// Instance returns the live instance with the given id.
func (w *Wall) Instance(id string) (*Instance, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	inst, ok := w.instances[id]
	return inst, ok
}
