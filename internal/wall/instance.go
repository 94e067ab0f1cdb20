package wall

import (
	"sync"
	"time"

	"github.com/flemzord/emotewall/internal/particle"
	"github.com/flemzord/emotewall/internal/physics"
	"github.com/flemzord/emotewall/internal/surface"
	"github.com/flemzord/emotewall/internal/theme"
	"github.com/flemzord/emotewall/pkg/emote"
)

// Instance is one emote on the wall. It keeps the theme that was active when
// it spawned; later theme switches do not change its behavior.
type Instance struct {
	emote     emote.Data
	obj       surface.VisualObject
	theme     theme.Theme
	spawnedAt time.Time

	mu       sync.Mutex
	attached bool
	trail    bool
	removed  bool
}

// ID returns the instance id, shared with its visual object.
func (i *Instance) ID() string { return i.obj.ID() }

// Emote returns the resolved emote.
func (i *Instance) Emote() emote.Data { return i.emote }

// Object returns the visual handle.
func (i *Instance) Object() surface.VisualObject { return i.obj }

// ThemeID returns the id of the theme the instance spawned under.
func (i *Instance) ThemeID() string { return i.theme.ID }

// SpawnedAt returns the spawn time on the wall clock.
func (i *Instance) SpawnedAt() time.Time { return i.spawnedAt }

// Attached reports whether the instance is in the physics world.
func (i *Instance) Attached() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.attached
}

// Trailing reports whether a trail is registered for the instance.
func (i *Instance) Trailing() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.trail
}

// Removed reports whether the instance has been torn down.
func (i *Instance) Removed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.removed
}

// Spawn places data on the wall using the theme active right now. It
// returns nil when the wall is disabled, has no theme, or is closed.
func (w *Wall) Spawn(data emote.Data) *Instance {
	if w.ctx.Err() != nil {
		return nil
	}
	cfg, ok := w.active()
	if !ok {
		return nil
	}
	th := cfg.Theme

	obj := w.deps.Container.CreateObject(surface.ObjectSpec{
		Image:    data.URL,
		Label:    data.Name,
		Size:     surface.Size{W: w.deps.EmoteSize, H: w.deps.EmoteSize},
		Position: w.randomPosition(),
	})
	inst := &Instance{
		emote:     data,
		obj:       obj,
		theme:     th,
		spawnedAt: w.deps.Clock.Now(),
	}

	w.mu.Lock()
	w.instances[inst.ID()] = inst
	w.mu.Unlock()

	p := th.Particles
	if p.ExplosionEnabled {
		w.deps.Effects.CreateEmoteExplosion(obj.Rect().Center(), data.URL, particle.ExplosionOptions{
			Count:    p.ExplosionCount,
			Power:    p.ExplosionPower,
			Lifespan: p.ExplosionLifespan,
		})
	}
	if p.TrailEnabled {
		ok := w.deps.Effects.CreateTrailEffect(obj, particle.TrailOptions{
			Color:    p.TrailColor,
			Lifespan: p.TrailLifespan,
		})
		inst.mu.Lock()
		inst.trail = ok
		inst.mu.Unlock()
	}

	w.deps.Clock.AfterFunc(th.Emotes.Duration, func() { w.remove(inst) })

	switch {
	case th.UsesPhysicsEntrance():
		w.attach(inst)
	default:
		tl := w.deps.Entrances.CreateEntrance(obj, th.Emotes.AnimationStyle)
		if th.Physics.Enabled {
			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				if err := tl.Wait(w.ctx); err != nil {
					return
				}
				w.attach(inst)
			}()
		}
	}

	if w.deps.Observer != nil {
		w.deps.Observer.EmoteSpawned(data)
	}
	w.logger.Debug("emote spawned", "id", inst.ID(), "emote", data.Name, "provider", data.Provider, "theme", th.ID)
	return inst
}

// randomPosition returns a top-left corner that keeps the whole emote inside
// the container.
func (w *Wall) randomPosition() surface.Vec2 {
	area := w.deps.Container.Size()
	size := w.deps.EmoteSize

	w.mu.Lock()
	defer w.mu.Unlock()
	return surface.Vec2{
		X: w.rng.Float64() * max(0, area.W-size),
		Y: w.rng.Float64() * max(0, area.H-size),
	}
}

// attach hands inst to the physics world unless it was removed first.
func (w *Wall) attach(inst *Instance) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	if inst.removed {
		w.logger.Debug("physics attach skipped, instance removed", "id", inst.ID())
		return
	}
	cfg := inst.theme.Physics.Config
	_, ok := w.deps.Physics.Attach(inst.obj, physics.BodyOptions{
		Restitution: cfg.Restitution,
		Friction:    cfg.Friction,
		AirFriction: cfg.AirFriction,
	})
	if !ok {
		w.logger.Debug("physics attach skipped, object gone", "id", inst.ID())
		return
	}
	inst.attached = true
}

// remove tears inst down. It runs once per instance.
func (w *Wall) remove(inst *Instance) {
	inst.mu.Lock()
	if inst.removed {
		inst.mu.Unlock()
		return
	}
	inst.removed = true
	attached, trail := inst.attached, inst.trail
	inst.mu.Unlock()

	id := inst.ID()
	inst.obj.Remove()
	if attached {
		w.deps.Physics.Detach(id)
	}
	if trail {
		w.deps.Effects.RemoveTrailEffect(id)
	}

	w.mu.Lock()
	delete(w.instances, id)
	w.mu.Unlock()

	w.logger.Debug("emote removed", "id", id)
}
