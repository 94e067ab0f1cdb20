package wall

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/flemzord/emotewall/internal/animation"
	"github.com/flemzord/emotewall/internal/catalog"
	"github.com/flemzord/emotewall/internal/catalog/catalogtest"
	"github.com/flemzord/emotewall/internal/channel"
	"github.com/flemzord/emotewall/internal/frame"
	"github.com/flemzord/emotewall/internal/particle"
	"github.com/flemzord/emotewall/internal/physics"
	"github.com/flemzord/emotewall/internal/resolve"
	"github.com/flemzord/emotewall/internal/scene"
	"github.com/flemzord/emotewall/internal/surface"
	"github.com/flemzord/emotewall/internal/theme"
	"github.com/flemzord/emotewall/pkg/emote"
)

// countingPhysics records gravity pushes on top of a real world.
type countingPhysics struct {
	*physics.World

	mu      sync.Mutex
	updates []float64
}

func (c *countingPhysics) UpdateWorldProperties(p physics.Properties) {
	c.mu.Lock()
	c.updates = append(c.updates, p.Gravity)
	c.mu.Unlock()
	c.World.UpdateWorldProperties(p)
}

func (c *countingPhysics) Updates() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]float64(nil), c.updates...)
}

type countingObserver struct {
	mu    sync.Mutex
	names []string
}

func (o *countingObserver) EmoteSpawned(d emote.Data) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.names = append(o.names, d.Name)
}

type harness struct {
	clock     *frame.ManualClock
	scene     *scene.Scene
	world     *physics.World
	physics   *countingPhysics
	particles *particle.System
	provider  *catalogtest.Provider
	themes    *theme.Registry
	observer  *countingObserver
	wall      *Wall
}

func newHarness(t *testing.T, wrap func(Resolver) Resolver) *harness {
	t.Helper()

	h := &harness{
		clock:    frame.NewManualClock(time.Unix(0, 0)),
		scene:    scene.New(surface.Size{W: 800, H: 600}),
		provider: catalogtest.NewProvider("twitch", emote.ProviderNative, 1, "Kappa", "PogChamp"),
		themes:   theme.Builtin(),
		observer: &countingObserver{},
	}
	h.world = physics.New(physics.Config{Container: h.scene, Clock: h.clock})
	t.Cleanup(h.world.Close)
	h.physics = &countingPhysics{World: h.world}
	h.particles = particle.New(particle.Config{
		Container: h.scene,
		Canvas:    h.scene.Canvas(),
		Clock:     h.clock,
		Rand:      rand.New(rand.NewPCG(1, 2)),
	})
	t.Cleanup(h.particles.Close)

	var resolver Resolver = resolve.NewEngine([]catalog.Provider{h.provider})
	if wrap != nil {
		resolver = wrap(resolver)
	}
	w, err := New(Deps{
		Container: h.scene,
		Resolver:  resolver,
		Physics:   h.physics,
		Effects:   h.particles,
		Entrances: animation.New(h.clock, 60),
		Clock:     h.clock,
		Rand:      rand.New(rand.NewPCG(3, 4)),
		Observer:  h.observer,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(w.Close)
	h.wall = w
	return h
}

func (h *harness) configure(t *testing.T, id string, enabled bool) theme.Theme {
	t.Helper()
	th, err := h.themes.Lookup(id)
	if err != nil {
		t.Fatalf("Lookup(%q): %v", id, err)
	}
	h.wall.SetConfig(Config{Enabled: enabled, Theme: th})
	return th
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	t.Parallel()

	if _, err := New(Deps{}); err == nil {
		t.Fatal("New(Deps{}) succeeded, want error")
	}
}

func TestWall_SetConfigDiffsByThemeID(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.configure(t, "cosmic", true)
	h.configure(t, "cosmic", false)
	h.configure(t, "cosmic", true)

	if got := h.physics.Updates(); len(got) != 1 || got[0] != 0.1 {
		t.Errorf("gravity updates = %v, want [0.1]", got)
	}
	cosmic, _ := h.themes.Lookup("cosmic")
	if bg := h.scene.Background(); bg != cosmic.Environment.Background {
		t.Errorf("background = %q, want cosmic background", bg)
	}

	h.configure(t, "cyberpunk", true)
	if got := h.physics.Updates(); len(got) != 2 {
		t.Errorf("gravity updates after switch = %v, want 2 entries", got)
	}
	if g := h.world.Gravity(); g != 1 {
		t.Errorf("world gravity = %v, want 1", g)
	}
	if st := h.wall.Status(); st.Theme != "cyberpunk" || !st.Enabled {
		t.Errorf("Status() = %+v", st)
	}
}

func TestWall_IgnoresMessagesWhenInactive(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	ctx := context.Background()

	n, err := h.wall.HandleMessage(ctx, channel.Message{Text: "Kappa"})
	if err != nil || n != 0 {
		t.Fatalf("no theme: HandleMessage = %d, %v; want 0, nil", n, err)
	}

	h.configure(t, "default", false)
	n, err = h.wall.HandleMessage(ctx, channel.Message{Text: "Kappa"})
	if err != nil || n != 0 {
		t.Fatalf("disabled: HandleMessage = %d, %v; want 0, nil", n, err)
	}
	if h.scene.Len() != 0 {
		t.Errorf("scene has %d objects, want 0", h.scene.Len())
	}
}

func TestWall_SpawnsOneInstancePerEmote(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	th := h.configure(t, "default", true)

	n, err := h.wall.HandleMessage(context.Background(), channel.Message{Text: "Kappa hello Kappa PogChamp"})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if n != 3 {
		t.Fatalf("spawned %d, want 3", n)
	}
	if h.wall.Len() != 3 || h.scene.Len() != 3 {
		t.Errorf("instances = %d, scene objects = %d; want 3 and 3", h.wall.Len(), h.scene.Len())
	}
	if got, want := h.particles.LiveCount(), 3*th.Particles.ExplosionCount; got != want {
		t.Errorf("live particles = %d, want %d", got, want)
	}
	if got := h.particles.TrailCount(); got != 3 {
		t.Errorf("trails = %d, want 3", got)
	}

	h.observer.mu.Lock()
	defer h.observer.mu.Unlock()
	if len(h.observer.names) != 3 {
		t.Errorf("observer saw %v", h.observer.names)
	}
}

func TestWall_SpawnPositionInsideContainer(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.scene.SetSize(surface.Size{W: 120, H: 80})
	h.configure(t, "cyberpunk", true)

	for range 200 {
		inst := h.wall.Spawn(catalogtest.Emote(emote.ProviderNative, "Kappa"))
		if inst == nil {
			t.Fatal("Spawn returned nil")
		}
		tf := inst.Object().Transform()
		if tf.X < 0 || tf.Y < 0 || tf.X+DefaultEmoteSize > 120 || tf.Y+DefaultEmoteSize > 80 {
			t.Fatalf("instance at (%v, %v) is not fully inside 120x80", tf.X, tf.Y)
		}
	}
}

func TestWall_PhysicsEntranceAttachesImmediately(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.configure(t, "cosmic", true)

	inst := h.wall.Spawn(catalogtest.Emote(emote.ProviderNative, "Kappa"))
	if !inst.Attached() {
		t.Error("instance not attached right after spawn")
	}
	if !h.world.Tracked(inst.ID()) {
		t.Error("world does not track the instance")
	}
}

func TestWall_AnimatedEntranceAttachesAfterTimeline(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.configure(t, "default", true)

	inst := h.wall.Spawn(catalogtest.Emote(emote.ProviderNative, "Kappa"))
	if inst.Attached() {
		t.Fatal("instance attached before its entrance finished")
	}

	h.clock.Advance(time.Second)
	eventually(t, "physics attach", inst.Attached)
	if h.world.BodyCount() != 1 {
		t.Errorf("BodyCount() = %d, want 1", h.world.BodyCount())
	}
}

func TestWall_NoPhysicsWhenThemeDisablesIt(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.configure(t, "cyberpunk", true)

	inst := h.wall.Spawn(catalogtest.Emote(emote.ProviderNative, "Kappa"))
	h.clock.Advance(time.Second)
	h.wall.Close()

	if inst.Attached() || h.world.BodyCount() != 0 {
		t.Errorf("attached = %v, bodies = %d; want no physics", inst.Attached(), h.world.BodyCount())
	}
}

func TestWall_RemovalAfterDuration(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	th := h.configure(t, "cosmic", true)

	inst := h.wall.Spawn(catalogtest.Emote(emote.ProviderNative, "Kappa"))
	h.clock.Advance(th.Emotes.Duration - time.Millisecond)
	if inst.Removed() {
		t.Fatal("instance removed before its duration elapsed")
	}

	h.clock.Advance(time.Millisecond)
	if !inst.Removed() {
		t.Fatal("instance not removed after its duration")
	}
	if h.wall.Len() != 0 || h.scene.Len() != 0 {
		t.Errorf("instances = %d, scene objects = %d; want 0", h.wall.Len(), h.scene.Len())
	}
	if h.world.BodyCount() != 0 {
		t.Errorf("BodyCount() = %d, want 0", h.world.BodyCount())
	}
	if h.particles.TrailCount() != 0 {
		t.Errorf("TrailCount() = %d, want 0", h.particles.TrailCount())
	}
	if _, ok := h.wall.Instance(inst.ID()); ok {
		t.Error("instance still listed")
	}
}

const shortLivedThemes = `
themes:
  - id: default
    name: Blink
    description: Gone before the entrance ends.
    environment:
      background: transparent
    emotes:
      animation_style: epic
      duration_ms: 500
    physics:
      enabled: true
      restitution: 0.6
      friction: 0.1
      air_friction: 0.02
      gravity: 0.5
    particles:
      explosion_enabled: false
      explosion_count: 0
      explosion_power: 0
      explosion_lifespan_sec: 0
      trail_enabled: false
      trail_color: "#ffffff"
      trail_lifespan_sec: 0
`

func TestWall_RemovedBeforeEntranceSkipsAttach(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	reg, err := theme.Load([]byte(shortLivedThemes))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	h.wall.SetConfig(Config{Enabled: true, Theme: reg.Default()})

	inst := h.wall.Spawn(catalogtest.Emote(emote.ProviderNative, "Kappa"))
	h.clock.Advance(500 * time.Millisecond)
	if !inst.Removed() {
		t.Fatal("instance not removed")
	}
	h.clock.Advance(time.Second)
	h.wall.Close()

	if inst.Attached() || h.world.BodyCount() != 0 {
		t.Errorf("attached = %v, bodies = %d; want removed instance left out of physics", inst.Attached(), h.world.BodyCount())
	}
}

// Instances already in the world keep simulating after a switch to a theme
// without physics; nothing spawned afterwards is attached.
func TestWall_ThemeSwitchKeepsExistingBodies(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.configure(t, "default", true)

	var before []*Instance
	for range 3 {
		before = append(before, h.wall.Spawn(catalogtest.Emote(emote.ProviderNative, "Kappa")))
	}
	h.clock.Advance(time.Second)
	eventually(t, "three bodies", func() bool { return h.world.BodyCount() == 3 })

	h.configure(t, "cyberpunk", true)
	var after []*Instance
	for range 2 {
		after = append(after, h.wall.Spawn(catalogtest.Emote(emote.ProviderNative, "PogChamp")))
	}
	h.clock.Advance(time.Second)

	for _, inst := range before {
		if !inst.Attached() || !h.world.Tracked(inst.ID()) {
			t.Errorf("instance %s left physics after the switch", inst.ID())
		}
	}
	for _, inst := range after {
		if inst.Attached() {
			t.Errorf("instance %s spawned after the switch was attached", inst.ID())
		}
		if inst.ThemeID() != "cyberpunk" {
			t.Errorf("ThemeID() = %q, want cyberpunk", inst.ThemeID())
		}
	}
	if h.world.BodyCount() != 3 {
		t.Errorf("BodyCount() = %d, want 3", h.world.BodyCount())
	}

	// default lives 15s; those three leave with their own timers.
	h.clock.Advance(13 * time.Second)
	if h.world.BodyCount() != 0 {
		t.Errorf("BodyCount() after removal = %d, want 0", h.world.BodyCount())
	}
}

// gatedResolver reports when a resolution has started.
type gatedResolver struct {
	inner   Resolver
	entered chan struct{}
}

func (g *gatedResolver) ParseMessage(ctx context.Context, text, scope string) (emote.ParsedMessage, error) {
	close(g.entered)
	return g.inner.ParseMessage(ctx, text, scope)
}

func TestWall_DisabledDuringResolutionSpawnsNothing(t *testing.T) {
	t.Parallel()

	gate := &gatedResolver{entered: make(chan struct{})}
	h := newHarness(t, func(r Resolver) Resolver {
		gate.inner = r
		return gate
	})
	h.provider.Gate = make(chan struct{})
	h.provider.AddScoped("42", "widepeepoHappy")
	h.configure(t, "default", true)

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := h.wall.HandleMessage(context.Background(), channel.Message{Text: "Kappa widepeepoHappy", Scope: "42"})
		done <- result{n, err}
	}()

	<-gate.entered
	h.configure(t, "default", false)
	close(h.provider.Gate)

	res := <-done
	if res.err != nil {
		t.Fatalf("HandleMessage: %v", res.err)
	}
	if res.n != 0 || h.scene.Len() != 0 {
		t.Errorf("spawned %d, scene objects %d; want nothing", res.n, h.scene.Len())
	}
}

func TestWall_ConnectToChat(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.configure(t, "cyberpunk", true)
	hub := channel.NewHub(nil, nil)

	h.wall.ConnectToChat(hub)
	if !h.wall.Connected() {
		t.Fatal("Connected() = false after ConnectToChat")
	}
	if err := hub.Publish(channel.Message{Text: "Kappa"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	eventually(t, "spawn from chat", func() bool { return h.wall.Len() == 1 })

	h.wall.Disconnect()
	if hub.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d after Disconnect, want 0", hub.Subscribers())
	}
	if h.wall.Connected() {
		t.Error("Connected() = true after Disconnect")
	}
}

func TestWall_ClosedWallDoesNotSpawn(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.configure(t, "default", true)
	h.wall.Close()

	if inst := h.wall.Spawn(catalogtest.Emote(emote.ProviderNative, "Kappa")); inst != nil {
		t.Error("Spawn after Close returned an instance")
	}
}
