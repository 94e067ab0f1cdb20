package catalog

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/flemzord/emotewall/pkg/emote"
)

const tracerName = "github.com/flemzord/emotewall/internal/catalog"

// Config configures a Catalog.
type Config struct {
	Name     string
	Kind     emote.ProviderKind
	Priority int
	Fetcher  Fetcher

	// Store caches snapshots. Nil disables caching.
	Store Store
	// TTL is how long a stored snapshot satisfies a load without a fetch.
	// Default: 5m.
	TTL time.Duration

	// URLs, when set, drops emotes whose image URL it rejects.
	URLs URLChecker

	Health   HealthConfig
	Recorder Recorder
	Logger   *slog.Logger
	Tracer   trace.Tracer

	// Now is injectable for testing. Defaults to time.Now.
	Now func() time.Time
}

func (c *Config) defaults() {
	if c.TTL <= 0 {
		c.TTL = 5 * time.Minute
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.Tracer == nil {
		c.Tracer = otel.Tracer(tracerName)
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Catalog is a Provider, ScopedLoader and Refresher backed by a Fetcher.
type Catalog struct {
	cfg    Config
	logger *slog.Logger
	health *sourceHealth
	sf     singleflight.Group

	mu           sync.RWMutex
	globalLoaded bool
	global       map[string]emote.Data
	scoped       map[string]map[string]emote.Data
	attempted    map[string]bool
}

var (
	_ Provider     = (*Catalog)(nil)
	_ ScopedLoader = (*Catalog)(nil)
	_ Refresher    = (*Catalog)(nil)
)

// New creates an empty catalog. Nothing is fetched until LoadGlobal or
// LoadScoped is called.
func New(cfg Config) *Catalog {
	cfg.defaults()
	return &Catalog{
		cfg:       cfg,
		logger:    cfg.Logger.With("provider", cfg.Name),
		health:    newSourceHealth(cfg.Health, cfg.Now),
		global:    map[string]emote.Data{},
		scoped:    make(map[string]map[string]emote.Data),
		attempted: make(map[string]bool),
	}
}

// logHealth reports state transitions of the source.
func (c *Catalog) logHealth(ch healthChange) {
	if ch.from == ch.to {
		return
	}
	switch ch.to {
	case HealthCooldown:
		c.logger.Warn("catalog source backing off", "backoff", ch.backoff, "failures", ch.failures)
	case HealthDead:
		c.logger.Error("catalog source marked dead", "failures", ch.failures, "retry_every", ch.backoff)
	case HealthOK:
		c.logger.Info("catalog source recovered", "was", ch.from)
	}
}

// Name returns the provider name.
func (c *Catalog) Name() string { return c.cfg.Name }

// Kind returns the provider kind.
func (c *Catalog) Kind() emote.ProviderKind { return c.cfg.Kind }

// Priority returns the resolution priority.
func (c *Catalog) Priority() int { return c.cfg.Priority }

// Health returns the health state label of the catalog source.
func (c *Catalog) Health() string { return c.health.State() }

// LoadGlobal loads the global catalog once.
func (c *Catalog) LoadGlobal(ctx context.Context) {
	_, _, _ = c.sf.Do("global", func() (any, error) {
		c.mu.RLock()
		done := c.globalLoaded
		c.mu.RUnlock()
		if done {
			return nil, nil
		}

		emotes, _ := c.load(ctx, GlobalScope, false)

		c.mu.Lock()
		c.global = index(emotes)
		c.globalLoaded = true
		c.mu.Unlock()
		return nil, nil
	})
}

// LoadScoped loads the catalog for scope. Concurrent callers share one
// fetch, and a scope is marked attempted even when the fetch fails so that
// messages never trigger refetches; Refresh retries it.
func (c *Catalog) LoadScoped(ctx context.Context, scope string) {
	if scope == "" || c.scopeAttempted(scope) {
		return
	}
	_, _, _ = c.sf.Do("scope:"+scope, func() (any, error) {
		if c.scopeAttempted(scope) {
			return nil, nil
		}

		emotes, _ := c.load(ctx, scope, false)

		c.mu.Lock()
		c.scoped[scope] = index(emotes)
		c.attempted[scope] = true
		c.mu.Unlock()
		return nil, nil
	})
}

func (c *Catalog) scopeAttempted(scope string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.attempted[scope]
}

// Resolve looks token up in scope first, then globally.
func (c *Catalog) Resolve(token, scope string) (emote.Data, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if scope != "" {
		if d, ok := c.scoped[scope][token]; ok {
			return d, true
		}
	}
	d, ok := c.global[token]
	return d, ok
}

// Refresh re-fetches the global catalog and every attempted scope,
// bypassing the snapshot cache. It is skipped while the source is backing
// off after failures.
func (c *Catalog) Refresh(ctx context.Context) {
	if wait := c.health.wait(); wait > 0 {
		c.logger.Debug("refresh skipped, source backing off", "retry_in", wait)
		return
	}

	if emotes, ok := c.load(ctx, GlobalScope, true); ok {
		c.mu.Lock()
		c.global = index(emotes)
		c.globalLoaded = true
		c.mu.Unlock()
	}

	for _, scope := range c.Scopes() {
		if ctx.Err() != nil {
			return
		}
		if emotes, ok := c.load(ctx, scope, true); ok {
			c.mu.Lock()
			c.scoped[scope] = index(emotes)
			c.mu.Unlock()
		}
	}
}

// Scopes returns every scope that has been loaded or attempted, sorted.
func (c *Catalog) Scopes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.attempted))
}

// Len returns the number of global emotes and the number of emotes in scope.
func (c *Catalog) Len(scope string) (global, scoped int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.global), len(c.scoped[scope])
}

// load fetches one catalog, consulting the store first unless force is set.
// On failure it falls back to a stale snapshot. ok reports whether emotes
// holds usable data.
func (c *Catalog) load(ctx context.Context, scope string, force bool) (emotes []emote.Data, ok bool) {
	kind := "global"
	if scope != GlobalScope {
		kind = "scoped"
	}
	ctx, span := c.cfg.Tracer.Start(ctx, "catalog.load", trace.WithAttributes(
		attribute.String("emote.provider", c.cfg.Name),
		attribute.String("emote.scope", scope),
		attribute.Bool("catalog.force", force),
	))
	defer span.End()

	stale, hasStale := c.cached(ctx, scope)
	if hasStale && !force && c.cfg.Now().Sub(stale.FetchedAt) < c.cfg.TTL {
		span.SetAttributes(attribute.Bool("catalog.cache_hit", true))
		return stale.Emotes, true
	}

	var err error
	if scope == GlobalScope {
		emotes, err = c.cfg.Fetcher.FetchGlobal(ctx)
	} else {
		emotes, err = c.cfg.Fetcher.FetchScoped(ctx, scope)
	}
	if c.cfg.Recorder != nil {
		c.cfg.Recorder.CatalogLoaded(c.cfg.Name, kind, len(emotes), err)
	}
	if err != nil {
		c.logHealth(c.health.fail())
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		c.logger.Warn("catalog load failed", "scope", scope, "error", err, "stale", hasStale)
		if hasStale {
			return stale.Emotes, true
		}
		return nil, false
	}
	c.logHealth(c.health.succeed())
	emotes = c.allowed(emotes, scope)
	span.SetAttributes(attribute.Int("catalog.emotes", len(emotes)))

	if c.cfg.Store != nil {
		snap := Snapshot{Provider: c.cfg.Name, Scope: scope, Emotes: emotes, FetchedAt: c.cfg.Now()}
		if err := c.cfg.Store.Put(ctx, snap); err != nil {
			c.logger.Warn("catalog snapshot not stored", "scope", scope, "error", err)
		}
	}
	c.logger.Debug("catalog loaded", "scope", scope, "emotes", len(emotes))
	return emotes, true
}

func (c *Catalog) cached(ctx context.Context, scope string) (Snapshot, bool) {
	if c.cfg.Store == nil {
		return Snapshot{}, false
	}
	snap, err := c.cfg.Store.Get(ctx, c.cfg.Name, scope)
	if err != nil {
		if !errors.Is(err, ErrNotLoaded) {
			c.logger.Warn("catalog snapshot unreadable", "scope", scope, "error", err)
		}
		return Snapshot{}, false
	}
	return snap, true
}

// allowed filters emotes through the URL checker.
func (c *Catalog) allowed(emotes []emote.Data, scope string) []emote.Data {
	if c.cfg.URLs == nil {
		return emotes
	}
	out := emotes[:0:0]
	for _, e := range emotes {
		if err := c.cfg.URLs.Check(e.URL); err != nil {
			c.logger.Debug("emote dropped", "scope", scope, "emote", e.Name, "error", err)
			continue
		}
		out = append(out, e)
	}
	return out
}

// index maps emote names to data. The first definition of a name wins.
func index(emotes []emote.Data) map[string]emote.Data {
	m := make(map[string]emote.Data, len(emotes))
	for _, e := range emotes {
		if e.Name == "" {
			continue
		}
		if _, dup := m[e.Name]; !dup {
			m[e.Name] = e
		}
	}
	return m
}
