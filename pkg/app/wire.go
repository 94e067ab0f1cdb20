package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flemzord/emotewall/internal/animation"
	"github.com/flemzord/emotewall/internal/catalog"
	"github.com/flemzord/emotewall/internal/channel"
	"github.com/flemzord/emotewall/internal/config"
	"github.com/flemzord/emotewall/internal/core"
	"github.com/flemzord/emotewall/internal/cron"
	"github.com/flemzord/emotewall/internal/frame"
	"github.com/flemzord/emotewall/internal/gateway"
	"github.com/flemzord/emotewall/internal/overlay"
	"github.com/flemzord/emotewall/internal/particle"
	"github.com/flemzord/emotewall/internal/physics"
	"github.com/flemzord/emotewall/internal/reload"
	"github.com/flemzord/emotewall/internal/resolve"
	"github.com/flemzord/emotewall/internal/scene"
	"github.com/flemzord/emotewall/internal/security"
	"github.com/flemzord/emotewall/internal/surface"
	"github.com/flemzord/emotewall/internal/telemetry"
	"github.com/flemzord/emotewall/internal/theme"
	"github.com/flemzord/emotewall/internal/wall"
)

// Service names owned by the composition root.
const (
	CredentialsService = security.CredentialsService
	ReloadService      = gateway.ReloaderService
)

// overlayModuleID is always loaded: the wall has no other output.
const overlayModuleID = "overlay.ws"

// warmupTimeout bounds the initial global catalog loads.
const warmupTimeout = 30 * time.Second

// BuildParams are the inputs of Build.
type BuildParams struct {
	Config     *config.Config
	ConfigPath string
	DataDir    string
	Version    string
	Logger     *slog.Logger

	Redactor *security.Redactor
	// Credentials must already be followed by Redactor when both are set.
	Credentials *security.CredentialStore

	// Clock drives every tick loop and timer. Nil uses the system clock.
	Clock frame.Clock
}

// Runtime is the assembled application, ready to Start.
type Runtime struct {
	App       *core.App
	Context   *core.AppContext
	Hub       *channel.Hub
	Overlay   *overlay.Hub
	Scene     *scene.Scene
	Wall      *wall.Wall
	Metrics   *telemetry.Metrics
	Providers []catalog.Provider
	Scheduler *cron.Scheduler
	Reload    *reload.Handler
}

// Build loads every configured module and wires the wall between them:
// channels feed the hub, the hub feeds the wall, and the scene publishes
// frames to the overlay. Nothing is started.
func Build(p BuildParams) (_ *Runtime, err error) {
	cfg := p.Config
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clock := p.Clock
	if clock == nil {
		clock = frame.SystemClock{}
	}
	redactor := p.Redactor
	if redactor == nil {
		redactor = security.NewRedactor()
	}
	creds := p.Credentials
	if creds == nil {
		creds = security.NewCredentialStore()
		redactor.Follow(creds)
	}

	appCtx := core.NewAppContext(logger, p.DataDir).WithModuleConfigs(cfg.Modules)

	metrics := telemetry.NewMetrics()
	themes := theme.Builtin()
	hub := channel.NewHub(channel.NewAllowList(cfg.Chat.Scopes, cfg.Chat.IgnoreUsers), logger.With("component", "hub"))
	urls := security.NewURLFilter(security.URLFilterConfig{
		AllowDomains: cfg.Catalog.AllowDomains,
		DenyDomains:  cfg.Catalog.DenyDomains,
	})

	appCtx.RegisterService(CredentialsService, creds)
	appCtx.RegisterService(gateway.RedactorService, redactor)
	appCtx.RegisterService(gateway.ThemesService, themes)
	appCtx.RegisterService(gateway.HubService, hub)
	appCtx.RegisterService(gateway.MetricsService, metrics)
	appCtx.RegisterService(gateway.VersionService, p.Version)
	appCtx.RegisterService(gateway.ConfigPathSvc, p.ConfigPath)
	appCtx.RegisterService(catalog.RecorderService, catalog.Recorder(metrics))
	appCtx.RegisterService(catalog.TTLService, cfg.Catalog.TTL)
	appCtx.RegisterService(catalog.URLService, catalog.URLChecker(urls))
	// A store module provisioned later replaces this one.
	appCtx.RegisterService(catalog.StoreService, catalog.Store(catalog.NewMemStore()))

	application := core.NewApp(appCtx)
	ids := moduleOrder(config.ModuleIDs(cfg))
	if err := application.LoadModules(ids); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			application.Close()
		}
	}()

	providers, err := discover(application, ids, hub, logger)
	if err != nil {
		return nil, err
	}

	ovl, err := core.Lookup[*overlay.Hub](appCtx, overlay.HubService)
	if err != nil {
		return nil, err
	}

	scheduler, err := newScheduler(cfg, providers, appCtx, logger)
	if err != nil {
		return nil, err
	}

	size := surface.Size{W: float64(cfg.Wall.Width), H: float64(cfg.Wall.Height)}
	sc := scene.New(size, scene.WithPublisher(ovl.Publish))
	ovl.SetResizer(sc.SetSize)
	ovl.OnFrameDropped(metrics.FrameDropped)

	world := physics.New(physics.Config{
		Container: sc,
		FPS:       cfg.Wall.FPS,
		Clock:     clock,
		Logger:    logger.With("component", "physics"),
	})
	particles := particle.New(particle.Config{
		Container: sc,
		Canvas:    sc.Canvas(),
		FPS:       cfg.Wall.FPS,
		Clock:     clock,
		Logger:    logger.With("component", "particles"),
	})

	engine := resolve.NewEngine(providers,
		resolve.WithLogger(logger.With("component", "resolve")),
		resolve.WithMentions(cfg.Wall.Mentions),
		resolve.WithLinks(cfg.Wall.Links),
	)

	w, err := wall.New(wall.Deps{
		Container: sc,
		Resolver:  engine,
		Physics:   world,
		Effects:   particles,
		Entrances: animation.New(clock, cfg.Wall.FPS),
		Clock:     clock,
		EmoteSize: float64(cfg.Wall.EmoteSize),
		Observer:  metrics,
		Logger:    logger,
	})
	if err != nil {
		world.Close()
		particles.Close()
		return nil, fmt.Errorf("app: building wall: %w", err)
	}

	hub.Subscribe(func(channel.Message) { metrics.RecordMessage() })
	metrics.GaugeFunc("live_particles", "Particles currently alive.", func() float64 { return float64(particles.LiveCount()) })
	metrics.GaugeFunc("physics_bodies", "Bodies tracked by the physics world.", func() float64 { return float64(world.BodyCount()) })
	metrics.GaugeFunc("wall_instances", "Emote instances currently on the wall.", func() float64 { return float64(w.Len()) })
	metrics.GaugeFunc("overlay_clients", "Connected overlay clients.", func() float64 { return float64(ovl.Len()) })

	application.AppendModule(&warmupModule{providers: providers, logger: logger})
	application.AppendModule(&schedulerModule{scheduler: scheduler})
	application.AppendModule(wall.NewModule(wall.ModuleConfig{
		Wall:      w,
		Transport: hub,
		Themes:    themes,
		Initial:   cfg.Wall,
		Runners:   []wall.Runner{particles},
		Closers:   []func(){world.Close, particles.Close},
	}))

	handler := reload.NewHandler(reload.HandlerConfig{
		App:      application,
		Logger:   logger,
		DataDir:  p.DataDir,
		Hub:      hub,
		Implicit: []string{overlayModuleID},
	})
	appCtx.RegisterService(gateway.WallService, gateway.WallController(w))
	appCtx.RegisterService(gateway.ProvidersService, providers)
	appCtx.RegisterService(ReloadService, gateway.Reloader(handler))
	appCtx.RegisterService(gateway.JobsService, gateway.JobRunner(scheduler))

	return &Runtime{
		App:       application,
		Context:   appCtx,
		Hub:       hub,
		Overlay:   ovl,
		Scene:     sc,
		Wall:      w,
		Metrics:   metrics,
		Providers: providers,
		Scheduler: scheduler,
		Reload:    handler,
	}, nil
}

// moduleOrder puts store modules first so catalogs find them during
// Provision, and always includes the overlay.
func moduleOrder(ids []string) []string {
	out := slices.Clone(ids)
	if !slices.Contains(out, overlayModuleID) {
		out = append(out, overlayModuleID)
	}
	slices.SortStableFunc(out, func(a, b string) int {
		as, bs := strings.HasPrefix(a, "store."), strings.HasPrefix(b, "store.")
		switch {
		case as == bs:
			return strings.Compare(a, b)
		case as:
			return -1
		default:
			return 1
		}
	})
	return out
}

// discover registers every loaded channel with the hub and returns the
// catalog providers, ordered by priority.
func discover(application *core.App, ids []string, hub *channel.Hub, logger *slog.Logger) ([]catalog.Provider, error) {
	var providers []catalog.Provider
	for _, id := range ids {
		mod, ok := application.Module(core.ModuleID(id))
		if !ok {
			continue
		}
		if ch, ok := mod.(channel.Channel); ok {
			if err := hub.Register(id, ch); err != nil {
				return nil, fmt.Errorf("app: registering channel %s: %w", id, err)
			}
			logger.Info("registered chat channel", "channel", id)
		}
		if prov, ok := mod.(catalog.Provider); ok {
			providers = append(providers, prov)
			logger.Info("registered catalog provider", "provider", prov.Name(), "priority", prov.Priority())
		}
	}
	slices.SortStableFunc(providers, func(a, b catalog.Provider) int {
		return a.Priority() - b.Priority()
	})
	if len(providers) == 0 {
		logger.Warn("no catalog providers configured, chat will render as plain text")
	}
	return providers, nil
}

func newScheduler(cfg *config.Config, providers []catalog.Provider, appCtx *core.AppContext, logger *slog.Logger) (*cron.Scheduler, error) {
	scheduler := cron.NewScheduler(logger.With("component", "cron"))

	var sources []cron.RefreshSource
	for _, p := range providers {
		if src, ok := p.(cron.RefreshSource); ok {
			sources = append(sources, src)
		}
	}
	if len(sources) > 0 {
		if err := scheduler.RegisterJob(&cron.CatalogRefreshJob{
			Sources:      sources,
			Logger:       logger,
			ScheduleExpr: cfg.Catalog.Refresh,
		}); err != nil {
			return nil, err
		}
	}

	if pruner, err := core.Lookup[catalog.Pruner](appCtx, catalog.StoreService); err == nil {
		if err := scheduler.RegisterJob(&cron.SnapshotPruneJob{
			Store:  pruner,
			MaxAge: 24 * time.Hour,
			Logger: logger,
		}); err != nil {
			return nil, err
		}
	}
	return scheduler, nil
}

// warmupModule loads every global catalog in the background at Start.
type warmupModule struct {
	providers []catalog.Provider
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (m *warmupModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "catalog.warmup"}
}

func (m *warmupModule) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		start := time.Now()
		var g errgroup.Group
		for _, p := range m.providers {
			g.Go(func() error {
				p.LoadGlobal(ctx)
				return nil
			})
		}
		_ = g.Wait()
		m.logger.Info("global catalogs loaded", "providers", len(m.providers), "took", time.Since(start).Round(time.Millisecond))
	}()
	return nil
}

func (m *warmupModule) Stop(context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	return nil
}

// schedulerModule runs the cron scheduler inside the app lifecycle.
type schedulerModule struct {
	scheduler *cron.Scheduler
}

func (m *schedulerModule) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "cron.scheduler"}
}

func (m *schedulerModule) Start() error { return m.scheduler.Start() }

func (m *schedulerModule) Stop(ctx context.Context) error { return m.scheduler.Stop(ctx) }

var (
	_ core.Starter = (*warmupModule)(nil)
	_ core.Stopper = (*warmupModule)(nil)
	_ core.Starter = (*schedulerModule)(nil)
	_ core.Stopper = (*schedulerModule)(nil)
)
