// Package gateway provides the HTTP server for the overlay stream, health,
// metrics, the admin API and the MCP endpoint. It binds to loopback by
// default and follows the module system pattern.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/emotewall/internal/catalog"
	"github.com/flemzord/emotewall/internal/channel"
	"github.com/flemzord/emotewall/internal/core"
	"github.com/flemzord/emotewall/internal/cron"
	"github.com/flemzord/emotewall/internal/overlay"
	"github.com/flemzord/emotewall/internal/security"
	"github.com/flemzord/emotewall/internal/telemetry"
	"github.com/flemzord/emotewall/internal/theme"
	"github.com/flemzord/emotewall/internal/wall"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Service names the gateway resolves at Start. All are optional; the
// matching endpoints degrade when a service is missing.
const (
	WallService      = "wall.controller"
	ThemesService    = "theme.registry"
	HubService       = "channel.hub"
	MetricsService   = "telemetry.metrics"
	ProvidersService = "catalog.providers"
	ReloaderService  = "reload.handler"
	ConfigPathSvc    = "config.path"
	VersionService   = "app.version"
	RedactorService  = "security.redactor"
	JobsService      = "cron.scheduler"
)

// WallController is the part of the wall the admin API drives.
type WallController interface {
	Status() wall.Status
	Config() wall.Config
	SetConfig(cfg wall.Config)
	OnSceneChange(scene string)
}

// JobRunner lists the maintenance jobs and runs one on demand.
type JobRunner interface {
	Jobs() []cron.JobStatus
	Trigger(ctx context.Context, name string) error
}

// Reloader reloads the configuration file at path.
type Reloader interface {
	HandleReload(ctx context.Context, path string) error
}

// Gateway is the HTTP gateway module. Nothing imports it.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	addr      net.Addr
	audit     *security.AuditLogger
	auditFile io.Closer
	limiter   *security.RateLimiter
	redactor  *security.Redactor
	startedAt time.Time

	// Resolved lazily at Start() via service registry.
	wall       WallController
	themes     *theme.Registry
	hub        *channel.Hub
	metrics    *telemetry.Metrics
	overlay    http.Handler
	clients    interface{ Len() int }
	providers  []catalog.Provider
	reloader   Reloader
	jobs       JobRunner
	configPath string
	version    string
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner. It builds the rate limiter and the
// audit logger.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.limiter = security.NewRateLimiter(g.config.RateLimit)

	g.redactor = security.NewRedactor()
	if r, err := core.Lookup[*security.Redactor](ctx, RedactorService); err == nil {
		g.redactor = r
	}
	for _, src := range g.config.Webhooks {
		g.redactor.AddLiteral(src.Secret)
	}
	g.redactor.AddLiteral(g.config.Auth.BearerToken)
	g.redactor.AddLiteral(g.config.Auth.BasicPass)

	auditCfg := security.AuditLoggerConfig{
		Redactor: g.redactor,
		Sinks:    []security.AuditSink{security.SlogSink(g.logger)},
	}
	if g.config.AuditLog != "" {
		path := g.config.AuditLog
		if !filepath.IsAbs(path) {
			path = filepath.Join(ctx.DataDir, path)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("gateway: opening audit log: %w", err)
		}
		auditCfg.Sinks = append(auditCfg.Sinks, security.JSONLSink(f))
		g.auditFile = f
	}
	g.audit = security.NewAuditLogger(auditCfg)
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	for source, cfg := range g.config.Webhooks {
		if cfg.Secret == "" {
			return fmt.Errorf("gateway: webhook source %q has no secret", source)
		}
	}
	return nil
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	g.resolveServices()

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen on %s: %w", g.config.Bind, err)
	}
	g.addr = ln.Addr()
	g.startedAt = time.Now()
	g.server = &http.Server{
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	go func() {
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway stopped serving", "error", err)
		}
	}()
	g.logger.Info("gateway listening", "addr", g.addr.String())
	return nil
}

// Addr returns the bound listen address once Start has succeeded. With
// bind port 0 this is where the kernel put it.
func (g *Gateway) Addr() net.Addr {
	return g.addr
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.auditFile != nil {
		defer func() { _ = g.auditFile.Close() }()
	}
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

// resolveServices binds optional collaborators. Missing or mistyped
// services leave the field nil.
func (g *Gateway) resolveServices() {
	ctx := g.appCtx
	g.wall, _ = core.Lookup[WallController](ctx, WallService)
	g.themes, _ = core.Lookup[*theme.Registry](ctx, ThemesService)
	g.hub, _ = core.Lookup[*channel.Hub](ctx, HubService)
	g.metrics, _ = core.Lookup[*telemetry.Metrics](ctx, MetricsService)
	g.overlay, _ = core.Lookup[http.Handler](ctx, overlay.HandlerService)
	g.clients, _ = core.Lookup[interface{ Len() int }](ctx, overlay.HubService)
	g.providers, _ = core.Lookup[[]catalog.Provider](ctx, ProvidersService)
	g.reloader, _ = core.Lookup[Reloader](ctx, ReloaderService)
	g.jobs, _ = core.Lookup[JobRunner](ctx, JobsService)
	g.configPath, _ = core.Lookup[string](ctx, ConfigPathSvc)
	g.version, _ = core.Lookup[string](ctx, VersionService)
	if g.version == "" {
		g.version = "dev"
	}
}

// Interface guards.
var (
	_ core.Module       = (*Gateway)(nil)
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)
