package reload

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/flemzord/emotewall/internal/channel"
	"github.com/flemzord/emotewall/internal/config"
	"github.com/flemzord/emotewall/internal/core"
	"github.com/flemzord/emotewall/internal/wall"
)

// HandlerConfig wires a Handler to the running application.
type HandlerConfig struct {
	App     *core.App
	Logger  *slog.Logger
	DataDir string

	// Hub receives the rebuilt chat filter. Optional.
	Hub *channel.Hub

	// Implicit lists registry modules loaded regardless of the config file,
	// so they are never reported as removed.
	Implicit []string
}

// Handler applies a changed configuration file to the running wall. Wall
// settings and the chat filter change live; adding or removing catalog,
// channel or store modules needs a restart and is only reported.
type Handler struct {
	cfg    HandlerConfig
	logger *slog.Logger

	mu      sync.Mutex
	pending []string
}

// NewHandler creates a reload handler.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{cfg: cfg, logger: logger}
}

// HandleReload loads a fresh config from disk, validates it and applies it.
func (h *Handler) HandleReload(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return h.handleReload(ctx, cfg)
}

// HandleReloadFromConfig applies an already validated config.
func (h *Handler) HandleReloadFromConfig(ctx context.Context, cfg *config.Config) error {
	return h.handleReload(ctx, cfg)
}

// Pending returns the module changes from the last reload that only take
// effect after a restart, as "+id" and "-id" entries.
func (h *Handler) Pending() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.pending)
}

func (h *Handler) handleReload(ctx context.Context, cfg *config.Config) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before reload: %w", err)
	}

	appCtx := core.NewAppContext(h.logger, h.cfg.DataDir)
	appCtx = appCtx.WithModuleConfigs(cfg.Modules)
	appCtx.RegisterService(wall.ConfigService, cfg.Wall)

	if err := h.cfg.App.ReloadModules(appCtx); err != nil {
		return fmt.Errorf("reloading modules: %w", err)
	}

	if h.cfg.Hub != nil {
		h.cfg.Hub.SetAllowList(channel.NewAllowList(cfg.Chat.Scopes, cfg.Chat.IgnoreUsers))
	}

	pending := h.diffModules(config.ModuleIDs(cfg))
	h.mu.Lock()
	h.pending = pending
	h.mu.Unlock()
	if len(pending) > 0 {
		h.logger.Warn("module changes need a restart", "modules", pending)
	}

	h.logger.Info("configuration reloaded", "theme", cfg.Wall.Theme, "enabled", cfg.Wall.IsEnabled())
	return nil
}

// diffModules compares the configured module set with what is running.
// Modules the composition root appended on its own are not in the registry
// and are ignored.
func (h *Handler) diffModules(configured []string) []string {
	loaded := make(map[string]bool)
	for _, id := range h.cfg.App.ModuleIDs() {
		if _, ok := core.GetModule(string(id)); ok {
			loaded[string(id)] = true
		}
	}

	var out []string
	for _, id := range configured {
		if !loaded[id] {
			out = append(out, "+"+id)
		}
		delete(loaded, id)
	}
	for _, id := range h.cfg.Implicit {
		delete(loaded, id)
	}
	removed := make([]string, 0, len(loaded))
	for id := range loaded {
		removed = append(removed, "-"+id)
	}
	slices.Sort(removed)
	return append(out, removed...)
}
