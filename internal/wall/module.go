package wall

import (
	"context"
	"errors"
	"fmt"

	"github.com/flemzord/emotewall/internal/channel"
	"github.com/flemzord/emotewall/internal/config"
	"github.com/flemzord/emotewall/internal/core"
	"github.com/flemzord/emotewall/internal/theme"
)

// ModuleID is the id the wall runs under in the application lifecycle.
const ModuleID core.ModuleID = "wall"

// ConfigService is the service name under which the reload path publishes
// the fresh config.WallConfig.
const ConfigService = "config.wall"

// Runner is a loop the module starts and stops with the wall, such as the
// particle system.
type Runner interface {
	Start()
	Stop()
}

// ModuleConfig wires a Module.
type ModuleConfig struct {
	Wall      *Wall
	Transport channel.Transport
	Themes    *theme.Registry
	Initial   config.WallConfig
	Runners   []Runner
	// Closers run after the wall is closed, in order.
	Closers []func()
}

// Module runs a Wall inside the application lifecycle. It is built by the
// composition root rather than the module registry because it needs live
// collaborators.
type Module struct {
	cfg ModuleConfig
}

// NewModule creates the wall module.
func NewModule(cfg ModuleConfig) *Module {
	return &Module{cfg: cfg}
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: ModuleID}
}

// Wall returns the orchestrator.
func (m *Module) Wall() *Wall { return m.cfg.Wall }

// Start applies the initial config, starts the runners and subscribes to chat.
func (m *Module) Start() error {
	if err := m.apply(m.cfg.Initial); err != nil {
		return err
	}
	for _, r := range m.cfg.Runners {
		r.Start()
	}
	m.cfg.Wall.ConnectToChat(m.cfg.Transport)
	return nil
}

// Stop disconnects from chat and shuts the loops down.
func (m *Module) Stop(_ context.Context) error {
	m.cfg.Wall.Close()
	for _, r := range m.cfg.Runners {
		r.Stop()
	}
	for _, c := range m.cfg.Closers {
		c()
	}
	return nil
}

// Reload re-applies enabled and theme from the config published under
// ConfigService. Without one it keeps the current state.
func (m *Module) Reload(ctx *core.AppContext) error {
	wc, err := core.Lookup[config.WallConfig](ctx, ConfigService)
	if errors.Is(err, core.ErrNoService) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("wall: %w", err)
	}
	return m.apply(wc)
}

func (m *Module) apply(wc config.WallConfig) error {
	th, err := m.cfg.Themes.Lookup(wc.Theme)
	if err != nil {
		return fmt.Errorf("wall: %w", err)
	}
	m.cfg.Wall.SetConfig(Config{Enabled: wc.IsEnabled(), Theme: th})
	return nil
}

// Interface guards.
var (
	_ core.Module   = (*Module)(nil)
	_ core.Starter  = (*Module)(nil)
	_ core.Stopper  = (*Module)(nil)
	_ core.Reloader = (*Module)(nil)
)
