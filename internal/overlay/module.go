package overlay

import (
	"context"
	"net/http"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/emotewall/internal/core"
)

func init() {
	core.RegisterModule(&Module{})
}

// Service names published by the module.
const (
	HubService     = "overlay.hub"
	HandlerService = "overlay.handler"
)

// Module runs a Hub inside the application lifecycle.
type Module struct {
	config Config
	hub    *Hub
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "overlay.ws",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	return node.Decode(&m.config)
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.hub = NewHub(m.config, ctx.Logger, nil)
	ctx.RegisterService(HubService, m.hub)
	ctx.RegisterService(HandlerService, http.Handler(m.hub))
	return nil
}

// Hub returns the provisioned hub.
func (m *Module) Hub() *Hub { return m.hub }

// Start implements core.Starter.
func (m *Module) Start() error {
	m.hub.Start()
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(_ context.Context) error {
	m.hub.Close()
	return nil
}

// Interface guards.
var (
	_ core.Module       = (*Module)(nil)
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)
