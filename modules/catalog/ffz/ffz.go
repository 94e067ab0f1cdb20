// Package ffz implements the catalog.ffz module, resolving FrankerFaceZ
// global and per-room emotes.
package ffz

import (
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/emotewall/internal/catalog"
	"github.com/flemzord/emotewall/internal/core"
	"github.com/flemzord/emotewall/pkg/emote"
)

// Priority is the resolution rank of FFZ emotes.
const Priority = 3

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ catalog.Provider     = (*Module)(nil)
	_ catalog.ScopedLoader = (*Module)(nil)
	_ catalog.Refresher    = (*Module)(nil)
	_ core.Module          = (*Module)(nil)
	_ core.Configurable    = (*Module)(nil)
	_ core.Provisioner     = (*Module)(nil)
	_ core.Validator       = (*Module)(nil)
)

// Module is the FFZ catalog provider. The embedded catalog is built
// during Provision.
type Module struct {
	*catalog.Catalog
	config Config
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "catalog.ffz",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return err
	}
	m.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	m.Catalog = catalog.FromContext(ctx, catalog.Config{
		Name:     "ffz",
		Kind:     emote.ProviderFFZ,
		Priority: Priority,
		Fetcher: &Fetcher{
			Client:  &http.Client{Timeout: m.config.parsedTimeout()},
			BaseURL: strings.TrimSuffix(m.config.BaseURL, "/"),
		},
	})
	ctx.RegisterService("catalog.ffz", m)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}
