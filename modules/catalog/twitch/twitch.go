// Package twitch implements the catalog.twitch module, resolving native
// Twitch emotes through the Helix API.
package twitch

import (
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/emotewall/internal/catalog"
	"github.com/flemzord/emotewall/internal/core"
	"github.com/flemzord/emotewall/internal/security"
	"github.com/flemzord/emotewall/pkg/emote"
)

// Priority is the resolution rank of native emotes.
const Priority = 1

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ catalog.Provider     = (*Module)(nil)
	_ catalog.ScopedLoader = (*Module)(nil)
	_ core.Configurable    = (*Module)(nil)
	_ core.Provisioner     = (*Module)(nil)
	_ core.Validator       = (*Module)(nil)
)

// Module is the native Twitch catalog provider.
type Module struct {
	*catalog.Catalog
	config Config
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "catalog.twitch",
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

	if store, err := core.Lookup[*security.CredentialStore](ctx, security.CredentialsService); err == nil && m.config.enabled() {
		store.Set("twitch_client_id", m.config.ClientID)
		store.Set("twitch_token", m.config.Token)
	}

	m.Catalog = catalog.FromContext(ctx, catalog.Config{
		Name:     "twitch",
		Kind:     emote.ProviderNative,
		Priority: Priority,
		Fetcher: &Fetcher{
			Client:   &http.Client{Timeout: m.config.parsedTimeout()},
			BaseURL:  strings.TrimSuffix(m.config.BaseURL, "/"),
			ClientID: m.config.ClientID,
			Token:    m.config.Token,
			Logger:   ctx.Logger,
		},
	})
	ctx.RegisterService("catalog.twitch", m)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	return m.config.validate()
}
