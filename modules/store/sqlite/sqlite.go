// Package sqlite implements the store.sqlite module: catalog snapshots kept
// across restarts in a modernc.org/sqlite database.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/emotewall/internal/catalog"
	"github.com/flemzord/emotewall/internal/core"
)

func init() {
	core.RegisterModule(&Module{})
}

var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
)

// Module opens the snapshot database and registers it as the catalog
// store. It must be provisioned before the catalog modules.
type Module struct {
	config Config
	logger *slog.Logger
	store  *Store
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "store.sqlite",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("sqlite: decode config: %w", err)
	}
	m.config.defaults()
	return m.config.validate()
}

// Provision implements core.Provisioner.
func (m *Module) Provision(ctx *core.AppContext) error {
	m.config.defaults()
	if m.config.Path == "" {
		m.config.Path = filepath.Join(ctx.DataDir, "catalog.db")
	}
	m.logger = ctx.Logger.With("path", m.config.Path)

	openCtx, cancel := context.WithTimeout(context.Background(), m.config.BusyTimeout+5*time.Second)
	defer cancel()
	store, err := Open(openCtx, m.config)
	if err != nil {
		return err
	}
	m.store = store
	ctx.RegisterService(catalog.StoreService, store)

	n, err := store.Len(openCtx)
	if err != nil {
		return fmt.Errorf("sqlite: count snapshots: %w", err)
	}
	m.logger.Info("catalog store opened", "journal_mode", m.config.JournalMode, "snapshots", n)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.Ping(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(context.Context) error {
	if m.store == nil {
		return nil
	}
	m.logger.Debug("closing catalog store")
	return m.store.Close()
}

// Store returns the snapshot store, or nil before Provision.
func (m *Module) Store() *Store {
	return m.store
}
