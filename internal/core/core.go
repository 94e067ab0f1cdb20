package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// shutdownTimeout bounds one Stop or Close pass over all modules.
const shutdownTimeout = 30 * time.Second

type moduleState uint8

const (
	stateLoaded moduleState = iota
	stateRunning
)

type loadedModule struct {
	id    ModuleID
	mod   Module
	state moduleState
}

// App holds the modules of one emotewall process in load order. Start and
// Reload walk them forward; Stop and Close walk them backward.
type App struct {
	ctx    *AppContext
	logger *slog.Logger
	loaded []*loadedModule
}

// NewApp creates an App with no modules.
func NewApp(ctx *AppContext) *App {
	return &App{
		ctx:    ctx,
		logger: ctx.Logger.With("component", "core"),
	}
}

// Context returns the AppContext the App was created with.
func (a *App) Context() *AppContext { return a.ctx }

// Module returns the loaded instance with the given ID.
func (a *App) Module(id ModuleID) (Module, bool) {
	for _, lm := range a.loaded {
		if lm.id == id {
			return lm.mod, true
		}
	}
	return nil, false
}

// ModuleIDs returns the IDs of the loaded modules in load order.
func (a *App) ModuleIDs() []ModuleID {
	ids := make([]ModuleID, 0, len(a.loaded))
	for _, lm := range a.loaded {
		ids = append(ids, lm.id)
	}
	return ids
}

// AppendModule adds a module the composition root built itself, such as
// the wall or the catalog warm-up, after the registry modules.
func (a *App) AppendModule(mod Module) {
	a.track(mod)
}

// LoadModules builds each registered module in ids through the
// Configure/Provision/Validate sequence. A failure closes everything loaded
// so far.
func (a *App) LoadModules(ids []string) error {
	for _, id := range ids {
		mod, err := a.ctx.LoadModule(id)
		if err != nil {
			a.Close()
			return fmt.Errorf("loading module %s: %w", id, err)
		}
		a.track(mod)
	}
	return nil
}

func (a *App) track(mod Module) {
	id := mod.ModuleInfo().ID
	a.loaded = append(a.loaded, &loadedModule{id: id, mod: mod})
	a.logger.Info("module loaded", "module", string(id))
}

// Start runs every Starter in load order. When one fails, the modules
// started before it are stopped again and the error is returned.
func (a *App) Start() error {
	for i, lm := range a.loaded {
		s, ok := lm.mod.(Starter)
		if !ok {
			continue
		}
		if err := s.Start(); err != nil {
			a.logger.Error("module start failed", "module", string(lm.id), "error", err)
			a.halt(a.loaded[:i], false)
			return fmt.Errorf("starting module %s: %w", lm.id, err)
		}
		lm.state = stateRunning
		a.logger.Debug("module started", "module", string(lm.id))
	}
	a.logger.Info("modules started", "count", len(a.loaded))
	return nil
}

// Stop stops the running modules in reverse load order. They can be
// started again.
func (a *App) Stop() {
	a.halt(a.loaded, false)
}

// Close stops every module, running or not, and forgets them. It releases
// resources Provision acquired for an app that never started.
func (a *App) Close() {
	a.halt(a.loaded, true)
	a.loaded = nil
}

// halt calls Stop on mods in reverse order. Unless all is set, only running
// modules are stopped.
func (a *App) halt(mods []*loadedModule, all bool) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for i := len(mods) - 1; i >= 0; i-- {
		lm := mods[i]
		if !all && lm.state != stateRunning {
			continue
		}
		lm.state = stateLoaded
		s, ok := lm.mod.(Stopper)
		if !ok {
			continue
		}
		began := time.Now()
		if err := s.Stop(ctx); err != nil {
			a.logger.Error("module stop failed", "module", string(lm.id), "error", err)
			continue
		}
		a.logger.Debug("module stopped", "module", string(lm.id), "took", time.Since(began))
	}
}

// ReloadModules hands ctx to every Reloader in load order, each through its
// own ForModule view. All modules are attempted; failures are joined.
func (a *App) ReloadModules(ctx *AppContext) error {
	var errs []error
	for _, lm := range a.loaded {
		r, ok := lm.mod.(Reloader)
		if !ok {
			continue
		}
		if err := r.Reload(ctx.ForModule(lm.id)); err != nil {
			a.logger.Error("module reload failed", "module", string(lm.id), "error", err)
			errs = append(errs, fmt.Errorf("reloading module %s: %w", lm.id, err))
			continue
		}
		a.logger.Debug("module reloaded", "module", string(lm.id))
	}
	return errors.Join(errs...)
}
