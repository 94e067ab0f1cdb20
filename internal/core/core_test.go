package core

import (
	"context"
	"errors"
	"slices"
	"testing"
)

type orderedModule struct {
	id       ModuleID
	log      *[]string
	startErr error
}

func (m *orderedModule) ModuleInfo() ModuleInfo {
	return ModuleInfo{ID: m.id, New: func() Module { return m }}
}

func (m *orderedModule) Start() error {
	if m.startErr != nil {
		return m.startErr
	}
	*m.log = append(*m.log, "start:"+string(m.id))
	return nil
}

func (m *orderedModule) Stop(context.Context) error {
	*m.log = append(*m.log, "stop:"+string(m.id))
	return nil
}

func TestApp_StartStopOrder(t *testing.T) {
	t.Parallel()

	var log []string
	app := NewApp(NewAppContext(nil, t.TempDir()))
	app.AppendModule(&orderedModule{id: "a", log: &log})
	app.AppendModule(&orderedModule{id: "b", log: &log})

	if err := app.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	app.Stop()

	want := []string{"start:a", "start:b", "stop:b", "stop:a"}
	if !slices.Equal(log, want) {
		t.Errorf("order = %v, want %v", log, want)
	}
}

func TestApp_StartFailureRollsBack(t *testing.T) {
	t.Parallel()

	var log []string
	app := NewApp(NewAppContext(nil, t.TempDir()))
	app.AppendModule(&orderedModule{id: "a", log: &log})
	app.AppendModule(&orderedModule{id: "b", log: &log, startErr: errors.New("boom")})

	if err := app.Start(); err == nil {
		t.Fatal("expected start error")
	}

	want := []string{"start:a", "stop:a"}
	if !slices.Equal(log, want) {
		t.Errorf("order = %v, want %v", log, want)
	}
}

func TestApp_Module(t *testing.T) {
	t.Parallel()

	var log []string
	app := NewApp(NewAppContext(nil, t.TempDir()))
	mod := &orderedModule{id: "gateway", log: &log}
	app.AppendModule(mod)

	got, ok := app.Module("gateway")
	if !ok || got != mod {
		t.Fatalf("Module(gateway) = %v, %v", got, ok)
	}
	if _, ok := app.Module("missing"); ok {
		t.Error("expected missing module lookup to fail")
	}
}

func TestApp_ModuleIDs(t *testing.T) {
	t.Parallel()

	var log []string
	app := NewApp(NewAppContext(nil, t.TempDir()))
	app.AppendModule(&orderedModule{id: "store.sqlite", log: &log})
	app.AppendModule(&orderedModule{id: "overlay.ws", log: &log})

	if got := app.ModuleIDs(); !slices.Equal(got, []ModuleID{"store.sqlite", "overlay.ws"}) {
		t.Errorf("ModuleIDs = %v", got)
	}
}

func TestApp_CloseStopsUnstarted(t *testing.T) {
	t.Parallel()

	var log []string
	app := NewApp(NewAppContext(nil, t.TempDir()))
	app.AppendModule(&orderedModule{id: "store.sqlite", log: &log})
	app.AppendModule(&orderedModule{id: "catalog.bttv", log: &log})

	app.Close()
	if want := []string{"stop:catalog.bttv", "stop:store.sqlite"}; !slices.Equal(log, want) {
		t.Errorf("log = %v, want %v", log, want)
	}
	if len(app.ModuleIDs()) != 0 {
		t.Error("Close should forget modules")
	}
}

type reloadingModule struct {
	orderedModule
	err error
}

func (m *reloadingModule) Reload(ctx *AppContext) error {
	*m.log = append(*m.log, "reload:"+string(m.id))
	return m.err
}

func TestApp_ReloadModules(t *testing.T) {
	t.Parallel()

	var log []string
	boom := errors.New("bad theme")
	app := NewApp(NewAppContext(nil, t.TempDir()))
	app.AppendModule(&reloadingModule{orderedModule: orderedModule{id: "wall.core", log: &log}, err: boom})
	app.AppendModule(&orderedModule{id: "overlay.ws", log: &log})
	app.AppendModule(&reloadingModule{orderedModule: orderedModule{id: "gateway.http", log: &log}})

	err := app.ReloadModules(NewAppContext(nil, t.TempDir()))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if want := []string{"reload:wall.core", "reload:gateway.http"}; !slices.Equal(log, want) {
		t.Errorf("log = %v, want %v", log, want)
	}
}

func TestApp_RestartAfterStop(t *testing.T) {
	t.Parallel()

	var log []string
	app := NewApp(NewAppContext(nil, t.TempDir()))
	app.AppendModule(&orderedModule{id: "channel.twitch", log: &log})

	for range 2 {
		if err := app.Start(); err != nil {
			t.Fatalf("Start: %v", err)
		}
		app.Stop()
	}
	app.Stop()

	want := []string{"start:channel.twitch", "stop:channel.twitch", "start:channel.twitch", "stop:channel.twitch"}
	if !slices.Equal(log, want) {
		t.Errorf("log = %v, want %v", log, want)
	}
}
