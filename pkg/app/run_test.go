package app

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/emotewall/internal/catalog"
	"github.com/flemzord/emotewall/internal/catalog/catalogtest"
	"github.com/flemzord/emotewall/internal/channel"
	"github.com/flemzord/emotewall/internal/config"
	"github.com/flemzord/emotewall/internal/core"
	"github.com/flemzord/emotewall/internal/frame"
	"github.com/flemzord/emotewall/internal/gateway"
	"github.com/flemzord/emotewall/pkg/emote"
)

type fakeCatalog struct {
	*catalogtest.Provider
}

func (fakeCatalog) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID: "catalog.fake",
		New: func() core.Module {
			return fakeCatalog{catalogtest.NewProvider("fake", emote.ProviderBTTV, 2, "catJAM")}
		},
	}
}

func init() {
	core.RegisterModule(fakeCatalog{})
	core.RegisterModule(channel.NewMockChannel("fake"))
}

func testConfig(modules ...string) *config.Config {
	cfg := &config.Config{Version: "1", Modules: map[string]yaml.Node{}}
	for _, id := range modules {
		cfg.Modules[id] = yaml.Node{}
	}
	cfg.Defaults()
	return cfg
}

func TestBuild_WiresChatToWall(t *testing.T) {
	rt, err := Build(BuildParams{
		Config:  testConfig("catalog.fake", "channel.fake"),
		DataDir: t.TempDir(),
		Version: "1.2.3",
		Clock:   frame.NewManualClock(time.Unix(0, 0)),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := rt.App.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(rt.App.Stop)

	if got := rt.Hub.Channels(); !slices.Equal(got, []string{"channel.fake"}) {
		t.Errorf("Channels = %v", got)
	}
	if len(rt.Providers) != 1 || rt.Providers[0].Name() != "fake" {
		t.Fatalf("Providers = %v", rt.Providers)
	}
	for _, name := range []string{gateway.WallService, gateway.ProvidersService, gateway.ReloaderService, gateway.MetricsService, gateway.JobsService, catalog.StoreService} {
		if _, ok := rt.Context.GetService(name); !ok {
			t.Errorf("service %s not registered", name)
		}
	}

	mod, ok := rt.App.Module("channel.fake")
	if !ok {
		t.Fatal("channel module not loaded")
	}
	if err := mod.(*channel.MockChannel).SimulateMessage(channel.Message{Text: "catJAM hello catJAM"}); err != nil {
		t.Fatalf("SimulateMessage: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for rt.Wall.Len() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("wall has %d instances, want 2", rt.Wall.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap := rt.Metrics.Snapshot()
	if snap.Messages != 1 || snap.Spawned != 2 {
		t.Errorf("metrics = %+v", snap)
	}
	if st := rt.Wall.Status(); !st.Enabled || st.Theme != "default" || !st.Connected {
		t.Errorf("status = %+v", st)
	}
}

func TestBuild_UnknownTheme(t *testing.T) {
	cfg := testConfig("catalog.fake")
	cfg.Wall.Theme = "nope"
	rt, err := Build(BuildParams{Config: cfg, DataDir: t.TempDir(), Clock: frame.NewManualClock(time.Unix(0, 0))})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := rt.App.Start(); err == nil {
		rt.App.Stop()
		t.Fatal("Start accepted an unknown theme")
	}
}

func TestModuleOrder(t *testing.T) {
	t.Parallel()

	got := moduleOrder([]string{"catalog.bttv", "gateway.http", "store.sqlite", "channel.twitch"})
	want := []string{"store.sqlite", "catalog.bttv", "channel.twitch", "gateway.http", "overlay.ws"}
	if !slices.Equal(got, want) {
		t.Errorf("moduleOrder = %v, want %v", got, want)
	}

	got = moduleOrder([]string{"overlay.ws"})
	if !slices.Equal(got, []string{"overlay.ws"}) {
		t.Errorf("overlay duplicated: %v", got)
	}
}

func TestCheckConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "emotewall.yaml")
	body := "version: \"1\"\nwall:\n  theme: cosmic\nmodules:\n  catalog.fake: {}\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := CheckConfig(path)
	if err != nil {
		t.Fatalf("CheckConfig: %v", err)
	}
	if got != path {
		t.Errorf("path = %q", got)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		return p
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "missing.yaml")},
		{"invalid yaml", write("bad.yaml", "not: valid: yaml: [")},
		{"no version", write("noversion.yaml", "modules:\n  catalog.fake: {}\n")},
		{"unknown module", write("unknown.yaml", "version: \"1\"\nmodules:\n  catalog.nope: {}\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := LoadConfig(tt.path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRun_InvalidConfigPath(t *testing.T) {
	if err := Run(RunParams{ConfigPath: "/nonexistent/config.yaml"}); err == nil {
		t.Error("expected error for invalid config path")
	}
}

func TestDefaultDataDir_XDGDataHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	if got := DefaultDataDir(); got != "/custom/data/emotewall" {
		t.Errorf("got %q", got)
	}
}

func TestDefaultDataDir_Fallback(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	want := filepath.Join(home, ".local", "share", "emotewall")
	if got := DefaultDataDir(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRunContext_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "emotewall.yaml")
	if err := os.WriteFile(path, []byte("version: \"1\"\nmodules:\n  catalog.fake: {}\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunContext(ctx, RunParams{ConfigPath: path, DataDir: filepath.Join(dir, "data")})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunContext: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("RunContext did not return after cancel")
	}
	if _, err := os.Stat(filepath.Join(dir, "data")); err != nil {
		t.Errorf("data dir not created: %v", err)
	}
}
