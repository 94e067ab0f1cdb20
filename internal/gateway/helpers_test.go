package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/emotewall/internal/channel"
	"github.com/flemzord/emotewall/internal/core"
	"github.com/flemzord/emotewall/internal/security"
	"github.com/flemzord/emotewall/internal/security/securitytest"
	"github.com/flemzord/emotewall/internal/telemetry"
	"github.com/flemzord/emotewall/internal/theme"
	"github.com/flemzord/emotewall/internal/wall"
)

const testToken = "test-token"

// fakeWall records what the admin API does to it.
type fakeWall struct {
	mu     sync.Mutex
	cfg    wall.Config
	scenes []string
}

func newFakeWall() *fakeWall {
	return &fakeWall{cfg: wall.Config{Enabled: true, Theme: theme.Builtin().Default()}}
}

func (f *fakeWall) Status() wall.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return wall.Status{Enabled: f.cfg.Enabled, Theme: f.cfg.Theme.ID}
}

func (f *fakeWall) Config() wall.Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg
}

func (f *fakeWall) SetConfig(cfg wall.Config) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = cfg
}

func (f *fakeWall) OnSceneChange(scene string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scenes = append(f.scenes, scene)
}

func (f *fakeWall) Scenes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.scenes...)
}

type testEnv struct {
	g      *Gateway
	wall   *fakeWall
	hub    *channel.Hub
	events func() []security.AuditEvent
	srv    *httptest.Server

	mu   sync.Mutex
	msgs []channel.Message
}

func (e *testEnv) Messages() []channel.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]channel.Message(nil), e.msgs...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestGateway builds a gateway with every collaborator wired. mutate
// runs before the router is built.
func newTestGateway(t *testing.T, mutate func(*Gateway)) *testEnv {
	t.Helper()

	audit, events := securitytest.NewTestAuditLogger()
	env := &testEnv{
		wall:   newFakeWall(),
		hub:    channel.NewHub(channel.NewAllowList(nil, []string{"nightbot"}), nil),
		events: events,
	}
	env.hub.Subscribe(func(m channel.Message) {
		env.mu.Lock()
		env.msgs = append(env.msgs, m)
		env.mu.Unlock()
	})

	g := &Gateway{
		logger:   testLogger(),
		audit:    audit,
		redactor: securitytest.NewTestRedactor(),
		wall:     env.wall,
		themes:   theme.Builtin(),
		hub:      env.hub,
		metrics:  telemetry.NewMetrics(),
		version:  "test",
	}
	g.config.Auth = AuthConfig{BearerToken: testToken}
	g.config.defaults()
	if mutate != nil {
		mutate(g)
	}
	env.g = g
	env.srv = httptest.NewServer(g.buildRouter())
	t.Cleanup(env.srv.Close)
	return env
}

// do sends a request to the test server, with the admin token when auth
// is true, and returns the status and body.
func (e *testEnv) do(t *testing.T, method, path string, body any, auth bool) (int, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(t.Context(), method, e.srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

func hasEvent(events []security.AuditEvent, typ security.EventType) bool {
	for _, e := range events {
		if e.Type == typ {
			return true
		}
	}
	return false
}

// mustYAMLNode parses YAML text into a *yaml.Node for Configure calls.
func mustYAMLNode(t *testing.T, text string) *yaml.Node {
	t.Helper()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		t.Fatalf("YAML parse: %v", err)
	}
	if len(node.Content) > 0 {
		return node.Content[0]
	}
	return &node
}

func newAppContext() *core.AppContext {
	return core.NewAppContext(testLogger(), "")
}
