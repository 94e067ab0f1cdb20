package seventv

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/emotewall/internal/core"
	"github.com/flemzord/emotewall/pkg/emote"
)

const globalBody = `{
  "id": "global",
  "emotes": [
    {"id": "60ae958e229664e8667aea38", "name": "FeelsDankMan", "data": {"animated": false}},
    {"id": "60aeab8df6a2c3b332d21139", "name": "RainTime", "data": {"animated": true}}
  ]
}`

type server struct {
	*httptest.Server
	setCalls atomic.Int32
}

func newServer(t *testing.T) *server {
	t.Helper()
	s := &server{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v3/emote-sets/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "global":
			_, _ = io.WriteString(w, globalBody)
		case "set-forsen":
			s.setCalls.Add(1)
			_, _ = io.WriteString(w, `{"id":"set-forsen","emotes":[{"id":"e1","name":"forsenPls","data":{"animated":true}}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mux.HandleFunc("GET /v3/users/twitch/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("id") {
		case "22484632":
			_, _ = io.WriteString(w, `{"id":"u1","emote_set":{"id":"set-forsen"}}`)
		case "inline":
			_, _ = io.WriteString(w, `{"id":"u2","emote_set":{"id":"set-x","emotes":[{"id":"e2","name":"xdd","data":{}}]}}`)
		case "noset":
			_, _ = io.WriteString(w, `{"id":"u3","emote_set":null}`)
		case "forbidden":
			w.WriteHeader(http.StatusForbidden)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"Unknown User"}`)
		}
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *server) fetcher() *Fetcher {
	return &Fetcher{Client: s.Client(), BaseURL: s.URL, CDNURL: "https://cdn.7tv.app/"}
}

func TestFetchGlobal(t *testing.T) {
	t.Parallel()

	got, err := newServer(t).fetcher().FetchGlobal(context.Background())
	if err != nil {
		t.Fatalf("FetchGlobal: %v", err)
	}
	want := []emote.Data{
		{ID: "60ae958e229664e8667aea38", Name: "FeelsDankMan", URL: "https://cdn.7tv.app/emote/60ae958e229664e8667aea38/4x.webp", Provider: emote.ProviderSevenTV},
		{ID: "60aeab8df6a2c3b332d21139", Name: "RainTime", URL: "https://cdn.7tv.app/emote/60aeab8df6a2c3b332d21139/4x.webp", Provider: emote.ProviderSevenTV, Animated: true},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("emote[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFetchScoped_FollowsActiveSet(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	got, err := srv.fetcher().FetchScoped(context.Background(), "22484632")
	if err != nil {
		t.Fatalf("FetchScoped: %v", err)
	}
	if len(got) != 1 || got[0].Name != "forsenPls" || !got[0].Animated {
		t.Errorf("got %+v", got)
	}
	if srv.setCalls.Load() != 1 {
		t.Errorf("emote set fetched %d times, want 1", srv.setCalls.Load())
	}
}

func TestFetchScoped_InlineSet(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	got, err := srv.fetcher().FetchScoped(context.Background(), "inline")
	if err != nil {
		t.Fatalf("FetchScoped: %v", err)
	}
	if len(got) != 1 || got[0].Name != "xdd" {
		t.Errorf("got %+v", got)
	}
	if srv.setCalls.Load() != 0 {
		t.Error("inline emotes should not trigger a set fetch")
	}
}

func TestFetchScoped_NoEmotes(t *testing.T) {
	t.Parallel()

	f := newServer(t).fetcher()
	for _, scope := range []string{"noset", "unknown"} {
		got, err := f.FetchScoped(context.Background(), scope)
		if err != nil {
			t.Errorf("scope %s: %v", scope, err)
		}
		if len(got) != 0 {
			t.Errorf("scope %s: got %d emotes", scope, len(got))
		}
	}
}

func TestFetchScoped_Error(t *testing.T) {
	t.Parallel()

	if _, err := newServer(t).fetcher().FetchScoped(context.Background(), "forbidden"); err == nil {
		t.Fatal("expected error for 403")
	}
}

func TestModule_Lifecycle(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	m := &Module{}
	if info := m.ModuleInfo(); info.ID != "catalog.7tv" || info.ID.Namespace() != "catalog" {
		t.Errorf("ID = %q", info.ID)
	}
	if err := m.Configure(yamlNode(t, "base_url: "+srv.URL+"\n")); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	ctx := core.NewAppContext(slog.New(slog.DiscardHandler), "")
	if err := m.Provision(ctx); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	m.LoadScoped(context.Background(), "22484632")
	m.LoadScoped(context.Background(), "22484632")
	if srv.setCalls.Load() != 1 {
		t.Errorf("scope fetched %d times, want once", srv.setCalls.Load())
	}
	if d, ok := m.Resolve("forsenPls", "22484632"); !ok || d.Provider != emote.ProviderSevenTV {
		t.Errorf("Resolve = %+v, %v", d, ok)
	}
	if _, ok := m.Resolve("forsenPls", "other"); ok {
		t.Error("scoped emote leaked into another scope")
	}
}

func yamlNode(t *testing.T, text string) *yaml.Node {
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
