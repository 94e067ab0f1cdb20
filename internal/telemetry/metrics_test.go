package telemetry

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/flemzord/emotewall/pkg/emote"
)

func TestMetrics_Counters(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.RecordMessage()
	m.RecordMessage()
	m.EmoteSpawned(emote.Data{Name: "Kappa", Provider: emote.ProviderNative})
	m.EmoteSpawned(emote.Data{Name: "catJAM", Provider: emote.ProviderSevenTV})
	m.EmoteSpawned(emote.Data{Name: "peepoHappy", Provider: emote.ProviderSevenTV})
	m.CatalogLoaded("bttv", "global", 42, nil)
	m.CatalogLoaded("ffz", "scoped", 0, errors.New("boom"))
	m.FrameDropped()

	snap := m.Snapshot()
	want := Snapshot{Messages: 2, Spawned: 3, LoadFailures: 1, DroppedFrames: 1}
	if snap != want {
		t.Errorf("Snapshot() = %+v, want %+v", snap, want)
	}

	body := scrape(t, m)
	for _, want := range []string{
		`emotewall_emotes_spawned_total{provider="7tv"} 2`,
		`emotewall_catalog_loads_total{kind="scoped",provider="ffz",result="error"} 1`,
		`emotewall_catalog_emotes{kind="global",provider="bttv"} 42`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return string(body)
}

func TestMetrics_HandlerExposesGauges(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.GaugeFunc("live_particles", "Live particles.", func() float64 { return 7 })
	m.RecordMessage()

	body := scrape(t, m)
	for _, want := range []string{
		"emotewall_live_particles 7",
		"emotewall_chat_messages_total 1",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
