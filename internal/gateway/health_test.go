package gateway

import (
	"net/http"
	"testing"

	"github.com/flemzord/emotewall/internal/catalog"
	"github.com/flemzord/emotewall/internal/catalog/catalogtest"
	"github.com/flemzord/emotewall/pkg/emote"
)

// healthProvider reports a fixed catalog health.
type healthProvider struct {
	*catalogtest.Provider
	health string
}

func (p healthProvider) Health() string { return p.health }

func TestHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		providers  []catalog.Provider
		wantCode   int
		wantStatus string
		wantHealth []string
	}{
		{
			name:       "no providers",
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name: "untracked provider is healthy",
			providers: []catalog.Provider{
				catalogtest.NewProvider("bttv", emote.ProviderBTTV, 2, "catJAM"),
			},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
			wantHealth: []string{"healthy"},
		},
		{
			name: "degraded source stays ok",
			providers: []catalog.Provider{
				healthProvider{catalogtest.NewProvider("ffz", emote.ProviderFFZ, 3), "degraded"},
			},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
			wantHealth: []string{"degraded"},
		},
		{
			name: "dead source",
			providers: []catalog.Provider{
				catalogtest.NewProvider("twitch", emote.ProviderNative, 1),
				healthProvider{catalogtest.NewProvider("7tv", emote.ProviderSevenTV, 4), "dead"},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
			wantHealth: []string{"healthy", "dead"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestGateway(t, func(g *Gateway) { g.providers = tt.providers })
			code, body := env.do(t, http.MethodGet, "/health", nil, false)
			if code != tt.wantCode {
				t.Fatalf("code = %d, want %d", code, tt.wantCode)
			}
			resp := decode[HealthResponse](t, body)
			if resp.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", resp.Status, tt.wantStatus)
			}
			if !resp.Enabled {
				t.Error("Enabled = false, want wall state")
			}
			if len(resp.Providers) != len(tt.wantHealth) {
				t.Fatalf("providers = %+v", resp.Providers)
			}
			for i, want := range tt.wantHealth {
				if resp.Providers[i].Health != want {
					t.Errorf("providers[%d].Health = %q, want %q", i, resp.Providers[i].Health, want)
				}
			}
		})
	}
}

func TestHealth_ProviderFields(t *testing.T) {
	t.Parallel()

	env := newTestGateway(t, func(g *Gateway) {
		g.providers = []catalog.Provider{catalogtest.NewProvider("7tv", emote.ProviderSevenTV, 4)}
	})
	_, body := env.do(t, http.MethodGet, "/health", nil, false)
	p := decode[HealthResponse](t, body).Providers[0]
	if p.Name != "7tv" || p.Kind != "7tv" || p.Priority != 4 {
		t.Errorf("provider = %+v", p)
	}
}
