package gateway

import (
	"net/http"

	"github.com/flemzord/emotewall/internal/catalog"
)

// ProviderStatus is the health of one catalog provider.
type ProviderStatus struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Priority int    `json:"priority"`
	Health   string `json:"health"`
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status    string           `json:"status"` // "ok" or "degraded"
	Enabled   bool             `json:"enabled"`
	Providers []ProviderStatus `json:"providers"`
}

// providerReport lists provider health. Providers that do not track
// health report "healthy".
func (g *Gateway) providerReport() []ProviderStatus {
	out := make([]ProviderStatus, 0, len(g.providers))
	for _, p := range g.providers {
		st := ProviderStatus{
			Name:     p.Name(),
			Kind:     string(p.Kind()),
			Priority: p.Priority(),
			Health:   catalog.HealthOK,
		}
		if h, ok := p.(interface{ Health() string }); ok {
			st.Health = h.Health()
		}
		out = append(out, st)
	}
	return out
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 200 unless a catalog source is dead, then 503.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			Status:    "ok",
			Providers: g.providerReport(),
		}
		if g.wall != nil {
			resp.Enabled = g.wall.Status().Enabled
		}
		for _, p := range resp.Providers {
			if p.Health == catalog.HealthDead {
				resp.Status = "degraded"
				break
			}
		}

		code := http.StatusOK
		if resp.Status == "degraded" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}
