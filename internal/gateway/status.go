package gateway

import (
	"net/http"
	"time"

	"github.com/flemzord/emotewall/internal/telemetry"
	"github.com/flemzord/emotewall/internal/wall"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Version        string             `json:"version"`
	UptimeSeconds  float64            `json:"uptime_seconds"`
	Wall           *wall.Status       `json:"wall,omitempty"`
	Metrics        telemetry.Snapshot `json:"metrics"`
	Channels       []string           `json:"channels"`
	OverlayClients int                `json:"overlay_clients"`
	Providers      []ProviderStatus   `json:"providers"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Version:       g.version,
			UptimeSeconds: time.Since(g.startedAt).Truncate(time.Second).Seconds(),
			Channels:      []string{},
			Providers:     g.providerReport(),
		}
		if g.wall != nil {
			st := g.wall.Status()
			resp.Wall = &st
		}
		if g.metrics != nil {
			resp.Metrics = g.metrics.Snapshot()
		}
		if g.hub != nil {
			resp.Channels = g.hub.Channels()
		}
		if g.clients != nil {
			resp.OverlayClients = g.clients.Len()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
