package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/flemzord/emotewall/internal/channel"
	"github.com/flemzord/emotewall/internal/core"
	"github.com/flemzord/emotewall/internal/cron"
	"github.com/flemzord/emotewall/internal/security"
	"github.com/flemzord/emotewall/internal/theme"
	"github.com/flemzord/emotewall/internal/wall"
)

var errWallUnavailable = errors.New("wall not available")

// themeJSON is a serializable theme summary.
type themeJSON struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Background  string  `json:"background"`
	Animation   string  `json:"animation"`
	DurationMS  int64   `json:"duration_ms"`
	Physics     bool    `json:"physics"`
	Gravity     float64 `json:"gravity"`
	Explosion   bool    `json:"explosion"`
	Trail       bool    `json:"trail"`
}

func newThemeJSON(t theme.Theme) themeJSON {
	return themeJSON{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		Background:  t.Environment.Background,
		Animation:   string(t.Emotes.AnimationStyle),
		DurationMS:  t.Emotes.Duration.Milliseconds(),
		Physics:     t.Physics.Enabled,
		Gravity:     t.Physics.Config.Gravity,
		Explosion:   t.Particles.ExplosionEnabled,
		Trail:       t.Particles.TrailEnabled,
	}
}

func (g *Gateway) themeList() []themeJSON {
	if g.themes == nil {
		return []themeJSON{}
	}
	themes := g.themes.Themes()
	out := make([]themeJSON, 0, len(themes))
	for _, t := range themes {
		out = append(out, newThemeJSON(t))
	}
	return out
}

// handleListThemes returns every registered theme.
func (g *Gateway) handleListThemes() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, g.themeList())
	}
}

// handleGetWall returns the wall status.
func (g *Gateway) handleGetWall() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.wall == nil {
			writeError(w, http.StatusServiceUnavailable, errWallUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, g.wall.Status())
	}
}

// wallUpdate is the body of PUT /api/wall. Absent fields keep their value.
type wallUpdate struct {
	Enabled *bool   `json:"enabled"`
	Theme   *string `json:"theme"`
}

// handlePutWall toggles the wall or switches its theme.
func (g *Gateway) handlePutWall() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req wallUpdate
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		status, err := g.applyWall(actorFrom(r.Context()), req)
		switch {
		case errors.Is(err, errWallUnavailable):
			writeError(w, http.StatusServiceUnavailable, err)
		case errors.Is(err, theme.ErrUnknownTheme):
			writeError(w, http.StatusBadRequest, err)
		case err != nil:
			writeError(w, http.StatusInternalServerError, err)
		default:
			writeJSON(w, http.StatusOK, status)
		}
	}
}

// applyWall merges req into the live wall config. Themes come from the
// registry only, so an unknown id is rejected before anything changes.
func (g *Gateway) applyWall(actor string, req wallUpdate) (wall.Status, error) {
	if g.wall == nil {
		return wall.Status{}, errWallUnavailable
	}
	cur := g.wall.Config()
	next := cur

	if req.Theme != nil {
		if g.themes == nil {
			return wall.Status{}, fmt.Errorf("%w: %s", theme.ErrUnknownTheme, *req.Theme)
		}
		th, err := g.themes.Lookup(*req.Theme)
		if err != nil {
			return wall.Status{}, err
		}
		next.Theme = th
	}
	if req.Enabled != nil {
		next.Enabled = *req.Enabled
	}

	g.wall.SetConfig(next)

	if next.Theme.ID != cur.Theme.ID {
		g.audit.Log(security.AuditEvent{
			Type:     security.EventThemeChange,
			Actor:    actor,
			Detail:   next.Theme.ID,
			Metadata: map[string]string{"previous": cur.Theme.ID},
		})
	}
	if next.Enabled != cur.Enabled {
		g.audit.Log(security.AuditEvent{
			Type:   security.EventWallToggle,
			Actor:  actor,
			Detail: strconv.FormatBool(next.Enabled),
		})
	}
	return g.wall.Status(), nil
}

// handleSceneChange forwards a broadcasting software scene change to the wall.
func (g *Gateway) handleSceneChange() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Scene string `json:"scene"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if req.Scene == "" {
			writeError(w, http.StatusBadRequest, errors.New("missing scene"))
			return
		}
		if g.wall == nil {
			writeError(w, http.StatusServiceUnavailable, errWallUnavailable)
			return
		}
		g.wall.OnSceneChange(req.Scene)
		w.WriteHeader(http.StatusNoContent)
	}
}

// chatRequest is the body of POST /api/chat.
type chatRequest struct {
	Text  string `json:"text"`
	Scope string `json:"scope"`
	Room  string `json:"room"`
	User  string `json:"user"`
}

// handleChat injects a chat message as if it came from a channel.
func (g *Gateway) handleChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		msg := channel.Message{
			Channel: "api",
			Scope:   req.Scope,
			Room:    req.Room,
			User:    req.User,
			Text:    req.Text,
		}
		if code, err := g.inject(actorFrom(r.Context()), msg); err != nil {
			writeError(w, code, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}

// inject publishes msg on the chat hub and returns the HTTP status for
// its failure.
func (g *Gateway) inject(actor string, msg channel.Message) (int, error) {
	if err := security.ValidateChatText(msg.Text); err != nil {
		return http.StatusBadRequest, err
	}
	if g.hub == nil {
		return http.StatusServiceUnavailable, errors.New("chat hub not available")
	}
	msg.ReceivedAt = time.Now()

	err := g.hub.Publish(msg)
	switch {
	case errors.Is(err, channel.ErrEmptyMessage):
		return http.StatusBadRequest, err
	case errors.Is(err, channel.ErrDenied):
		return http.StatusForbidden, err
	case err != nil:
		return http.StatusInternalServerError, err
	}

	g.audit.Log(security.AuditEvent{
		Type:    security.EventChatInject,
		Actor:   actor,
		Channel: msg.Channel,
		Scope:   msg.Scope,
		Detail:  msg.Text,
	})
	return http.StatusAccepted, nil
}

// moduleJSON is a serializable module info snapshot.
type moduleJSON struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
}

// handleGetAllModules lists all compiled modules (for /api/modules).
func (g *Gateway) handleGetAllModules() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		mods := core.GetModules()
		out := make([]moduleJSON, 0, len(mods))
		for _, m := range mods {
			out = append(out, moduleJSON{
				ID:        string(m.ID),
				Namespace: m.ID.Namespace(),
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleGetConfig returns the config file with secrets redacted. Env
// references are shown unexpanded.
func (g *Gateway) handleGetConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.configPath == "" {
			http.Error(w, "config path not set", http.StatusServiceUnavailable)
			return
		}

		raw, err := os.ReadFile(g.configPath)
		if err != nil {
			http.Error(w, "failed to read config", http.StatusInternalServerError)
			return
		}

		generic := map[string]any{}
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			http.Error(w, "failed to parse config", http.StatusInternalServerError)
			return
		}

		g.redactor.RedactMap(generic)
		writeJSON(w, http.StatusOK, generic)
	}
}

// handleReloadConfig triggers a hot-reload of the configuration.
func (g *Gateway) handleReloadConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.configPath == "" || g.reloader == nil {
			http.Error(w, "config reload not available", http.StatusServiceUnavailable)
			return
		}

		if err := g.reloader.HandleReload(r.Context(), g.configPath); err != nil {
			g.logger.Error("config reload failed", "error", err)
			writeError(w, http.StatusBadRequest, err)
			return
		}

		g.audit.Log(security.AuditEvent{
			Type:   security.EventConfigReload,
			Actor:  actorFrom(r.Context()),
			Detail: g.configPath,
		})
		writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
	}
}

// handleListJobs reports the catalog maintenance jobs.
// handleListAudit returns the latest audit events, newest first.
func (g *Gateway) handleListAudit() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		events := g.audit.Recent()
		if events == nil {
			events = []security.AuditEvent{}
		}
		writeJSON(w, http.StatusOK, events)
	}
}

func (g *Gateway) handleListJobs() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.jobs == nil {
			writeJSON(w, http.StatusOK, []cron.JobStatus{})
			return
		}
		writeJSON(w, http.StatusOK, g.jobs.Jobs())
	}
}

// handleRunJob runs one job synchronously, e.g. a catalog refresh after a
// streamer added emotes.
func (g *Gateway) handleRunJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.jobs == nil {
			http.Error(w, "scheduler not available", http.StatusServiceUnavailable)
			return
		}
		name := chi.URLParam(r, "name")
		err := g.jobs.Trigger(r.Context(), name)
		switch {
		case errors.Is(err, cron.ErrUnknownJob):
			writeError(w, http.StatusNotFound, err)
			return
		case errors.Is(err, cron.ErrJobRunning):
			writeError(w, http.StatusConflict, err)
			return
		}

		g.audit.Log(security.AuditEvent{
			Type:   security.EventJobTrigger,
			Actor:  actorFrom(r.Context()),
			Detail: name,
		})
		if err != nil {
			g.logger.Warn("triggered job failed", "job", name, "error", err)
			writeError(w, http.StatusBadGateway, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "job": name})
	}
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, security.DefaultMaxMessageSize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
