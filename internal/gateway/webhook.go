package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/emotewall/internal/channel"
	"github.com/flemzord/emotewall/internal/security"
)

// handleWebhook accepts chat lines pushed by external bots. Each configured
// source signs its body with HMAC-SHA256; the payload has the same shape as
// POST /api/chat.
func (g *Gateway) handleWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		source := chi.URLParam(r, "source")
		cfg, ok := g.config.Webhooks[source]
		if !ok {
			g.logger.Warn("webhook received for unknown source", "source", source)
			http.Error(w, "unknown source", http.StatusNotFound)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, security.DefaultMaxMessageSize))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		if !validateHMAC(body, r.Header.Get("X-Signature-256"), cfg.Secret) {
			g.audit.Log(security.AuditEvent{
				Type:     security.EventAuthFailure,
				Actor:    "webhook:" + source,
				Detail:   "invalid signature",
				Metadata: requestMeta(r),
			})
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}

		if err := security.ValidateJSONDepth(body, 0); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		var req chatRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid payload"))
			return
		}
		if req.Scope == "" {
			req.Scope = cfg.Scope
		}

		msg := channel.Message{
			Channel: "webhook:" + source,
			Scope:   req.Scope,
			Room:    req.Room,
			User:    req.User,
			Text:    req.Text,
		}
		if code, err := g.inject("webhook:"+source, msg); err != nil {
			writeError(w, code, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
	}
}

// validateHMAC checks HMAC-SHA256 signature in constant time.
func validateHMAC(body []byte, signature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
