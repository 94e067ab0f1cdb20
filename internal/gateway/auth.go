package gateway

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/flemzord/emotewall/internal/security"
)

type actorKey struct{}

// actorFrom returns the admin recorded by requireAdmin, or "anonymous".
func actorFrom(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok {
		return a
	}
	return "anonymous"
}

// identify matches the request against the configured admin credentials.
// It returns the actor ("bearer" or "basic:<user>") and the method used,
// or an empty actor and the reason for refusal.
func (a AuthConfig) identify(r *http.Request) (actor, method string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "missing authorization header"
	}
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && a.BearerToken != "" && secretEqual(token, a.BearerToken) {
		return "bearer", "bearer"
	}
	if a.BasicUser == "" || a.BasicPass == "" {
		return "", "invalid credentials"
	}
	user, pass, ok := r.BasicAuth()
	// Both comparisons run so timing does not reveal which half failed.
	if ok && subtle.ConstantTimeCompare([]byte(user), []byte(a.BasicUser))&subtle.ConstantTimeCompare([]byte(pass), []byte(a.BasicPass)) == 1 {
		return "basic:" + user, "basic"
	}
	return "", "invalid credentials"
}

// requireAdmin guards the admin API and /mcp. Attempts draw from the auth
// rate-limit bucket; every outcome is audited. Both dependencies may be nil.
func requireAdmin(auth AuthConfig, audit *security.AuditLogger, limiter *security.RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := limiter.Allow(security.BucketAuth); err != nil {
				audit.Log(security.AuditEvent{Type: security.EventRateLimit, Detail: security.BucketAuth, Metadata: requestMeta(r)})
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}

			actor, method := auth.identify(r)
			if actor == "" {
				audit.Log(security.AuditEvent{Type: security.EventAuthFailure, Detail: method, Metadata: requestMeta(r)})
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			audit.Log(security.AuditEvent{Type: security.EventAuthSuccess, Actor: actor, Detail: method, Metadata: requestMeta(r)})
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
		})
	}
}

func requestMeta(r *http.Request) map[string]string {
	return map[string]string{
		"remote_addr": r.RemoteAddr,
		"method":      r.Method,
		"path":        r.URL.Path,
	}
}

func secretEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
