package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flemzord/emotewall/internal/security"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Public, no auth required.
	r.Get("/health", g.handleHealth())
	if g.metrics != nil {
		r.Handle("/metrics", g.metrics.Handler())
	}

	// Overlay stream, optional token auth in the hub itself.
	if g.overlay != nil {
		r.With(rateLimit(g.limiter, security.BucketOverlay)).Handle("/ws/overlay", g.overlay)
	}

	// Webhooks, HMAC auth per source.
	if len(g.config.Webhooks) > 0 {
		r.Post("/webhooks/{source}", g.handleWebhook())
	}

	// Admin endpoints, auth required. Not mounted if no auth configured.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(requireAdmin(g.config.Auth, g.audit, g.limiter))
			r.Get("/status", g.handleStatus())
			r.Route("/api", func(r chi.Router) {
				r.Get("/themes", g.handleListThemes())
				r.Get("/wall", g.handleGetWall())
				r.Put("/wall", g.handlePutWall())
				r.Post("/obs/scene", g.handleSceneChange())
				r.With(rateLimit(g.limiter, security.BucketChat)).Post("/chat", g.handleChat())
				r.Get("/modules", g.handleGetAllModules())
				r.Get("/config", g.handleGetConfig())
				r.Post("/config/reload", g.handleReloadConfig())
				r.Get("/jobs", g.handleListJobs())
				r.Post("/jobs/{name}/run", g.handleRunJob())
				r.Get("/audit", g.handleListAudit())
			})
			if !g.config.DisableMCP {
				r.Handle("/mcp", server.NewStreamableHTTPServer(g.newMCPServer()))
			}
		})
	}

	return r
}

// rateLimit rejects requests once the bucket is exhausted.
func rateLimit(limiter *security.RateLimiter, bucket string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := limiter.Allow(bucket); err != nil {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
