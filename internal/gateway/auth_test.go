package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flemzord/emotewall/internal/security"
	"github.com/flemzord/emotewall/internal/security/securitytest"
)

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	both := AuthConfig{BearerToken: "secret-token", BasicUser: "mod", BasicPass: "pw"}
	tests := []struct {
		name      string
		auth      AuthConfig
		setup     func(*http.Request)
		wantCode  int
		wantActor string
	}{
		{"bearer", both, func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret-token") }, http.StatusOK, "bearer"},
		{"wrong bearer", both, func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, ""},
		{"basic", both, func(r *http.Request) { r.SetBasicAuth("mod", "pw") }, http.StatusOK, "basic:mod"},
		{"wrong basic password", both, func(r *http.Request) { r.SetBasicAuth("mod", "nope") }, http.StatusUnauthorized, ""},
		{"wrong basic user", both, func(r *http.Request) { r.SetBasicAuth("streamer", "pw") }, http.StatusUnauthorized, ""},
		{"no header", both, func(*http.Request) {}, http.StatusUnauthorized, ""},
		{"bearer not configured", AuthConfig{BasicUser: "mod", BasicPass: "pw"}, func(r *http.Request) { r.Header.Set("Authorization", "Bearer ") }, http.StatusUnauthorized, ""},
		{"basic not configured", AuthConfig{BearerToken: "secret-token"}, func(r *http.Request) { r.SetBasicAuth("", "") }, http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var actor string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				actor = actorFrom(r.Context())
				w.WriteHeader(http.StatusOK)
			})
			req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
			tt.setup(req)
			rr := httptest.NewRecorder()
			requireAdmin(tt.auth, nil, nil)(next).ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rr.Code, tt.wantCode)
			}
			if actor != tt.wantActor {
				t.Errorf("actor = %q, want %q", actor, tt.wantActor)
			}
		})
	}
}

func TestActorFrom_Anonymous(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if a := actorFrom(req.Context()); a != "anonymous" {
		t.Errorf("actor = %q", a)
	}
}

func TestAuthConfig_IsConfigured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cfg  AuthConfig
		want bool
	}{
		{AuthConfig{}, false},
		{AuthConfig{BearerToken: "tok"}, true},
		{AuthConfig{BasicUser: "u", BasicPass: "p"}, true},
		{AuthConfig{BasicUser: "u"}, false},
		{AuthConfig{BasicPass: "p"}, false},
	}
	for _, tt := range tests {
		if got := tt.cfg.IsConfigured(); got != tt.want {
			t.Errorf("%+v.IsConfigured() = %v, want %v", tt.cfg, got, tt.want)
		}
	}
}

func TestRequireAdmin_AuditAndRateLimit(t *testing.T) {
	t.Parallel()

	audit, events := securitytest.NewTestAuditLogger()
	limiter := security.NewRateLimiter(security.RateLimitConfig{AuthPerMin: 2})
	handler := requireAdmin(AuthConfig{BearerToken: "secret-token"}, audit, limiter)(http.NotFoundHandler())

	var codes []int
	for _, token := range []string{"secret-token", "wrong", "secret-token"} {
		req := httptest.NewRequest(http.MethodGet, "/api/wall", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	want := []int{http.StatusNotFound, http.StatusUnauthorized, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("request %d code = %d, want %d", i, codes[i], want[i])
		}
	}

	got := events()
	if len(got) != 3 {
		t.Fatalf("events = %+v", got)
	}
	for i, typ := range []security.EventType{security.EventAuthSuccess, security.EventAuthFailure, security.EventRateLimit} {
		if got[i].Type != typ {
			t.Errorf("event %d = %q, want %q", i, got[i].Type, typ)
		}
	}
	if got[0].Metadata["path"] != "/api/wall" {
		t.Errorf("metadata = %v", got[0].Metadata)
	}
}
