package security

import (
	"errors"
	"testing"
)

func TestURLFilter_Check(t *testing.T) {
	t.Parallel()

	f := NewURLFilter(URLFilterConfig{DenyDomains: []string{"evil.cdn.7tv.app"}})
	tests := []struct {
		url     string
		allowed bool
	}{
		{"https://static-cdn.jtvnw.net/emoticons/v2/25/default/dark/3.0", true},
		{"https://cdn.betterttv.net/emote/56e9f494fff3cc5c35e5287e/3x", true},
		{"https://CDN.FrankerFaceZ.com/emote/1/4", true},
		{"https://cdn.7tv.app/emote/60ae958e229664e8667aea38/4x.webp", true},
		{"https://evil.cdn.7tv.app/x.webp", false},
		{"http://cdn.betterttv.net/emote/1/3x", false},
		{"https://example.com/kappa.png", false},
		{"javascript:alert(1)", false},
		{"https:///nohost", false},
		{"://bad", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			err := f.Check(tt.url)
			if tt.allowed && err != nil {
				t.Errorf("Check(%q) = %v, want allowed", tt.url, err)
			}
			if !tt.allowed && !errors.Is(err, ErrURLBlocked) {
				t.Errorf("Check(%q) = %v, want ErrURLBlocked", tt.url, err)
			}
		})
	}
}

func TestURLFilter_CustomDomainsAndInsecure(t *testing.T) {
	t.Parallel()

	f := NewURLFilter(URLFilterConfig{AllowDomains: []string{" Example.com "}, AllowInsecure: true})
	if err := f.Check("http://img.example.com/k.png"); err != nil {
		t.Errorf("Check = %v", err)
	}
	if err := f.Check("https://cdn.7tv.app/emote/1/4x.webp"); err == nil {
		t.Error("default domains still allowed with a custom list")
	}
}

func TestMatchDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host, domain string
		want         bool
	}{
		{"cdn.7tv.app", "cdn.7tv.app", true},
		{"a.cdn.7tv.app", "cdn.7tv.app", true},
		{"notcdn.7tv.app", "cdn.7tv.app", false},
	}
	for _, tt := range tests {
		if got := matchDomain(tt.host, tt.domain); got != tt.want {
			t.Errorf("matchDomain(%q, %q) = %v", tt.host, tt.domain, got)
		}
	}
}
