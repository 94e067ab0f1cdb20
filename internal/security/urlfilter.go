package security

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrURLBlocked is returned when a URL is denied by the filter.
var ErrURLBlocked = errors.New("URL blocked by filter")

// URLFilterConfig lists the hosts emote images may be served from.
type URLFilterConfig struct {
	// AllowDomains is the list of allowed domains. Empty means
	// DefaultEmoteDomains. Subdomains match: "7tv.app" also allows
	// "cdn.7tv.app".
	AllowDomains []string `yaml:"allow_domains"`

	// DenyDomains takes precedence over AllowDomains.
	DenyDomains []string `yaml:"deny_domains"`

	// AllowInsecure accepts plain http URLs.
	AllowInsecure bool `yaml:"allow_insecure"`
}

// DefaultEmoteDomains are the CDNs of the supported emote providers.
func DefaultEmoteDomains() []string {
	return []string{
		"static-cdn.jtvnw.net",
		"cdn.betterttv.net",
		"cdn.frankerfacez.com",
		"cdn.7tv.app",
	}
}

// URLFilter decides which emote image URLs may reach overlay clients.
type URLFilter struct {
	allow    []string
	deny     []string
	insecure bool
}

// NewURLFilter creates a URL filter from the given config.
func NewURLFilter(cfg URLFilterConfig) *URLFilter {
	domains := cfg.AllowDomains
	if len(domains) == 0 {
		domains = DefaultEmoteDomains()
	}
	return &URLFilter{
		allow:    normalizeDomains(domains),
		deny:     normalizeDomains(cfg.DenyDomains),
		insecure: cfg.AllowInsecure,
	}
}

func normalizeDomains(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// Check returns nil when rawURL may be used, ErrURLBlocked otherwise.
func (f *URLFilter) Check(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: invalid URL: %w", ErrURLBlocked, err)
	}
	switch parsed.Scheme {
	case "https":
	case "http":
		if !f.insecure {
			return fmt.Errorf("%w: %s (insecure scheme)", ErrURLBlocked, rawURL)
		}
	default:
		return fmt.Errorf("%w: %s (unsupported scheme)", ErrURLBlocked, rawURL)
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("%w: empty hostname", ErrURLBlocked)
	}
	for _, d := range f.deny {
		if matchDomain(host, d) {
			return fmt.Errorf("%w: %s (denied)", ErrURLBlocked, host)
		}
	}
	for _, a := range f.allow {
		if matchDomain(host, a) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s (not in allow list)", ErrURLBlocked, host)
}

// matchDomain reports whether host is domain or one of its subdomains.
func matchDomain(host, domain string) bool {
	if host == domain {
		return true
	}
	return strings.HasSuffix(host, "."+domain)
}
