package gateway

import (
	"time"

	"github.com/flemzord/emotewall/internal/security"
)

// Config holds HTTP gateway configuration.
type Config struct {
	Bind      string                      `yaml:"bind"`
	Auth      AuthConfig                  `yaml:"auth"`
	Webhooks  map[string]WebhookSourceCfg `yaml:"webhooks"`
	RateLimit security.RateLimitConfig    `yaml:"rate_limit"`

	// AuditLog is a JSONL file, relative to the data directory, receiving
	// admin audit events. Empty disables the file.
	AuditLog string `yaml:"audit_log"`

	// DisableMCP removes the /mcp endpoint.
	DisableMCP bool `yaml:"disable_mcp"`

	ReadTimeout time.Duration `yaml:"read_timeout"`
	// WriteTimeout applies to plain HTTP responses. Zero leaves overlay
	// streams without a server-side deadline; the overlay hub bounds each
	// write itself.
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// defaults fills zero values with sensible defaults.
func (c *Config) defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// AuthConfig configures authentication for admin endpoints.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// IsConfigured returns true if any auth method is configured.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}

// WebhookSourceCfg holds per-source webhook configuration.
type WebhookSourceCfg struct {
	// Secret signs payloads as X-Signature-256: sha256=<hex hmac>.
	// Required: unsigned sources are rejected at validation.
	Secret string `yaml:"secret"`
	// Scope is used for messages that carry none.
	Scope string `yaml:"scope"`
}
