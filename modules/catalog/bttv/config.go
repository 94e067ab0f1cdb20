package bttv

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds the configuration for the BetterTTV catalog module.
type Config struct {
	BaseURL string `yaml:"base_url"`
	CDNURL  string `yaml:"cdn_url"`
	Timeout string `yaml:"timeout"`
}

// defaults fills zero-valued fields with sensible defaults.
func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.betterttv.net"
	}
	if c.CDNURL == "" {
		c.CDNURL = "https://cdn.betterttv.net"
	}
	if c.Timeout == "" {
		c.Timeout = "10s"
	}
}

// parsedTimeout returns the timeout as a time.Duration.
// Assumes the value has been validated by validate.
func (c *Config) parsedTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("catalog.bttv: invalid timeout %q: %w", c.Timeout, err)
	}
	for _, raw := range []string{c.BaseURL, c.CDNURL} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("catalog.bttv: invalid url %q", raw)
		}
	}
	return nil
}
