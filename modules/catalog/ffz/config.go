package ffz

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds the configuration for the FrankerFaceZ catalog module.
type Config struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// defaults fills zero-valued fields with sensible defaults.
func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.frankerfacez.com"
	}
	if c.Timeout == "" {
		c.Timeout = "10s"
	}
}

func (c *Config) parsedTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("catalog.ffz: invalid timeout %q: %w", c.Timeout, err)
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("catalog.ffz: invalid base_url %q", c.BaseURL)
	}
	return nil
}
