package twitch

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the configuration for the native Twitch catalog module.
// Without both ClientID and Token the module loads no emotes.
type Config struct {
	BaseURL  string `yaml:"base_url"`
	ClientID string `yaml:"client_id"`
	Token    string `yaml:"token"`
	Timeout  string `yaml:"timeout"`
}

func (c *Config) defaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.twitch.tv"
	}
	if c.Timeout == "" {
		c.Timeout = "10s"
	}
	c.Token = strings.TrimPrefix(c.Token, "oauth:")
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
		return fmt.Errorf("catalog.twitch: invalid timeout %q: %w", c.Timeout, err)
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("catalog.twitch: invalid url %q", c.BaseURL)
	}
	if (c.ClientID == "") != (c.Token == "") {
		return fmt.Errorf("catalog.twitch: client_id and token must be set together")
	}
	return nil
}

func (c *Config) enabled() bool {
	return c.ClientID != "" && c.Token != ""
}
