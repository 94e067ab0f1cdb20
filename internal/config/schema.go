// Package config handles YAML configuration loading, environment variable
// expansion, defaults and structural validation for emotewall.
package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "catalog.bttv").
	Modules map[string]yaml.Node `yaml:"modules"`

	// Wall holds the live emote wall settings.
	Wall WallConfig `yaml:"wall"`

	// Telemetry configures tracing export.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Catalog configures emote catalog caching and refresh.
	Catalog CatalogConfig `yaml:"catalog"`

	// Chat filters inbound messages before they reach the wall.
	Chat ChatConfig `yaml:"chat"`
}

// ChatConfig filters chat messages by room and sender.
type ChatConfig struct {
	// Scopes lists the room ids or names the wall reacts to. Empty admits
	// every room.
	Scopes      []string `yaml:"scopes"`
	IgnoreUsers []string `yaml:"ignore_users"`
}

// WallConfig is the initial wall state. Enabled and Theme can be changed at
// runtime through the admin API or a config reload.
type WallConfig struct {
	Enabled   *bool  `yaml:"enabled"`
	Theme     string `yaml:"theme"`
	EmoteSize int    `yaml:"emote_size"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	FPS       int    `yaml:"fps"`

	// Mentions and Links enable @name and URL classification in parsed
	// messages.
	Mentions bool `yaml:"mentions"`
	Links    bool `yaml:"links"`
}

// IsEnabled reports whether the wall starts enabled. Defaults to true.
func (w WallConfig) IsEnabled() bool {
	return w.Enabled == nil || *w.Enabled
}

// TelemetryConfig configures the OpenTelemetry exporter.
type TelemetryConfig struct {
	// OTLPEndpoint is the OTLP/HTTP collector endpoint (host:port).
	// Tracing export is disabled when empty.
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
	Insecure     bool   `yaml:"insecure"`
}

// CatalogConfig controls catalog snapshot caching.
type CatalogConfig struct {
	// Refresh is a cron expression for periodic catalog refresh.
	Refresh string `yaml:"refresh"`

	// TTL is how long a cached catalog snapshot stays fresh.
	TTL time.Duration `yaml:"ttl"`

	// AllowDomains restricts emote image hosts. Empty means the built-in
	// list of provider CDNs.
	AllowDomains []string `yaml:"allow_domains"`
	DenyDomains  []string `yaml:"deny_domains"`
}

// Defaults fills zero-valued fields with their default values.
func (c *Config) Defaults() {
	if c.Wall.Theme == "" {
		c.Wall.Theme = "default"
	}
	if c.Wall.EmoteSize <= 0 {
		c.Wall.EmoteSize = 56
	}
	if c.Wall.Width <= 0 {
		c.Wall.Width = 1920
	}
	if c.Wall.Height <= 0 {
		c.Wall.Height = 1080
	}
	if c.Wall.FPS <= 0 {
		c.Wall.FPS = 60
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "emotewall"
	}
	if c.Catalog.Refresh == "" {
		c.Catalog.Refresh = "@every 5m"
	}
	if c.Catalog.TTL <= 0 {
		c.Catalog.TTL = 5 * time.Minute
	}
}
