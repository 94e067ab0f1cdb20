package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/flemzord/emotewall/internal/core"
	"github.com/flemzord/emotewall/internal/theme"
)

// Validate checks a Config before any module is built. Every configured
// module must be compiled in; registered modules without an entry are
// simply not loaded. Wall, catalog and chat settings are range-checked and
// all problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if len(cfg.Modules) == 0 {
		errs = append(errs, errors.New("config: at least one module must be configured"))
	}

	for id := range cfg.Modules {
		if _, ok := core.GetModule(id); !ok {
			errs = append(errs, fmt.Errorf("config: unknown module %q", id))
		}
	}

	errs = append(errs, validateWall(cfg.Wall)...)
	errs = append(errs, validateCatalog(cfg.Catalog)...)
	errs = append(errs, validateChat(cfg.Chat)...)

	return errors.Join(errs...)
}

func validateWall(w WallConfig) []error {
	var errs []error
	if w.Theme != "" {
		if _, err := theme.Builtin().Lookup(w.Theme); err != nil {
			errs = append(errs, fmt.Errorf("config: wall.theme: %w", err))
		}
	}
	if w.EmoteSize < 0 {
		errs = append(errs, fmt.Errorf("config: wall.emote_size must be positive, got %d", w.EmoteSize))
	}
	if w.Width < 0 || w.Height < 0 {
		errs = append(errs, fmt.Errorf("config: wall size must be positive, got %dx%d", w.Width, w.Height))
	}
	if w.FPS < 0 || w.FPS > 240 {
		errs = append(errs, fmt.Errorf("config: wall.fps out of range: %d", w.FPS))
	}
	return errs
}

func validateCatalog(c CatalogConfig) []error {
	var errs []error
	if c.Refresh != "" {
		if _, err := cron.ParseStandard(c.Refresh); err != nil {
			errs = append(errs, fmt.Errorf("config: catalog.refresh: %w", err))
		}
	}
	if c.TTL < 0 {
		errs = append(errs, fmt.Errorf("config: catalog.ttl must not be negative, got %s", c.TTL))
	}
	for field, domains := range map[string][]string{"allow_domains": c.AllowDomains, "deny_domains": c.DenyDomains} {
		for _, d := range domains {
			if !isHostname(d) {
				errs = append(errs, fmt.Errorf("config: catalog.%s: %q is not a host name", field, d))
			}
		}
	}
	return errs
}

func validateChat(c ChatConfig) []error {
	var errs []error
	for _, s := range c.Scopes {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, errors.New("config: chat.scopes contains an empty entry"))
			break
		}
	}
	for _, u := range c.IgnoreUsers {
		if strings.TrimSpace(u) == "" {
			errs = append(errs, errors.New("config: chat.ignore_users contains an empty entry"))
			break
		}
	}
	return errs
}

// isHostname accepts bare host names such as "cdn.7tv.app". Schemes,
// paths and ports are rejected.
func isHostname(s string) bool {
	if s == "" || strings.ContainsAny(s, "/:@ ") {
		return false
	}
	return !strings.HasPrefix(s, ".") && !strings.HasSuffix(s, ".")
}
