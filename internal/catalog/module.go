package catalog

import (
	"time"

	"github.com/flemzord/emotewall/internal/core"
)

// Services consulted by FromContext. All are optional.
const (
	StoreService    = "catalog.store"
	RecorderService = "catalog.recorder"
	TTLService      = "catalog.ttl"
	URLService      = "catalog.urlfilter"
)

// FromContext builds a Catalog for a provider module, filling Store,
// Recorder, TTL, URLs and Logger from the application context when cfg
// leaves them unset.
func FromContext(ctx *core.AppContext, cfg Config) *Catalog {
	if cfg.Store == nil {
		cfg.Store, _ = core.Lookup[Store](ctx, StoreService)
	}
	if cfg.Recorder == nil {
		cfg.Recorder, _ = core.Lookup[Recorder](ctx, RecorderService)
	}
	if cfg.TTL <= 0 {
		cfg.TTL, _ = core.Lookup[time.Duration](ctx, TTLService)
	}
	if cfg.URLs == nil {
		cfg.URLs, _ = core.Lookup[URLChecker](ctx, URLService)
	}
	if cfg.Logger == nil {
		cfg.Logger = ctx.Logger
	}
	return New(cfg)
}
