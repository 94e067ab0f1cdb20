// Package catalog defines the emote catalog provider contract and a reusable
// catalog core: a global map loaded once, per-scope maps loaded at most once
// per scope, a snapshot cache with TTL, and health tracking with exponential
// backoff for periodic refresh.
package catalog

import (
	"context"
	"errors"

	"github.com/flemzord/emotewall/pkg/emote"
)

// ErrNotLoaded is returned by Store implementations when no snapshot exists.
var ErrNotLoaded = errors.New("catalog: snapshot not loaded")

// Provider answers whether a token names an emote. Implementations never
// block on their own loading: until a catalog is loaded it resolves nothing.
type Provider interface {
	Name() string
	Kind() emote.ProviderKind

	// Priority orders providers; lower values resolve first.
	Priority() int

	// LoadGlobal loads the global catalog. It is idempotent and never
	// returns an error: failures are logged and leave the catalog empty.
	LoadGlobal(ctx context.Context)

	// Resolve looks token up, preferring the scope's catalog over the
	// global one.
	Resolve(token, scope string) (emote.Data, bool)
}

// ScopedLoader is implemented by providers with per-scope catalogs.
type ScopedLoader interface {
	// LoadScoped loads the catalog for scope. A scope that has already been
	// loaded, or attempted, is never fetched again by this method.
	LoadScoped(ctx context.Context, scope string)
}

// Refresher is implemented by providers whose loaded catalogs can be
// re-fetched on a schedule.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Fetcher performs the network calls behind a Catalog and translates the
// provider-specific response into emote.Data.
type Fetcher interface {
	FetchGlobal(ctx context.Context) ([]emote.Data, error)
	// FetchScoped returns the scope's emotes. Fetchers without scoped
	// catalogs return nil, nil.
	FetchScoped(ctx context.Context, scope string) ([]emote.Data, error)
}

// Recorder observes catalog loads, typically for metrics.
type Recorder interface {
	CatalogLoaded(provider, kind string, count int, err error)
}

// URLChecker validates emote image URLs.
type URLChecker interface {
	Check(rawURL string) error
}
