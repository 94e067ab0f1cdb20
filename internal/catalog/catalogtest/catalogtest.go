// Package catalogtest provides in-memory fakes for catalog tests.
package catalogtest

import (
	"context"
	"sync"

	"github.com/flemzord/emotewall/pkg/emote"
)

// Fetcher is a catalog.Fetcher serving canned emotes. It counts calls and can
// be told to fail or to block scoped fetches until released.
type Fetcher struct {
	mu          sync.Mutex
	Global      []emote.Data
	ScopedData  map[string][]emote.Data
	GlobalErr   error
	ScopedErr   error
	globalCalls int
	scopedCalls map[string]int

	// Gate, when non-nil, blocks FetchScoped until it is closed.
	Gate chan struct{}
}

// FetchGlobal implements catalog.Fetcher.
func (f *Fetcher) FetchGlobal(context.Context) ([]emote.Data, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.globalCalls++
	if f.GlobalErr != nil {
		return nil, f.GlobalErr
	}
	return f.Global, nil
}

// FetchScoped implements catalog.Fetcher.
func (f *Fetcher) FetchScoped(ctx context.Context, scope string) ([]emote.Data, error) {
	f.mu.Lock()
	if f.scopedCalls == nil {
		f.scopedCalls = make(map[string]int)
	}
	f.scopedCalls[scope]++
	gate := f.Gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ScopedErr != nil {
		return nil, f.ScopedErr
	}
	return f.ScopedData[scope], nil
}

// SetGlobalErr changes the global fetch error.
func (f *Fetcher) SetGlobalErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GlobalErr = err
}

// GlobalCalls returns how many times FetchGlobal ran.
func (f *Fetcher) GlobalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.globalCalls
}

// ScopedCalls returns how many times FetchScoped ran for scope.
func (f *Fetcher) ScopedCalls(scope string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scopedCalls[scope]
}

// Provider is a static catalog.Provider and catalog.ScopedLoader.
type Provider struct {
	ProviderName     string
	ProviderKind     emote.ProviderKind
	ProviderPriority int
	Emotes           map[string]emote.Data
	Scoped           map[string]map[string]emote.Data

	// Gate, when non-nil, blocks LoadScoped until it is closed.
	Gate chan struct{}

	mu          sync.Mutex
	loaded      map[string]bool
	scopedLoads int
}

// NewProvider returns a provider named name that knows the given emote
// names globally. Each emote gets an id and URL derived from its name.
func NewProvider(name string, kind emote.ProviderKind, priority int, names ...string) *Provider {
	p := &Provider{
		ProviderName:     name,
		ProviderKind:     kind,
		ProviderPriority: priority,
		Emotes:           make(map[string]emote.Data),
		Scoped:           make(map[string]map[string]emote.Data),
	}
	for _, n := range names {
		p.Emotes[n] = Emote(kind, n)
	}
	return p
}

// Emote builds deterministic emote data for tests.
func Emote(kind emote.ProviderKind, name string) emote.Data {
	return emote.Data{
		ID:       string(kind) + "-" + name,
		Name:     name,
		URL:      "https://cdn.example/" + string(kind) + "/" + name + ".png",
		Provider: kind,
	}
}

// AddScoped makes name resolvable only in scope.
func (p *Provider) AddScoped(scope, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Scoped[scope] == nil {
		p.Scoped[scope] = make(map[string]emote.Data)
	}
	p.Scoped[scope][name] = Emote(p.ProviderKind, name)
}

// Name implements catalog.Provider.
func (p *Provider) Name() string { return p.ProviderName }

// Kind implements catalog.Provider.
func (p *Provider) Kind() emote.ProviderKind { return p.ProviderKind }

// Priority implements catalog.Provider.
func (p *Provider) Priority() int { return p.ProviderPriority }

// LoadGlobal implements catalog.Provider.
func (p *Provider) LoadGlobal(context.Context) {}

// LoadScoped implements catalog.ScopedLoader. Scoped emotes only become
// visible after their scope is loaded.
func (p *Provider) LoadScoped(ctx context.Context, scope string) {
	if p.Gate != nil {
		select {
		case <-p.Gate:
		case <-ctx.Done():
			return
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded == nil {
		p.loaded = make(map[string]bool)
	}
	if !p.loaded[scope] {
		p.scopedLoads++
	}
	p.loaded[scope] = true
}

// ScopedLoads returns the number of distinct scopes loaded.
func (p *Provider) ScopedLoads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scopedLoads
}

// Resolve implements catalog.Provider.
func (p *Provider) Resolve(token, scope string) (emote.Data, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if scope != "" && p.loaded[scope] {
		if d, ok := p.Scoped[scope][token]; ok {
			return d, true
		}
	}
	d, ok := p.Emotes[token]
	return d, ok
}
