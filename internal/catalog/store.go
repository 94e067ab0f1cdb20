package catalog

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/flemzord/emotewall/pkg/emote"
)

// GlobalScope is the scope key under which global snapshots are stored.
const GlobalScope = ""

// Snapshot is one cached catalog fetch.
type Snapshot struct {
	Provider  string
	Scope     string
	Emotes    []emote.Data
	FetchedAt time.Time
}

// Store persists catalog snapshots between fetches and restarts.
type Store interface {
	// Get returns the snapshot for provider and scope, or ErrNotLoaded.
	Get(ctx context.Context, provider, scope string) (Snapshot, error)
	Put(ctx context.Context, snap Snapshot) error
}

// MemStore is an in-process Store.
type MemStore struct {
	mu    sync.RWMutex
	snaps map[storeKey]Snapshot
}

type storeKey struct{ provider, scope string }

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{snaps: make(map[storeKey]Snapshot)}
}

// Get implements Store.
func (m *MemStore) Get(_ context.Context, provider, scope string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[storeKey{provider, scope}]
	if !ok {
		return Snapshot{}, ErrNotLoaded
	}
	snap.Emotes = slices.Clone(snap.Emotes)
	return snap, nil
}

// Put implements Store.
func (m *MemStore) Put(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap.Emotes = slices.Clone(snap.Emotes)
	m.snaps[storeKey{snap.Provider, snap.Scope}] = snap
	return nil
}

// Pruner is implemented by stores that can drop old snapshots.
type Pruner interface {
	// Prune deletes snapshots fetched before cutoff and returns how many
	// were removed.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

var _ Pruner = (*MemStore)(nil)

// Prune implements Pruner.
func (m *MemStore) Prune(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, snap := range m.snaps {
		if snap.FetchedAt.Before(cutoff) {
			delete(m.snaps, k)
			n++
		}
	}
	return n, nil
}
