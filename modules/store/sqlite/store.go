package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/flemzord/emotewall/internal/catalog"
	"github.com/flemzord/emotewall/pkg/emote"
)

var (
	_ catalog.Store  = (*Store)(nil)
	_ catalog.Pruner = (*Store)(nil)
)

// Store is a catalog.Store backed by SQLite. Emote lists are stored as
// JSON, one row per provider and scope.
type Store struct {
	db *sql.DB
}

// Get implements catalog.Store.
func (s *Store) Get(ctx context.Context, provider, scope string) (catalog.Snapshot, error) {
	var (
		raw       string
		fetchedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT emotes, fetched_at FROM snapshots WHERE provider = ? AND scope = ?",
		provider, scope,
	).Scan(&raw, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Snapshot{}, catalog.ErrNotLoaded
	}
	if err != nil {
		return catalog.Snapshot{}, fmt.Errorf("sqlite: get snapshot %s/%s: %w", provider, scope, err)
	}

	var emotes []emote.Data
	if err := json.Unmarshal([]byte(raw), &emotes); err != nil {
		return catalog.Snapshot{}, fmt.Errorf("sqlite: decode snapshot %s/%s: %w", provider, scope, err)
	}
	return catalog.Snapshot{
		Provider:  provider,
		Scope:     scope,
		Emotes:    emotes,
		FetchedAt: time.Unix(0, fetchedAt),
	}, nil
}

// Put implements catalog.Store. It replaces any snapshot for the same
// provider and scope.
func (s *Store) Put(ctx context.Context, snap catalog.Snapshot) error {
	emotes := snap.Emotes
	if emotes == nil {
		emotes = []emote.Data{}
	}
	raw, err := json.Marshal(emotes)
	if err != nil {
		return fmt.Errorf("sqlite: encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (provider, scope, emotes, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (provider, scope) DO UPDATE SET emotes = excluded.emotes, fetched_at = excluded.fetched_at`,
		snap.Provider, snap.Scope, string(raw), snap.FetchedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: put snapshot %s/%s: %w", snap.Provider, snap.Scope, err)
	}
	return nil
}

// Prune implements catalog.Pruner.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE fetched_at < ?", cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune snapshots: %w", err)
	}
	return int(n), nil
}

// Len returns the number of stored snapshots.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM snapshots").Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count snapshots: %w", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
