package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flemzord/emotewall/internal/catalog"
)

// RefreshSource is a catalog provider that can re-fetch what it has loaded.
type RefreshSource interface {
	Name() string
	catalog.Refresher
}

// CatalogRefreshJob re-fetches the global catalog and every loaded scope of
// each source. Sources backing off after failures skip themselves.
type CatalogRefreshJob struct {
	Sources      []RefreshSource
	Logger       *slog.Logger
	ScheduleExpr string        // empty = default "*/15 * * * *"
	Timeout      time.Duration // per run, 0 = 2m
	Parallelism  int           // 0 = 4
}

// Compile-time interface check.
var _ Job = (*CatalogRefreshJob)(nil)

// Name implements Job.
func (j *CatalogRefreshJob) Name() string { return "catalog_refresh" }

// Schedule implements Job.
func (j *CatalogRefreshJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "*/15 * * * *"
}

// Run refreshes every source concurrently.
func (j *CatalogRefreshJob) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return fmt.Errorf("cron: catalog refresh cancelled: %w", ctx.Err())
	}
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	limit := j.Parallelism
	if limit <= 0 {
		limit = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, src := range j.Sources {
		g.Go(func() error {
			start := time.Now()
			src.Refresh(gctx)
			j.logger().Debug("cron: catalog refreshed", "provider", src.Name(), "elapsed", time.Since(start))
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

func (j *CatalogRefreshJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return j.Logger
}

// SnapshotPruneJob removes cached catalog snapshots older than MaxAge.
// Snapshots of loaded scopes are rewritten by every refresh, so only scopes
// nobody has asked for in a while expire.
type SnapshotPruneJob struct {
	Store        catalog.Pruner
	MaxAge       time.Duration
	Logger       *slog.Logger
	ScheduleExpr string // empty = default "0 * * * *"

	// Now defaults to time.Now.
	Now func() time.Time
}

// Compile-time interface check.
var _ Job = (*SnapshotPruneJob)(nil)

// Name implements Job.
func (j *SnapshotPruneJob) Name() string { return "snapshot_prune" }

// Schedule implements Job.
func (j *SnapshotPruneJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 * * * *"
}

// Run prunes snapshots fetched more than MaxAge ago.
func (j *SnapshotPruneJob) Run(ctx context.Context) error {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	pruned, err := j.Store.Prune(ctx, now().Add(-j.MaxAge))
	if err != nil {
		return fmt.Errorf("cron: pruning snapshots: %w", err)
	}
	if pruned > 0 && j.Logger != nil {
		j.Logger.Info("cron: pruned catalog snapshots", "count", pruned)
	}
	return nil
}
