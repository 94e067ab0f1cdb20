// Package crontest provides test doubles for the cron package.
package crontest

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/flemzord/emotewall/internal/catalog"
	"github.com/flemzord/emotewall/internal/cron"
)

var (
	_ cron.Job           = (*Job)(nil)
	_ cron.RefreshSource = (*Source)(nil)
	_ catalog.Pruner     = (*Pruner)(nil)
)

// Job is a cron.Job that counts its runs. Fn, when set, supplies the result.
type Job struct {
	JobName string
	Spec    string
	Fn      func(ctx context.Context) error

	mu   sync.Mutex
	runs int
}

func (j *Job) Name() string     { return j.JobName }
func (j *Job) Schedule() string { return j.Spec }

func (j *Job) Run(ctx context.Context) error {
	j.mu.Lock()
	j.runs++
	j.mu.Unlock()
	if j.Fn == nil {
		return nil
	}
	return j.Fn(ctx)
}

// Runs reports how many times Run was called.
func (j *Job) Runs() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

// Source is a cron.RefreshSource that counts refreshes.
type Source struct {
	ID string
	Fn func(ctx context.Context)

	mu    sync.Mutex
	calls int
}

func (s *Source) Name() string { return s.ID }

func (s *Source) Refresh(ctx context.Context) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.Fn != nil {
		s.Fn(ctx)
	}
}

// Calls reports how many times Refresh was called.
func (s *Source) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Pruner is a catalog.Pruner returning Pruned and Err for every call.
type Pruner struct {
	Pruned int
	Err    error

	mu      sync.Mutex
	cutoffs []time.Time
}

func (p *Pruner) Prune(_ context.Context, cutoff time.Time) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cutoffs = append(p.cutoffs, cutoff)
	return p.Pruned, p.Err
}

// Cutoffs returns the cutoff of every Prune call, in order.
func (p *Pruner) Cutoffs() []time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.cutoffs)
}
