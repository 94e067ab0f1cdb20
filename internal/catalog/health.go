package catalog

import (
	"sync"
	"time"
)

// Health labels reported by Catalog.Health.
const (
	HealthOK       = "healthy"
	HealthCooldown = "cooldown"
	HealthDead     = "dead"
)

// HealthConfig tunes how a catalog source backs off after failed fetches.
type HealthConfig struct {
	// InitialBackoff follows the first failure and doubles with each
	// further one. Default: 30s.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay. Default: 30m.
	MaxBackoff time.Duration

	// MaxFailures consecutive failures mark the source dead. A dead source
	// is still retried every MaxBackoff. Default: 8.
	MaxFailures int
}

func (c *HealthConfig) defaults() {
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 30 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Minute
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = 8
	}
}

// healthChange describes the effect of one recorded fetch result.
type healthChange struct {
	from, to string
	failures int
	backoff  time.Duration
}

// sourceHealth counts consecutive fetch failures of one catalog source and
// derives the retry delay from that count.
type sourceHealth struct {
	cfg HealthConfig
	now func() time.Time

	mu       sync.Mutex
	failures int
	retryAt  time.Time
}

func newSourceHealth(cfg HealthConfig, now func() time.Time) *sourceHealth {
	cfg.defaults()
	if now == nil {
		now = time.Now
	}
	return &sourceHealth{cfg: cfg, now: now}
}

// label returns HealthOK, HealthCooldown or HealthDead. Callers hold mu.
func (h *sourceHealth) label() string {
	switch {
	case h.failures == 0:
		return HealthOK
	case h.failures >= h.cfg.MaxFailures:
		return HealthDead
	default:
		return HealthCooldown
	}
}

// backoff returns the delay owed after the current failure count. Callers
// hold mu.
func (h *sourceHealth) backoff() time.Duration {
	if h.failures == 0 {
		return 0
	}
	if h.failures >= h.cfg.MaxFailures {
		return h.cfg.MaxBackoff
	}
	d := h.cfg.InitialBackoff
	for i := 1; i < h.failures && d < h.cfg.MaxBackoff; i++ {
		d *= 2
	}
	return min(d, h.cfg.MaxBackoff)
}

// State returns the current health label.
func (h *sourceHealth) State() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.label()
}

// wait returns how long until the next fetch may be attempted. Zero means
// now.
func (h *sourceHealth) wait() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failures == 0 {
		return 0
	}
	return max(h.retryAt.Sub(h.now()), 0)
}

func (h *sourceHealth) fail() healthChange {
	h.mu.Lock()
	defer h.mu.Unlock()
	from := h.label()
	h.failures++
	d := h.backoff()
	h.retryAt = h.now().Add(d)
	return healthChange{from: from, to: h.label(), failures: h.failures, backoff: d}
}

func (h *sourceHealth) succeed() healthChange {
	h.mu.Lock()
	defer h.mu.Unlock()
	from := h.label()
	h.failures = 0
	h.retryAt = time.Time{}
	return healthChange{from: from, to: HealthOK}
}
