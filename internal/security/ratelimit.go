package security

import (
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a request exceeds the rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// Rate limit buckets.
const (
	BucketChat    = "chat"
	BucketAuth    = "auth"
	BucketOverlay = "overlay"
)

// RateLimitConfig holds per-minute limits. Zero values take defaults.
type RateLimitConfig struct {
	// ChatPerMin caps messages injected through the admin API.
	ChatPerMin int `yaml:"chat_per_min"`
	// AuthPerMin caps admin authentication attempts.
	AuthPerMin int `yaml:"auth_per_min"`
	// OverlayPerMin caps overlay WebSocket connection attempts.
	OverlayPerMin int `yaml:"overlay_per_min"`
}

func (c *RateLimitConfig) defaults() {
	if c.ChatPerMin <= 0 {
		c.ChatPerMin = 120
	}
	if c.AuthPerMin <= 0 {
		c.AuthPerMin = 30
	}
	if c.OverlayPerMin <= 0 {
		c.OverlayPerMin = 60
	}
}

// RateLimiter holds one token bucket per kind. A bucket starts full with
// its per-minute limit and refills evenly over the minute.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	limit int
	*rate.Limiter
}

func newBucket(perMin int) *bucket {
	return &bucket{limit: perMin, Limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin)}
}

// NewRateLimiter creates a rate limiter with the given config.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	cfg.defaults()
	return &RateLimiter{
		now: time.Now,
		buckets: map[string]*bucket{
			BucketChat:    newBucket(cfg.ChatPerMin),
			BucketAuth:    newBucket(cfg.AuthPerMin),
			BucketOverlay: newBucket(cfg.OverlayPerMin),
		},
	}
}

// Allow takes one token of kind and reports ErrRateLimited when the bucket
// is empty. Unknown kinds are never limited; neither is a nil limiter.
func (rl *RateLimiter) Allow(kind string) error {
	if rl == nil {
		return nil
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[kind]
	if !ok {
		return nil
	}
	if !b.AllowN(rl.now(), 1) {
		return ErrRateLimited
	}
	return nil
}
