package security

import (
	"errors"
	"testing"
	"time"
)

func TestRateLimiter_Refill(t *testing.T) {
	t.Parallel()

	now := time.Unix(0, 0)
	rl := NewRateLimiter(RateLimitConfig{ChatPerMin: 2})
	rl.now = func() time.Time { return now }

	for i := range 2 {
		if err := rl.Allow(BucketChat); err != nil {
			t.Fatalf("Allow #%d: %v", i, err)
		}
	}
	if err := rl.Allow(BucketChat); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("third Allow = %v, want ErrRateLimited", err)
	}

	// Two per minute refills one token every 30s.
	now = now.Add(31 * time.Second)
	if err := rl.Allow(BucketChat); err != nil {
		t.Errorf("Allow after refill: %v", err)
	}
	if err := rl.Allow(BucketChat); !errors.Is(err, ErrRateLimited) {
		t.Errorf("Allow with empty bucket = %v, want ErrRateLimited", err)
	}
}

func TestRateLimiter_BucketsAreIndependent(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{AuthPerMin: 1})
	if err := rl.Allow(BucketAuth); err != nil {
		t.Fatalf("Allow(auth): %v", err)
	}
	if err := rl.Allow(BucketAuth); !errors.Is(err, ErrRateLimited) {
		t.Errorf("second Allow(auth) = %v", err)
	}
	if err := rl.Allow(BucketOverlay); err != nil {
		t.Errorf("Allow(overlay): %v", err)
	}
	if err := rl.Allow("unknown"); err != nil {
		t.Errorf("Allow(unknown): %v", err)
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(RateLimitConfig{})
	if got := rl.buckets[BucketChat].limit; got != 120 {
		t.Errorf("chat limit = %d, want 120", got)
	}
	var nilLimiter *RateLimiter
	if err := nilLimiter.Allow(BucketChat); err != nil {
		t.Errorf("nil limiter Allow = %v", err)
	}
}
