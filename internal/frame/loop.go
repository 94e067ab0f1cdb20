package frame

import (
	"context"
	"sync"
	"time"
)

// MaxDelta caps the delta handed to a step so a stalled process does not
// teleport every body on the next frame.
const MaxDelta = 100 * time.Millisecond

// StepFunc advances a simulation by dt seconds.
type StepFunc func(dt float64)

// Loop calls a StepFunc once per tick with the time measured since the
// previous tick. The interval is a target, not a guarantee.
type Loop struct {
	clock    Clock
	interval time.Duration
	step     StepFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLoop creates a stopped loop running step at roughly fps frames per second.
func NewLoop(clock Clock, fps int, step StepFunc) *Loop {
	if clock == nil {
		clock = SystemClock{}
	}
	if fps <= 0 {
		fps = 60
	}
	return &Loop{
		clock:    clock,
		interval: time.Second / time.Duration(fps),
		step:     step,
	}
}

// Start begins ticking. It reports false when the loop is already running.
func (l *Loop) Start() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	ticker := l.clock.NewTicker(l.interval)
	go l.run(ctx, ticker, l.clock.Now(), l.done)
	return true
}

// Stop halts the loop and waits for the in-flight step to return.
// Calling Stop on a stopped loop is a no-op.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is scheduled.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

func (l *Loop) run(ctx context.Context, ticker Ticker, last time.Time, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			now := l.clock.Now()
			dt := min(now.Sub(last), MaxDelta)
			last = now
			if dt <= 0 {
				continue
			}
			l.step(dt.Seconds())
		}
	}
}
