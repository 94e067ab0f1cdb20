// Package reload provides configuration hot-reload via file polling and
// signal handling. A reload re-reads the file and lets the wall module
// re-apply its enabled flag and theme.
package reload

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"maps"
	"os"
	"sync"
	"time"

	"github.com/flemzord/emotewall/internal/frame"
)

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// ConfigPath is the configuration file reloads read.
	ConfigPath string

	// Related files, such as the .env next to the config, also trigger a
	// reload of ConfigPath when their content changes.
	Related []string

	// PollInterval defaults to 5s.
	PollInterval time.Duration

	// Clock drives polling. Defaults to frame.SystemClock.
	Clock frame.Clock
}

// Event reports that a watched file changed.
type Event struct {
	ConfigPath string
	Changed    string
}

// fingerprint maps each watched path to a digest of its content. Missing
// files are absent.
type fingerprint map[string][sha256.Size]byte

// Watcher polls the config file and its related files and reports content
// changes. Saves that leave the bytes unchanged produce no event.
type Watcher struct {
	cfg    WatcherConfig
	events chan Event
	quit   chan struct{}

	mu     sync.Mutex
	done   chan struct{} // closed when the poll loop exits; nil until Start
	closed bool
}

// NewWatcher creates a new file watcher.
func NewWatcher(cfg WatcherConfig) *Watcher {
	if cfg.Clock == nil {
		cfg.Clock = frame.SystemClock{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return &Watcher{
		cfg:    cfg,
		events: make(chan Event, 1),
		quit:   make(chan struct{}),
	}
}

// Start polls until ctx is done or Stop is called. The content at Start is
// the baseline. Only the first call has an effect, and none after Stop.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil || w.closed {
		return
	}
	w.done = make(chan struct{})
	go w.poll(ctx, w.cfg.Clock.NewTicker(w.cfg.PollInterval), w.fingerprint(), w.done)
}

// Events returns the channel of change events. At most one is pending.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop ends polling and waits for the loop to exit. Safe to call more than
// once and before Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.quit)
	}
	done := w.done
	w.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Dispatch calls reload for every event until ctx is done or the watcher
// stops. Reload errors are logged; the previous configuration stays live.
func (w *Watcher) Dispatch(ctx context.Context, reload func(ctx context.Context, path string) error, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.quit:
			return
		case evt := <-w.events:
			logger.Info("config changed, reloading", "path", evt.ConfigPath, "changed", evt.Changed)
			if err := reload(ctx, evt.ConfigPath); err != nil {
				logger.Error("config reload failed, keeping previous config", "error", err)
			}
		}
	}
}

func (w *Watcher) poll(ctx context.Context, ticker frame.Ticker, last fingerprint, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.quit:
			return
		case <-ticker.C():
		}

		current := w.fingerprint()
		changed, ok := last.diff(current, w.paths())
		maps.Copy(last, current)
		if !ok {
			continue
		}
		select {
		case w.events <- Event{ConfigPath: w.cfg.ConfigPath, Changed: changed}:
		default:
			// a reload is already pending
		}
	}
}

func (w *Watcher) paths() []string {
	return append([]string{w.cfg.ConfigPath}, w.cfg.Related...)
}

func (w *Watcher) fingerprint() fingerprint {
	fp := make(fingerprint)
	for _, p := range w.paths() {
		if data, err := os.ReadFile(p); err == nil {
			fp[p] = sha256.Sum256(data)
		}
	}
	return fp
}

// diff returns the first path, in watch order, whose content differs in
// next. A file that disappears is not a change: editors briefly remove
// files while saving.
func (fp fingerprint) diff(next fingerprint, order []string) (string, bool) {
	for _, p := range order {
		sum, ok := next[p]
		if !ok {
			continue
		}
		if prev, had := fp[p]; !had || prev != sum {
			return p, true
		}
	}
	return "", false
}
