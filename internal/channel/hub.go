package channel

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Hub fans in messages from every registered channel and fans them out to
// subscribers. It implements Transport.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]Channel
	subs     map[uint64]func(Message)
	next     uint64
	allow    *AllowList
	logger   *slog.Logger
}

// NewHub creates an empty Hub. A nil allow-list admits every message and a
// nil logger discards output.
func NewHub(allow *AllowList, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		channels: make(map[string]Channel),
		subs:     make(map[uint64]func(Message)),
		allow:    allow,
		logger:   logger,
	}
}

// Register adds a channel under the given name and points its inbox at the
// hub. Returns ErrDuplicateChannel if the name is already taken.
func (h *Hub) Register(name string, ch Channel) error {
	h.mu.Lock()
	if _, exists := h.channels[name]; exists {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateChannel, name)
	}
	h.channels[name] = ch
	h.mu.Unlock()

	ch.SetInbox(func(msg Message) error {
		if msg.Channel == "" {
			msg.Channel = name
		}
		return h.Publish(msg)
	})
	return nil
}

// SetAllowList swaps the message filter. Messages already being delivered
// keep the filter they were checked against.
func (h *Hub) SetAllowList(allow *AllowList) {
	h.mu.Lock()
	h.allow = allow
	h.mu.Unlock()
}

// Get returns the channel registered under name, or false if none.
func (h *Hub) Get(name string) (Channel, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ch, ok := h.channels[name]
	return ch, ok
}

// Channels returns the sorted names of all registered channels.
func (h *Hub) Channels() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.channels))
	for name := range h.channels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Subscribe registers fn for every message published after the call.
func (h *Hub) Subscribe(fn func(Message)) (cancel func()) {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish delivers msg to every subscriber in subscription order.
// Subscribers run on the caller's goroutine, outside the hub lock.
func (h *Hub) Publish(msg Message) error {
	if strings.TrimSpace(msg.Text) == "" {
		return ErrEmptyMessage
	}
	h.mu.RLock()
	allow := h.allow
	h.mu.RUnlock()
	if !allow.IsAllowed(msg) {
		h.logger.Debug("message filtered", "channel", msg.Channel, "scope", msg.Scope, "user", msg.User)
		return ErrDenied
	}

	h.mu.RLock()
	ids := make([]uint64, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Message), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.subs[id])
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(msg)
	}
	return nil
}
