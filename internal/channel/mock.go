package channel

import (
	"sync"
	"time"

	"github.com/flemzord/emotewall/internal/core"
)

// MockChannel is a test double that implements Channel. It allows
// simulating inbound messages via SimulateMessage.
type MockChannel struct {
	name  string
	mu    sync.Mutex
	inbox func(msg Message) error
}

// NewMockChannel creates a MockChannel with the given name.
func NewMockChannel(name string) *MockChannel {
	return &MockChannel{name: name}
}

// ModuleInfo implements core.Module.
func (m *MockChannel) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  core.ModuleID("channel." + m.name),
		New: func() core.Module { return NewMockChannel(m.name) },
	}
}

// SetInbox implements Channel.
func (m *MockChannel) SetInbox(fn func(msg Message) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox = fn
}

// SimulateMessage pushes msg through the inbox as if it came from the
// platform. Channel and ReceivedAt are filled in when empty.
func (m *MockChannel) SimulateMessage(msg Message) error {
	m.mu.Lock()
	inbox := m.inbox
	m.mu.Unlock()

	if inbox == nil {
		return ErrNoInbox
	}
	if msg.Channel == "" {
		msg.Channel = m.name
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}
	return inbox(msg)
}

// Interface guard.
var _ Channel = (*MockChannel)(nil)
