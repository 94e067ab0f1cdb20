package overlay

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Client is one connected overlay.
type Client struct {
	ID          string
	RemoteAddr  string
	ConnectedAt time.Time

	mu       sync.Mutex
	viewport Viewport
	conn     *websocket.Conn
	send     chan []byte
}

func newClient(id, remote string, conn *websocket.Conn, buffer int, now time.Time) *Client {
	return &Client{
		ID:          id,
		RemoteAddr:  remote,
		ConnectedAt: now,
		conn:        conn,
		send:        make(chan []byte, buffer),
	}
}

// Viewport returns the last viewport the client reported.
func (c *Client) Viewport() Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewport
}

func (c *Client) setViewport(v Viewport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport = v
}

// enqueue queues msg without blocking and reports whether it was accepted.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// ClientStore is a concurrent-safe set of connected clients.
type ClientStore struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewClientStore creates an empty ClientStore.
func NewClientStore() *ClientStore {
	return &ClientStore{clients: make(map[string]*Client)}
}

// AddIfUnder registers c unless the store already holds max clients.
func (s *ClientStore) AddIfUnder(c *Client, max int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.clients) >= max {
		return false
	}
	s.clients[c.ID] = c
	return true
}

// Get returns the client with the given ID.
func (s *ClientStore) Get(id string) (*Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	return c, ok
}

// Remove deletes a client from the store.
func (s *ClientStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, id)
}

// Len returns the number of connected clients.
func (s *ClientStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Range calls fn for each client until fn returns false.
func (s *ClientStore) Range(fn func(c *Client) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if !fn(c) {
			return
		}
	}
}

func generateClientID() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return "ovl-" + hex.EncodeToString(buf[:]), nil
}
