package overlay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/flemzord/emotewall/internal/frame"
	"github.com/flemzord/emotewall/internal/scene"
	"github.com/flemzord/emotewall/internal/security"
	"github.com/flemzord/emotewall/internal/surface"
)

const (
	maxViewport     = 8192
	maxMessageDepth = 4
	// Client messages are resize and ping envelopes; anything bigger is
	// answered with an error frame.
	maxControlMessage = 1 << 10
	pingParallelism   = 8
)

// Config holds overlay hub settings.
type Config struct {
	// Tokens, when set, must be presented as the "token" query parameter.
	// Browser sources cannot send headers.
	Tokens         []string `yaml:"tokens"`
	OriginPatterns []string `yaml:"origin_patterns"`
	MaxClients     int      `yaml:"max_clients"`
	// SendBuffer is the number of frames queued per client before frames
	// are dropped for it.
	SendBuffer        int           `yaml:"send_buffer"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	// FollowViewport resizes the wall to the latest client viewport.
	// Default: true.
	FollowViewport *bool `yaml:"follow_viewport"`
}

func (c *Config) defaults() {
	if c.MaxClients <= 0 {
		c.MaxClients = 8
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 4
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 30 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
}

func (c Config) followViewport() bool {
	return c.FollowViewport == nil || *c.FollowViewport
}

// Hub fans composed frames out to every connected overlay client.
type Hub struct {
	config Config
	logger *slog.Logger
	clock  frame.Clock
	store  *ClientStore
	tokens map[string]struct{}

	mu     sync.RWMutex
	resize func(surface.Size)
	onDrop func()

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a hub. A nil clock uses the system clock.
func NewHub(cfg Config, logger *slog.Logger, clock frame.Clock) *Hub {
	cfg.defaults()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if clock == nil {
		clock = frame.SystemClock{}
	}
	tokens := make(map[string]struct{}, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		tokens[t] = struct{}{}
	}
	return &Hub{
		config: cfg,
		logger: logger,
		clock:  clock,
		store:  NewClientStore(),
		tokens: tokens,
	}
}

// SetResizer sets the function that receives client viewports as
// container sizes.
func (h *Hub) SetResizer(fn func(surface.Size)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resize = fn
}

// OnFrameDropped sets a callback invoked whenever a slow client misses a
// frame.
func (h *Hub) OnFrameDropped(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDrop = fn
}

// Len returns the number of connected clients.
func (h *Hub) Len() int { return h.store.Len() }

// Publish queues f for every client. Clients whose queue is full miss it.
func (h *Hub) Publish(f scene.Frame) {
	if h.store.Len() == 0 {
		return
	}
	data, err := encode(MsgFrame, f, h.clock.Now())
	if err != nil {
		h.logger.Error("marshal frame failed", "error", err)
		return
	}

	h.mu.RLock()
	onDrop := h.onDrop
	h.mu.RUnlock()

	h.store.Range(func(c *Client) bool {
		if !c.enqueue(data) && onDrop != nil {
			onDrop()
		}
		return true
	})
}

// Start launches the ping loop.
func (h *Hub) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.heartbeatLoop(ctx)
	}()
	h.logger.Info("overlay hub started",
		"max_clients", h.config.MaxClients,
		"heartbeat_interval", h.config.HeartbeatInterval,
	)
}

// Close stops the ping loop and disconnects every client.
func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()

	h.store.Range(func(c *Client) bool {
		_ = c.conn.Close(websocket.StatusGoingAway, "server shutting down")
		return true
	})
	h.logger.Info("overlay hub stopped")
}

// ServeHTTP upgrades the request and runs the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if len(h.tokens) > 0 {
		if _, ok := h.tokens[r.URL.Query().Get("token")]; !ok {
			h.logger.Warn("overlay connection rejected", "remote_addr", r.RemoteAddr, "error", ErrInvalidToken)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.config.OriginPatterns})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}
	conn.SetReadLimit(security.DefaultMaxMessageSize)

	id, err := generateClientID()
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "internal error")
		return
	}
	c := newClient(id, r.RemoteAddr, conn, h.config.SendBuffer, h.clock.Now())
	if !h.store.AddIfUnder(c, h.config.MaxClients) {
		h.logger.Warn("overlay connection rejected", "remote_addr", r.RemoteAddr, "error", ErrMaxClients)
		_ = conn.Close(websocket.StatusTryAgainLater, ErrMaxClients.Error())
		return
	}
	defer h.store.Remove(id)

	h.logger.Info("overlay client connected", "client_id", id, "remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.writeLoop(ctx, c)

	h.readLoop(ctx, c)
	_ = conn.Close(websocket.StatusNormalClosure, "")
	h.logger.Info("overlay client disconnected", "client_id", id)
}

func (h *Hub) readLoop(ctx context.Context, c *Client) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		if err := security.ValidateMessageSize(data, maxControlMessage); err != nil {
			h.sendError(c, "message too large")
			continue
		}
		if err := security.ValidateJSONDepth(data, maxMessageDepth); err != nil {
			h.sendError(c, "invalid message")
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.sendError(c, "invalid message format")
			continue
		}

		switch env.Type {
		case MsgHello, MsgResize:
			var v Viewport
			if err := json.Unmarshal(env.Payload, &v); err != nil || !v.valid() {
				h.sendError(c, "invalid viewport")
				continue
			}
			c.setViewport(v)
			h.applyViewport(v)

		case MsgHeartbeat:
			h.send(c, MsgHeartbeatAck, nil)

		default:
			h.logger.Debug("unexpected overlay message", "client_id", c.ID, "type", env.Type)
		}
	}
}

func (h *Hub) writeLoop(ctx context.Context, c *Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, h.config.WriteTimeout)
			err := c.conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				h.logger.Debug("overlay write failed", "client_id", c.ID, "error", err)
				_ = c.conn.Close(websocket.StatusGoingAway, "write failed")
				return
			}
		}
	}
}

func (h *Hub) applyViewport(v Viewport) {
	if !h.config.followViewport() {
		return
	}
	h.mu.RLock()
	resize := h.resize
	h.mu.RUnlock()
	if resize != nil {
		resize(surface.Size{W: v.Width, H: v.Height})
	}
}

func (h *Hub) heartbeatLoop(ctx context.Context) {
	ticker := h.clock.NewTicker(h.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			h.pingAll(ctx)
		}
	}
}

// pingAll pings every client and disconnects those that do not answer
// within one heartbeat interval.
func (h *Hub) pingAll(ctx context.Context) {
	var clients []*Client
	h.store.Range(func(c *Client) bool {
		clients = append(clients, c)
		return true
	})

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(pingParallelism)
	for _, c := range clients {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, h.config.HeartbeatInterval)
			defer cancel()
			if err := c.conn.Ping(pctx); err != nil {
				h.logger.Warn("overlay client heartbeat timeout, disconnecting", "client_id", c.ID, "error", err)
				_ = c.conn.Close(websocket.StatusGoingAway, "heartbeat timeout")
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (h *Hub) send(c *Client, typ MessageType, payload any) {
	data, err := encode(typ, payload, h.clock.Now())
	if err != nil {
		h.logger.Error("marshal envelope failed", "error", err)
		return
	}
	c.enqueue(data)
}

func (h *Hub) sendError(c *Client, message string) {
	h.send(c, MsgError, map[string]string{"message": message})
}

func encode(typ MessageType, payload any, now time.Time) ([]byte, error) {
	env := Envelope{Type: typ, Timestamp: now}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}
