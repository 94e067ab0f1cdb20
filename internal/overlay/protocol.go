package overlay

import (
	"encoding/json"
	"time"
)

// MessageType identifies the kind of message on an overlay connection.
type MessageType string

// Protocol message types.
const (
	// MsgHello and MsgResize carry the client's Viewport.
	MsgHello        MessageType = "hello"
	MsgResize       MessageType = "resize"
	MsgFrame        MessageType = "frame"
	MsgHeartbeat    MessageType = "heartbeat"
	MsgHeartbeatAck MessageType = "heartbeat_ack"
	MsgError        MessageType = "error"
)

// Envelope is the wire format for every overlay message.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Viewport is the pixel size of the client's browser source.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (v Viewport) valid() bool {
	return v.Width > 0 && v.Height > 0 && v.Width <= maxViewport && v.Height <= maxViewport
}
