// Package channel defines the bridge between chat platforms and the emote
// wall. It provides the Channel interface, the fan-in Hub the wall
// subscribes to, and scope/user filtering.
package channel

import (
	"time"

	"github.com/flemzord/emotewall/internal/core"
)

// Message is one chat line received from a platform.
type Message struct {
	// Channel is the name of the transport that produced the message.
	Channel string `json:"channel"`
	// Scope is the catalog scope the message belongs to (a Twitch room id).
	// Empty means only global catalogs apply.
	Scope string `json:"scope,omitempty"`
	// Room is the human-readable room name, when the platform has one.
	Room       string    `json:"room,omitempty"`
	User       string    `json:"user,omitempty"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// Channel is the bridge between a chat platform and the Hub.
// Every concrete channel (Twitch, ...) must implement this interface.
//
// A channel receives messages from its platform and pushes them through the
// inbox callback. The hub sets the inbox during wiring, before Start().
type Channel interface {
	core.Module

	SetInbox(fn func(msg Message) error)
}

// Transport is a source of chat messages. Subscribe registers fn for every
// subsequent message and returns a function that removes it.
type Transport interface {
	Subscribe(fn func(msg Message)) (cancel func())
}
