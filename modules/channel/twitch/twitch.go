// Package twitch implements the channel.twitch module, reading Twitch chat
// over the IRC WebSocket gateway.
package twitch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/flemzord/emotewall/internal/channel"
	"github.com/flemzord/emotewall/internal/core"
	"github.com/flemzord/emotewall/internal/security"
)

func init() {
	core.RegisterModule(&Twitch{})
}

var (
	_ channel.Channel   = (*Twitch)(nil)
	_ core.Configurable = (*Twitch)(nil)
	_ core.Provisioner  = (*Twitch)(nil)
	_ core.Validator    = (*Twitch)(nil)
	_ core.Starter      = (*Twitch)(nil)
	_ core.Stopper      = (*Twitch)(nil)
)

// Twitch is a read-only Twitch chat channel.
type Twitch struct {
	config Config
	logger *slog.Logger
	inbox  func(channel.Message) error
	name   string
	now    func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// ModuleInfo implements core.Module.
func (t *Twitch) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "channel.twitch",
		New: func() core.Module { return &Twitch{} },
	}
}

// Configure implements core.Configurable.
func (t *Twitch) Configure(node *yaml.Node) error {
	if err := node.Decode(&t.config); err != nil {
		return fmt.Errorf("twitch: decode config: %w", err)
	}
	t.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (t *Twitch) Provision(ctx *core.AppContext) error {
	t.config.defaults()
	t.logger = ctx.Logger
	t.name = string(t.ModuleInfo().ID)
	if t.now == nil {
		t.now = time.Now
	}
	if t.config.Token != "" {
		if store, err := core.Lookup[*security.CredentialStore](ctx, security.CredentialsService); err == nil {
			store.Set("twitch_chat_token", t.config.Token)
		}
	}
	return nil
}

// Validate implements core.Validator.
func (t *Twitch) Validate() error {
	return t.config.validate()
}

// SetInbox implements channel.Channel.
func (t *Twitch) SetInbox(fn func(msg channel.Message) error) {
	t.inbox = fn
}

// Start implements core.Starter. The connection runs in the background and
// reconnects on its own.
func (t *Twitch) Start() error {
	if t.inbox == nil {
		return fmt.Errorf("%w: call SetInbox before Start", channel.ErrNoInbox)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})
	go t.run(ctx)
	return nil
}

// Stop implements core.Stopper.
func (t *Twitch) Stop(ctx context.Context) error {
	if t.cancel == nil {
		return nil
	}
	t.cancel()
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("twitch: stop timed out"), ctx.Err())
	}
}
