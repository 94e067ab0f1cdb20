package twitch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/flemzord/emotewall/internal/channel"
)

// errReconnect is returned by session when the server asks the client to
// reconnect.
var errReconnect = errors.New("twitch: server requested reconnect")

// run connects, reads until the connection drops, and reconnects with
// exponential backoff until ctx is cancelled.
func (t *Twitch) run(ctx context.Context) {
	defer close(t.done)

	backoff := t.config.ReconnectMin
	for {
		connected, err := t.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			backoff = t.config.ReconnectMin
		}
		t.logger.Warn("twitch chat disconnected", "error", err, "retry_in", backoff)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		backoff = min(backoff*2, t.config.ReconnectMax)
	}
}

// session runs one connection. connected reports whether the login
// completed, which resets the reconnect backoff.
func (t *Twitch) session(ctx context.Context) (connected bool, err error) {
	dialCtx, cancel := context.WithTimeout(ctx, t.config.ConnectTimeout)
	conn, _, err := websocket.Dial(dialCtx, t.config.URL, nil)
	cancel()
	if err != nil {
		return false, fmt.Errorf("twitch: dial: %w", err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(1 << 20)

	login := []string{"CAP REQ :twitch.tv/tags twitch.tv/commands"}
	if t.config.Token != "" {
		login = append(login, "PASS "+t.config.Token)
	}
	login = append(login,
		"NICK "+t.config.Nick,
		"JOIN #"+strings.Join(t.config.Channels, ",#"),
	)
	for _, line := range login {
		if err := t.send(ctx, conn, line); err != nil {
			return false, err
		}
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return connected, fmt.Errorf("twitch: read: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			msg, err := parseLine(line)
			if err != nil {
				continue
			}
			switch msg.Command {
			case "001":
				connected = true
				t.logger.Info("twitch chat connected", "nick", t.config.Nick, "channels", t.config.Channels)
			case "PING":
				if err := t.send(ctx, conn, "PONG :"+msg.Trailing()); err != nil {
					return connected, err
				}
			case "RECONNECT":
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return connected, errReconnect
			case "NOTICE":
				if strings.Contains(msg.Trailing(), "Login authentication failed") {
					return connected, fmt.Errorf("twitch: %s", msg.Trailing())
				}
				t.logger.Debug("twitch notice", "text", msg.Trailing())
			case "PRIVMSG":
				t.deliver(msg)
			}
		}
	}
}

func (t *Twitch) send(ctx context.Context, conn *websocket.Conn, line string) error {
	if err := conn.Write(ctx, websocket.MessageText, []byte(line+"\r\n")); err != nil {
		return fmt.Errorf("twitch: write: %w", err)
	}
	return nil
}

// deliver converts a PRIVMSG to a channel.Message and hands it to the
// inbox. Lines echoed from our own login are dropped.
func (t *Twitch) deliver(msg ircMessage) {
	if len(msg.Params) < 2 {
		return
	}
	login := msg.Tags["login"]
	if login == "" {
		login = msg.Nick()
	}
	if strings.EqualFold(login, t.config.Nick) {
		return
	}
	user := msg.Tags["display-name"]
	if user == "" {
		user = login
	}

	out := channel.Message{
		Channel:    t.name,
		Scope:      msg.Tags["room-id"],
		Room:       strings.TrimPrefix(msg.Params[0], "#"),
		User:       user,
		Text:       actionText(msg.Trailing()),
		ReceivedAt: t.now(),
	}
	if err := t.inbox(out); err != nil {
		if errors.Is(err, channel.ErrDenied) || errors.Is(err, channel.ErrEmptyMessage) {
			t.logger.Debug("chat message dropped", "room", out.Room, "user", out.User, "reason", err)
			return
		}
		t.logger.Error("failed to deliver chat message", "room", out.Room, "error", err)
	}
}
