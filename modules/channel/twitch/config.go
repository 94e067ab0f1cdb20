package twitch

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config holds the Twitch chat channel configuration.
type Config struct {
	URL      string   `yaml:"url"`
	Channels []string `yaml:"channels"`
	// Nick defaults to an anonymous justinfan login. Token is only needed
	// for a named login and is never required for reading chat.
	Nick           string        `yaml:"nick"`
	Token          string        `yaml:"token"`
	ReconnectMin   time.Duration `yaml:"reconnect_min"`
	ReconnectMax   time.Duration `yaml:"reconnect_max"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

func (c *Config) defaults() {
	if c.URL == "" {
		c.URL = "wss://irc-ws.chat.twitch.tv:443"
	}
	if c.Nick == "" {
		c.Nick = "justinfan" + strconv.Itoa(10000+rand.IntN(90000))
	}
	c.Nick = strings.ToLower(c.Nick)
	if c.Token != "" && !strings.HasPrefix(c.Token, "oauth:") {
		c.Token = "oauth:" + c.Token
	}
	for i, ch := range c.Channels {
		c.Channels[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ch), "#"))
	}
	if c.ReconnectMin <= 0 {
		c.ReconnectMin = time.Second
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = 30 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
}

func (c *Config) anonymous() bool {
	return strings.HasPrefix(c.Nick, "justinfan")
}

func (c *Config) validate() error {
	var errs []error
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		errs = append(errs, fmt.Errorf("twitch: url must be a ws/wss URL, got %q", c.URL))
	}
	if len(c.Channels) == 0 {
		errs = append(errs, errors.New("twitch: at least one channel is required"))
	}
	for _, ch := range c.Channels {
		if ch == "" || strings.ContainsAny(ch, " ,#") {
			errs = append(errs, fmt.Errorf("twitch: invalid channel name %q", ch))
		}
	}
	if !c.anonymous() && c.Token == "" {
		errs = append(errs, fmt.Errorf("twitch: token is required for nick %q", c.Nick))
	}
	if c.ReconnectMax < c.ReconnectMin {
		errs = append(errs, errors.New("twitch: reconnect_max must be >= reconnect_min"))
	}
	return errors.Join(errs...)
}
