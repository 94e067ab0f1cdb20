package twitch

import (
	"errors"
	"strings"
)

var errEmptyLine = errors.New("twitch: empty irc line")

// ircMessage is one parsed IRCv3 line.
type ircMessage struct {
	Tags    map[string]string
	Prefix  string
	Command string
	Params  []string
}

// Nick returns the nickname part of the prefix.
func (m ircMessage) Nick() string {
	nick, _, _ := strings.Cut(m.Prefix, "!")
	return nick
}

// Trailing returns the last parameter, or "" when there is none.
func (m ircMessage) Trailing() string {
	if len(m.Params) == 0 {
		return ""
	}
	return m.Params[len(m.Params)-1]
}

// parseLine parses "@tags :prefix COMMAND params :trailing".
func parseLine(line string) (ircMessage, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return ircMessage{}, errEmptyLine
	}
	var msg ircMessage

	if strings.HasPrefix(line, "@") {
		raw, rest, _ := strings.Cut(line[1:], " ")
		msg.Tags = parseTags(raw)
		line = strings.TrimLeft(rest, " ")
	}
	if strings.HasPrefix(line, ":") {
		msg.Prefix, line, _ = strings.Cut(line[1:], " ")
		line = strings.TrimLeft(line, " ")
	}

	for line != "" {
		if strings.HasPrefix(line, ":") {
			msg.Params = append(msg.Params, line[1:])
			break
		}
		var param string
		param, line, _ = strings.Cut(line, " ")
		line = strings.TrimLeft(line, " ")
		if msg.Command == "" {
			msg.Command = strings.ToUpper(param)
			continue
		}
		msg.Params = append(msg.Params, param)
	}
	if msg.Command == "" {
		return ircMessage{}, errEmptyLine
	}
	return msg, nil
}

func parseTags(raw string) map[string]string {
	tags := make(map[string]string)
	for _, kv := range strings.Split(raw, ";") {
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		tags[k] = tagUnescaper.Replace(v)
	}
	return tags
}

var tagUnescaper = strings.NewReplacer(`\:`, ";", `\s`, " ", `\\`, `\`, `\r`, "\r", `\n`, "\n")

// actionText strips the CTCP ACTION wrapper used by /me.
func actionText(text string) string {
	if inner, ok := strings.CutPrefix(text, "\x01ACTION "); ok {
		return strings.TrimSuffix(inner, "\x01")
	}
	return text
}
