package channel

import "strings"

// AllowList decides which chat messages reach the wall. Unlike a bot's
// allow-list, an empty scope list admits every room: an overlay shows the
// public chat of whatever channel it is connected to. Ignored users (chat
// bots, the streamer's own tooling) are always dropped.
type AllowList struct {
	scopes  map[string]struct{}
	ignored map[string]struct{}
}

// NewAllowList creates an AllowList. Scopes match either the message scope
// id or its room name. Keys are trimmed and lowercased at construction time.
func NewAllowList(scopes, ignoredUsers []string) *AllowList {
	a := &AllowList{
		scopes:  make(map[string]struct{}, len(scopes)),
		ignored: make(map[string]struct{}, len(ignoredUsers)),
	}
	for _, s := range scopes {
		if s = normalize(s); s != "" {
			a.scopes[s] = struct{}{}
		}
	}
	for _, u := range ignoredUsers {
		if u = normalize(u); u != "" {
			a.ignored[u] = struct{}{}
		}
	}
	return a
}

// IsAllowed reports whether msg passes the filter.
//
// Rules:
//   - A nil AllowList allows everything.
//   - A message from an ignored user is denied.
//   - With no scopes configured, every other message is allowed.
//   - Otherwise the message scope or room must be listed.
func (a *AllowList) IsAllowed(msg Message) bool {
	if a == nil {
		return true
	}
	if _, ok := a.ignored[normalize(msg.User)]; ok {
		return false
	}
	if len(a.scopes) == 0 {
		return true
	}
	if _, ok := a.scopes[normalize(msg.Scope)]; ok && msg.Scope != "" {
		return true
	}
	if _, ok := a.scopes[normalize(strings.TrimPrefix(msg.Room, "#"))]; ok && msg.Room != "" {
		return true
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
