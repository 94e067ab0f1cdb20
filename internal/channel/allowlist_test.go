package channel

import "testing"

func TestAllowList_IsAllowed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		allow   *AllowList
		msg     Message
		allowed bool
	}{
		{"nil list allows", nil, Message{User: "bob", Scope: "1"}, true},
		{"empty list allows", NewAllowList(nil, nil), Message{User: "bob"}, true},
		{"ignored user", NewAllowList(nil, []string{"Nightbot"}), Message{User: "nightbot"}, false},
		{"ignored user wins over scope", NewAllowList([]string{"42"}, []string{"nightbot"}), Message{User: "Nightbot", Scope: "42"}, false},
		{"scope match", NewAllowList([]string{"42"}, nil), Message{Scope: "42"}, true},
		{"room match", NewAllowList([]string{" Forsen "}, nil), Message{Room: "#forsen"}, true},
		{"scope miss", NewAllowList([]string{"42"}, nil), Message{Scope: "7", Room: "other"}, false},
		{"empty scope never matches", NewAllowList([]string{"42"}, nil), Message{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.allow.IsAllowed(tt.msg); got != tt.allowed {
				t.Errorf("IsAllowed(%+v) = %v, want %v", tt.msg, got, tt.allowed)
			}
		})
	}
}
