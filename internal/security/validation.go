package security

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Validation limits.
const (
	DefaultMaxMessageSize = 64 << 10 // overlay and admin request bodies
	DefaultMaxJSONDepth   = 16
	// MaxChatLength is the longest chat line Twitch accepts, in runes.
	MaxChatLength = 500
)

// Validation errors.
var (
	ErrMessageTooLarge = errors.New("message exceeds maximum size")
	ErrJSONTooDeep     = errors.New("JSON nesting exceeds maximum depth")
	ErrInvalidJSON     = errors.New("invalid JSON")
	ErrChatTooLong     = errors.New("chat message too long")
	ErrChatMalformed   = errors.New("chat message malformed")
)

// ValidateChatText checks an injected chat line: valid UTF-8, no control
// characters (a line is one IRC PRIVMSG), at most MaxChatLength runes.
func ValidateChatText(text string) error {
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: invalid UTF-8", ErrChatMalformed)
	}
	n := 0
	for i, r := range text {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character %U at byte %d", ErrChatMalformed, r, i)
		}
		n++
	}
	if n > MaxChatLength {
		return fmt.Errorf("%w: %d runes (max %d)", ErrChatTooLong, n, MaxChatLength)
	}
	return nil
}

// ValidateMessageSize checks that data does not exceed limit bytes.
// If limit is <= 0, DefaultMaxMessageSize is used.
func ValidateMessageSize(data []byte, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxMessageSize
	}
	if len(data) > limit {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrMessageTooLarge, len(data), limit)
	}
	return nil
}

// ValidateJSONDepth rejects data nested deeper than limit levels, or that
// is not valid JSON. Nesting is measured before parsing. If limit is <= 0,
// DefaultMaxJSONDepth is used. Empty input passes.
func ValidateJSONDepth(data []byte, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxJSONDepth
	}
	if len(data) == 0 {
		return nil
	}

	depth := 0
	inString, escaped := false, false
	for _, b := range data {
		switch {
		case escaped:
			escaped = false
		case inString:
			switch b {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
		case b == '"':
			inString = true
		case b == '{' || b == '[':
			depth++
			if depth > limit {
				return fmt.Errorf("%w: depth %d (max %d)", ErrJSONTooDeep, depth, limit)
			}
		case b == '}' || b == ']':
			depth--
		}
	}

	if !json.Valid(data) {
		return ErrInvalidJSON
	}
	return nil
}
