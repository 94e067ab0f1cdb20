package channel

import "errors"

var (
	// ErrDuplicateChannel is returned when a hub already has a channel of
	// that name.
	ErrDuplicateChannel = errors.New("channel: name already registered")

	// ErrNoInbox is returned by a channel started before SetInbox.
	ErrNoInbox = errors.New("channel: no inbox")

	// ErrDenied means the scope or ignore filter dropped the message.
	ErrDenied = errors.New("channel: filtered")

	ErrEmptyMessage = errors.New("channel: empty message")
)
