// Package chat describes what the suggestion box needs from the chat platform.
package chat

import (
	"context"

	"emperror.dev/errors"
)

const (
	// ErrMessageGone is returned when a message was already deleted or never existed
	ErrMessageGone = errors.Sentinel("message not found")
	// ErrChannelUnknown is returned when a channel cannot be resolved
	ErrChannelUnknown = errors.Sentinel("channel not found")
)

// Colors used by the renderer
const (
	ColorBlue  = 0x3498DB
	ColorGreen = 0x00FF00
	ColorRed   = 0xFF0000
)

// Style of a control
type Style int

const (
	StylePrimary Style = iota + 1
	StyleSecondary
	StyleSuccess
	StyleDanger
)

// Control is a clickable button attached to a message
type Control struct {
	ID       string
	Label    string
	Style    Style
	Disabled bool
}

// Content is a platform independent description of a message
type Content struct {
	Title       string
	Description string
	Footer      string
	Color       int
	Controls    []Control
}

// Messenger sends and manages messages in a channel
type Messenger interface {
	SendMessage(ctx context.Context, channelID string, content Content) (string, error)
	EditMessage(ctx context.Context, channelID, messageID string, content Content) error
	// DeleteMessage returns ErrMessageGone if there was nothing to delete
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	// FetchMessage reports whether the message still exists
	FetchMessage(ctx context.Context, channelID, messageID string) (bool, error)
	PinMessage(ctx context.Context, channelID, messageID string) error
	// ResolveChannel returns ErrChannelUnknown if the channel is not reachable
	ResolveChannel(ctx context.Context, channelID string) error
}

// Actor is the user behind an action, together with their permissions
type Actor interface {
	UserID() string
	// HasModerationCapability reports whether the actor may configure suggestions and moderate them in a channel
	HasModerationCapability(ctx context.Context, channelID string) (bool, error)
}
