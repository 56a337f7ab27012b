// Package chattest provides an in-memory chat platform for tests.
package chattest

import (
	"context"
	"strconv"
	"sync"

	"github.com/TheTipo01/suggestionBot/internal/chat"
)

// Message is a message held by the fake platform
type Message struct {
	ChannelID string
	Content   chat.Content
	Pinned    bool
}

// Actor is a user with a fixed moderation capability
type Actor struct {
	ID        string
	Moderator bool
	Err       error
}

func (a Actor) UserID() string {
	return a.ID
}

func (a Actor) HasModerationCapability(context.Context, string) (bool, error) {
	return a.Moderator, a.Err
}

// Member returns an actor without the moderation capability
func Member(id string) Actor {
	return Actor{ID: id}
}

// Moderator returns an actor holding the moderation capability
func Moderator(id string) Actor {
	return Actor{ID: id, Moderator: true}
}

// Platform implements chat.Messenger in memory
type Platform struct {
	mu       sync.Mutex
	nextID   int
	messages map[string]*Message
	channels map[string]bool

	// Calls counts invocations per method name
	Calls map[string]int

	// Fail* make the matching method return the error when set
	FailSend   error
	FailEdit   error
	FailDelete error
	FailPin    error
}

// New returns a platform where the given channels exist
func New(channels ...string) *Platform {
	p := &Platform{
		messages: make(map[string]*Message),
		channels: make(map[string]bool),
		Calls:    make(map[string]int),
	}
	for _, c := range channels {
		p.channels[c] = true
	}

	return p
}

func (p *Platform) call(name string) {
	p.Calls[name]++
}

func (p *Platform) SendMessage(_ context.Context, channelID string, content chat.Content) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.call("send")

	if p.FailSend != nil {
		return "", p.FailSend
	}
	if !p.channels[channelID] {
		return "", chat.ErrChannelUnknown
	}

	p.nextID++
	id := "m" + strconv.Itoa(p.nextID)
	p.messages[id] = &Message{ChannelID: channelID, Content: content}

	return id, nil
}

func (p *Platform) EditMessage(_ context.Context, channelID, messageID string, content chat.Content) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.call("edit")

	if p.FailEdit != nil {
		return p.FailEdit
	}
	m, ok := p.messages[messageID]
	if !ok || m.ChannelID != channelID {
		return chat.ErrMessageGone
	}
	m.Content = content

	return nil
}

func (p *Platform) DeleteMessage(_ context.Context, channelID, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.call("delete")

	if p.FailDelete != nil {
		return p.FailDelete
	}
	m, ok := p.messages[messageID]
	if !ok || m.ChannelID != channelID {
		return chat.ErrMessageGone
	}
	delete(p.messages, messageID)

	return nil
}

func (p *Platform) FetchMessage(_ context.Context, channelID, messageID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.call("fetch")

	m, ok := p.messages[messageID]
	return ok && m.ChannelID == channelID, nil
}

func (p *Platform) PinMessage(_ context.Context, channelID, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.call("pin")

	if p.FailPin != nil {
		return p.FailPin
	}
	m, ok := p.messages[messageID]
	if !ok || m.ChannelID != channelID {
		return chat.ErrMessageGone
	}
	m.Pinned = true

	return nil
}

func (p *Platform) ResolveChannel(_ context.Context, channelID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.call("resolve")

	if !p.channels[channelID] {
		return chat.ErrChannelUnknown
	}

	return nil
}

// Message returns a copy of a live message
func (p *Platform) Message(id string) (Message, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.messages[id]
	if !ok {
		return Message{}, false
	}

	return *m, true
}

// Count returns how many live messages a channel holds
func (p *Platform) Count(channelID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, m := range p.messages {
		if m.ChannelID == channelID {
			n++
		}
	}

	return n
}

// Forget removes a message as if someone deleted it by hand
func (p *Platform) Forget(id string) {
	p.mu.Lock()
	delete(p.messages, id)
	p.mu.Unlock()
}

// CallCount returns the number of invocations of a method
func (p *Platform) CallCount(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.Calls[name]
}
