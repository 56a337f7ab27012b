// Package sticky keeps a single "how to suggest" reminder at the bottom of the suggestions channel.
//
// The reminder is reposted when channel activity buries it, at most once per
// debounce window per channel. Debounce timestamps and in-progress flags live
// in the Manager and are not persisted; only the reminder id is stored in the
// guild record.
package sticky

import (
	"context"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/TheTipo01/suggestionBot/internal/chat"
	"github.com/TheTipo01/suggestionBot/internal/metrics"
	"github.com/TheTipo01/suggestionBot/internal/store"
	"github.com/bwmarrin/lit"
)

// DefaultWindow is the minimum time between two reposts in the same channel
const DefaultWindow = 5 * time.Second

// errSuperseded aborts recording a reminder when the guild record moved on meanwhile
const errSuperseded = errors.Sentinel("reminder superseded")

type channelState struct {
	lastRepost time.Time
	updating   bool
}

// Manager owns the per-channel reminder state
type Manager struct {
	messenger chat.Messenger
	store     store.Store
	window    time.Duration
	now       func() time.Time
	text      string

	mu       sync.Mutex
	channels map[string]*channelState
}

// Option configures a Manager
type Option func(*Manager)

// WithWindow overrides the debounce window
func WithWindow(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.window = d
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithText overrides the reminder text
func WithText(text string) Option {
	return func(m *Manager) {
		if text != "" {
			m.text = text
		}
	}
}

// New returns a Manager posting through messenger and recording ids in st
func New(messenger chat.Messenger, st store.Store, opts ...Option) *Manager {
	m := &Manager{
		messenger: messenger,
		store:     st,
		window:    DefaultWindow,
		now:       time.Now,
		text:      "-# To make a suggestion, use the /suggest command.",
		channels:  make(map[string]*channelState),
	}
	for _, o := range opts {
		o(m)
	}

	return m
}

// Reminder is the content of the reminder message
func (m *Manager) Reminder() chat.Content {
	return chat.Content{Description: m.text, Color: chat.ColorBlue}
}

// acquire sets the in-progress flag of a channel. It returns false if an update already holds it.
func (m *Manager) acquire(channelID string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.channels[channelID]
	if !ok {
		st = &channelState{}
		m.channels[channelID] = st
	}
	if st.updating {
		return time.Time{}, false
	}
	st.updating = true

	return st.lastRepost, true
}

func (m *Manager) release(channelID string) {
	m.mu.Lock()
	if st, ok := m.channels[channelID]; ok {
		st.updating = false
	}
	m.mu.Unlock()
}

func (m *Manager) touch(channelID string, t time.Time) {
	m.mu.Lock()
	st, ok := m.channels[channelID]
	if !ok {
		st = &channelState{}
		m.channels[channelID] = st
	}
	st.lastRepost = t
	m.mu.Unlock()
}

// Ensure reposts the reminder of a guild's suggestions channel if it is due.
// It does nothing when suggestions are disabled, when another repost for the
// channel is running, or when the last repost is younger than the window.
func (m *Manager) Ensure(ctx context.Context, guildID string) error {
	return m.ensure(ctx, guildID, "")
}

// Activity is called for every message a member sends. It ensures the
// reminder only when the message landed in the suggestions channel.
func (m *Manager) Activity(ctx context.Context, guildID, channelID string) error {
	if channelID == "" {
		return nil
	}

	return m.ensure(ctx, guildID, channelID)
}

func (m *Manager) ensure(ctx context.Context, guildID, only string) error {
	cfg, err := m.store.Load(ctx, guildID)
	if err != nil {
		return errors.WrapIf(err, "load guild record")
	}
	if !cfg.Enabled() {
		return nil
	}

	channelID := cfg.Channel()
	if only != "" && only != channelID {
		return nil
	}
	last, ok := m.acquire(channelID)
	if !ok {
		metrics.Reminders.WithLabelValues("busy").Inc()
		return nil
	}
	defer m.release(channelID)

	previous := cfg.Sticky()
	now := m.now()
	if previous != "" && now.Sub(last) < m.window {
		metrics.Reminders.WithLabelValues("suppressed").Inc()
		return nil
	}

	if previous != "" {
		m.discard(ctx, channelID, previous)
	}

	id, err := m.messenger.SendMessage(ctx, channelID, m.Reminder())
	if err != nil {
		return errors.WrapIf(err, "post reminder")
	}
	m.touch(channelID, now)

	err = m.store.Update(ctx, guildID, func(cfg *store.GuildConfig) error {
		if cfg.Channel() != channelID || cfg.Sticky() != previous {
			return errSuperseded
		}
		cfg.StickyMessageID = &id
		return nil
	})
	if err != nil {
		// Nobody knows about this reminder, don't leave it behind
		m.discard(ctx, channelID, id)
		if errors.Is(err, errSuperseded) {
			lit.Debug("Reminder for channel %s superseded", channelID)
			return nil
		}
		return errors.WrapIf(err, "record reminder")
	}

	metrics.Reminders.WithLabelValues("posted").Inc()
	lit.Debug("Reposted reminder in channel %s", channelID)

	return nil
}

// Place posts a fresh reminder in a channel and starts its debounce window.
// The caller records the returned id.
func (m *Manager) Place(ctx context.Context, channelID string) (string, error) {
	id, err := m.messenger.SendMessage(ctx, channelID, m.Reminder())
	if err != nil {
		return "", errors.WrapIf(err, "post reminder")
	}
	m.touch(channelID, m.now())
	metrics.Reminders.WithLabelValues("posted").Inc()

	return id, nil
}

// Remove deletes a reminder and forgets the channel state
func (m *Manager) Remove(ctx context.Context, channelID, messageID string) {
	if messageID != "" {
		m.discard(ctx, channelID, messageID)
	}

	m.mu.Lock()
	if st, ok := m.channels[channelID]; ok && !st.updating {
		delete(m.channels, channelID)
	}
	m.mu.Unlock()
}

// Prune forgets channels whose last repost is older than idle. It returns how many were dropped.
func (m *Manager) Prune(idle time.Duration) int {
	now := m.now()
	dropped := 0

	m.mu.Lock()
	for id, st := range m.channels {
		if !st.updating && now.Sub(st.lastRepost) > idle {
			delete(m.channels, id)
			dropped++
		}
	}
	m.mu.Unlock()

	return dropped
}

// discard deletes a reminder if it still exists. Failures are only logged.
func (m *Manager) discard(ctx context.Context, channelID, messageID string) {
	exists, err := m.messenger.FetchMessage(ctx, channelID, messageID)
	if err != nil {
		lit.Warn("Can't fetch reminder %s in channel %s, %s", messageID, channelID, err)
		exists = true
	}
	if !exists {
		return
	}

	err = m.messenger.DeleteMessage(ctx, channelID, messageID)
	if err != nil && !errors.Is(err, chat.ErrMessageGone) {
		lit.Warn("Can't delete reminder %s in channel %s, %s", messageID, channelID, err)
	}
}
