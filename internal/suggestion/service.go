// Package suggestion implements the suggestion lifecycle: submission, voting and moderation.
//
// All state lives in the guild record of a store.Store. Every read-modify-write
// goes through Store.Update, so two operations on the same guild never
// interleave and a failed save leaves nothing behind.
package suggestion

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/TheTipo01/suggestionBot/internal/chat"
	"github.com/TheTipo01/suggestionBot/internal/sticky"
	"github.com/TheTipo01/suggestionBot/internal/store"
	"github.com/bwmarrin/lit"
)

// Service is the suggestion registry plus the moderation workflow
type Service struct {
	store     store.Store
	messenger chat.Messenger
	sticky    *sticky.Manager

	now         func() time.Time
	pinApproved bool
}

// Option configures a Service
type Option func(*Service)

// WithPinApproved pins suggestions when they get approved
func WithPinApproved(pin bool) Option {
	return func(s *Service) {
		s.pinApproved = pin
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService wires a Service
func NewService(st store.Store, messenger chat.Messenger, reminders *sticky.Manager, opts ...Option) *Service {
	s := &Service{
		store:     st,
		messenger: messenger,
		sticky:    reminders,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	return s
}

// transact runs fn inside a store transaction.
// Errors returned by fn come back untouched, everything else is a persistence failure.
func (s *Service) transact(ctx context.Context, guildID string, fn func(cfg *store.GuildConfig) error) error {
	var failed error

	err := s.store.Update(ctx, guildID, func(cfg *store.GuildConfig) error {
		failed = fn(cfg)
		return failed
	})
	if err == nil {
		return nil
	}
	if failed != nil {
		return failed
	}

	return persistence(err)
}

func (s *Service) load(ctx context.Context, guildID string) (*store.GuildConfig, error) {
	cfg, err := s.store.Load(ctx, guildID)
	if err != nil {
		return nil, persistence(err)
	}

	return cfg, nil
}

// authorize fails with ErrUnauthorized unless the actor may moderate in channelID
func authorize(ctx context.Context, actor chat.Actor, channelID string) error {
	ok, err := actor.HasModerationCapability(ctx, channelID)
	if err != nil {
		return errors.WrapIf(err, "check moderation capability")
	}
	if !ok {
		return errors.WithMessagef(ErrUnauthorized, "user %s", actor.UserID())
	}

	return nil
}

// rerender edits the message of a suggestion to match its state.
// The state is already committed, so failures are logged and not returned.
func (s *Service) rerender(ctx context.Context, sg *store.Suggestion) {
	err := s.messenger.EditMessage(ctx, sg.ChannelID, sg.ID, render(sg))
	if err != nil {
		lit.Warn("Can't update suggestion #%d (%s), %s", sg.Number, sg.ID, err)
	}
}

// lookup finds a suggestion in a record
func lookup(cfg *store.GuildConfig, suggestionID string) (*store.Suggestion, error) {
	sg, ok := cfg.Suggestions[suggestionID]
	if !ok {
		return nil, errors.WithMessagef(ErrNotFound, "suggestion %s", suggestionID)
	}

	return sg, nil
}
