package suggestion

import (
	"context"

	"emperror.dev/errors"
	"github.com/TheTipo01/suggestionBot/internal/chat"
	"github.com/TheTipo01/suggestionBot/internal/store"
	"github.com/bwmarrin/lit"
)

// ConfigureChannel makes channelID the destination of a guild's suggestions and posts its reminder.
// A reminder left in the previous channel is removed.
func (s *Service) ConfigureChannel(ctx context.Context, guildID, channelID string, actor chat.Actor) error {
	if err := authorize(ctx, actor, channelID); err != nil {
		return err
	}

	if err := s.messenger.ResolveChannel(ctx, channelID); err != nil {
		if errors.Is(err, chat.ErrChannelUnknown) {
			return errors.WithMessagef(ErrConfiguration, "channel %s", channelID)
		}
		return errors.WrapIf(err, "resolve channel")
	}

	stickyID, err := s.sticky.Place(ctx, channelID)
	if err != nil {
		return err
	}

	var previousChannel, previousSticky string
	err = s.transact(ctx, guildID, func(cfg *store.GuildConfig) error {
		previousChannel, previousSticky = cfg.Channel(), cfg.Sticky()
		cfg.SetDestination(channelID, stickyID)
		return nil
	})
	if err != nil {
		s.sticky.Remove(ctx, channelID, stickyID)
		return err
	}

	if previousSticky != "" && previousSticky != stickyID {
		s.sticky.Remove(ctx, previousChannel, previousSticky)
	}
	lit.Info("Suggestions of guild %s now go to channel %s", guildID, channelID)

	return nil
}

// Disable turns suggestions off for a guild, clearing the channel and its reminder together
func (s *Service) Disable(ctx context.Context, guildID string, actor chat.Actor) error {
	cfg, err := s.load(ctx, guildID)
	if err != nil {
		return err
	}

	if err = authorize(ctx, actor, cfg.Channel()); err != nil {
		return err
	}

	var previousChannel, previousSticky string
	err = s.transact(ctx, guildID, func(cfg *store.GuildConfig) error {
		previousChannel, previousSticky = cfg.Channel(), cfg.Sticky()
		cfg.Disable()
		return nil
	})
	if err != nil {
		return err
	}

	if previousChannel != "" {
		s.sticky.Remove(ctx, previousChannel, previousSticky)
	}
	lit.Info("Suggestions disabled for guild %s", guildID)

	return nil
}
