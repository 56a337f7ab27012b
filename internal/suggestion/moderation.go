package suggestion

import (
	"context"

	"emperror.dev/errors"
	"github.com/TheTipo01/suggestionBot/internal/chat"
	"github.com/TheTipo01/suggestionBot/internal/metrics"
	"github.com/TheTipo01/suggestionBot/internal/store"
	"github.com/bwmarrin/lit"
)

// Approve closes a suggestion as approved. Votes are rejected afterwards.
func (s *Service) Approve(ctx context.Context, p Press, actor chat.Actor) (*store.Suggestion, error) {
	sg, err := s.close(ctx, p, actor, store.StatusApproved)
	if err != nil {
		metrics.Moderation.WithLabelValues("approve", outcome(err)).Inc()
		return nil, err
	}
	metrics.Moderation.WithLabelValues("approve", "ok").Inc()

	if s.pinApproved {
		if err = s.messenger.PinMessage(ctx, sg.ChannelID, sg.ID); err != nil {
			lit.Warn("Can't pin suggestion #%d (%s), %s", sg.Number, sg.ID, err)
		}
	}

	return sg, nil
}

// Deny closes a suggestion as denied. Votes are rejected afterwards.
func (s *Service) Deny(ctx context.Context, p Press, actor chat.Actor) (*store.Suggestion, error) {
	sg, err := s.close(ctx, p, actor, store.StatusDenied)
	metrics.Moderation.WithLabelValues("deny", outcome(err)).Inc()

	return sg, err
}

// close moves an open suggestion to a terminal status
func (s *Service) close(ctx context.Context, p Press, actor chat.Actor, status store.Status) (*store.Suggestion, error) {
	current, err := s.Get(ctx, p.GuildID, p.MessageID)
	if err != nil {
		return nil, err
	}
	adopt(current, p)

	if err = authorize(ctx, actor, current.ChannelID); err != nil {
		return nil, err
	}

	var closed *store.Suggestion
	err = s.transact(ctx, p.GuildID, func(cfg *store.GuildConfig) error {
		sg, err := lookup(cfg, p.MessageID)
		if err != nil {
			return err
		}
		if !sg.IsOpen() {
			return errors.WithMessagef(ErrState, "suggestion #%d is already %s", sg.Number, sg.Status)
		}

		adopt(sg, p)
		now := s.now().UTC()
		sg.Status = status
		sg.ModeratorID = actor.UserID()
		sg.ModeratedAt = &now
		closed = sg
		return nil
	})
	if err != nil {
		return nil, err
	}

	lit.Debug("Suggestion #%d (%s) %s by %s", closed.Number, closed.ID, status, actor.UserID())
	s.rerender(ctx, closed)

	return closed, nil
}

// Remove deletes a suggestion and its message on behalf of a moderator.
// Removing a suggestion that is already gone succeeds, so double clicks are harmless.
func (s *Service) Remove(ctx context.Context, p Press, actor chat.Actor) error {
	cfg, err := s.load(ctx, p.GuildID)
	if err != nil {
		return err
	}

	channelID := p.ChannelID
	if sg, ok := cfg.Suggestions[p.MessageID]; ok && sg.ChannelID != "" {
		channelID = sg.ChannelID
	}

	if err = authorize(ctx, actor, channelID); err != nil {
		metrics.Moderation.WithLabelValues("delete", outcome(err)).Inc()
		return err
	}

	removed, err := s.remove(ctx, p.GuildID, p.MessageID)
	if err != nil {
		metrics.Moderation.WithLabelValues("delete", outcome(err)).Inc()
		return err
	}
	metrics.Moderation.WithLabelValues("delete", "ok").Inc()

	if removed == nil {
		return nil
	}
	adopt(removed, p)

	err = s.messenger.DeleteMessage(ctx, removed.ChannelID, removed.ID)
	if err != nil && !errors.Is(err, chat.ErrMessageGone) {
		lit.Warn("Can't delete message of suggestion #%d (%s), %s", removed.Number, removed.ID, err)
	}
	lit.Debug("Suggestion #%d (%s) deleted by %s", removed.Number, removed.ID, actor.UserID())

	return nil
}

// outcome labels an error for metrics
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrState):
		return "closed"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	default:
		return "error"
	}
}
