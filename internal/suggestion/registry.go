package suggestion

import (
	"context"
	"strings"

	"emperror.dev/errors"
	"github.com/TheTipo01/suggestionBot/internal/chat"
	"github.com/TheTipo01/suggestionBot/internal/metrics"
	"github.com/TheTipo01/suggestionBot/internal/store"
	"github.com/bwmarrin/lit"
)

// SubmitRequest is what a member sends with /suggest
type SubmitRequest struct {
	GuildID    string
	AuthorID   string
	AuthorName string
	Text       string
}

// Submit posts a new suggestion in the configured channel and records it.
// The sequence number is taken before the message is posted; if recording
// the suggestion fails the message is removed again and the number stays
// burnt, so numbers are never reused.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*store.Suggestion, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, errors.WithMessage(ErrInvalidInput, "empty suggestion")
	}
	text = truncate(text, maxTextLength)

	cfg, err := s.load(ctx, req.GuildID)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled() {
		return nil, errors.WithMessage(ErrConfiguration, "no suggestions channel")
	}

	if err = s.messenger.ResolveChannel(ctx, cfg.Channel()); err != nil {
		if errors.Is(err, chat.ErrChannelUnknown) {
			return nil, errors.WithMessagef(ErrConfiguration, "channel %s", cfg.Channel())
		}
		return nil, errors.WrapIf(err, "resolve suggestions channel")
	}

	var (
		channelID string
		number    int
	)
	err = s.transact(ctx, req.GuildID, func(cfg *store.GuildConfig) error {
		if !cfg.Enabled() {
			return errors.WithMessage(ErrConfiguration, "no suggestions channel")
		}
		cfg.SuggestionCount++
		number = cfg.SuggestionCount
		channelID = cfg.Channel()
		return nil
	})
	if err != nil {
		return nil, err
	}

	sg := &store.Suggestion{
		Number:     number,
		AuthorID:   req.AuthorID,
		AuthorName: req.AuthorName,
		Text:       text,
		ChannelID:  channelID,
		CreatedAt:  s.now().UTC(),
		Voters:     make(map[string]store.Choice),
		Status:     store.StatusOpen,
	}

	sg.ID, err = s.messenger.SendMessage(ctx, channelID, render(sg))
	if err != nil {
		if errors.Is(err, chat.ErrChannelUnknown) {
			return nil, errors.WithMessagef(ErrConfiguration, "channel %s", channelID)
		}
		return nil, errors.WrapIf(err, "post suggestion")
	}

	err = s.transact(ctx, req.GuildID, func(cfg *store.GuildConfig) error {
		cfg.Suggestions[sg.ID] = sg
		return nil
	})
	if err != nil {
		if delErr := s.messenger.DeleteMessage(ctx, channelID, sg.ID); delErr != nil && !errors.Is(delErr, chat.ErrMessageGone) {
			lit.Error("Can't remove unrecorded suggestion %s, %s", sg.ID, delErr)
		}
		return nil, err
	}

	metrics.Submissions.Inc()
	lit.Debug("Suggestion #%d (%s) submitted in guild %s", sg.Number, sg.ID, req.GuildID)

	if err = s.sticky.Ensure(ctx, req.GuildID); err != nil {
		lit.Warn("Can't update reminder for guild %s, %s", req.GuildID, err)
	}

	return sg, nil
}

// Press identifies the suggestion message a button was pressed on
type Press struct {
	GuildID   string
	ChannelID string
	MessageID string
	// Text is the description shown on the message
	Text string
}

// adopt fills in what records written by the first version of the bot lack, from the pressed message
func adopt(sg *store.Suggestion, p Press) {
	if sg.ChannelID == "" {
		sg.ChannelID = p.ChannelID
	}
	if sg.Text == "" {
		sg.Text = truncate(p.Text, maxTextLength)
	}
}

// CastVote toggles the vote of a user.
// Voting the same choice again retracts it; voting the other choice moves the vote.
func (s *Service) CastVote(ctx context.Context, p Press, userID string, choice store.Choice) (store.Tally, error) {
	if choice != store.Yes && choice != store.No {
		return store.Tally{}, errors.WithMessagef(ErrInvalidInput, "choice %q", choice)
	}

	var (
		updated *store.Suggestion
		effect  string
	)
	err := s.transact(ctx, p.GuildID, func(cfg *store.GuildConfig) error {
		sg, err := lookup(cfg, p.MessageID)
		if err != nil {
			return err
		}
		if !sg.IsOpen() {
			return errors.WithMessagef(ErrState, "suggestion #%d is %s", sg.Number, sg.Status)
		}

		adopt(sg, p)
		effect = toggle(sg, userID, choice)
		updated = sg
		return nil
	})
	if err != nil {
		return store.Tally{}, err
	}

	metrics.Votes.WithLabelValues(string(choice), effect).Inc()
	s.rerender(ctx, updated)

	return updated.Votes, nil
}

// toggle applies a vote and reports its effect: cast, switch or retract
func toggle(sg *store.Suggestion, userID string, choice store.Choice) string {
	if sg.Voters == nil {
		sg.Voters = make(map[string]store.Choice)
	}

	previous, voted := sg.Voters[userID]
	if voted && previous == choice {
		adjust(&sg.Votes, choice, -1)
		delete(sg.Voters, userID)
		return "retract"
	}

	effect := "cast"
	if voted {
		adjust(&sg.Votes, previous, -1)
		effect = "switch"
	}
	adjust(&sg.Votes, choice, 1)
	sg.Voters[userID] = choice

	return effect
}

func adjust(t *store.Tally, choice store.Choice, delta int) {
	switch choice {
	case store.Yes:
		t.Yes += delta
	case store.No:
		t.No += delta
	}
}

// Get returns a suggestion
func (s *Service) Get(ctx context.Context, guildID, suggestionID string) (*store.Suggestion, error) {
	cfg, err := s.load(ctx, guildID)
	if err != nil {
		return nil, err
	}

	return lookup(cfg, suggestionID)
}

// Delete removes a suggestion from the record. Deleting an unknown id is not an error.
func (s *Service) Delete(ctx context.Context, guildID, suggestionID string) error {
	_, err := s.remove(ctx, guildID, suggestionID)
	return err
}

// remove deletes the record and returns it, or nil if there was none
func (s *Service) remove(ctx context.Context, guildID, suggestionID string) (*store.Suggestion, error) {
	var removed *store.Suggestion

	err := s.transact(ctx, guildID, func(cfg *store.GuildConfig) error {
		removed = cfg.Suggestions[suggestionID]
		delete(cfg.Suggestions, suggestionID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return removed, nil
}
