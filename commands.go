package main

import (
	"context"
	"fmt"
	"time"

	"emperror.dev/errors"
	"github.com/TheTipo01/suggestionBot/internal/store"
	"github.com/TheTipo01/suggestionBot/internal/suggestion"
	"github.com/bwmarrin/discordgo"
	"github.com/bwmarrin/lit"
)

// handlerTimeout bounds the platform and store calls of a single interaction
const handlerTimeout = 15 * time.Second

var (
	manageChannels int64 = discordgo.PermissionManageChannels

	// Commands
	commands = []*discordgo.ApplicationCommand{
		{
			Name:                     "config",
			Description:              "Configure suggestion settings",
			DefaultMemberPermissions: &manageChannels,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "channel",
					Description: "Set the channel for suggestions",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "channel",
							Description:  "The channel to send suggestions to",
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
							Required:     true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "disable",
					Description: "Disable the suggestions channel",
				},
			},
		},
		{
			Name:        "suggest",
			Description: "Submit a suggestion",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "suggestion",
					Description: "Your suggestion",
					MaxLength:   4000,
					Required:    true,
				},
			},
		},
	}

	// Handler
	commandHandlers = map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		// Sets or clears the destination channel
		"config": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			if !deferEphemeral(s, i.Interaction) {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
			defer cancel()

			sub := i.ApplicationCommandData().Options[0]
			actor := interactionActor{s: s, i: i}

			switch sub.Name {
			case "channel":
				channelID := sub.Options[0].ChannelValue(nil).ID

				if err := suggestions.ConfigureChannel(ctx, i.GuildID, channelID, actor); err != nil {
					report(s, i, "config channel", err)
					return
				}
				editResponse(s, i.Interaction, fmt.Sprintf("Suggestions will be sent to <#%s>.", channelID))

			case "disable":
				if err := suggestions.Disable(ctx, i.GuildID, actor); err != nil {
					report(s, i, "config disable", err)
					return
				}
				editResponse(s, i.Interaction, "Suggestions channel has been disabled.")
			}
		},

		// Creates a new suggestion
		"suggest": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			if !deferEphemeral(s, i.Interaction) {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
			defer cancel()

			user := interactionUser(i)
			sg, err := suggestions.Submit(ctx, suggestion.SubmitRequest{
				GuildID:    i.GuildID,
				AuthorID:   user.ID,
				AuthorName: displayName(i),
				Text:       i.ApplicationCommandData().Options[0].StringValue(),
			})
			if err != nil {
				report(s, i, "suggest", err)
				return
			}

			editResponse(s, i.Interaction, fmt.Sprintf("Your suggestion #%d has been submitted!", sg.Number))
		},
	}

	// Button handlers, keyed by custom id
	componentHandlers = map[string]func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error{
		suggestion.ButtonUpvote: func(ctx context.Context, _ *discordgo.Session, i *discordgo.InteractionCreate) error {
			_, err := suggestions.CastVote(ctx, pressOf(i), interactionUser(i).ID, store.Yes)
			return err
		},
		suggestion.ButtonDownvote: func(ctx context.Context, _ *discordgo.Session, i *discordgo.InteractionCreate) error {
			_, err := suggestions.CastVote(ctx, pressOf(i), interactionUser(i).ID, store.No)
			return err
		},
		suggestion.ButtonApprove: func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
			_, err := suggestions.Approve(ctx, pressOf(i), interactionActor{s: s, i: i})
			return err
		},
		suggestion.ButtonDeny: func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
			_, err := suggestions.Deny(ctx, pressOf(i), interactionActor{s: s, i: i})
			return err
		},
		suggestion.ButtonDelete: func(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) error {
			return suggestions.Remove(ctx, pressOf(i), interactionActor{s: s, i: i})
		},
	}
)

// Runs the handler of a pressed button. The press is acknowledged first, errors come back as ephemeral followups.
func handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.MessageComponentData()
	h, ok := componentHandlers[data.CustomID]
	if !ok || i.Message == nil {
		return
	}

	if !deferUpdate(s, i.Interaction) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	err := h(ctx, s, i)
	if err == nil {
		return
	}

	// Vanished suggestions are stale buttons, nothing to tell for a delete
	if data.CustomID == suggestion.ButtonDelete && errors.Is(err, suggestion.ErrNotFound) {
		return
	}

	lit.Debug("Button %s on %s failed: %s", data.CustomID, i.Message.ID, err)
	sendEphemeralFollowup(s, i.Interaction, userMessage(err))
}

// Describes the suggestion message a button belongs to
func pressOf(i *discordgo.InteractionCreate) suggestion.Press {
	p := suggestion.Press{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		MessageID: i.Message.ID,
	}
	if len(i.Message.Embeds) > 0 {
		p.Text = i.Message.Embeds[0].Description
	}

	return p
}

// Logs unexpected failures and tells the user what went wrong
func report(s *discordgo.Session, i *discordgo.InteractionCreate, action string, err error) {
	if !isUserError(err) {
		lit.Error("Error running %s in guild %s, %s", action, i.GuildID, err)
	}

	editResponse(s, i.Interaction, userMessage(err))
}

// Errors the user can fix or that describe stale UI
func isUserError(err error) bool {
	for _, target := range []error{suggestion.ErrConfiguration, suggestion.ErrUnauthorized, suggestion.ErrNotFound, suggestion.ErrState, suggestion.ErrInvalidInput} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
