package main

import (
	"emperror.dev/errors"
	"github.com/TheTipo01/suggestionBot/internal/suggestion"
	"github.com/bwmarrin/discordgo"
	"github.com/bwmarrin/lit"
)

// Acknowledges a command with an ephemeral "thinking" state, to be completed with editResponse
func deferEphemeral(s *discordgo.Session, i *discordgo.Interaction) bool {
	err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		lit.Error("InteractionRespond failed: %s", err)
		return false
	}

	return true
}

// Acknowledges a button press without changing the message
func deferUpdate(s *discordgo.Session, i *discordgo.Interaction) bool {
	err := s.InteractionRespond(i, &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate})
	if err != nil {
		lit.Error("InteractionRespond failed: %s", err)
		return false
	}

	return true
}

// Replaces the deferred response of a command
func editResponse(s *discordgo.Session, i *discordgo.Interaction, content string) {
	_, err := s.InteractionResponseEdit(i, &discordgo.WebhookEdit{Content: &content})
	if err != nil {
		lit.Error("InteractionResponseEdit failed: %s", err)
	}
}

// Sends an ephemeral followup, used to explain why a button press did nothing
func sendEphemeralFollowup(s *discordgo.Session, i *discordgo.Interaction, content string) {
	_, err := s.FollowupMessageCreate(i, false, &discordgo.WebhookParams{Content: content, Flags: discordgo.MessageFlagsEphemeral})
	if err != nil {
		lit.Error("FollowupMessageCreate failed: %s", err)
	}
}

// Converts an operation error into what the user gets to read
func userMessage(err error) string {
	switch {
	case errors.Is(err, suggestion.ErrConfiguration):
		return "Suggestions aren't set up here. Ask a moderator to configure a suggestions channel with `/config channel`."
	case errors.Is(err, suggestion.ErrUnauthorized):
		return "You do not have permission to perform this action."
	case errors.Is(err, suggestion.ErrNotFound):
		return "This suggestion no longer exists."
	case errors.Is(err, suggestion.ErrState):
		return "This suggestion has already been closed."
	case errors.Is(err, suggestion.ErrInvalidInput):
		return "That request isn't valid, check it and try again."
	case errors.Is(err, suggestion.ErrPersistence):
		return "Your request couldn't be saved, please try again."
	default:
		return "Something went wrong, please try again later."
	}
}

// Checks whether a registered command matches the local definition
func isCommandEqual(c *discordgo.ApplicationCommand, v *discordgo.ApplicationCommand) bool {
	if c.Name != v.Name || c.Description != v.Description || len(c.Options) != len(v.Options) {
		return false
	}

	for i := range c.Options {
		if !isOptionEqual(c.Options[i], v.Options[i]) {
			return false
		}
	}

	return true
}

func isOptionEqual(o *discordgo.ApplicationCommandOption, v *discordgo.ApplicationCommandOption) bool {
	if o.Type != v.Type || o.Name != v.Name || o.Description != v.Description || o.Required != v.Required ||
		o.MaxLength != v.MaxLength || len(o.Options) != len(v.Options) || len(o.ChannelTypes) != len(v.ChannelTypes) {
		return false
	}

	for i := range o.ChannelTypes {
		if o.ChannelTypes[i] != v.ChannelTypes[i] {
			return false
		}
	}

	for i := range o.Options {
		if !isOptionEqual(o.Options[i], v.Options[i]) {
			return false
		}
	}

	return true
}
