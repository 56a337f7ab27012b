package main

import (
	"context"

	"emperror.dev/errors"
	"github.com/TheTipo01/suggestionBot/internal/chat"
	"github.com/bwmarrin/discordgo"
)

// discordPlatform implements chat.Messenger on top of a discordgo session
type discordPlatform struct {
	s *discordgo.Session
}

func (d *discordPlatform) SendMessage(ctx context.Context, channelID string, content chat.Content) (string, error) {
	m, err := d.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{toEmbed(content)},
		Components: toComponents(content.Controls),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", translate(err)
	}

	return m.ID, nil
}

func (d *discordPlatform) EditMessage(ctx context.Context, channelID, messageID string, content chat.Content) error {
	embeds := []*discordgo.MessageEmbed{toEmbed(content)}
	components := toComponents(content.Controls)

	_, err := d.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         messageID,
		Channel:    channelID,
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(ctx))

	return translate(err)
}

func (d *discordPlatform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return translate(d.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)))
}

func (d *discordPlatform) FetchMessage(ctx context.Context, channelID, messageID string) (bool, error) {
	_, err := d.s.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		err = translate(err)
		if errors.Is(err, chat.ErrMessageGone) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (d *discordPlatform) PinMessage(ctx context.Context, channelID, messageID string) error {
	return translate(d.s.ChannelMessagePin(channelID, messageID, discordgo.WithContext(ctx)))
}

func (d *discordPlatform) ResolveChannel(ctx context.Context, channelID string) error {
	if _, err := d.s.State.Channel(channelID); err == nil {
		return nil
	}

	_, err := d.s.Channel(channelID, discordgo.WithContext(ctx))
	return translate(err)
}

// translate maps Discord's "unknown" errors onto the chat sentinels
func translate(err error) error {
	if err == nil {
		return nil
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage:
			return errors.WithMessage(chat.ErrMessageGone, restErr.Message.Message)
		case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeMissingAccess:
			return errors.WithMessage(chat.ErrChannelUnknown, restErr.Message.Message)
		}
	}

	return err
}

// interactionActor is the member behind an interaction
type interactionActor struct {
	s *discordgo.Session
	i *discordgo.InteractionCreate
}

func (a interactionActor) UserID() string {
	if a.i.Member != nil && a.i.Member.User != nil {
		return a.i.Member.User.ID
	}
	if a.i.User != nil {
		return a.i.User.ID
	}

	return ""
}

// HasModerationCapability checks Manage Channels. The permissions sent with the
// interaction are used for its own channel, other channels are computed.
func (a interactionActor) HasModerationCapability(ctx context.Context, channelID string) (bool, error) {
	if a.i.Member == nil {
		return false, nil
	}

	perms := a.i.Member.Permissions
	if channelID != "" && channelID != a.i.ChannelID {
		var err error
		perms, err = a.s.UserChannelPermissions(a.UserID(), channelID, discordgo.WithContext(ctx))
		if err != nil {
			return false, errors.WrapIf(translate(err), "compute channel permissions")
		}
	}

	return perms&(discordgo.PermissionManageChannels|discordgo.PermissionAdministrator) != 0, nil
}

// toComponents renders controls as a single row of buttons
func toComponents(controls []chat.Control) []discordgo.MessageComponent {
	if len(controls) == 0 {
		return []discordgo.MessageComponent{}
	}

	buttons := make([]discordgo.MessageComponent, 0, len(controls))
	for _, c := range controls {
		buttons = append(buttons, discordgo.Button{
			CustomID: c.ID,
			Label:    c.Label,
			Style:    buttonStyle(c.Style),
			Disabled: c.Disabled,
		})
	}

	return []discordgo.MessageComponent{discordgo.ActionsRow{Components: buttons}}
}

func buttonStyle(s chat.Style) discordgo.ButtonStyle {
	switch s {
	case chat.StyleSuccess:
		return discordgo.SuccessButton
	case chat.StyleDanger:
		return discordgo.DangerButton
	case chat.StyleSecondary:
		return discordgo.SecondaryButton
	default:
		return discordgo.PrimaryButton
	}
}
