package main

import (
	"github.com/TheTipo01/suggestionBot/internal/chat"
	"github.com/bwmarrin/discordgo"
)

// Embed wraps a discordgo.MessageEmbed to build it fluently
type Embed struct {
	*discordgo.MessageEmbed
}

// Constants for message embed character limits
const (
	EmbedLimitTitle       = 256
	EmbedLimitDescription = 4096
	EmbedLimitFooter      = 2048
)

// NewEmbed returns a new embed object
func NewEmbed() *Embed {
	return &Embed{&discordgo.MessageEmbed{}}
}

// SetTitle sets the title of the embed
func (e *Embed) SetTitle(name string) *Embed {
	e.Title = truncate(name, EmbedLimitTitle)
	return e
}

// SetDescription sets the description of the embed
func (e *Embed) SetDescription(description string) *Embed {
	e.Description = truncate(description, EmbedLimitDescription)
	return e
}

// SetFooter sets the footer of the embed
func (e *Embed) SetFooter(text string) *Embed {
	if text == "" {
		e.Footer = nil
		return e
	}

	e.Footer = &discordgo.MessageEmbedFooter{Text: truncate(text, EmbedLimitFooter)}
	return e
}

// SetColor sets the color of the embed
func (e *Embed) SetColor(clr int) *Embed {
	e.Color = clr
	return e
}

// toEmbed renders chat content as an embed
func toEmbed(c chat.Content) *discordgo.MessageEmbed {
	return NewEmbed().SetTitle(c.Title).SetDescription(c.Description).SetFooter(c.Footer).SetColor(c.Color).MessageEmbed
}
