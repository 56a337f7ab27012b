package main

import (
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// Returns s cut to at most n runes, marking the cut with an ellipsis
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	r := []rune(s)
	return string(r[:n-1]) + "…"
}

// Returns the user who triggered an interaction, in guilds or in DMs
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}

	return i.User
}

// Returns the name shown in the footer of a suggestion
func displayName(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.Nick != "" {
		return i.Member.Nick
	}

	u := interactionUser(i)
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}

	return u.String()
}
