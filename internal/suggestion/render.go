package suggestion

import (
	"fmt"
	"unicode/utf8"

	"github.com/TheTipo01/suggestionBot/internal/chat"
	"github.com/TheTipo01/suggestionBot/internal/store"
)

// Custom ids of the buttons attached to a suggestion
const (
	ButtonUpvote   = "upvote"
	ButtonDownvote = "downvote"
	ButtonApprove  = "approve"
	ButtonDeny     = "deny"
	ButtonDelete   = "delete"
)

// maxTextLength is the longest description an embed can carry
const maxTextLength = 4096

// render describes how a suggestion looks in its channel. Closed suggestions get their vote and verdict buttons disabled.
func render(s *store.Suggestion) chat.Content {
	author := s.AuthorName
	if author == "" {
		author = s.AuthorID
	}

	c := chat.Content{
		Description: s.Text,
		Footer:      "Suggested by " + author,
	}

	switch s.Status {
	case store.StatusApproved:
		c.Title = fmt.Sprintf("✅ Suggestion #%d Approved", s.Number)
		c.Color = chat.ColorGreen
	case store.StatusDenied:
		c.Title = fmt.Sprintf("❌ Suggestion #%d Denied", s.Number)
		c.Color = chat.ColorRed
	default:
		c.Title = fmt.Sprintf("Suggestion #%d", s.Number)
		c.Color = chat.ColorBlue
	}

	closed := !s.IsOpen()
	c.Controls = []chat.Control{
		{ID: ButtonUpvote, Label: fmt.Sprintf("👍 %d", s.Votes.Yes), Style: chat.StylePrimary, Disabled: closed},
		{ID: ButtonDownvote, Label: fmt.Sprintf("👎 %d", s.Votes.No), Style: chat.StylePrimary, Disabled: closed},
		{ID: ButtonApprove, Label: "✅ Approve", Style: chat.StyleSuccess, Disabled: closed},
		{ID: ButtonDeny, Label: "❌ Deny", Style: chat.StyleDanger, Disabled: closed},
		{ID: ButtonDelete, Label: "🗑️", Style: chat.StyleSecondary},
	}

	return c
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	r := []rune(s)
	return string(r[:n-1]) + "…"
}
