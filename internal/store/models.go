package store

import "time"

// Choice is the side a voter picked on a suggestion
type Choice string

const (
	Yes Choice = "yes"
	No  Choice = "no"
)

// Status of a suggestion. Deleted suggestions are removed from the record instead.
type Status string

const (
	StatusOpen     Status = "open"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// Tally holds the vote counts of a suggestion
type Tally struct {
	Yes int `json:"yes"`
	No  int `json:"no"`
}

// Suggestion is a single proposal, keyed by the id of the message that renders it
type Suggestion struct {
	ID          string            `json:"id"`
	Number      int               `json:"number"`
	AuthorID    string            `json:"userId"`
	AuthorName  string            `json:"authorName,omitempty"`
	Text        string            `json:"text,omitempty"`
	ChannelID   string            `json:"channelId,omitempty"`
	CreatedAt   time.Time         `json:"createdAt,omitempty"`
	Votes       Tally             `json:"votes"`
	Voters      map[string]Choice `json:"voters"`
	Status      Status            `json:"status,omitempty"`
	ModeratorID string            `json:"moderatorId,omitempty"`
	ModeratedAt *time.Time        `json:"moderatedAt,omitempty"`
}

// IsOpen reports whether the suggestion still accepts votes.
// Records written before statuses existed have no status and are open.
func (s *Suggestion) IsOpen() bool {
	return s.Status == "" || s.Status == StatusOpen
}

// GuildConfig is everything we persist for a guild
type GuildConfig struct {
	ChannelID       *string                `json:"channelId"`
	StickyMessageID *string                `json:"stickyMessageId"`
	SuggestionCount int                    `json:"suggestionCount"`
	Suggestions     map[string]*Suggestion `json:"suggestions"`
}

// NewGuildConfig returns the record of a guild we have never seen
func NewGuildConfig() *GuildConfig {
	return &GuildConfig{Suggestions: make(map[string]*Suggestion)}
}

// Enabled reports whether a destination channel is configured
func (g *GuildConfig) Enabled() bool {
	return g.ChannelID != nil && *g.ChannelID != ""
}

// Channel returns the configured channel, or an empty string
func (g *GuildConfig) Channel() string {
	if g.ChannelID == nil {
		return ""
	}
	return *g.ChannelID
}

// Sticky returns the live reminder id, or an empty string
func (g *GuildConfig) Sticky() string {
	if g.StickyMessageID == nil {
		return ""
	}
	return *g.StickyMessageID
}

// SetDestination sets the channel and its reminder together
func (g *GuildConfig) SetDestination(channelID, stickyID string) {
	g.ChannelID = &channelID
	if stickyID == "" {
		g.StickyMessageID = nil
	} else {
		g.StickyMessageID = &stickyID
	}
}

// Disable clears the channel and the reminder together
func (g *GuildConfig) Disable() {
	g.ChannelID = nil
	g.StickyMessageID = nil
}

// normalize fills the zero values left behind by older or partial records
func (g *GuildConfig) normalize() {
	if g.Suggestions == nil {
		g.Suggestions = make(map[string]*Suggestion)
	}
	if g.ChannelID != nil && *g.ChannelID == "" {
		g.ChannelID = nil
	}
	if g.ChannelID == nil || (g.StickyMessageID != nil && *g.StickyMessageID == "") {
		g.StickyMessageID = nil
	}

	for id, s := range g.Suggestions {
		if s == nil {
			delete(g.Suggestions, id)
			continue
		}
		if s.ID == "" {
			s.ID = id
		}
		if s.Voters == nil {
			s.Voters = make(map[string]Choice)
		}
		if s.Status == "" {
			s.Status = StatusOpen
		}
	}
}
