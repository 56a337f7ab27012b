package suggestion

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/TheTipo01/suggestionBot/internal/chat"
	"github.com/TheTipo01/suggestionBot/internal/chat/chattest"
	"github.com/TheTipo01/suggestionBot/internal/sticky"
	"github.com/TheTipo01/suggestionBot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	guild   = "guild-1"
	channel = "channel-1"
)

var errBoom = errors.New("boom")

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	svc      *Service
	platform *chattest.Platform
	store    *store.Memory
	clock    *clock
	mod      chattest.Actor
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		platform: chattest.New(channel, "channel-2"),
		store:    store.NewMemory(),
		clock:    &clock{now: time.Date(2024, 10, 28, 12, 0, 0, 0, time.UTC)},
		mod:      chattest.Moderator("mod"),
	}
	reminders := sticky.New(f.platform, f.store, sticky.WithClock(f.clock.Now))
	f.svc = NewService(f.store, f.platform, reminders, append([]Option{WithClock(f.clock.Now)}, opts...)...)

	return f
}

func (f *fixture) configure(t *testing.T) {
	t.Helper()
	require.NoError(t, f.svc.ConfigureChannel(context.Background(), guild, channel, f.mod))
}

// press describes a button press on a suggestion posted in the configured channel
func (f *fixture) press(id string) Press {
	return Press{GuildID: guild, ChannelID: channel, MessageID: id}
}

func (f *fixture) submit(t *testing.T, text string) *store.Suggestion {
	t.Helper()

	sg, err := f.svc.Submit(context.Background(), SubmitRequest{GuildID: guild, AuthorID: "author", AuthorName: "Author", Text: text})
	require.NoError(t, err)

	return sg
}

func (f *fixture) record(t *testing.T) *store.GuildConfig {
	t.Helper()

	cfg, err := f.store.Load(context.Background(), guild)
	require.NoError(t, err)

	return cfg
}

func assertConsistent(t *testing.T, sg *store.Suggestion) {
	t.Helper()

	var yes, no int
	for _, c := range sg.Voters {
		switch c {
		case store.Yes:
			yes++
		case store.No:
			no++
		}
	}
	assert.Equal(t, yes, sg.Votes.Yes, "yes tally")
	assert.Equal(t, no, sg.Votes.No, "no tally")
	assert.Equal(t, len(sg.Voters), sg.Votes.Yes+sg.Votes.No)
}

func TestSubmitWithoutChannel(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), SubmitRequest{GuildID: guild, AuthorID: "author", Text: "add dark mode"})
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Zero(t, f.record(t).SuggestionCount)
}

func TestSubmitUnresolvableChannel(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Update(context.Background(), guild, func(cfg *store.GuildConfig) error {
		cfg.SetDestination("vanished", "")
		return nil
	}))

	_, err := f.svc.Submit(context.Background(), SubmitRequest{GuildID: guild, AuthorID: "author", Text: "add dark mode"})
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.Zero(t, f.record(t).SuggestionCount)
}

func TestSubmitRejectsEmptyText(t *testing.T) {
	f := newFixture(t)
	f.configure(t)

	_, err := f.svc.Submit(context.Background(), SubmitRequest{GuildID: guild, AuthorID: "author", Text: "   "})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestSubmitNumbersSequentially(t *testing.T) {
	f := newFixture(t)
	f.configure(t)

	for i := 1; i <= 3; i++ {
		sg := f.submit(t, fmt.Sprintf("idea %d", i))
		assert.Equal(t, i, sg.Number)
		assert.Equal(t, store.Tally{}, sg.Votes)
		assert.Equal(t, store.StatusOpen, sg.Status)

		msg, ok := f.platform.Message(sg.ID)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("Suggestion #%d", i), msg.Content.Title)
		assert.Equal(t, "Suggested by Author", msg.Content.Footer)
	}

	cfg := f.record(t)
	assert.Equal(t, 3, cfg.SuggestionCount)
	assert.Len(t, cfg.Suggestions, 3)
}

func TestNumbersNeverReused(t *testing.T) {
	f := newFixture(t)
	f.configure(t)

	f.submit(t, "first")
	second := f.submit(t, "second")
	require.NoError(t, f.svc.Remove(context.Background(), f.press(second.ID), f.mod))

	third := f.submit(t, "third")
	assert.Equal(t, 3, third.Number)
}

func TestSubmitTruncatesLongText(t *testing.T) {
	f := newFixture(t)
	f.configure(t)

	long := make([]rune, maxTextLength+10)
	for i := range long {
		long[i] = 'a'
	}

	sg := f.submit(t, string(long))
	assert.Equal(t, maxTextLength, len([]rune(sg.Text)))
}

func TestSubmitRollsBackMessageWhenSaveFails(t *testing.T) {
	f := newFixture(t)
	f.configure(t)

	saves := 0
	f.store.FailSave = func(string) error {
		saves++
		if saves == 2 {
			return errBoom
		}
		return nil
	}

	_, err := f.svc.Submit(context.Background(), SubmitRequest{GuildID: guild, AuthorID: "author", Text: "lost"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.Equal(t, 1, f.platform.Count(channel), "only the reminder is left")
	assert.Empty(t, f.record(t).Suggestions)

	f.store.FailSave = nil
	sg := f.submit(t, "kept")
	assert.Equal(t, 2, sg.Number, "the burnt number is not handed out again")
}

func TestVoteRetract(t *testing.T) {
	for _, choice := range []store.Choice{store.Yes, store.No} {
		t.Run(string(choice), func(t *testing.T) {
			f := newFixture(t)
			f.configure(t)
			sg := f.submit(t, "idea")

			tally, err := f.svc.CastVote(context.Background(), f.press(sg.ID), "a", choice)
			require.NoError(t, err)
			assert.Equal(t, 1, tally.Yes+tally.No)

			tally, err = f.svc.CastVote(context.Background(), f.press(sg.ID), "a", choice)
			require.NoError(t, err)
			assert.Equal(t, store.Tally{}, tally)

			got, err := f.svc.Get(context.Background(), guild, sg.ID)
			require.NoError(t, err)
			assert.Empty(t, got.Voters)
		})
	}
}

func TestVoteSwitch(t *testing.T) {
	f := newFixture(t)
	f.configure(t)
	sg := f.submit(t, "idea")
	ctx := context.Background()

	_, err := f.svc.CastVote(ctx, f.press(sg.ID), "A", store.Yes)
	require.NoError(t, err)
	_, err = f.svc.CastVote(ctx, f.press(sg.ID), "B", store.Yes)
	require.NoError(t, err)

	tally, err := f.svc.CastVote(ctx, f.press(sg.ID), "A", store.No)
	require.NoError(t, err)
	assert.Equal(t, store.Tally{Yes: 1, No: 1}, tally)

	got, err := f.svc.Get(ctx, guild, sg.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]store.Choice{"A": store.No, "B": store.Yes}, got.Voters)

	msg, ok := f.platform.Message(sg.ID)
	require.True(t, ok)
	assert.Equal(t, "👍 1", msg.Content.Controls[0].Label)
	assert.Equal(t, "👎 1", msg.Content.Controls[1].Label)
}

func TestVoteInvariantHoldsForAnySequence(t *testing.T) {
	f := newFixture(t)
	f.configure(t)
	sg := f.submit(t, "idea")
	ctx := context.Background()

	users := []string{"a", "b", "c", "d"}
	choices := []store.Choice{store.Yes, store.No}
	rnd := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		_, err := f.svc.CastVote(ctx, f.press(sg.ID), users[rnd.Intn(len(users))], choices[rnd.Intn(len(choices))])
		require.NoError(t, err)

		got, err := f.svc.Get(ctx, guild, sg.ID)
		require.NoError(t, err)
		assertConsistent(t, got)
	}
}

func TestToggleSwitchMovesOneVote(t *testing.T) {
	sg := &store.Suggestion{Voters: map[string]store.Choice{}}

	assert.Equal(t, "cast", toggle(sg, "u", store.Yes))
	assert.Equal(t, store.Tally{Yes: 1}, sg.Votes)

	assert.Equal(t, "switch", toggle(sg, "u", store.No))
	assert.Equal(t, store.Tally{No: 1}, sg.Votes)

	assert.Equal(t, "retract", toggle(sg, "u", store.No))
	assert.Equal(t, store.Tally{}, sg.Votes)
	assert.Empty(t, sg.Voters)
}

func TestConcurrentVotesAreNotLost(t *testing.T) {
	f := newFixture(t)
	f.configure(t)
	sg := f.submit(t, "idea")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.CastVote(context.Background(), f.press(sg.ID), fmt.Sprintf("user-%d", i), store.Yes)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := f.svc.Get(context.Background(), guild, sg.ID)
	require.NoError(t, err)
	assert.Equal(t, store.Tally{Yes: 50}, got.Votes)
	assertConsistent(t, got)
}

func TestCastVoteUnknownSuggestion(t *testing.T) {
	f := newFixture(t)
	f.configure(t)

	_, err := f.svc.CastVote(context.Background(), f.press("stale"), "a", store.Yes)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCastVoteFailsClosed(t *testing.T) {
	f := newFixture(t)
	f.configure(t)
	sg := f.submit(t, "idea")

	f.store.FailSave = func(string) error { return errBoom }
	_, err := f.svc.CastVote(context.Background(), f.press(sg.ID), "a", store.Yes)
	assert.True(t, errors.Is(err, ErrPersistence))

	f.store.FailSave = nil
	got, err := f.svc.Get(context.Background(), guild, sg.ID)
	require.NoError(t, err)
	assert.Equal(t, store.Tally{}, got.Votes)
	assert.Empty(t, got.Voters)
}

func TestApproveRequiresCapability(t *testing.T) {
	f := newFixture(t)
	f.configure(t)
	sg := f.submit(t, "idea")

	_, err := f.svc.Approve(context.Background(), f.press(sg.ID), chattest.Member("someone"))
	assert.True(t, errors.Is(err, ErrUnauthorized))

	got, err := f.svc.Get(context.Background(), guild, sg.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusOpen, got.Status)
}

func TestApproveFreezesVotes(t *testing.T) {
	f := newFixture(t)
	f.configure(t)
	sg := f.submit(t, "idea")
	ctx := context.Background()

	_, err := f.svc.CastVote(ctx, f.press(sg.ID), "a", store.Yes)
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, f.press(sg.ID), f.mod)
	require.NoError(t, err)
	assert.Equal(t, store.StatusApproved, approved.Status)
	assert.Equal(t, "mod", approved.ModeratorID)
	require.NotNil(t, approved.ModeratedAt)

	_, err = f.svc.CastVote(ctx, f.press(sg.ID), "b", store.Yes)
	assert.True(t, errors.Is(err, ErrState))

	got, err := f.svc.Get(ctx, guild, sg.ID)
	require.NoError(t, err)
	assert.Equal(t, store.Tally{Yes: 1}, got.Votes)

	msg, ok := f.platform.Message(sg.ID)
	require.True(t, ok)
	assert.Equal(t, "✅ Suggestion #1 Approved", msg.Content.Title)
	assert.Equal(t, chat.ColorGreen, msg.Content.Color)
	for _, c := range msg.Content.Controls {
		assert.Equal(t, c.ID != ButtonDelete, c.Disabled, c.ID)
	}
	assert.False(t, msg.Pinned)
}

func TestDenyIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.configure(t)
	sg := f.submit(t, "idea")
	ctx := context.Background()

	denied, err := f.svc.Deny(ctx, f.press(sg.ID), f.mod)
	require.NoError(t, err)
	assert.Equal(t, store.StatusDenied, denied.Status)

	_, err = f.svc.Approve(ctx, f.press(sg.ID), f.mod)
	assert.True(t, errors.Is(err, ErrState))

	_, err = f.svc.CastVote(ctx, f.press(sg.ID), "a", store.No)
	assert.True(t, errors.Is(err, ErrState))

	msg, ok := f.platform.Message(sg.ID)
	require.True(t, ok)
	assert.Equal(t, "❌ Suggestion #1 Denied", msg.Content.Title)
}

func TestApprovePinsWhenEnabled(t *testing.T) {
	f := newFixture(t, WithPinApproved(true))
	f.configure(t)
	sg := f.submit(t, "idea")

	_, err := f.svc.Approve(context.Background(), f.press(sg.ID), f.mod)
	require.NoError(t, err)

	msg, ok := f.platform.Message(sg.ID)
	require.True(t, ok)
	assert.True(t, msg.Pinned)
}

func TestApproveSurvivesPinFailure(t *testing.T) {
	f := newFixture(t, WithPinApproved(true))
	f.configure(t)
	sg := f.submit(t, "idea")
	f.platform.FailPin = errBoom

	_, err := f.svc.Approve(context.Background(), f.press(sg.ID), f.mod)
	assert.NoError(t, err)
}

func TestDeleteIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.configure(t)
	sg := f.submit(t, "idea")
	ctx := context.Background()

	require.NoError(t, f.svc.Delete(ctx, guild, sg.ID))
	require.NoError(t, f.svc.Delete(ctx, guild, sg.ID))

	_, err := f.svc.Get(ctx, guild, sg.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRemoveDeletesMessage(t *testing.T) {
	f := newFixture(t)
	f.configure(t)
	sg := f.submit(t, "idea")
	ctx := context.Background()

	assert.True(t, errors.Is(f.svc.Remove(ctx, f.press(sg.ID), chattest.Member("someone")), ErrUnauthorized))
	_, ok := f.platform.Message(sg.ID)
	assert.True(t, ok)

	require.NoError(t, f.svc.Remove(ctx, f.press(sg.ID), f.mod))
	require.NoError(t, f.svc.Remove(ctx, f.press(sg.ID), f.mod))

	_, ok = f.platform.Message(sg.ID)
	assert.False(t, ok)
	assert.NotContains(t, f.record(t).Suggestions, sg.ID)
}

func TestRemoveClosedSuggestion(t *testing.T) {
	f := newFixture(t)
	f.configure(t)
	sg := f.submit(t, "idea")
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, f.press(sg.ID), f.mod)
	require.NoError(t, err)
	require.NoError(t, f.svc.Remove(ctx, f.press(sg.ID), f.mod))
	assert.Empty(t, f.record(t).Suggestions)
}

func TestRecordWithoutChannelFollowsPressedMessage(t *testing.T) {
	f := newFixture(t)
	f.configure(t)
	ctx := context.Background()

	// Posted by the first version of the bot, in a channel that is no longer the configured one
	voted, err := f.platform.SendMessage(ctx, "channel-2", chat.Content{Title: "Suggestion #1", Description: "old idea"})
	require.NoError(t, err)
	removed, err := f.platform.SendMessage(ctx, "channel-2", chat.Content{Title: "Suggestion #2", Description: "older idea"})
	require.NoError(t, err)
	require.NoError(t, f.store.Update(ctx, guild, func(cfg *store.GuildConfig) error {
		cfg.Suggestions[voted] = &store.Suggestion{Number: 1, AuthorID: "a"}
		cfg.Suggestions[removed] = &store.Suggestion{Number: 2, AuthorID: "a"}
		return nil
	}))
	pressed := func(id, text string) Press {
		return Press{GuildID: guild, ChannelID: "channel-2", MessageID: id, Text: text}
	}

	tally, err := f.svc.CastVote(ctx, pressed(voted, "old idea"), "voter", store.Yes)
	require.NoError(t, err)
	assert.Equal(t, store.Tally{Yes: 1}, tally)

	m, ok := f.platform.Message(voted)
	require.True(t, ok)
	assert.Equal(t, "old idea", m.Content.Description)
	require.Len(t, m.Content.Controls, 5)
	assert.Equal(t, "👍 1", m.Content.Controls[0].Label)

	sg := f.record(t).Suggestions[voted]
	assert.Equal(t, voted, sg.ID)
	assert.Equal(t, "channel-2", sg.ChannelID)
	assert.Equal(t, "old idea", sg.Text)

	require.NoError(t, f.svc.Remove(ctx, pressed(voted, "old idea"), f.mod))
	require.NoError(t, f.svc.Remove(ctx, pressed(removed, "older idea"), f.mod))

	for _, id := range []string{voted, removed} {
		_, ok = f.platform.Message(id)
		assert.False(t, ok, id)
		assert.NotContains(t, f.record(t).Suggestions, id)
	}
}

func TestApproveRecordWithoutChannel(t *testing.T) {
	f := newFixture(t, WithPinApproved(true))
	f.configure(t)
	ctx := context.Background()

	id, err := f.platform.SendMessage(ctx, channel, chat.Content{Title: "Suggestion #7", Description: "legacy"})
	require.NoError(t, err)
	require.NoError(t, f.store.Update(ctx, guild, func(cfg *store.GuildConfig) error {
		cfg.Suggestions[id] = &store.Suggestion{Number: 7, AuthorID: "a"}
		return nil
	}))

	approved, err := f.svc.Approve(ctx, Press{GuildID: guild, ChannelID: channel, MessageID: id, Text: "legacy"}, f.mod)
	require.NoError(t, err)
	assert.Equal(t, channel, approved.ChannelID)

	m, ok := f.platform.Message(id)
	require.True(t, ok)
	assert.Equal(t, "✅ Suggestion #7 Approved", m.Content.Title)
	assert.Equal(t, "legacy", m.Content.Description)
	assert.True(t, m.Pinned)
}

func TestConfigureChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.ConfigureChannel(ctx, guild, channel, chattest.Member("someone"))
	assert.True(t, errors.Is(err, ErrUnauthorized))

	err = f.svc.ConfigureChannel(ctx, guild, "vanished", f.mod)
	assert.True(t, errors.Is(err, ErrConfiguration))

	f.configure(t)
	cfg := f.record(t)
	assert.Equal(t, channel, cfg.Channel())
	require.NotEmpty(t, cfg.Sticky())
	assert.Equal(t, 1, f.platform.Count(channel))

	require.NoError(t, f.svc.ConfigureChannel(ctx, guild, "channel-2", f.mod))
	cfg = f.record(t)
	assert.Equal(t, "channel-2", cfg.Channel())
	assert.Equal(t, 0, f.platform.Count(channel), "old reminder is removed")
	assert.Equal(t, 1, f.platform.Count("channel-2"))
}

func TestDisableClearsChannelAndReminder(t *testing.T) {
	f := newFixture(t)
	f.configure(t)
	ctx := context.Background()

	assert.True(t, errors.Is(f.svc.Disable(ctx, guild, chattest.Member("someone")), ErrUnauthorized))

	require.NoError(t, f.svc.Disable(ctx, guild, f.mod))
	cfg := f.record(t)
	assert.Nil(t, cfg.ChannelID)
	assert.Nil(t, cfg.StickyMessageID)
	assert.Equal(t, 0, f.platform.Count(channel))

	_, err := f.svc.Submit(ctx, SubmitRequest{GuildID: guild, AuthorID: "author", Text: "idea"})
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestSubmitRepostsReminderAfterWindow(t *testing.T) {
	f := newFixture(t)
	f.configure(t)
	first := f.record(t).Sticky()

	f.submit(t, "inside the window")
	assert.Equal(t, first, f.record(t).Sticky(), "reminder is not reposted inside the window")

	f.clock.Advance(sticky.DefaultWindow)
	f.submit(t, "after the window")

	current := f.record(t).Sticky()
	assert.NotEqual(t, first, current)
	_, ok := f.platform.Message(first)
	assert.False(t, ok, "previous reminder is deleted")
	assert.Equal(t, 3, f.platform.Count(channel), "two suggestions and one reminder")
}
