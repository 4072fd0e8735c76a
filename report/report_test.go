package report

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loopbot/db"
	"loopbot/integration/crypto"
	"loopbot/model"
	"loopbot/ranking"
	"loopbot/vote"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type sent struct {
	channelID string
	content   string
	embed     *discordgo.MessageEmbed
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []sent
	failDM   map[string]bool
	failSend bool
}

func (f *fakePublisher) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return nil, errors.New("discord unavailable")
	}
	f.messages = append(f.messages, sent{channelID: channelID, content: content})
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (f *fakePublisher) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend {
		return nil, errors.New("discord unavailable")
	}
	f.messages = append(f.messages, sent{channelID: channelID, embed: embed})
	return &discordgo.Message{ChannelID: channelID}, nil
}

func (f *fakePublisher) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.failDM[recipientID] {
		return nil, errors.New("cannot send messages to this user")
	}
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

type staticPrompt string

func (p staticPrompt) DailyPrompt(context.Context) string { return string(p) }

type fakeMarkets struct {
	coins []crypto.Coin
	err   error
}

func (f fakeMarkets) Markets(context.Context, []string) ([]crypto.Coin, error) { return f.coins, f.err }

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func fixedNow() time.Time { return t0 }

func TestDailyPromptJob(t *testing.T) {
	store := newTestStore(t)
	_, err := store.ToggleReminder("u1")
	require.NoError(t, err)
	_, err = store.ToggleReminder("u2")
	require.NoError(t, err)

	pub := &fakePublisher{failDM: map[string]bool{"u2": true}}
	job := &DailyPromptJob{
		Publisher: pub, Store: store, Prompts: staticPrompt("Draw a cat"),
		ChannelID: "challenge", BannerURL: "https://cdn.test/banner.png", Now: fixedNow,
	}
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, pub.messages, 2)
	assert.Equal(t, "dm-u1", pub.messages[0].channelID)
	assert.Contains(t, pub.messages[0].content, "Reminder")
	assert.Equal(t, "challenge", pub.messages[1].channelID)
	require.NotNil(t, pub.messages[1].embed)
	assert.Equal(t, "Draw a cat", pub.messages[1].embed.Description)
	assert.Equal(t, "https://cdn.test/banner.png", pub.messages[1].embed.Image.URL)
}

func TestDailyPromptJob_PostFailure(t *testing.T) {
	pub := &fakePublisher{failSend: true}
	job := &DailyPromptJob{Publisher: pub, Store: newTestStore(t), Prompts: staticPrompt("x"), ChannelID: "c", Now: fixedNow}
	assert.Error(t, job.Run(context.Background()))
}

func TestLeaderboardJob_ExcludesBot(t *testing.T) {
	store := newTestStore(t)
	rank := ranking.NewEngine(store, model.Roles{})
	for i, u := range []string{"bot", "a", "b", "a"} {
		_, err := rank.CreditPoints(u, 1, "seed:"+string(rune('0'+i)), "seed", t0)
		require.NoError(t, err)
	}

	pub := &fakePublisher{}
	job := &LeaderboardJob{Publisher: pub, Ranking: rank, ChannelID: "lb", BotID: func() string { return "bot" }}
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, pub.messages, 1)
	out := pub.messages[0].content
	assert.NotContains(t, out, "<@bot>")
	assert.Less(t, strings.Index(out, "<@a>"), strings.Index(out, "<@b>"))
	assert.Contains(t, out, "2 points")
	assert.Contains(t, out, "1 point")
}

func TestLeaderboardJob_NoChannel(t *testing.T) {
	job := &LeaderboardJob{Publisher: &fakePublisher{}, Ranking: ranking.NewEngine(newTestStore(t), model.Roles{})}
	assert.ErrorIs(t, job.Run(context.Background()), errNoChannel)
}

func TestVoteSummaryJob(t *testing.T) {
	store := newTestStore(t)
	votes := vote.NewEngine(store, 24*time.Hour, vote.DefaultPolicy)
	pub := &fakePublisher{}
	job := &VoteSummaryJob{Publisher: pub, Votes: votes, ChannelID: "hall", Now: fixedNow}

	require.NoError(t, job.Run(context.Background()))
	assert.Contains(t, pub.messages[0].content, "No votes were cast in the last 24 hours")

	sub, _, err := store.InsertSubmission(model.Submission{
		AuthorID: "A", Kind: model.SubmissionLink, Payload: "https://loop.test/1", CreatedAt: t0.Add(-time.Hour), SourceRef: "m-1",
	})
	require.NoError(t, err)
	_, err = votes.CastVote(sub.ID, "B", model.VoteGraded, 7, t0.Add(-30*time.Minute))
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	out := pub.messages[1].content
	assert.Contains(t, out, "Top submissions of the last 24 hours")
	assert.Contains(t, out, "<@A>")
	assert.Contains(t, out, "7 points from 1 vote")
}

func TestCryptoJob(t *testing.T) {
	price := 100.0
	pub := &fakePublisher{}
	job := &CryptoJob{
		Publisher: pub, Markets: fakeMarkets{coins: []crypto.Coin{{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", Price: &price}}},
		ChannelID: "crypto", Now: fixedNow,
	}
	require.NoError(t, job.Run(context.Background()))
	require.Len(t, pub.messages, 1)
	assert.NotNil(t, pub.messages[0].embed)

	pub.messages = nil
	job.Markets = fakeMarkets{}
	require.NoError(t, job.Run(context.Background()), "an empty market response is not a failure")
	assert.Empty(t, pub.messages)

	job.Markets = fakeMarkets{err: errors.New("rate limited")}
	assert.Error(t, job.Run(context.Background()))
}

type panicJob struct{}

func (panicJob) Name() string { return "panic" }

func (panicJob) Schedule() string { return "" }

func (panicJob) Run(ctx context.Context) error {
	panic("boom")
}

func TestScheduler_RegisterAndRunByName(t *testing.T) {
	s := NewScheduler(context.Background(), time.Second)
	pub := &fakePublisher{}
	require.NoError(t, s.Register(&CryptoJob{
		Publisher: pub, Markets: fakeMarkets{}, ChannelID: "crypto", Spec: EveryHours(2), Now: fixedNow,
	}))
	require.NoError(t, s.Register(panicJob{}))
	assert.Equal(t, []string{"crypto", "panic"}, s.Jobs())

	err := s.RunByName(context.Background(), "panic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	assert.Error(t, s.RunByName(context.Background(), "missing"))
	assert.Error(t, s.Register(&CryptoJob{Spec: "not a cron spec"}))
}

func TestScheduleHelpers(t *testing.T) {
	assert.Equal(t, "0 9 * * *", Daily(9, 0))
	assert.Equal(t, "0 */6 * * *", EveryHours(6))
}

func TestFormatLeaderboard_Empty(t *testing.T) {
	assert.Contains(t, FormatLeaderboard("🏆", nil), "No points yet")
	out := FormatStreaks([]model.Streak{{UserID: "a", Current: 3, Best: 5}})
	assert.Contains(t, out, "🥇 <@a> — 3 days (best 5)")
}
