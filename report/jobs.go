package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"loopbot/db"
	"loopbot/integration/crypto"
	"loopbot/ranking"
	"loopbot/vote"
)

// Publisher is the subset of *discordgo.Session the jobs post through.
type Publisher interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// PromptSource produces the daily challenge text.
type PromptSource interface {
	DailyPrompt(ctx context.Context) string
}

// MarketSource fetches coin market data.
type MarketSource interface {
	Markets(ctx context.Context, ids []string) ([]crypto.Coin, error)
}

var errNoChannel = errors.New("target channel not configured")

// DailyPromptJob DMs opted-in users, then posts the daily challenge.
type DailyPromptJob struct {
	Publisher Publisher
	Store     *db.Store
	Prompts   PromptSource
	ChannelID string
	BannerURL string
	Spec      string
	Now       func() time.Time
}

func (j *DailyPromptJob) Name() string     { return "daily" }
func (j *DailyPromptJob) Schedule() string { return j.Spec }

func (j *DailyPromptJob) Run(ctx context.Context) error {
	if j.ChannelID == "" {
		return errNoChannel
	}
	j.sendReminders()

	embed := PromptEmbed(j.Prompts.DailyPrompt(ctx), j.BannerURL, j.Now())
	if _, err := j.Publisher.ChannelMessageSendEmbed(j.ChannelID, embed); err != nil {
		return fmt.Errorf("post prompt: %w", err)
	}
	return nil
}

// sendReminders is best effort: a user with closed DMs must not block the prompt.
func (j *DailyPromptJob) sendReminders() {
	ids, err := j.Store.ListReminders()
	if err != nil {
		log.Printf("⚠️ [daily] could not load reminders: %v", err)
		return
	}
	for _, id := range ids {
		ch, err := j.Publisher.UserChannelCreate(id)
		if err != nil {
			log.Printf("⚠️ [daily] could not open DM with %s: %v", id, err)
			continue
		}
		if _, err := j.Publisher.ChannelMessageSend(ch.ID, "🔔 Reminder: don't forget to submit today's creative challenge!"); err != nil {
			log.Printf("⚠️ [daily] could not DM %s: %v", id, err)
		}
	}
}

// PromptEmbed builds the daily challenge card.
func PromptEmbed(prompt, bannerURL string, now time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "🎨 Daily Creative Challenge",
		Description: prompt,
		Color:       0x9b59b6,
		Timestamp:   now.UTC().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: "Submit with !submit or post in the submissions channel"},
	}
	if bannerURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: bannerURL}
	}
	return embed
}

// LeaderboardJob posts the top five by points.
type LeaderboardJob struct {
	Publisher Publisher
	Ranking   *ranking.Engine
	ChannelID string
	// BotID returns the bot's own user ID, which is left off the board.
	BotID func() string
	Spec  string
}

func (j *LeaderboardJob) Name() string     { return "leaderboard" }
func (j *LeaderboardJob) Schedule() string { return j.Spec }

func (j *LeaderboardJob) Run(ctx context.Context) error {
	if j.ChannelID == "" {
		return errNoChannel
	}
	var exclude []string
	if j.BotID != nil && j.BotID() != "" {
		exclude = []string{j.BotID()}
	}
	top, err := j.Ranking.TopByPoints(exclude, 5)
	if err != nil {
		return err
	}
	if _, err := j.Publisher.ChannelMessageSend(j.ChannelID, FormatLeaderboard("🏆 **Daily Leaderboard**", top)); err != nil {
		return fmt.Errorf("post leaderboard: %w", err)
	}
	return nil
}

// VoteSummaryJob posts the most voted submissions of the last window.
type VoteSummaryJob struct {
	Publisher Publisher
	Votes     *vote.Engine
	ChannelID string
	Spec      string
	Now       func() time.Time
}

func (j *VoteSummaryJob) Name() string     { return "vote-summary" }
func (j *VoteSummaryJob) Schedule() string { return j.Spec }

func (j *VoteSummaryJob) Run(ctx context.Context) error {
	if j.ChannelID == "" {
		return errNoChannel
	}
	top, err := j.Votes.TopByVotes(j.Votes.Window(), 5, j.Now())
	if err != nil {
		return err
	}
	if _, err := j.Publisher.ChannelMessageSend(j.ChannelID, FormatTrending(top, j.Votes.Window())); err != nil {
		return fmt.Errorf("post vote summary: %w", err)
	}
	return nil
}

// CryptoJob posts one price card per configured ticker.
type CryptoJob struct {
	Publisher Publisher
	Markets   MarketSource
	Tickers   []string
	ChannelID string
	Spec      string
	Now       func() time.Time
}

func (j *CryptoJob) Name() string     { return "crypto" }
func (j *CryptoJob) Schedule() string { return j.Spec }

func (j *CryptoJob) Run(ctx context.Context) error {
	if j.ChannelID == "" {
		return errNoChannel
	}
	coins, err := j.Markets.Markets(ctx, j.Tickers)
	if err != nil {
		return err
	}
	if len(coins) == 0 {
		log.Printf("[crypto] no market data for %v, nothing to post", j.Tickers)
		return nil
	}
	now := j.Now()
	var failed int
	for _, coin := range coins {
		if _, err := j.Publisher.ChannelMessageSendEmbed(j.ChannelID, coin.Embed(now)); err != nil {
			log.Printf("⚠️ [crypto] could not post %s: %v", coin.ID, err)
			failed++
		}
	}
	if failed == len(coins) {
		return fmt.Errorf("post crypto prices: all %d posts failed", failed)
	}
	return nil
}
