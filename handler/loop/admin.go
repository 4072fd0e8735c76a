package loop

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/bwmarrin/discordgo"

	"loopbot/handler"
	"loopbot/integration/memes"
	"loopbot/report"
	"loopbot/utils"
)

const (
	messageLimit = 2000
	memesLimit   = 5
	scrapeLimit  = 25
)

func (h *Handler) postPrompt(s handler.Session, m *discordgo.MessageCreate, _ string) {
	ctx, cancel := h.opContext()
	defer cancel()
	embed := report.PromptEmbed(h.Prompts.DailyPrompt(ctx), h.Config.Schedule.BannerURL, h.Now())
	if _, err := s.ChannelMessageSendEmbed(m.ChannelID, embed); err != nil {
		log.Printf("Error posting prompt to %s: %v", m.ChannelID, err)
	}
}

func (h *Handler) postRules(s handler.Session, m *discordgo.MessageCreate, _ string) {
	path := h.Config.Schedule.GuidelinesPath
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			h.reply(s, m.ChannelID, fmt.Sprintf("❌ %s file not found.", path))
			return
		}
		log.Printf("Error reading %s: %v", path, err)
		h.reply(s, m.ChannelID, "⚠️ Could not read the community guidelines.")
		return
	}
	rules := h.Config.Channels.Rules
	if rules == "" {
		h.reply(s, m.ChannelID, "❌ Rules channel not found. Check RULES_CHANNEL_ID.")
		return
	}

	for _, chunk := range utils.ChunkText(string(content), messageLimit) {
		if _, err := s.ChannelMessageSend(rules, chunk); err != nil {
			log.Printf("Error posting guidelines to %s: %v", rules, err)
			h.reply(s, m.ChannelID, "⚠️ Posting the guidelines failed part way, please try again.")
			return
		}
	}
	h.reply(s, m.ChannelID, fmt.Sprintf("✅ Community guidelines posted in <#%s>.", rules))
}

func (h *Handler) memes(s handler.Session, m *discordgo.MessageCreate, _ string) {
	h.postMemes(s, m, memes.Query{Terms: "#meme", Limit: memesLimit}, "✅ Posted latest memes!")
}

func (h *Handler) scrape(s handler.Session, m *discordgo.MessageCreate, _ string) {
	h.postMemes(s, m, memes.Query{
		Terms:          "#meme OR #funny OR #trending",
		Limit:          scrapeLimit,
		RedditFallback: true,
	}, "✅ Scraped and posted latest memes!")
}

func (h *Handler) postMemes(s handler.Session, m *discordgo.MessageCreate, q memes.Query, done string) {
	channel := h.Config.Channels.Memes
	if channel == "" || h.Memes == nil {
		h.reply(s, m.ChannelID, "❌ Memes channel not found. Check configuration.")
		return
	}

	ctx, cancel := h.opContext()
	urls, err := h.Memes.Scrape(ctx, q)
	cancel()
	if err != nil {
		log.Printf("[memes] scrape failed: %v", err)
	}
	if len(urls) == 0 {
		h.reply(s, m.ChannelID, "🔍 No memes found at the moment. Try again later.")
		return
	}
	for _, u := range urls {
		if _, err := s.ChannelMessageSend(channel, u); err != nil {
			log.Printf("Error posting meme to %s: %v", channel, err)
		}
	}
	h.reply(s, m.ChannelID, done)
}
