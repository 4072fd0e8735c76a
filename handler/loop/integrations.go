package loop

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"

	"loopbot/handler"
	"loopbot/integration/music"
	"loopbot/utils"
)

func (h *Handler) music(s handler.Session, m *discordgo.MessageCreate, args string) {
	t, query := music.ParseQuery(args)
	if query == "" {
		h.reply(s, m.ChannelID, "❌ Please provide search terms. Usage: "+h.Config.Prefix+"music [track|album|artist] <search terms>")
		return
	}
	if h.Music == nil {
		h.reply(s, m.ChannelID, "❌ Please configure SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET in environment.")
		return
	}

	ctx, cancel := h.opContext()
	defer cancel()
	results, err := h.Music.Search(ctx, t, query)
	if err != nil {
		h.replyErr(s, m.ChannelID, err)
		return
	}
	if len(results) == 0 {
		h.reply(s, m.ChannelID, "🔍 No results found.")
		return
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, r.Line(t))
	}
	h.reply(s, m.ChannelID, strings.Join(lines, "\n"))
}

func (h *Handler) chat(s handler.Session, m *discordgo.MessageCreate, args string) {
	if strings.TrimSpace(args) == "" {
		h.reply(s, m.ChannelID, "❌ Please provide a message for the AI, e.g. `"+h.Config.Prefix+"chat Hello! How are you?`")
		return
	}
	ctx, cancel := h.opContext()
	defer cancel()
	reply, err := h.Prompts.Chat(ctx, args)
	if err != nil {
		h.replyErr(s, m.ChannelID, err)
		return
	}
	h.reply(s, m.ChannelID, utils.Truncate(reply, messageLimit-3))
}

func (h *Handler) gif(s handler.Session, m *discordgo.MessageCreate, args string) {
	query := strings.TrimSpace(args)
	if query == "" {
		h.reply(s, m.ChannelID, "❌ Please provide search terms. Usage: "+h.Config.Prefix+"gif <search terms>")
		return
	}
	if h.Gifs == nil {
		h.reply(s, m.ChannelID, "❌ GIPHY_API_KEY not configured.")
		return
	}
	ctx, cancel := h.opContext()
	defer cancel()
	url, err := h.Gifs.Random(ctx, query)
	if err != nil {
		h.replyErr(s, m.ChannelID, err)
		return
	}
	if url == "" {
		h.reply(s, m.ChannelID, fmt.Sprintf("🔍 No GIFs found for '%s'.", query))
		return
	}
	h.reply(s, m.ChannelID, url)
}

// liveCrypto posts one embed per ticker and keeps editing them until stopped.
func (h *Handler) liveCrypto(s handler.Session, m *discordgo.MessageCreate, args string) {
	if strings.EqualFold(strings.TrimSpace(args), "stop") {
		if h.Tickers.Stop(m.ChannelID) {
			h.reply(s, m.ChannelID, "🛑 Live crypto tracker stopped.")
		} else {
			h.reply(s, m.ChannelID, "ℹ️ No live crypto tracker is running in this channel.")
		}
		return
	}
	if h.Markets == nil {
		h.reply(s, m.ChannelID, "⚠️ Failed to fetch crypto data.")
		return
	}

	tickers := h.Config.Integrations.CryptoTickers
	ctx, cancel := h.opContext()
	coins, err := h.Markets.Markets(ctx, tickers)
	cancel()
	if err != nil || len(coins) == 0 {
		if err != nil {
			log.Printf("[livecrypto] fetch failed: %v", err)
		}
		h.reply(s, m.ChannelID, "⚠️ Failed to fetch crypto data.")
		return
	}

	posted := make(map[string]string, len(coins))
	for _, coin := range coins {
		msg, err := s.ChannelMessageSendEmbed(m.ChannelID, coin.Embed(h.Now()))
		if err != nil {
			log.Printf("Error posting %s ticker: %v", coin.ID, err)
			continue
		}
		posted[coin.ID] = msg.ID
	}

	interval := h.Config.Schedule.CryptoLiveInterval
	h.Tickers.Start(h.Context, m.ChannelID, interval, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, h.Timeout)
		defer cancel()
		coins, err := h.Markets.Markets(callCtx, tickers)
		if err != nil {
			return err
		}
		for _, coin := range coins {
			msgID, ok := posted[coin.ID]
			if !ok {
				continue
			}
			if _, err := s.ChannelMessageEditEmbed(m.ChannelID, msgID, coin.Embed(h.Now())); err != nil {
				log.Printf("Error updating %s ticker: %v", coin.ID, err)
			}
		}
		return nil
	})
	h.reply(s, m.ChannelID, fmt.Sprintf("🔁 Live crypto tracker started (updates every %s). Use `%slivecrypto stop` to end it.",
		interval, h.Config.Prefix))
}
