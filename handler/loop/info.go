package loop

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"

	"loopbot/command"
	"loopbot/handler"
	"loopbot/model"
	"loopbot/report"
)

const searchLimit = 10

func (h *Handler) ping(s handler.Session, m *discordgo.MessageCreate, _ string) {
	h.reply(s, m.ChannelID, "🏓 Pong!")
}

func (h *Handler) commands(s handler.Session, m *discordgo.MessageCreate, _ string) {
	h.reply(s, m.ChannelID, command.HelpText(h.Config.Prefix, h.accessOf(s, m)))
}

func (h *Handler) how(s handler.Session, m *discordgo.MessageCreate, _ string) {
	p := h.Config.Prefix
	h.reply(s, m.ChannelID, strings.Join([]string{
		"👋 **How to use LoopBot:**",
		"1. Each morning, check the daily challenge in the challenge channel.",
		fmt.Sprintf("2. Create your work and submit it with `%ssubmit <link>` or attach a file, or just post it in the submissions channel.", p),
		fmt.Sprintf("3. Earn 1 point per submission and 1 point for every `%svote <1-10>` you cast. 👍 and ⭐ reactions count as votes too.", p),
		fmt.Sprintf("4. View your score with `%srank`, the top creators with `%sleaderboard` and streaks with `%sstreakboard`.", p, p, p),
		fmt.Sprintf("5. Use `%sremindme` to get a DM before each new challenge.", p),
		fmt.Sprintf("6. Use `%sping` to check if I'm alive!", p),
	}, "\n"))
}

func (h *Handler) rank(s handler.Session, m *discordgo.MessageCreate, _ string) {
	p, err := h.Ranking.Standing(m.Author.ID)
	if err != nil {
		h.replyErr(s, m.ChannelID, err)
		return
	}
	if p == nil {
		p = &model.Participant{UserID: m.Author.ID}
	}
	subs, err := h.Ledger.Count(m.Author.ID)
	if err != nil {
		h.replyErr(s, m.ChannelID, err)
		return
	}
	h.reply(s, m.ChannelID, fmt.Sprintf("📊 <@%s>, you have **%s** %s from **%d** %s. Level %d (%s XP).",
		m.Author.ID, humanize.Comma(int64(p.Points)), pluralize(p.Points, "point"),
		subs, pluralize(subs, "submission"), p.Level, humanize.Comma(int64(p.XP))))
}

func (h *Handler) leaderboard(s handler.Session, m *discordgo.MessageCreate, _ string) {
	var exclude []string
	if id := h.BotID(); id != "" {
		exclude = []string{id}
	}
	top, err := h.Ranking.TopByPoints(exclude, 5)
	if err != nil {
		h.replyErr(s, m.ChannelID, err)
		return
	}
	h.reply(s, m.ChannelID, report.FormatLeaderboard("🏆 **Top 5 Creators:**", top))
}

func (h *Handler) streak(s handler.Session, m *discordgo.MessageCreate, _ string) {
	st, err := h.Ranking.Streak(m.Author.ID)
	if err != nil {
		h.replyErr(s, m.ChannelID, err)
		return
	}
	if st.Best == 0 {
		h.reply(s, m.ChannelID, "🔸 You have no recorded streak yet. Submit something to start your streak!")
		return
	}
	h.reply(s, m.ChannelID, fmt.Sprintf("🔸 Current streak: %d %s. Best streak: %d %s.",
		st.Current, pluralize(st.Current, "day"), st.Best, pluralize(st.Best, "day")))
}

func (h *Handler) streakboard(s handler.Session, m *discordgo.MessageCreate, _ string) {
	top, err := h.Ranking.TopStreaks(5)
	if err != nil {
		h.replyErr(s, m.ChannelID, err)
		return
	}
	h.reply(s, m.ChannelID, report.FormatStreaks(top))
}

func (h *Handler) remindme(s handler.Session, m *discordgo.MessageCreate, _ string) {
	subscribed, err := h.Store.ToggleReminder(m.Author.ID)
	if err != nil {
		h.replyErr(s, m.ChannelID, err)
		return
	}
	if subscribed {
		h.reply(s, m.ChannelID, "🔔 You are now subscribed to daily reminders.")
	} else {
		h.reply(s, m.ChannelID, "🔕 You have been unsubscribed from daily reminders.")
	}
}

func (h *Handler) search(s handler.Session, m *discordgo.MessageCreate, args string) {
	tag := strings.TrimPrefix(strings.TrimSpace(args), "#")
	if f := strings.Fields(tag); len(f) > 0 {
		tag = f[0]
	}
	results, err := h.Ledger.Search(tag, searchLimit)
	if err != nil {
		h.replyErr(s, m.ChannelID, err)
		return
	}
	if len(results) == 0 {
		h.reply(s, m.ChannelID, fmt.Sprintf("🔍 No submissions found tagged #%s.", tag))
		return
	}

	lines := []string{fmt.Sprintf("🔍 Search results for #%s:", tag)}
	for _, sub := range results {
		icon := "🔗"
		if sub.Kind == model.SubmissionAttachment {
			icon = "📁"
		}
		lines = append(lines, fmt.Sprintf("%s %s by <@%s> %s", icon, sub.Payload, sub.AuthorID, humanize.Time(sub.CreatedAt)))
	}
	h.reply(s, m.ChannelID, strings.Join(lines, "\n"))
}
