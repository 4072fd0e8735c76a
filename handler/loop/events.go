package loop

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"loopbot/handler"
)

// MessageCreate grants XP, runs commands and records passive submissions.
func (h *Handler) MessageCreate(s handler.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == h.BotID() {
		return
	}

	h.grantXP(s, m)

	if handler.Dispatch(s, m, h.Config.Prefix) {
		return
	}
	if m.ChannelID == h.Config.Channels.Submissions {
		h.passiveSubmission(s, m)
	}
}

func (h *Handler) grantXP(s handler.Session, m *discordgo.MessageCreate) {
	ch := h.Config.Channels
	if (ch.Rules != "" && m.ChannelID == ch.Rules) || (ch.Moderator != "" && m.ChannelID == ch.Moderator) {
		return
	}

	grant, err := h.Ranking.GrantXP(m.Author.ID, h.Now())
	if err != nil {
		log.Printf("Error granting XP to %s: %v", m.Author.ID, err)
		return
	}
	if !grant.LeveledUp {
		return
	}
	log.Printf("%s reached level %d", m.Author.ID, grant.Level)

	role := h.Ranking.RoleForLevel(grant.Level)
	if role == "" || m.GuildID == "" {
		return
	}
	if err := s.GuildMemberRoleAdd(m.GuildID, m.Author.ID, role); err != nil {
		log.Printf("⚠️ Failed to assign level role %s to %s: %v", role, m.Author.ID, err)
	}
}

// GuildMemberAdd welcomes a new member.
func (h *Handler) GuildMemberAdd(s handler.Session, e *discordgo.GuildMemberAdd) {
	welcome := h.Config.Channels.Welcome
	if welcome == "" || e.Member == nil || e.User == nil || e.User.Bot {
		return
	}
	h.reply(s, welcome, welcomeText(e.User.ID, h.Config.Channels.Challenge))
}

func welcomeText(userID, challengeChannelID string) string {
	text := fmt.Sprintf("🎉 Welcome <@%s>! Please introduce yourself here so we can get to know you.", userID)
	if challengeChannelID != "" {
		text += fmt.Sprintf("\nAlso, check out the current challenge in <#%s> and have fun making something new!", challengeChannelID)
	}
	return text
}
