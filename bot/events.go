package bot

import (
	"log"

	"github.com/bwmarrin/discordgo"

	"loopbot/handler/loop"
)

func registerEventHandlers(s *discordgo.Session, h *loop.Handler, onReady func(botID string)) {
	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		onReady(r.User.ID)
		log.Printf("Logged in as %s#%s", r.User.Username, r.User.Discriminator)
	})
	s.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		h.MessageCreate(s, m)
	})
	s.AddHandler(func(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
		h.ReactionAdd(s, r)
	})
	s.AddHandler(func(s *discordgo.Session, r *discordgo.MessageReactionRemove) {
		h.ReactionRemove(s, r)
	})
	s.AddHandler(func(s *discordgo.Session, e *discordgo.GuildMemberAdd) {
		h.GuildMemberAdd(s, e)
	})

	// GuildMembers and MessageContent are privileged and must be enabled for the application.
	s.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent |
		discordgo.IntentsDirectMessages
}
