// Package loop handles the challenge commands and chat events.
package loop

import (
	"context"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"loopbot/apperror"
	"loopbot/command"
	"loopbot/db"
	"loopbot/handler"
	"loopbot/integration/crypto"
	"loopbot/integration/memes"
	"loopbot/integration/music"
	"loopbot/model"
	"loopbot/ranking"
	"loopbot/report"
	"loopbot/storage"
	"loopbot/submission"
	"loopbot/utils"
	"loopbot/vote"
)

const (
	emojiThumbsUp = "👍"
	emojiStar     = "⭐"
)

// Prompter produces the daily prompt and chat replies.
type Prompter interface {
	DailyPrompt(ctx context.Context) string
	Chat(ctx context.Context, message string) (string, error)
}

type MusicSearcher interface {
	Search(ctx context.Context, t music.SearchType, query string) ([]music.Result, error)
}

type GifSearcher interface {
	Random(ctx context.Context, query string) (string, error)
}

type MemeScraper interface {
	Scrape(ctx context.Context, q memes.Query) ([]string, error)
}

// Notifier receives live submission and vote events.
type Notifier interface {
	Publish(eventType string, data any)
}

// Deps are the components the handlers work with. Optional integrations may be nil.
type Deps struct {
	Config  *model.Config
	Store   *db.Store
	Ledger  *submission.Ledger
	Votes   *vote.Engine
	Ranking *ranking.Engine

	Prompts Prompter
	Markets report.MarketSource
	Tickers *crypto.LiveTickers
	Music   MusicSearcher
	Gifs    GifSearcher
	Memes   MemeScraper
	Files   storage.Downloader
	Mirror  storage.Mirror
	Events  Notifier

	// Context bounds background work such as live tickers.
	Context context.Context
	BotID   func() string
	Now     func() time.Time
	Timeout time.Duration
}

type Handler struct {
	Deps
}

func New(d Deps) *Handler {
	if d.Context == nil {
		d.Context = context.Background()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Timeout <= 0 {
		d.Timeout = 10 * time.Second
	}
	if d.BotID == nil {
		d.BotID = func() string { return "" }
	}
	return &Handler{Deps: d}
}

// RegisterHandlers registers every command with the router.
func RegisterHandlers(h *Handler) {
	handler.AddCommandHandler("ping", h.ping)
	handler.AddCommandHandler("how", h.how)
	handler.AddCommandHandler("commands", h.commands)
	handler.AddCommandHandler("submit", h.submitCommand)
	handler.AddCommandHandler("vote", h.voteCommand)
	handler.AddCommandHandler("rank", h.rank)
	handler.AddCommandHandler("leaderboard", h.leaderboard)
	handler.AddCommandHandler("streak", h.streak)
	handler.AddCommandHandler("streakboard", h.streakboard)
	handler.AddCommandHandler("remindme", h.remindme)
	handler.AddCommandHandler("search", h.search)
	handler.AddCommandHandler("postprompt", h.requireAccess(command.Admin, h.postPrompt))
	handler.AddCommandHandler("postrules", h.requireAccess(command.Admin, h.postRules))
	handler.AddCommandHandler("memes", h.requireAccess(command.Admin, h.memes))
	handler.AddCommandHandler("scrape", h.requireAccess(command.Owner, h.scrape))
	handler.AddCommandHandler("music", h.music)
	handler.AddCommandHandler("chat", h.chat)
	handler.AddCommandHandler("gif", h.gif)
	handler.AddCommandHandler("livecrypto", h.liveCrypto)
}

// accessOf resolves the caller's access from the configured owner and admin roles,
// then from the Administrator or Manage Server permission in the channel.
func (h *Handler) accessOf(s handler.Session, m *discordgo.MessageCreate) command.Access {
	var roles []string
	if m.Member != nil {
		roles = m.Member.Roles
	}
	access := utils.AccessFor(h.Config.Auth, m.Author.ID, roles)
	if access >= command.Admin || m.GuildID == "" {
		return access
	}
	perms, err := s.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		log.Printf("Error checking permissions of %s: %v", m.Author.ID, err)
		return access
	}
	if perms&(discordgo.PermissionAdministrator|discordgo.PermissionManageGuild) != 0 {
		return command.Admin
	}
	return access
}

func (h *Handler) requireAccess(level command.Access, next handler.CommandFunc) handler.CommandFunc {
	return func(s handler.Session, m *discordgo.MessageCreate, args string) {
		if h.accessOf(s, m) < level {
			msg := "❌ You need Administrator or Manage Server permissions to use this command."
			if level == command.Owner {
				msg = "❌ Only the bot owner can use this command."
			}
			h.reply(s, m.ChannelID, msg)
			return
		}
		next(s, m, args)
	}
}

func (h *Handler) reply(s handler.Session, channelID, content string) {
	if content == "" {
		return
	}
	if _, err := s.ChannelMessageSend(channelID, content); err != nil {
		log.Printf("Error sending message to %s: %v", channelID, err)
	}
}

func (h *Handler) replyErr(s handler.Session, channelID string, err error) {
	if !isUserError(err) {
		log.Printf("Error handling command in %s: %v", channelID, err)
	}
	h.reply(s, channelID, apperror.UserMessage(err))
}

func isUserError(err error) bool {
	return apperror.IsKind(err, apperror.ErrValidation, apperror.ErrPermission, apperror.ErrNotFound,
		apperror.ErrDuplicate, apperror.ErrWindowClosed)
}

func (h *Handler) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(h.Context, h.Timeout)
}

func (h *Handler) publish(eventType string, data any) {
	if h.Events != nil {
		h.Events.Publish(eventType, data)
	}
}
