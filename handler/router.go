// Package handler routes prefixed chat commands to their handlers.
package handler

import (
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Session is the part of *discordgo.Session the handlers use.
type Session interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// CommandFunc handles one command. args is the text after the command name.
type CommandFunc func(s Session, m *discordgo.MessageCreate, args string)

var commandHandlers = make(map[string]CommandFunc)

// AddCommandHandler registers a handler for a prefixed command.
func AddCommandHandler(name string, handler CommandFunc) {
	commandHandlers[strings.ToLower(name)] = handler
}

// ParseCommand splits "!name rest of line" into its name and arguments.
func ParseCommand(prefix, content string) (name, args string, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", "", false
	}
	body := strings.TrimPrefix(content, prefix)
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return "", "", false
	}
	name = strings.ToLower(fields[0])
	args = strings.TrimSpace(strings.TrimPrefix(strings.TrimLeft(body, " \t\n"), fields[0]))
	return name, args, true
}

// Dispatch runs the handler for a prefixed message. Unknown commands are ignored.
// It reports whether the message was a command.
func Dispatch(s Session, m *discordgo.MessageCreate, prefix string) bool {
	name, args, ok := ParseCommand(prefix, m.Content)
	if !ok {
		return false
	}
	if handler, found := commandHandlers[name]; found {
		log.Printf("command %s%s from %s in %s", prefix, name, m.Author.ID, m.ChannelID)
		handler(s, m, args)
	}
	return true
}
