package model

import "github.com/bwmarrin/discordgo"

// MessageRef points at a chat message by its guild, channel and message ID.
// The remaining fields are filled once the message has been fetched.
type MessageRef struct {
	GuildID   string
	ChannelID string
	MessageID string

	AuthorID string
	Content  string
	Files    []*discordgo.MessageAttachment
}
