package utils

import (
	"fmt"
	"regexp"

	"github.com/bwmarrin/discordgo"

	"loopbot/apperror"
	"loopbot/model"
)

var reMessageLink = regexp.MustCompile(`^https://(?:(?:ptb|canary)\.)?discord(?:app)?\.com/channels/(\d+|@me)/(\d+)/(\d+)/?$`)

// MessageFetcher loads a single chat message.
type MessageFetcher interface {
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// ParseDiscordURL splits a message link into guild, channel and message IDs.
func ParseDiscordURL(url string) (*model.MessageRef, error) {
	matches := reMessageLink.FindStringSubmatch(url)
	if len(matches) != 4 {
		return nil, apperror.Validation("That is not a Discord message link.")
	}
	return &model.MessageRef{
		GuildID:   matches[1],
		ChannelID: matches[2],
		MessageID: matches[3],
	}, nil
}

// IsDiscordMessageURL reports whether s is a link to a chat message.
func IsDiscordMessageURL(s string) bool {
	return reMessageLink.MatchString(s)
}

// FetchDiscordMessage fills in the author, content and attachments of info.
func FetchDiscordMessage(s MessageFetcher, info *model.MessageRef) error {
	message, err := s.ChannelMessage(info.ChannelID, info.MessageID)
	if err != nil {
		return apperror.NotFound(fmt.Sprintf("Could not load that message: %v", err))
	}
	if message.Author != nil {
		info.AuthorID = message.Author.ID
	}
	info.Content = message.Content
	info.Files = message.Attachments
	return nil
}

// ResolveOwnPost loads the linked message and checks that it belongs to submitterID
// and to the current guild.
func ResolveOwnPost(s MessageFetcher, url, currentGuildID, submitterID string) (*model.MessageRef, error) {
	info, err := ParseDiscordURL(url)
	if err != nil {
		return nil, err
	}
	if info.GuildID != currentGuildID {
		return nil, apperror.Validation("You can only submit messages from this server.")
	}
	if err := FetchDiscordMessage(s, info); err != nil {
		return nil, err
	}
	if info.AuthorID != submitterID {
		return nil, apperror.Permission("You can only submit your own messages.")
	}
	return info, nil
}
