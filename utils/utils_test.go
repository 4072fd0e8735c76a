package utils

import (
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loopbot/apperror"
	"loopbot/command"
	"loopbot/model"
)

func TestChunkText(t *testing.T) {
	assert.Nil(t, ChunkText("", 10))
	assert.Equal(t, []string{"abc"}, ChunkText("abc", 10))

	chunks := ChunkText(strings.Repeat("a", 4500), 2000)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 2000)
	assert.Len(t, chunks[2], 500)

	assert.Equal(t, []string{"éé", "é"}, ChunkText("ééé", 2))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
}

func TestAccessFor(t *testing.T) {
	auth := model.Auth{OwnerID: "owner", AdminRoleIDs: []string{"mods"}}
	assert.Equal(t, command.Owner, AccessFor(auth, "owner", nil))
	assert.Equal(t, command.Admin, AccessFor(auth, "u", []string{"x", "mods"}))
	assert.Equal(t, command.Everyone, AccessFor(auth, "u", []string{"x"}))
	assert.Equal(t, command.Everyone, AccessFor(model.Auth{}, "", nil))
}

func TestParseDiscordURL(t *testing.T) {
	info, err := ParseDiscordURL("https://discord.com/channels/1/2/3")
	require.NoError(t, err)
	assert.Equal(t, &model.MessageRef{GuildID: "1", ChannelID: "2", MessageID: "3"}, info)

	_, err = ParseDiscordURL("https://ptb.discordapp.com/channels/1/2/3/")
	assert.NoError(t, err)

	_, err = ParseDiscordURL("https://discord.com/channels/1/2")
	assert.ErrorIs(t, err, apperror.ErrValidation)
	assert.False(t, IsDiscordMessageURL("https://example.com/channels/1/2/3"))
}

type fetcher map[string]*discordgo.Message

func (f fetcher) ChannelMessage(channelID, messageID string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if m, ok := f[messageID]; ok {
		return m, nil
	}
	return nil, errors.New("HTTP 404 Not Found")
}

func TestResolveOwnPost(t *testing.T) {
	f := fetcher{
		"3": {ID: "3", Author: &discordgo.User{ID: "alice"}, Content: "https://x/a #music"},
	}

	info, err := ResolveOwnPost(f, "https://discord.com/channels/1/2/3", "1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "https://x/a #music", info.Content)

	_, err = ResolveOwnPost(f, "https://discord.com/channels/1/2/3", "1", "bob")
	assert.ErrorIs(t, err, apperror.ErrPermission)

	_, err = ResolveOwnPost(f, "https://discord.com/channels/9/2/3", "1", "alice")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = ResolveOwnPost(f, "https://discord.com/channels/1/2/4", "1", "alice")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
