// Package command describes the chat commands the bot answers to.
package command

import (
	"fmt"
	"strings"
)

// Access is who may run a command.
type Access int

const (
	Everyone Access = iota
	Admin
	Owner
)

type Command struct {
	Name        string
	Usage       string
	Description string
	Access      Access
}

// AllCommands contains all of the commands, in help order.
var AllCommands = []Command{
	{Name: "ping", Description: "Check that the bot is alive."},
	{Name: "how", Description: "How the daily challenge works."},
	{Name: "commands", Description: "List the commands."},
	{Name: "submit", Usage: "<link> | attach a file | reply to your message", Description: "Submit your work for today's challenge."},
	{Name: "vote", Usage: "<1-10>", Description: "Reply to a submission to give it a score."},
	{Name: "rank", Description: "Show your points and level."},
	{Name: "leaderboard", Description: "Top 5 creators by points."},
	{Name: "streak", Description: "Your current and best daily streak."},
	{Name: "streakboard", Description: "Top 5 current streaks."},
	{Name: "remindme", Description: "Toggle the daily DM reminder."},
	{Name: "search", Usage: "#tag", Description: "Find past submissions by tag."},
	{Name: "chat", Usage: "<message>", Description: "Ask the AI assistant."},
	{Name: "music", Usage: "[track|album|artist] <search terms>", Description: "Search Spotify."},
	{Name: "gif", Usage: "<search terms>", Description: "Post a GIF from Giphy."},
	{Name: "livecrypto", Usage: "[stop]", Description: "Live crypto prices in this channel."},
	{Name: "postprompt", Description: "Post today's challenge here.", Access: Admin},
	{Name: "postrules", Description: "Post the community guidelines.", Access: Admin},
	{Name: "memes", Description: "Post five fresh memes.", Access: Admin},
	{Name: "scrape", Description: "Scrape and post up to 25 memes.", Access: Owner},
}

// Lookup returns the command with the given name.
func Lookup(name string) (Command, bool) {
	for _, c := range AllCommands {
		if c.Name == name {
			return c, true
		}
	}
	return Command{}, false
}

// HelpText renders the command list for users with the given access.
func HelpText(prefix string, access Access) string {
	var b strings.Builder
	b.WriteString("📜 **Commands**")
	for _, c := range AllCommands {
		if c.Access > access {
			continue
		}
		line := "`" + prefix + c.Name
		if c.Usage != "" {
			line += " " + c.Usage
		}
		line += "`"
		fmt.Fprintf(&b, "\n%s — %s", line, c.Description)
	}
	return b.String()
}
