package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"loopbot/model"
)

var medals = []string{"🥇", "🥈", "🥉"}

func placeLabel(i int) string {
	if i < len(medals) {
		return medals[i]
	}
	return humanize.Ordinal(i+1) + "."
}

// FormatLeaderboard renders the points leaderboard.
func FormatLeaderboard(title string, standings []model.Standing) string {
	if len(standings) == 0 {
		return title + "\nNo points yet. Submit something to get on the board!"
	}
	var b strings.Builder
	b.WriteString(title)
	for i, s := range standings {
		fmt.Fprintf(&b, "\n%s <@%s> — %s %s", placeLabel(i), s.UserID, humanize.Comma(int64(s.Points)), plural(s.Points, "point"))
	}
	return b.String()
}

// FormatStreaks renders the streak leaderboard.
func FormatStreaks(streaks []model.Streak) string {
	if len(streaks) == 0 {
		return "🔥 **Streak Leaderboard**\nNo active streaks yet."
	}
	var b strings.Builder
	b.WriteString("🔥 **Streak Leaderboard**")
	for i, s := range streaks {
		fmt.Fprintf(&b, "\n%s <@%s> — %d %s (best %d)", placeLabel(i), s.UserID, s.Current, plural(s.Current, "day"), s.Best)
	}
	return b.String()
}

// FormatTrending renders the windowed vote summary.
func FormatTrending(top []model.ScoredSubmission, window time.Duration) string {
	span := humanizeWindow(window)
	if len(top) == 0 {
		return fmt.Sprintf("📭 No votes were cast in the last %s.", span)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🗳️ **Top submissions of the last %s**", span)
	for i, s := range top {
		fmt.Fprintf(&b, "\n%s Submission #%d by <@%s> — %d %s from %d %s",
			placeLabel(i), s.ID, s.AuthorID, s.Total, plural(s.Total, "point"), s.Votes, plural(s.Votes, "vote"))
		if s.Kind == model.SubmissionLink {
			fmt.Fprintf(&b, " <%s>", s.Payload)
		}
	}
	return b.String()
}

func humanizeWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		return fmt.Sprintf("%d %s", h, plural(h, "hour"))
	}
	return d.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
