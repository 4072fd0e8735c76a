package db

import (
	"fmt"
	"time"
)

// timeLayout matches SQLite's strftime('%Y-%m-%dT%H:%M:%fZ') so stored
// timestamps sort lexicographically in time order.
const timeLayout = "2006-01-02T15:04:05.000Z"

const dateLayout = "2006-01-02"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// FormatDate returns the UTC calendar date of t as stored in the streaks table.
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}
