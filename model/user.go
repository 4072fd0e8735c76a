package model

import "time"

// Participant represents a user's ranking record.
type Participant struct {
	UserID   string
	Points   int
	XP       int
	Level    int
	LastXPAt *time.Time
}

// Standing is one row of the points leaderboard.
type Standing struct {
	UserID string `json:"user_id" db:"user_id"`
	Points int    `json:"points" db:"points"`
}

// XPGrant describes the outcome of a rate-limited XP grant.
type XPGrant struct {
	Granted   bool
	XP        int
	Level     int
	LeveledUp bool
}

// Streak is a user's consecutive-day submission streak.
type Streak struct {
	UserID   string `json:"user_id" db:"user_id"`
	Current  int    `json:"current" db:"current"`
	Best     int    `json:"best" db:"best"`
	LastDate string `json:"last_date" db:"last_date"`
}
