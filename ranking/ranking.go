// Package ranking maintains points, XP levels and daily submission streaks.
package ranking

import (
	"fmt"
	"math"
	"time"

	"loopbot/apperror"
	"loopbot/db"
	"loopbot/model"
)

const (
	// XPInterval is the minimum time between two XP grants to the same user.
	XPInterval  = 60 * time.Second
	levelFactor = 0.1
)

// Engine applies ranking rules on top of the store.
type Engine struct {
	store *db.Store
	roles model.Roles
}

// NewEngine creates a new ranking engine.
func NewEngine(store *db.Store, roles model.Roles) *Engine {
	return &Engine{store: store, roles: roles}
}

// LevelFor returns floor(0.1 * sqrt(xp)).
func LevelFor(xp int) int {
	if xp <= 0 {
		return 0
	}
	return int(levelFactor * math.Sqrt(float64(xp)))
}

// CreditPoints adds delta points to userID exactly once per key.
// The key must identify the logical event (a submission or a vote), not the credit attempt.
func (e *Engine) CreditPoints(userID string, delta int, key, reason string, now time.Time) (bool, error) {
	if delta < 0 {
		return false, apperror.Validation(fmt.Sprintf("point credit must not be negative, got %d", delta))
	}
	if key == "" {
		return false, apperror.Validation("point credit needs an idempotency key")
	}
	granted, err := e.store.CreditPoints(db.Credit{Key: key, UserID: userID, Delta: delta, Reason: reason}, now)
	if err != nil {
		return false, apperror.Storage("credit points", err)
	}
	return granted, nil
}

// GrantXP grants one XP for a chat message, at most once per XPInterval.
func (e *Engine) GrantXP(userID string, now time.Time) (model.XPGrant, error) {
	g, err := e.store.GrantXP(userID, now, XPInterval, LevelFor)
	if err != nil {
		return model.XPGrant{}, apperror.Storage("grant xp", err)
	}
	return g, nil
}

// RoleForLevel returns the tier role unlocked at exactly this level, if any.
func (e *Engine) RoleForLevel(level int) string {
	switch level {
	case 3:
		return e.roles.Level3
	case 5:
		return e.roles.Level5
	case 10:
		return e.roles.Level10
	}
	return ""
}

// UpdateStreak records a submission on the UTC date of now.
func (e *Engine) UpdateStreak(userID string, now time.Time) (model.Streak, error) {
	st, err := e.store.UpdateStreak(userID, db.FormatDate(now), NextStreak)
	if err != nil {
		return model.Streak{}, apperror.Storage("update streak", err)
	}
	return st, nil
}

// NextStreak applies one submission on date to prev. A submission on the same
// date (or an earlier one) leaves the streak unchanged, the following date
// extends it and any gap restarts it at one.
func NextStreak(prev model.Streak, date string) model.Streak {
	next := prev
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return prev
	}

	if prev.LastDate != "" {
		last, err := time.Parse("2006-01-02", prev.LastDate)
		if err == nil {
			switch {
			case !day.After(last):
				return prev
			case day.Equal(last.AddDate(0, 0, 1)):
				next.Current = prev.Current + 1
			default:
				next.Current = 1
			}
		} else {
			next.Current = 1
		}
	} else {
		next.Current = 1
	}

	if next.Current > next.Best {
		next.Best = next.Current
	}
	next.LastDate = date
	return next
}

// Streak returns the user's current and best streak.
func (e *Engine) Streak(userID string) (model.Streak, error) {
	st, err := e.store.GetStreak(userID)
	if err != nil {
		return model.Streak{}, apperror.Storage("load streak", err)
	}
	return st, nil
}

// Standing returns the user's points, XP and level.
func (e *Engine) Standing(userID string) (*model.Participant, error) {
	p, err := e.store.GetParticipant(userID)
	if err != nil {
		return nil, apperror.Storage("load standing", err)
	}
	return p, nil
}

// TopByPoints returns the leaderboard, excluding the given user IDs.
func (e *Engine) TopByPoints(exclude []string, limit int) ([]model.Standing, error) {
	top, err := e.store.TopByPoints(exclude, limit)
	if err != nil {
		return nil, apperror.Storage("load leaderboard", err)
	}
	return top, nil
}

// TopStreaks returns the longest current streaks.
func (e *Engine) TopStreaks(limit int) ([]model.Streak, error) {
	top, err := e.store.TopStreaks(limit)
	if err != nil {
		return nil, apperror.Storage("load streakboard", err)
	}
	return top, nil
}
