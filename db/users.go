package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"loopbot/model"
)

// CreditPoints adds c.Delta to the user's points unless c.Key was used before.
// It reports whether the credit was applied.
func (s *Store) CreditPoints(c Credit, now time.Time) (bool, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	granted, err := creditInTx(tx, c, now)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return granted, nil
}

// GetParticipant retrieves a user's points and XP. Unknown users get a zero record.
func (s *Store) GetParticipant(userID string) (*model.Participant, error) {
	p := &model.Participant{UserID: userID}

	err := s.DB.Get(&p.Points, "SELECT points FROM rankings WHERE user_id = ?", userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	var row struct {
		XP       int            `db:"xp"`
		Level    int            `db:"level"`
		LastXPTs sql.NullString `db:"last_xp_ts"`
	}
	err = s.DB.Get(&row, "SELECT xp, level, last_xp_ts FROM users WHERE user_id = ?", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, nil
		}
		return nil, err
	}
	p.XP = row.XP
	p.Level = row.Level
	if row.LastXPTs.Valid {
		if ts, err := parseTime(row.LastXPTs.String); err == nil {
			p.LastXPAt = &ts
		}
	}
	return p, nil
}

// TopByPoints returns the highest point totals, ties broken by user id.
func (s *Store) TopByPoints(exclude []string, limit int) ([]model.Standing, error) {
	query := "SELECT user_id, points FROM rankings"
	args := []interface{}{}
	if len(exclude) > 0 {
		q, inArgs, err := sqlx.In(" WHERE user_id NOT IN (?)", exclude)
		if err != nil {
			return nil, err
		}
		query += q
		args = append(args, inArgs...)
	}
	query += " ORDER BY points DESC, user_id ASC LIMIT ?"
	args = append(args, limit)

	var standings []model.Standing
	if err := s.DB.Select(&standings, query, args...); err != nil {
		return nil, err
	}
	return standings, nil
}

// GrantXP adds one XP to the user if at least interval has passed since the last grant.
// levelFor maps an XP total to a level. The grant is logged to xp_events.
func (s *Store) GrantXP(userID string, now time.Time, interval time.Duration, levelFor func(xp int) int) (model.XPGrant, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return model.XPGrant{}, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("INSERT OR IGNORE INTO users (user_id, xp, level) VALUES (?, 0, 0)", userID); err != nil {
		return model.XPGrant{}, err
	}

	res, err := tx.Exec(`UPDATE users SET xp = xp + 1, last_xp_ts = ?
		WHERE user_id = ? AND (last_xp_ts IS NULL OR last_xp_ts <= ?)`,
		formatTime(now), userID, formatTime(now.Add(-interval)))
	if err != nil {
		return model.XPGrant{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.XPGrant{}, err
	}

	var row struct {
		XP    int `db:"xp"`
		Level int `db:"level"`
	}
	if err := tx.Get(&row, "SELECT xp, level FROM users WHERE user_id = ?", userID); err != nil {
		return model.XPGrant{}, err
	}

	grant := model.XPGrant{XP: row.XP, Level: row.Level}
	if n == 0 {
		// Rate limited. Nothing was written except possibly the empty user row.
		return grant, tx.Commit()
	}
	grant.Granted = true

	newLevel := levelFor(row.XP)
	if newLevel != row.Level {
		if _, err := tx.Exec("UPDATE users SET level = ? WHERE user_id = ?", newLevel, userID); err != nil {
			return model.XPGrant{}, err
		}
		grant.LeveledUp = newLevel > row.Level
		grant.Level = newLevel
	}

	_, err = tx.Exec("INSERT INTO xp_events (user_id, delta, reason, ts) VALUES (?, 1, 'message', ?)",
		userID, formatTime(now))
	if err != nil {
		return model.XPGrant{}, err
	}

	return grant, tx.Commit()
}

// ToggleReminder flips the user's reminder opt-in and reports the new state.
func (s *Store) ToggleReminder(userID string) (bool, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM reminders WHERE user_id = ?", userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	enabled := n == 0
	if enabled {
		if _, err := tx.Exec("INSERT INTO reminders (user_id) VALUES (?)", userID); err != nil {
			return false, err
		}
	}
	return enabled, tx.Commit()
}

// ListReminders returns every user who opted in to reminder DMs.
func (s *Store) ListReminders() ([]string, error) {
	var ids []string
	err := s.DB.Select(&ids, "SELECT user_id FROM reminders ORDER BY user_id")
	return ids, err
}
