package db

import (
	"database/sql"
	"errors"

	"loopbot/model"
)

// UpdateStreak loads the user's streak, applies next for the given UTC date and stores the result.
func (s *Store) UpdateStreak(userID, date string, next func(prev model.Streak, date string) model.Streak) (model.Streak, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return model.Streak{}, err
	}
	defer tx.Rollback()

	prev := model.Streak{UserID: userID}
	var lastDate sql.NullString
	err = tx.QueryRowx("SELECT current, best, last_date FROM streaks WHERE user_id = ?", userID).
		Scan(&prev.Current, &prev.Best, &lastDate)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return model.Streak{}, err
	}
	prev.LastDate = lastDate.String

	cur := next(prev, date)
	_, err = tx.Exec(`INSERT INTO streaks (user_id, current, best, last_date) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET current = excluded.current, best = excluded.best, last_date = excluded.last_date`,
		userID, cur.Current, cur.Best, cur.LastDate)
	if err != nil {
		return model.Streak{}, err
	}
	return cur, tx.Commit()
}

// GetStreak returns the user's streak. Users without submissions get a zero streak.
func (s *Store) GetStreak(userID string) (model.Streak, error) {
	st := model.Streak{UserID: userID}
	var lastDate sql.NullString
	err := s.DB.QueryRowx("SELECT current, best, last_date FROM streaks WHERE user_id = ?", userID).
		Scan(&st.Current, &st.Best, &lastDate)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return model.Streak{}, err
	}
	st.LastDate = lastDate.String
	return st, nil
}

// TopStreaks returns the longest current streaks.
func (s *Store) TopStreaks(limit int) ([]model.Streak, error) {
	var streaks []model.Streak
	err := s.DB.Select(&streaks, `SELECT user_id, current, best, COALESCE(last_date, '') AS last_date
		FROM streaks WHERE current > 0
		ORDER BY current DESC, best DESC, user_id ASC LIMIT ?`, limit)
	return streaks, err
}
