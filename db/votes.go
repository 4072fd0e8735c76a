package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"loopbot/model"
)

// Credit describes a point credit tied to the logical event that earned it.
type Credit struct {
	Key    string
	UserID string
	Delta  int
	Reason string
}

// InsertVote stores a vote and, in the same transaction, applies credit when it is non-nil.
// A second vote by the same voter on the same submission returns ErrConflict.
func (s *Store) InsertVote(v model.Vote, credit *Credit) error {
	tx, err := s.DB.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO votes (user_id, submission_id, score, timestamp, kind) VALUES (?, ?, ?, ?, ?)`,
		v.VoterID, v.SubmissionID, v.Score, formatTime(v.CastAt), string(v.Kind))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}

	if credit != nil {
		if _, err := creditInTx(tx, *credit, v.CastAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteUnitVote removes a reaction vote. Graded votes and mismatched scores are left alone.
func (s *Store) DeleteUnitVote(submissionID int64, voterID string, score int) (bool, error) {
	res, err := s.DB.Exec(`DELETE FROM votes WHERE submission_id = ? AND user_id = ? AND score = ? AND kind = ?`,
		submissionID, voterID, score, string(model.VoteUnit))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetVote returns the vote cast by voterID on a submission, or nil.
func (s *Store) GetVote(submissionID int64, voterID string) (*model.Vote, error) {
	var row struct {
		UserID       string `db:"user_id"`
		SubmissionID int64  `db:"submission_id"`
		Score        int    `db:"score"`
		Timestamp    string `db:"timestamp"`
		Kind         string `db:"kind"`
	}
	err := s.DB.Get(&row, `SELECT user_id, submission_id, score, timestamp, kind FROM votes WHERE submission_id = ? AND user_id = ?`,
		submissionID, voterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	castAt, err := parseTime(row.Timestamp)
	if err != nil {
		return nil, err
	}
	return &model.Vote{
		SubmissionID: row.SubmissionID,
		VoterID:      row.UserID,
		Score:        row.Score,
		Kind:         model.VoteKind(row.Kind),
		CastAt:       castAt,
	}, nil
}

// Tally returns the score total and vote count of a submission.
func (s *Store) Tally(submissionID int64) (total, count int, err error) {
	err = s.DB.QueryRowx(`SELECT COALESCE(SUM(score), 0), COUNT(*) FROM votes WHERE submission_id = ?`, submissionID).
		Scan(&total, &count)
	return total, count, err
}

// TopByVotes ranks submissions by the sum of votes cast since the given instant.
// Ties go to the earlier submission, then the lower id.
func (s *Store) TopByVotes(since time.Time, limit int) ([]model.ScoredSubmission, error) {
	var rows []struct {
		submissionRow
		Total int `db:"total"`
		Votes int `db:"votes"`
	}
	err := s.DB.Select(&rows, `
		SELECT s.id, s.user_id, s.payload, s.kind, s.timestamp, s.tags, s.thread_id, s.message_id, s.orig_message_id,
			SUM(v.score) AS total, COUNT(*) AS votes
		FROM votes v
		JOIN (`+submissionsUnion+`) s ON s.id = v.submission_id
		WHERE v.timestamp >= ?
		GROUP BY s.kind, s.id
		ORDER BY total DESC, s.timestamp ASC, s.id ASC
		LIMIT ?`, formatTime(since), limit)
	if err != nil {
		return nil, err
	}

	scored := make([]model.ScoredSubmission, 0, len(rows))
	for _, r := range rows {
		sub, err := r.toModel()
		if err != nil {
			return nil, err
		}
		scored = append(scored, model.ScoredSubmission{Submission: *sub, Total: r.Total, Votes: r.Votes})
	}
	return scored, nil
}

// creditInTx records the credit key and adds delta to the user's points.
// It reports false, without touching points, when the key was already used.
func creditInTx(tx *sqlx.Tx, c Credit, now time.Time) (bool, error) {
	res, err := tx.Exec(`INSERT INTO credits (credit_key, user_id, delta, reason, created_at)
		VALUES (?, ?, ?, ?, ?) ON CONFLICT(credit_key) DO NOTHING`,
		c.Key, c.UserID, c.Delta, c.Reason, formatTime(now))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.Exec(`INSERT INTO rankings (user_id, points) VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET points = points + excluded.points`, c.UserID, c.Delta)
	if err != nil {
		return false, err
	}
	return true, nil
}
