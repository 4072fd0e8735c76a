package db

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loopbot/model"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(sqlx.NewDb(db, "sqlmock")), mock
}

func TestInsertVote_StorageErrorRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO votes").
		WithArgs("bob", int64(1), 8, sqlmock.AnyArg(), "graded").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := s.InsertVote(model.Vote{SubmissionID: 1, VoterID: "bob", Score: 8, Kind: model.VoteGraded, CastAt: t0}, nil)
	assert.EqualError(t, err, "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertVote_UniqueViolationIsConflict(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO votes").
		WillReturnError(errors.New("UNIQUE constraint failed: votes.user_id, votes.submission_id"))
	mock.ExpectRollback()

	err := s.InsertVote(model.Vote{SubmissionID: 1, VoterID: "bob", Score: 1, Kind: model.VoteUnit, CastAt: t0}, nil)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditPoints_RankingFailureDiscardsCredit(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO credits").
		WithArgs("submission:9", "alice", 1, "submission", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO rankings").
		WithArgs("alice", 1).
		WillReturnError(errors.New("database is locked"))
	mock.ExpectRollback()

	granted, err := s.CreditPoints(Credit{Key: "submission:9", UserID: "alice", Delta: 1, Reason: "submission"}, t0)
	assert.Error(t, err)
	assert.False(t, granted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSubmission_QueryError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT \\* FROM").WithArgs(int64(4)).WillReturnError(errors.New("no such table: link_submissions"))

	sub, err := s.GetSubmission(4)
	assert.Error(t, err)
	assert.Nil(t, sub)
	assert.NoError(t, mock.ExpectationsWereMet())
}
