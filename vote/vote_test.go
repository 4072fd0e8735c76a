package vote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loopbot/apperror"
	"loopbot/db"
	"loopbot/model"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *db.Store) {
	t.Helper()
	store, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewEngine(store, 24*time.Hour, DefaultPolicy), store
}

func seedSubmission(t *testing.T, store *db.Store, author, ref string, at time.Time) *model.Submission {
	t.Helper()
	sub, _, err := store.InsertSubmission(model.Submission{
		AuthorID: author, Kind: model.SubmissionLink, Payload: "https://loop.test/" + ref,
		Tags: []string{"music"}, CreatedAt: at, SourceRef: ref,
	})
	require.NoError(t, err)
	return sub
}

func TestCastVote_Scenario(t *testing.T) {
	e, store := newTestEngine(t)
	sub := seedSubmission(t, store, "A", "m-1", t0)

	_, err := e.CastVote(sub.ID, "B", model.VoteGraded, 8, t0.Add(time.Hour))
	require.NoError(t, err)

	_, err = e.CastVote(sub.ID, "B", model.VoteGraded, 9, t0.Add(2*time.Hour))
	assert.ErrorIs(t, err, apperror.ErrDuplicate)

	_, err = e.CastVote(sub.ID, "C", model.VoteGraded, 10, t0.Add(25*time.Hour))
	assert.ErrorIs(t, err, apperror.ErrWindowClosed)

	total, count, err := e.Tally(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, total)
	assert.Equal(t, 1, count)

	voter, err := store.GetParticipant("B")
	require.NoError(t, err)
	assert.Equal(t, 1, voter.Points)
}

func TestCastVote_WindowBoundary(t *testing.T) {
	e, store := newTestEngine(t)
	sub := seedSubmission(t, store, "A", "m-1", t0)

	_, err := e.CastVote(sub.ID, "late", model.VoteUnit, 1, t0.Add(24*time.Hour+time.Second))
	assert.ErrorIs(t, err, apperror.ErrWindowClosed)

	_, err = e.CastVote(sub.ID, "edge", model.VoteUnit, 1, t0.Add(24*time.Hour))
	assert.NoError(t, err)
}

func TestCastVote_Validation(t *testing.T) {
	e, store := newTestEngine(t)
	sub := seedSubmission(t, store, "A", "m-1", t0)

	_, err := e.CastVote(sub.ID, "B", model.VoteGraded, 11, t0)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = e.CastVote(sub.ID, "B", model.VoteGraded, 0, t0)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = e.CastVote(sub.ID, "B", model.VoteUnit, 2, t0)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = e.CastVote(999, "B", model.VoteUnit, 1, t0)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCastVote_UnitVotesEarnNoPoints(t *testing.T) {
	e, store := newTestEngine(t)
	sub := seedSubmission(t, store, "A", "m-1", t0)

	_, err := e.CastVote(sub.ID, "B", model.VoteUnit, 1, t0)
	require.NoError(t, err)

	p, err := store.GetParticipant("B")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Points)
}

func TestRetractVote(t *testing.T) {
	e, store := newTestEngine(t)
	sub := seedSubmission(t, store, "A", "m-1", t0)

	_, err := e.CastVote(sub.ID, "B", model.VoteUnit, 1, t0)
	require.NoError(t, err)
	_, err = e.CastVote(sub.ID, "C", model.VoteGraded, 7, t0)
	require.NoError(t, err)

	require.NoError(t, e.RetractVote(sub.ID, "B", 1))
	require.NoError(t, e.RetractVote(sub.ID, "B", 1))
	require.NoError(t, e.RetractVote(sub.ID, "C", 7))

	total, count, err := e.Tally(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	assert.Equal(t, 1, count)

	_, err = e.CastVote(sub.ID, "B", model.VoteUnit, 1, t0.Add(time.Minute))
	assert.NoError(t, err, "a retracted reaction can be added again")
}

func TestResolveSubmissionFor_PrefersDirectRef(t *testing.T) {
	e, store := newTestEngine(t)
	first := seedSubmission(t, store, "A", "m-1", t0)
	second := seedSubmission(t, store, "B", "m-2", t0)
	_, err := store.AttachPublicRef(first, "hall-1")
	require.NoError(t, err)
	_, err = store.AttachPublicRef(second, "hall-2")
	require.NoError(t, err)

	got, err := e.ResolveSubmissionFor("hall-1", "hall-2")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	got, err = e.ResolveSubmissionFor("", "hall-2")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	got, err = e.ResolveSubmissionFor("m-1", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID, "source message resolves too")

	got, err = e.ResolveSubmissionFor("unknown", "hall-2")
	require.NoError(t, err)
	assert.Nil(t, got, "fallback is not used when a direct reference exists")
}

func TestTopByVotes_Deterministic(t *testing.T) {
	e, store := newTestEngine(t)
	a := seedSubmission(t, store, "A", "m-1", t0)
	b := seedSubmission(t, store, "B", "m-2", t0)

	now := t0.Add(time.Hour)
	_, err := e.CastVote(b.ID, "x", model.VoteGraded, 6, now)
	require.NoError(t, err)
	_, err = e.CastVote(a.ID, "y", model.VoteGraded, 6, now)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		top, err := e.TopByVotes(24*time.Hour, 5, now)
		require.NoError(t, err)
		require.Len(t, top, 2)
		assert.Equal(t, a.ID, top[0].ID)
		assert.Equal(t, b.ID, top[1].ID)
	}
}
