package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"loopbot/model"
)

type fakePoints struct {
	standings []model.Standing
	exclude   []string
	limit     int
	err       error
}

func (f *fakePoints) TopByPoints(exclude []string, limit int) ([]model.Standing, error) {
	f.exclude, f.limit = exclude, limit
	return f.standings, f.err
}

type fakeVotes struct {
	window time.Duration
	top    []model.ScoredSubmission
}

func (f *fakeVotes) Window() time.Duration { return 24 * time.Hour }

func (f *fakeVotes) TopByVotes(window time.Duration, limit int, now time.Time) ([]model.ScoredSubmission, error) {
	f.window = window
	return f.top, nil
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestTopPoints(t *testing.T) {
	points := &fakePoints{standings: []model.Standing{{UserID: "a", Points: 3}}}
	svc := NewLeaderboardService(points, &fakeVotes{}, func() []string { return []string{"bot"} })

	resp, err := svc.TopPoints(context.Background(), mustStruct(t, nil))
	require.NoError(t, err)
	assert.Equal(t, 5, points.limit)
	assert.Equal(t, []string{"bot"}, points.exclude)

	entries := resp.AsMap()["entries"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].(map[string]any)["user_id"])
	assert.Equal(t, float64(3), entries[0].(map[string]any)["points"])
}

func TestTopPoints_InvalidLimit(t *testing.T) {
	svc := NewLeaderboardService(&fakePoints{}, &fakeVotes{}, nil)
	for _, limit := range []any{0, 26, 2.5, "ten"} {
		_, err := svc.TopPoints(context.Background(), mustStruct(t, map[string]any{"limit": limit}))
		assert.Equal(t, codes.InvalidArgument, status.Code(err), "limit %v", limit)
	}
}

func TestTopPoints_StorageError(t *testing.T) {
	svc := NewLeaderboardService(&fakePoints{err: errors.New("disk I/O error")}, &fakeVotes{}, nil)
	_, err := svc.TopPoints(context.Background(), mustStruct(t, nil))
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestTopVotes_Window(t *testing.T) {
	votes := &fakeVotes{top: []model.ScoredSubmission{{
		Submission: model.Submission{ID: 7, AuthorID: "A", Kind: model.SubmissionLink, Payload: "https://loop.test"},
		Total:      9, Votes: 2,
	}}}
	svc := NewLeaderboardService(&fakePoints{}, votes, nil)

	resp, err := svc.TopVotes(context.Background(), mustStruct(t, nil))
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, votes.window)
	entry := resp.AsMap()["entries"].([]any)[0].(map[string]any)
	assert.Equal(t, float64(7), entry["submission_id"])
	assert.Equal(t, float64(9), entry["total"])

	_, err = svc.TopVotes(context.Background(), mustStruct(t, map[string]any{"window_hours": 48}))
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, votes.window)

	_, err = svc.TopVotes(context.Background(), mustStruct(t, map[string]any{"window_hours": -1}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}
