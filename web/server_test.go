package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loopbot/db"
	"loopbot/model"
	"loopbot/ranking"
	"loopbot/vote"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *Hub, *db.Store) {
	t.Helper()
	store, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	rank := ranking.NewEngine(store, model.Roles{})
	votes := vote.NewEngine(store, 24*time.Hour, vote.DefaultPolicy)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := NewHub()
	go hub.Run(ctx)

	s := NewServer(hub, rank, votes, rank, func() []string { return []string{"bot"} })
	s.now = func() time.Time { return t0 }
	return s, hub, store
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestLeaderboardEndpoint(t *testing.T) {
	s, _, store := newTestServer(t)
	_, err := store.CreditPoints(db.Credit{Key: "k1", UserID: "a", Delta: 2, Reason: "seed"}, t0)
	require.NoError(t, err)
	_, err = store.CreditPoints(db.Credit{Key: "k2", UserID: "bot", Delta: 9, Reason: "seed"}, t0)
	require.NoError(t, err)

	rec := get(t, s, "/api/leaderboard?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var standings []model.Standing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &standings))
	assert.Equal(t, []model.Standing{{UserID: "a", Points: 2}}, standings)
}

func TestLeaderboardEndpoint_BadLimit(t *testing.T) {
	s, _, _ := newTestServer(t)
	for _, q := range []string{"0", "26", "abc"} {
		rec := get(t, s, "/api/leaderboard?limit="+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestTrendingEndpoint(t *testing.T) {
	s, _, store := newTestServer(t)
	sub, _, err := store.InsertSubmission(model.Submission{
		AuthorID: "A", Kind: model.SubmissionLink, Payload: "https://loop.test/1",
		Tags: []string{"music"}, CreatedAt: t0.Add(-2 * time.Hour), SourceRef: "m-1",
	})
	require.NoError(t, err)
	require.NoError(t, store.InsertVote(model.Vote{SubmissionID: sub.ID, VoterID: "B", Score: 6, Kind: model.VoteGraded, CastAt: t0.Add(-time.Hour)}, nil))

	rec := get(t, s, "/api/trending")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []trendingEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, sub.ID, entries[0].SubmissionID)
	assert.Equal(t, 6, entries[0].Total)
	assert.Equal(t, []string{"music"}, entries[0].Tags)

	rec = get(t, s, "/api/trending?hours=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreaksEndpoint_Empty(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec := get(t, s, "/api/streaks")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestWebSocketBroadcast(t *testing.T) {
	s, hub, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	// Registration is asynchronous; publish until the client receives one.
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	received := make(chan Event, 1)
	go func() {
		var ev Event
		if err := conn.ReadJSON(&ev); err == nil {
			received <- ev
		}
	}()

	deadline := time.After(5 * time.Second)
	for {
		hub.Publish("vote", map[string]any{"submission_id": 1})
		select {
		case ev := <-received:
			assert.Equal(t, "vote", ev.Type)
			return
		case <-deadline:
			t.Fatal("no websocket event received")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
