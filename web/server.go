// Package web serves the read-only leaderboard API and the live event feed.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"loopbot/model"
)

const maxLimit = 25

type PointsSource interface {
	TopByPoints(exclude []string, limit int) ([]model.Standing, error)
}

type VotesSource interface {
	Window() time.Duration
	TopByVotes(window time.Duration, limit int, now time.Time) ([]model.ScoredSubmission, error)
}

type StreakSource interface {
	TopStreaks(limit int) ([]model.Streak, error)
}

type Server struct {
	router   *mux.Router
	hub      *Hub
	upgrader websocket.Upgrader

	points  PointsSource
	votes   VotesSource
	streaks StreakSource
	exclude func() []string
	now     func() time.Time
}

// NewServer builds the router. The hub must be running for /ws to accept clients.
func NewServer(hub *Hub, points PointsSource, votes VotesSource, streaks StreakSource, exclude func() []string) *Server {
	s := &Server{
		router: mux.NewRouter(),
		hub:    hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		points:  points,
		votes:   votes,
		streaks: streaks,
		exclude: exclude,
		now:     time.Now,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods("GET")
	api.HandleFunc("/trending", s.handleTrending).Methods("GET")
	api.HandleFunc("/streaks", s.handleStreaks).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Printf("HTTP API listening on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	var exclude []string
	if s.exclude != nil {
		exclude = s.exclude()
	}
	standings, err := s.points.TopByPoints(exclude, limit)
	if err != nil {
		log.Printf("Error loading leaderboard: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}
	if standings == nil {
		standings = []model.Standing{}
	}
	writeJSON(w, http.StatusOK, standings)
}

type trendingEntry struct {
	SubmissionID int64     `json:"submission_id"`
	AuthorID     string    `json:"author_id"`
	Kind         string    `json:"kind"`
	Payload      string    `json:"payload"`
	Tags         []string  `json:"tags"`
	CreatedAt    time.Time `json:"created_at"`
	Total        int       `json:"total"`
	Votes        int       `json:"votes"`
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	window := s.votes.Window()
	if raw := r.URL.Query().Get("hours"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours < 1 || hours > 24*31 {
			writeError(w, http.StatusBadRequest, "hours must be an integer between 1 and 744")
			return
		}
		window = time.Duration(hours) * time.Hour
	}

	top, err := s.votes.TopByVotes(window, limit, s.now())
	if err != nil {
		log.Printf("Error loading trending submissions: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load trending submissions")
		return
	}
	entries := make([]trendingEntry, 0, len(top))
	for _, sub := range top {
		entries = append(entries, trendingEntry{
			SubmissionID: sub.ID,
			AuthorID:     sub.AuthorID,
			Kind:         string(sub.Kind),
			Payload:      sub.Payload,
			Tags:         sub.Tags,
			CreatedAt:    sub.CreatedAt,
			Total:        sub.Total,
			Votes:        sub.Votes,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleStreaks(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	streaks, err := s.streaks.TopStreaks(limit)
	if err != nil {
		log.Printf("Error loading streaks: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load streaks")
		return
	}
	if streaks == nil {
		streaks = []model.Streak{}
	}
	writeJSON(w, http.StatusOK, streaks)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	if !s.hub.attach(conn) {
		conn.Close()
	}
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 10, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 || limit > maxLimit {
		writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 25")
		return 0, false
	}
	return limit, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
