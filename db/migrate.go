package db

import (
	"fmt"
	"log"
	"strings"
)

var createTableStatements = []struct {
	name string
	sql  string
}{
	{"rankings", `
	CREATE TABLE IF NOT EXISTS rankings (
		user_id TEXT PRIMARY KEY,
		points INTEGER NOT NULL DEFAULT 0
	);`},
	{"audio_submissions", `
	CREATE TABLE IF NOT EXISTS audio_submissions (
		id INTEGER PRIMARY KEY,
		user_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		thread_id TEXT,
		message_id TEXT,
		orig_message_id TEXT,
		tags TEXT
	);`},
	{"link_submissions", `
	CREATE TABLE IF NOT EXISTS link_submissions (
		id INTEGER PRIMARY KEY,
		user_id TEXT NOT NULL,
		link TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		tags TEXT,
		thread_id TEXT,
		message_id TEXT,
		orig_message_id TEXT
	);`},
	{"votes", `
	CREATE TABLE IF NOT EXISTS votes (
		user_id TEXT NOT NULL,
		submission_id INTEGER NOT NULL,
		score INTEGER NOT NULL,
		timestamp TEXT NOT NULL,
		PRIMARY KEY (user_id, submission_id)
	);`},
	{"users", `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		xp INTEGER NOT NULL DEFAULT 0,
		level INTEGER NOT NULL DEFAULT 0,
		last_xp_ts TEXT
	);`},
	{"xp_events", `
	CREATE TABLE IF NOT EXISTS xp_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		delta INTEGER NOT NULL,
		reason TEXT,
		ts TEXT NOT NULL
	);`},
	{"streaks", `
	CREATE TABLE IF NOT EXISTS streaks (
		user_id TEXT PRIMARY KEY,
		current INTEGER NOT NULL DEFAULT 0,
		best INTEGER NOT NULL DEFAULT 0,
		last_date TEXT
	);`},
	{"reminders", `
	CREATE TABLE IF NOT EXISTS reminders (
		user_id TEXT PRIMARY KEY
	);`},
	// messages and message_votes hold votes keyed by public message identity.
	// They are read once per start and folded into votes.
	{"messages", `
	CREATE TABLE IF NOT EXISTS messages (
		message_id INTEGER PRIMARY KEY,
		channel_id INTEGER,
		author_id TEXT,
		timestamp TEXT
	);`},
	{"message_votes", `
	CREATE TABLE IF NOT EXISTS message_votes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		message_id INTEGER,
		voter_id TEXT,
		score INTEGER,
		ts TEXT,
		UNIQUE(message_id, voter_id)
	);`},
	{"id_counter", `
	CREATE TABLE IF NOT EXISTS id_counter (
		counter_name TEXT PRIMARY KEY,
		current_value INTEGER NOT NULL DEFAULT 0
	);`},
	{"credits", `
	CREATE TABLE IF NOT EXISTS credits (
		credit_key TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		delta INTEGER NOT NULL,
		reason TEXT,
		created_at TEXT NOT NULL
	);`},
}

// addColumnStatements bring databases created by older versions up to date.
var addColumnStatements = []string{
	"ALTER TABLE audio_submissions ADD COLUMN tags TEXT",
	"ALTER TABLE audio_submissions ADD COLUMN orig_message_id TEXT",
	"ALTER TABLE audio_submissions ADD COLUMN thread_id TEXT",
	"ALTER TABLE audio_submissions ADD COLUMN message_id TEXT",
	"ALTER TABLE link_submissions ADD COLUMN tags TEXT",
	"ALTER TABLE link_submissions ADD COLUMN orig_message_id TEXT",
	"ALTER TABLE link_submissions ADD COLUMN thread_id TEXT",
	"ALTER TABLE link_submissions ADD COLUMN message_id TEXT",
	"ALTER TABLE link_submissions ADD COLUMN timestamp TEXT",
	"ALTER TABLE votes ADD COLUMN timestamp TEXT",
	"ALTER TABLE votes ADD COLUMN kind TEXT NOT NULL DEFAULT 'graded'",
	"ALTER TABLE users ADD COLUMN last_xp_ts TEXT",
}

var uniqueIndexStatements = []struct {
	name string
	sql  string
}{
	{"idx_audio_orig_message", "CREATE UNIQUE INDEX IF NOT EXISTS idx_audio_orig_message ON audio_submissions(orig_message_id)"},
	{"idx_link_orig_message", "CREATE UNIQUE INDEX IF NOT EXISTS idx_link_orig_message ON link_submissions(orig_message_id)"},
}

var indexStatements = []string{
	"CREATE INDEX IF NOT EXISTS idx_audio_message ON audio_submissions(message_id)",
	"CREATE INDEX IF NOT EXISTS idx_link_message ON link_submissions(message_id)",
	"CREATE INDEX IF NOT EXISTS idx_votes_submission ON votes(submission_id)",
	"CREATE INDEX IF NOT EXISTS idx_votes_timestamp ON votes(timestamp)",
	"CREATE INDEX IF NOT EXISTS idx_xp_events_user ON xp_events(user_id)",
}

// normalizeStatements rewrite timestamps written by older versions
// (ISO-8601 with a "+00:00" offset) into the sortable layout.
var normalizeStatements = []string{
	`UPDATE votes SET timestamp = strftime('%Y-%m-%dT%H:%M:%fZ', timestamp)
	 WHERE timestamp NOT LIKE '%Z' AND strftime('%Y-%m-%dT%H:%M:%fZ', timestamp) IS NOT NULL`,
	`UPDATE audio_submissions SET timestamp = strftime('%Y-%m-%dT%H:%M:%fZ', timestamp)
	 WHERE timestamp NOT LIKE '%Z' AND strftime('%Y-%m-%dT%H:%M:%fZ', timestamp) IS NOT NULL`,
	`UPDATE link_submissions SET timestamp = strftime('%Y-%m-%dT%H:%M:%fZ', timestamp)
	 WHERE timestamp NOT LIKE '%Z' AND strftime('%Y-%m-%dT%H:%M:%fZ', timestamp) IS NOT NULL`,
	`UPDATE users SET last_xp_ts = strftime('%Y-%m-%dT%H:%M:%fZ', last_xp_ts)
	 WHERE last_xp_ts NOT LIKE '%Z' AND strftime('%Y-%m-%dT%H:%M:%fZ', last_xp_ts) IS NOT NULL`,
}

// foldMessageVotesSQL copies votes keyed by public message ID into votes keyed by submission ID.
// A score of 1 was a reaction vote and folds as a unit vote so removing the reaction still retracts it.
const foldMessageVotesSQL = `
	INSERT OR IGNORE INTO votes (user_id, submission_id, score, timestamp, kind)
	SELECT mv.voter_id, s.id, mv.score, COALESCE(mv.ts, '1970-01-01T00:00:00.000Z'),
		CASE WHEN mv.score = 1 THEN 'unit' ELSE 'graded' END
	FROM message_votes mv
	JOIN (
		SELECT id, CAST(message_id AS TEXT) AS mid FROM link_submissions WHERE message_id IS NOT NULL
		UNION ALL
		SELECT id, CAST(message_id AS TEXT) AS mid FROM audio_submissions WHERE message_id IS NOT NULL
	) s ON s.mid = CAST(mv.message_id AS TEXT)
	WHERE mv.voter_id IS NOT NULL AND mv.score IS NOT NULL`

// ApplyMigrations creates missing tables, adds missing columns and indexes.
// It is safe to run on every start, including against databases created by older versions.
func (s *Store) ApplyMigrations() error {
	for _, stmt := range createTableStatements {
		if _, err := s.DB.Exec(stmt.sql); err != nil {
			return fmt.Errorf("failed to create %s table: %w", stmt.name, err)
		}
	}

	for _, stmt := range addColumnStatements {
		_, err := s.DB.Exec(stmt)
		if err != nil && !isColumnExistsError(err) {
			return fmt.Errorf("failed to migrate column (%s): %w", stmt, err)
		}
	}

	if _, err := s.DB.Exec(foldMessageVotesSQL); err != nil {
		return fmt.Errorf("failed to fold message votes: %w", err)
	}

	for _, stmt := range normalizeStatements {
		if _, err := s.DB.Exec(stmt); err != nil {
			return fmt.Errorf("failed to normalize timestamps: %w", err)
		}
	}

	for _, stmt := range uniqueIndexStatements {
		_, err := s.DB.Exec(stmt.sql)
		if err == nil {
			continue
		}
		if !isUniqueViolation(err) {
			return fmt.Errorf("failed to create index %s: %w", stmt.name, err)
		}
		// Older databases may already hold duplicate source messages. Those rows are kept;
		// RecordSubmission still checks for an existing source message before inserting.
		log.Printf("⚠️ %s not created, existing rows contain duplicates: %v", stmt.name, err)
	}

	for _, stmt := range indexStatements {
		if _, err := s.DB.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	// The counter starts above any id already used so both tables share one id space from now on.
	_, err := s.DB.Exec("INSERT OR IGNORE INTO id_counter(counter_name, current_value) VALUES('submission_id', 0)")
	if err != nil {
		return fmt.Errorf("failed to initialize submission counter: %w", err)
	}
	_, err = s.DB.Exec(`
		UPDATE id_counter SET current_value = MAX(
			current_value,
			(SELECT COALESCE(MAX(id), 0) FROM link_submissions),
			(SELECT COALESCE(MAX(id), 0) FROM audio_submissions)
		) WHERE counter_name = 'submission_id'`)
	if err != nil {
		return fmt.Errorf("failed to advance submission counter: %w", err)
	}

	log.Println("Database tables initialized successfully.")
	return nil
}

// isColumnExistsError checks if the error is due to column already existing
func isColumnExistsError(err error) bool {
	return strings.Contains(err.Error(), "duplicate column name")
}
