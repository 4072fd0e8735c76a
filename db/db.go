package db

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

const dbDriver = "sqlite3"

// ErrConflict is returned when a write hits a unique constraint.
var ErrConflict = errors.New("unique constraint violation")

// Store owns the SQLite database shared by every component.
type Store struct {
	DB *sqlx.DB
}

// NewStore wraps an existing connection. Migrations are not applied.
func NewStore(db *sqlx.DB) *Store {
	return &Store{DB: db}
}

// Open opens the database file at path, verifies it is usable and applies migrations.
// It fails fast if the parent directory is missing or the file cannot be read.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("data directory %s is not available: %w", dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("data directory %s is not a directory", dir)
		}
		if f, err := os.Open(path); err == nil {
			f.Close()
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("database file %s is not readable: %w", path, err)
		}
	}

	db, err := sqlx.Open(dbDriver, path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serialises writers; one connection keeps in-memory databases intact too.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := NewStore(db)
	if err := s.ApplyMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("Database connection initialized successfully in %s", path)
	return s, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.DB.Close()
}

// isUniqueViolation reports whether err came from a primary key or unique index.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
