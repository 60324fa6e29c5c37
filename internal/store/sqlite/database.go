package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// maxCASAttempts bounds the optimistic update loop.
const maxCASAttempts = 16

// Store implements game.Store on a single SQLite file.
type Store struct {
	db *sql.DB
}

// New opens the database at dbPath and creates the schema if needed.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time; concurrent callers queue on the pool
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		body TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		player_id TEXT NOT NULL,
		round_number INTEGER NOT NULL,
		first_scene_image TEXT NOT NULL,
		second_scene_image TEXT NOT NULL,
		first_scene_analysis TEXT NOT NULL DEFAULT '',
		second_scene_analysis TEXT NOT NULL DEFAULT '',
		video_url TEXT NOT NULL DEFAULT '',
		video_status TEXT NOT NULL,
		submitted_at INTEGER NOT NULL,
		is_complete INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE,
		UNIQUE(session_id, player_id, round_number)
	);

	CREATE TABLE IF NOT EXISTS votes (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		voter_id TEXT NOT NULL,
		submission_id TEXT NOT NULL,
		round_number INTEGER NOT NULL,
		voted_at INTEGER NOT NULL,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE,
		UNIQUE(session_id, voter_id, round_number)
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_code ON sessions(code, created_at);
	CREATE INDEX IF NOT EXISTS idx_submissions_round ON submissions(session_id, round_number, submitted_at);
	CREATE INDEX IF NOT EXISTS idx_votes_round ON votes(session_id, round_number, voted_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// Times are stored as unix nanoseconds so ORDER BY matches time order.
func toUnix(t time.Time) int64 { return t.UnixNano() }

func fromUnix(n int64) time.Time { return time.Unix(0, n).UTC() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
