package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kiliankoe/sketchdash/internal/game"
)

func (s *Store) CreateSession(ctx context.Context, sess *game.Session) error {
	body, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var live int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions WHERE code = ? AND expires_at > ?`,
		sess.Code, toUnix(sess.CreatedAt),
	).Scan(&live)
	if err != nil {
		return fmt.Errorf("failed to check session code: %w", err)
	}
	if live > 0 {
		return game.ErrCodeTaken
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, code, created_at, expires_at, version, body)
		VALUES (?, ?, ?, ?, 1, ?)
	`, sess.ID, sess.Code, toUnix(sess.CreatedAt), toUnix(sess.ExpiresAt), string(body))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return tx.Commit()
}

func (s *Store) GetSession(ctx context.Context, id string) (*game.Session, error) {
	sess, _, err := s.loadSession(ctx, `SELECT body, version FROM sessions WHERE id = ?`, id)
	return sess, err
}

func (s *Store) GetSessionByCode(ctx context.Context, code string) (*game.Session, error) {
	sess, _, err := s.loadSession(ctx,
		`SELECT body, version FROM sessions WHERE code = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, code)
	return sess, err
}

func (s *Store) loadSession(ctx context.Context, query string, arg any) (*game.Session, int64, error) {
	var body string
	var version int64
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&body, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, game.ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get session: %w", err)
	}
	sess := &game.Session{}
	if err := json.Unmarshal([]byte(body), sess); err != nil {
		return nil, 0, fmt.Errorf("failed to decode session: %w", err)
	}
	return sess, version, nil
}

// UpdateSession reads the session, applies fn and writes it back only if the
// stored version is still the one that was read. A lost race retries from a
// fresh read.
func (s *Store) UpdateSession(ctx context.Context, id string, fn func(*game.Session) error) (*game.Session, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		sess, version, err := s.loadSession(ctx, `SELECT body, version FROM sessions WHERE id = ?`, id)
		if err != nil {
			return nil, err
		}
		if err := fn(sess); err != nil {
			return nil, err
		}
		sess.ID = id
		body, err := json.Marshal(sess)
		if err != nil {
			return nil, fmt.Errorf("failed to encode session: %w", err)
		}
		res, err := s.db.ExecContext(ctx, `
			UPDATE sessions SET body = ?, expires_at = ?, version = version + 1
			WHERE id = ? AND version = ?
		`, string(body), toUnix(sess.ExpiresAt), id, version)
		if err != nil {
			return nil, fmt.Errorf("failed to update session: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return sess, nil
		}
	}
	return nil, fmt.Errorf("session %s: %w", id, game.ErrConflict)
}
