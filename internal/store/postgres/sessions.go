package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kiliankoe/sketchdash/internal/game"
)

func (s *Store) CreateSession(ctx context.Context, sess *game.Session) error {
	body, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	return s.inTx(ctx, func(tx pgx.Tx) error {
		// serializes creators racing for the same code
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, sess.Code); err != nil {
			return fmt.Errorf("failed to lock session code: %w", err)
		}
		var live bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM sessions WHERE code = $1 AND expires_at > $2)`,
			sess.Code, sess.CreatedAt,
		).Scan(&live)
		if err != nil {
			return fmt.Errorf("failed to check session code: %w", err)
		}
		if live {
			return game.ErrCodeTaken
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO sessions (id, code, created_at, expires_at, body)
			VALUES ($1, $2, $3, $4, $5)
		`, sess.ID, sess.Code, sess.CreatedAt, sess.ExpiresAt, body)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		return nil
	})
}

func scanSession(row pgx.Row) (*game.Session, error) {
	var body []byte
	if err := row.Scan(&body); err != nil {
		if notFound(err) {
			return nil, game.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	sess := &game.Session{}
	if err := json.Unmarshal(body, sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*game.Session, error) {
	return scanSession(s.pool.QueryRow(ctx, `SELECT body FROM sessions WHERE id = $1`, id))
}

func (s *Store) GetSessionByCode(ctx context.Context, code string) (*game.Session, error) {
	return scanSession(s.pool.QueryRow(ctx,
		`SELECT body FROM sessions WHERE code = $1 ORDER BY created_at DESC LIMIT 1`, code))
}

// UpdateSession locks the row with SELECT ... FOR UPDATE, so concurrent
// updates of one session run one after another.
func (s *Store) UpdateSession(ctx context.Context, id string, fn func(*game.Session) error) (*game.Session, error) {
	var out *game.Session
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		sess, err := scanSession(tx.QueryRow(ctx, `SELECT body FROM sessions WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if err := fn(sess); err != nil {
			return err
		}
		sess.ID = id
		body, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE sessions SET body = $1, expires_at = $2 WHERE id = $3`,
			body, sess.ExpiresAt, id,
		); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		out = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
