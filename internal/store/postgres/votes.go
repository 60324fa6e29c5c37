package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kiliankoe/sketchdash/internal/game"
)

const voteColumns = `id, session_id, voter_id, submission_id, round_number, voted_at`

func scanVote(row pgx.Row) (*game.Vote, error) {
	v := &game.Vote{}
	if err := row.Scan(&v.ID, &v.SessionID, &v.VoterID, &v.SubmissionID, &v.RoundNumber, &v.VotedAt); err != nil {
		if notFound(err) {
			return nil, game.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan vote: %w", err)
	}
	v.VotedAt = v.VotedAt.UTC()
	return v, nil
}

func (s *Store) InsertVote(ctx context.Context, v *game.Vote) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO votes (`+voteColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, v.ID, v.SessionID, v.VoterID, v.SubmissionID, v.RoundNumber, v.VotedAt)
	if isUniqueViolation(err) {
		return game.ErrDuplicateVote
	}
	if err != nil {
		return fmt.Errorf("failed to create vote: %w", err)
	}
	return nil
}

func (s *Store) ListVotes(ctx context.Context, sessionID string, round int) ([]*game.Vote, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+voteColumns+` FROM votes
		WHERE session_id = $1 AND round_number = $2
		ORDER BY voted_at, seq
	`, sessionID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	out := []*game.Vote{}
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) FindVote(ctx context.Context, sessionID, voterID string, round int) (*game.Vote, error) {
	return scanVote(s.pool.QueryRow(ctx, `
		SELECT `+voteColumns+` FROM votes
		WHERE session_id = $1 AND voter_id = $2 AND round_number = $3
	`, sessionID, voterID, round))
}
