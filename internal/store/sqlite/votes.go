package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kiliankoe/sketchdash/internal/game"
)

const voteColumns = `id, session_id, voter_id, submission_id, round_number, voted_at`

func scanVote(row rowScanner) (*game.Vote, error) {
	v := &game.Vote{}
	var votedAt int64
	if err := row.Scan(&v.ID, &v.SessionID, &v.VoterID, &v.SubmissionID, &v.RoundNumber, &votedAt); err != nil {
		return nil, err
	}
	v.VotedAt = fromUnix(votedAt)
	return v, nil
}

func (s *Store) InsertVote(ctx context.Context, v *game.Vote) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO votes (`+voteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
	`, v.ID, v.SessionID, v.VoterID, v.SubmissionID, v.RoundNumber, toUnix(v.VotedAt))
	if isUniqueViolation(err) {
		return game.ErrDuplicateVote
	}
	if err != nil {
		return fmt.Errorf("failed to create vote: %w", err)
	}
	return nil
}

func (s *Store) ListVotes(ctx context.Context, sessionID string, round int) ([]*game.Vote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+voteColumns+` FROM votes
		WHERE session_id = ? AND round_number = ?
		ORDER BY voted_at, rowid
	`, sessionID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	out := []*game.Vote{}
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) FindVote(ctx context.Context, sessionID, voterID string, round int) (*game.Vote, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+voteColumns+` FROM votes
		WHERE session_id = ? AND voter_id = ? AND round_number = ?
	`, sessionID, voterID, round)
	v, err := scanVote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return v, nil
}
