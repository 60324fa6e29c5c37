package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kiliankoe/sketchdash/internal/game"
)

const submissionColumns = `id, session_id, player_id, round_number, first_scene_image, second_scene_image,
	first_scene_analysis, second_scene_analysis, video_url, video_status, submitted_at, is_complete, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*game.Submission, int64, error) {
	sub := &game.Submission{}
	var submittedAt, version int64
	var complete int
	err := row.Scan(
		&sub.ID,
		&sub.SessionID,
		&sub.PlayerID,
		&sub.RoundNumber,
		&sub.FirstSceneImage,
		&sub.SecondSceneImage,
		&sub.FirstSceneAnalysis,
		&sub.SecondSceneAnalysis,
		&sub.VideoURL,
		&sub.VideoStatus,
		&submittedAt,
		&complete,
		&version,
	)
	if err != nil {
		return nil, 0, err
	}
	sub.SubmittedAt = fromUnix(submittedAt)
	sub.IsComplete = complete == 1
	return sub, version, nil
}

func (s *Store) InsertSubmission(ctx context.Context, sub *game.Submission) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO submissions (`+submissionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`,
		sub.ID,
		sub.SessionID,
		sub.PlayerID,
		sub.RoundNumber,
		sub.FirstSceneImage,
		sub.SecondSceneImage,
		sub.FirstSceneAnalysis,
		sub.SecondSceneAnalysis,
		sub.VideoURL,
		string(sub.VideoStatus),
		toUnix(sub.SubmittedAt),
		boolToInt(sub.IsComplete),
	)
	if isUniqueViolation(err) {
		return game.ErrDuplicateSubmission
	}
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (s *Store) getSubmission(ctx context.Context, where string, args ...any) (*game.Submission, int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE `+where, args...)
	sub, version, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, game.ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get submission: %w", err)
	}
	return sub, version, nil
}

func (s *Store) GetSubmission(ctx context.Context, id string) (*game.Submission, error) {
	sub, _, err := s.getSubmission(ctx, `id = ?`, id)
	return sub, err
}

func (s *Store) FindSubmission(ctx context.Context, sessionID, playerID string, round int) (*game.Submission, error) {
	sub, _, err := s.getSubmission(ctx, `session_id = ? AND player_id = ? AND round_number = ?`, sessionID, playerID, round)
	return sub, err
}

func (s *Store) UpdateSubmission(ctx context.Context, id string, fn func(*game.Submission) error) (*game.Submission, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		sub, version, err := s.getSubmission(ctx, `id = ?`, id)
		if err != nil {
			return nil, err
		}
		next := sub.Clone()
		if err := fn(next); err != nil {
			return nil, err
		}
		next.ID, next.SessionID, next.PlayerID, next.RoundNumber = sub.ID, sub.SessionID, sub.PlayerID, sub.RoundNumber

		res, err := s.db.ExecContext(ctx, `
			UPDATE submissions SET
				first_scene_image = ?, second_scene_image = ?,
				first_scene_analysis = ?, second_scene_analysis = ?,
				video_url = ?, video_status = ?, submitted_at = ?, is_complete = ?,
				version = version + 1
			WHERE id = ? AND version = ?
		`,
			next.FirstSceneImage,
			next.SecondSceneImage,
			next.FirstSceneAnalysis,
			next.SecondSceneAnalysis,
			next.VideoURL,
			string(next.VideoStatus),
			toUnix(next.SubmittedAt),
			boolToInt(next.IsComplete),
			id,
			version,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update submission: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return next, nil
		}
	}
	return nil, fmt.Errorf("submission %s: %w", id, game.ErrConflict)
}

func (s *Store) ListSubmissions(ctx context.Context, sessionID string, round int) ([]*game.Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+submissionColumns+` FROM submissions
		WHERE session_id = ? AND round_number = ?
		ORDER BY submitted_at, rowid
	`, sessionID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	out := []*game.Submission{}
	for rows.Next() {
		sub, _, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
