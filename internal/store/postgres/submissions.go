package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kiliankoe/sketchdash/internal/game"
)

const submissionColumns = `id, session_id, player_id, round_number, first_scene_image, second_scene_image,
	first_scene_analysis, second_scene_analysis, video_url, video_status, submitted_at, is_complete`

func scanSubmission(row pgx.Row) (*game.Submission, error) {
	sub := &game.Submission{}
	var status string
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
		&status,
		&sub.SubmittedAt,
		&sub.IsComplete,
	)
	if err != nil {
		if notFound(err) {
			return nil, game.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan submission: %w", err)
	}
	sub.VideoStatus = game.VideoStatus(status)
	sub.SubmittedAt = sub.SubmittedAt.UTC()
	return sub, nil
}

func (s *Store) InsertSubmission(ctx context.Context, sub *game.Submission) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO submissions (`+submissionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
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
		sub.SubmittedAt,
		sub.IsComplete,
	)
	if isUniqueViolation(err) {
		return game.ErrDuplicateSubmission
	}
	if err != nil {
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (s *Store) GetSubmission(ctx context.Context, id string) (*game.Submission, error) {
	return scanSubmission(s.pool.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id))
}

func (s *Store) FindSubmission(ctx context.Context, sessionID, playerID string, round int) (*game.Submission, error) {
	return scanSubmission(s.pool.QueryRow(ctx, `
		SELECT `+submissionColumns+` FROM submissions
		WHERE session_id = $1 AND player_id = $2 AND round_number = $3
	`, sessionID, playerID, round))
}

func (s *Store) UpdateSubmission(ctx context.Context, id string, fn func(*game.Submission) error) (*game.Submission, error) {
	var out *game.Submission
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		sub, err := scanSubmission(tx.QueryRow(ctx,
			`SELECT `+submissionColumns+` FROM submissions WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		next := sub.Clone()
		if err := fn(next); err != nil {
			return err
		}
		next.ID, next.SessionID, next.PlayerID, next.RoundNumber = sub.ID, sub.SessionID, sub.PlayerID, sub.RoundNumber

		_, err = tx.Exec(ctx, `
			UPDATE submissions SET
				first_scene_image = $1, second_scene_image = $2,
				first_scene_analysis = $3, second_scene_analysis = $4,
				video_url = $5, video_status = $6, submitted_at = $7, is_complete = $8
			WHERE id = $9
		`,
			next.FirstSceneImage,
			next.SecondSceneImage,
			next.FirstSceneAnalysis,
			next.SecondSceneAnalysis,
			next.VideoURL,
			string(next.VideoStatus),
			next.SubmittedAt,
			next.IsComplete,
			id,
		)
		if err != nil {
			return fmt.Errorf("failed to update submission: %w", err)
		}
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListSubmissions(ctx context.Context, sessionID string, round int) ([]*game.Submission, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+submissionColumns+` FROM submissions
		WHERE session_id = $1 AND round_number = $2
		ORDER BY submitted_at, seq
	`, sessionID, round)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	out := []*game.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
