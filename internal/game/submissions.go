package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Submissions accepts drawings and tracks their video artifacts.
type Submissions struct {
	store Store
	opts  Options
	queue VideoQueue
}

func (m *Submissions) SetVideoQueue(q VideoQueue) { m.queue = q }

// SubmitScenes stores the player's two sketches for a round. A second call for
// the same player and round replaces the sketches on the existing record and
// returns its id.
func (m *Submissions) SubmitScenes(ctx context.Context, sessionID, playerID string, round int, firstScene, secondScene string, analyses SceneAnalyses) (string, error) {
	sess, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	now := m.opts.Clock()
	sub := &Submission{
		ID:                  uuid.NewString(),
		SessionID:           sessionID,
		PlayerID:            playerID,
		RoundNumber:         round,
		FirstSceneImage:     firstScene,
		SecondSceneImage:    secondScene,
		FirstSceneAnalysis:  analyses.First,
		SecondSceneAnalysis: analyses.Second,
		VideoStatus:         VideoPending,
		SubmittedAt:         now,
		IsComplete:          true,
	}
	err = m.store.InsertSubmission(ctx, sub)
	if errors.Is(err, ErrDuplicateSubmission) {
		sub, err = m.replaceScenes(ctx, sub)
	}
	if err != nil {
		return "", fmt.Errorf("submit scenes: %w", err)
	}
	log.Info().Str("code", sess.Code).Str("playerId", playerID).Int("round", round).Str("submissionId", sub.ID).Msg("scenes submitted")

	if m.queue != nil && !m.queue.Enqueue(sub, sess.CurrentPrompt) {
		log.Warn().Str("submissionId", sub.ID).Msg("video queue full, submission left pending")
	}
	m.opts.Notifier.SessionChanged(ctx, sess, "submit")
	return sub.ID, nil
}

func (m *Submissions) replaceScenes(ctx context.Context, fresh *Submission) (*Submission, error) {
	existing, err := m.store.FindSubmission(ctx, fresh.SessionID, fresh.PlayerID, fresh.RoundNumber)
	if err != nil {
		return nil, err
	}
	return m.store.UpdateSubmission(ctx, existing.ID, func(sub *Submission) error {
		sub.FirstSceneImage = fresh.FirstSceneImage
		sub.SecondSceneImage = fresh.SecondSceneImage
		sub.FirstSceneAnalysis = fresh.FirstSceneAnalysis
		sub.SecondSceneAnalysis = fresh.SecondSceneAnalysis
		sub.VideoURL = ""
		sub.VideoStatus = VideoPending
		sub.SubmittedAt = fresh.SubmittedAt
		sub.IsComplete = true
		return nil
	})
}

func videoStage(v VideoStatus) int {
	switch v {
	case VideoProcessing:
		return 1
	case VideoCompleted, VideoFailed:
		return 2
	}
	return 0
}

// UpdateSubmissionVideo records the outcome of video generation. Status only
// moves forward (pending, processing, completed|failed); a finished video is
// never changed again.
func (m *Submissions) UpdateSubmissionVideo(ctx context.Context, submissionID, videoURL string, status VideoStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: video status %q", ErrInvalidArgument, status)
	}
	sub, err := m.store.UpdateSubmission(ctx, submissionID, func(sub *Submission) error {
		cur := videoStage(sub.VideoStatus)
		if cur == 2 || videoStage(status) < cur {
			return fmt.Errorf("%w: video %s -> %s", ErrInvalidPhase, sub.VideoStatus, status)
		}
		sub.VideoStatus = status
		if videoURL != "" {
			sub.VideoURL = videoURL
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().Str("submissionId", sub.ID).Str("status", string(status)).Msg("submission video updated")
	if sess, err := m.store.GetSession(ctx, sub.SessionID); err == nil {
		m.opts.Notifier.SessionChanged(ctx, sess, "video")
	}
	return nil
}

func (m *Submissions) GetSessionSubmissions(ctx context.Context, sessionID string, round int) ([]*Submission, error) {
	if _, err := m.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return m.store.ListSubmissions(ctx, sessionID, round)
}

// GetPlayerSubmission returns nil without error when the player has not
// submitted for the round.
func (m *Submissions) GetPlayerSubmission(ctx context.Context, sessionID, playerID string, round int) (*Submission, error) {
	if _, err := m.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	sub, err := m.store.FindSubmission(ctx, sessionID, playerID, round)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return sub, err
}

func (m *Submissions) GetSubmission(ctx context.Context, submissionID string) (*Submission, error) {
	return m.store.GetSubmission(ctx, submissionID)
}

func (m *Submissions) MarkSubmissionComplete(ctx context.Context, submissionID string) error {
	_, err := m.store.UpdateSubmission(ctx, submissionID, func(sub *Submission) error {
		sub.IsComplete = true
		return nil
	})
	return err
}
