// Package storetest holds the behaviour every game.Store backend must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiliankoe/sketchdash/internal/game"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) game.Store

// Whole seconds round-trip exactly through every backend.
var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newSession(code string, createdAt time.Time) *game.Session {
	return &game.Session{
		ID:           uuid.NewString(),
		Code:         code,
		HostID:       "host",
		Phase:        game.PhaseWaiting,
		RoundsTarget: game.DefaultRoundsTarget,
		Players: []game.Player{
			{UserID: "host", Nickname: "Host", IsHost: true, JoinedAt: createdAt},
		},
		ScoredRoundNumbers: []int{},
		CreatedAt:          createdAt,
		ExpiresAt:          createdAt.Add(game.DefaultSessionTTL),
	}
}

func newSubmission(sessionID, playerID string, round int, at time.Time) *game.Submission {
	return &game.Submission{
		ID:               uuid.NewString(),
		SessionID:        sessionID,
		PlayerID:         playerID,
		RoundNumber:      round,
		FirstSceneImage:  "data:image/png;base64,AAAA",
		SecondSceneImage: "data:image/png;base64,BBBB",
		VideoStatus:      game.VideoPending,
		SubmittedAt:      at,
		IsComplete:       true,
	}
}

func newVote(sessionID, voterID, submissionID string, round int, at time.Time) *game.Vote {
	return &game.Vote{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		VoterID:      voterID,
		SubmissionID: submissionID,
		RoundNumber:  round,
		VotedAt:      at,
	}
}

// Run exercises newStore against the game.Store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("Sessions", func(t *testing.T) { testSessions(t, newStore(t)) })
	t.Run("SessionCodes", func(t *testing.T) { testSessionCodes(t, newStore(t)) })
	t.Run("UpdateSession", func(t *testing.T) { testUpdateSession(t, newStore(t)) })
	t.Run("ConcurrentUpdateSession", func(t *testing.T) { testConcurrentUpdateSession(t, newStore(t)) })
	t.Run("Submissions", func(t *testing.T) { testSubmissions(t, newStore(t)) })
	t.Run("UpdateSubmission", func(t *testing.T) { testUpdateSubmission(t, newStore(t)) })
	t.Run("Votes", func(t *testing.T) { testVotes(t, newStore(t)) })
	t.Run("ConcurrentVotes", func(t *testing.T) { testConcurrentVotes(t, newStore(t)) })
}

func testSessions(t *testing.T, store game.Store) {
	ctx := context.Background()
	sess := newSession("ABC123", base)
	require.NoError(t, store.CreateSession(ctx, sess))

	got, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(sess, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("session round trip (-want +got):\n%s", diff)
	}
	assert.Equal(t, sess.Code, got.Code)
	assert.Equal(t, game.PhaseWaiting, got.Phase)
	require.Len(t, got.Players, 1)
	assert.Equal(t, "host", got.Players[0].UserID)
	assert.True(t, got.Players[0].IsHost)
	assert.True(t, sess.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, sess.ExpiresAt.Equal(got.ExpiresAt))

	byCode, err := store.GetSessionByCode(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, byCode.ID)

	_, err = store.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, game.ErrNotFound)
	_, err = store.GetSessionByCode(ctx, "ZZZZZZ")
	assert.ErrorIs(t, err, game.ErrNotFound)
}

func testSessionCodes(t *testing.T, store game.Store) {
	ctx := context.Background()
	first := newSession("QWE789", base)
	require.NoError(t, store.CreateSession(ctx, first))

	clash := newSession("QWE789", base.Add(time.Hour))
	assert.ErrorIs(t, store.CreateSession(ctx, clash), game.ErrCodeTaken)

	// once the first session has expired its code is free again
	reuse := newSession("QWE789", first.ExpiresAt)
	require.NoError(t, store.CreateSession(ctx, reuse))

	got, err := store.GetSessionByCode(ctx, "QWE789")
	require.NoError(t, err)
	assert.Equal(t, reuse.ID, got.ID)
}

func testUpdateSession(t *testing.T, store game.Store) {
	ctx := context.Background()
	sess := newSession("UPD001", base)
	require.NoError(t, store.CreateSession(ctx, sess))

	updated, err := store.UpdateSession(ctx, sess.ID, func(s *game.Session) error {
		s.Phase = game.PhaseActive
		s.CurrentRoundNumber = 1
		s.CurrentPrompt = "A dog surfing"
		s.Players = append(s.Players, game.Player{UserID: "bob", Nickname: "Bob", JoinedAt: base})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, game.PhaseActive, updated.Phase)

	got, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentRoundNumber)
	assert.Equal(t, "A dog surfing", got.CurrentPrompt)
	require.Len(t, got.Players, 2)
	assert.Equal(t, "bob", got.Players[1].UserID)

	// a failing callback writes nothing and its error comes back unchanged
	boom := errors.New("boom")
	_, err = store.UpdateSession(ctx, sess.ID, func(s *game.Session) error {
		s.Phase = game.PhaseCompleted
		return boom
	})
	assert.ErrorIs(t, err, boom)
	got, err = store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, game.PhaseActive, got.Phase)

	_, err = store.UpdateSession(ctx, "missing", func(*game.Session) error { return nil })
	assert.ErrorIs(t, err, game.ErrNotFound)
}

func testConcurrentUpdateSession(t *testing.T, store game.Store) {
	ctx := context.Background()
	sess := newSession("CON001", base)
	require.NoError(t, store.CreateSession(ctx, sess))

	const writers = 12
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.UpdateSession(ctx, sess.ID, func(s *game.Session) error {
				s.Players[0].CumulativeScore++
				s.ScoredRoundNumbers = append(s.ScoredRoundNumbers, i)
				return nil
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, writers, got.Players[0].CumulativeScore)
	assert.Len(t, got.ScoredRoundNumbers, writers)
}

func testSubmissions(t *testing.T, store game.Store) {
	ctx := context.Background()
	sess := newSession("SUB001", base)
	require.NoError(t, store.CreateSession(ctx, sess))

	late := newSubmission(sess.ID, "bob", 1, base.Add(2*time.Second))
	early := newSubmission(sess.ID, "host", 1, base.Add(time.Second))
	early.FirstSceneAnalysis = `{"objects":["cat"]}`
	other := newSubmission(sess.ID, "bob", 2, base.Add(3*time.Second))
	for _, sub := range []*game.Submission{late, early, other} {
		require.NoError(t, store.InsertSubmission(ctx, sub))
	}

	dup := newSubmission(sess.ID, "bob", 1, base.Add(4*time.Second))
	assert.ErrorIs(t, store.InsertSubmission(ctx, dup), game.ErrDuplicateSubmission)

	got, err := store.GetSubmission(ctx, early.ID)
	require.NoError(t, err)
	assert.Equal(t, "host", got.PlayerID)
	assert.Equal(t, `{"objects":["cat"]}`, got.FirstSceneAnalysis)
	assert.Equal(t, game.VideoPending, got.VideoStatus)
	assert.True(t, got.IsComplete)
	assert.True(t, early.SubmittedAt.Equal(got.SubmittedAt))

	found, err := store.FindSubmission(ctx, sess.ID, "bob", 1)
	require.NoError(t, err)
	assert.Equal(t, late.ID, found.ID)
	_, err = store.FindSubmission(ctx, sess.ID, "carol", 1)
	assert.ErrorIs(t, err, game.ErrNotFound)
	_, err = store.GetSubmission(ctx, "missing")
	assert.ErrorIs(t, err, game.ErrNotFound)

	list, err := store.ListSubmissions(ctx, sess.ID, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, early.ID, list[0].ID)
	assert.Equal(t, late.ID, list[1].ID)

	empty, err := store.ListSubmissions(ctx, sess.ID, 3)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testUpdateSubmission(t *testing.T, store game.Store) {
	ctx := context.Background()
	sess := newSession("SUB002", base)
	require.NoError(t, store.CreateSession(ctx, sess))
	sub := newSubmission(sess.ID, "bob", 1, base)
	require.NoError(t, store.InsertSubmission(ctx, sub))

	updated, err := store.UpdateSubmission(ctx, sub.ID, func(s *game.Submission) error {
		s.VideoStatus = game.VideoCompleted
		s.VideoURL = "https://cdn.example/video.mp4"
		// identity fields cannot be moved
		s.PlayerID = "mallory"
		s.RoundNumber = 9
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, game.VideoCompleted, updated.VideoStatus)
	assert.Equal(t, "bob", updated.PlayerID)

	got, err := store.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/video.mp4", got.VideoURL)
	assert.Equal(t, "bob", got.PlayerID)
	assert.Equal(t, 1, got.RoundNumber)

	boom := errors.New("boom")
	_, err = store.UpdateSubmission(ctx, sub.ID, func(s *game.Submission) error {
		s.VideoStatus = game.VideoFailed
		return boom
	})
	assert.ErrorIs(t, err, boom)
	got, err = store.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, game.VideoCompleted, got.VideoStatus)

	_, err = store.UpdateSubmission(ctx, "missing", func(*game.Submission) error { return nil })
	assert.ErrorIs(t, err, game.ErrNotFound)
}

func testVotes(t *testing.T, store game.Store) {
	ctx := context.Background()
	sess := newSession("VOT001", base)
	require.NoError(t, store.CreateSession(ctx, sess))

	second := newVote(sess.ID, "carol", "sub-1", 1, base.Add(2*time.Second))
	first := newVote(sess.ID, "bob", "sub-2", 1, base.Add(time.Second))
	nextRound := newVote(sess.ID, "bob", "sub-3", 2, base.Add(3*time.Second))
	for _, v := range []*game.Vote{second, first, nextRound} {
		require.NoError(t, store.InsertVote(ctx, v))
	}

	dup := newVote(sess.ID, "bob", "sub-1", 1, base.Add(4*time.Second))
	assert.ErrorIs(t, store.InsertVote(ctx, dup), game.ErrDuplicateVote)

	votes, err := store.ListVotes(ctx, sess.ID, 1)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, first.ID, votes[0].ID)
	assert.Equal(t, second.ID, votes[1].ID)

	found, err := store.FindVote(ctx, sess.ID, "bob", 2)
	require.NoError(t, err)
	assert.Equal(t, "sub-3", found.SubmissionID)
	assert.True(t, nextRound.VotedAt.Equal(found.VotedAt))

	_, err = store.FindVote(ctx, sess.ID, "dave", 1)
	assert.ErrorIs(t, err, game.ErrNotFound)
}

func testConcurrentVotes(t *testing.T, store game.Store) {
	ctx := context.Background()
	sess := newSession("VOT002", base)
	require.NoError(t, store.CreateSession(ctx, sess))

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- store.InsertVote(ctx, newVote(sess.ID, "bob", fmt.Sprintf("sub-%d", i), 1, base))
		}(i)
	}
	wg.Wait()
	close(results)

	accepted := 0
	for err := range results {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, game.ErrDuplicateVote)
	}
	assert.Equal(t, 1, accepted)
}
