package game

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeQueue struct {
	mu      sync.Mutex
	full    bool
	queued  []string
	prompts []string
}

func (q *fakeQueue) Enqueue(sub *Submission, prompt string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.full {
		return false
	}
	q.queued = append(q.queued, sub.ID)
	q.prompts = append(q.prompts, prompt)
	return true
}

func TestSubmitScenes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.startedSession(t, "bob")

	id, err := f.svc.Submissions.SubmitScenes(ctx, s.ID, "bob", 1, "first", "second", SceneAnalyses{First: "a cat", Second: "a vase"})
	if err != nil {
		t.Fatalf("should be able to submit: %v", err)
	}
	sub, err := f.svc.Submissions.GetSubmission(ctx, id)
	if err != nil {
		t.Fatalf("should be able to get submission: %v", err)
	}
	if sub.VideoStatus != VideoPending || !sub.IsComplete || sub.VideoURL != "" {
		t.Fatalf("unexpected new submission %+v", sub)
	}
	if sub.FirstSceneAnalysis != "a cat" || sub.SecondSceneImage != "second" {
		t.Fatalf("scenes not stored %+v", sub)
	}
	if !sub.SubmittedAt.Equal(f.clock.Now()) {
		t.Fatalf("expected submittedAt from clock, got %v", sub.SubmittedAt)
	}
}

func TestSubmitScenesUnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Submissions.SubmitScenes(context.Background(), "missing", "bob", 1, "a", "b", SceneAnalyses{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResubmitReplacesScenes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.startedSession(t, "bob")
	first := f.submit(t, s.ID, "bob", 1)
	if err := f.svc.Submissions.UpdateSubmissionVideo(ctx, first, "", VideoProcessing); err != nil {
		t.Fatal(err)
	}

	second, err := f.svc.Submissions.SubmitScenes(ctx, s.ID, "bob", 1, "new-a", "new-b", SceneAnalyses{})
	if err != nil {
		t.Fatalf("resubmit should succeed: %v", err)
	}
	if second != first {
		t.Fatalf("resubmit should keep id %s, got %s", first, second)
	}
	subs, _ := f.svc.Submissions.GetSessionSubmissions(ctx, s.ID, 1)
	if len(subs) != 1 {
		t.Fatalf("expected one submission, got %d", len(subs))
	}
	if subs[0].FirstSceneImage != "new-a" || subs[0].VideoStatus != VideoPending {
		t.Fatalf("expected replaced scenes with pending video, got %+v", subs[0])
	}
}

func TestGetPlayerSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.startedSession(t, "bob")

	sub, err := f.svc.Submissions.GetPlayerSubmission(ctx, s.ID, "bob", 1)
	if err != nil || sub != nil {
		t.Fatalf("expected no submission yet, got %+v %v", sub, err)
	}
	id := f.submit(t, s.ID, "bob", 1)
	sub, err = f.svc.Submissions.GetPlayerSubmission(ctx, s.ID, "bob", 1)
	if err != nil || sub == nil || sub.ID != id {
		t.Fatalf("expected bob's submission, got %+v %v", sub, err)
	}
	if _, err := f.svc.Submissions.GetPlayerSubmission(ctx, "missing", "bob", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown session, got %v", err)
	}
}

func TestGetSessionSubmissionsOrdered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.startedSession(t, "bob", "carol")
	want := []string{f.submit(t, s.ID, "carol", 1), f.submit(t, s.ID, "host", 1), f.submit(t, s.ID, "bob", 1)}
	f.submit(t, s.ID, "bob", 2)

	subs, err := f.svc.Submissions.GetSessionSubmissions(ctx, s.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != len(want) {
		t.Fatalf("expected %d submissions, got %d", len(want), len(subs))
	}
	for i := range want {
		if subs[i].ID != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], subs[i].ID)
		}
	}
}

func TestUpdateSubmissionVideo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.startedSession(t, "bob")
	id := f.submit(t, s.ID, "bob", 1)

	if err := f.svc.Submissions.UpdateSubmissionVideo(ctx, id, "", VideoProcessing); err != nil {
		t.Fatalf("pending -> processing: %v", err)
	}
	if err := f.svc.Submissions.UpdateSubmissionVideo(ctx, id, "https://cdn.example/v.mp4", VideoCompleted); err != nil {
		t.Fatalf("processing -> completed: %v", err)
	}
	sub, _ := f.svc.Submissions.GetSubmission(ctx, id)
	if sub.VideoStatus != VideoCompleted || sub.VideoURL != "https://cdn.example/v.mp4" {
		t.Fatalf("unexpected submission %+v", sub)
	}

	if err := f.svc.Submissions.UpdateSubmissionVideo(ctx, id, "", VideoFailed); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("completed is terminal, got %v", err)
	}
	if err := f.svc.Submissions.UpdateSubmissionVideo(ctx, id, "", "rendering"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if err := f.svc.Submissions.UpdateSubmissionVideo(ctx, "missing", "", VideoFailed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateSubmissionVideoNeverMovesBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.startedSession(t, "bob")
	id := f.submit(t, s.ID, "bob", 1)

	if err := f.svc.Submissions.UpdateSubmissionVideo(ctx, id, "", VideoProcessing); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Submissions.UpdateSubmissionVideo(ctx, id, "", VideoPending); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase, got %v", err)
	}
	// failure straight from pending is allowed
	other := f.submit(t, s.ID, "host", 1)
	if err := f.svc.Submissions.UpdateSubmissionVideo(ctx, other, "", VideoFailed); err != nil {
		t.Fatalf("pending -> failed: %v", err)
	}
}

func TestMarkSubmissionComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.startedSession(t, "bob")
	id := f.submit(t, s.ID, "bob", 1)
	_, err := f.store.UpdateSubmission(ctx, id, func(sub *Submission) error {
		sub.IsComplete = false
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Submissions.MarkSubmissionComplete(ctx, id); err != nil {
		t.Fatalf("should mark complete: %v", err)
	}
	sub, _ := f.svc.Submissions.GetSubmission(ctx, id)
	if !sub.IsComplete {
		t.Fatal("expected submission to be complete")
	}
	if err := f.svc.Submissions.MarkSubmissionComplete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSubmitEnqueuesVideo(t *testing.T) {
	f := newFixture(t)
	q := &fakeQueue{}
	f.svc.Submissions.SetVideoQueue(q)
	s := f.startedSession(t, "bob")

	id := f.submit(t, s.ID, "bob", 1)
	if len(q.queued) != 1 || q.queued[0] != id || q.prompts[0] != s.CurrentPrompt {
		t.Fatalf("expected submission queued with prompt, got %v %v", q.queued, q.prompts)
	}

	q.full = true
	other := f.submit(t, s.ID, "host", 1)
	sub, _ := f.svc.Submissions.GetSubmission(context.Background(), other)
	if sub.VideoStatus != VideoPending {
		t.Fatalf("full queue should leave video pending, got %s", sub.VideoStatus)
	}
}
