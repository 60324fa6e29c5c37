package game

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixedPrompt string

func (p fixedPrompt) NextPrompt(context.Context) string { return string(p) }

type recordingNotifier struct {
	mu      sync.Mutex
	reasons []string
}

func (n *recordingNotifier) SessionChanged(_ context.Context, _ *Session, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, reason)
}

func (n *recordingNotifier) Reasons() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.reasons...)
}

type fixture struct {
	svc      *Service
	store    *MemoryStore
	clock    *fakeClock
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: NewMemoryStore(), clock: newFakeClock(), notifier: &recordingNotifier{}}
	f.svc = NewService(f.store, Options{
		Prompts:  fixedPrompt("A cat knocking a vase off the table"),
		Notifier: f.notifier,
		Clock:    f.clock.Now,
	})
	return f
}

// startedSession creates a session hosted by "host" with the given extra
// players and starts round 1.
func (f *fixture) startedSession(t *testing.T, players ...string) *Session {
	t.Helper()
	ctx := context.Background()
	s, err := f.svc.Lifecycle.CreateSession(ctx, "host", "Host", 0)
	if err != nil {
		t.Fatalf("should be able to create session: %v", err)
	}
	for _, p := range players {
		if _, err := f.svc.Lifecycle.JoinSession(ctx, s.Code, p, p); err != nil {
			t.Fatalf("%s should be able to join: %v", p, err)
		}
	}
	s, err = f.svc.Lifecycle.StartGame(ctx, s.ID)
	if err != nil {
		t.Fatalf("should be able to start game: %v", err)
	}
	return s
}

func (f *fixture) submit(t *testing.T, sessionID, playerID string, round int) string {
	t.Helper()
	id, err := f.svc.Submissions.SubmitScenes(context.Background(), sessionID, playerID, round, "img-a-"+playerID, "img-b-"+playerID, SceneAnalyses{})
	if err != nil {
		t.Fatalf("%s should be able to submit: %v", playerID, err)
	}
	f.clock.Advance(time.Second)
	return id
}

func (f *fixture) vote(t *testing.T, sessionID, voterID, submissionID string, round int) {
	t.Helper()
	if _, err := f.svc.Voting.CastVote(context.Background(), sessionID, voterID, submissionID, round); err != nil {
		t.Fatalf("%s should be able to vote: %v", voterID, err)
	}
}

func scoreOf(t *testing.T, s *Session, userID string) int {
	t.Helper()
	p, ok := s.Player(userID)
	if !ok {
		t.Fatalf("player %s not in session", userID)
	}
	return p.CumulativeScore
}
