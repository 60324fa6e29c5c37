package game

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func TestCreateSession(t *testing.T) {
	f := newFixture(t)
	s, err := f.svc.Lifecycle.CreateSession(context.Background(), "host-1", "Alice", 0)
	if err != nil {
		t.Fatalf("should be able to create session: %v", err)
	}

	if !codePattern.MatchString(s.Code) {
		t.Fatalf("expected 6 char uppercase alphanumeric code, got %q", s.Code)
	}
	if s.ID == "" {
		t.Fatal("session id should not be empty")
	}
	if s.Phase != PhaseWaiting {
		t.Fatalf("expected phase %s, got %s", PhaseWaiting, s.Phase)
	}
	if s.CurrentRoundNumber != 0 || s.CurrentPrompt != "" {
		t.Fatalf("expected no round yet, got round %d prompt %q", s.CurrentRoundNumber, s.CurrentPrompt)
	}
	if s.RoundsTarget != DefaultRoundsTarget {
		t.Fatalf("expected %d rounds, got %d", DefaultRoundsTarget, s.RoundsTarget)
	}
	if got := s.ExpiresAt.Sub(s.CreatedAt); got != 2*time.Hour {
		t.Fatalf("expected 2h lifetime, got %s", got)
	}
	if len(s.Players) != 1 {
		t.Fatalf("expected only the host, got %d players", len(s.Players))
	}
	host := s.Players[0]
	if host.UserID != "host-1" || !host.IsHost || host.IsReady || host.CumulativeScore != 0 {
		t.Fatalf("unexpected host record: %+v", host)
	}

	stored, err := f.svc.Lifecycle.GetSessionByCode(context.Background(), s.Code)
	if err != nil {
		t.Fatalf("should be able to look up by code: %v", err)
	}
	if stored.ID != s.ID {
		t.Fatalf("expected id %s, got %s", s.ID, stored.ID)
	}
}

func TestCreateSessionCustomRounds(t *testing.T) {
	f := newFixture(t)
	s, err := f.svc.Lifecycle.CreateSession(context.Background(), "h", "H", 5)
	if err != nil {
		t.Fatalf("should be able to create session: %v", err)
	}
	if s.RoundsTarget != 5 {
		t.Fatalf("expected 5 rounds, got %d", s.RoundsTarget)
	}
}

type collidingStore struct {
	*MemoryStore
	collisions int
	attempts   []string
}

func (c *collidingStore) CreateSession(ctx context.Context, s *Session) error {
	c.attempts = append(c.attempts, s.Code)
	if c.collisions > 0 {
		c.collisions--
		return ErrCodeTaken
	}
	return c.MemoryStore.CreateSession(ctx, s)
}

func TestCreateSessionRetriesOnCodeCollision(t *testing.T) {
	store := &collidingStore{MemoryStore: NewMemoryStore(), collisions: 2}
	svc := NewService(store, Options{})
	s, err := svc.Lifecycle.CreateSession(context.Background(), "h", "H", 0)
	if err != nil {
		t.Fatalf("should retry past collisions: %v", err)
	}
	if len(store.attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(store.attempts))
	}
	if store.attempts[2] != s.Code {
		t.Fatalf("expected the last attempted code to win, got %s", s.Code)
	}

	store = &collidingStore{MemoryStore: NewMemoryStore(), collisions: maxCodeAttempts}
	svc = NewService(store, Options{})
	if _, err := svc.Lifecycle.CreateSession(context.Background(), "h", "H", 0); !errors.Is(err, ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken after exhausting attempts, got %v", err)
	}
}

func TestJoinSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.svc.Lifecycle.CreateSession(ctx, "host", "Host", 0)

	s, err := f.svc.Lifecycle.JoinSession(ctx, s.Code, "bob", "Bob")
	if err != nil {
		t.Fatalf("should be able to join: %v", err)
	}
	if len(s.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(s.Players))
	}
	bob := s.Players[1]
	if bob.UserID != "bob" || bob.IsHost || bob.IsReady {
		t.Fatalf("unexpected joined player: %+v", bob)
	}

	// joining again is a no-op
	again, err := f.svc.Lifecycle.JoinSession(ctx, s.Code, "bob", "Bobby")
	if err != nil {
		t.Fatalf("second join should succeed: %v", err)
	}
	if len(again.Players) != 2 {
		t.Fatalf("expected player count to stay 2, got %d", len(again.Players))
	}
	if again.Players[1].Nickname != "Bob" {
		t.Fatalf("rejoin should not rename, got %q", again.Players[1].Nickname)
	}
}

func TestJoinSessionFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Lifecycle.JoinSession(ctx, "NOPE00", "p", "P"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	started := f.startedSession(t, "bob")
	if _, err := f.svc.Lifecycle.JoinSession(ctx, started.Code, "late", "Late"); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase after start, got %v", err)
	}

	s, _ := f.svc.Lifecycle.CreateSession(ctx, "h2", "H2", 0)
	f.clock.Advance(2 * time.Hour)
	if _, err := f.svc.Lifecycle.JoinSession(ctx, s.Code, "p", "P"); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestJoinSessionClampsNickname(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.svc.Lifecycle.CreateSession(ctx, "host", "Host", 0)
	s, err := f.svc.Lifecycle.JoinSession(ctx, s.Code, "p", strings.Repeat("ü", 30))
	if err != nil {
		t.Fatalf("should be able to join: %v", err)
	}
	if got := []rune(s.Players[1].Nickname); len(got) != MaxNicknameLength {
		t.Fatalf("expected nickname clamped to %d runes, got %d", MaxNicknameLength, len(got))
	}
}

func TestSetPlayerReady(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.svc.Lifecycle.CreateSession(ctx, "host", "Host", 0)
	f.svc.Lifecycle.JoinSession(ctx, s.Code, "bob", "Bob")

	s, err := f.svc.Lifecycle.SetPlayerReady(ctx, s.ID, "bob", true)
	if err != nil {
		t.Fatalf("should be able to set ready: %v", err)
	}
	bob, _ := s.Player("bob")
	if !bob.IsReady {
		t.Fatal("bob should be ready")
	}
	host, _ := s.Player("host")
	if host.IsReady {
		t.Fatal("host should not be ready")
	}

	s, err = f.svc.Lifecycle.SetPlayerReady(ctx, s.ID, "ghost", true)
	if err != nil {
		t.Fatalf("unknown player should leave session unchanged: %v", err)
	}
	if len(s.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(s.Players))
	}

	if _, err := f.svc.Lifecycle.SetPlayerReady(ctx, "missing", "bob", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStartGameRequiresTwoPlayers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.svc.Lifecycle.CreateSession(ctx, "host", "Host", 0)

	if _, err := f.svc.Lifecycle.StartGame(ctx, s.ID); !errors.Is(err, ErrInsufficientPlayers) {
		t.Fatalf("expected ErrInsufficientPlayers with 1 player, got %v", err)
	}

	f.svc.Lifecycle.JoinSession(ctx, s.Code, "bob", "Bob")
	s, err := f.svc.Lifecycle.StartGame(ctx, s.ID)
	if err != nil {
		t.Fatalf("should be able to start with 2 players: %v", err)
	}
	if s.Phase != PhaseActive || s.CurrentRoundNumber != 1 {
		t.Fatalf("expected active round 1, got %s round %d", s.Phase, s.CurrentRoundNumber)
	}
	if s.CurrentPrompt == "" {
		t.Fatal("prompt should be assigned")
	}
}

func TestStartGameDoesNotRequireReady(t *testing.T) {
	f := newFixture(t)
	s := f.startedSession(t, "bob")
	for _, p := range s.Players {
		if p.IsReady {
			t.Fatalf("nobody readied up, but %s is ready", p.UserID)
		}
	}
	if s.Phase != PhaseActive {
		t.Fatalf("expected active, got %s", s.Phase)
	}
}

func TestStartGameTwiceIsInvalid(t *testing.T) {
	f := newFixture(t)
	s := f.startedSession(t, "bob")
	if _, err := f.svc.Lifecycle.StartGame(context.Background(), s.ID); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("expected ErrInvalidPhase, got %v", err)
	}
}

func TestCompleteRoundTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.startedSession(t, "bob")

	for i := 1; i <= 3; i++ {
		var err error
		s, err = f.svc.Lifecycle.CompleteRound(ctx, s.ID, "bob")
		if err != nil {
			t.Fatalf("complete round %d: %v", i, err)
		}
		if s.RoundsCompleted != i {
			t.Fatalf("expected %d rounds completed, got %d", i, s.RoundsCompleted)
		}
		want := PhaseWaiting
		if i == 3 {
			want = PhaseCompleted
		}
		if s.Phase != want {
			t.Fatalf("after call %d expected %s, got %s", i, want, s.Phase)
		}
	}
	bob, _ := s.Player("bob")
	if bob.RoundWins != 3 {
		t.Fatalf("expected bob to have 3 round wins, got %d", bob.RoundWins)
	}
	if _, err := f.svc.Lifecycle.CompleteRound(ctx, s.ID, "bob"); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("completed is terminal, got %v", err)
	}
}

func TestFullRoundCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.startedSession(t, "bob")

	s, err := f.svc.Lifecycle.BeginVoting(ctx, s.ID)
	if err != nil || s.Phase != PhaseVoting {
		t.Fatalf("expected voting, got %v %v", s, err)
	}
	if _, err := f.svc.Lifecycle.NextRound(ctx, s.ID); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("next round from voting should be rejected, got %v", err)
	}
	if _, err := f.svc.Lifecycle.BeginVoting(ctx, s.ID); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("voting twice should be rejected, got %v", err)
	}

	s, _ = f.svc.Lifecycle.CompleteRound(ctx, s.ID, "host")
	if s.Phase != PhaseWaiting {
		t.Fatalf("expected waiting, got %s", s.Phase)
	}
	s, err = f.svc.Lifecycle.NextRound(ctx, s.ID)
	if err != nil {
		t.Fatalf("should be able to start next round: %v", err)
	}
	if s.Phase != PhaseActive || s.CurrentRoundNumber != 2 || s.RoundsCompleted != 1 {
		t.Fatalf("unexpected state after next round: %s round %d completed %d", s.Phase, s.CurrentRoundNumber, s.RoundsCompleted)
	}

	// active -> active re-enters the next round
	s, _ = f.svc.Lifecycle.NextRound(ctx, s.ID)
	if s.CurrentRoundNumber != 3 || s.Phase != PhaseActive {
		t.Fatalf("expected active round 3, got %s round %d", s.Phase, s.CurrentRoundNumber)
	}
}

func TestEndGame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.svc.Lifecycle.CreateSession(ctx, "host", "Host", 0)

	s, err := f.svc.Lifecycle.EndGame(ctx, s.ID)
	if err != nil {
		t.Fatalf("should be able to end from waiting: %v", err)
	}
	if s.Phase != PhaseCompleted {
		t.Fatalf("expected completed, got %s", s.Phase)
	}
	if _, err := f.svc.Lifecycle.EndGame(ctx, s.ID); err != nil {
		t.Fatalf("ending twice should be a no-op: %v", err)
	}
	if _, err := f.svc.Lifecycle.NextRound(ctx, s.ID); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("nothing leaves completed, got %v", err)
	}
	if _, err := f.svc.Lifecycle.EndGame(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLifecycleNotifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s, _ := f.svc.Lifecycle.CreateSession(ctx, "host", "Host", 0)
	f.svc.Lifecycle.JoinSession(ctx, s.Code, "bob", "Bob")
	f.svc.Lifecycle.JoinSession(ctx, s.Code, "bob", "Bob")
	f.svc.Lifecycle.StartGame(ctx, s.ID)

	got := strings.Join(f.notifier.Reasons(), ",")
	if got != "create,join,start" {
		t.Fatalf("expected create,join,start got %s", got)
	}
}
