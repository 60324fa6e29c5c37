package game

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxCodeAttempts = 8

// Lifecycle owns session creation, admission and phase transitions.
type Lifecycle struct {
	store Store
	opts  Options
}

func (l *Lifecycle) CreateSession(ctx context.Context, hostID, hostNickname string, roundsTarget int) (*Session, error) {
	if roundsTarget <= 0 {
		roundsTarget = l.opts.RoundsTarget
	}
	now := l.opts.Clock()
	s := &Session{
		ID:                 uuid.NewString(),
		HostID:             hostID,
		Phase:              PhaseWaiting,
		RoundsTarget:       roundsTarget,
		ScoredRoundNumbers: []int{},
		Players: []Player{{
			UserID:   hostID,
			Nickname: clampNickname(hostNickname),
			IsHost:   true,
			JoinedAt: now,
		}},
		CreatedAt: now,
		ExpiresAt: now.Add(l.opts.SessionTTL),
	}
	var err error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		s.Code = randomCode(CodeLength)
		err = l.store.CreateSession(ctx, s)
		if !errors.Is(err, ErrCodeTaken) {
			break
		}
		log.Warn().Str("code", s.Code).Int("attempt", attempt+1).Msg("session code collision")
	}
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	log.Info().Str("sessionId", s.ID).Str("code", s.Code).Str("hostId", hostID).Msg("session created")
	l.opts.Notifier.SessionChanged(ctx, s, "create")
	return s, nil
}

// JoinSession admits playerID. Joining twice is a no-op returning the
// current session.
func (l *Lifecycle) JoinSession(ctx context.Context, code, playerID, nickname string) (*Session, error) {
	found, err := l.store.GetSessionByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	now := l.opts.Clock()
	s, changed, err := updateSession(ctx, l.store, found.ID, func(s *Session) error {
		if s.Phase != PhaseWaiting {
			return fmt.Errorf("%w: session is no longer accepting players", ErrInvalidPhase)
		}
		if s.Expired(now) {
			return ErrExpired
		}
		if _, ok := s.Player(playerID); ok {
			return errUnchanged
		}
		s.Players = append(s.Players, Player{
			UserID:   playerID,
			Nickname: clampNickname(nickname),
			JoinedAt: now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		log.Info().Str("code", s.Code).Str("playerId", playerID).Int("players", len(s.Players)).Msg("player joined")
		l.opts.Notifier.SessionChanged(ctx, s, "join")
	}
	return s, nil
}

// SetPlayerReady updates one player's ready flag. There is no phase
// precondition; an unknown player leaves the session unchanged.
func (l *Lifecycle) SetPlayerReady(ctx context.Context, sessionID, playerID string, ready bool) (*Session, error) {
	s, changed, err := updateSession(ctx, l.store, sessionID, func(s *Session) error {
		p, ok := s.Player(playerID)
		if !ok || p.IsReady == ready {
			return errUnchanged
		}
		p.IsReady = ready
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		l.opts.Notifier.SessionChanged(ctx, s, "ready")
	}
	return s, nil
}

// StartGame moves a waiting session into round 1. Readiness of the players
// is left to the caller.
func (l *Lifecycle) StartGame(ctx context.Context, sessionID string) (*Session, error) {
	prompt := l.opts.Prompts.NextPrompt(ctx)
	return l.transition(ctx, sessionID, opStart, func(s *Session) error {
		if s.CurrentRoundNumber != 0 {
			return fmt.Errorf("%w: game already started", ErrInvalidPhase)
		}
		if len(s.Players) < MinPlayers {
			return ErrInsufficientPlayers
		}
		s.Phase = PhaseActive
		s.CurrentRoundNumber = 1
		s.CurrentPrompt = prompt
		return nil
	})
}

// NextRound starts the following round with a fresh prompt. Scores are not
// touched; CompleteRound is expected to have run first.
func (l *Lifecycle) NextRound(ctx context.Context, sessionID string) (*Session, error) {
	prompt := l.opts.Prompts.NextPrompt(ctx)
	return l.transition(ctx, sessionID, opNext, func(s *Session) error {
		s.Phase = PhaseActive
		s.CurrentRoundNumber++
		s.CurrentPrompt = prompt
		return nil
	})
}

// BeginVoting closes drawing for the current round.
func (l *Lifecycle) BeginVoting(ctx context.Context, sessionID string) (*Session, error) {
	return l.transition(ctx, sessionID, opBeginVoting, func(s *Session) error {
		s.Phase = PhaseVoting
		return nil
	})
}

// CompleteRound credits the round win and either ends the game or parks the
// session in waiting until NextRound. Points were applied by scoring.
func (l *Lifecycle) CompleteRound(ctx context.Context, sessionID, roundWinnerID string) (*Session, error) {
	return l.transition(ctx, sessionID, opComplete, func(s *Session) error {
		if p, ok := s.Player(roundWinnerID); ok {
			p.RoundWins++
		}
		s.RoundsCompleted++
		if s.RoundsCompleted >= s.RoundsTarget {
			s.Phase = PhaseCompleted
		} else {
			s.Phase = PhaseWaiting
		}
		return nil
	})
}

// EndGame forces the session into completed from any phase.
func (l *Lifecycle) EndGame(ctx context.Context, sessionID string) (*Session, error) {
	return l.transition(ctx, sessionID, opEnd, func(s *Session) error {
		if s.Phase == PhaseCompleted {
			return errUnchanged
		}
		s.Phase = PhaseCompleted
		return nil
	})
}

func (l *Lifecycle) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	return l.store.GetSession(ctx, sessionID)
}

func (l *Lifecycle) GetSessionByCode(ctx context.Context, code string) (*Session, error) {
	return l.store.GetSessionByCode(ctx, code)
}

func (l *Lifecycle) transition(ctx context.Context, sessionID string, op transition, apply func(*Session) error) (*Session, error) {
	var from Phase
	s, changed, err := updateSession(ctx, l.store, sessionID, func(s *Session) error {
		if err := checkTransition(s.Phase, op); err != nil {
			return err
		}
		from = s.Phase
		return apply(s)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		log.Info().
			Str("code", s.Code).
			Str("op", string(op)).
			Str("from", string(from)).
			Str("to", string(s.Phase)).
			Int("round", s.CurrentRoundNumber).
			Msg("phase transition")
		l.opts.Notifier.SessionChanged(ctx, s, string(op))
	}
	return s, nil
}

func clampNickname(name string) string {
	if utf8.RuneCountInString(name) <= MaxNicknameLength {
		return name
	}
	return string([]rune(name)[:MaxNicknameLength])
}
