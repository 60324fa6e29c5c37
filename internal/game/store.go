package game

import "context"

// Store is the durable keyed storage behind the managers.
//
// Lookups return ErrNotFound when nothing matches. UpdateSession and
// UpdateSubmission are atomic read-modify-write operations: fn receives a
// private copy of the current record, and the copy is persisted only if fn
// returns nil and no other writer changed the record in between. An error from
// fn is returned unchanged and nothing is written.
type Store interface {
	// CreateSession fails with ErrCodeTaken if an unexpired session (relative
	// to s.CreatedAt) already uses s.Code.
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	// GetSessionByCode returns the most recently created session with code.
	GetSessionByCode(ctx context.Context, code string) (*Session, error)
	UpdateSession(ctx context.Context, id string, fn func(*Session) error) (*Session, error)

	// InsertSubmission fails with ErrDuplicateSubmission when a submission for
	// the same (session, player, round) exists.
	InsertSubmission(ctx context.Context, sub *Submission) error
	GetSubmission(ctx context.Context, id string) (*Submission, error)
	UpdateSubmission(ctx context.Context, id string, fn func(*Submission) error) (*Submission, error)
	// ListSubmissions returns the round's submissions ordered by submittedAt.
	ListSubmissions(ctx context.Context, sessionID string, round int) ([]*Submission, error)
	FindSubmission(ctx context.Context, sessionID, playerID string, round int) (*Submission, error)

	// InsertVote fails with ErrDuplicateVote when the voter already has a vote
	// in this session and round.
	InsertVote(ctx context.Context, v *Vote) error
	// ListVotes returns the round's votes ordered by votedAt.
	ListVotes(ctx context.Context, sessionID string, round int) ([]*Vote, error)
	FindVote(ctx context.Context, sessionID, voterID string, round int) (*Vote, error)
}
