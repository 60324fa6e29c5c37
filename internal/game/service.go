package game

import (
	"context"
	"errors"
	"time"
)

// Notifier is told about every committed change to a session.
type Notifier interface {
	SessionChanged(ctx context.Context, s *Session, reason string)
}

type NotifierFunc func(ctx context.Context, s *Session, reason string)

func (f NotifierFunc) SessionChanged(ctx context.Context, s *Session, reason string) {
	f(ctx, s, reason)
}

type nopNotifier struct{}

func (nopNotifier) SessionChanged(context.Context, *Session, string) {}

// VideoQueue accepts submissions for asynchronous video generation.
type VideoQueue interface {
	Enqueue(sub *Submission, prompt string) bool
}

type Options struct {
	Prompts      PromptSource
	Notifier     Notifier
	Clock        func() time.Time
	RoundsTarget int
	SessionTTL   time.Duration
}

func (o Options) withDefaults() Options {
	if o.Prompts == nil {
		o.Prompts = DefaultPrompts
	}
	if o.Notifier == nil {
		o.Notifier = nopNotifier{}
	}
	if o.Clock == nil {
		o.Clock = func() time.Time { return time.Now().UTC() }
	}
	if o.RoundsTarget <= 0 {
		o.RoundsTarget = DefaultRoundsTarget
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = DefaultSessionTTL
	}
	return o
}

// Service bundles the three managers over one store.
type Service struct {
	Lifecycle   *Lifecycle
	Submissions *Submissions
	Voting      *Voting
}

func NewService(store Store, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		Lifecycle:   &Lifecycle{store: store, opts: opts},
		Submissions: &Submissions{store: store, opts: opts},
		Voting:      &Voting{store: store, opts: opts},
	}
}

// errUnchanged lets an update callback finish without writing.
var errUnchanged = errors.New("unchanged")

// updateSession runs fn atomically. If fn returns errUnchanged the session as
// seen by fn is returned and nothing is persisted.
func updateSession(ctx context.Context, store Store, id string, fn func(*Session) error) (*Session, bool, error) {
	var seen *Session
	s, err := store.UpdateSession(ctx, id, func(s *Session) error {
		if err := fn(s); err != nil {
			seen = s.Clone()
			return err
		}
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return seen, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}
