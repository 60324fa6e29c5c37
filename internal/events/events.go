// Package events fans committed session changes out to push subscribers,
// either inside one process or across instances over NATS.
package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/sketchdash/internal/game"
)

// Update is one committed change to a session.
type Update struct {
	Reason  string        `json:"reason"`
	Session *game.Session `json:"session"`
}

type Handler func(Update)

type Bus interface {
	Publish(ctx context.Context, u Update) error
	// Subscribe registers h for every update; the returned func removes it.
	Subscribe(h Handler) (func(), error)
	Close() error
}

// Notifier adapts a Bus to game.Notifier. Publish failures are logged and
// never fail the game operation that caused them.
func Notifier(bus Bus) game.Notifier {
	return game.NotifierFunc(func(ctx context.Context, s *game.Session, reason string) {
		if err := bus.Publish(ctx, Update{Reason: reason, Session: s}); err != nil {
			log.Warn().Err(err).Str("code", s.Code).Str("reason", reason).Msg("failed to publish session update")
		}
	})
}

// handlers is the subscriber list shared by both bus implementations.
type handlers struct {
	mu   sync.RWMutex
	next int
	m    map[int]Handler
}

func (h *handlers) add(fn Handler) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.m == nil {
		h.m = make(map[int]Handler)
	}
	id := h.next
	h.next++
	h.m[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.m, id)
	}
}

func (h *handlers) dispatch(u Update) {
	h.mu.RLock()
	list := make([]Handler, 0, len(h.m))
	for _, fn := range h.m {
		list = append(list, fn)
	}
	h.mu.RUnlock()
	for _, fn := range list {
		fn(u)
	}
}

// Local delivers updates synchronously to subscribers in this process.
type Local struct {
	subs handlers
}

func NewLocal() *Local { return &Local{} }

func (l *Local) Publish(_ context.Context, u Update) error {
	l.subs.dispatch(u)
	return nil
}

func (l *Local) Subscribe(h Handler) (func(), error) {
	return l.subs.add(h), nil
}

func (l *Local) Close() error { return nil }
