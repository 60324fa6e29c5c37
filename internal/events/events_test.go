package events

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiliankoe/sketchdash/internal/game"
)

type collector struct {
	mu      sync.Mutex
	updates []Update
	got     chan struct{}
}

func newCollector() *collector { return &collector{got: make(chan struct{}, 16)} }

func (c *collector) handle(u Update) {
	c.mu.Lock()
	c.updates = append(c.updates, u)
	c.mu.Unlock()
	c.got <- struct{}{}
}

func (c *collector) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.got:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for update")
	}
}

func TestLocalBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewLocal()
	a, b := newCollector(), newCollector()
	_, err := bus.Subscribe(a.handle)
	require.NoError(t, err)
	unsubscribe, err := bus.Subscribe(b.handle)
	require.NoError(t, err)

	sess := &game.Session{ID: "s1", Code: "ABC123"}
	require.NoError(t, bus.Publish(context.Background(), Update{Reason: "join", Session: sess}))
	assert.Len(t, a.updates, 1)
	assert.Len(t, b.updates, 1)
	assert.Equal(t, "join", a.updates[0].Reason)

	unsubscribe()
	require.NoError(t, bus.Publish(context.Background(), Update{Reason: "start", Session: sess}))
	assert.Len(t, a.updates, 2)
	assert.Len(t, b.updates, 1)
}

func TestNotifierPublishesGameChanges(t *testing.T) {
	bus := NewLocal()
	c := newCollector()
	bus.Subscribe(c.handle)

	svc := game.NewService(game.NewMemoryStore(), game.Options{Notifier: Notifier(bus)})
	sess, err := svc.Lifecycle.CreateSession(context.Background(), "host", "Host", 0)
	require.NoError(t, err)
	_, err = svc.Lifecycle.JoinSession(context.Background(), sess.Code, "bob", "Bob")
	require.NoError(t, err)

	require.Len(t, c.updates, 2)
	assert.Equal(t, "create", c.updates[0].Reason)
	assert.Equal(t, "join", c.updates[1].Reason)
	assert.Len(t, c.updates[1].Session.Players, 2)
}

// Needs a running server, e.g. NATS_URL=nats://localhost:4222
func TestNATSBusRoundTrip(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}
	bus, err := ConnectNATS(url, os.Getenv("NATS_TOKEN"))
	require.NoError(t, err)
	defer bus.Close()

	c := newCollector()
	bus.Subscribe(c.handle)
	sess := &game.Session{ID: "s1", Code: "NATS01", Phase: game.PhaseVoting}
	require.NoError(t, bus.Publish(context.Background(), Update{Reason: "voting", Session: sess}))
	c.wait(t)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, "NATS01", c.updates[0].Session.Code)
	assert.Equal(t, game.PhaseVoting, c.updates[0].Session.Phase)
}
