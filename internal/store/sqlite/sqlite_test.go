package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiliankoe/sketchdash/internal/game"
	"github.com/kiliankoe/sketchdash/internal/store/sqlite"
	"github.com/kiliankoe/sketchdash/internal/store/storetest"
)

func open(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) game.Store {
		return open(t, filepath.Join(t.TempDir(), "sketchdash.db"))
	})
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sketchdash.db")
	ctx := context.Background()

	first, err := sqlite.New(path)
	require.NoError(t, err)
	svc := game.NewService(first, game.Options{})
	sess, err := svc.Lifecycle.CreateSession(ctx, "host", "Host", 2)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := open(t, path)
	got, err := second.GetSessionByCode(ctx, sess.Code)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, 2, got.RoundsTarget)
}
