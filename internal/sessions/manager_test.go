package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memedici/artfeed/internal/feed"
	"github.com/memedici/artfeed/pkg/models"
)

type stubBatcher struct{}

func (stubBatcher) FetchBatch(ctx context.Context) ([]models.ContentItem, []models.FetchFailure, error) {
	return nil, nil, nil
}

func testFactory(id string) *feed.Session {
	return feed.NewSession(id, stubBatcher{}, feed.SessionConfig{})
}

func clockedFactory(now func() time.Time) Factory {
	return func(id string) *feed.Session {
		return feed.NewSession(id, stubBatcher{}, feed.SessionConfig{Now: now})
	}
}

func TestManagerCreateGetDelete(t *testing.T) {
	m := NewManager(testFactory, Config{IdleTTL: time.Minute})
	defer m.Close()

	sess := m.Create()
	require.NotEmpty(t, sess.ID())
	assert.Equal(t, 1, m.Len())

	got, ok := m.Get(sess.ID())
	require.True(t, ok)
	assert.Same(t, sess, got)

	assert.True(t, m.Delete(sess.ID()))
	assert.False(t, m.Delete(sess.ID()))
	assert.Equal(t, 0, m.Len())

	_, ok = m.Get(sess.ID())
	assert.False(t, ok)
}

func TestManagerUnknownHandle(t *testing.T) {
	m := NewManager(testFactory, Config{IdleTTL: time.Minute})
	defer m.Close()

	_, ok := m.Get("no-such-session")
	assert.False(t, ok)
}

func TestManagerHandlesAreUnique(t *testing.T) {
	m := NewManager(testFactory, Config{IdleTTL: time.Minute})
	defer m.Close()

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := m.Create().ID()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestManagerSweepsIdleSessions(t *testing.T) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }
	m := NewManager(clockedFactory(clock), Config{
		IdleTTL: 30 * time.Minute,
		now:     clock,
	})
	defer m.Close()

	stale := m.Create()
	fresh := m.Create()

	// Both sessions age past the TTL, then one is touched.
	current = current.Add(31 * time.Minute)
	fresh.Touch()

	m.sweep()

	assert.Equal(t, 1, m.Len())
	_, ok := m.Get(stale.ID())
	assert.False(t, ok)
	_, ok = m.Get(fresh.ID())
	assert.True(t, ok)
}
