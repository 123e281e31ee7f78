package preview

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livetemplate/mint/internal/platform"
	"github.com/livetemplate/mint/internal/sandbox"
)

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	b, err := sandbox.NewBuilder(sandbox.Options{})
	require.NoError(t, err)
	m := NewManager(b, opts)
	t.Cleanup(m.Close)
	return m
}

func TestManagerCreateAndGet(t *testing.T) {
	m := newTestManager(t, Options{})
	rec := &recorder{}

	s := m.Create(rec, platform.Android, "function App() { return null }")
	_, err := uuid.Parse(s.ID())
	assert.NoError(t, err)

	got, ok := m.Get(s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, m.Len())

	docs := rec.documents()
	require.Len(t, docs, 1)
	assert.Equal(t, platform.Android, docs[0].Profile)

	m.Remove(s.ID())
	_, ok = m.Get(s.ID())
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestManagerCreateInvalidProfileUsesDefault(t *testing.T) {
	m := newTestManager(t, Options{})
	s := m.Create(nil, platform.Profile("tv"), "")
	assert.Equal(t, platform.Default, s.Profile())
}

func TestManagerBroadcast(t *testing.T) {
	m := newTestManager(t, Options{Debounce: 10 * time.Millisecond})
	a, b := &recorder{}, &recorder{}
	m.Create(a, platform.IOS, "function App() { return null }")
	m.Create(b, platform.Android, "function App() { return null }")

	assert.Equal(t, 2, m.Broadcast("function Watched() { return null }"))

	for _, rec := range []*recorder{a, b} {
		require.Eventually(t, func() bool { return len(rec.documents()) == 2 }, 2*time.Second, 10*time.Millisecond)
		assert.Equal(t, "Watched", rec.documents()[1].Entry)
	}
}

func TestManagerExpireKeepsAttachedSessions(t *testing.T) {
	m := newTestManager(t, Options{IdleTimeout: time.Minute})
	attached := m.Create(&recorder{}, platform.IOS, "")
	detached := m.Create(nil, platform.IOS, "")

	assert.Equal(t, 0, m.Expire(time.Now()))

	n := m.Expire(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 1, n)
	_, ok := m.Get(detached.ID())
	assert.False(t, ok)
	_, ok = m.Get(attached.ID())
	assert.True(t, ok)
}

func TestManagerClose(t *testing.T) {
	m := newTestManager(t, Options{})
	s := m.Create(&recorder{}, platform.IOS, "")

	m.Close()
	m.Close()
	assert.Equal(t, 0, m.Len())
	assert.False(t, s.Attached())
}
