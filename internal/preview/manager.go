package preview

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/livetemplate/mint/internal/platform"
	"github.com/livetemplate/mint/internal/sandbox"
)

const (
	// DefaultIdleTimeout is how long a detached session survives.
	DefaultIdleTimeout = time.Hour
	cleanupInterval    = 5 * time.Minute
)

// Manager owns the live sessions of a server.
type Manager struct {
	builder *sandbox.Builder
	opts    Options

	sessions map[string]*Session
	mu       sync.RWMutex

	stop     chan struct{}
	stopOnce sync.Once
}

// NewManager creates a manager and starts its cleanup loop.
func NewManager(b *sandbox.Builder, opts Options) *Manager {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	m := &Manager{
		builder:  b,
		opts:     opts,
		sessions: make(map[string]*Session),
		stop:     make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// cleanupLoop removes idle detached sessions every five minutes.
func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			if n := m.Expire(now); n > 0 && m.opts.Debug {
				log.Printf("[Preview] Expired %d idle sessions", n)
			}
		}
	}
}

// Create starts a session with the given profile and source.
func (m *Manager) Create(obs Observer, p platform.Profile, source string) *Session {
	s := NewSession(uuid.NewString(), m.builder, obs, m.opts)
	if p.Valid() {
		s.profile = p
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	if m.opts.Debug {
		log.Printf("[Preview] Session %s created (%s)", s.ID(), s.profile)
	}
	s.Load(source)
	return s
}

// Get looks up a session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove closes and forgets a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Broadcast replaces the source of every session, as when the watched file
// changes on disk. It returns the number of sessions updated.
func (m *Manager) Broadcast(source string) int {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		s.Edit(source)
	}
	return len(sessions)
}

// Expire removes detached sessions idle longer than the idle timeout.
func (m *Manager) Expire(now time.Time) int {
	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if !s.Attached() && now.Sub(s.LastActive()) > m.opts.IdleTimeout {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

// Close stops the cleanup loop and closes every session.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
