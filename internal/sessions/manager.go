// Package sessions tracks live feed sessions by opaque handle and expires
// the ones their clients abandoned.
package sessions

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/memedici/artfeed/internal/feed"
	"github.com/memedici/artfeed/pkg/logging"
	"github.com/memedici/artfeed/pkg/monitoring"
)

// Factory builds a new session for a freshly issued handle.
type Factory func(id string) *feed.Session

// Config tunes the manager.
type Config struct {
	// IdleTTL is how long a session survives without any client
	// interaction before the janitor reaps it.
	IdleTTL time.Duration

	// SweepInterval is how often the janitor runs. Zero derives it from
	// IdleTTL.
	SweepInterval time.Duration

	Logger  logging.Logger
	Metrics *monitoring.FeedMetrics

	now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.IdleTTL <= 0 {
		c.IdleTTL = 30 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = c.IdleTTL / 4
		if c.SweepInterval < time.Second {
			c.SweepInterval = time.Second
		}
	}
	if c.Logger == nil {
		c.Logger = logging.NewLogger()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Manager owns the session registry. Handles are opaque UUIDs; an expired
// or deleted handle is indistinguishable from one that never existed.
type Manager struct {
	factory Factory
	cfg     Config
	logger  logging.Logger

	mu       sync.RWMutex
	sessions map[string]*feed.Session

	stopOnce sync.Once
	stop     chan struct{}
}

// NewManager creates a manager and starts its expiry janitor.
func NewManager(factory Factory, cfg Config) *Manager {
	cfg = cfg.withDefaults()
	m := &Manager{
		factory:  factory,
		cfg:      cfg,
		logger:   cfg.Logger,
		sessions: make(map[string]*feed.Session),
		stop:     make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Create issues a new handle and registers a fresh session under it.
func (m *Manager) Create() *feed.Session {
	id := uuid.New().String()
	sess := m.factory(id)

	m.mu.Lock()
	m.sessions[id] = sess
	count := len(m.sessions)
	m.mu.Unlock()

	m.setGauge(count)
	m.logger.WithFields(logging.Fields{"session_id": id, "active": count}).Info("Feed session created")
	return sess
}

// Get looks up a live session by handle.
func (m *Manager) Get(id string) (*feed.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// Delete removes a session. It reports whether the handle was live.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	_, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if ok {
		m.setGauge(count)
		m.logger.WithFields(logging.Fields{"session_id": id}).Info("Feed session deleted")
	}
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops the janitor. Live sessions are left to the process exit.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Manager) janitor() {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep reaps sessions idle past the TTL.
func (m *Manager) sweep() {
	cutoff := m.cfg.now().Add(-m.cfg.IdleTTL)

	m.mu.Lock()
	var reaped []string
	for id, sess := range m.sessions {
		if sess.LastAccess().Before(cutoff) {
			delete(m.sessions, id)
			reaped = append(reaped, id)
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if len(reaped) > 0 {
		m.setGauge(count)
		m.logger.WithFields(logging.Fields{"reaped": len(reaped), "active": count}).Info("Expired idle feed sessions")
	}
}

func (m *Manager) setGauge(count int) {
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.ActiveSessions.Set(float64(count))
	}
}
