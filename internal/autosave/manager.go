package autosave

import (
	"context"
	"log/slog"
	"sync"
)

type sessionKey struct {
	ownerID string
	blogID  string
}

// Manager owns one scheduler per open edit session, keyed by
// (owner, blog). It applies configuration changes to every live session.
type Manager struct {
	saver  Saver
	logger *slog.Logger

	mu       sync.Mutex
	cfg      Config
	sessions map[sessionKey]*Scheduler
}

func NewManager(saver Saver, logger *slog.Logger, cfg Config) *Manager {
	return &Manager{
		saver:    saver,
		logger:   logger,
		cfg:      cfg,
		sessions: make(map[sessionKey]*Scheduler),
	}
}

// Open enters edit mode for an existing blog. Opening a session that is
// already open replaces it, dropping the old session's unsaved draft. With
// autosave disabled the session exists but stays unarmed.
func (m *Manager) Open(ctx context.Context, ownerID, blogID string) (*Scheduler, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := NewScheduler(m.saver, m.logger, blogID, ownerID, m.cfg.Interval())
	if err != nil {
		return nil, err
	}

	key := sessionKey{ownerID: ownerID, blogID: blogID}
	if old, ok := m.sessions[key]; ok {
		old.Stop()
	}
	m.sessions[key] = s

	if m.cfg.Enabled {
		s.Start(ctx)
	}

	return s, nil
}

// Session returns the open scheduler for (ownerID, blogID), if any.
func (m *Manager) Session(ownerID, blogID string) (*Scheduler, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionKey{ownerID: ownerID, blogID: blogID}]
	return s, ok
}

// Close leaves edit mode, tearing the timer down. Closing an unopened
// session is a no-op.
func (m *Manager) Close(ownerID, blogID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey{ownerID: ownerID, blogID: blogID}
	if s, ok := m.sessions[key]; ok {
		s.Stop()
		delete(m.sessions, key)
	}
}

// SetConfig applies new autosave settings to every open session: disabling
// tears all timers down, an interval change re-arms them with the new
// period.
func (m *Manager) SetConfig(ctx context.Context, cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.cfg
	m.cfg = cfg

	for _, s := range m.sessions {
		switch {
		case !cfg.Enabled:
			s.Stop()
		case !prev.Enabled:
			s.SetInterval(cfg.Interval())
			s.Start(ctx)
		case cfg.Interval() != prev.Interval():
			s.SetInterval(cfg.Interval())
		}
	}
}

func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// StopAll tears down every open session; used on shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, s := range m.sessions {
		s.Stop()
		delete(m.sessions, key)
	}
}
