package session

import (
	"sort"
	"sync"

	customlog "github.com/forklift-teleop/controller/pkg/log"
)

// Tracker is notified when sessions come and go, typically for metrics.
type Tracker interface {
	SessionOpened()
	SessionClosed()
}

// Manager tracks the live sessions.
type Manager struct {
	logger   customlog.Logger
	tracker  Tracker
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewManager creates a session manager. tracker may be nil.
func NewManager(logger customlog.Logger, tracker Tracker) *Manager {
	return &Manager{
		logger:   logger,
		tracker:  tracker,
		sessions: make(map[string]*Session),
	}
}

// Open creates and registers a session.
func (m *Manager) Open(opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = m.logger
	}
	s, err := New(opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.ID()] = s
	count := len(m.sessions)
	m.mu.Unlock()

	if m.tracker != nil {
		m.tracker.SessionOpened()
	}
	m.logger.Infof("Session %s opened (%d active)", s.ID(), count)
	return s, nil
}

// Close stops a session and forgets it. Unknown IDs are ignored.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, exists := m.sessions[id]
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()

	if !exists {
		return
	}
	s.Close()
	if m.tracker != nil {
		m.tracker.SessionClosed()
	}
	m.logger.Infof("Session %s closed (%d active)", id, count)
}

// CloseAll stops every session.
func (m *Manager) CloseAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.Close(id)
	}
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, exists := m.sessions[id]
	return s, exists
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// List describes the live sessions, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	infos := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.Info())
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}
